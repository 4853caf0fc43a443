// Package utils provides versioning information for the walletkit service.
package utils

import (
	"fmt"
	"runtime/debug"
)

var tag = "v0.1.0"

var commit = func() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				value := setting.Value
				if len(value) >= 7 {
					return value[:7]
				}
				return value
			}
		}
	}
	// Set default value for integration test.
	return "000000"
}()

// Version denotes the version of walletkit.
var Version = fmt.Sprintf("%s-%s", tag, commit)
