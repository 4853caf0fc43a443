// Package utils provides logging functionality for the walletkit service.
package utils

import (
	"io"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
)

// LogSetup configures the logging system based on CLI context flags
func LogSetup(ctx *cli.Context) error {
	output := io.Writer(os.Stderr)
	useColor := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	if useColor {
		output = colorable.NewColorableStderr()
	}

	handler := log.StreamHandler(output, log.TerminalFormat(useColor))
	if ctx.Bool(logDebugFlag.Name) {
		handler = log.CallerFileHandler(handler)
	}
	verbosity := ctx.Int(verbosityFlag.Name)
	handler = log.LvlFilterHandler(log.Lvl(verbosity), handler)
	log.Root().SetHandler(handler)
	return nil
}
