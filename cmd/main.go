package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/safewallet/walletkit/internal/chain"
	"github.com/safewallet/walletkit/internal/config"
	"github.com/safewallet/walletkit/internal/controller"
	"github.com/safewallet/walletkit/internal/route"
	"github.com/safewallet/walletkit/internal/utils"
	"github.com/safewallet/walletkit/internal/utils/observability"
)

func action(ctx *cli.Context) error {
	// Load config file.
	cfgFile := ctx.String(utils.ConfigFileFlag.Name)
	cfg, err := config.NewConfig(cfgFile)
	if err != nil {
		log.Crit("failed to load config file", "config file", cfgFile, "error", err)
	}

	if err = validateRPCURLs(cfg); err != nil {
		log.Crit("RPC configuration check failed", "error", err)
	}

	client, err := chain.Dial(cfg.EthereumRPCURLs)
	if err != nil {
		log.Crit("failed to connect to RPC endpoints", "error", err)
	}

	// Sanity check: the endpoints must answer a head query before we serve.
	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelBoot()
	blockNumber, err := client.BlockNumber(bootCtx)
	if err != nil {
		log.Crit("RPC sanity check failed", "error", err)
	}
	log.Info("RPC endpoints verified", "count", len(cfg.EthereumRPCURLs), "blockNumber", blockNumber)

	observability.Server(ctx)

	router := gin.New()
	controller.InitAPI(cfg, client)
	route.Route(router, cfg)
	port := ctx.Int(utils.HTTPPortFlag.Name)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      5 * time.Minute, // wallet_waitForOperation holds the connection open
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if runServerErr := srv.ListenAndServe(); runServerErr != nil && !errors.Is(runServerErr, http.ErrServerClosed) {
			log.Crit("run walletkit http server failure", "error", runServerErr)
		}
	}()

	log.Info("Start walletkit success...", "version", utils.Version)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	<-interrupt

	log.Info("Start shutdown walletkit server...")

	closeCtx, cancelExit := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelExit()
	if err = srv.Shutdown(closeCtx); err != nil {
		log.Warn("shutdown walletkit server failure", "error", err)
		return nil
	}

	<-closeCtx.Done()
	log.Info("walletkit server exiting success")
	return nil
}

// validateRPCURLs checks the configured endpoint list before dialing.
func validateRPCURLs(cfg *config.Config) error {
	if len(cfg.EthereumRPCURLs) == 0 {
		return fmt.Errorf("no Ethereum RPC URLs configured")
	}
	for i, rpcURL := range cfg.EthereumRPCURLs {
		if rpcURL == "" {
			return fmt.Errorf("RPC URL %d is empty", i+1)
		}
		if !strings.HasPrefix(rpcURL, "http://") && !strings.HasPrefix(rpcURL, "https://") &&
			!strings.HasPrefix(rpcURL, "ws://") && !strings.HasPrefix(rpcURL, "wss://") {
			return fmt.Errorf("RPC URL %d has invalid format: %s", i+1, rpcURL)
		}
	}
	return nil
}

// Run walletkit cmd instance.
func main() {
	// Optional .env overlay for local development; missing file is fine.
	_ = godotenv.Load()

	app := cli.NewApp()
	app.Action = action
	app.Name = "walletkit"
	app.Usage = "Safe user-operation client sidecar"
	app.Version = utils.Version
	app.Flags = append(app.Flags, utils.CommonFlags...)
	app.Commands = []*cli.Command{}
	app.Before = func(ctx *cli.Context) error {
		return utils.LogSetup(ctx)
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
