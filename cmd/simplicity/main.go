package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/GaloisField2718/simplicity-dev/internal/bitcoin"
	"github.com/GaloisField2718/simplicity-dev/internal/config"
	"github.com/GaloisField2718/simplicity-dev/internal/indexer"
	"github.com/GaloisField2718/simplicity-dev/internal/logging"
	"github.com/GaloisField2718/simplicity-dev/internal/processor"
	"github.com/GaloisField2718/simplicity-dev/internal/rpc"
	"github.com/GaloisField2718/simplicity-dev/internal/storage"
	"github.com/GaloisField2718/simplicity-dev/internal/version"

	_ "go.uber.org/automaxprocs"
)

const (
	programName = "simplicity"
)

var cmdlineFlags struct {
	configFile string
	version    bool
}

func main() {
	flag.StringVar(&cmdlineFlags.configFile, "config", "", "path to config file to load")
	flag.BoolVar(&cmdlineFlags.version, "version", false, "show version")
	flag.Parse()

	if cmdlineFlags.version {
		fmt.Printf("%s %s\n", programName, version.GetVersionString())
		os.Exit(0)
	}

	// Load config
	cfg, err := config.Load(cmdlineFlags.configFile)
	if err != nil {
		fmt.Printf("Failed to load config: %s\n", err)
		os.Exit(1)
	}

	// Configure logging
	logging.Configure()
	logger := logging.GetLogger()

	// Start debug listener
	if cfg.Debug.ListenPort > 0 {
		logger.Info(fmt.Sprintf(
			"starting debug listener on %s:%d",
			cfg.Debug.ListenAddress,
			cfg.Debug.ListenPort,
		))
		go func() {
			err := http.ListenAndServe(
				fmt.Sprintf("%s:%d", cfg.Debug.ListenAddress, cfg.Debug.ListenPort),
				nil,
			)
			if err != nil {
				logger.Error("failed to start debug listener", "error", err)
				os.Exit(1)
			}
		}()
	}

	// Open storage
	if err := storage.GetStorage().Load(); err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := storage.GetStorage().Close(); err != nil {
			logger.Error("failed to close storage", "error", err)
		}
	}()

	params, err := bitcoin.NetworkParams(cfg.Network)
	if err != nil {
		logger.Error("invalid network", "error", err)
		os.Exit(1)
	}

	client := rpc.NewClient()
	resolver := rpc.NewUTXOResolver(client, params)
	proc := processor.New(resolver, params)
	idx := indexer.New(client, storage.GetStorage(), proc)

	// Stop the sync loop on SIGINT/SIGTERM; an in-flight block's overlay is
	// discarded and the block is re-processed on next startup
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	logger.Info(
		"starting indexer",
		"network", cfg.Network,
		"rpcUrl", cfg.Bitcoin.RpcUrl,
	)
	if err := idx.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("indexer failed", "error", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}
