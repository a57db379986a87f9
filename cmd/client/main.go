package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/dropsync/internal/client/cli"
	"github.com/dmitrijs2005/dropsync/internal/client/config"
	"github.com/dmitrijs2005/dropsync/internal/logging"
)

func main() {
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(os.Stderr, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)
}
