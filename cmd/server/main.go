package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/dropsync/internal/logging"
	"github.com/dmitrijs2005/dropsync/internal/server"
	"github.com/dmitrijs2005/dropsync/internal/server/config"
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

	ctx := context.Background()
	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
