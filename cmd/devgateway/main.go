package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/masaclient/internal/buildinfo"
	"github.com/dmitrijs2005/masaclient/internal/logging"
	"github.com/dmitrijs2005/masaclient/internal/server"
	"github.com/dmitrijs2005/masaclient/internal/server/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()

	zl, err := logging.BuildZap(cfg.Production, cfg.LogLevel)
	if err != nil {
		log.Printf("logger init error: %v", err)
		return
	}
	logger := logging.NewZapLogger(zl)
	defer func() { _ = logger.Sync() }()

	app, err := server.NewApp(cfg, logger)
	if err != nil {
		logger.Error(ctx, err.Error())
		return
	}

	app.Run(ctx)

}
