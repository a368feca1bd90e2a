package main

import (
	"github.com/smartsum/backend/internal/config"
	"github.com/smartsum/backend/internal/server"
	"github.com/smartsum/backend/pkg/logger"
	"github.com/smartsum/backend/pkg/logger/console"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  cfg.Debug,
		Prefix: "server",
	})
	logger.Init(consoleLogger)

	server.Init(cfg)
}
