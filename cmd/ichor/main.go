package main

import (
	"flag"

	"ichor/ichor/defs"
	"ichor/ichor"

	"go.uber.org/zap"
)

var configFile string

func init() {
	flag.StringVar(&configFile, "f", "config.yaml", "config file")
	flag.Parse()
}

func main() {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	config, err := defs.LoadConfig(configFile)
	if err != nil {
		logger.Fatal("unable to load config", zap.Error(err))
	}
	config.Logger = logger

	logger.Debug("loaded config file", zap.String("file", configFile))

	if err := ichor.Run(config); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
