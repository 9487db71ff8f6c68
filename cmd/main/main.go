package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/dkoehler14/traindata/internal/cli"
	"github.com/dkoehler14/traindata/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Log.Debug().Msg("no .env file found, using system environment variables")
	}

	if err := logger.Init(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FILE")); err != nil {
		logger.Log.Error().Err(err).Msg("failed to initialize logging")
		os.Exit(1)
	}
	defer logger.Close()

	rootCmd := cli.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
