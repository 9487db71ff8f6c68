// Package config loads application settings from the environment and
// entity mapping files.
package config

import (
	"errors"
	"os"
)

// Config holds the process-level settings, populated from environment
// variables (a .env file is loaded in main before this runs).
type Config struct {
	SQLConnString   string
	MongoConnString string
	MongoDatabase   string
	LogLevel        string
	LogFile         string
}

// Load reads the configuration from the environment. The two connection
// strings are required; everything else has a sensible default.
func Load() (*Config, error) {
	sqlConn := os.Getenv("SQL_CONNECTION_STRING")
	if sqlConn == "" {
		return nil, errors.New("SQL_CONNECTION_STRING environment variable not set")
	}

	mongoConn := os.Getenv("MONGO_CONNECTION_STRING")
	if mongoConn == "" {
		return nil, errors.New("MONGO_CONNECTION_STRING environment variable not set")
	}

	mongoDB := os.Getenv("MONGO_DATABASE")
	if mongoDB == "" {
		mongoDB = "traindata"
	}

	return &Config{
		SQLConnString:   sqlConn,
		MongoConnString: mongoConn,
		MongoDatabase:   mongoDB,
		LogLevel:        os.Getenv("LOG_LEVEL"),
		LogFile:         os.Getenv("LOG_FILE"),
	}, nil
}
