// Package config loads typed configuration from environment variables.
//
// Each component declares its own struct with `env` and `envDefault` tags
// (parsed by github.com/caarlos0/env/v11) and calls Load:
//
//	var cfg indexer.Config
//	if err := config.Load(&cfg); err != nil {
//	    return err
//	}
//
// A .env file in the working directory is read once through
// github.com/joho/godotenv; LoadEnv reads additional files explicitly.
// Parsed values are cached per type, ResetCache clears the cache.
package config
