// Package config provides environment-based configuration.
//
// Loads from .env file (godotenv), maps to Config struct via go-simpler/env
// struct tags. Validates model name and threshold sanity at startup; the
// pipeline refuses to run with contradictory thresholds. The tracked title
// registry is a separate YAML file loaded once and immutable afterwards.
package config
