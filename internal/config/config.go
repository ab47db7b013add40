// Package config provides centralized configuration management for the
// application. It loads configuration from environment variables with
// sensible defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Parser  ParserConfig
	Service ServiceConfig
	Logging LoggingConfig
}

// ParserConfig holds CSV parsing settings.
type ParserConfig struct {
	// ChunkSize is the streaming read size in bytes (default: 256KiB)
	ChunkSize int `env:"PARSER_CHUNK_SIZE" default:"262144"`

	// MaxFileSize is the maximum allowed file size in bytes (default: 100MB)
	MaxFileSize int64 `env:"PARSER_MAX_FILE_SIZE" default:"104857600"`

	// EncodingHint is the charset label to assume when the input is not
	// valid UTF-8, e.g. "windows-1251". Empty means auto-detect.
	EncodingHint string `env:"PARSER_ENCODING_HINT"`

	// StrictFieldCount makes rows whose field count differs from the
	// header a fatal error instead of padding/collecting extras
	// (default: false)
	StrictFieldCount bool `env:"PARSER_STRICT_FIELD_COUNT" default:"false"`
}

// ServiceConfig holds background parse service settings.
type ServiceConfig struct {
	// MaxConcurrent is the maximum number of parallel parses (default: 5)
	MaxConcurrent int `env:"SERVICE_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for a parse slot (default: 30s)
	MaxWaitTime time.Duration `env:"SERVICE_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration for a single parse operation (default: 10m)
	Timeout time.Duration `env:"SERVICE_TIMEOUT" default:"10m"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}
