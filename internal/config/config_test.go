package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Verify defaults
	if cfg.Parser.ChunkSize != 262144 {
		t.Errorf("Parser.ChunkSize = %d, want %d", cfg.Parser.ChunkSize, 262144)
	}
	if cfg.Parser.MaxFileSize != 104857600 {
		t.Errorf("Parser.MaxFileSize = %d, want %d", cfg.Parser.MaxFileSize, 104857600)
	}
	if cfg.Parser.StrictFieldCount {
		t.Error("Parser.StrictFieldCount should default to false")
	}
	if cfg.Service.MaxConcurrent != 5 {
		t.Errorf("Service.MaxConcurrent = %d, want %d", cfg.Service.MaxConcurrent, 5)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
}

func TestLoad_OverrideDefaults(t *testing.T) {
	os.Setenv("PARSER_CHUNK_SIZE", "65536")
	os.Setenv("PARSER_STRICT_FIELD_COUNT", "true")
	os.Setenv("SERVICE_MAX_CONCURRENT", "10")
	os.Setenv("LOG_LEVEL", "debug")
	defer func() {
		os.Unsetenv("PARSER_CHUNK_SIZE")
		os.Unsetenv("PARSER_STRICT_FIELD_COUNT")
		os.Unsetenv("SERVICE_MAX_CONCURRENT")
		os.Unsetenv("LOG_LEVEL")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Parser.ChunkSize != 65536 {
		t.Errorf("Parser.ChunkSize = %d, want %d", cfg.Parser.ChunkSize, 65536)
	}
	if !cfg.Parser.StrictFieldCount {
		t.Error("Parser.StrictFieldCount = false, want true")
	}
	if cfg.Service.MaxConcurrent != 10 {
		t.Errorf("Service.MaxConcurrent = %d, want %d", cfg.Service.MaxConcurrent, 10)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoad_Duration(t *testing.T) {
	os.Setenv("SERVICE_MAX_WAIT_TIME", "1m30s")
	os.Setenv("SERVICE_TIMEOUT", "2m")
	defer func() {
		os.Unsetenv("SERVICE_MAX_WAIT_TIME")
		os.Unsetenv("SERVICE_TIMEOUT")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Service.MaxWaitTime != 90*time.Second {
		t.Errorf("Service.MaxWaitTime = %v, want %v", cfg.Service.MaxWaitTime, 90*time.Second)
	}
	if cfg.Service.Timeout != 2*time.Minute {
		t.Errorf("Service.Timeout = %v, want %v", cfg.Service.Timeout, 2*time.Minute)
	}
}

func TestLoad_InvalidInteger(t *testing.T) {
	os.Setenv("PARSER_CHUNK_SIZE", "lots")
	defer os.Unsetenv("PARSER_CHUNK_SIZE")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected error for non-numeric PARSER_CHUNK_SIZE")
	}
}

func TestValidate_NonPositiveChunkSize(t *testing.T) {
	cfg := &Config{
		Parser:  ParserConfig{ChunkSize: 0, MaxFileSize: 1},
		Service: ServiceConfig{MaxConcurrent: 1, MaxWaitTime: time.Second, Timeout: time.Minute},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for zero chunk size")
	}
	if !strings.Contains(err.Error(), "PARSER_CHUNK_SIZE") {
		t.Errorf("error should mention PARSER_CHUNK_SIZE: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := &Config{
		Parser:  ParserConfig{ChunkSize: 262144, MaxFileSize: 1},
		Service: ServiceConfig{MaxConcurrent: 1, MaxWaitTime: time.Second, Timeout: time.Minute},
		Logging: LoggingConfig{Level: "verbose", Format: "text"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for invalid log level")
	}
	if !strings.Contains(err.Error(), "LOG_LEVEL") {
		t.Errorf("error should mention LOG_LEVEL: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := &Config{
		Parser:  ParserConfig{ChunkSize: 262144, MaxFileSize: 1},
		Service: ServiceConfig{MaxConcurrent: 1, MaxWaitTime: time.Second, Timeout: time.Minute},
		Logging: LoggingConfig{Level: "info", Format: "xml"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for invalid log format")
	}
	if !strings.Contains(err.Error(), "LOG_FORMAT") {
		t.Errorf("error should mention LOG_FORMAT: %v", err)
	}
}
