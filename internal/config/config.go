// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - New() returns a Config populated with defaults.
//   - Load layers .env, an optional YAML file and RACETIME_* env vars on top.
//   - Validation errors wrap ErrInvalidConfig.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"in:debug,info,warn,warning,error"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format" validate:"required|in:text,json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// StoreDriver picks the checkpoint/roster backend: memory, sqlite or postgres.
	StoreDriver string `koanf:"store_driver" validate:"required|in:memory,sqlite,postgres"`

	// StoreDSN is the database file (sqlite) or connection URL (postgres).
	StoreDSN string `koanf:"store_dsn"`

	// StartReader and FinishReader identify the two RFID gates.
	StartReader  string `koanf:"start_reader" validate:"required"`
	FinishReader string `koanf:"finish_reader" validate:"required"`

	// QueueSize bounds the in-memory read queue.
	QueueSize int `koanf:"queue_size" validate:"required|min:1"`

	// WorkerCount sets the number of workers persisting reads.
	WorkerCount int `koanf:"worker_count" validate:"required|min:1"`

	// DedupeSize sets the size of the read deduplication cache.
	DedupeSize int `koanf:"dedupe_size" validate:"min:0"`

	// MaxRaceDuration flags results whose elapsed time is implausible.
	MaxRaceDuration time.Duration `koanf:"max_race_duration"`

	// FetchTimeout bounds a single results computation.
	FetchTimeout time.Duration `koanf:"fetch_timeout"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":9080",
		StoreDriver:     "memory",
		StartReader:     "192.168.10.1",
		FinishReader:    "192.168.10.2",
		QueueSize:       10_000,
		WorkerCount:     runtime.NumCPU() * 2,
		DedupeSize:      100_000,
		MaxRaceDuration: 24 * time.Hour,
		FetchTimeout:    5 * time.Second,
	}
}
