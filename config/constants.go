package config

import "time"

// Environment
const (
	// EnvPrefix marks environment variables that override config keys
	EnvPrefix = "GRANTBOT_"

	// DefaultConfigFile is read when --config is not given and the file exists
	DefaultConfigFile = "grantbot.yaml"
)

// Discovery limits
const (
	MinFetchTimeout = time.Second
	MaxFetchTimeout = 60 * time.Second

	// MaxRedirects is the hard ceiling for redirect following
	MaxRedirects = 5
)

// Storage drivers
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Schedules
const (
	// DefaultDiscoveryCron runs discovery every Monday morning
	DefaultDiscoveryCron = "0 6 * * 1"

	// DefaultChangesCron checks tracked items daily
	DefaultChangesCron = "0 7 * * *"
)

// Server
const (
	DefaultServerAddr = ":8080"
	DefaultAPIURL     = "http://localhost:8080"
)
