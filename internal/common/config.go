// Package common provides shared configuration, logging and progress
// reporting for the hfprop commands.
package common

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/KI7MT/ki7mt-hfprop/internal/ccir"
)

// Config holds common configuration for all commands. Values come from the
// environment; command-line flags override them.
type Config struct {
	ClickHouseHost     string
	ClickHousePort     int
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string

	DataDir   string
	MapFile   string // Coefficient map; empty selects the built-in reference map
	Workers   int
	LogLevel  string
	LogFormat string
	LogFile   string // Rotating log file; empty logs to stderr
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ClickHouseHost:     getEnv("CLICKHOUSE_HOST", "localhost"),
		ClickHousePort:     getEnvInt("CLICKHOUSE_PORT", 9000),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "hfprop"),
		ClickHouseUser:     getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),
		DataDir:            getEnv("HFPROP_DATA_DIR", "/var/lib/ki7mt-hfprop"),
		MapFile:            getEnv("HFPROP_MAP_FILE", ""),
		Workers:            getEnvInt("HFPROP_WORKERS", runtime.NumCPU()),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
		LogFile:            getEnv("LOG_FILE", ""),
	}
}

// ClickHouseAddr returns the native protocol address.
func (c *Config) ClickHouseAddr() string {
	return c.ClickHouseHost + ":" + strconv.Itoa(c.ClickHousePort)
}

// MapDataDir returns the directory holding coefficient map files.
func (c *Config) MapDataDir() string {
	return filepath.Join(c.DataDir, "maps")
}

// ExportDir returns the directory for sweep exports.
func (c *Config) ExportDir() string {
	return filepath.Join(c.DataDir, "export")
}

// MapSource returns the source string for ccir.Store.Load.
func (c *Config) MapSource() string {
	if c.MapFile == "" || c.MapFile == ccir.BuiltinSource {
		return ccir.BuiltinSource
	}
	if filepath.IsAbs(c.MapFile) {
		return c.MapFile
	}
	if _, err := os.Stat(c.MapFile); err == nil {
		return c.MapFile
	}
	return filepath.Join(c.MapDataDir(), c.MapFile)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return defaultValue
}
