package config

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Config holds the overall configuration for the application.
type Config struct {
	Core       Core
	Buffer     BufferConfig
	Monitoring MonitoringConfig
	Paths      PathsConfig
	Warnings   []string
}

// Core contains settings shared by every command.
type Core struct {
	Debug     bool
	LogFormat string
	// LogHistory is how many recent log records are kept in memory and
	// reported when a command fails. 0 disables it.
	LogHistory int
}

// BufferConfig holds the defaults for rolling buffers created by commands.
type BufferConfig struct {
	Size     int
	Capacity int
}

// MonitoringConfig holds the configuration for host resource sampling.
type MonitoringConfig struct {
	Retention time.Duration
	Interval  time.Duration
	DiskPath  string
	Metrics   []string
}

// PathsConfig holds resolved file system locations.
type PathsConfig struct {
	ConfigDir      string
	ConfigFileUsed string
	DotEnvFile     string
}

// Metric names accepted in monitoring.metrics.
const (
	MetricCPU    = "cpu"
	MetricMemory = "memory"
	MetricDisk   = "disk"
	MetricLoad   = "load"
)

var knownMetrics = []string{MetricCPU, MetricMemory, MetricDisk, MetricLoad}

var (
	ErrNegativeBufferSize = errors.New("buffer.size must not be negative")
	ErrUnknownMetric      = errors.New("unknown metric")
)

// Validate checks the configuration for values the application cannot use.
func (c *Config) Validate() error {
	var errs []error
	if c.Buffer.Size < 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrNegativeBufferSize, c.Buffer.Size))
	}
	for _, m := range c.Monitoring.Metrics {
		if !slices.Contains(knownMetrics, m) {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownMetric, m))
		}
	}
	return errors.Join(errs...)
}
