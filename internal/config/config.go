// Package config provides the configuration structure for the production client.
package config

import (
	"fmt"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// ProductionConfig holds the connection settings for the production service.
type ProductionConfig struct {
	BaseURL           string `toml:"base_url"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	JobTimeoutSeconds int    `toml:"job_timeout_seconds"`
}

// NATSConfig holds the configuration for the NATS bridge.
type NATSConfig struct {
	URL                       string `toml:"url"`
	ProductionRequestSubject  string `toml:"production_request_subject"`
	ProductionProgressSubject string `toml:"production_progress_subject"`
	ArtifactObjectStoreBucket string `toml:"artifact_object_store_bucket"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
	OutputDir   string `toml:"output_dir"`
}

// Config is the root configuration structure.
type Config struct {
	Production ProductionConfig `toml:"production"`
	NATS       NATSConfig       `toml:"nats"`
	Paths      PathsConfig      `toml:"paths"`
}

// Load loads the configuration for the production client.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	return &cfg, nil
}
