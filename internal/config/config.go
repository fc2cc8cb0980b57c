// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package config loads the rectable tool configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/OpenPSG/rectable"
	"github.com/OpenPSG/rectable/export"
	"github.com/OpenPSG/rectable/internal/logging"
	"gopkg.in/yaml.v3"
)

// Config is the complete tool configuration.
type Config struct {
	// TimezoneOffsetMinutes is the recording's offset from UTC.
	TimezoneOffsetMinutes int `yaml:"timezone_offset_minutes"`

	// Concurrency bounds the number of channels extracted in parallel.
	Concurrency int `yaml:"concurrency"`

	Query  QueryConfig  `yaml:"query"`
	Log    LogConfig    `yaml:"log"`
	Server ServerConfig `yaml:"server"`
	Export ExportConfig `yaml:"export"`
}

// QueryConfig holds query defaults.
type QueryConfig struct {
	// Format is the timestamp format: seconds, none, utc or local.
	Format   string   `yaml:"format"`
	Channels []string `yaml:"channels"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Listen is the listen address, the server is disabled when empty.
	Listen string `yaml:"listen"`
}

// ExportConfig configures table export.
type ExportConfig struct {
	// Format is csv or parquet.
	Format string `yaml:"format"`

	// Compression is the stream compression: none or zstd.
	Compression string `yaml:"compression"`

	// ZstdLevel is the stream compression level (1-4).
	ZstdLevel int `yaml:"zstd_level"`

	// ParquetCompression is the parquet column codec.
	ParquetCompression string `yaml:"parquet_compression"`
}

// Load reads the configuration at path on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Concurrency: 1,
		Query: QueryConfig{
			Format: rectable.TimestampSeconds.String(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Export: ExportConfig{
			Format:             "csv",
			Compression:        "none",
			ZstdLevel:          2,
			ParquetCompression: "zstd",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.TimezoneOffsetMinutes < -24*60 || c.TimezoneOffsetMinutes > 24*60 {
		errs = append(errs, fmt.Errorf("timezone_offset_minutes out of range: %d", c.TimezoneOffsetMinutes))
	}
	if c.Concurrency <= 0 {
		errs = append(errs, errors.New("concurrency must be positive"))
	}

	if _, err := rectable.ParseTimestampFormat(c.Query.Format); err != nil {
		errs = append(errs, fmt.Errorf("query: %w", err))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}

	switch c.Export.Format {
	case "csv", "parquet":
	default:
		errs = append(errs, fmt.Errorf("export: unknown format %q", c.Export.Format))
	}
	switch c.Export.Compression {
	case "none", "zstd":
	default:
		errs = append(errs, fmt.Errorf("export: unknown compression %q", c.Export.Compression))
	}
	if c.Export.ZstdLevel < 1 || c.Export.ZstdLevel > 4 {
		errs = append(errs, fmt.Errorf("export: zstd_level must be between 1 and 4, got %d", c.Export.ZstdLevel))
	}
	if _, err := export.ParseCompressionType(c.Export.ParquetCompression); err != nil {
		errs = append(errs, fmt.Errorf("export: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
