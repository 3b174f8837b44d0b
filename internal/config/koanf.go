// Feedforge - Personalized Feed Generation and Ranking Pipeline
// Copyright 2026 Feedforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedforge/feedforge

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/feedforge/config.yaml",
	"/etc/feedforge/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML config file (if found)
//  3. Environment variables: override any setting
//
// Environment variable names map to config paths by section prefix:
// DATABASE_PATH -> database.path, FEED_MAX_QUEUE_SIZE -> feed.max_queue_size,
// LOG_LEVEL -> logging.level.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the first file found, or empty string if none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// configSections are the recognized environment variable prefixes mapped to
// their config sections. Unrecognized variables are dropped so unrelated
// environment noise cannot leak into the configuration.
var configSections = map[string]string{
	"database":    "database",
	"queue":       "queue",
	"feed":        "feed",
	"maintenance": "maintenance",
	"logging":     "logging",
	"log":         "logging", // LOG_LEVEL / LOG_FORMAT shorthand
}

// envTransformFunc transforms environment variable names to koanf paths.
//
// Examples:
//   - DATABASE_PATH          -> database.path
//   - DATABASE_MAX_MEMORY    -> database.max_memory
//   - FEED_MAX_QUEUE_SIZE    -> feed.max_queue_size
//   - QUEUE_SYNC_WRITES      -> queue.sync_writes
//   - LOG_LEVEL              -> logging.level
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	prefix, rest, found := strings.Cut(key, "_")
	if !found || rest == "" {
		return ""
	}

	section, ok := configSections[prefix]
	if !ok {
		return ""
	}

	return section + "." + rest
}
