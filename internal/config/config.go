// Copyright 2025 Oppie Thunder Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the scmcore-cli's YAML configuration, following
// the registry's versioned-configuration pattern: a struct decoded with
// gopkg.in/yaml.v3, with environment variables able to override a
// handful of deployment-specific fields after the file is parsed.
//
// Note that yaml field names should never include _ characters, since
// that is the separator used in the environment variable names below.
package config

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Version is the config schema version. Only "0.1" is recognized today;
// unknown versions fail to parse rather than silently falling back to
// defaults.
type Version string

const CurrentVersion Version = "0.1"

// Storage configures the blob backend a TreeStore is built on.
type Storage struct {
	// Dir is the on-disk path for the durable L2 blob store (pebble or
	// the embeddable disk store). Overridden by SCMCORE_STORE_DIR.
	Dir string `yaml:"dir"`

	// Driver selects the durable backend: "pebble" (default) or "disk".
	Driver string `yaml:"driver"`

	// L1CapacityBytes bounds the in-memory hot-tier cache.
	L1CapacityBytes int64 `yaml:"l1capacitybytes"`

	// L1CompressionThreshold is the minimum blob size, in bytes, that
	// the hot tier bothers compressing before caching.
	L1CompressionThreshold int `yaml:"l1compressionthreshold"`
}

// Changelog configures the idmap/iddag backend used to resolve
// changeset vertex ids.
type Changelog struct {
	// Driver selects the persistent IdMap backend: "pebble", "mysql", or
	// "mem" (a process-local map, for single-shot CLI invocations).
	Driver string `yaml:"driver"`

	// Dir is the pebble IdMap directory, used when Driver == "pebble".
	Dir string `yaml:"dir"`

	// DSN is the MySQL data source name, used when Driver == "mysql".
	// Overridden by SCMCORE_CHANGELOG_DSN so credentials never need to
	// live in a checked-in config file.
	DSN string `yaml:"dsn"`

	// CacheSize bounds the CachedIdMap's two LRU caches (vertex->hash
	// and hash->vertex). Zero disables caching.
	CacheSize int `yaml:"cachesize"`
}

// Log mirrors the registry's logging knobs, trimmed to what
// internal/obslog actually consults.
type Log struct {
	Level string `yaml:"level"`
}

// Config is the top-level scmcore-cli configuration, intended to be
// provided by a YAML file and optionally overridden by environment
// variables.
type Config struct {
	Version   Version   `yaml:"version"`
	Log       Log       `yaml:"log"`
	Storage   Storage   `yaml:"storage"`
	Changelog Changelog `yaml:"changelog"`
}

// Default returns the configuration used when no file is supplied: a
// pebble store under ./.scmcore/objects and a process-local idmap,
// suitable for local CLI use.
func Default() Config {
	return Config{
		Version: CurrentVersion,
		Log:     Log{Level: "warn"},
		Storage: Storage{
			Dir:                    ".scmcore/objects",
			Driver:                 "pebble",
			L1CapacityBytes:        8 << 20,
			L1CompressionThreshold: 256,
		},
		Changelog: Changelog{
			Driver:    "mem",
			Dir:       ".scmcore/idmap",
			CacheSize: 4096,
		},
	}
}

// Load reads and parses a YAML config file, then applies environment
// overrides. A missing path is not an error: Load returns Default()
// with overrides applied, so scmcore-cli works with zero configuration.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return applyEnv(cfg), nil
			}
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
		if cfg.Version != CurrentVersion {
			return Config{}, fmt.Errorf("config: unsupported version %q (want %q)", cfg.Version, CurrentVersion)
		}
	}
	return applyEnv(cfg), nil
}

func applyEnv(cfg Config) Config {
	if v := os.Getenv("SCMCORE_STORE_DIR"); v != "" {
		cfg.Storage.Dir = v
	}
	if v := os.Getenv("SCMCORE_CHANGELOG_DSN"); v != "" {
		cfg.Changelog.DSN = v
	}
	if v := os.Getenv("SCMCORE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return cfg
}

var (
	once    sync.Once
	current Config
)

// Singleton lazily loads the config named by SCMCORE_CONFIG (or the
// local defaults, if unset) exactly once per process, for callers that
// don't otherwise thread a Config through.
func Singleton() Config {
	once.Do(func() {
		cfg, err := Load(os.Getenv("SCMCORE_CONFIG"))
		if err != nil {
			// A malformed explicit config file is a startup error the
			// caller should have surfaced via Load directly; callers
			// that reach for the singleton accept best-effort defaults.
			cfg = Default()
		}
		current = cfg
	})
	return current
}
