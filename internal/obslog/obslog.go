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

// Package obslog provides the process-wide structured logger used across
// scmcore. It mirrors the default-stderr-logger pattern of the CAS layer
// this module grew out of: every package takes an optional *slog.Logger
// and falls back to this singleton instead of rolling its own.
package obslog

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	once    sync.Once
	current *slog.Logger
)

// Default returns the process-wide logger, initializing it on first use
// to a text handler on stderr at warn level (only warn and above by
// default, matching the BLAKE3Store default).
func Default() *slog.Logger {
	once.Do(func() {
		current = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelWarn,
		}))
	})
	return current
}

// SetDefault replaces the process-wide logger. Intended for cmd/ entry
// points that configure logging from parsed flags/config before any
// package calls Default().
func SetDefault(l *slog.Logger) {
	once.Do(func() {})
	current = l
}

// ParseLevel maps a config string ("debug", "info", "warn", "error") to
// a slog.Level, defaulting to Warn for an unrecognized value.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Or returns l if non-nil, otherwise the process-wide default. Packages
// that accept an optional *slog.Logger option call this once at
// construction time rather than checking for nil on every log line.
func Or(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return Default()
}
