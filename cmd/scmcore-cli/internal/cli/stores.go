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

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/good-night-oppie/scmcore/internal/config"
	"github.com/good-night-oppie/scmcore/pkg/blobstore"
	"github.com/good-night-oppie/scmcore/pkg/changelog"
	scmcli "github.com/good-night-oppie/scmcore/pkg/cli"
	"github.com/good-night-oppie/scmcore/pkg/l1cache"
	"github.com/good-night-oppie/scmcore/pkg/manifest"
)

// openTreeStore builds the layered manifest.TreeStore named by cfg: a
// small l1cache hot tier in front of either a pebble or disk durable
// backend, matching the teacher's L1/L2 split. The returned closer must
// be closed by the caller once the command is done.
func openTreeStore(cfg config.Config) (manifest.TreeStore, func() error, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, nil, fmt.Errorf("getwd: %w", err)
	}
	dir, err := scmcli.ResolveStore(cwd, cfg)
	if err != nil {
		return nil, nil, err
	}

	var l2 blobstore.Store
	switch cfg.Storage.Driver {
	case "", "pebble":
		l2, err = blobstore.Open(dir, nil)
	case "disk":
		l2, err = blobstore.NewDiskStore(dir)
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	l1, err := l1cache.New(l1cache.Config{
		CapacityBytes:        cfg.Storage.L1CapacityBytes,
		CompressionThreshold: cfg.Storage.L1CompressionThreshold,
	})
	if err != nil {
		l2.Close()
		return nil, nil, fmt.Errorf("open l1 cache: %w", err)
	}

	store := manifest.NewStore(l1, l2)
	return store, l2.Close, nil
}

// openIdMap builds the changelog.IdMap named by cfg.Changelog. "mem" is
// process-local and never persists past one invocation — it exists so
// single-shot commands (seed, build-incremental against a synthetic
// bulk file) work without standing up pebble or MySQL.
func openIdMap(ctx context.Context, cfg config.Config) (changelog.IdMap, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Changelog.Driver {
	case "", "mem":
		return changelog.NewInMemoryIdMap(), noop, nil
	case "pebble":
		db, err := changelog.OpenPebbleIdMap(cfg.Changelog.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("open pebble idmap: %w", err)
		}
		return wrapCached(db, db.Close, cfg.Changelog.CacheSize)
	case "mysql":
		db, err := changelog.OpenSQLIdMap(ctx, cfg.Changelog.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open mysql idmap: %w", err)
		}
		return wrapCached(db, db.Close, cfg.Changelog.CacheSize)
	default:
		return nil, nil, fmt.Errorf("unknown changelog driver %q", cfg.Changelog.Driver)
	}
}

// wrapCached optionally layers a CachedIdMap in front of backend,
// keeping the same Close func regardless.
func wrapCached(backend changelog.IdMap, closeFn func() error, cacheSize int) (changelog.IdMap, func() error, error) {
	if cacheSize <= 0 {
		return backend, closeFn, nil
	}
	cached, err := changelog.NewCachedIdMap(backend, cacheSize)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("build cached idmap: %w", err)
	}
	return cached, closeFn, nil
}
