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

package changelog

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/good-night-oppie/scmcore/pkg/types"
)

// CachedIdMap layers an in-memory LRU of recent hash<->vertex lookups in
// front of a persistent IdMap (spec §5: "id-map caches may be layered").
// The cache is invalidated wholesale whenever the caller observes a new
// idmap_version, since a version bump means a reseed may have changed
// historical assignments.
type CachedIdMap struct {
	backend IdMap

	mu       sync.Mutex
	version  uint64
	byHash   *lru.Cache[types.Hash20, types.Vertex]
	byVertex *lru.Cache[types.Vertex, types.Hash20]
}

// NewCachedIdMap wraps backend with an LRU of the given capacity (applied independently to each lookup direction).
func NewCachedIdMap(backend IdMap, capacity int) (*CachedIdMap, error) {
	byHash, err := lru.New[types.Hash20, types.Vertex](capacity)
	if err != nil {
		return nil, err
	}
	byVertex, err := lru.New[types.Vertex, types.Hash20](capacity)
	if err != nil {
		return nil, err
	}
	return &CachedIdMap{backend: backend, byHash: byHash, byVertex: byVertex}, nil
}

// InvalidateOnVersionChange purges both caches if version differs from
// the last version observed by this cache.
func (c *CachedIdMap) InvalidateOnVersionChange(version uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if version == c.version {
		return
	}
	c.version = version
	c.byHash.Purge()
	c.byVertex.Purge()
}

func (c *CachedIdMap) InsertMany(ctx context.Context, entries []VertexHash) error {
	if err := c.backend.InsertMany(ctx, entries); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range entries {
		c.byHash.Add(e.Hash, e.Vertex)
		c.byVertex.Add(e.Vertex, e.Hash)
	}
	return nil
}

func (c *CachedIdMap) FindVertex(ctx context.Context, hash types.Hash20) (types.Vertex, bool, error) {
	c.mu.Lock()
	if v, ok := c.byHash.Get(hash); ok {
		c.mu.Unlock()
		return v, true, nil
	}
	c.mu.Unlock()

	v, ok, err := c.backend.FindVertex(ctx, hash)
	if err != nil || !ok {
		return v, ok, err
	}
	c.mu.Lock()
	c.byHash.Add(hash, v)
	c.byVertex.Add(v, hash)
	c.mu.Unlock()
	return v, true, nil
}

func (c *CachedIdMap) GetVertex(ctx context.Context, hash types.Hash20) (types.Vertex, error) {
	return c.backend.GetVertex(ctx, hash)
}

func (c *CachedIdMap) FindChangeset(ctx context.Context, v types.Vertex) (types.Hash20, bool, error) {
	c.mu.Lock()
	if h, ok := c.byVertex.Get(v); ok {
		c.mu.Unlock()
		return h, true, nil
	}
	c.mu.Unlock()

	h, ok, err := c.backend.FindChangeset(ctx, v)
	if err != nil || !ok {
		return h, ok, err
	}
	c.mu.Lock()
	c.byHash.Add(h, v)
	c.byVertex.Add(v, h)
	c.mu.Unlock()
	return h, true, nil
}

func (c *CachedIdMap) GetLastEntry(ctx context.Context) (types.Vertex, types.Hash20, bool, error) {
	return c.backend.GetLastEntry(ctx)
}
