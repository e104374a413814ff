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

// Package l1cache is the hot tier in front of blobstore: a bounded,
// zstd-compressed, FIFO-evicted in-memory cache keyed by the legacy
// 20-byte blob hash used throughout the tree manifest and segmented
// changelog.
package l1cache

import (
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/good-night-oppie/scmcore/pkg/types"
)

// Cache is the hot-tier blob cache sitting in front of a blobstore.Store.
type Cache interface {
	Put(hash types.Hash20, raw []byte) (storedBytes int, compressed bool)
	Get(hash types.Hash20) (data []byte, ok bool)
	Stats() CacheStats
}

type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	SizeBytes uint64
	Items     uint64
}

type Config struct {
	CapacityBytes        int64 // <=0 disables the cache entirely
	CompressionThreshold int   // below threshold: store raw; <=0 means always try to compress
}

type entry struct {
	k          types.Hash20
	data       []byte // may be zstd-compressed
	rawSize    int
	compressed bool
}

type cache struct {
	mu        sync.Mutex
	capBytes  int64
	sizeBytes int64

	order   []types.Hash20
	entries map[types.Hash20]*entry

	enc       *zstd.Encoder
	dec       *zstd.Decoder
	encMu     sync.Mutex
	decMu     sync.Mutex
	threshold int

	stats CacheStats
}

// New builds a Cache. A CapacityBytes of zero returns a valid Cache that
// never stores anything, so callers never need to nil-check.
func New(cfg Config) (Cache, error) {
	if cfg.CapacityBytes < 0 {
		cfg.CapacityBytes = 0
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &cache{
		capBytes:  cfg.CapacityBytes,
		entries:   make(map[types.Hash20]*entry),
		order:     make([]types.Hash20, 0, 128),
		enc:       enc,
		dec:       dec,
		threshold: cfg.CompressionThreshold,
	}, nil
}

func (c *cache) Put(h types.Hash20, raw []byte) (int, bool) {
	if c.capBytes == 0 {
		return 0, false
	}
	var store []byte
	compressed := false

	if c.threshold <= 0 || len(raw) >= c.threshold {
		c.encMu.Lock()
		comp := c.enc.EncodeAll(raw, nil)
		c.encMu.Unlock()
		if len(comp) < len(raw) {
			store = comp
			compressed = true
		}
	}
	if store == nil {
		store = make([]byte, len(raw))
		copy(store, raw)
	}
	need := int64(len(store))
	if need > c.capBytes {
		return 0, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[h]; ok {
		c.sizeBytes -= int64(len(old.data))
		c.deleteFromOrder(h)
		delete(c.entries, h)
		c.stats.Items--
	}

	for c.sizeBytes+need > c.capBytes && len(c.order) > 0 {
		evictK := c.order[0]
		c.order = c.order[1:]
		if e := c.entries[evictK]; e != nil {
			c.sizeBytes -= int64(len(e.data))
			delete(c.entries, evictK)
			c.stats.Evictions++
			c.stats.Items--
		}
	}

	ent := &entry{k: h, data: store, rawSize: len(raw), compressed: compressed}
	c.entries[h] = ent
	c.order = append(c.order, h)
	c.sizeBytes += need
	c.stats.Items++
	c.stats.SizeBytes = uint64(c.sizeBytes)

	return len(store), compressed
}

func (c *cache) Get(h types.Hash20) ([]byte, bool) {
	if c.capBytes == 0 {
		return nil, false
	}

	c.mu.Lock()
	ent, ok := c.entries[h]
	if !ok {
		c.stats.Misses++
		c.mu.Unlock()
		return nil, false
	}

	data := make([]byte, len(ent.data))
	copy(data, ent.data)
	compressed := ent.compressed
	c.mu.Unlock()

	if compressed {
		c.decMu.Lock()
		dec, err := c.dec.DecodeAll(data, nil)
		c.decMu.Unlock()
		if err != nil {
			c.mu.Lock()
			if cur, exists := c.entries[h]; exists {
				c.sizeBytes -= int64(len(cur.data))
				c.deleteFromOrder(h)
				delete(c.entries, h)
				c.stats.Items--
				c.stats.SizeBytes = uint64(c.sizeBytes)
			}
			c.stats.Misses++
			c.mu.Unlock()
			return nil, false
		}
		c.mu.Lock()
		c.stats.Hits++
		c.mu.Unlock()
		return dec, true
	}

	c.mu.Lock()
	c.stats.Hits++
	c.mu.Unlock()
	return data, true
}

func (c *cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Hits:      c.stats.Hits,
		Misses:    c.stats.Misses,
		Evictions: c.stats.Evictions,
		SizeBytes: uint64(c.sizeBytes),
		Items:     c.stats.Items,
	}
}

func (c *cache) deleteFromOrder(h types.Hash20) {
	for i := range c.order {
		if c.order[i] == h {
			copy(c.order[i:], c.order[i+1:])
			c.order = c.order[:len(c.order)-1]
			return
		}
	}
}
