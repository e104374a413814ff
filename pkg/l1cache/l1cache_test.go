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

package l1cache_test

import (
	"bytes"
	"crypto/sha1"
	"sync"
	"testing"

	"github.com/good-night-oppie/scmcore/pkg/l1cache"
	"github.com/good-night-oppie/scmcore/pkg/types"
)

func hOf(b []byte) types.Hash20 {
	return types.Hash20(sha1.Sum(b))
}

func TestPutGet_HitAndMiss(t *testing.T) {
	c, err := l1cache.New(l1cache.Config{
		CapacityBytes:        1 << 20,
		CompressionThreshold: 256,
	})
	if err != nil {
		t.Fatal(err)
	}
	raw := []byte("hello world")
	h := hOf(raw)

	stored, compressed := c.Put(h, raw)
	if stored == 0 {
		t.Fatalf("expected store > 0")
	}
	got, ok := c.Get(h)
	if !ok || !bytes.Equal(got, raw) {
		t.Fatalf("cache get mismatch: ok=%v", ok)
	}

	other := hOf([]byte("other"))
	if _, ok := c.Get(other); ok {
		t.Fatalf("expected miss")
	}

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 {
		t.Fatalf("stats mismatch hits=%d misses=%d", s.Hits, s.Misses)
	}
	_ = compressed
}

func TestCapacityAndEviction_FIFO(t *testing.T) {
	c, _ := l1cache.New(l1cache.Config{
		CapacityBytes:        200,
		CompressionThreshold: 100000, // effectively disables compression
	})

	a := bytes.Repeat([]byte("A"), 120)
	b := bytes.Repeat([]byte("B"), 120)
	ha := hOf(a)
	hb := hOf(b)

	c.Put(ha, a)
	c.Put(hb, b) // must evict A to make room (FIFO)

	if _, ok := c.Get(ha); ok {
		t.Fatalf("expected A evicted")
	}
	if got, ok := c.Get(hb); !ok || !bytes.Equal(got, b) {
		t.Fatalf("B should exist")
	}
	s := c.Stats()
	if s.Evictions < 1 {
		t.Fatalf("expect at least 1 eviction, got %d", s.Evictions)
	}
	if s.Items != 1 {
		t.Fatalf("items=1 after eviction, got %d", s.Items)
	}
}

func TestCompressionThreshold(t *testing.T) {
	c, _ := l1cache.New(l1cache.Config{
		CapacityBytes:        4 << 20,
		CompressionThreshold: 256,
	})
	small := []byte("tiny-object")
	hs := hOf(small)
	storedSmall, compressedSmall := c.Put(hs, small)
	if compressedSmall {
		t.Fatalf("small should not be compressed")
	}
	if storedSmall != len(small) {
		t.Fatalf("storedSmall=%d != raw=%d", storedSmall, len(small))
	}

	large := bytes.Repeat([]byte("Z"), 4096)
	hl := hOf(large)
	storedLarge, compressedLarge := c.Put(hl, large)
	if !compressedLarge {
		t.Fatalf("large should be compressed")
	}
	if storedLarge >= len(large) {
		t.Fatalf("compressed size should be smaller; stored=%d raw=%d", storedLarge, len(large))
	}
}

func TestStatsFields(t *testing.T) {
	c, _ := l1cache.New(l1cache.Config{
		CapacityBytes:        1 << 20,
		CompressionThreshold: 0,
	})
	d1 := []byte("d1")
	h1 := hOf(d1)
	c.Put(h1, d1)
	c.Get(h1)
	c.Get(hOf([]byte("miss")))
	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Items != 1 || st.SizeBytes == 0 {
		t.Fatalf("stats unexpected: %+v", st)
	}
}

func TestDisabledCache(t *testing.T) {
	c, err := l1cache.New(l1cache.Config{
		CapacityBytes:        0,
		CompressionThreshold: 256,
	})
	if err != nil {
		t.Fatal(err)
	}

	raw := []byte("test data")
	h := hOf(raw)

	stored, compressed := c.Put(h, raw)
	if stored != 0 || compressed {
		t.Fatalf("disabled cache should not store: stored=%d, compressed=%v", stored, compressed)
	}

	if _, ok := c.Get(h); ok {
		t.Fatalf("disabled cache should not have data")
	}

	stats := c.Stats()
	if stats.Hits != 0 || stats.Misses != 0 || stats.Items != 0 {
		t.Fatalf("disabled cache should have zero stats: %+v", stats)
	}
}

func TestNegativeCapacity(t *testing.T) {
	c, err := l1cache.New(l1cache.Config{
		CapacityBytes:        -100,
		CompressionThreshold: 256,
	})
	if err != nil {
		t.Fatal(err)
	}

	raw := []byte("test")
	h := hOf(raw)
	stored, _ := c.Put(h, raw)
	if stored != 0 {
		t.Fatalf("negative capacity should be treated as disabled")
	}
}

func TestReplaceExistingEntry(t *testing.T) {
	c, err := l1cache.New(l1cache.Config{
		CapacityBytes:        1000,
		CompressionThreshold: 1000,
	})
	if err != nil {
		t.Fatal(err)
	}

	raw1 := []byte("first version")
	raw2 := []byte("second version updated")
	h := hOf(raw1) // deliberately reuse the same key to exercise the replace path

	stored1, _ := c.Put(h, raw1)
	if stored1 == 0 {
		t.Fatal("should store first version")
	}

	stored2, _ := c.Put(h, raw2)
	if stored2 == 0 {
		t.Fatal("should store second version")
	}

	got, ok := c.Get(h)
	if !ok || !bytes.Equal(got, raw2) {
		t.Fatalf("should get second version: ok=%v, got=%s", ok, got)
	}

	stats := c.Stats()
	if stats.Items != 1 {
		t.Fatalf("should have 1 item after replace, got %d", stats.Items)
	}
}

func TestObjectLargerThanCapacity(t *testing.T) {
	c, err := l1cache.New(l1cache.Config{
		CapacityBytes:        100,
		CompressionThreshold: 10000,
	})
	if err != nil {
		t.Fatal(err)
	}

	huge := bytes.Repeat([]byte("X"), 200)
	h := hOf(huge)

	stored, compressed := c.Put(h, huge)
	if stored != 0 || compressed {
		t.Fatalf("should not cache object larger than capacity: stored=%d", stored)
	}

	if _, ok := c.Get(h); ok {
		t.Fatal("should not find huge object")
	}
}

func TestAlwaysCompress(t *testing.T) {
	c, err := l1cache.New(l1cache.Config{
		CapacityBytes:        1 << 20,
		CompressionThreshold: -1,
	})
	if err != nil {
		t.Fatal(err)
	}

	tiny := []byte("x")
	h := hOf(tiny)

	stored, _ := c.Put(h, tiny)
	if stored == 0 {
		t.Fatal("should store tiny data")
	}

	got, ok := c.Get(h)
	if !ok || !bytes.Equal(got, tiny) {
		t.Fatalf("should retrieve tiny data: ok=%v", ok)
	}
}

func TestConcurrentAccess(t *testing.T) {
	c, err := l1cache.New(l1cache.Config{CapacityBytes: 1 << 20, CompressionThreshold: -1})
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	raw := bytes.Repeat([]byte("x"), 1024)
	h := hOf(raw)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Put(h, raw)
		}()
		go func() {
			defer wg.Done()
			c.Get(h)
		}()
	}
	wg.Wait()
}
