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

package l1cache

import (
	"bytes"
	"crypto/sha1"
	"testing"

	"github.com/good-night-oppie/scmcore/pkg/types"
)

func hOf(b []byte) types.Hash20 {
	return types.Hash20(sha1.Sum(b))
}

func TestEvictOnDecompressionFailure(t *testing.T) {
	cIface, err := New(Config{CapacityBytes: 1 << 20, CompressionThreshold: -1})
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	c := cIface.(*cache)
	raw := bytes.Repeat([]byte("a"), 1024)
	h := hOf(raw)
	c.Put(h, raw)

	c.mu.Lock()
	if ent, ok := c.entries[h]; ok {
		ent.data[0] ^= 0xff
	}
	c.mu.Unlock()

	if _, ok := c.Get(h); ok {
		t.Fatalf("expected get to fail")
	}
	if s := c.Stats(); s.Misses != 1 || s.Items != 0 {
		t.Fatalf("unexpected stats after failure: %+v", s)
	}
	if _, ok := c.Get(h); ok {
		t.Fatalf("entry should be evicted")
	}
	if s := c.Stats(); s.Misses != 2 {
		t.Fatalf("misses should increment on subsequent miss, got %+v", s)
	}
}
