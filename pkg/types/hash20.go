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

package types

import (
	"encoding/hex"
	"fmt"
)

// Hash20 is an opaque 20-byte identifier, the wire-compatible shape of the
// manifest's legacy directory/file hash (SHA-1-sized, per spec).
type Hash20 [20]byte

// NullHash20 is the zero-value 20-byte identifier used as a parent-hash
// placeholder when fewer than two parents are active.
var NullHash20 Hash20

func (h Hash20) IsNull() bool {
	return h == NullHash20
}

func (h Hash20) String() string {
	return hex.EncodeToString(h[:])
}

// ParseHash20 decodes a 40-character hex string into a Hash20.
func ParseHash20(s string) (Hash20, error) {
	var h Hash20
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("parse hash20: %w", err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("parse hash20: want %d bytes, got %d", len(h), len(b))
	}
	copy(h[:], b)
	return h, nil
}

// MinMax20 returns (min, max) of a and b using byte-lexicographic order. This
// is the fixed ordering rule used when mixing parent directory hashes into
// a directory's content hash (spec §3): the ordering is applied regardless
// of whether either side is the null hash.
func MinMax20(a, b Hash20) (Hash20, Hash20) {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return a, b
			}
			return b, a
		}
	}
	return a, b
}
