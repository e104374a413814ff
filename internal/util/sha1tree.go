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

package util

import (
	"crypto/sha1"

	"github.com/good-night-oppie/scmcore/pkg/types"
)

// HashDirectoryEntrySimple computes a directory's hash with no parent
// mixing: SHA-1 over the serialized Entry bytes alone. Used by Flush
// (spec §4.3, "this path uses the simple hash").
func HashDirectoryEntrySimple(entryBytes []byte) types.Hash20 {
	return types.Hash20(sha1.Sum(entryBytes))
}

// HashDirectoryEntryMerged computes a directory's hash mixing up to two
// parent directory hashes, per spec §3: SHA-1 over
// min(p1,p2) || max(p1,p2) || entryBytes. Missing parents default to the
// null hash; the min/max ordering is fixed regardless of whether either
// parent is null (spec is explicit that NULL is not special-cased in the
// ordering).
func HashDirectoryEntryMerged(p1, p2 types.Hash20, entryBytes []byte) types.Hash20 {
	lo, hi := types.MinMax20(p1, p2)
	h := sha1.New()
	h.Write(lo[:])
	h.Write(hi[:])
	h.Write(entryBytes)
	var out types.Hash20
	copy(out[:], h.Sum(nil))
	return out
}
