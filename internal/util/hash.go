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
	"github.com/good-night-oppie/scmcore/pkg/types"
	"lukechampine.com/blake3"
)

// HashFileContent derives a file blob's Hash20 from its raw bytes. The
// manifest's directory hash is pinned to the legacy SHA-1 rule (see
// sha1tree.go) because the wire format it produces must stay
// byte-compatible with existing on-disk trees, but nothing constrains
// how a *file's* content hash is computed before it ever reaches a
// FileMetadata.Node field — so file blobs get the faster, modern digest
// the CAS layer this module grew out of used, truncated to the opaque
// 20-byte width every Hash20 carries.
func HashFileContent(content []byte) types.Hash20 {
	sum := blake3.Sum256(content)
	var h types.Hash20
	copy(h[:], sum[:len(h)])
	return h
}
