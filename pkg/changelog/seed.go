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
	"encoding/binary"

	"github.com/good-night-oppie/scmcore/internal/util"
	"github.com/good-night-oppie/scmcore/pkg/types"
)

// Seed rebuilds the idmap and iddag from scratch by bulk-fetching every
// public changeset and persists a new Bundle pointing at the result.
// The new idmap_version is always one past whatever is already stored,
// so a concurrent on-demand build against the old version is never
// silently invalidated mid-flight (the cache layer's version check
// catches it instead).
func Seed(ctx context.Context, repoID string, bundles BundleStore, idmap IdMap, dag *IdDag, bulk ChangesetBulkFetch, group types.Group) (Bundle, error) {
	existing, ok, err := bundles.Get(ctx, repoID)
	if err != nil {
		return Bundle{}, err
	}
	version := uint64(1)
	if ok {
		version = existing.IdMapVersion + 1
	}

	recordsCh, errCh := bulk.StreamPublic(ctx)

	mem := NewMemIdMap()
	var dagEntries []VertexParents
	hashToVertex := make(map[types.Hash20]types.Vertex)

	next := group.MinID()
	for rec := range recordsCh {
		v := next
		next++
		mem.assign(v, rec.Hash)
		hashToVertex[rec.Hash] = v

		parentVertices := make([]types.Vertex, 0, len(rec.Parents))
		for _, p := range rec.Parents {
			if pv, ok := hashToVertex[p]; ok {
				parentVertices = append(parentVertices, pv)
			}
		}
		dagEntries = append(dagEntries, VertexParents{Vertex: v, Parents: parentVertices})
	}
	if err := <-errCh; err != nil {
		return Bundle{}, err
	}

	if err := UpdateIdMap(ctx, idmap, mem); err != nil {
		return Bundle{}, err
	}
	dag.SeedFull(dagEntries, group)

	blobHash := hashIddagSnapshot(mem)
	bundle := Bundle{IdMapVersion: version, IddagBlobHash: blobHash}
	if err := bundles.Put(ctx, repoID, bundle); err != nil {
		return Bundle{}, err
	}
	return bundle, nil
}

// hashIddagSnapshot derives a content hash for the iddag snapshot this
// seed produced, in (vertex, hash) assignment order. It reuses the
// manifest's simple directory-entry hash rule (plain SHA-1 over
// serialized bytes) since a bundle pointer is a content-addressed blob
// key like any other in this store.
func hashIddagSnapshot(mem *MemIdMap) types.Hash20 {
	entries := mem.Entries()
	buf := make([]byte, 0, len(entries)*28)
	var v [8]byte
	for _, e := range entries {
		binary.BigEndian.PutUint64(v[:], uint64(e.Vertex))
		buf = append(buf, v[:]...)
		buf = append(buf, e.Hash[:]...)
	}
	return util.HashDirectoryEntrySimple(buf)
}
