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

// Package changelog implements the segmented changelog: a persistent
// commit-hash-to-vertex-id mapping (IdMap) plus a DAG segment index
// (IdDag) that together let the id-graph be queried and walked without
// re-fetching ancestry from the changeset source on every lookup.
package changelog

import (
	"context"

	"github.com/good-night-oppie/scmcore/pkg/types"
)

// VertexHash is one (vertex, hash) row.
type VertexHash struct {
	Vertex types.Vertex
	Hash   types.Hash20
}

// IdMap is the persistent commit-hash <-> vertex-id mapping (spec §6).
type IdMap interface {
	InsertMany(ctx context.Context, entries []VertexHash) error
	FindVertex(ctx context.Context, hash types.Hash20) (types.Vertex, bool, error)
	GetVertex(ctx context.Context, hash types.Hash20) (types.Vertex, error)
	FindChangeset(ctx context.Context, v types.Vertex) (types.Hash20, bool, error)
	GetLastEntry(ctx context.Context) (types.Vertex, types.Hash20, bool, error)
}

// MemIdMap is the output of assign_ids: exactly the commits newly
// assigned during one traversal, held in memory until update_idmap
// flushes it into the persistent IdMap in a single batch.
type MemIdMap struct {
	byHash   map[types.Hash20]types.Vertex
	byVertex map[types.Vertex]types.Hash20
	order    []VertexHash // insertion order, preserved for deterministic batch writes
}

// NewMemIdMap returns an empty MemIdMap.
func NewMemIdMap() *MemIdMap {
	return &MemIdMap{
		byHash:   make(map[types.Hash20]types.Vertex),
		byVertex: make(map[types.Vertex]types.Hash20),
	}
}

func (m *MemIdMap) assign(v types.Vertex, h types.Hash20) {
	m.byHash[h] = v
	m.byVertex[v] = h
	m.order = append(m.order, VertexHash{Vertex: v, Hash: h})
}

// Vertex looks up a hash assigned during this traversal only.
func (m *MemIdMap) Vertex(h types.Hash20) (types.Vertex, bool) {
	v, ok := m.byHash[h]
	return v, ok
}

// Hash looks up a vertex assigned during this traversal only.
func (m *MemIdMap) Hash(v types.Vertex) (types.Hash20, bool) {
	h, ok := m.byVertex[v]
	return h, ok
}

// Len reports how many commits were newly assigned.
func (m *MemIdMap) Len() int { return len(m.order) }

// Entries returns the newly assigned (vertex, hash) rows in assignment
// order, ready for a single persistent-IdMap batch insert.
func (m *MemIdMap) Entries() []VertexHash {
	out := make([]VertexHash, len(m.order))
	copy(out, m.order)
	return out
}
