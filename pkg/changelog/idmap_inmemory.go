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

	"github.com/good-night-oppie/scmcore/pkg/scmerrors"
	"github.com/good-night-oppie/scmcore/pkg/types"
)

// InMemoryIdMap is a process-local IdMap backed by plain maps, for
// single-process deployments and CLI invocations that don't warrant
// standing up pebble or MySQL. State is lost on process exit.
type InMemoryIdMap struct {
	mu       sync.Mutex
	byHash   map[types.Hash20]types.Vertex
	byVertex map[types.Vertex]types.Hash20
	last     types.Vertex
	hasLast  bool
}

// NewInMemoryIdMap returns an empty InMemoryIdMap.
func NewInMemoryIdMap() *InMemoryIdMap {
	return &InMemoryIdMap{
		byHash:   make(map[types.Hash20]types.Vertex),
		byVertex: make(map[types.Vertex]types.Hash20),
	}
}

func (m *InMemoryIdMap) InsertMany(_ context.Context, entries []VertexHash) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		if existing, ok := m.byVertex[e.Vertex]; ok && existing != e.Hash {
			return scmerrors.IdMapCollisionError{Vertex: uint64(e.Vertex), Hash: e.Hash.String(), Existing: existing.String()}
		}
		m.byHash[e.Hash] = e.Vertex
		m.byVertex[e.Vertex] = e.Hash
		if !m.hasLast || e.Vertex > m.last {
			m.last = e.Vertex
			m.hasLast = true
		}
	}
	return nil
}

func (m *InMemoryIdMap) FindVertex(_ context.Context, hash types.Hash20) (types.Vertex, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.byHash[hash]
	return v, ok, nil
}

func (m *InMemoryIdMap) GetVertex(ctx context.Context, hash types.Hash20) (types.Vertex, error) {
	v, ok, err := m.FindVertex(ctx, hash)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, scmerrors.BlobNotFoundError{Path: "idmap", Hash: hash.String()}
	}
	return v, nil
}

func (m *InMemoryIdMap) FindChangeset(_ context.Context, v types.Vertex) (types.Hash20, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.byVertex[v]
	return h, ok, nil
}

func (m *InMemoryIdMap) GetLastEntry(_ context.Context) (types.Vertex, types.Hash20, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasLast {
		return 0, types.Hash20{}, false, nil
	}
	return m.last, m.byVertex[m.last], true, nil
}
