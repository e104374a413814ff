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
	"sync"

	"github.com/good-night-oppie/scmcore/pkg/types"
)

// IdDag indexes the vertex-id graph into segments so that ancestry
// queries do not need to re-walk the full changeset history. This
// in-memory volatile form tracks exactly the facts build_incremental
// depends on (next_free_id, contains_id, parent edges); a disk-backed
// segment format is out of scope here and is rebuilt from the IdMap on
// restart per spec §5.
type IdDag struct {
	mu        sync.Mutex
	nextFree  map[types.Group]types.Vertex
	known     map[types.Vertex]struct{}
	parentsOf map[types.Vertex][]types.Vertex
}

// NewIdDag returns an empty IdDag.
func NewIdDag() *IdDag {
	return &IdDag{
		nextFree:  make(map[types.Group]types.Vertex),
		known:     make(map[types.Vertex]struct{}),
		parentsOf: make(map[types.Vertex][]types.Vertex),
	}
}

// NextFreeID returns the smallest unused vertex id at or above low
// within group.
func (d *IdDag) NextFreeID(low types.Vertex, group types.Group) types.Vertex {
	d.mu.Lock()
	defer d.mu.Unlock()
	next, ok := d.nextFree[group]
	if !ok {
		next = group.MinID()
	}
	if next < low {
		next = low
	}
	return next
}

// ContainsID reports whether v has already been built into a segment.
func (d *IdDag) ContainsID(v types.Vertex) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.known[v]
	return ok
}

// VertexParents is one fully-resolved (vertex, parent vertices) row,
// used by SeedFull to bulk-populate the dag without walking segment by
// segment.
type VertexParents struct {
	Vertex  types.Vertex
	Parents []types.Vertex
}

// SeedFull populates the dag directly from a complete set of
// (vertex, parent vertices) rows built from a full changeset history.
// Unlike BuildSegmentsVolatile, it does no incremental frontier
// tracking: Seed already has every commit in topological order, so
// there is nothing to walk.
func (d *IdDag) SeedFull(entries []VertexParents, group types.Group) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var maxV types.Vertex
	first := true
	for _, e := range entries {
		d.known[e.Vertex] = struct{}{}
		d.parentsOf[e.Vertex] = e.Parents
		if first || e.Vertex > maxV {
			maxV = e.Vertex
			first = false
		}
	}
	if !first {
		if cur, ok := d.nextFree[group]; !ok || maxV+1 > cur {
			d.nextFree[group] = maxV + 1
		}
	}
}

// ParentsFunc resolves a vertex's parent vertices, consulting the
// in-progress MemIdMap before the already-persisted StartState
// assignments (spec §4.7).
type ParentsFunc func(v types.Vertex) ([]types.Vertex, error)

// BuildSegmentsVolatile extends the dag from headVertex down through
// parentsFn until every ancestor is already known, recording each new
// vertex's parent edges and advancing the group's next_free_id past
// headVertex.
func (d *IdDag) BuildSegmentsVolatile(headVertex types.Vertex, group types.Group, parentsFn ParentsFunc) error {
	d.mu.Lock()
	stack := []types.Vertex{headVertex}
	visited := make(map[types.Vertex]bool)
	d.mu.Unlock()

	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[v] {
			continue
		}
		visited[v] = true

		d.mu.Lock()
		_, already := d.known[v]
		d.mu.Unlock()
		if already {
			continue
		}

		parents, err := parentsFn(v)
		if err != nil {
			return err
		}

		d.mu.Lock()
		d.known[v] = struct{}{}
		d.parentsOf[v] = parents
		d.mu.Unlock()

		stack = append(stack, parents...)
	}

	d.mu.Lock()
	if cur, ok := d.nextFree[group]; !ok || headVertex+1 > cur {
		d.nextFree[group] = headVertex + 1
	}
	d.mu.Unlock()
	return nil
}
