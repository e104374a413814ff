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
	"fmt"
	"sync"

	"github.com/good-night-oppie/scmcore/internal/obslog"
	"github.com/good-night-oppie/scmcore/pkg/scmerrors"
	"github.com/good-night-oppie/scmcore/pkg/types"
)

// UpdateIdMap inserts every newly assigned commit into the persistent
// IdMap in a single batch.
func UpdateIdMap(ctx context.Context, idmap IdMap, mem *MemIdMap) error {
	return idmap.InsertMany(ctx, mem.Entries())
}

// UpdateIddag builds segments for the commits assigned this round.
// parents are resolved by consulting mem first, falling back to the
// already-persisted assignments in start (spec §4.7).
func UpdateIddag(dag *IdDag, headVertex types.Vertex, group types.Group, mem *MemIdMap, start *StartState) error {
	hashOf := func(v types.Vertex) (types.Hash20, bool) {
		if h, ok := mem.Hash(v); ok {
			return h, true
		}
		for h, sv := range start.Assignments {
			if sv == v {
				return h, true
			}
		}
		return types.Hash20{}, false
	}
	vertexOf := func(h types.Hash20) (types.Vertex, bool) {
		if v, ok := mem.Vertex(h); ok {
			return v, true
		}
		return start.Assigned(h)
	}

	parentsFn := func(v types.Vertex) ([]types.Vertex, error) {
		h, ok := hashOf(v)
		if !ok {
			return nil, scmerrors.DagBackendError{Err: fmt.Errorf("update_iddag: no hash known for vertex %d", v)}
		}
		parentHashes, ok := start.ParentsOf(h)
		if !ok {
			return nil, scmerrors.DagBackendError{Err: fmt.Errorf("update_iddag: no parents recorded for %s", h)}
		}
		out := make([]types.Vertex, 0, len(parentHashes))
		for _, ph := range parentHashes {
			pv, ok := vertexOf(ph)
			if !ok {
				return nil, scmerrors.DagBackendError{Err: fmt.Errorf("update_iddag: no vertex known for parent %s", ph)}
			}
			out = append(out, pv)
		}
		return out, nil
	}

	return dag.BuildSegmentsVolatile(headVertex, group, parentsFn)
}

type bfsResult struct {
	hash     types.Hash20
	parents  []types.Hash20
	vertex   types.Vertex
	assigned bool
	err      error
}

func fetchBFSNode(ctx context.Context, fetcher ChangesetFetcher, idmap IdMap, h types.Hash20) bfsResult {
	var parents []types.Hash20
	var vertex types.Vertex
	var assigned bool
	var perr, verr error

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		parents, perr = fetcher.GetParents(ctx, h)
	}()
	go func() {
		defer wg.Done()
		vertex, assigned, verr = idmap.FindVertex(ctx, h)
	}()
	wg.Wait()

	err := perr
	if err == nil {
		err = verr
	}
	return bfsResult{hash: h, parents: parents, vertex: vertex, assigned: assigned, err: err}
}

// PrepareIncrementalIddagUpdate runs the BFS of spec §4.8 step 3: it
// walks ancestors of head, fetching (parents, vertex_for_hash) for each
// commit concurrently but consuming results in enqueue order (an
// ordered futures queue), stopping descent past any commit already
// fully built into the iddag. It returns the populated StartState and
// whether head itself was already assigned.
func PrepareIncrementalIddagUpdate(ctx context.Context, idmap IdMap, dag *IdDag, fetcher ChangesetFetcher, head types.Hash20) (*StartState, bool, error) {
	start := NewStartState()

	type queued struct {
		hash     types.Hash20
		resultCh chan bfsResult
	}
	var queue []queued
	enqueue := func(h types.Hash20) {
		ch := make(chan bfsResult, 1)
		go func() { ch <- fetchBFSNode(ctx, fetcher, idmap, h) }()
		queue = append(queue, queued{hash: h, resultCh: ch})
	}

	seenBFS := map[types.Hash20]bool{head: true}
	enqueue(head)

	headAssigned := false
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case res := <-item.resultCh:
			if res.err != nil {
				return nil, false, res.err
			}
			start.RecordParents(res.hash, res.parents)

			stopDescending := false
			if res.assigned {
				start.RecordAssignment(res.hash, res.vertex)
				if res.hash == head {
					headAssigned = true
				}
				if dag.ContainsID(res.vertex) {
					stopDescending = true
				}
			}
			if !stopDescending {
				for _, p := range res.parents {
					if seenBFS[p] {
						continue
					}
					seenBFS[p] = true
					enqueue(p)
				}
			}
		}
	}

	return start, headAssigned, nil
}

// BuildIncremental is the full incremental-build path of spec §4.8: it
// reads the iddag/idmap frontier, runs the ordered BFS, and — unless
// both counters already agree and head is assigned (a no-op) — assigns
// vertices to every newly discovered commit and persists both the
// idmap and the iddag segments.
func BuildIncremental(ctx context.Context, idmap IdMap, dag *IdDag, fetcher ChangesetFetcher, head types.Hash20, group types.Group) (types.Vertex, error) {
	idDagNextID := dag.NextFreeID(0, group)

	lastVertex, _, hasLast, err := idmap.GetLastEntry(ctx)
	if err != nil {
		return 0, err
	}
	idMapNextID := group.MinID()
	if hasLast {
		idMapNextID = lastVertex + 1
	}

	if idDagNextID > idMapNextID {
		return 0, scmerrors.InvariantViolatedError{Msg: fmt.Sprintf(
			"build_incremental: iddag_next_id (%d) > idmap_next_id (%d); idmap has fallen behind, reseed required",
			idDagNextID, idMapNextID)}
	}
	if idDagNextID < idMapNextID {
		obslog.Default().Warn("changelog: iddag lags idmap, continuing build", "iddag_next_id", idDagNextID, "idmap_next_id", idMapNextID)
	}

	start, headAssigned, err := PrepareIncrementalIddagUpdate(ctx, idmap, dag, fetcher, head)
	if err != nil {
		return 0, err
	}

	if idDagNextID == idMapNextID && headAssigned {
		v, _ := start.Assigned(head)
		return v, nil
	}

	mem, err := AssignIDs(start, head, idMapNextID)
	if err != nil {
		return 0, err
	}

	if err := UpdateIdMap(ctx, idmap, mem); err != nil {
		return 0, err
	}

	headVertex, ok := mem.Vertex(head)
	if !ok {
		headVertex, ok = start.Assigned(head)
		if !ok {
			return 0, scmerrors.InvariantViolatedError{Msg: "build_incremental: head vertex missing after assignment"}
		}
	}

	if err := UpdateIddag(dag, headVertex, group, mem, start); err != nil {
		return 0, err
	}

	return headVertex, nil
}

// OnDemandUpdate answers a vertex lookup for hash, running an
// incremental build first if the idmap doesn't already know it.
func OnDemandUpdate(ctx context.Context, idmap IdMap, dag *IdDag, fetcher ChangesetFetcher, hash types.Hash20, group types.Group) (types.Vertex, error) {
	if v, ok, err := idmap.FindVertex(ctx, hash); err != nil {
		return 0, err
	} else if ok {
		return v, nil
	}
	return BuildIncremental(ctx, idmap, dag, fetcher, hash, group)
}
