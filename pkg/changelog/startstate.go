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

import "github.com/good-night-oppie/scmcore/pkg/types"

// StartState is the scratch ancestry snapshot build_incremental
// populates during its BFS: every commit's parents (as discovered from
// the changeset fetcher) and, for commits already present in the
// persistent IdMap, their existing vertex assignment. assign_ids reads
// only from this structure, never touching the network or the IdMap
// directly, which is what lets it run as a pure, synchronous traversal.
type StartState struct {
	Parents     map[types.Hash20][]types.Hash20
	Assignments map[types.Hash20]types.Vertex
}

// NewStartState returns an empty StartState.
func NewStartState() *StartState {
	return &StartState{
		Parents:     make(map[types.Hash20][]types.Hash20),
		Assignments: make(map[types.Hash20]types.Vertex),
	}
}

// RecordParents notes h's parents as discovered during the BFS.
func (s *StartState) RecordParents(h types.Hash20, parents []types.Hash20) {
	s.Parents[h] = parents
}

// RecordAssignment notes h's pre-existing vertex, for a commit the BFS
// found was already present in the persistent IdMap.
func (s *StartState) RecordAssignment(h types.Hash20, v types.Vertex) {
	s.Assignments[h] = v
}

// Assigned reports h's pre-existing vertex, if any.
func (s *StartState) Assigned(h types.Hash20) (types.Vertex, bool) {
	v, ok := s.Assignments[h]
	return v, ok
}

// ParentsOf returns h's recorded parents and whether they were recorded
// at all (false means the BFS never visited h).
func (s *StartState) ParentsOf(h types.Hash20) ([]types.Hash20, bool) {
	p, ok := s.Parents[h]
	return p, ok
}
