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
	"fmt"

	"github.com/good-night-oppie/scmcore/pkg/scmerrors"
	"github.com/good-night-oppie/scmcore/pkg/types"
)

type assignStackTag int

const (
	visitTag assignStackTag = iota
	assignTag
)

type assignStackItem struct {
	tag  assignStackTag
	hash types.Hash20
}

// AssignIDs walks the ancestor subgraph described by start.Parents from
// head, assigning vertex ids to every commit not already present in
// start.Assignments, in deterministic parent-first, p1-last order (spec
// §4.6). It is an explicit-stack iterative DFS rather than recursive,
// since ancestor chains can be arbitrarily deep.
func AssignIDs(start *StartState, head types.Hash20, lowVertex types.Vertex) (*MemIdMap, error) {
	result := NewMemIdMap()
	seen := make(map[types.Hash20]bool)
	stack := []assignStackItem{{tag: visitTag, hash: head}}

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch item.tag {
		case visitTag:
			if _, ok := start.Assigned(item.hash); ok {
				continue
			}
			if seen[item.hash] {
				continue
			}
			seen[item.hash] = true

			stack = append(stack, assignStackItem{tag: assignTag, hash: item.hash})

			parents, ok := start.ParentsOf(item.hash)
			if !ok {
				return nil, scmerrors.InvariantViolatedError{Msg: fmt.Sprintf("assign_ids: no parents recorded for %s", item.hash)}
			}
			// The last-pushed parent is popped first, so pushing p1
			// (parents[0]) first means it is visited and assigned last
			// among its siblings, giving it the highest vertex id.
			for i := 0; i < len(parents); i++ {
				p := parents[i]
				if _, ok := start.Assigned(p); ok {
					continue
				}
				stack = append(stack, assignStackItem{tag: visitTag, hash: p})
			}

		case assignTag:
			v := lowVertex + types.Vertex(result.Len())
			result.assign(v, item.hash)
		}
	}

	return result, nil
}
