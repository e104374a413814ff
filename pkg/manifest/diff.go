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

package manifest

import (
	"github.com/good-night-oppie/scmcore/pkg/types"
)

// DiffKind classifies one DiffEntry.
type DiffKind int

const (
	LeftOnly DiffKind = iota
	RightOnly
	Changed
)

// DiffEntry is one file-level difference between two trees. Left is set
// for LeftOnly and Changed; Right is set for RightOnly and Changed.
type DiffEntry struct {
	Path  types.RepoPath
	Kind  DiffKind
	Left  *types.FileMetadata
	Right *types.FileMetadata
}

// Diff compares left and right, yielding DiffEntry values gated by
// matcher. bfs selects the breadth-first strategy (directories enqueued
// and processed in path order) over the depth-first default; both
// strategies short-circuit whenever two Durable subtrees share a hash,
// and both yield the same final multiset — only the order differs.
func Diff(store TreeStore, left, right *Tree, matcher Matcher, bfs bool) ([]DiffEntry, error) {
	if bfs {
		return diffBFS(store, left.root, right.root, matcher)
	}
	var out []DiffEntry
	if err := diffDFS(store, types.RepoPath{}, left.root, right.root, matcher, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func diffDFS(store TreeStore, path types.RepoPath, left, right childLink, matcher Matcher, out *[]DiffEntry) error {
	if matcher.MatchesDirectory(path) == Nothing {
		return nil
	}
	if left.kind == durableKind && right.kind == durableKind && left.durable.hash == right.durable.hash {
		return nil
	}

	lchildren, err := childrenOf(store, path, left)
	if err != nil {
		return err
	}
	rchildren, err := childrenOf(store, path, right)
	if err != nil {
		return err
	}

	for _, name := range unionSortedNames(lchildren, rchildren) {
		lc, lok := lchildren[name]
		rc, rok := rchildren[name]
		childPath := path.Join(name)

		switch {
		case lok && !rok:
			if err := emitAllAs(store, childPath, lc, matcher, LeftOnly, out); err != nil {
				return err
			}
		case !lok && rok:
			if err := emitAllAs(store, childPath, rc, matcher, RightOnly, out); err != nil {
				return err
			}
		case lc.kind == leafKind && rc.kind == leafKind:
			if lc.leaf != rc.leaf && matcher.MatchesFile(childPath) {
				l, r := lc.leaf, rc.leaf
				*out = append(*out, DiffEntry{Path: childPath, Kind: Changed, Left: &l, Right: &r})
			}
		case lc.kind != leafKind && rc.kind != leafKind:
			if err := diffDFS(store, childPath, lc, rc, matcher, out); err != nil {
				return err
			}
		default:
			if err := emitAllAs(store, childPath, lc, matcher, LeftOnly, out); err != nil {
				return err
			}
			if err := emitAllAs(store, childPath, rc, matcher, RightOnly, out); err != nil {
				return err
			}
		}
	}
	return nil
}

type dirPair struct {
	path        types.RepoPath
	left, right childLink
}

func diffBFS(store TreeStore, left, right childLink, matcher Matcher) ([]DiffEntry, error) {
	var out []DiffEntry
	queue := []dirPair{{path: types.RepoPath{}, left: left, right: right}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if matcher.MatchesDirectory(cur.path) == Nothing {
			continue
		}
		if cur.left.kind == durableKind && cur.right.kind == durableKind && cur.left.durable.hash == cur.right.durable.hash {
			continue
		}

		lchildren, err := childrenOf(store, cur.path, cur.left)
		if err != nil {
			return nil, err
		}
		rchildren, err := childrenOf(store, cur.path, cur.right)
		if err != nil {
			return nil, err
		}

		for _, name := range unionSortedNames(lchildren, rchildren) {
			lc, lok := lchildren[name]
			rc, rok := rchildren[name]
			childPath := cur.path.Join(name)

			switch {
			case lok && !rok:
				if err := emitAllAs(store, childPath, lc, matcher, LeftOnly, &out); err != nil {
					return nil, err
				}
			case !lok && rok:
				if err := emitAllAs(store, childPath, rc, matcher, RightOnly, &out); err != nil {
					return nil, err
				}
			case lc.kind == leafKind && rc.kind == leafKind:
				if lc.leaf != rc.leaf && matcher.MatchesFile(childPath) {
					l, r := lc.leaf, rc.leaf
					out = append(out, DiffEntry{Path: childPath, Kind: Changed, Left: &l, Right: &r})
				}
			case lc.kind != leafKind && rc.kind != leafKind:
				queue = append(queue, dirPair{path: childPath, left: lc, right: rc})
			default:
				if err := emitAllAs(store, childPath, lc, matcher, LeftOnly, &out); err != nil {
					return nil, err
				}
				if err := emitAllAs(store, childPath, rc, matcher, RightOnly, &out); err != nil {
					return nil, err
				}
			}
		}
	}
	return out, nil
}

// emitAllAs walks every file beneath link, unconditionally assigning it
// kind (LeftOnly or RightOnly) — used when a whole subtree exists on
// only one side of the comparison.
func emitAllAs(store TreeStore, path types.RepoPath, link childLink, matcher Matcher, kind DiffKind, out *[]DiffEntry) error {
	if link.kind == leafKind {
		if matcher.MatchesFile(path) {
			m := link.leaf
			entry := DiffEntry{Path: path, Kind: kind}
			if kind == LeftOnly {
				entry.Left = &m
			} else {
				entry.Right = &m
			}
			*out = append(*out, entry)
		}
		return nil
	}
	if matcher.MatchesDirectory(path) == Nothing {
		return nil
	}
	children, err := childrenOf(store, path, link)
	if err != nil {
		return err
	}
	names := make([]types.PathComponent, 0, len(children))
	for n := range children {
		names = append(names, n)
	}
	sortComponents(names)
	for _, name := range names {
		if err := emitAllAs(store, path.Join(name), children[name], matcher, kind, out); err != nil {
			return err
		}
	}
	return nil
}

func unionSortedNames(a, b map[types.PathComponent]childLink) []types.PathComponent {
	seen := make(map[types.PathComponent]struct{}, len(a)+len(b))
	names := make([]types.PathComponent, 0, len(a)+len(b))
	for n := range a {
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			names = append(names, n)
		}
	}
	for n := range b {
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			names = append(names, n)
		}
	}
	sortComponents(names)
	return names
}
