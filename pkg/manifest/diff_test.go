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
	"fmt"
	"sort"
	"testing"
)

func diffMultiset(t *testing.T, entries []DiffEntry) []string {
	t.Helper()
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, fmt.Sprintf("%d:%s", e.Kind, e.Path.String()))
	}
	sort.Strings(out)
	return out
}

func TestDiff_DFSAndBFSAgree(t *testing.T) {
	store := newMapStore()

	left := NewTree(store)
	for _, p := range []string{"a/b", "a/c", "shared/x", "only_left/y"} {
		if err := left.Insert(mustPath(t, p), metaOf(1)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := left.Flush(); err != nil {
		t.Fatal(err)
	}

	right := NewTree(store)
	for _, p := range []string{"a/b", "a/c", "shared/x", "only_right/z"} {
		if err := right.Insert(mustPath(t, p), metaOf(2)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := right.Flush(); err != nil {
		t.Fatal(err)
	}

	dfs, err := Diff(store, left, right, AlwaysMatcher{}, false)
	if err != nil {
		t.Fatalf("Diff dfs: %v", err)
	}
	bfs, err := Diff(store, left, right, AlwaysMatcher{}, true)
	if err != nil {
		t.Fatalf("Diff bfs: %v", err)
	}

	dfsSet := diffMultiset(t, dfs)
	bfsSet := diffMultiset(t, bfs)
	if len(dfsSet) != len(bfsSet) {
		t.Fatalf("dfs/bfs disagree on count: %v vs %v", dfsSet, bfsSet)
	}
	for i := range dfsSet {
		if dfsSet[i] != bfsSet[i] {
			t.Fatalf("dfs/bfs multiset mismatch: %v vs %v", dfsSet, bfsSet)
		}
	}

	wantPaths := map[string]DiffKind{
		"a/b":          Changed,
		"a/c":          Changed,
		"shared/x":     Changed,
		"only_left/y":  LeftOnly,
		"only_right/z": RightOnly,
	}
	if len(dfs) != len(wantPaths) {
		t.Fatalf("Diff produced %d entries, want %d: %+v", len(dfs), len(wantPaths), dfs)
	}
	for _, e := range dfs {
		want, ok := wantPaths[e.Path.String()]
		if !ok {
			t.Fatalf("unexpected diff entry for path %q", e.Path.String())
		}
		if e.Kind != want {
			t.Fatalf("path %q kind = %d, want %d", e.Path.String(), e.Kind, want)
		}
	}
}

func TestDiff_IdenticalTreesShortCircuit(t *testing.T) {
	store := newMapStore()
	left := NewTree(store)
	if err := left.Insert(mustPath(t, "a/b"), metaOf(1)); err != nil {
		t.Fatal(err)
	}
	if _, err := left.Flush(); err != nil {
		t.Fatal(err)
	}
	rootHash, _ := left.RootHash()
	right := NewDurableTree(store, rootHash)

	entries, err := Diff(store, left, right, AlwaysMatcher{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("Diff of identical trees = %+v, want empty", entries)
	}
}
