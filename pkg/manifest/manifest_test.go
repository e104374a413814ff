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
	"sync"
	"testing"

	"github.com/good-night-oppie/scmcore/internal/util"
	"github.com/good-night-oppie/scmcore/pkg/types"
)

func hashBytes(data []byte) types.Hash20 {
	return util.HashDirectoryEntrySimple(data)
}

// mapStore is a trivial in-memory TreeStore used across this package's
// tests; production code uses the layered l1cache/blobstore.NewStore.
type mapStore struct {
	mu   sync.Mutex
	data map[types.Hash20][]byte
	puts int
}

func newMapStore() *mapStore {
	return &mapStore{data: make(map[types.Hash20][]byte)}
}

func (s *mapStore) Get(_ types.RepoPath, hash types.Hash20) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.data[hash]
	return data, ok, nil
}

func (s *mapStore) Put(_ types.RepoPath, hash types.Hash20, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[hash] = data
	s.puts++
	return nil
}

func mustPath(t *testing.T, s string) types.RepoPath {
	t.Helper()
	p, err := types.ParseRepoPath(s)
	if err != nil {
		t.Fatalf("ParseRepoPath(%q): %v", s, err)
	}
	return p
}

func metaOf(n byte) types.FileMetadata {
	var h types.Hash20
	h[0] = n
	return types.FileMetadata{Node: h, FileType: types.Regular}
}

// Scenario 1: insert-get-remove.
func TestTree_InsertGetRemove(t *testing.T) {
	store := newMapStore()
	tr := NewTree(store)

	if err := tr.Insert(mustPath(t, "foo/bar"), metaOf(10)); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	node, ok, err := tr.Get(mustPath(t, "foo/bar"))
	if err != nil || !ok {
		t.Fatalf("Get(foo/bar): ok=%v err=%v", ok, err)
	}
	if node.IsDir || node.File != metaOf(10) {
		t.Fatalf("Get(foo/bar) = %+v, want File(10)", node)
	}

	node, ok, err = tr.Get(mustPath(t, "foo"))
	if err != nil || !ok || !node.IsDir {
		t.Fatalf("Get(foo) = %+v ok=%v err=%v, want Directory", node, ok, err)
	}

	removed, err := tr.Remove(mustPath(t, "foo/bar"))
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if removed == nil || *removed != metaOf(10) {
		t.Fatalf("Remove returned %+v, want Some(10)", removed)
	}

	_, ok, err = tr.Get(mustPath(t, "foo"))
	if err != nil || ok {
		t.Fatalf("Get(foo) after cascading remove: ok=%v err=%v, want None", ok, err)
	}

	node, ok, err = tr.Get(types.RepoPath{})
	if err != nil || !ok || !node.IsDir {
		t.Fatalf("Get(root) = %+v ok=%v err=%v, want Directory", node, ok, err)
	}
}

func TestTree_InsertNoopWhenUnchanged(t *testing.T) {
	store := newMapStore()
	tr := NewTree(store)
	if err := tr.Insert(mustPath(t, "a/b"), metaOf(1)); err != nil {
		t.Fatal(err)
	}
	before := tr.root
	if err := tr.Insert(mustPath(t, "a/b"), metaOf(1)); err != nil {
		t.Fatal(err)
	}
	if tr.root.ephemeral != before.ephemeral {
		t.Fatalf("re-inserting identical metadata must be a true no-op (no COW of the spine)")
	}
}

func TestTree_InsertConflicts(t *testing.T) {
	store := newMapStore()
	tr := NewTree(store)
	if err := tr.Insert(mustPath(t, "a"), metaOf(1)); err != nil {
		t.Fatal(err)
	}
	if err := tr.Insert(mustPath(t, "a/b"), metaOf(2)); err == nil {
		t.Fatalf("expected PathConflict(File) inserting through a leaf")
	}

	tr2 := NewTree(store)
	if err := tr2.Insert(mustPath(t, "a/b"), metaOf(1)); err != nil {
		t.Fatal(err)
	}
	if err := tr2.Insert(mustPath(t, "a"), metaOf(2)); err == nil {
		t.Fatalf("expected PathConflict(Dir) inserting a leaf over a directory")
	}
}

// Scenario 2: flush determinism.
func TestTree_FlushDeterminism(t *testing.T) {
	store := newMapStore()
	tr := NewTree(store)
	inserts := []struct {
		path string
		meta byte
	}{
		{"a1/b1/c1/d1", 10},
		{"a1/b2", 20},
		{"a2/b2/c2", 30},
	}
	for _, ins := range inserts {
		if err := tr.Insert(mustPath(t, ins.path), metaOf(ins.meta)); err != nil {
			t.Fatal(err)
		}
	}

	root, err := tr.Flush()
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	putsAfterFirst := store.puts

	root2, err := tr.Flush()
	if err != nil {
		t.Fatalf("second Flush: %v", err)
	}
	if root2 != root {
		t.Fatalf("Flush not idempotent: %s vs %s", root, root2)
	}
	if store.puts != putsAfterFirst {
		t.Fatalf("second Flush wrote %d new blobs, want 0", store.puts-putsAfterFirst)
	}

	fresh := NewDurableTree(store, root)
	files, err := fresh.Files(AlwaysMatcher{})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("Files returned %d entries, want 3: %+v", len(files), files)
	}
	wantPaths := []string{"a1/b1/c1/d1", "a1/b2", "a2/b2/c2"}
	for i, f := range files {
		if f.Path.String() != wantPaths[i] {
			t.Fatalf("Files()[%d].Path = %q, want %q (sorted order)", i, f.Path.String(), wantPaths[i])
		}
	}
}

// Scenario 3: finalize merge parent mixing. p1 has a1/b2 and a2/b2/c2 but
// no a3 at all; p2 has a different value at a1/b2 and lacks a2 and a3
// entirely. The working tree touches all three of a1/b2, a2/b2/c2, and
// a3/b1, so finalize must fall back to NullHash20 for any parent slot
// that has no corresponding directory at all, not just reuse a shared
// value when both parents happen to agree.
func TestTree_FinalizeParentMixing(t *testing.T) {
	store := newMapStore()

	p1 := NewTree(store)
	if err := p1.Insert(mustPath(t, "a1/b2"), metaOf(1)); err != nil {
		t.Fatal(err)
	}
	if err := p1.Insert(mustPath(t, "a2/b2/c2"), metaOf(2)); err != nil {
		t.Fatal(err)
	}
	if _, err := p1.Flush(); err != nil {
		t.Fatal(err)
	}

	p2 := NewTree(store)
	if err := p2.Insert(mustPath(t, "a1/b2"), metaOf(9)); err != nil {
		t.Fatal(err)
	}
	if _, err := p2.Flush(); err != nil {
		t.Fatal(err)
	}

	work := NewTree(store)
	if err := work.Insert(mustPath(t, "a1/b2"), metaOf(42)); err != nil {
		t.Fatal(err)
	}
	if err := work.Insert(mustPath(t, "a2/b2/c2"), metaOf(30)); err != nil {
		t.Fatal(err)
	}
	if err := work.Insert(mustPath(t, "a3/b1"), metaOf(3)); err != nil {
		t.Fatal(err)
	}

	entries, err := work.Finalize([]*Tree{p1, p2})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	var paths []string
	for _, e := range entries {
		paths = append(paths, e.Path.String())
	}
	// Post-order: children before parents, sorted siblings before
	// moving up. a2/b2 and a2 surface because a2/b2/c2 changed; a3
	// surfaces because it is entirely new; a1 surfaces because a1/b2
	// changed; the root always surfaces last.
	want := []string{"a1", "a2/b2", "a2", "a3", ""}
	if len(paths) != len(want) {
		t.Fatalf("Finalize emitted %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("Finalize order = %v, want %v", paths, want)
		}
	}

	byPath := make(map[string]FinalizeEntry, len(entries))
	for _, e := range entries {
		byPath[e.Path.String()] = e
	}

	p1A1 := lookupDurableChildHash(t, store, p1, "a1")
	p2A1 := lookupDurableChildHash(t, store, p2, "a1")
	if got := byPath["a1"]; got.P1 != p1A1 || got.P2 != p2A1 {
		t.Fatalf("a1 P1/P2 = %s/%s, want %s/%s", got.P1, got.P2, p1A1, p2A1)
	}

	p1A2B2 := lookupDurableChildHash(t, store, p1, "a2/b2")
	if got := byPath["a2/b2"]; got.P1 != p1A2B2 || !got.P2.IsNull() {
		t.Fatalf("a2/b2 P1/P2 = %s/%s, want %s/NULL", got.P1, got.P2, p1A2B2)
	}

	if got := byPath["a3"]; !got.P1.IsNull() || !got.P2.IsNull() {
		t.Fatalf("a3 P1/P2 = %s/%s, want NULL/NULL (p1 and p2 both lack a3)", got.P1, got.P2)
	}

	root := entries[len(entries)-1]
	p1Root, _ := p1.RootHash()
	p2Root, _ := p2.RootHash()
	if root.P1 != p1Root || root.P2 != p2Root {
		t.Fatalf("root P1/P2 = %s/%s, want %s/%s", root.P1, root.P2, p1Root, p2Root)
	}
}

// lookupDurableChildHash walks tr's already-flushed root down to path
// component by component via the package's own childrenOf helper,
// returning the directory hash stored for path. It exists so the test
// can assert Finalize's emitted parent hash against the parent tree's
// actual stored hash rather than recomputing it by hand; Get/List don't
// expose a directory's own hash, only its contents.
func lookupDurableChildHash(t *testing.T, store TreeStore, tr *Tree, path string) types.Hash20 {
	t.Helper()
	link := tr.root
	if link.kind != durableKind {
		t.Fatalf("lookupDurableChildHash(%s): tree root is not durable", path)
	}
	cur := types.RepoPath{}
	for _, comp := range mustPath(t, path) {
		children, err := childrenOf(store, cur, link)
		if err != nil {
			t.Fatalf("lookupDurableChildHash(%s): %v", path, err)
		}
		child, ok := children[comp]
		if !ok {
			t.Fatalf("lookupDurableChildHash(%s): %q not found under %q", path, comp, cur.String())
		}
		link = child
		cur = cur.Join(comp)
	}
	if link.kind != durableKind {
		t.Fatalf("lookupDurableChildHash(%s): not a durable directory", path)
	}
	return link.durable.hash
}

func TestTree_FinalizeIdempotent(t *testing.T) {
	store := newMapStore()
	p1 := NewTree(store)
	if err := p1.Insert(mustPath(t, "x"), metaOf(1)); err != nil {
		t.Fatal(err)
	}
	if _, err := p1.Flush(); err != nil {
		t.Fatal(err)
	}

	run := func() []FinalizeEntry {
		work := NewTree(store)
		if err := work.Insert(mustPath(t, "x"), metaOf(2)); err != nil {
			t.Fatal(err)
		}
		entries, err := work.Finalize([]*Tree{p1})
		if err != nil {
			t.Fatal(err)
		}
		return entries
	}

	a := run()
	b := run()
	if len(a) != len(b) {
		t.Fatalf("finalize not idempotent: %d vs %d entries", len(a), len(b))
	}
	for i := range a {
		if a[i].Hash != b[i].Hash || a[i].Path.String() != b[i].Path.String() {
			t.Fatalf("finalize run %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

// Scenario 4: compat subtree diff depth.
func TestCompatSubtreeDiff_Depth(t *testing.T) {
	store := newMapStore()

	fooBar111 := leafEntryBytes(t, "bar", metaOf(111))
	fooBar112 := leafEntryBytes(t, "bar", metaOf(112))

	foo11Hash := putEntry(t, store, mustPath(t, "foo"), fooBar111)
	foo12Hash := putEntry(t, store, mustPath(t, "foo"), fooBar112)

	bazHash := putEntry(t, store, mustPath(t, "baz"), Entry{})

	r1Entry := Entry{Children: []EntryChild{
		{Component: "baz", Hash: bazHash, Flag: dirFlag},
		{Component: "foo", Hash: foo11Hash, Flag: dirFlag},
	}}
	r2Entry := Entry{Children: []EntryChild{
		{Component: "baz", Hash: bazHash, Flag: dirFlag},
		{Component: "foo", Hash: foo12Hash, Flag: dirFlag},
	}}
	r1Bytes := r1Entry.Marshal()
	r2Bytes := r2Entry.Marshal()
	r1Hash := hashBytes(r1Bytes)
	r2Hash := hashBytes(r2Bytes)
	if err := store.Put(types.RepoPath{}, r1Hash, r1Bytes); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(types.RepoPath{}, r2Hash, r2Bytes); err != nil {
		t.Fatal(err)
	}

	triples, err := CompatSubtreeDiff(store, types.RepoPath{}, r1Hash, []types.Hash20{r2Hash}, 3)
	if err != nil {
		t.Fatalf("CompatSubtreeDiff: %v", err)
	}
	if len(triples) != 2 {
		t.Fatalf("got %d triples, want 2: %+v", len(triples), triples)
	}
	if triples[0].Path.String() != "foo" || triples[0].Hash != foo11Hash {
		t.Fatalf("triples[0] = %+v, want foo@foo11Hash", triples[0])
	}
	if triples[1].Path.String() != "" || triples[1].Hash != r1Hash {
		t.Fatalf("triples[1] = %+v, want root@r1Hash", triples[1])
	}

	shallow, err := CompatSubtreeDiff(store, types.RepoPath{}, r1Hash, []types.Hash20{r2Hash}, 1)
	if err != nil {
		t.Fatalf("CompatSubtreeDiff depth=1: %v", err)
	}
	if len(shallow) != 1 || shallow[0].Path.String() != "" || shallow[0].Hash != r1Hash {
		t.Fatalf("depth=1 result = %+v, want just the root triple", shallow)
	}
}

func TestCompatSubtreeDiff_SameNodeIsEmpty(t *testing.T) {
	store := newMapStore()
	h := putEntry(t, store, types.RepoPath{}, Entry{})
	triples, err := CompatSubtreeDiff(store, types.RepoPath{}, h, []types.Hash20{h}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(triples) != 0 {
		t.Fatalf("got %+v, want empty", triples)
	}
}

func leafEntryBytes(t *testing.T, name types.PathComponent, m types.FileMetadata) Entry {
	t.Helper()
	return Entry{Children: []EntryChild{{Component: name, Hash: m.Node, Flag: m.FileType.Flag()}}}
}

func putEntry(t *testing.T, store *mapStore, path types.RepoPath, entry Entry) types.Hash20 {
	t.Helper()
	data := entry.Marshal()
	h := hashBytes(data)
	if err := store.Put(path, h, data); err != nil {
		t.Fatal(err)
	}
	return h
}
