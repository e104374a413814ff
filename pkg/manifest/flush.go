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
	"github.com/good-night-oppie/scmcore/internal/util"
	"github.com/good-night-oppie/scmcore/pkg/types"
)

// Flush persists every dirty (Ephemeral) subtree in post-order and
// returns the resulting root hash. Directory hashes use the simple
// SHA-1-over-entry-bytes rule (no parent mixing); Durable subtrees are
// left untouched. The in-memory tree is updated in place: every
// Ephemeral link visited is replaced by a Durable link whose children
// cell is pre-populated with the just-serialized children, so a
// subsequent Get/List does not re-hydrate from the store.
func (t *Tree) Flush() (types.Hash20, error) {
	root, err := flushLink(t.store, types.RepoPath{}, t.root)
	if err != nil {
		return types.Hash20{}, err
	}
	t.root = root
	if root.kind != durableKind {
		return types.Hash20{}, nil
	}
	return root.durable.hash, nil
}

// flushLink returns the Durable (or Leaf) form of link, recursing into
// Ephemeral children first (post-order) so that every child contributes
// a settled hash to its parent's Entry.
func flushLink(store TreeStore, path types.RepoPath, link childLink) (childLink, error) {
	if link.kind != ephemeralKind {
		return link, nil
	}

	children := link.ephemeral.children
	names := make([]types.PathComponent, 0, len(children))
	for n := range children {
		names = append(names, n)
	}
	sortComponents(names)

	flushed := make(map[types.PathComponent]childLink, len(children))
	for _, name := range names {
		childPath := path.Join(name)
		newChild, err := flushLink(store, childPath, children[name])
		if err != nil {
			return childLink{}, err
		}
		flushed[name] = newChild
	}

	entry, err := newEntryFromChildren(flushed)
	if err != nil {
		return childLink{}, err
	}
	entryBytes := entry.Marshal()
	hash := util.HashDirectoryEntrySimple(entryBytes)

	if err := store.Put(path, hash, entryBytes); err != nil {
		return childLink{}, err
	}

	dir := newDurableDir(hash)
	dir.cell.children = flushed
	dir.cell.once.Do(func() {})
	return durableLink(dir), nil
}
