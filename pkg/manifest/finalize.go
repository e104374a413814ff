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

	"github.com/good-night-oppie/scmcore/internal/util"
	"github.com/good-night-oppie/scmcore/pkg/scmerrors"
	"github.com/good-night-oppie/scmcore/pkg/types"
)

// FinalizeEntry is one completed directory from a Finalize run: its
// merged hash, the serialized bytes inserted into the blob store, and
// the (up to two) parent hashes that were mixed into the hash. A parent
// slot is the null hash when fewer than two parents were active at this
// directory.
type FinalizeEntry struct {
	Path       types.RepoPath
	Hash       types.Hash20
	EntryBytes []byte
	P1         types.Hash20
	P2         types.Hash20
}

// Finalize is the authoritative hash computation for commit-time
// persistence: unlike Flush, it mixes the hashes of whichever parent
// trees already have the same directory, so a directory whose hash
// matches at least one active parent reuses that hash instead of being
// rehashed. parents must already be flushed (an Ephemeral link
// anywhere in a parent is a programming error, reported as
// InvariantViolatedError). Entries are returned children-before-parents
// (post-order), so a caller replaying them into a blob store never
// inserts a directory before the children it references.
func (t *Tree) Finalize(parents []*Tree) ([]FinalizeEntry, error) {
	activeParents := make([]childLink, 0, len(parents))
	for _, p := range parents {
		if p == nil {
			continue
		}
		if p.root.kind == ephemeralKind {
			return nil, scmerrors.InvariantViolatedError{Msg: "finalize: parent tree root is Ephemeral; parents must be flushed first"}
		}
		activeParents = append(activeParents, p.root)
	}

	var out []FinalizeEntry
	newRoot, err := finalizeNode(t.store, types.RepoPath{}, t.root, activeParents, &out)
	if err != nil {
		return nil, err
	}
	t.root = newRoot
	return out, nil
}

// finalizeNode computes the finalized form of link at path, given the
// set of parent directory links active at the same path (lockstep by
// path, per spec). It returns the settled childLink — unchanged (same
// Durable hash) if link already matched an active parent, or a new
// Durable link with a pre-populated children cell otherwise — so the
// caller's in-memory tree never needs to rehydrate a node it just
// finalized.
func finalizeNode(store TreeStore, path types.RepoPath, link childLink, activeParents []childLink, out *[]FinalizeEntry) (childLink, error) {
	if link.kind == leafKind {
		return link, nil
	}

	parentHashes := make([]types.Hash20, 0, len(activeParents))
	for _, p := range activeParents {
		if p.kind != durableKind {
			return childLink{}, scmerrors.InvariantViolatedError{Msg: fmt.Sprintf("finalize: parent directory at %q is Ephemeral", path.String())}
		}
		parentHashes = append(parentHashes, p.durable.hash)
	}

	if link.kind == durableKind {
		for _, ph := range parentHashes {
			if ph == link.durable.hash {
				return link, nil
			}
		}
	}

	children, err := childrenOf(store, path, link)
	if err != nil {
		return childLink{}, err
	}
	names := make([]types.PathComponent, 0, len(children))
	for n := range children {
		names = append(names, n)
	}
	sortComponents(names)

	newChildren := make(map[types.PathComponent]childLink, len(children))
	for _, name := range names {
		childPath := path.Join(name)

		childActiveParents := make([]childLink, 0, len(activeParents))
		for _, p := range activeParents {
			pChildren, err := childrenOf(store, path, p)
			if err != nil {
				return childLink{}, err
			}
			if pc, ok := pChildren[name]; ok && pc.kind != leafKind {
				childActiveParents = append(childActiveParents, pc)
			}
		}

		newChild, err := finalizeNode(store, childPath, children[name], childActiveParents, out)
		if err != nil {
			return childLink{}, err
		}
		newChildren[name] = newChild
	}

	entry, err := newEntryFromChildren(newChildren)
	if err != nil {
		return childLink{}, err
	}
	entryBytes := entry.Marshal()

	var p1, p2 types.Hash20
	if len(parentHashes) > 0 {
		p1 = parentHashes[0]
	}
	if len(parentHashes) > 1 {
		p2 = parentHashes[1]
	}
	hash := util.HashDirectoryEntryMerged(p1, p2, entryBytes)

	if err := store.Put(path, hash, entryBytes); err != nil {
		return childLink{}, err
	}
	*out = append(*out, FinalizeEntry{Path: path, Hash: hash, EntryBytes: entryBytes, P1: p1, P2: p2})

	dir := newDurableDir(hash)
	dir.cell.children = newChildren
	dir.cell.once.Do(func() {})
	return durableLink(dir), nil
}
