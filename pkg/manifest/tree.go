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

	"github.com/good-night-oppie/scmcore/pkg/scmerrors"
	"github.com/good-night-oppie/scmcore/pkg/types"
)

// Tree is a single commit's (or in-progress working copy's) filesystem
// state. The zero value is not usable; build one with NewTree or
// NewDurableTree. Mutating methods require exclusive ownership of the
// value — Tree is not internally synchronized, matching the teacher's
// VST which is likewise single-owner per value.
type Tree struct {
	store TreeStore
	root  childLink
}

// NewTree returns an empty, fully Ephemeral tree.
func NewTree(store TreeStore) *Tree {
	return &Tree{store: store, root: ephemeralLink(newEphemeralDir())}
}

// NewDurableTree returns a tree whose root is already hashed and
// persisted; its children hydrate lazily on first access.
func NewDurableTree(store TreeStore, rootHash types.Hash20) *Tree {
	return &Tree{store: store, root: durableLink(newDurableDir(rootHash))}
}

// RootHash reports the root's hash and whether the root is Durable (an
// Ephemeral root has no hash until Flush or Finalize).
func (t *Tree) RootHash() (types.Hash20, bool) {
	if t.root.kind != durableKind {
		return types.Hash20{}, false
	}
	return t.root.durable.hash, true
}

// linkAt walks path from the root, hydrating Durable nodes as needed.
// found=false means the path does not exist (a component was missing, or
// a Leaf was encountered before the path was fully consumed).
func (t *Tree) linkAt(path types.RepoPath) (link childLink, found bool, err error) {
	cur := t.root
	curPath := types.RepoPath{}
	for _, comp := range path {
		if cur.kind == leafKind {
			return childLink{}, false, nil
		}
		children, err := childrenOf(t.store, curPath, cur)
		if err != nil {
			return childLink{}, false, err
		}
		next, ok := children[comp]
		if !ok {
			return childLink{}, false, nil
		}
		cur = next
		curPath = curPath.Join(comp)
	}
	return cur, true, nil
}

// Get resolves path to a file or directory marker. ok=false means the
// path does not exist.
func (t *Tree) Get(path types.RepoPath) (node FsNode, ok bool, err error) {
	link, found, err := t.linkAt(path)
	if err != nil || !found {
		return FsNode{}, false, err
	}
	if link.kind == leafKind {
		return FsNode{IsDir: false, File: link.leaf}, true, nil
	}
	return FsNode{IsDir: true}, true, nil
}

// ListKind is the shape of a List result.
type ListKind int

const (
	ListNotFound ListKind = iota
	ListFile
	ListDirectory
)

// ListResult is the outcome of List.
type ListResult struct {
	Kind       ListKind
	Components []types.PathComponent // set only when Kind == ListDirectory
}

// List resolves path and, for a directory, returns its children's names
// in lexicographic order.
func (t *Tree) List(path types.RepoPath) (ListResult, error) {
	link, found, err := t.linkAt(path)
	if err != nil {
		return ListResult{}, err
	}
	if !found {
		return ListResult{Kind: ListNotFound}, nil
	}
	if link.kind == leafKind {
		return ListResult{Kind: ListFile}, nil
	}
	children, err := childrenOf(t.store, path, link)
	if err != nil {
		return ListResult{}, err
	}
	names := make([]types.PathComponent, 0, len(children))
	for n := range children {
		names = append(names, n)
	}
	sortComponents(names)
	return ListResult{Kind: ListDirectory, Components: names}, nil
}

func cloneChildren(children map[types.PathComponent]childLink) map[types.PathComponent]childLink {
	out := make(map[types.PathComponent]childLink, len(children)+1)
	for k, v := range children {
		out[k] = v
	}
	return out
}

// Insert walks path, creating Ephemeral directories as needed, and sets
// the leaf at path to meta. No-op if the leaf already equals meta (no
// mutation occurs at all in that case, preserving full structural
// sharing). Every directory on the spine is converted to Ephemeral
// (copy-on-write) when a mutation does occur.
func (t *Tree) Insert(path types.RepoPath, meta types.FileMetadata) error {
	if path.IsRoot() {
		return fmt.Errorf("manifest: cannot insert at the root path")
	}
	newRoot, _, err := insertAt(t.store, types.RepoPath{}, t.root, path, meta)
	if err != nil {
		return err
	}
	t.root = newRoot
	return nil
}

func insertAt(store TreeStore, curPath types.RepoPath, link childLink, remaining types.RepoPath, meta types.FileMetadata) (childLink, bool, error) {
	if link.kind == leafKind {
		return childLink{}, false, scmerrors.PathConflictError{Path: curPath.String(), Kind: scmerrors.ConflictFile}
	}
	children, err := childrenOf(store, curPath, link)
	if err != nil {
		return childLink{}, false, err
	}

	comp := remaining[0]
	rest := remaining[1:]
	childPath := curPath.Join(comp)

	if len(rest) == 0 {
		existing, exists := children[comp]
		if exists {
			if existing.kind != leafKind {
				return childLink{}, false, scmerrors.PathConflictError{Path: childPath.String(), Kind: scmerrors.ConflictDir}
			}
			if existing.leaf == meta {
				return link, false, nil
			}
		}
		newChildren := cloneChildren(children)
		newChildren[comp] = leafLink(meta)
		return ephemeralLink(&ephemeralDir{children: newChildren}), true, nil
	}

	existing, exists := children[comp]
	if !exists {
		existing = ephemeralLink(newEphemeralDir())
	} else if existing.kind == leafKind {
		return childLink{}, false, scmerrors.PathConflictError{Path: childPath.String(), Kind: scmerrors.ConflictFile}
	}

	newChild, changed, err := insertAt(store, childPath, existing, rest, meta)
	if err != nil {
		return childLink{}, false, err
	}
	if !changed {
		return link, false, nil
	}
	newChildren := cloneChildren(children)
	newChildren[comp] = newChild
	return ephemeralLink(&ephemeralDir{children: newChildren}), true, nil
}

// Remove deletes the leaf at path. Removing a non-existent path, or a
// directory path, is a no-op that returns (nil, nil). On the way back up
// the spine, any directory left with no children is itself removed from
// its parent.
func (t *Tree) Remove(path types.RepoPath) (*types.FileMetadata, error) {
	if path.IsRoot() {
		return nil, nil
	}
	newRoot, removed, err := removeAt(t.store, types.RepoPath{}, t.root, path)
	if err != nil {
		return nil, err
	}
	t.root = newRoot
	return removed, nil
}

func removeAt(store TreeStore, curPath types.RepoPath, link childLink, remaining types.RepoPath) (childLink, *types.FileMetadata, error) {
	children, err := childrenOf(store, curPath, link)
	if err != nil {
		return childLink{}, nil, err
	}

	comp := remaining[0]
	rest := remaining[1:]
	childPath := curPath.Join(comp)

	existing, exists := children[comp]
	if !exists {
		return link, nil, nil
	}

	if len(rest) == 0 {
		if existing.kind != leafKind {
			// directories are not removable directly
			return link, nil, nil
		}
		newChildren := cloneChildren(children)
		delete(newChildren, comp)
		removed := existing.leaf
		return ephemeralLink(&ephemeralDir{children: newChildren}), &removed, nil
	}

	if existing.kind == leafKind {
		return link, nil, nil
	}

	newChild, removed, err := removeAt(store, childPath, existing, rest)
	if err != nil {
		return childLink{}, nil, err
	}
	if removed == nil {
		return link, nil, nil
	}

	newChildren := cloneChildren(children)
	if isEmptyEphemeralDir(newChild) {
		delete(newChildren, comp)
	} else {
		newChildren[comp] = newChild
	}
	return ephemeralLink(&ephemeralDir{children: newChildren}), removed, nil
}

func isEmptyEphemeralDir(l childLink) bool {
	return l.kind == ephemeralKind && len(l.ephemeral.children) == 0
}

// FileEntry is one (path, metadata) pair yielded by Files.
type FileEntry struct {
	Path types.RepoPath
	Meta types.FileMetadata
}

// Files performs an in-order traversal yielding every file the matcher
// accepts. A directory for which MatchesDirectory returns Nothing is
// skipped without hydrating it from the blob store.
func (t *Tree) Files(m Matcher) ([]FileEntry, error) {
	c := NewCursor(t.store, types.RepoPath{}, t.root)
	var out []FileEntry
	for {
		switch c.Step() {
		case StepEnd:
			return out, nil
		case StepErr:
			return nil, c.Err()
		case StepSuccess:
			if c.IsDir() {
				if m.MatchesDirectory(c.Path()) == Nothing {
					c.SkipSubtree()
				}
				continue
			}
			if m.MatchesFile(c.Path()) {
				out = append(out, FileEntry{Path: c.Path(), Meta: c.File()})
			}
		}
	}
}
