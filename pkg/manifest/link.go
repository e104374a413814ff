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

// Package manifest implements the content-addressed, hash-linked tree
// describing a single commit's filesystem state: a radix-like tree of
// directories indexed by path component, with Ephemeral (in-memory,
// unhashed) and Durable (hashed, persisted, lazily-hydrated) nodes.
package manifest

import (
	"fmt"
	"sort"
	"sync"

	"github.com/good-night-oppie/scmcore/pkg/scmerrors"
	"github.com/good-night-oppie/scmcore/pkg/types"
)

type linkKind int

const (
	leafKind linkKind = iota
	ephemeralKind
	durableKind
)

// childLink is one entry in a directory's children map: a Leaf file, an
// Ephemeral in-memory subdirectory, or a Durable hashed subdirectory.
type childLink struct {
	kind      linkKind
	leaf      types.FileMetadata
	ephemeral *ephemeralDir
	durable   *durableDir
}

func leafLink(m types.FileMetadata) childLink {
	return childLink{kind: leafKind, leaf: m}
}

func ephemeralLink(d *ephemeralDir) childLink {
	return childLink{kind: ephemeralKind, ephemeral: d}
}

func durableLink(d *durableDir) childLink {
	return childLink{kind: durableKind, durable: d}
}

// ephemeralDir is an in-memory directory with no hash yet.
type ephemeralDir struct {
	children map[types.PathComponent]childLink
}

func newEphemeralDir() *ephemeralDir {
	return &ephemeralDir{children: make(map[types.PathComponent]childLink)}
}

func (d *ephemeralDir) sortedNames() []types.PathComponent {
	names := make([]types.PathComponent, 0, len(d.children))
	for n := range d.children {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// durableDir is a directory whose hash is known; children are hydrated
// from the blob store on first access and memoized for the lifetime of
// the tree value, including sticky hydration errors.
type durableDir struct {
	hash types.Hash20
	cell *childrenCell
}

func newDurableDir(hash types.Hash20) *durableDir {
	return &durableDir{hash: hash, cell: &childrenCell{}}
}

// childrenCell is a one-shot publishable slot: Unloaded -> Loaded(Ok) |
// Loaded(Err). Never re-fetched once resolved (spec §9).
type childrenCell struct {
	once     sync.Once
	children map[types.PathComponent]childLink
	err      error
}

func (c *childrenCell) load(store TreeStore, path types.RepoPath, hash types.Hash20) (map[types.PathComponent]childLink, error) {
	c.once.Do(func() {
		data, ok, err := store.Get(path, hash)
		if err != nil {
			c.err = err
			return
		}
		if !ok {
			c.err = scmerrors.BlobNotFoundError{Path: path.String(), Hash: hash.String()}
			return
		}
		entry, err := ParseEntry(data)
		if err != nil {
			c.err = err
			return
		}
		children := make(map[types.PathComponent]childLink, len(entry.Children))
		for _, ch := range entry.Children {
			if ch.IsDirectory() {
				children[ch.Component] = durableLink(newDurableDir(ch.Hash))
			} else {
				children[ch.Component] = leafLink(types.FileMetadata{
					Node:     ch.Hash,
					FileType: flagToFileType(ch.Flag),
				})
			}
		}
		c.children = children
	})
	return c.children, c.err
}

func flagToFileType(flag byte) types.FileType {
	switch flag {
	case 'x':
		return types.Executable
	case 'l':
		return types.Symlink
	default:
		return types.Regular
	}
}

// entryHashAndFlag reports the (hash, flag) pair this link contributes to
// its parent's serialized Entry. Only valid for Leaf and Durable links;
// an Ephemeral child must be converted (flushed or finalized) before its
// parent's Entry can be built.
func (l childLink) entryHashAndFlag() (types.Hash20, byte) {
	switch l.kind {
	case leafKind:
		return l.leaf.Node, l.leaf.FileType.Flag()
	case durableKind:
		return l.durable.hash, dirFlag
	default:
		panic(fmt.Sprintf("manifest: entryHashAndFlag called on non-terminal link kind %d", l.kind))
	}
}

// FsNode is the result of a Get/List lookup: either a file or a
// directory (with its hydrated key set, for List).
type FsNode struct {
	IsDir    bool
	File     types.FileMetadata
	DirNames []types.PathComponent // set only when IsDir and requested via List
}
