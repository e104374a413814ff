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
	"sort"

	"github.com/good-night-oppie/scmcore/pkg/types"
)

// StepResult is the outcome of a single Cursor.Step call.
type StepResult int

const (
	StepSuccess StepResult = iota
	StepEnd
	StepErr
)

// cursorFrame is one directory level of in-progress iteration. Hydration
// is deferred until the frame is actually advanced into, so a caller that
// calls SkipSubtree right after entering a directory never triggers a
// blob-store fetch for it.
type cursorFrame struct {
	path     types.RepoPath
	link     childLink
	hydrated bool
	names    []types.PathComponent
	idx      int
	children map[types.PathComponent]childLink
}

// Cursor is a lazy, resumable, pre-order iterator over a tree's Links.
// It is the traversal primitive behind Files: an
// explicit stack rather than recursion, so traversal can be paused,
// resumed, and subtrees skipped without unnecessary hydration.
type Cursor struct {
	store TreeStore
	stack []*cursorFrame
	err   error

	curPath types.RepoPath
	curLink childLink
}

// NewCursor starts a cursor over root's children. root must be a
// directory link (Ephemeral or Durable); a Leaf root would violate the
// tree invariant that the root is never a file.
func NewCursor(store TreeStore, rootPath types.RepoPath, root childLink) *Cursor {
	c := &Cursor{store: store}
	c.stack = append(c.stack, &cursorFrame{path: rootPath, link: root})
	return c
}

func (c *Cursor) hydrate(f *cursorFrame) bool {
	if f.hydrated {
		return true
	}
	children, err := childrenOf(c.store, f.path, f.link)
	if err != nil {
		c.err = err
		return false
	}
	names := make([]types.PathComponent, 0, len(children))
	for n := range children {
		names = append(names, n)
	}
	sortComponents(names)
	f.children = children
	f.names = names
	f.hydrated = true
	return true
}

// childrenOf returns the children map of a directory link, hydrating a
// Durable node if necessary.
func childrenOf(store TreeStore, path types.RepoPath, l childLink) (map[types.PathComponent]childLink, error) {
	switch l.kind {
	case ephemeralKind:
		return l.ephemeral.children, nil
	case durableKind:
		return l.durable.cell.load(store, path, l.durable.hash)
	default:
		return nil, nil
	}
}

// Step advances to the next entry in pre-order (a directory is yielded
// before its children). Call Path/IsDir/File to read the current entry
// after a StepSuccess.
func (c *Cursor) Step() StepResult {
	if c.err != nil {
		return StepErr
	}
	for len(c.stack) > 0 {
		top := c.stack[len(c.stack)-1]
		if !c.hydrate(top) {
			return StepErr
		}
		if top.idx >= len(top.names) {
			c.stack = c.stack[:len(c.stack)-1]
			continue
		}
		name := top.names[top.idx]
		top.idx++
		link := top.children[name]
		path := top.path.Join(name)

		c.curPath = path
		c.curLink = link

		if link.kind != leafKind {
			c.stack = append(c.stack, &cursorFrame{path: path, link: link})
		}
		return StepSuccess
	}
	return StepEnd
}

// SkipSubtree discards the frame pushed by the last StepSuccess for a
// directory entry. No-op for a file entry or when called more than once
// per directory step.
func (c *Cursor) SkipSubtree() {
	if c.curLink.kind == leafKind {
		return
	}
	if len(c.stack) > 0 && c.stack[len(c.stack)-1].path.Compare(c.curPath) == 0 && !c.stack[len(c.stack)-1].hydrated {
		c.stack = c.stack[:len(c.stack)-1]
	}
}

// Path reports the path of the current entry after a StepSuccess.
func (c *Cursor) Path() types.RepoPath { return c.curPath }

// IsDir reports whether the current entry is a directory.
func (c *Cursor) IsDir() bool { return c.curLink.kind != leafKind }

// File returns the current entry's FileMetadata; only valid when !IsDir.
func (c *Cursor) File() types.FileMetadata { return c.curLink.leaf }

// Err returns the sticky hydration error that ended the traversal, if any.
func (c *Cursor) Err() error { return c.err }

func sortComponents(names []types.PathComponent) {
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
}
