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

// Package scmerrors defines the error kinds shared by the tree manifest
// and segmented changelog cores (spec §7). Hydration and backend errors
// are never swallowed: they are surfaced verbatim to the caller, and
// memoized where the spec requires it (manifest Durable children cells).
package scmerrors

import "fmt"

// PathConflictKind distinguishes the two ways insert can fail.
type PathConflictKind int

const (
	ConflictFile PathConflictKind = iota
	ConflictDir
)

func (k PathConflictKind) String() string {
	if k == ConflictDir {
		return "directory"
	}
	return "file"
}

// BlobNotFoundError reports a missing (path, hash) entry in a BlobStore.
// It is fatal for the operation that requested it.
type BlobNotFoundError struct {
	Path string
	Hash string
}

func (e BlobNotFoundError) Error() string {
	return fmt.Sprintf("blob not found: path=%q hash=%s", e.Path, e.Hash)
}

// StorageIOError wraps a transient backend failure that the caller may
// retry.
type StorageIOError struct {
	Op  string
	Err error
}

func (e StorageIOError) Error() string {
	return fmt.Sprintf("storage io error during %s: %v", e.Op, e.Err)
}

func (e StorageIOError) Unwrap() error { return e.Err }

// PathConflictError reports an insert that collided with an existing file
// or directory along the path.
type PathConflictError struct {
	Path string
	Kind PathConflictKind
}

func (e PathConflictError) Error() string {
	return fmt.Sprintf("path conflict at %q: existing %s", e.Path, e.Kind)
}

// InvariantViolatedError is fatal and indicates corruption or a
// programming error (e.g. an Ephemeral parent seen during Finalize, or
// id_dag_next_id > id_map_next_id). Recovery requires operator
// intervention (reseed).
type InvariantViolatedError struct {
	Msg string
}

func (e InvariantViolatedError) Error() string {
	return fmt.Sprintf("invariant violated: %s", e.Msg)
}

// IdMapCollisionError reports an attempt to insert (vertex, hash) that
// disagrees with an existing row. Fatal.
type IdMapCollisionError struct {
	Vertex   uint64
	Hash     string
	Existing string
}

func (e IdMapCollisionError) Error() string {
	return fmt.Sprintf("idmap collision at vertex %d: existing=%s new=%s", e.Vertex, e.Existing, e.Hash)
}

// DagBackendError passes through a failure from the segment builder.
// Fatal for the current update, recoverable on restart.
type DagBackendError struct {
	Err error
}

func (e DagBackendError) Error() string {
	return fmt.Sprintf("dag backend error: %v", e.Err)
}

func (e DagBackendError) Unwrap() error { return e.Err }
