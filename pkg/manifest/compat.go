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
	"github.com/good-night-oppie/scmcore/pkg/scmerrors"
	"github.com/good-night-oppie/scmcore/pkg/types"
)

// CompatTriple is one (path, hash, entry bytes) directory that must be
// sent to bring a peer up to date.
type CompatTriple struct {
	Path       types.RepoPath
	Hash       types.Hash20
	EntryBytes []byte
}

// CompatSubtreeDiff returns the subset of directory triples under path
// that a peer who already holds otherNodes at path is missing, limited
// to depth directory levels (depth 1 covers path itself only, without
// descending into its children). Results are post-order: every triple a
// recursive call contributes is appended before the current directory's
// own triple, which is what lets a peer reconstruct a subtree by
// replaying the result in order.
func CompatSubtreeDiff(store TreeStore, path types.RepoPath, node types.Hash20, otherNodes []types.Hash20, depth int) ([]CompatTriple, error) {
	for _, on := range otherNodes {
		if on == node {
			return nil, nil
		}
	}

	data, ok, err := store.Get(path, node)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, scmerrors.BlobNotFoundError{Path: path.String(), Hash: node.String()}
	}
	entry, err := ParseEntry(data)
	if err != nil {
		return nil, err
	}

	var out []CompatTriple
	if depth > 1 {
		peerChildren := buildPeerChildHashes(store, path, otherNodes)
		for _, child := range entry.Children {
			if !child.IsDirectory() {
				continue
			}
			peerHashes := peerChildren[child.Component]
			if hashPresent(peerHashes, child.Hash) {
				continue
			}
			sub, err := CompatSubtreeDiff(store, path.Join(child.Component), child.Hash, peerHashes, depth-1)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
	}

	out = append(out, CompatTriple{Path: path, Hash: node, EntryBytes: data})
	return out, nil
}

// buildPeerChildHashes fetches each of the peer's candidate entries for
// path and indexes their directory children by component, once per
// level, so each child lookup in the caller is O(1) instead of
// re-fetching per child.
func buildPeerChildHashes(store TreeStore, path types.RepoPath, otherNodes []types.Hash20) map[types.PathComponent][]types.Hash20 {
	out := make(map[types.PathComponent][]types.Hash20)
	for _, on := range otherNodes {
		data, ok, err := store.Get(path, on)
		if err != nil || !ok {
			continue
		}
		entry, err := ParseEntry(data)
		if err != nil {
			continue
		}
		for _, child := range entry.Children {
			if child.IsDirectory() {
				out[child.Component] = append(out[child.Component], child.Hash)
			}
		}
	}
	return out
}

func hashPresent(hashes []types.Hash20, h types.Hash20) bool {
	for _, x := range hashes {
		if x == h {
			return true
		}
	}
	return false
}
