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

// Package cli implements the scmcore-cli subcommands against pkg/manifest
// and pkg/changelog, following the same thin-handler-over-a-store shape
// as the original commit/restore/diff/materialize handlers.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/good-night-oppie/scmcore/internal/config"
	"github.com/good-night-oppie/scmcore/internal/util"
	"github.com/good-night-oppie/scmcore/pkg/changelog"
	"github.com/good-night-oppie/scmcore/pkg/manifest"
	"github.com/good-night-oppie/scmcore/pkg/types"
)

// Op is one --op flag value for `manifest apply`: "insert:<path>:<hash>:<type>" or "remove:<path>".
type Op struct {
	Remove bool
	Path   types.RepoPath
	Meta   types.FileMetadata
}

// ParseOp decodes one --op flag value.
func ParseOp(s string) (Op, error) {
	parts := strings.SplitN(s, ":", 4)
	switch parts[0] {
	case "remove":
		if len(parts) != 2 {
			return Op{}, fmt.Errorf("remove op wants \"remove:<path>\", got %q", s)
		}
		p, err := types.ParseRepoPath(parts[1])
		if err != nil {
			return Op{}, err
		}
		return Op{Remove: true, Path: p}, nil
	case "insert":
		if len(parts) != 4 {
			return Op{}, fmt.Errorf("insert op wants \"insert:<path>:<hash>:<type>\", got %q", s)
		}
		p, err := types.ParseRepoPath(parts[1])
		if err != nil {
			return Op{}, err
		}
		h, err := types.ParseHash20(parts[2])
		if err != nil {
			return Op{}, err
		}
		ft, err := parseFileType(parts[3])
		if err != nil {
			return Op{}, err
		}
		return Op{Path: p, Meta: types.FileMetadata{Node: h, FileType: ft}}, nil
	default:
		return Op{}, fmt.Errorf("unknown op kind %q (want insert or remove)", parts[0])
	}
}

func parseFileType(s string) (types.FileType, error) {
	switch s {
	case "regular":
		return types.Regular, nil
	case "executable":
		return types.Executable, nil
	case "symlink":
		return types.Symlink, nil
	default:
		return 0, fmt.Errorf("unknown file type %q", s)
	}
}

// HandleManifestApply builds (or reopens) a tree at root, applies ops in
// order, flushes it, and prints the new root hash.
func HandleManifestApply(w io.Writer, cfg config.Config, root string, ops []Op) error {
	store, closeStore, err := openTreeStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	tree, err := loadTree(store, root)
	if err != nil {
		return err
	}
	for _, op := range ops {
		if op.Remove {
			if _, err := tree.Remove(op.Path); err != nil {
				return err
			}
			continue
		}
		if err := tree.Insert(op.Path, op.Meta); err != nil {
			return err
		}
	}

	hash, err := tree.Flush()
	if err != nil {
		return err
	}
	return json.NewEncoder(w).Encode(map[string]any{"root": hash.String()})
}

// HandleManifestGet resolves path against root and prints its metadata.
func HandleManifestGet(w io.Writer, cfg config.Config, root, path string) error {
	store, closeStore, err := openTreeStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	tree, err := loadTree(store, root)
	if err != nil {
		return err
	}
	p, err := types.ParseRepoPath(path)
	if err != nil {
		return err
	}
	node, ok, err := tree.Get(p)
	if err != nil {
		return err
	}
	if !ok {
		return json.NewEncoder(w).Encode(map[string]any{"found": false})
	}
	out := map[string]any{"found": true, "is_dir": node.IsDir}
	if !node.IsDir {
		out["hash"] = node.File.Node.String()
		out["type"] = node.File.FileType.String()
	}
	return json.NewEncoder(w).Encode(out)
}

// HandleManifestList lists the children of path (or the root).
func HandleManifestList(w io.Writer, cfg config.Config, root, path string) error {
	store, closeStore, err := openTreeStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	tree, err := loadTree(store, root)
	if err != nil {
		return err
	}
	p, err := types.ParseRepoPath(path)
	if err != nil {
		return err
	}
	res, err := tree.List(p)
	if err != nil {
		return err
	}
	switch res.Kind {
	case manifest.ListNotFound:
		return json.NewEncoder(w).Encode(map[string]any{"kind": "not_found"})
	case manifest.ListFile:
		return json.NewEncoder(w).Encode(map[string]any{"kind": "file"})
	default:
		names := make([]string, len(res.Components))
		for i, c := range res.Components {
			names[i] = string(c)
		}
		return json.NewEncoder(w).Encode(map[string]any{"kind": "directory", "children": names})
	}
}

// HandleManifestFinalize applies ops against root, finalizes against the
// given parent hashes, and prints the resulting root's hash and parents.
func HandleManifestFinalize(w io.Writer, cfg config.Config, root string, ops []Op, parents []string) error {
	store, closeStore, err := openTreeStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	tree, err := loadTree(store, root)
	if err != nil {
		return err
	}
	for _, op := range ops {
		if op.Remove {
			if _, err := tree.Remove(op.Path); err != nil {
				return err
			}
			continue
		}
		if err := tree.Insert(op.Path, op.Meta); err != nil {
			return err
		}
	}

	parentTrees := make([]*manifest.Tree, len(parents))
	for i, p := range parents {
		parentTrees[i] = manifest.NewDurableTree(store, mustHash(p))
	}

	entries, err := tree.Finalize(parentTrees)
	if err != nil {
		return err
	}
	newRoot, _ := tree.RootHash()

	out := map[string]any{"root": newRoot.String(), "entries_written": len(entries)}
	if len(entries) > 0 {
		last := entries[len(entries)-1]
		out["p1"] = last.P1.String()
		out["p2"] = last.P2.String()
	}
	return json.NewEncoder(w).Encode(out)
}

// HandleManifestDiff prints the DiffEntry list between two durable roots.
func HandleManifestDiff(w io.Writer, cfg config.Config, leftHash, rightHash string, bfs bool) error {
	store, closeStore, err := openTreeStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	left := manifest.NewDurableTree(store, mustHash(leftHash))
	right := manifest.NewDurableTree(store, mustHash(rightHash))

	entries, err := manifest.Diff(store, left, right, manifest.AlwaysMatcher{}, bfs)
	if err != nil {
		return err
	}

	rows := make([]map[string]any, len(entries))
	for i, e := range entries {
		row := map[string]any{"path": e.Path.String(), "kind": diffKindString(e.Kind)}
		if e.Left != nil {
			row["left_hash"] = e.Left.Node.String()
		}
		if e.Right != nil {
			row["right_hash"] = e.Right.Node.String()
		}
		rows[i] = row
	}
	return json.NewEncoder(w).Encode(rows)
}

func diffKindString(k manifest.DiffKind) string {
	switch k {
	case manifest.LeftOnly:
		return "left_only"
	case manifest.RightOnly:
		return "right_only"
	default:
		return "changed"
	}
}

// HandleChangelogSeed bulk-fetches every record in records and rebuilds
// the idmap/iddag from scratch, printing the resulting bundle.
func HandleChangelogSeed(ctx context.Context, w io.Writer, cfg config.Config, repoID string, records []changelog.ChangesetRecord) error {
	idmap, closeIdmap, err := openIdMap(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeIdmap()

	dag := changelog.NewIdDag()
	bundles := changelog.NewMemBundleStore()
	bulk := &changelog.MapBulkFetch{Records: records}

	bundle, err := changelog.Seed(ctx, repoID, bundles, idmap, dag, bulk, types.MasterGroup)
	if err != nil {
		return err
	}
	return json.NewEncoder(w).Encode(map[string]any{
		"idmap_version": bundle.IdMapVersion,
		"iddag_blob":    bundle.IddagBlobHash.String(),
	})
}

// HandleChangelogBuildIncremental runs an incremental build up to head,
// using records to answer parent lookups for any as-yet-unassigned
// ancestor.
func HandleChangelogBuildIncremental(ctx context.Context, w io.Writer, cfg config.Config, head string, records []changelog.ChangesetRecord) error {
	idmap, closeIdmap, err := openIdMap(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeIdmap()

	fetcher := changelog.NewMapChangesetFetcher()
	for _, r := range records {
		fetcher.Parents[r.Hash] = r.Parents
	}
	dag := changelog.NewIdDag()

	v, err := changelog.BuildIncremental(ctx, idmap, dag, fetcher, mustHash(head), types.MasterGroup)
	if err != nil {
		return err
	}
	return json.NewEncoder(w).Encode(map[string]any{"vertex": uint64(v)})
}

// HandleChangelogLookup answers a single hash->vertex query against the
// already-persisted idmap.
func HandleChangelogLookup(ctx context.Context, w io.Writer, cfg config.Config, hash string) error {
	idmap, closeIdmap, err := openIdMap(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeIdmap()

	v, ok, err := idmap.FindVertex(ctx, mustHash(hash))
	if err != nil {
		return err
	}
	return json.NewEncoder(w).Encode(map[string]any{"found": ok, "vertex": uint64(v)})
}

// HandleChangelogStats prints the idmap's last assigned (vertex, hash).
func HandleChangelogStats(ctx context.Context, w io.Writer, cfg config.Config) error {
	idmap, closeIdmap, err := openIdMap(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeIdmap()

	v, h, ok, err := idmap.GetLastEntry(ctx)
	if err != nil {
		return err
	}
	out := map[string]any{"has_entries": ok}
	if ok {
		out["last_vertex"] = uint64(v)
		out["last_hash"] = h.String()
	}
	return json.NewEncoder(w).Encode(out)
}

// HandleBlobInspect fetches hash directly from the durable store and, if
// it parses as a directory Entry, prints its children; otherwise prints
// the raw byte length.
func HandleBlobInspect(w io.Writer, cfg config.Config, hash string) error {
	store, closeStore, err := openTreeStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	h := mustHash(hash)
	data, ok, err := store.Get(types.RepoPath{}, h)
	if err != nil {
		return err
	}
	if !ok {
		return json.NewEncoder(w).Encode(map[string]any{"found": false})
	}

	if entry, perr := manifest.ParseEntry(data); perr == nil {
		children := make([]map[string]any, len(entry.Children))
		for i, c := range entry.Children {
			children[i] = map[string]any{
				"component": string(c.Component),
				"hash":      c.Hash.String(),
				"is_dir":    c.IsDirectory(),
			}
		}
		return json.NewEncoder(w).Encode(map[string]any{"found": true, "kind": "directory", "children": children})
	}
	return json.NewEncoder(w).Encode(map[string]any{"found": true, "kind": "opaque", "bytes": len(data)})
}

// HandleBlobPut reads file, hashes its content, stores it under that
// hash, and prints the hash — the missing piece between "a file on
// disk" and an insert op's `insert:<path>:<hash>:<type>` operand.
func HandleBlobPut(w io.Writer, cfg config.Config, file string) error {
	store, closeStore, err := openTreeStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}
	h := util.HashFileContent(data)
	if err := store.Put(types.RepoPath{}, h, data); err != nil {
		return err
	}
	return json.NewEncoder(w).Encode(map[string]any{"hash": h.String(), "bytes": len(data)})
}

func loadTree(store manifest.TreeStore, root string) (*manifest.Tree, error) {
	if root == "" {
		return manifest.NewTree(store), nil
	}
	return manifest.NewDurableTree(store, mustHash(root)), nil
}

// mustHash parses a hex hash, returning the zero hash for an empty
// string (used as the "no parent" placeholder on the CLI surface).
func mustHash(s string) types.Hash20 {
	if s == "" {
		return types.Hash20{}
	}
	h, err := types.ParseHash20(s)
	if err != nil {
		panic(fmt.Sprintf("invalid hash %q: %v", s, err))
	}
	return h
}
