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

package changelog

import (
	"context"
	"fmt"

	"github.com/good-night-oppie/scmcore/pkg/types"
)

// ChangesetFetcher resolves a single commit's parents, 0, 1, or 2 of
// them (3+ are permitted by the interface but currently unused).
type ChangesetFetcher interface {
	GetParents(ctx context.Context, hash types.Hash20) ([]types.Hash20, error)
}

// ChangesetRecord is one (hash, parents) pair in bulk-fetch order.
type ChangesetRecord struct {
	Hash    types.Hash20
	Parents []types.Hash20
}

// ChangesetBulkFetch streams every public changeset in topological
// order (parents before children), for Seed to build a fresh idmap and
// iddag from scratch.
type ChangesetBulkFetch interface {
	StreamPublic(ctx context.Context) (<-chan ChangesetRecord, <-chan error)
}

// MapChangesetFetcher is an in-memory ChangesetFetcher, for tests and
// for small embedded repositories that keep their full history resident.
type MapChangesetFetcher struct {
	Parents map[types.Hash20][]types.Hash20
}

func NewMapChangesetFetcher() *MapChangesetFetcher {
	return &MapChangesetFetcher{Parents: make(map[types.Hash20][]types.Hash20)}
}

func (f *MapChangesetFetcher) GetParents(_ context.Context, hash types.Hash20) ([]types.Hash20, error) {
	parents, ok := f.Parents[hash]
	if !ok {
		return nil, fmt.Errorf("changelog: unknown changeset %s", hash)
	}
	return parents, nil
}

// MapBulkFetch streams a fixed, pre-ordered slice of records — the
// caller is responsible for supplying them in topological order.
type MapBulkFetch struct {
	Records []ChangesetRecord
}

func (f *MapBulkFetch) StreamPublic(ctx context.Context) (<-chan ChangesetRecord, <-chan error) {
	out := make(chan ChangesetRecord, len(f.Records))
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		for _, r := range f.Records {
			select {
			case out <- r:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()
	return out, errc
}
