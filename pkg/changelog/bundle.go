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
	"sync"

	"github.com/good-night-oppie/scmcore/pkg/types"
)

// Bundle is the persisted pointer a seed leaves behind: the idmap
// version it built, and the hash of a serialized iddag snapshot blob
// (spec §6).
type Bundle struct {
	IdMapVersion  uint64
	IddagBlobHash types.Hash20
}

// BundleStore maps repo_id to its latest Bundle.
type BundleStore interface {
	Get(ctx context.Context, repoID string) (Bundle, bool, error)
	Put(ctx context.Context, repoID string, b Bundle) error
}

// MemBundleStore is an in-memory BundleStore, for tests and single-process deployments.
type MemBundleStore struct {
	mu      sync.Mutex
	bundles map[string]Bundle
}

func NewMemBundleStore() *MemBundleStore {
	return &MemBundleStore{bundles: make(map[string]Bundle)}
}

func (s *MemBundleStore) Get(_ context.Context, repoID string) (Bundle, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bundles[repoID]
	return b, ok, nil
}

func (s *MemBundleStore) Put(_ context.Context, repoID string, b Bundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bundles[repoID] = b
	return nil
}
