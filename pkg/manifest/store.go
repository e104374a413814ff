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
	"github.com/good-night-oppie/scmcore/pkg/blobstore"
	"github.com/good-night-oppie/scmcore/pkg/l1cache"
	"github.com/good-night-oppie/scmcore/pkg/types"
)

// TreeStore is the BlobStore contract from spec §6, keyed by (path, hash).
// In this implementation the path is carried for interface fidelity and
// for future transport-layer use (throttling, per-directory metrics) but
// the durable key is the hash alone, since directory/file content is
// already content-addressed — two different paths holding identical
// bytes legitimately share one blob.
type TreeStore interface {
	Get(path types.RepoPath, hash types.Hash20) (data []byte, ok bool, err error)
	Put(path types.RepoPath, hash types.Hash20, data []byte) error
}

// layeredStore is a TreeStore backed by an l1cache hot tier in front of a
// durable blobstore.Store, mirroring the teacher's VST L1/L2 split.
type layeredStore struct {
	l1 l1cache.Cache
	l2 blobstore.Store
}

// NewStore builds a TreeStore from a hot-tier cache and a durable backend.
// l1 may be nil, in which case every Get falls through to l2.
func NewStore(l1 l1cache.Cache, l2 blobstore.Store) TreeStore {
	return &layeredStore{l1: l1, l2: l2}
}

func (s *layeredStore) Get(_ types.RepoPath, hash types.Hash20) ([]byte, bool, error) {
	if s.l1 != nil {
		if data, ok := s.l1.Get(hash); ok {
			return data, true, nil
		}
	}
	data, ok, err := s.l2.Get(hash)
	if err != nil || !ok {
		return data, ok, err
	}
	if s.l1 != nil {
		s.l1.Put(hash, data)
	}
	return data, true, nil
}

func (s *layeredStore) Put(_ types.RepoPath, hash types.Hash20, data []byte) error {
	if err := s.l2.PutBatch([]blobstore.BatchEntry{{Hash: hash, Value: data}}); err != nil {
		return err
	}
	if s.l1 != nil {
		s.l1.Put(hash, data)
	}
	return nil
}
