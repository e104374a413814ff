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

package blobstore

import (
	"errors"

	"github.com/cockroachdb/pebble"

	"github.com/good-night-oppie/scmcore/pkg/scmerrors"
	"github.com/good-night-oppie/scmcore/pkg/types"
)

// Options configures a pebble-backed Store.
type Options struct {
	ReadOnly bool
}

type pebbleStore struct {
	db *pebble.DB
}

// Open opens (creating if absent) a pebble-backed durable blob store.
// Tuned for the write-heavy pattern of frequent small commits: a large
// memtable and generous L0 thresholds keep flush/finalize off the
// compaction path in the common case.
func Open(path string, opts *Options) (Store, error) {
	pebbleOpts := &pebble.Options{
		MemTableSize:                64 << 20,
		MemTableStopWritesThreshold: 4,
		L0CompactionThreshold:       4,
		L0StopWritesThreshold:       12,
		LBaseMaxBytes:               64 << 20,
		MaxConcurrentCompactions:    func() int { return 3 },
		DisableWAL:                  false,
	}

	if opts != nil && opts.ReadOnly {
		pebbleOpts.ReadOnly = true
	}

	db, err := pebble.Open(path, pebbleOpts)
	if err != nil {
		return nil, scmerrors.StorageIOError{Op: "pebble.Open", Err: err}
	}

	return &pebbleStore{db: db}, nil
}

func (s *pebbleStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// PutBatch writes all entries in one pebble batch, preflighting for nil
// values so a caller's programming error fails before any I/O.
func (s *pebbleStore) PutBatch(batch []BatchEntry) error {
	for _, entry := range batch {
		if entry.Value == nil {
			return errors.New("blobstore: nil value in batch")
		}
	}

	b := s.db.NewBatch()
	defer b.Close()

	for _, entry := range batch {
		k := entry.Hash[:]
		if err := b.Set(k, entry.Value, pebble.Sync); err != nil {
			return scmerrors.StorageIOError{Op: "pebble.Set", Err: err}
		}
	}

	if err := b.Commit(pebble.Sync); err != nil {
		return scmerrors.StorageIOError{Op: "pebble.Commit", Err: err}
	}
	return nil
}

func (s *pebbleStore) Get(h types.Hash20) ([]byte, bool, error) {
	val, closer, err := s.db.Get(h[:])
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, scmerrors.StorageIOError{Op: "pebble.Get", Err: err}
	}
	defer closer.Close()

	data := make([]byte, len(val))
	copy(data, val)
	return data, true, nil
}
