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
	"encoding/binary"

	"github.com/cockroachdb/pebble"

	"github.com/good-night-oppie/scmcore/pkg/scmerrors"
	"github.com/good-night-oppie/scmcore/pkg/types"
)

// Two independent key spaces in one pebble.DB: "v:" + big-endian vertex
// -> hash, and "h:" + hash -> big-endian vertex. Big-endian encoding
// keeps the v: space iterable in vertex order, which GetLastEntry relies
// on to find the highest-numbered row without maintaining a separate
// counter key.
const (
	pebbleVertexPrefix = 'v'
	pebbleHashPrefix   = 'h'
)

// PebbleIdMap is the embeddable IdMap backend. It opens pebble with
// default options, not the tuned ones the blob store uses.
type PebbleIdMap struct {
	db *pebble.DB
}

// OpenPebbleIdMap opens (creating if necessary) a pebble-backed IdMap at path.
func OpenPebbleIdMap(path string) (*PebbleIdMap, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, scmerrors.StorageIOError{Op: "idmap.pebble.Open", Err: err}
	}
	return &PebbleIdMap{db: db}, nil
}

func (m *PebbleIdMap) Close() error { return m.db.Close() }

func vertexKey(v types.Vertex) []byte {
	b := make([]byte, 9)
	b[0] = pebbleVertexPrefix
	binary.BigEndian.PutUint64(b[1:], uint64(v))
	return b
}

func hashKey(h types.Hash20) []byte {
	b := make([]byte, 1+len(h))
	b[0] = pebbleHashPrefix
	copy(b[1:], h[:])
	return b
}

func (m *PebbleIdMap) InsertMany(_ context.Context, entries []VertexHash) error {
	batch := m.db.NewBatch()
	defer batch.Close()

	for _, e := range entries {
		if existing, ok, err := m.FindChangeset(context.Background(), e.Vertex); err != nil {
			return err
		} else if ok && existing != e.Hash {
			return scmerrors.IdMapCollisionError{Vertex: uint64(e.Vertex), Hash: e.Hash.String(), Existing: existing.String()}
		}
		if err := batch.Set(vertexKey(e.Vertex), e.Hash[:], nil); err != nil {
			return scmerrors.StorageIOError{Op: "idmap.pebble.Set", Err: err}
		}
		var v [8]byte
		binary.BigEndian.PutUint64(v[:], uint64(e.Vertex))
		if err := batch.Set(hashKey(e.Hash), v[:], nil); err != nil {
			return scmerrors.StorageIOError{Op: "idmap.pebble.Set", Err: err}
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return scmerrors.StorageIOError{Op: "idmap.pebble.Commit", Err: err}
	}
	return nil
}

func (m *PebbleIdMap) FindVertex(_ context.Context, hash types.Hash20) (types.Vertex, bool, error) {
	v, closer, err := m.db.Get(hashKey(hash))
	if err == pebble.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, scmerrors.StorageIOError{Op: "idmap.pebble.Get", Err: err}
	}
	defer closer.Close()
	return types.Vertex(binary.BigEndian.Uint64(v)), true, nil
}

func (m *PebbleIdMap) GetVertex(ctx context.Context, hash types.Hash20) (types.Vertex, error) {
	v, ok, err := m.FindVertex(ctx, hash)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, scmerrors.BlobNotFoundError{Path: "idmap", Hash: hash.String()}
	}
	return v, nil
}

func (m *PebbleIdMap) FindChangeset(_ context.Context, v types.Vertex) (types.Hash20, bool, error) {
	data, closer, err := m.db.Get(vertexKey(v))
	if err == pebble.ErrNotFound {
		return types.Hash20{}, false, nil
	}
	if err != nil {
		return types.Hash20{}, false, scmerrors.StorageIOError{Op: "idmap.pebble.Get", Err: err}
	}
	defer closer.Close()
	var h types.Hash20
	copy(h[:], data)
	return h, true, nil
}

func (m *PebbleIdMap) GetLastEntry(_ context.Context) (types.Vertex, types.Hash20, bool, error) {
	it, err := m.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{pebbleVertexPrefix},
		UpperBound: []byte{pebbleVertexPrefix + 1},
	})
	if err != nil {
		return 0, types.Hash20{}, false, scmerrors.StorageIOError{Op: "idmap.pebble.NewIter", Err: err}
	}
	defer it.Close()

	if !it.Last() {
		return 0, types.Hash20{}, false, nil
	}
	key := it.Key()
	v := types.Vertex(binary.BigEndian.Uint64(key[1:]))
	var h types.Hash20
	copy(h[:], it.Value())
	return v, h, true, nil
}
