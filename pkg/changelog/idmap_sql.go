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
	"database/sql"
	"errors"

	_ "github.com/go-sql-driver/mysql"

	"github.com/good-night-oppie/scmcore/pkg/scmerrors"
	"github.com/good-night-oppie/scmcore/pkg/types"
)

// SQLIdMap is a MySQL-backed IdMap, for deployments that already run a
// MySQL metadata store alongside the blob store.
type SQLIdMap struct {
	db *sql.DB
}

// OpenSQLIdMap opens a connection pool against dsn and ensures the
// backing table exists.
func OpenSQLIdMap(ctx context.Context, dsn string) (*SQLIdMap, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, scmerrors.StorageIOError{Op: "idmap.sql.Open", Err: err}
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, scmerrors.StorageIOError{Op: "idmap.sql.Ping", Err: err}
	}
	const ddl = `CREATE TABLE IF NOT EXISTS idmap (
		vertex BIGINT UNSIGNED NOT NULL PRIMARY KEY,
		hash BINARY(20) NOT NULL,
		UNIQUE KEY idmap_hash (hash)
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, scmerrors.StorageIOError{Op: "idmap.sql.CreateTable", Err: err}
	}
	return &SQLIdMap{db: db}, nil
}

func (m *SQLIdMap) Close() error { return m.db.Close() }

func (m *SQLIdMap) InsertMany(ctx context.Context, entries []VertexHash) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return scmerrors.StorageIOError{Op: "idmap.sql.Begin", Err: err}
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO idmap (vertex, hash) VALUES (?, ?)`)
	if err != nil {
		return scmerrors.StorageIOError{Op: "idmap.sql.Prepare", Err: err}
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, uint64(e.Vertex), e.Hash[:]); err != nil {
			var existing types.Hash20
			row := tx.QueryRowContext(ctx, `SELECT hash FROM idmap WHERE vertex = ?`, uint64(e.Vertex))
			var raw []byte
			if scanErr := row.Scan(&raw); scanErr == nil {
				copy(existing[:], raw)
				if existing != e.Hash {
					return scmerrors.IdMapCollisionError{Vertex: uint64(e.Vertex), Hash: e.Hash.String(), Existing: existing.String()}
				}
				continue
			}
			return scmerrors.StorageIOError{Op: "idmap.sql.Insert", Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return scmerrors.StorageIOError{Op: "idmap.sql.Commit", Err: err}
	}
	return nil
}

func (m *SQLIdMap) FindVertex(ctx context.Context, hash types.Hash20) (types.Vertex, bool, error) {
	var v uint64
	err := m.db.QueryRowContext(ctx, `SELECT vertex FROM idmap WHERE hash = ?`, hash[:]).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, scmerrors.StorageIOError{Op: "idmap.sql.FindVertex", Err: err}
	}
	return types.Vertex(v), true, nil
}

func (m *SQLIdMap) GetVertex(ctx context.Context, hash types.Hash20) (types.Vertex, error) {
	v, ok, err := m.FindVertex(ctx, hash)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, scmerrors.BlobNotFoundError{Path: "idmap", Hash: hash.String()}
	}
	return v, nil
}

func (m *SQLIdMap) FindChangeset(ctx context.Context, v types.Vertex) (types.Hash20, bool, error) {
	var raw []byte
	err := m.db.QueryRowContext(ctx, `SELECT hash FROM idmap WHERE vertex = ?`, uint64(v)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Hash20{}, false, nil
	}
	if err != nil {
		return types.Hash20{}, false, scmerrors.StorageIOError{Op: "idmap.sql.FindChangeset", Err: err}
	}
	var h types.Hash20
	copy(h[:], raw)
	return h, true, nil
}

func (m *SQLIdMap) GetLastEntry(ctx context.Context) (types.Vertex, types.Hash20, bool, error) {
	var v uint64
	var raw []byte
	err := m.db.QueryRowContext(ctx, `SELECT vertex, hash FROM idmap ORDER BY vertex DESC LIMIT 1`).Scan(&v, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, types.Hash20{}, false, nil
	}
	if err != nil {
		return 0, types.Hash20{}, false, scmerrors.StorageIOError{Op: "idmap.sql.GetLastEntry", Err: err}
	}
	var h types.Hash20
	copy(h[:], raw)
	return types.Vertex(v), h, true, nil
}
