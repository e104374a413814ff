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

// Package blobstore holds the durable L2 tier for file and directory
// blobs addressed by their legacy 20-byte hash. Two implementations are
// provided: a pebble-backed embedded KV store for production use, and a
// disk+LRU content store for lightweight or test deployments.
package blobstore

import "github.com/good-night-oppie/scmcore/pkg/types"

// BatchEntry is a single key/value pair for PutBatch.
type BatchEntry struct {
	Hash  types.Hash20
	Value []byte
}

// Store is the durable blob storage interface shared by every backend.
type Store interface {
	// PutBatch writes all entries. Implementations should make the batch
	// atomic where the backend supports it.
	PutBatch(batch []BatchEntry) error

	// Get returns (value, ok, err). ok=false means the key is absent;
	// err is reserved for backend I/O failures.
	Get(h types.Hash20) (value []byte, ok bool, err error)

	Close() error
}
