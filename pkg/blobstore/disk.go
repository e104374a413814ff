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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/good-night-oppie/scmcore/internal/obslog"
	"github.com/good-night-oppie/scmcore/pkg/scmerrors"
	"github.com/good-night-oppie/scmcore/pkg/types"
)

// writeOp is a queued background disk write.
type writeOp struct {
	filePath string
	content  []byte
}

// DiskStoreConfig configures a DiskStore.
type DiskStoreConfig struct {
	CacheSize      int // max items in the LRU hot tier (default 10000)
	WriteQueueSize int // async write queue depth (default 1000)
	ErrorQueueSize int // background error queue depth (default 100)
	Logger         *slog.Logger
}

// DiskStoreOption is a functional option for configuring a DiskStore.
type DiskStoreOption func(*DiskStoreConfig)

func WithLogger(logger *slog.Logger) DiskStoreOption {
	return func(cfg *DiskStoreConfig) { cfg.Logger = logger }
}

func WithCacheSize(size int) DiskStoreOption {
	return func(cfg *DiskStoreConfig) { cfg.CacheSize = size }
}

func WithQueueSizes(writeQueue, errorQueue int) DiskStoreOption {
	return func(cfg *DiskStoreConfig) {
		cfg.WriteQueueSize = writeQueue
		cfg.ErrorQueueSize = errorQueue
	}
}

func defaultDiskStoreConfig() *DiskStoreConfig {
	return &DiskStoreConfig{
		CacheSize:      10000,
		WriteQueueSize: 1000,
		ErrorQueueSize: 100,
	}
}

// DiskStore is a Store backed by a plain directory of files named by hex
// hash, with an LRU hot tier and an async background writer. It is meant
// for embeddable or test deployments; pebbleStore is the production
// backend.
type DiskStore struct {
	storePath string
	cache     *lru.Cache[types.Hash20, []byte]
	mutex     sync.RWMutex

	logger *slog.Logger

	writeQueue chan writeOp
	errorQueue chan error
	wg         sync.WaitGroup
	closed     int32
	done       chan struct{}
	shutdownMu sync.RWMutex
}

// NewDiskStore creates a DiskStore rooted at storePath, creating the
// directory if needed, and starts its background writer/error goroutines.
func NewDiskStore(storePath string, opts ...DiskStoreOption) (*DiskStore, error) {
	cfg := defaultDiskStoreConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if err := os.MkdirAll(storePath, 0755); err != nil {
		return nil, scmerrors.StorageIOError{Op: "MkdirAll", Err: err}
	}

	cache, err := lru.New[types.Hash20, []byte](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("blobstore: failed to create LRU cache: %w", err)
	}

	logger := obslog.Or(cfg.Logger)

	s := &DiskStore{
		storePath:  storePath,
		cache:      cache,
		logger:     logger,
		writeQueue: make(chan writeOp, cfg.WriteQueueSize),
		errorQueue: make(chan error, cfg.ErrorQueueSize),
		done:       make(chan struct{}),
	}

	go s.backgroundWriter()
	go s.errorHandler()

	return s, nil
}

func (s *DiskStore) backgroundWriter() {
	for op := range s.writeQueue {
		if err := os.WriteFile(op.filePath, op.content, 0644); err != nil {
			select {
			case s.errorQueue <- fmt.Errorf("background write failed for %s: %w", op.filePath, err):
			default:
			}
		}
		s.wg.Done()
	}
}

func (s *DiskStore) errorHandler() {
	for err := range s.errorQueue {
		s.logger.Error("blobstore disk write failed",
			"error", err,
			"component", "blobstore.disk",
			"store_path", s.storePath,
		)
	}
}

func (s *DiskStore) filePath(h types.Hash20) string {
	return filepath.Join(s.storePath, h.String())
}

// PutBatch caches every entry and enqueues it for async disk persistence,
// falling back to a synchronous write if the queue is full or the store
// is shutting down.
func (s *DiskStore) PutBatch(batch []BatchEntry) error {
	if atomic.LoadInt32(&s.closed) != 0 {
		return fmt.Errorf("blobstore: disk store is closed")
	}

	s.mutex.Lock()
	for _, e := range batch {
		cp := make([]byte, len(e.Value))
		copy(cp, e.Value)
		s.cache.Add(e.Hash, cp)
	}
	s.mutex.Unlock()

	s.shutdownMu.RLock()
	defer s.shutdownMu.RUnlock()

	var errs []error
	for _, e := range batch {
		path := s.filePath(e.Hash)

		if atomic.LoadInt32(&s.closed) != 0 {
			if err := os.WriteFile(path, e.Value, 0644); err != nil {
				errs = append(errs, err)
			}
			continue
		}

		s.wg.Add(1)
		select {
		case <-s.done:
			s.wg.Done()
			if err := os.WriteFile(path, e.Value, 0644); err != nil {
				errs = append(errs, err)
			}
		case s.writeQueue <- writeOp{filePath: path, content: e.Value}:
		default:
			s.wg.Done()
			if err := os.WriteFile(path, e.Value, 0644); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("blobstore: %d of %d writes failed: %w", len(errs), len(batch), errs[0])
	}
	return nil
}

// Get checks the LRU hot tier before falling back to disk.
func (s *DiskStore) Get(h types.Hash20) ([]byte, bool, error) {
	s.mutex.RLock()
	if content, ok := s.cache.Get(h); ok {
		result := make([]byte, len(content))
		copy(result, content)
		s.mutex.RUnlock()
		return result, true, nil
	}
	s.mutex.RUnlock()

	content, err := os.ReadFile(s.filePath(h))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, scmerrors.StorageIOError{Op: "ReadFile", Err: err}
	}

	s.mutex.Lock()
	cp := make([]byte, len(content))
	copy(cp, content)
	s.cache.Add(h, cp)
	s.mutex.Unlock()

	return content, true, nil
}

// Close drains in-flight background writes before releasing resources.
// Safe to call more than once.
func (s *DiskStore) Close() error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return nil
	}

	close(s.done)

	s.shutdownMu.Lock()
	defer s.shutdownMu.Unlock()

	s.wg.Wait()

	close(s.writeQueue)
	close(s.errorQueue)

	s.mutex.Lock()
	s.cache.Purge()
	s.mutex.Unlock()

	s.logger.Info("blobstore disk store shutdown complete",
		"component", "blobstore.disk",
		"store_path", s.storePath,
	)
	return nil
}
