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

package blobstore_test

import (
	"bytes"
	"crypto/rand"
	"crypto/sha1"
	"path/filepath"
	"testing"

	"github.com/good-night-oppie/scmcore/pkg/blobstore"
	"github.com/good-night-oppie/scmcore/pkg/types"
)

func hOf(b []byte) types.Hash20 {
	return types.Hash20(sha1.Sum(b))
}

func TestPebble_PutBatch_Atomicity_PreflightFail(t *testing.T) {
	dir := t.TempDir()
	db, err := blobstore.Open(filepath.Join(dir, "rocks"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	a := []byte("alpha")
	b := []byte("beta")
	ha := hOf(a)
	hb := hOf(b)

	err = db.PutBatch([]blobstore.BatchEntry{
		{Hash: ha, Value: a},
		{Hash: hb, Value: nil},
	})
	if err == nil {
		t.Fatalf("expected error on nil value")
	}

	if _, ok, _ := db.Get(ha); ok {
		t.Fatalf("atomicity violated: ha should not exist after failed batch")
	}
	if _, ok, _ := db.Get(hb); ok {
		t.Fatalf("atomicity violated: hb should not exist after failed batch")
	}
}

func TestPebble_PutGet_Roundtrip(t *testing.T) {
	dir := t.TempDir()
	db, err := blobstore.Open(filepath.Join(dir, "rocks"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	payload := []byte("roundtrip")
	h := hOf(payload)

	if err := db.PutBatch([]blobstore.BatchEntry{{Hash: h, Value: payload}}); err != nil {
		t.Fatal(err)
	}
	got, ok, err := db.Get(h)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch")
	}
}

func TestPebble_LargePayload(t *testing.T) {
	dir := t.TempDir()
	db, err := blobstore.Open(filepath.Join(dir, "rocks"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	raw := make([]byte, 5<<20) // 5 MiB
	if _, err := rand.Read(raw); err != nil {
		t.Fatal(err)
	}
	h := hOf(raw)

	if err := db.PutBatch([]blobstore.BatchEntry{{Hash: h, Value: raw}}); err != nil {
		t.Fatal(err)
	}
	got, ok, err := db.Get(h)
	if err != nil || !ok {
		t.Fatalf("expected ok=true, err=nil, got ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got, raw) {
		t.Fatalf("large payload mismatch")
	}
}

func TestPebble_MissingKey(t *testing.T) {
	dir := t.TempDir()
	db, err := blobstore.Open(filepath.Join(dir, "rocks"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	missing := hOf([]byte("missing"))
	_, ok, err := db.Get(missing)
	if err != nil {
		t.Fatalf("expected err=nil")
	}
	if ok {
		t.Fatalf("expected ok=false for missing key")
	}
}

func TestPebble_ConcurrentAccess_Safety(t *testing.T) {
	dir := t.TempDir()
	db, err := blobstore.Open(filepath.Join(dir, "rocks"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func(id int) {
			defer func() { done <- true }()
			data := []byte("data" + string(rune('a'+id)))
			h := hOf(data)
			_ = db.PutBatch([]blobstore.BatchEntry{{Hash: h, Value: data}})
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	testData := []byte("final")
	h := hOf(testData)
	if err := db.PutBatch([]blobstore.BatchEntry{{Hash: h, Value: testData}}); err != nil {
		t.Fatal(err)
	}
	got, ok, err := db.Get(h)
	if err != nil || !ok || string(got) != "final" {
		t.Fatalf("store corrupted after concurrent access")
	}
}
