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

package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/good-night-oppie/scmcore/pkg/changelog"
	"github.com/good-night-oppie/scmcore/pkg/types"
)

// recordLine is the JSON-lines shape a bulk/parents file uses: one
// changeset per line, parents listed oldest-resolved-first (parents[0]
// is p1).
type recordLine struct {
	Hash    string   `json:"hash"`
	Parents []string `json:"parents"`
}

// ReadRecordsFile parses a newline-delimited JSON file of
// {"hash":"...","parents":["...","..."]} rows into ChangesetRecords, in
// file order (callers building a bulk seed must supply topological order
// themselves; this function does no sorting).
func ReadRecordsFile(path string) ([]changelog.ChangesetRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open records file: %w", err)
	}
	defer f.Close()

	var out []changelog.ChangesetRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rl recordLine
		if err := json.Unmarshal(line, &rl); err != nil {
			return nil, fmt.Errorf("parse record line: %w", err)
		}
		h, err := types.ParseHash20(rl.Hash)
		if err != nil {
			return nil, fmt.Errorf("parse record hash: %w", err)
		}
		parents := make([]types.Hash20, len(rl.Parents))
		for i, p := range rl.Parents {
			ph, err := types.ParseHash20(p)
			if err != nil {
				return nil, fmt.Errorf("parse parent hash: %w", err)
			}
			parents[i] = ph
		}
		out = append(out, changelog.ChangesetRecord{Hash: h, Parents: parents})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan records file: %w", err)
	}
	return out, nil
}
