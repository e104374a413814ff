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
	"fmt"
	"os"
	"path/filepath"

	"github.com/good-night-oppie/scmcore/internal/config"
)

// ResolveStore resolves the durable blob store directory for cwd, given
// cfg.Storage.Dir (already subject to the SCMCORE_STORE_DIR override by
// the time config.Load returns it). A relative Dir is resolved under
// cwd; an empty Dir falls back to cwd/.scmcore/objects.
func ResolveStore(cwd string, cfg config.Config) (string, error) {
	dir := cfg.Storage.Dir
	if dir == "" {
		dir = filepath.Join(".scmcore", "objects")
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(cwd, dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create store dir %s: %w", dir, err)
	}
	return dir, nil
}
