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
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/good-night-oppie/scmcore/pkg/types"
)

// DirectoryMatch is the three-way answer a Matcher gives about a
// directory before Files descends into it.
type DirectoryMatch int

const (
	// Everything means every descendant file matches; MatchesFile need
	// not be consulted for this subtree.
	Everything DirectoryMatch = iota
	// Nothing means no descendant can match; the subtree is skipped
	// entirely, without hydrating it from the blob store.
	Nothing
	// Maybe means some descendants may match; MatchesFile must be
	// consulted per file, and child directories recursed into.
	Maybe
)

// Matcher gates which paths Files/Diff visit.
type Matcher interface {
	MatchesDirectory(path types.RepoPath) DirectoryMatch
	MatchesFile(path types.RepoPath) bool
}

// AlwaysMatcher matches every path unconditionally.
type AlwaysMatcher struct{}

func (AlwaysMatcher) MatchesDirectory(types.RepoPath) DirectoryMatch { return Everything }
func (AlwaysMatcher) MatchesFile(types.RepoPath) bool                { return true }

// GlobMatcher matches paths against include/exclude glob patterns using
// doublestar (for "**" support), with backslashes normalized to '/'.
type GlobMatcher struct {
	Include []string
	Exclude []string
}

func (m GlobMatcher) MatchesDirectory(path types.RepoPath) DirectoryMatch {
	// A glob pattern's prefix segments may still match deeper beneath
	// this directory, so directories are always Maybe unless there are
	// no patterns at all.
	if len(m.Include) == 0 && len(m.Exclude) == 0 {
		return Everything
	}
	return Maybe
}

func (m GlobMatcher) MatchesFile(path types.RepoPath) bool {
	p := normalizeGlobPath(path.String())

	if len(m.Include) > 0 {
		included := false
		for _, pattern := range m.Include {
			if globMatch(p, pattern) {
				included = true
				break
			}
		}
		if !included {
			return false
		}
	}

	for _, pattern := range m.Exclude {
		if globMatch(p, pattern) {
			return false
		}
	}
	return true
}

func normalizeGlobPath(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

func globMatch(path, pattern string) bool {
	matched, err := doublestar.PathMatch(normalizeGlobPath(pattern), path)
	if err != nil {
		return false
	}
	return matched
}
