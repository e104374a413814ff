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
	"bytes"
	"fmt"
	"sort"

	"github.com/good-night-oppie/scmcore/pkg/types"
)

// dirFlag is the wire tag for a directory child, distinct from the file
// flags in types.FileType.Flag.
const dirFlag = 't'

// EntryChild is one line of a serialized directory Entry.
type EntryChild struct {
	Component types.PathComponent
	Hash      types.Hash20
	Flag      byte
}

func (c EntryChild) IsDirectory() bool { return c.Flag == dirFlag }

// Entry is the on-disk form of a directory: its children in key order.
type Entry struct {
	Children []EntryChild
}

// newEntryFromChildren builds an Entry from a children map, sorting by
// component and rejecting duplicate names (spec §9 open question: reject
// duplicates outright).
func newEntryFromChildren(children map[types.PathComponent]childLink) (Entry, error) {
	names := make([]types.PathComponent, 0, len(children))
	for name := range children {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	e := Entry{Children: make([]EntryChild, 0, len(names))}
	for i, name := range names {
		if i > 0 && names[i-1] == name {
			return Entry{}, fmt.Errorf("manifest: duplicate component %q in directory entry", name)
		}
		link := children[name]
		h, flag := link.entryHashAndFlag()
		e.Children = append(e.Children, EntryChild{Component: name, Hash: h, Flag: flag})
	}
	return e, nil
}

// Marshal renders the Entry in the wire format from spec §6: one line per
// child, `component \0 hex(hash) flag_byte \n`, sorted by component.
func (e Entry) Marshal() []byte {
	var buf bytes.Buffer
	for _, c := range e.Children {
		buf.WriteString(string(c.Component))
		buf.WriteByte(0)
		buf.WriteString(c.Hash.String())
		buf.WriteByte(' ')
		buf.WriteByte(c.Flag)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// ParseEntry decodes the wire format, rejecting entries that are not
// strictly sorted by component (spec §6) and rejecting duplicate
// component names (spec §9 open question).
func ParseEntry(data []byte) (Entry, error) {
	var e Entry
	lines := bytes.Split(data, []byte{'\n'})
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		sep := bytes.IndexByte(line, 0)
		if sep < 0 {
			return Entry{}, fmt.Errorf("manifest: malformed entry line, missing NUL separator")
		}
		component := types.PathComponent(line[:sep])
		rest := line[sep+1:]
		// rest is "hex(hash) flag"
		sp := bytes.IndexByte(rest, ' ')
		if sp < 0 {
			return Entry{}, fmt.Errorf("manifest: malformed entry line, missing flag separator")
		}
		h, err := types.ParseHash20(string(rest[:sp]))
		if err != nil {
			return Entry{}, fmt.Errorf("manifest: malformed entry hash: %w", err)
		}
		if sp+2 != len(rest) {
			return Entry{}, fmt.Errorf("manifest: malformed entry flag field")
		}
		flag := rest[sp+1]
		switch flag {
		case dirFlag, 'r', 'x', 'l':
		default:
			return Entry{}, fmt.Errorf("manifest: unknown entry flag %q", flag)
		}

		if len(e.Children) > 0 {
			prev := e.Children[len(e.Children)-1].Component
			if component == prev {
				return Entry{}, fmt.Errorf("manifest: duplicate component %q in directory entry", component)
			}
			if component < prev {
				return Entry{}, fmt.Errorf("manifest: entry not strictly sorted at %q", component)
			}
		}
		e.Children = append(e.Children, EntryChild{Component: component, Hash: h, Flag: flag})
	}
	return e, nil
}
