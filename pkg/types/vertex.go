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

package types

// Vertex is a dense 64-bit commit identifier within a Group.
type Vertex uint64

// Group names a disjoint vertex space. Only MASTER is currently used.
type Group string

const MasterGroup Group = "master"

// MinID is the first vertex id assigned within a group.
func (g Group) MinID() Vertex {
	return 0
}
