// Copyright 2020 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package base

import "slices"

// Index manages the map between sparse Names and dense indices. A sparse ID is
// a user ID or movie ID. The dense index is the row or column of a matrix.
type Index struct {
	Numbers map[string]int32 // sparse ID -> dense index
	Names   []string         // dense index -> sparse ID
}

// NotId represents an ID doesn't exist.
const NotId = int32(-1)

// NewMapIndex creates a Index.
func NewMapIndex() *Index {
	set := new(Index)
	set.Numbers = make(map[string]int32)
	set.Names = make([]string, 0)
	return set
}

// NewMapIndexFromNames creates a Index whose dense indices follow the order of names.
// Repeated names keep their first position.
func NewMapIndexFromNames(names ...string) *Index {
	idx := &Index{
		Numbers: make(map[string]int32, len(names)),
		Names:   make([]string, 0, len(names)),
	}
	for _, name := range names {
		idx.Add(name)
	}
	return idx
}

// Len returns the number of indexed Names.
func (idx *Index) Len() int32 {
	if idx == nil {
		return 0
	}
	return int32(len(idx.Names))
}

// Add adds a new ID to the indexer.
func (idx *Index) Add(name string) {
	if _, exist := idx.Numbers[name]; !exist {
		idx.Numbers[name] = int32(len(idx.Names))
		idx.Names = append(idx.Names, name)
	}
}

// ToNumber converts a sparse ID to a dense index.
func (idx *Index) ToNumber(name string) int32 {
	if denseId, exist := idx.Numbers[name]; exist {
		return denseId
	}
	return NotId
}

// ToName converts a dense index to a sparse ID.
func (idx *Index) ToName(index int32) string {
	return idx.Names[index]
}

// GetNames returns all names in current index.
func (idx *Index) GetNames() []string {
	return idx.Names
}

// Equal returns true if both indices hold the same names in the same order.
func (idx *Index) Equal(other *Index) bool {
	if idx == other {
		return true
	}
	if idx == nil || other == nil {
		return false
	}
	return slices.Equal(idx.Names, other.Names)
}
