// Copyright 2026 gorse Project Authors
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

package matrix

import (
	"io"

	"github.com/bits-and-blooms/bitset"
)

// Viewed marks the cells a user has rated. A cell is viewed iff its rating is non-zero.
type Viewed struct {
	schema *Schema
	cols   int
	bits   *bitset.BitSet
}

// NewViewed derives the viewed mask of a ratings matrix.
func NewViewed(ratings *Matrix) *Viewed {
	rows, cols := ratings.Dims()
	viewed := &Viewed{
		schema: ratings.schema,
		cols:   cols,
		bits:   bitset.New(uint(rows * cols)),
	}
	raw := ratings.data.RawMatrix()
	for u := 0; u < rows; u++ {
		for i, v := range raw.Data[u*raw.Stride : u*raw.Stride+cols] {
			if v != 0 {
				viewed.bits.Set(uint(u*cols + i))
			}
		}
	}
	return viewed
}

// Schema returns the rows and columns of the mask.
func (v *Viewed) Schema() *Schema {
	return v.schema
}

// Dims returns the number of users and movies.
func (v *Viewed) Dims() (int, int) {
	return v.schema.Dims()
}

// Test returns true if user u has viewed movie i.
func (v *Viewed) Test(u, i int) bool {
	return v.bits.Test(uint(u*v.cols + i))
}

// Count returns the number of viewed cells.
func (v *Viewed) Count() int {
	return int(v.bits.Count())
}

// WriteCSV writes the mask as a table of 0 and 1 with a userid column followed by one column per movie.
func (v *Viewed) WriteCSV(w io.Writer) error {
	return writeTable(w, v.schema, func(u int, buf []byte) []byte {
		for i := 0; i < v.cols; i++ {
			if v.Test(u, i) {
				buf = append(buf, ",1"...)
			} else {
				buf = append(buf, ",0"...)
			}
		}
		return buf
	})
}
