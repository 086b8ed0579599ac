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
	"github.com/gorse-io/movierec/base"
	"github.com/juju/errors"
)

// Schema is the ordered set of users (rows) and movies (columns) shared by a family of matrices.
type Schema struct {
	Users  *base.Index
	Movies *base.Index
}

// NewSchema creates a schema. Rows and columns follow the order of the given ids.
func NewSchema(users, movies []string) *Schema {
	return &Schema{
		Users:  base.NewMapIndexFromNames(users...),
		Movies: base.NewMapIndexFromNames(movies...),
	}
}

// Dims returns the number of rows and columns.
func (s *Schema) Dims() (int, int) {
	if s == nil {
		return 0, 0
	}
	return int(s.Users.Len()), int(s.Movies.Len())
}

// Equal returns true if both schemas have the same rows and columns in the same order.
func (s *Schema) Equal(other *Schema) bool {
	if s == other {
		return true
	}
	if s == nil || other == nil {
		return false
	}
	return s.Users.Equal(other.Users) && s.Movies.Equal(other.Movies)
}

// CheckSchema returns ErrSchemaMismatch if two schemas differ.
func CheckSchema(a, b *Schema) error {
	if !a.Equal(b) {
		ra, ca := a.Dims()
		rb, cb := b.Dims()
		return errors.Annotatef(ErrSchemaMismatch, "%d × %d and %d × %d", ra, ca, rb, cb)
	}
	return nil
}
