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

import "github.com/juju/errors"

const (
	// ErrInsufficientData is returned when filtering leaves no users or no movies.
	ErrInsufficientData = errors.ConstError("insufficient data")
	// ErrSchemaMismatch is returned when matrices passed together have different rows or columns.
	ErrSchemaMismatch = errors.ConstError("schema mismatch")
	// ErrEmptyMatrix is returned when a matrix has no rows or no columns.
	ErrEmptyMatrix = errors.ConstError("empty matrix")
)
