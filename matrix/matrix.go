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
	"bufio"
	"io"
	"strconv"

	"github.com/gorse-io/movierec/base"
	"github.com/juju/errors"
	"gonum.org/v1/gonum/mat"
)

// Matrix is a dense users × movies grid of ratings bound to a schema. Unrated cells are zero.
// A matrix is never modified after construction.
type Matrix struct {
	schema *Schema
	data   *mat.Dense
}

// NewMatrix creates a matrix from row-major values. The matrix takes ownership of values.
func NewMatrix(schema *Schema, values []float64) (*Matrix, error) {
	rows, cols := schema.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.Annotatef(ErrEmptyMatrix, "%d × %d", rows, cols)
	}
	if len(values) != rows*cols {
		return nil, errors.Annotatef(ErrSchemaMismatch, "%d values for %d × %d", len(values), rows, cols)
	}
	return &Matrix{schema: schema, data: mat.NewDense(rows, cols, values)}, nil
}

// FromDense creates a matrix from a gonum matrix. The matrix takes ownership of data.
func FromDense(schema *Schema, data *mat.Dense) (*Matrix, error) {
	rows, cols := schema.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.Annotatef(ErrEmptyMatrix, "%d × %d", rows, cols)
	}
	if r, c := data.Dims(); r != rows || c != cols {
		return nil, errors.Annotatef(ErrSchemaMismatch, "%d × %d data for %d × %d", r, c, rows, cols)
	}
	return &Matrix{schema: schema, data: data}, nil
}

// Schema returns the rows and columns of the matrix.
func (m *Matrix) Schema() *Schema {
	return m.schema
}

// Dims returns the number of users and movies.
func (m *Matrix) Dims() (int, int) {
	return m.data.Dims()
}

// At returns the value at row u and column i.
func (m *Matrix) At(u, i int) float64 {
	return m.data.At(u, i)
}

// Lookup returns the value of a user and a movie by their ids.
func (m *Matrix) Lookup(userId, movieId string) (float64, bool) {
	u := m.schema.Users.ToNumber(userId)
	i := m.schema.Movies.ToNumber(movieId)
	if u == base.NotId || i == base.NotId {
		return 0, false
	}
	return m.data.At(int(u), int(i)), true
}

// Row returns a copy of row u.
func (m *Matrix) Row(u int) []float64 {
	return mat.Row(nil, u, m.data)
}

// Dense returns a copy of the underlying matrix.
func (m *Matrix) Dense() *mat.Dense {
	return mat.DenseCopyOf(m.data)
}

// Mat returns a read-only view of the underlying matrix.
func (m *Matrix) Mat() mat.Matrix {
	return readOnly{m.data}
}

// CountNonZero returns the number of non-zero cells.
func (m *Matrix) CountNonZero() int {
	raw := m.data.RawMatrix()
	count := 0
	for u := 0; u < raw.Rows; u++ {
		for _, v := range raw.Data[u*raw.Stride : u*raw.Stride+raw.Cols] {
			if v != 0 {
				count++
			}
		}
	}
	return count
}

// WriteCSV writes the matrix as a table with a userid column followed by one column per movie.
func (m *Matrix) WriteCSV(w io.Writer) error {
	_, cols := m.Dims()
	return writeTable(w, m.schema, func(u int, buf []byte) []byte {
		for i := 0; i < cols; i++ {
			buf = append(buf, ',')
			buf = strconv.AppendFloat(buf, m.data.At(u, i), 'g', -1, 64)
		}
		return buf
	})
}

// readOnly hides the mutators of a dense matrix.
type readOnly struct {
	m *mat.Dense
}

func (r readOnly) Dims() (int, int) { return r.m.Dims() }

func (r readOnly) At(i, j int) float64 { return r.m.At(i, j) }

func (r readOnly) T() mat.Matrix { return mat.Transpose{Matrix: r} }

func writeTable(w io.Writer, schema *Schema, row func(u int, buf []byte) []byte) error {
	rows, _ := schema.Dims()
	buf := bufio.NewWriter(w)
	// write header
	if _, err := buf.WriteString("userid"); err != nil {
		return errors.Trace(err)
	}
	for _, movieId := range schema.Movies.GetNames() {
		if _, err := buf.WriteString("," + base.Escape(movieId)); err != nil {
			return errors.Trace(err)
		}
	}
	if err := buf.WriteByte('\n'); err != nil {
		return errors.Trace(err)
	}
	// write rows
	var line []byte
	for u := 0; u < rows; u++ {
		line = append(line[:0], base.Escape(schema.Users.ToName(int32(u)))...)
		line = row(u, line)
		line = append(line, '\n')
		if _, err := buf.Write(line); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(buf.Flush())
}
