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

package linalg

import (
	"math"

	"github.com/gorse-io/movierec/base"
	"github.com/juju/errors"
	"gonum.org/v1/gonum/lapack/lapack64"
	"gonum.org/v1/gonum/mat"
)

// convergenceTolerance stops power iterations once no singular value moves by more than
// this fraction of the largest one.
const convergenceTolerance = 1e-12

// TruncatedSVD factorizes a matrix A as U diag(Sigma) Vt, keeping only the top K singular
// values. A randomized range finder is used so that neither the full decomposition of A nor
// any dense factor larger than A is materialized:
//
//	Y = A Ω            Ω is a n × (K+Oversamples) gaussian sketch
//	Y = A Aᵀ Y         repeated at most PowerIters times, until Sigma converges
//	Q = orth(Y)
//	B = Qᵀ A           small (K+Oversamples) × n matrix
//	B = Ub S V         thin SVD of B
//	U = Q Ub
//
// The result is exact (up to rounding) when rank(A) <= K+Oversamples.
type TruncatedSVD struct {
	K           int
	Oversamples int
	PowerIters  int

	// U is the m × K left singular vectors.
	U *mat.Dense
	// Sigma holds K singular values in descending order.
	Sigma []float64
	// Vt is the K × n right singular vectors.
	Vt *mat.Dense
}

// NewTruncatedSVD creates a truncated SVD of rank k.
func NewTruncatedSVD(k, oversamples, powerIters int) *TruncatedSVD {
	return &TruncatedSVD{
		K:           k,
		Oversamples: oversamples,
		PowerIters:  powerIters,
	}
}

// Factorize computes the truncated decomposition of a. The sketch is drawn from rng.
func (t *TruncatedSVD) Factorize(a mat.Matrix, rng base.RandomGenerator) error {
	m, n := a.Dims()
	if t.K <= 0 || t.K > min(m, n) {
		return errors.NotValidf("rank %d for a %d × %d matrix", t.K, m, n)
	}
	l := min(t.K+max(t.Oversamples, 0), m, n)

	// range finder
	omega := mat.NewDense(n, l, rng.NormalVector64(n*l, 0, 1))
	y := mat.NewDense(m, l, nil)
	y.Mul(a, omega)
	q := orthonormalize(y)
	z := mat.NewDense(n, l, nil)
	b := mat.NewDense(l, n, nil)
	var (
		svd    mat.SVD
		values []float64
	)
	for i := 0; ; i++ {
		// project and decompose
		b.Mul(q.T(), a)
		if ok := svd.Factorize(b, mat.SVDThin); !ok {
			return errors.New("failed to factorize projected matrix")
		}
		prev := values
		values = svd.Values(nil)
		if i >= t.PowerIters || converged(prev, values[:t.K]) {
			break
		}
		// power iteration
		z.Mul(a.T(), q)
		y.Mul(a, orthonormalize(z))
		q = orthonormalize(y)
	}
	var ub, v mat.Dense
	svd.UTo(&ub)
	svd.VTo(&v)

	t.U = mat.NewDense(m, t.K, nil)
	t.U.Mul(q, ub.Slice(0, l, 0, t.K))
	t.Sigma = make([]float64, t.K)
	copy(t.Sigma, values[:t.K])
	t.Vt = mat.DenseCopyOf(v.Slice(0, n, 0, t.K).T())
	return nil
}

// Reconstruct returns U diag(Sigma) Vt.
func (t *TruncatedSVD) Reconstruct() *mat.Dense {
	m, _ := t.U.Dims()
	_, n := t.Vt.Dims()
	us := mat.DenseCopyOf(t.U)
	us.Apply(func(_, j int, v float64) float64 {
		return v * t.Sigma[j]
	}, us)
	result := mat.NewDense(m, n, nil)
	result.Mul(us, t.Vt)
	return result
}

func converged(prev, values []float64) bool {
	if len(prev) < len(values) {
		return false
	}
	for j := range values {
		if math.Abs(values[j]-prev[j]) > convergenceTolerance*values[0] {
			return false
		}
	}
	return true
}

// orthonormalize returns a matrix of the same shape whose columns are an orthonormal basis
// spanning the columns of a. It runs a thin Householder QR in place on a copy, since mat.QR
// only extracts the square Q factor.
func orthonormalize(a *mat.Dense) *mat.Dense {
	q := mat.DenseCopyOf(a)
	raw := q.RawMatrix()
	tau := make([]float64, raw.Cols)
	work := []float64{0}
	lapack64.Geqrf(raw, tau, work, -1)
	work = make([]float64, int(work[0]))
	lapack64.Geqrf(raw, tau, work, len(work))
	work = []float64{0}
	lapack64.Orgqr(raw, tau, work, -1)
	work = make([]float64, int(work[0]))
	lapack64.Orgqr(raw, tau, work, len(work))
	return q
}
