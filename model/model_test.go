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

package model

import (
	"context"
	"strconv"
	"testing"

	"github.com/gorse-io/movierec/base"
	"github.com/gorse-io/movierec/common/linalg"
	"github.com/gorse-io/movierec/matrix"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func ids(prefix string, n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = prefix + strconv.Itoa(i)
	}
	return names
}

// randomRatings creates a matrix whose cells are rated from 1 to 5 with the given density.
func randomRatings(t *testing.T, rows, cols int, density float64, seed int64) (*matrix.Matrix, *matrix.Viewed) {
	rng := base.NewRandomGenerator(seed)
	values := make([]float64, rows*cols)
	for i := range values {
		if rng.Float64() < density {
			values[i] = float64(1 + rng.Intn(5))
		}
	}
	ratings, err := matrix.NewMatrix(matrix.NewSchema(ids("u", rows), ids("m", cols)), values)
	require.NoError(t, err)
	return ratings, matrix.NewViewed(ratings)
}

func TestSplitConfig_Validate(t *testing.T) {
	assert.NoError(t, SplitConfig{TestPercent: 20, ValidationPercent: 10}.Validate())
	assert.NoError(t, SplitConfig{TestPercent: 100}.Validate())
	assert.NoError(t, SplitConfig{}.Validate())
	assert.True(t, errors.Is(SplitConfig{TestPercent: -1}.Validate(), errors.NotValid))
	assert.True(t, errors.Is(SplitConfig{ValidationPercent: 101}.Validate(), errors.NotValid))
	assert.True(t, errors.Is(SplitConfig{TestPercent: 60, ValidationPercent: 50}.Validate(), errors.NotValid))
	assert.Equal(t, 70, SplitConfig{TestPercent: 20, ValidationPercent: 10}.TrainPercent())
}

func TestSplit_Coverage(t *testing.T) {
	ratings, viewed := randomRatings(t, 50, 40, 0.3, 0)
	partition, err := Split(ratings, viewed, SplitConfig{TestPercent: 20, ValidationPercent: 10}, base.NewRandomGenerator(0))
	require.NoError(t, err)
	assert.True(t, partition.Train.Schema() == ratings.Schema())
	assert.True(t, partition.Test.Schema() == ratings.Schema())
	assert.True(t, partition.Validation.Schema() == ratings.Schema())
	rows, cols := ratings.Dims()
	for u := 0; u < rows; u++ {
		for i := 0; i < cols; i++ {
			train, test, validation := partition.Train.At(u, i), partition.Test.At(u, i), partition.Validation.At(u, i)
			assert.Equal(t, ratings.At(u, i), train+test+validation)
			nonZero := 0
			for _, v := range []float64{train, test, validation} {
				if v != 0 {
					nonZero++
				}
			}
			if viewed.Test(u, i) {
				assert.Equal(t, 1, nonZero)
			} else {
				assert.Zero(t, nonZero)
			}
		}
	}
	assert.Equal(t, viewed.Count(), partition.Train.CountNonZero()+partition.Test.CountNonZero()+partition.Validation.CountNonZero())
}

func TestSplit_Proportions(t *testing.T) {
	ratings, viewed := randomRatings(t, 200, 200, 1, 0)
	partition, err := Split(ratings, viewed, SplitConfig{TestPercent: 20, ValidationPercent: 10}, base.NewRandomGenerator(0))
	require.NoError(t, err)
	total := float64(viewed.Count())
	assert.InDelta(t, 0.7, float64(partition.Train.CountNonZero())/total, 0.01)
	assert.InDelta(t, 0.2, float64(partition.Test.CountNonZero())/total, 0.01)
	assert.InDelta(t, 0.1, float64(partition.Validation.CountNonZero())/total, 0.01)
}

func TestSplit_AllTest(t *testing.T) {
	ratings, viewed := randomRatings(t, 20, 30, 0.5, 0)
	partition, err := Split(ratings, viewed, SplitConfig{TestPercent: 100}, base.NewRandomGenerator(0))
	require.NoError(t, err)
	assert.Zero(t, partition.Train.CountNonZero())
	assert.Zero(t, partition.Validation.CountNonZero())
	assert.True(t, mat.Equal(ratings.Mat(), partition.Test.Mat()))
}

func TestSplit_Deterministic(t *testing.T) {
	ratings, viewed := randomRatings(t, 30, 30, 0.5, 0)
	config := SplitConfig{TestPercent: 30, ValidationPercent: 30}
	a, err := Split(ratings, viewed, config, base.NewRandomGenerator(42))
	require.NoError(t, err)
	b, err := Split(ratings, viewed, config, base.NewRandomGenerator(42))
	require.NoError(t, err)
	c, err := Split(ratings, viewed, config, base.NewRandomGenerator(43))
	require.NoError(t, err)
	assert.True(t, mat.Equal(a.Train.Mat(), b.Train.Mat()))
	assert.True(t, mat.Equal(a.Test.Mat(), b.Test.Mat()))
	assert.True(t, mat.Equal(a.Validation.Mat(), b.Validation.Mat()))
	assert.False(t, mat.Equal(a.Train.Mat(), c.Train.Mat()))
}

func TestSplit_Error(t *testing.T) {
	ratings, viewed := randomRatings(t, 5, 5, 0.5, 0)
	_, err := Split(ratings, viewed, SplitConfig{TestPercent: 80, ValidationPercent: 30}, base.NewRandomGenerator(0))
	assert.True(t, errors.Is(err, errors.NotValid))
	_, other := randomRatings(t, 5, 4, 0.5, 0)
	_, err = Split(ratings, other, SplitConfig{TestPercent: 20}, base.NewRandomGenerator(0))
	assert.True(t, errors.Is(err, matrix.ErrSchemaMismatch))
	// missing inputs
	_, err = Split(nil, viewed, SplitConfig{TestPercent: 20}, base.NewRandomGenerator(0))
	assert.True(t, errors.Is(err, matrix.ErrEmptyMatrix))
	_, err = Split(ratings, nil, SplitConfig{TestPercent: 20}, base.NewRandomGenerator(0))
	assert.True(t, errors.Is(err, matrix.ErrSchemaMismatch))
}

// lowRankRatings creates a users × movies matrix of rank 3. The first row is constant.
func lowRankRatings(t *testing.T, rows, cols int) *matrix.Matrix {
	rng := base.NewRandomGenerator(0)
	uniform := func(n int, low float64) []float64 {
		vec := make([]float64, n)
		for i := range vec {
			vec[i] = low + rng.Float64()
		}
		return vec
	}
	var values mat.Dense
	values.Mul(
		mat.NewDense(rows, 3, uniform(rows*3, 0)),
		mat.NewDense(3, cols, uniform(3*cols, 1)))
	for i := 0; i < cols; i++ {
		values.Set(0, i, 3)
	}
	ratings, err := matrix.FromDense(matrix.NewSchema(ids("u", rows), ids("m", cols)), &values)
	require.NoError(t, err)
	return ratings
}

func TestSVD_Reconstruct(t *testing.T) {
	train := lowRankRatings(t, 30, 20)
	// mark the first movie as viewed by everyone
	marks := make([]float64, 30*20)
	for u := 0; u < 30; u++ {
		marks[u*20] = 1
	}
	source, err := matrix.NewMatrix(train.Schema(), marks)
	require.NoError(t, err)
	viewed := matrix.NewViewed(source)

	svd := NewSVD(Params{NFactors: 5, NJobs: 4})
	require.NoError(t, svd.Fit(context.Background(), train))
	assert.Len(t, svd.UserMean, 30)
	assert.Len(t, svd.Sigma, 5)
	r, c := svd.UserFactor.Dims()
	assert.Equal(t, []int{30, 5}, []int{r, c})
	r, c = svd.ItemFactor.Dims()
	assert.Equal(t, []int{5, 20}, []int{r, c})
	assert.InDelta(t, 3, svd.UserMean[0], 1e-12)

	prediction, err := svd.Predict(viewed)
	require.NoError(t, err)
	assert.True(t, prediction.Schema() == train.Schema())
	for u := 0; u < 30; u++ {
		assert.Zero(t, prediction.At(u, 0))
		for i := 1; i < 20; i++ {
			assert.InDelta(t, train.At(u, i), prediction.At(u, i), 1e-6)
		}
	}
	// constant row reconstructs to its mean
	assert.InDelta(t, 3, prediction.At(0, 5), 1e-6)
}

func TestSVD_Suppression(t *testing.T) {
	ratings, viewed := randomRatings(t, 40, 30, 0.4, 0)
	partition, err := Split(ratings, viewed, SplitConfig{TestPercent: 20, ValidationPercent: 10}, base.NewRandomGenerator(0))
	require.NoError(t, err)
	svd := NewSVD(Params{NFactors: 10})
	require.NoError(t, svd.Fit(context.Background(), partition.Train))
	prediction, err := svd.Predict(viewed)
	require.NoError(t, err)
	rows, cols := prediction.Dims()
	for u := 0; u < rows; u++ {
		for i := 0; i < cols; i++ {
			if viewed.Test(u, i) {
				assert.Zero(t, prediction.At(u, i))
			}
		}
	}
}

func TestSVD_Deterministic(t *testing.T) {
	ratings, viewed := randomRatings(t, 40, 30, 0.4, 0)
	serial := NewSVD(Params{NFactors: 10, RandomState: int64(7)})
	require.NoError(t, serial.Fit(context.Background(), ratings))
	concurrent := NewSVD(Params{NFactors: 10, RandomState: int64(7), NJobs: 4})
	require.NoError(t, concurrent.Fit(context.Background(), ratings))
	a, err := serial.Predict(viewed)
	require.NoError(t, err)
	b, err := concurrent.Predict(viewed)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(a.Mat(), b.Mat(), 1e-12))
}

func TestSVD_Error(t *testing.T) {
	ratings, viewed := randomRatings(t, 5, 4, 1, 0)
	// rank must be smaller than min(rows, cols) - 1
	err := NewSVD(Params{NFactors: 3}).Fit(context.Background(), ratings)
	assert.True(t, errors.Is(err, ErrRankTooLarge))
	err = NewSVD(Params{NFactors: 4}).Fit(context.Background(), ratings)
	assert.True(t, errors.Is(err, ErrRankTooLarge))
	assert.NoError(t, NewSVD(Params{NFactors: 2}).Fit(context.Background(), ratings))
	err = NewSVD(Params{NFactors: 0}).Fit(context.Background(), ratings)
	assert.True(t, errors.Is(err, errors.NotValid))
	err = NewSVD(Params{}).Fit(context.Background(), nil)
	assert.True(t, errors.Is(err, matrix.ErrEmptyMatrix))

	// predict before fit
	svd := NewSVD(Params{NFactors: 2})
	_, err = svd.Predict(viewed)
	assert.True(t, errors.Is(err, ErrNotFitted))
	// predict with another schema
	require.NoError(t, svd.Fit(context.Background(), ratings))
	_, other := randomRatings(t, 5, 5, 1, 0)
	_, err = svd.Predict(other)
	assert.True(t, errors.Is(err, matrix.ErrSchemaMismatch))
	_, err = svd.Predict(nil)
	assert.True(t, errors.Is(err, matrix.ErrSchemaMismatch))
}

func TestSVD_MatchesFullDecomposition(t *testing.T) {
	const rank = 50
	ratings, _ := randomRatings(t, 200, 120, 0.3, 0)
	svd := NewSVD(Params{NFactors: rank})
	require.NoError(t, svd.Fit(context.Background(), ratings))

	// exact decomposition of the demeaned matrix
	centered := ratings.Dense()
	means := make([]float64, 200)
	for u := range means {
		row := centered.RawRowView(u)
		means[u] = floats.Sum(row) / 120
		floats.AddConst(-means[u], row)
	}
	var full mat.SVD
	require.True(t, full.Factorize(centered, mat.SVDThin))
	values := full.Values(nil)
	for k := 0; k < rank; k++ {
		assert.InDelta(t, values[k], svd.Sigma[k], 1e-3*values[k])
	}
	var u, v mat.Dense
	full.UTo(&u)
	full.VTo(&v)
	exact := (&linalg.TruncatedSVD{
		U:     mat.DenseCopyOf(u.Slice(0, 200, 0, rank)),
		Sigma: values[:rank],
		Vt:    mat.DenseCopyOf(v.Slice(0, 120, 0, rank).T()),
	}).Reconstruct()
	for r := range means {
		floats.AddConst(means[r], exact.RawRowView(r))
	}

	// nothing viewed, so every cell is predicted
	empty, err := matrix.NewMatrix(ratings.Schema(), make([]float64, 200*120))
	require.NoError(t, err)
	prediction, err := svd.Predict(matrix.NewViewed(empty))
	require.NoError(t, err)
	var diff mat.Dense
	diff.Sub(exact, prediction.Mat())
	assert.Less(t, mat.Norm(&diff, 2)/mat.Norm(exact, 2), 1e-2)
}

func TestSVD_Cancel(t *testing.T) {
	ratings, _ := randomRatings(t, 20, 20, 0.5, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewSVD(Params{NFactors: 5}).Fit(ctx, ratings)
	assert.ErrorIs(t, err, context.Canceled)
}
