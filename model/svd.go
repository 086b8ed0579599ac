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
	"time"

	"github.com/gorse-io/movierec/base"
	"github.com/gorse-io/movierec/base/log"
	"github.com/gorse-io/movierec/common/linalg"
	"github.com/gorse-io/movierec/common/parallel"
	"github.com/gorse-io/movierec/matrix"
	"github.com/juju/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	// ErrRankTooLarge is returned when the rank is not smaller than min(rows, cols) - 1.
	ErrRankTooLarge = errors.ConstError("rank too large")
	// ErrNotFitted is returned when predicting with a model that has not been fitted.
	ErrNotFitted = errors.ConstError("model not fitted")
)

// SVD predicts ratings by a truncated singular value decomposition of the demeaned train
// matrix. The prediction \hat{r}_{ui} is set as:
//
//	\hat{r}_{ui} = \bar{r}_u + \sum_k U_{uk} σ_k Vt_{ki}
//
// where \bar{r}_u is the mean of row u over all movies, unrated ones included. Predictions
// of movies a user has already viewed are zero.
type SVD struct {
	Params Params
	// Model parameters
	UserMean   []float64  // \bar{r}_u
	UserFactor *mat.Dense // U
	Sigma      []float64  // σ
	ItemFactor *mat.Dense // Vt
	schema     *matrix.Schema
	// Hyper parameters
	nFactors     int
	nOversamples int
	nPowerIters  int
	randomState  int64
	nJobs        int
}

// NewSVD creates a SVD model. Params:
//
//	NFactors     - The rank of the factorization. Default is 50.
//	NOversamples - The number of extra columns of the random sketch. Default is 30.
//	NPowerIters  - The maximum number of power iterations of the range finder. Default is 10.
//	RandomState  - The seed of the random sketch. Default is 0.
//	NJobs        - The number of workers. Default is 1.
func NewSVD(params Params) *SVD {
	svd := new(SVD)
	svd.SetParams(params)
	return svd
}

func (svd *SVD) SetParams(params Params) {
	svd.Params = params
	svd.nFactors = params.GetInt(NFactors, 50)
	svd.nOversamples = params.GetInt(NOversamples, 30)
	svd.nPowerIters = params.GetInt(NPowerIters, 10)
	svd.randomState = params.GetInt64(RandomState, 0)
	svd.nJobs = params.GetInt(NJobs, 1)
}

func (svd *SVD) GetParams() Params {
	return svd.Params
}

// IsFitted returns true if the model has been fitted.
func (svd *SVD) IsFitted() bool {
	return svd.schema != nil
}

// Fit factorizes the train matrix.
func (svd *SVD) Fit(ctx context.Context, train *matrix.Matrix) error {
	if train == nil {
		return errors.Annotate(matrix.ErrEmptyMatrix, "train")
	}
	rows, cols := train.Dims()
	if rows == 0 || cols == 0 {
		return errors.Annotatef(matrix.ErrEmptyMatrix, "train %d × %d", rows, cols)
	}
	if svd.nFactors < 1 {
		return errors.NotValidf("rank %d", svd.nFactors)
	}
	if svd.nFactors >= min(rows, cols)-1 {
		return errors.Annotatef(ErrRankTooLarge, "rank %d for %d × %d", svd.nFactors, rows, cols)
	}
	start := time.Now()

	// demean
	centered := train.Dense()
	means := make([]float64, rows)
	if err := parallel.Parallel(ctx, rows, svd.nJobs, func(_, u int) error {
		row := centered.RawRowView(u)
		means[u] = floats.Sum(row) / float64(cols)
		floats.AddConst(-means[u], row)
		return nil
	}); err != nil {
		return errors.Trace(err)
	}

	// factorize
	factorizer := linalg.NewTruncatedSVD(svd.nFactors, svd.nOversamples, svd.nPowerIters)
	if err := factorizer.Factorize(centered, base.NewRandomGenerator(svd.randomState)); err != nil {
		return errors.Trace(err)
	}
	if err := ctx.Err(); err != nil {
		return errors.Trace(err)
	}
	svd.UserMean = means
	svd.UserFactor = factorizer.U
	svd.Sigma = factorizer.Sigma
	svd.ItemFactor = factorizer.Vt
	svd.schema = train.Schema()
	log.Logger().Debug("fit svd",
		zap.Int("n_users", rows),
		zap.Int("n_movies", cols),
		zap.Int("n_factors", svd.nFactors),
		zap.Float64("top_singular_value", svd.Sigma[0]),
		zap.Duration("time_used", time.Since(start)))
	return nil
}

// Predict reconstructs the ratings matrix. Cells viewed by the user are set to zero.
func (svd *SVD) Predict(viewed *matrix.Viewed) (*matrix.Matrix, error) {
	if !svd.IsFitted() {
		return nil, errors.Trace(ErrNotFitted)
	}
	if viewed == nil {
		return nil, errors.Annotate(matrix.ErrSchemaMismatch, "viewed")
	}
	if err := matrix.CheckSchema(svd.schema, viewed.Schema()); err != nil {
		return nil, errors.Trace(err)
	}
	rows, _ := svd.schema.Dims()
	factorization := linalg.TruncatedSVD{U: svd.UserFactor, Sigma: svd.Sigma, Vt: svd.ItemFactor}
	prediction := factorization.Reconstruct()
	// add means and suppress viewed movies
	parallel.For(rows, svd.nJobs, func(u int) {
		row := prediction.RawRowView(u)
		for i := range row {
			if viewed.Test(u, i) {
				row[i] = 0
			} else {
				row[i] += svd.UserMean[u]
			}
		}
	})
	return matrix.FromDense(svd.schema, prediction)
}
