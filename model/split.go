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
	"github.com/gorse-io/movierec/base"
	"github.com/gorse-io/movierec/matrix"
	"github.com/juju/errors"
)

// SplitConfig holds the percentages of cells routed to test and validation. The rest goes to train.
type SplitConfig struct {
	TestPercent       int
	ValidationPercent int
}

// TrainPercent returns the percentage of cells routed to train.
func (config SplitConfig) TrainPercent() int {
	return 100 - config.TestPercent - config.ValidationPercent
}

// Validate checks that both percentages are in [0, 100] and their sum is at most 100.
func (config SplitConfig) Validate() error {
	if config.TestPercent < 0 || config.TestPercent > 100 {
		return errors.NotValidf("test percent %d", config.TestPercent)
	}
	if config.ValidationPercent < 0 || config.ValidationPercent > 100 {
		return errors.NotValidf("validation percent %d", config.ValidationPercent)
	}
	if config.TestPercent+config.ValidationPercent > 100 {
		return errors.NotValidf("test percent %d plus validation percent %d", config.TestPercent, config.ValidationPercent)
	}
	return nil
}

// Partition is the result of splitting a ratings matrix. Every viewed rating appears in exactly
// one of the three matrices and is zero in the other two.
type Partition struct {
	Train      *matrix.Matrix
	Test       *matrix.Matrix
	Validation *matrix.Matrix
}

// Split routes every cell of ratings independently to train, test or validation. A number d is
// drawn uniformly from [0, 100) for each cell in row-major order, viewed or not:
//
//	d < train                     train
//	train <= d < 100 - validation test
//	otherwise                     validation
//
// Only viewed cells carry their rating into the chosen partition.
func Split(ratings *matrix.Matrix, viewed *matrix.Viewed, config SplitConfig, rng base.RandomGenerator) (*Partition, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	if ratings == nil {
		return nil, errors.Annotate(matrix.ErrEmptyMatrix, "ratings")
	}
	if viewed == nil {
		return nil, errors.Annotate(matrix.ErrSchemaMismatch, "viewed")
	}
	if err := matrix.CheckSchema(ratings.Schema(), viewed.Schema()); err != nil {
		return nil, errors.Trace(err)
	}
	trainPercent := config.TrainPercent()
	testBound := 100 - config.ValidationPercent
	rows, cols := ratings.Dims()
	train := make([]float64, rows*cols)
	test := make([]float64, rows*cols)
	validation := make([]float64, rows*cols)
	for u := 0; u < rows; u++ {
		for i := 0; i < cols; i++ {
			d := rng.Intn(100)
			if !viewed.Test(u, i) {
				continue
			}
			k := u*cols + i
			switch {
			case d < trainPercent:
				train[k] = ratings.At(u, i)
			case d < testBound:
				test[k] = ratings.At(u, i)
			default:
				validation[k] = ratings.At(u, i)
			}
		}
	}
	var (
		partition Partition
		err       error
	)
	if partition.Train, err = matrix.NewMatrix(ratings.Schema(), train); err != nil {
		return nil, errors.Trace(err)
	}
	if partition.Test, err = matrix.NewMatrix(ratings.Schema(), test); err != nil {
		return nil, errors.Trace(err)
	}
	if partition.Validation, err = matrix.NewMatrix(ratings.Schema(), validation); err != nil {
		return nil, errors.Trace(err)
	}
	return &partition, nil
}
