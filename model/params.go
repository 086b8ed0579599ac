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

package model

import (
	"encoding/json"
	"reflect"

	"github.com/gorse-io/movierec/base/log"
	"github.com/gorse-io/movierec/config"
	"go.uber.org/zap"
)

/* ParamName */

// ParamName is the type of hyper-parameter names.
type ParamName string

// Predefined hyper-parameter names
const (
	NFactors     ParamName = "NFactors"     // rank of the factorization
	NOversamples ParamName = "NOversamples" // extra columns of the random sketch
	NPowerIters  ParamName = "NPowerIters"  // number of power iterations
	RandomState  ParamName = "RandomState"  // random state (seed)
	NJobs        ParamName = "NJobs"        // number of workers
)

// Params stores hyper-parameters for an model. It is a map between strings
// (names) and interface{}s (values). For example, hyper-parameters for SVD
// is given by:
//
//	model.Params{
//		model.NFactors:    50,
//		model.NPowerIters: 10,
//		model.RandomState: 0,
//	}
type Params map[ParamName]interface{}

// GetInt gets a integer parameter by name. Returns _default if not exists or type doesn't match.
func (parameters Params) GetInt(name ParamName, _default int) int {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case int:
			return val
		default:
			log.Logger().Error("type mismatch",
				zap.String("param", string(name)),
				zap.String("expect", "int"),
				zap.String("actual", reflect.TypeOf(val).String()))
		}
	}
	return _default
}

// GetInt64 gets a int64 parameter by name. Returns _default if not exists or type doesn't match. The
// type will be converted if given int.
func (parameters Params) GetInt64(name ParamName, _default int64) int64 {
	if val, exist := parameters[name]; exist {
		switch val := val.(type) {
		case int64:
			return val
		case int:
			return int64(val)
		default:
			log.Logger().Error("type mismatch",
				zap.String("param", string(name)),
				zap.String("expect", "int64"),
				zap.String("actual", reflect.TypeOf(val).String()))
		}
	}
	return _default
}

func (parameters Params) ToString() string {
	b, err := json.Marshal(parameters)
	if err != nil {
		log.Logger().Fatal("failed to marshal params", zap.Error(err))
	}
	return string(b)
}

// NewParamsFromConfig creates hyper-parameters from the model section of the config.
func NewParamsFromConfig(cfg config.ModelConfig) Params {
	return Params{
		NFactors:     cfg.SVDRank,
		NOversamples: cfg.NOversamples,
		NPowerIters:  cfg.NPowerIters,
		RandomState:  cfg.RandomState,
		NJobs:        cfg.NJobs,
	}
}
