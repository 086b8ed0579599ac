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

package pipeline

import (
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	LabelStage     = "stage"
	LabelPartition = "partition"
)

var (
	StageSecondsVec = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "movierec",
		Subsystem: "pipeline",
		Name:      "stage_seconds",
	}, []string{LabelStage})
	MatrixUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "movierec",
		Subsystem: "pipeline",
		Name:      "matrix_users",
	})
	MatrixMovies = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "movierec",
		Subsystem: "pipeline",
		Name:      "matrix_movies",
	})
	ViewedCells = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "movierec",
		Subsystem: "pipeline",
		Name:      "viewed_cells",
	})
	PartitionCellsVec = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "movierec",
		Subsystem: "pipeline",
		Name:      "partition_cells",
	}, []string{LabelPartition})
)

// WriteMetrics dumps all registered metrics to path in the Prometheus text format.
func WriteMetrics(path string) error {
	return errors.Trace(prometheus.WriteToTextfile(path, prometheus.DefaultGatherer))
}
