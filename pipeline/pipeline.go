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
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/gorse-io/movierec/base"
	"github.com/gorse-io/movierec/base/log"
	"github.com/gorse-io/movierec/base/progress"
	"github.com/gorse-io/movierec/config"
	"github.com/gorse-io/movierec/dataset"
	"github.com/gorse-io/movierec/matrix"
	"github.com/gorse-io/movierec/model"
	"github.com/juju/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	StageBuildMatrix = "build_matrix"
	StageSplit       = "split"
	StageFit         = "fit"
	StagePredict     = "predict"
)

// Config holds the settings of all stages.
type Config struct {
	Build            matrix.BuildConfig
	Split            model.SplitConfig
	SplitRandomState *int64 // nil seeds the split by the clock
	Params           model.Params
}

// NewConfig extracts the stage settings from the configuration file.
func NewConfig(cfg *config.Config) Config {
	return Config{
		Build: matrix.BuildConfig{
			MinMoviePopularity: cfg.Data.MinMoviePopularity,
			MinUserActivity:    cfg.Data.MinUserActivity,
		},
		Split: model.SplitConfig{
			TestPercent:       cfg.Split.TestPercent,
			ValidationPercent: cfg.Split.ValidationPercent,
		},
		SplitRandomState: cfg.Split.RandomState,
		Params:           model.NewParamsFromConfig(cfg.Model),
	}
}

// Pipeline builds the ratings matrix, splits it and predicts unseen ratings.
type Pipeline struct {
	config Config
	tracer trace.Tracer
}

func NewPipeline(config Config) *Pipeline {
	return &Pipeline{
		config: config,
		tracer: otel.Tracer("movierec/pipeline"),
	}
}

// Stats summarizes a run.
type Stats struct {
	Users           int
	Movies          int
	ViewedCells     int
	TrainCells      int
	TestCells       int
	ValidationCells int
}

// Result holds everything a run computed.
type Result struct {
	RunId      string
	Ratings    *matrix.Matrix
	Viewed     *matrix.Viewed
	Partition  *model.Partition
	Model      *model.SVD
	Prediction *matrix.Matrix
	Stats      Stats
	Progress   []progress.Progress
}

// Run executes all stages on events. The first failed stage aborts the run and its error is
// annotated with the stage name.
func (p *Pipeline) Run(ctx context.Context, events []dataset.Event) (*Result, error) {
	r := &run{
		id:       uuid.New().String(),
		tracer:   p.tracer,
		progress: progress.NewTracer("pipeline"),
	}
	result := &Result{RunId: r.id}
	log.Logger().Info("start pipeline", zap.String("run_id", r.id), zap.Int("n_events", len(events)))

	// build ratings matrix
	if err := r.track(ctx, StageBuildMatrix, func(context.Context) (err error) {
		result.Ratings, result.Viewed, err = matrix.Build(events, p.config.Build)
		return err
	}); err != nil {
		return nil, err
	}
	result.Stats.Users, result.Stats.Movies = result.Ratings.Dims()
	result.Stats.ViewedCells = result.Viewed.Count()
	MatrixUsers.Set(float64(result.Stats.Users))
	MatrixMovies.Set(float64(result.Stats.Movies))
	ViewedCells.Set(float64(result.Stats.ViewedCells))

	// split ratings matrix
	if err := r.track(ctx, StageSplit, func(context.Context) (err error) {
		rng := base.NewRandomGeneratorFromClock()
		if p.config.SplitRandomState != nil {
			rng = base.NewRandomGenerator(*p.config.SplitRandomState)
		}
		result.Partition, err = model.Split(result.Ratings, result.Viewed, p.config.Split, rng)
		return err
	}); err != nil {
		return nil, err
	}
	result.Stats.TrainCells = result.Partition.Train.CountNonZero()
	result.Stats.TestCells = result.Partition.Test.CountNonZero()
	result.Stats.ValidationCells = result.Partition.Validation.CountNonZero()
	PartitionCellsVec.WithLabelValues("train").Set(float64(result.Stats.TrainCells))
	PartitionCellsVec.WithLabelValues("test").Set(float64(result.Stats.TestCells))
	PartitionCellsVec.WithLabelValues("validation").Set(float64(result.Stats.ValidationCells))

	// fit model
	result.Model = model.NewSVD(p.config.Params)
	log.Logger().Info("fit model", zap.String("run_id", r.id), zap.String("params", result.Model.GetParams().ToString()))
	if err := r.track(ctx, StageFit, func(ctx context.Context) error {
		return result.Model.Fit(ctx, result.Partition.Train)
	}); err != nil {
		return nil, err
	}

	// predict unseen ratings
	if err := r.track(ctx, StagePredict, func(context.Context) (err error) {
		result.Prediction, err = result.Model.Predict(result.Viewed)
		return err
	}); err != nil {
		return nil, err
	}

	result.Progress = r.progress.List()
	log.Logger().Info("complete pipeline", zap.String("run_id", r.id), zap.Any("stats", result.Stats))
	return result, nil
}

type run struct {
	id       string
	tracer   trace.Tracer
	progress *progress.Tracer
}

// track runs a stage inside a trace span and a progress span. The elapsed time is logged and
// exported to StageSecondsVec.
func (r *run) track(ctx context.Context, stage string, fn func(ctx context.Context) error) error {
	ctx, span := r.tracer.Start(ctx, stage, trace.WithAttributes(attribute.String("run_id", r.id)))
	defer span.End()
	ctx, stageSpan := r.progress.Start(ctx, stage, 1)

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	StageSecondsVec.WithLabelValues(stage).Set(elapsed.Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		progress.Fail(ctx, err)
		log.Logger().Error("stage failed", zap.String("run_id", r.id), zap.String("stage", stage),
			zap.Duration("elapsed", elapsed), zap.Error(err))
		return errors.Annotate(err, stage)
	}
	stageSpan.End()
	log.Logger().Info("stage complete", zap.String("run_id", r.id), zap.String("stage", stage),
		zap.Duration("elapsed", elapsed))
	return nil
}

type table interface {
	WriteCSV(w io.Writer) error
}

// Save writes all matrices of the result into dir as CSV files.
func (result *Result) Save(dir string) error {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return errors.Trace(err)
	}
	tables := []struct {
		name  string
		table table
	}{
		{"ratings_table.csv", result.Ratings},
		{"viewed_table.csv", result.Viewed},
		{"train_table.csv", result.Partition.Train},
		{"test_table.csv", result.Partition.Test},
		{"validation_table.csv", result.Partition.Validation},
		{"prediction_table.csv", result.Prediction},
	}
	for _, t := range tables {
		if err := saveTable(filepath.Join(dir, t.name), t.table); err != nil {
			return errors.Annotatef(err, "failed to save %s", t.name)
		}
	}
	return nil
}

func saveTable(path string, t table) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Trace(err)
	}
	if err = t.WriteCSV(file); err != nil {
		_ = file.Close()
		return errors.Trace(err)
	}
	return errors.Trace(file.Close())
}
