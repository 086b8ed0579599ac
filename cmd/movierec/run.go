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

package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"

	"github.com/gorse-io/movierec/base/log"
	"github.com/gorse-io/movierec/dataset"
	"github.com/gorse-io/movierec/pipeline"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Build the ratings matrix, split it and predict unseen ratings",
	Run: func(cmd *cobra.Command, args []string) {
		conf := loadConfig(cmd)
		ratingsPath, _ := cmd.Flags().GetString("ratings")
		outputDir, _ := cmd.Flags().GetString("output")
		metricsPath, _ := cmd.Flags().GetString("metrics")

		events, err := loadRatings(ratingsPath)
		if err != nil {
			log.Logger().Fatal("failed to load ratings", zap.String("path", ratingsPath), zap.Error(err))
		}
		log.Logger().Info("load ratings", zap.String("path", ratingsPath), zap.Int("n_events", len(events)))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		result, err := pipeline.NewPipeline(pipeline.NewConfig(conf)).Run(ctx, events)
		stop()
		if err != nil {
			log.Logger().Fatal("failed to run pipeline", zap.Error(err))
		}
		if err = result.Save(outputDir); err != nil {
			log.Logger().Fatal("failed to save tables", zap.String("output", outputDir), zap.Error(err))
		}
		if metricsPath != "" {
			if err = pipeline.WriteMetrics(metricsPath); err != nil {
				log.Logger().Fatal("failed to write metrics", zap.String("path", metricsPath), zap.Error(err))
			}
		}
		if err = printResult(result); err != nil {
			log.Logger().Fatal("failed to print summary", zap.Error(err))
		}
	},
}

func init() {
	runCommand.Flags().String("ratings", "ratings.csv", "path of the ratings file")
	runCommand.Flags().StringP("output", "o", "output", "directory of the output tables")
	runCommand.Flags().String("metrics", "", "path of the Prometheus textfile")
	rootCommand.AddCommand(runCommand)
}

func loadRatings(path string) ([]dataset.Event, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return nil, errors.Trace(err)
	}
	reader := progressbar.NewReader(file, progressbar.DefaultBytes(info.Size(), "Loading ratings"))
	return dataset.ReadRatings(&reader)
}

func printResult(result *pipeline.Result) error {
	summary := tablewriter.NewWriter(os.Stdout)
	summary.Header("statistic", "value")
	for _, row := range [][]string{
		{"run id", result.RunId},
		{"users", strconv.Itoa(result.Stats.Users)},
		{"movies", strconv.Itoa(result.Stats.Movies)},
		{"viewed cells", strconv.Itoa(result.Stats.ViewedCells)},
		{"train cells", strconv.Itoa(result.Stats.TrainCells)},
		{"test cells", strconv.Itoa(result.Stats.TestCells)},
		{"validation cells", strconv.Itoa(result.Stats.ValidationCells)},
	} {
		if err := summary.Append(row); err != nil {
			return errors.Trace(err)
		}
	}
	if err := summary.Render(); err != nil {
		return errors.Trace(err)
	}

	stages := tablewriter.NewWriter(os.Stdout)
	stages.Header("stage", "status", "elapsed")
	for _, p := range result.Progress {
		if err := stages.Append([]string{p.Name, string(p.Status), p.Elapsed().String()}); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(stages.Render())
}
