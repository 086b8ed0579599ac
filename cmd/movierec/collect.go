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
	"io"
	"os"
	"os/signal"
	"strconv"

	"github.com/gorse-io/movierec/base/log"
	"github.com/gorse-io/movierec/collect"
	"github.com/gorse-io/movierec/dataset"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var collectCommand = &cobra.Command{
	Use:   "collect",
	Short: "Collect rating and view events from the movie log",
	Run: func(cmd *cobra.Command, args []string) {
		conf := loadConfig(cmd)
		ratingsPath, _ := cmd.Flags().GetString("ratings")
		viewsPath, _ := cmd.Flags().GetString("views")

		ratings, err := dataset.CreateWriter(ratingsPath, dataset.RateEvent)
		if err != nil {
			log.Logger().Fatal("failed to create ratings file", zap.String("path", ratingsPath), zap.Error(err))
		}
		views, err := dataset.CreateWriter(viewsPath, dataset.ViewEvent)
		if err != nil {
			log.Logger().Fatal("failed to create views file", zap.String("path", viewsPath), zap.Error(err))
		}
		sub, err := collect.NewNATSSubscriber(conf.Collect, log.WatermillLogger())
		if err != nil {
			log.Logger().Fatal("failed to create subscriber", zap.Error(err))
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		stats, err := collect.NewCollector(sub, ratings, views, conf.Collect.IdleTimeout).Run(ctx, conf.Collect.Topic)
		stop()
		if closeErr := sub.Close(); closeErr != nil {
			log.Logger().Warn("failed to close subscriber", zap.Error(closeErr))
		}
		if closeErr := ratings.Close(); closeErr != nil {
			log.Logger().Fatal("failed to close ratings file", zap.Error(closeErr))
		}
		if closeErr := views.Close(); closeErr != nil {
			log.Logger().Fatal("failed to close views file", zap.Error(closeErr))
		}
		if err != nil {
			log.Logger().Fatal("failed to collect events", zap.Error(err))
		}

		if err = printStats(os.Stdout, stats); err != nil {
			log.Logger().Fatal("failed to print summary", zap.Error(err))
		}
	},
}

func printStats(w io.Writer, stats collect.Stats) error {
	table := tablewriter.NewWriter(w)
	table.Header("kind", "count")
	for _, row := range [][]string{
		{"ratings", strconv.Itoa(stats.Ratings)},
		{"views", strconv.Itoa(stats.Views)},
		{"skipped", strconv.Itoa(stats.Skipped)},
		{"malformed", strconv.Itoa(stats.Malformed)},
	} {
		if err := table.Append(row); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(table.Render())
}

var replayCommand = &cobra.Command{
	Use:   "replay",
	Short: "Publish a recorded movie log to the topic",
	Run: func(cmd *cobra.Command, args []string) {
		conf := loadConfig(cmd)
		logPath, _ := cmd.Flags().GetString("log")

		file, err := os.Open(logPath)
		if err != nil {
			log.Logger().Fatal("failed to open log", zap.String("path", logPath), zap.Error(err))
		}
		defer file.Close()
		pub, err := collect.NewNATSPublisher(conf.Collect, log.WatermillLogger())
		if err != nil {
			log.Logger().Fatal("failed to create publisher", zap.Error(err))
		}
		defer pub.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		count, err := collect.Replay(ctx, pub, conf.Collect.Topic, file)
		if err != nil {
			log.Logger().Error("failed to replay log", zap.Int("n_published", count), zap.Error(err))
			return
		}
		log.Logger().Info("replay log", zap.String("path", logPath), zap.Int("n_published", count))
	},
}

func init() {
	collectCommand.Flags().String("ratings", "ratings.csv", "path of the ratings file")
	collectCommand.Flags().String("views", "views.csv", "path of the views file")
	replayCommand.Flags().String("log", "movielog.csv", "path of the recorded movie log")
	rootCommand.AddCommand(collectCommand, replayCommand)
}
