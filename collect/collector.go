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

package collect

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gorse-io/movierec/base/log"
	"github.com/gorse-io/movierec/dataset"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// Stats counts the messages consumed by a collector.
type Stats struct {
	Ratings   int
	Views     int
	Skipped   int
	Malformed int
}

// Total returns the number of consumed messages.
func (s Stats) Total() int {
	return s.Ratings + s.Views + s.Skipped + s.Malformed
}

// Collector consumes the movie log and appends ratings and views to tables.
type Collector struct {
	subscriber message.Subscriber
	ratings    *dataset.Writer
	views      *dataset.Writer
	idle       time.Duration
}

// NewCollector creates a collector. Collection stops once no message arrives for idle.
func NewCollector(sub message.Subscriber, ratings, views *dataset.Writer, idle time.Duration) *Collector {
	return &Collector{
		subscriber: sub,
		ratings:    ratings,
		views:      views,
		idle:       idle,
	}
}

// Run consumes messages of topic until ctx is done or the log has been idle. Malformed
// messages are acknowledged and counted. Tables are flushed before returning.
func (c *Collector) Run(ctx context.Context, topic string) (Stats, error) {
	var stats Stats
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	messages, err := c.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return stats, errors.Annotatef(err, "failed to subscribe to %v", topic)
	}
	log.Logger().Info("start collecting", zap.String("topic", topic), zap.Duration("idle_timeout", c.idle))

	timer := time.NewTimer(c.idle)
	defer timer.Stop()
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-timer.C:
			log.Logger().Info("movie log is idle", zap.String("topic", topic))
			break loop
		case msg, ok := <-messages:
			if !ok {
				break loop
			}
			if err = c.handle(msg, &stats); err != nil {
				msg.Nack()
				if flushErr := c.flush(); flushErr != nil {
					log.Logger().Error("failed to flush tables", zap.Error(flushErr))
				}
				return stats, err
			}
			msg.Ack()
			timer.Reset(c.idle)
		}
	}
	if err = c.flush(); err != nil {
		return stats, err
	}
	log.Logger().Info("complete collecting",
		zap.Int("n_ratings", stats.Ratings),
		zap.Int("n_views", stats.Views),
		zap.Int("n_skipped", stats.Skipped),
		zap.Int("n_malformed", stats.Malformed))
	return stats, nil
}

func (c *Collector) handle(msg *message.Message, stats *Stats) error {
	event, ok, err := ParseLine(string(msg.Payload))
	if err != nil {
		log.Logger().Warn("malformed message",
			zap.String("uuid", msg.UUID),
			zap.String("payload", string(msg.Payload)),
			zap.Error(err))
		stats.Malformed++
		MessagesTotal.WithLabelValues(KindMalformed).Inc()
		return nil
	}
	if !ok {
		stats.Skipped++
		MessagesTotal.WithLabelValues(KindSkipped).Inc()
		return nil
	}
	switch event.Type {
	case dataset.RateEvent:
		if err = c.ratings.Write(event); err != nil {
			return errors.Trace(err)
		}
		stats.Ratings++
		MessagesTotal.WithLabelValues(KindRate).Inc()
	case dataset.ViewEvent:
		if err = c.views.Write(event); err != nil {
			return errors.Trace(err)
		}
		stats.Views++
		MessagesTotal.WithLabelValues(KindView).Inc()
	}
	return nil
}

func (c *Collector) flush() error {
	if err := c.ratings.Flush(); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(c.views.Flush())
}
