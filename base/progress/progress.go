// Copyright 2023 gorse Project Authors
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

package progress

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type spanKeyType string

var spanKeyName = spanKeyType(uuid.New().String())

type Status string

const (
	StatusRunning  Status = "Running"
	StatusComplete Status = "Complete"
	StatusFailed   Status = "Failed"
)

// Tracer records the progress of the stages of a job.
type Tracer struct {
	name  string
	seq   atomic.Int64
	spans sync.Map
}

func NewTracer(name string) *Tracer {
	return &Tracer{name: name}
}

// Start creates a span. The span is attached to the returned context.
func (t *Tracer) Start(ctx context.Context, name string, total int) (context.Context, *Span) {
	span := &Span{
		name:   name,
		seq:    t.seq.Add(1),
		status: StatusRunning,
		total:  total,
		start:  time.Now(),
	}
	t.spans.Store(name, span)
	return context.WithValue(ctx, spanKeyName, span), span
}

// List returns the progress of all spans in the order they were started.
func (t *Tracer) List() []Progress {
	var spans []*Span
	t.spans.Range(func(key, value interface{}) bool {
		spans = append(spans, value.(*Span))
		return true
	})
	sort.Slice(spans, func(i, j int) bool {
		return spans[i].seq < spans[j].seq
	})
	progress := make([]Progress, len(spans))
	for i, span := range spans {
		progress[i] = span.Progress(t.name)
	}
	return progress
}

type Span struct {
	mu     sync.Mutex
	name   string
	seq    int64
	status Status
	total  int
	count  int
	err    string
	start  time.Time
	finish time.Time
}

func (s *Span) Add(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count += n
}

func (s *Span) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusRunning {
		s.status = StatusComplete
		s.count = s.total
		s.finish = time.Now()
	}
}

func (s *Span) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusFailed
	s.err = err.Error()
	if s.finish.IsZero() {
		s.finish = time.Now()
	}
}

func (s *Span) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *Span) Progress(tracer string) Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Progress{
		Tracer:     tracer,
		Name:       s.name,
		Status:     s.status,
		Error:      s.err,
		Count:      s.count,
		Total:      s.total,
		StartTime:  s.start,
		FinishTime: s.finish,
	}
}

// Fail marks the span attached to ctx as failed.
func Fail(ctx context.Context, err error) {
	if span, ok := ctx.Value(spanKeyName).(*Span); ok {
		span.Fail(err)
	}
}

type Progress struct {
	Tracer     string
	Name       string
	Status     Status
	Error      string
	Count      int
	Total      int
	StartTime  time.Time
	FinishTime time.Time
}

// Elapsed returns the duration of the span. Running spans are measured until now.
func (p Progress) Elapsed() time.Duration {
	if p.FinishTime.IsZero() {
		return time.Since(p.StartTime)
	}
	return p.FinishTime.Sub(p.StartTime)
}
