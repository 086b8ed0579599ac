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

package dataset

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/gorse-io/movierec/base"
	"github.com/juju/errors"
)

// Writer appends events of one type to a table. It is safe for concurrent use.
type Writer struct {
	eventType EventType
	mu        sync.Mutex
	buf       *bufio.Writer
	closer    io.Closer
	count     int
}

// NewRatingsWriter creates a writer for rating events and writes the header.
func NewRatingsWriter(w io.Writer) (*Writer, error) {
	return newWriter(w, RateEvent)
}

// NewViewsWriter creates a writer for view events and writes the header.
func NewViewsWriter(w io.Writer) (*Writer, error) {
	return newWriter(w, ViewEvent)
}

// CreateWriter creates (or truncates) the file at path and returns a writer for events of the given type.
func CreateWriter(path string, eventType EventType) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	w, err := newWriter(file, eventType)
	if err != nil {
		_ = file.Close()
		return nil, errors.Trace(err)
	}
	return w, nil
}

func newWriter(w io.Writer, eventType EventType) (*Writer, error) {
	writer := &Writer{
		eventType: eventType,
		buf:       bufio.NewWriter(w),
	}
	if closer, ok := w.(io.Closer); ok {
		writer.closer = closer
	}
	header := ratingsHeader
	if eventType == ViewEvent {
		header = viewsHeader
	}
	if _, err := writer.buf.WriteString(strings.Join(header, ",") + "\n"); err != nil {
		return nil, errors.Trace(err)
	}
	return writer, nil
}

// Write appends an event as a row.
func (w *Writer) Write(event Event) error {
	if event.Type != w.eventType {
		return errors.NotValidf("%v event for %v table", event.Type, w.eventType)
	}
	fields := []string{
		event.Timestamp.Format(timeLayout),
		base.Escape(event.UserId),
		base.Escape(event.MovieId),
	}
	if event.Type == RateEvent {
		fields = append(fields, strconv.FormatFloat(event.Rating, 'g', -1, 64))
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.buf.WriteString(strings.Join(fields, ",") + "\n"); err != nil {
		return errors.Trace(err)
	}
	w.count++
	return nil
}

// Count returns the number of rows written, excluding the header.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Flush writes buffered rows to the underlying writer.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return errors.Trace(w.buf.Flush())
}

// Close flushes buffered rows and closes the underlying writer if it is closable.
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}
	if w.closer != nil {
		return errors.Trace(w.closer.Close())
	}
	return nil
}
