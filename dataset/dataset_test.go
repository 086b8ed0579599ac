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
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRatings(t *testing.T) {
	events, err := ReadRatings(strings.NewReader("time,userid,movieid,rating\n" +
		"2021-03-21T12:45:07,1,the+matrix+1999,4\n" +
		"\n" +
		"2021-03-21 12:46:00, 2 ,\"heat,1995\",3.5\n"))
	require.NoError(t, err)
	assert.Equal(t, []Event{
		NewRateEvent(time.Date(2021, 3, 21, 12, 45, 7, 0, time.UTC), "1", "the+matrix+1999", 4),
		NewRateEvent(time.Date(2021, 3, 21, 12, 46, 0, 0, time.UTC), "2", "heat,1995", 3.5),
	}, events)
}

func TestReadViews(t *testing.T) {
	events, err := ReadViews(strings.NewReader("time,userid,movieid\n" +
		"2021-03-21T12:45:07,1,the+matrix+1999\n"))
	require.NoError(t, err)
	assert.Equal(t, []Event{
		NewViewEvent(time.Date(2021, 3, 21, 12, 45, 7, 0, time.UTC), "1", "the+matrix+1999"),
	}, events)
}

func TestReadRatings_Malformed(t *testing.T) {
	// wrong header
	_, err := ReadRatings(strings.NewReader("time,userid,movieid\n"))
	assert.True(t, errors.Is(err, errors.NotValid))
	// wrong number of fields
	_, err = ReadRatings(strings.NewReader("time,userid,movieid,rating\n2021-03-21T12:45:07,1,2\n"))
	assert.True(t, errors.Is(err, errors.NotValid))
	assert.Contains(t, err.Error(), "line 2")
	// bad timestamp
	_, err = ReadRatings(strings.NewReader("time,userid,movieid,rating\nyesterday,1,2,3\n"))
	assert.ErrorContains(t, err, "failed to parse datetime `yesterday` at line 2")
	// bad rating
	_, err = ReadRatings(strings.NewReader("time,userid,movieid,rating\n" +
		"2021-03-21T12:45:07,1,2,3\n" +
		"2021-03-21T12:45:07,1,2,good\n"))
	assert.ErrorContains(t, err, "failed to parse rating `good` at line 3")
	// bad movie id
	_, err = ReadRatings(strings.NewReader("time,userid,movieid,rating\n2021-03-21T12:45:07,1,a/b,3\n"))
	assert.ErrorContains(t, err, "invalid movie id `a/b` at line 2")
}

func TestWriter(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	w, err := NewRatingsWriter(buf)
	require.NoError(t, err)
	timestamp := time.Date(2021, 3, 21, 12, 45, 7, 0, time.UTC)
	ratings := []Event{
		NewRateEvent(timestamp, "1", "heat,1995", 3.5),
		NewRateEvent(timestamp, "2", "say \"hi\"", 5),
	}
	for _, event := range ratings {
		require.NoError(t, w.Write(event))
	}
	// view events are rejected by a ratings table
	assert.True(t, errors.Is(w.Write(NewViewEvent(timestamp, "1", "2")), errors.NotValid))
	require.NoError(t, w.Close())
	assert.Equal(t, 2, w.Count())
	assert.Equal(t, "time,userid,movieid,rating\n"+
		"2021-03-21T12:45:07Z,1,\"heat,1995\",3.5\n"+
		"2021-03-21T12:45:07Z,2,\"say \"\"hi\"\"\",5\n", buf.String())

	// round trip
	events, err := ReadRatings(buf)
	require.NoError(t, err)
	assert.Equal(t, ratings, events)
}

func TestWriter_SubSecond(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	w, err := NewViewsWriter(buf)
	require.NoError(t, err)
	timestamp := time.Date(2021, 3, 21, 12, 45, 7, 500_000_000, time.UTC)
	require.NoError(t, w.Write(NewViewEvent(timestamp, "1", "heat+1995")))
	require.NoError(t, w.Close())
	assert.Contains(t, buf.String(), "2021-03-21T12:45:07.5Z,1,heat+1995\n")

	events, err := ReadViews(buf)
	require.NoError(t, err)
	if assert.Len(t, events, 1) {
		assert.True(t, timestamp.Equal(events[0].Timestamp))
	}
}

func TestCreateWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "views.csv")
	w, err := CreateWriter(path, ViewEvent)
	require.NoError(t, err)
	views := []Event{NewViewEvent(time.Date(2021, 3, 21, 0, 0, 0, 0, time.UTC), "7", "heat+1995")}
	require.NoError(t, w.Write(views[0]))
	require.NoError(t, w.Close())

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	events, err := ReadViews(file)
	require.NoError(t, err)
	assert.Equal(t, views, events)
}
