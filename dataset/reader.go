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
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/gorse-io/movierec/base"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

// ReadRatings reads rating events from a table with columns time,userid,movieid,rating.
func ReadRatings(r io.Reader) ([]Event, error) {
	return readEvents(r, RateEvent)
}

// ReadViews reads view events from a table with columns time,userid,movieid.
func ReadViews(r io.Reader) ([]Event, error) {
	return readEvents(r, ViewEvent)
}

func readEvents(r io.Reader, eventType EventType) ([]Event, error) {
	header := ratingsHeader
	if eventType == ViewEvent {
		header = viewsHeader
	}
	var events []Event
	err := base.ReadLines(r, ',', func(lineNumber int, splits []string) error {
		splits = lo.Map(splits, func(s string, _ int) string { return strings.TrimSpace(s) })
		// check header
		if lineNumber == 1 {
			if !slices.Equal(splits, header) {
				return errors.NotValidf("header `%v` at line 1, expected `%v`",
					strings.Join(splits, ","), strings.Join(header, ","))
			}
			return nil
		}
		// skip blank lines
		if len(splits) == 1 && splits[0] == "" {
			return nil
		}
		event, err := parseFields(eventType, splits, lineNumber)
		if err != nil {
			return err
		}
		events = append(events, event)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func parseFields(eventType EventType, splits []string, lineNumber int) (Event, error) {
	expected := len(ratingsHeader)
	if eventType == ViewEvent {
		expected = len(viewsHeader)
	}
	if len(splits) != expected {
		return Event{}, errors.NotValidf("%d fields at line %d, expected %d", len(splits), lineNumber, expected)
	}
	timestamp, err := dateparse.ParseAny(splits[0])
	if err != nil {
		return Event{}, errors.Annotatef(err, "failed to parse datetime `%v` at line %d", splits[0], lineNumber)
	}
	if err = base.ValidateId(splits[1]); err != nil {
		return Event{}, errors.Annotatef(err, "invalid user id `%v` at line %d", splits[1], lineNumber)
	}
	if err = base.ValidateId(splits[2]); err != nil {
		return Event{}, errors.Annotatef(err, "invalid movie id `%v` at line %d", splits[2], lineNumber)
	}
	if eventType == ViewEvent {
		return NewViewEvent(timestamp, splits[1], splits[2]), nil
	}
	rating, err := strconv.ParseFloat(splits[3], 64)
	if err != nil {
		return Event{}, errors.Annotatef(err, "failed to parse rating `%v` at line %d", splits[3], lineNumber)
	}
	return NewRateEvent(timestamp, splits[1], splits[2], rating), nil
}
