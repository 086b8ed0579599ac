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

import "time"

type EventType int

const (
	// RateEvent is a user giving a rating to a movie.
	RateEvent EventType = iota
	// ViewEvent is a user starting to watch a movie. It carries no rating.
	ViewEvent
)

func (t EventType) String() string {
	switch t {
	case RateEvent:
		return "rate"
	case ViewEvent:
		return "view"
	default:
		return "unknown"
	}
}

// Event is a single interaction between a user and a movie.
type Event struct {
	Type      EventType
	Timestamp time.Time
	UserId    string
	MovieId   string
	Rating    float64
}

// NewRateEvent creates a rating event.
func NewRateEvent(timestamp time.Time, userId, movieId string, rating float64) Event {
	return Event{
		Type:      RateEvent,
		Timestamp: timestamp,
		UserId:    userId,
		MovieId:   movieId,
		Rating:    rating,
	}
}

// NewViewEvent creates a viewing event.
func NewViewEvent(timestamp time.Time, userId, movieId string) Event {
	return Event{
		Type:      ViewEvent,
		Timestamp: timestamp,
		UserId:    userId,
		MovieId:   movieId,
	}
}

var (
	ratingsHeader = []string{"time", "userid", "movieid", "rating"}
	viewsHeader   = []string{"time", "userid", "movieid"}
)

// timeLayout is the layout of timestamps written to tables.
const timeLayout = time.RFC3339Nano
