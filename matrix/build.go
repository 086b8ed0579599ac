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

package matrix

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/movierec/dataset"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

// BuildConfig holds the filtering thresholds of Build.
type BuildConfig struct {
	// MinMoviePopularity is the number of ratings a movie must exceed to be kept.
	MinMoviePopularity int
	// MinUserActivity is the number of ratings a user must exceed to be kept.
	MinUserActivity int
}

type rating struct {
	userId  string
	movieId string
	value   float64
}

// Build converts rating events into a ratings matrix and its viewed mask:
//  1. Rating events are deduplicated on (user, movie, rating), keeping the first occurrence.
//  2. Movies rated more than MinMoviePopularity times are kept.
//  3. Users who rated more than MinUserActivity times are kept. Activity is counted on the
//     deduplicated events before movies are filtered.
//  4. Rows and columns follow the order in which users and movies first appear in the
//     remaining events. If a user rated a movie more than once, the last rating wins.
//
// View events are ignored.
func Build(events []dataset.Event, config BuildConfig) (*Matrix, *Viewed, error) {
	if config.MinMoviePopularity < 0 || config.MinUserActivity < 0 {
		return nil, nil, errors.NotValidf("thresholds (%d, %d)", config.MinMoviePopularity, config.MinUserActivity)
	}

	// deduplicate ratings
	ratings := lo.FilterMap(events, func(e dataset.Event, _ int) (rating, bool) {
		return rating{userId: e.UserId, movieId: e.MovieId, value: e.Rating}, e.Type == dataset.RateEvent
	})
	ratings = lo.UniqBy(ratings, func(r rating) rating { return r })

	// count popularity and activity
	moviePopularity := lo.CountValuesBy(ratings, func(r rating) string { return r.movieId })
	userActivity := lo.CountValuesBy(ratings, func(r rating) string { return r.userId })
	movies := mapset.NewThreadUnsafeSet[string]()
	for movieId, count := range moviePopularity {
		if count > config.MinMoviePopularity {
			movies.Add(movieId)
		}
	}
	users := mapset.NewThreadUnsafeSet[string]()
	for userId, count := range userActivity {
		if count > config.MinUserActivity {
			users.Add(userId)
		}
	}
	ratings = lo.Filter(ratings, func(r rating, _ int) bool {
		return users.ContainsOne(r.userId) && movies.ContainsOne(r.movieId)
	})
	if len(ratings) == 0 {
		return nil, nil, errors.Annotatef(ErrInsufficientData,
			"%d of %d users and %d of %d movies retained", users.Cardinality(), len(userActivity),
			movies.Cardinality(), len(moviePopularity))
	}

	// fill the grid
	schema := NewSchema(
		lo.Uniq(lo.Map(ratings, func(r rating, _ int) string { return r.userId })),
		lo.Uniq(lo.Map(ratings, func(r rating, _ int) string { return r.movieId })),
	)
	rows, cols := schema.Dims()
	values := make([]float64, rows*cols)
	for _, r := range ratings {
		u := schema.Users.ToNumber(r.userId)
		i := schema.Movies.ToNumber(r.movieId)
		values[int(u)*cols+int(i)] = r.value
	}
	m, err := NewMatrix(schema, values)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	return m, NewViewed(m), nil
}
