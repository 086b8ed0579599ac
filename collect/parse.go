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
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/gorse-io/movierec/base"
	"github.com/gorse-io/movierec/dataset"
	"github.com/juju/errors"
)

// firstSegment is the first playback segment of a movie. Requests of later segments are not views.
const firstSegment = "0.mpg"

// ParseLine parses a line of the movie log in the form of time,userid,request. Requests are:
//
//	GET /rate/<movieid>=<rating>        a rating
//	GET /data/m/<movieid>/<segment>     a playback segment
//
// The second return value is false if the line is well-formed but carries no event, such as
// a request of a playback segment other than the first one.
func ParseLine(line string) (dataset.Event, bool, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != 3 {
		return dataset.Event{}, false, errors.NotValidf("%d fields in `%v`", len(fields), line)
	}
	timestamp, err := dateparse.ParseAny(fields[0])
	if err != nil {
		return dataset.Event{}, false, errors.Annotatef(err, "failed to parse datetime `%v`", fields[0])
	}
	userId := fields[1]
	if err = base.ValidateId(userId); err != nil {
		return dataset.Event{}, false, errors.Annotatef(err, "invalid user id `%v`", userId)
	}
	parts := strings.Split(fields[2], "/")
	if len(parts) < 2 {
		return dataset.Event{}, false, errors.NotValidf("request `%v`", fields[2])
	}
	switch parts[1] {
	case "rate":
		if len(parts) != 3 {
			return dataset.Event{}, false, errors.NotValidf("rate request `%v`", fields[2])
		}
		movieId, value, found := strings.Cut(parts[2], "=")
		if !found {
			return dataset.Event{}, false, errors.NotValidf("rate request `%v`", fields[2])
		}
		if err = base.ValidateId(movieId); err != nil {
			return dataset.Event{}, false, errors.Annotatef(err, "invalid movie id `%v`", movieId)
		}
		rating, parseErr := strconv.ParseFloat(value, 64)
		if parseErr != nil {
			return dataset.Event{}, false, errors.Annotatef(parseErr, "failed to parse rating `%v`", value)
		}
		return dataset.NewRateEvent(timestamp, userId, movieId, rating), true, nil
	case "data":
		if len(parts) != 5 {
			return dataset.Event{}, false, errors.NotValidf("data request `%v`", fields[2])
		}
		if parts[4] != firstSegment {
			return dataset.Event{}, false, nil
		}
		movieId := parts[3]
		if err = base.ValidateId(movieId); err != nil {
			return dataset.Event{}, false, errors.Annotatef(err, "invalid movie id `%v`", movieId)
		}
		return dataset.NewViewEvent(timestamp, userId, movieId), true, nil
	default:
		return dataset.Event{}, false, nil
	}
}
