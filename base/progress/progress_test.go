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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ProgressTestSuite struct {
	suite.Suite
	tracer *Tracer
}

func (suite *ProgressTestSuite) SetupTest() {
	suite.tracer = NewTracer("test")
}

func (suite *ProgressTestSuite) TestLeafProgress() {
	_, span := suite.tracer.Start(context.Background(), "root", 100)
	progresList := suite.tracer.List()
	suite.Equal(1, len(progresList))
	suite.Equal("test", progresList[0].Tracer)
	suite.Equal("root", progresList[0].Name)
	suite.Equal(StatusRunning, progresList[0].Status)
	suite.Empty(progresList[0].Error)
	suite.Equal(100, progresList[0].Total)
	suite.Empty(progresList[0].Count)
	suite.False(progresList[0].StartTime.After(time.Now()))
	suite.True(progresList[0].FinishTime.IsZero())

	span.Add(10)
	progresList = suite.tracer.List()
	suite.Equal(1, len(progresList))
	suite.Equal(StatusRunning, progresList[0].Status)
	suite.Equal(10, progresList[0].Count)
	suite.Equal(10, span.Count())

	span.End()
	progresList = suite.tracer.List()
	suite.Equal(1, len(progresList))
	suite.Equal(StatusComplete, progresList[0].Status)
	suite.Empty(progresList[0].Error)
	suite.Equal(100, progresList[0].Count)
	suite.False(progresList[0].StartTime.After(progresList[0].FinishTime))
	suite.Equal(progresList[0].FinishTime.Sub(progresList[0].StartTime), progresList[0].Elapsed())

	span.Fail(errors.New("some error"))
	progresList = suite.tracer.List()
	suite.Equal(1, len(progresList))
	suite.Equal(StatusFailed, progresList[0].Status)
	suite.Equal("some error", progresList[0].Error)
	suite.Equal(100, progresList[0].Count)
}

func (suite *ProgressTestSuite) TestMultiStageProgress() {
	_, first := suite.tracer.Start(context.Background(), "first", 1)
	first.End()
	ctx, _ := suite.tracer.Start(context.Background(), "second", 1)
	Fail(ctx, errors.New("some error"))
	// a context without span is ignored
	Fail(context.Background(), errors.New("other error"))

	progresList := suite.tracer.List()
	suite.Equal(2, len(progresList))
	suite.Equal("first", progresList[0].Name)
	suite.Equal(StatusComplete, progresList[0].Status)
	suite.Equal("second", progresList[1].Name)
	suite.Equal(StatusFailed, progresList[1].Status)
	suite.Equal("some error", progresList[1].Error)
	suite.Equal(0, progresList[1].Count)
	suite.False(progresList[1].FinishTime.IsZero())
}

func TestProgressTestSuite(t *testing.T) {
	suite.Run(t, new(ProgressTestSuite))
}
