// The MIT License
//
// Copyright (c) 2020 Temporal Technologies Inc.  All rights reserved.
//
// Copyright (c) 2020 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package stats

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"github.com/jcrepo/kernel/common/log"
	"github.com/jcrepo/kernel/common/metrics"
)

type statsSuite struct {
	suite.Suite
	stats *RepositoryStatistics
}

func (s *statsSuite) SetupTest() {
	handler := metrics.NewPrometheusHandler(prometheus.NewRegistry())
	s.stats = New(handler, log.NewNoop())
}

func (s *statsSuite) TestSampleComputesDerivedAverages() {
	s.stats.RecordSessionRead(100 * time.Millisecond)
	s.stats.RecordSessionRead(300 * time.Millisecond)
	s.stats.IncrementLoginCount()
	s.stats.SetSessionCount(3)

	s.stats.sample()

	latest := s.stats.Latest()
	s.EqualValues(3, latest.SessionCount)
	s.EqualValues(1, latest.LoginCount)
	s.EqualValues(2, latest.SessionReadCount)
	s.Equal(200*time.Millisecond, latest.AverageSessionRead())
}

func (s *statsSuite) TestAverageIsZeroWithNoSamples() {
	sample := Sample{}
	s.Equal(time.Duration(0), sample.AverageQuery())
}

func (s *statsSuite) TestHistoryIsBounded() {
	s.stats.maxHistory = 2
	s.stats.sample()
	s.stats.sample()
	s.stats.sample()

	s.Len(s.stats.History(), 2)
}

func TestStatsSuite(t *testing.T) {
	suite.Run(t, new(statsSuite))
}
