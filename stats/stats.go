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

// Package stats implements RepositoryStatistics: atomic
// long counters updated from hot paths, sampled once a second by a
// scheduled task into a bounded history of derived-average snapshots.
package stats

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/atomic"

	"github.com/jcrepo/kernel/common/log"
	"github.com/jcrepo/kernel/common/log/tag"
	"github.com/jcrepo/kernel/common/metrics"
)

// Sample is one second-tick snapshot of the fixed counter set.
type Sample struct {
	Timestamp time.Time

	SessionCount int64
	LoginCount   int64

	SessionReadCount     int64
	SessionReadDuration  time.Duration
	SessionWriteCount    int64
	SessionWriteDuration time.Duration

	BundleReadCount     int64
	BundleReadDuration  time.Duration
	BundleWriteCount    int64
	BundleWriteDuration time.Duration

	QueryCount    int64
	QueryDuration time.Duration
}

func average(total time.Duration, count int64) time.Duration {
	if count == 0 {
		return 0
	}
	return total / time.Duration(count)
}

func (s Sample) AverageSessionRead() time.Duration {
	return average(s.SessionReadDuration, s.SessionReadCount)
}

func (s Sample) AverageSessionWrite() time.Duration {
	return average(s.SessionWriteDuration, s.SessionWriteCount)
}

func (s Sample) AverageBundleRead() time.Duration {
	return average(s.BundleReadDuration, s.BundleReadCount)
}

func (s Sample) AverageBundleWrite() time.Duration {
	return average(s.BundleWriteDuration, s.BundleWriteCount)
}

func (s Sample) AverageQuery() time.Duration {
	return average(s.QueryDuration, s.QueryCount)
}

// defaultHistorySize bounds memory use; one sample per second keeps an
// hour of history by default.
const defaultHistorySize = 3600

// RepositoryStatistics holds the fixed counter set sampled by the
// scheduled task.
type RepositoryStatistics struct {
	sessionCount atomic.Int64
	loginCount   atomic.Int64

	sessionReadCount       atomic.Int64
	sessionReadDurationNs  atomic.Int64
	sessionWriteCount      atomic.Int64
	sessionWriteDurationNs atomic.Int64

	bundleReadCount       atomic.Int64
	bundleReadDurationNs  atomic.Int64
	bundleWriteCount      atomic.Int64
	bundleWriteDurationNs atomic.Int64

	queryCount      atomic.Int64
	queryDurationNs atomic.Int64

	handler metrics.Handler
	logger  log.Logger

	mu         sync.Mutex
	history    []Sample
	maxHistory int

	sampler *cron.Cron
}

// New constructs a RepositoryStatistics reporting derived gauges
// through handler.
func New(handler metrics.Handler, logger log.Logger) *RepositoryStatistics {
	return &RepositoryStatistics{
		handler:    handler,
		logger:     logger,
		maxHistory: defaultHistorySize,
	}
}

func (r *RepositoryStatistics) SetSessionCount(n int64) { r.sessionCount.Store(n) }
func (r *RepositoryStatistics) IncrementLoginCount()    { r.loginCount.Inc() }

func (r *RepositoryStatistics) RecordSessionRead(d time.Duration) {
	r.sessionReadCount.Inc()
	r.sessionReadDurationNs.Add(int64(d))
}

func (r *RepositoryStatistics) RecordSessionWrite(d time.Duration) {
	r.sessionWriteCount.Inc()
	r.sessionWriteDurationNs.Add(int64(d))
}

func (r *RepositoryStatistics) RecordBundleRead(d time.Duration) {
	r.bundleReadCount.Inc()
	r.bundleReadDurationNs.Add(int64(d))
}

func (r *RepositoryStatistics) RecordBundleWrite(d time.Duration) {
	r.bundleWriteCount.Inc()
	r.bundleWriteDurationNs.Add(int64(d))
}

func (r *RepositoryStatistics) RecordQuery(d time.Duration) {
	r.queryCount.Inc()
	r.queryDurationNs.Add(int64(d))
}

// Start begins the one-second tick sampler.
func (r *RepositoryStatistics) Start() {
	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc("@every 1s", r.sample); err != nil {
		r.logger.Error("failed to schedule statistics sampler", tag.Error(err))
		return
	}
	c.Start()
	r.sampler = c
}

// Stop halts the sampler. Idempotent.
func (r *RepositoryStatistics) Stop() {
	if r.sampler != nil {
		r.sampler.Stop()
	}
}

// Snapshot reads the current counter values without storing a history
// entry.
func (r *RepositoryStatistics) Snapshot() Sample {
	return Sample{
		Timestamp:            time.Now(),
		SessionCount:         r.sessionCount.Load(),
		LoginCount:           r.loginCount.Load(),
		SessionReadCount:     r.sessionReadCount.Load(),
		SessionReadDuration:  time.Duration(r.sessionReadDurationNs.Load()),
		SessionWriteCount:    r.sessionWriteCount.Load(),
		SessionWriteDuration: time.Duration(r.sessionWriteDurationNs.Load()),
		BundleReadCount:      r.bundleReadCount.Load(),
		BundleReadDuration:   time.Duration(r.bundleReadDurationNs.Load()),
		BundleWriteCount:     r.bundleWriteCount.Load(),
		BundleWriteDuration:  time.Duration(r.bundleWriteDurationNs.Load()),
		QueryCount:           r.queryCount.Load(),
		QueryDuration:        time.Duration(r.queryDurationNs.Load()),
	}
}

func (r *RepositoryStatistics) sample() {
	s := r.Snapshot()

	if r.handler != nil {
		r.handler.Gauge("session_count").Record(float64(s.SessionCount))
		r.handler.Gauge("login_count").Record(float64(s.LoginCount))
		r.handler.Timer("session_read_avg").Record(s.AverageSessionRead())
		r.handler.Timer("session_write_avg").Record(s.AverageSessionWrite())
		r.handler.Timer("bundle_read_avg").Record(s.AverageBundleRead())
		r.handler.Timer("bundle_write_avg").Record(s.AverageBundleWrite())
		r.handler.Timer("query_avg").Record(s.AverageQuery())
	}

	r.mu.Lock()
	r.history = append(r.history, s)
	if len(r.history) > r.maxHistory {
		r.history = r.history[len(r.history)-r.maxHistory:]
	}
	r.mu.Unlock()
}

// Latest returns the most recent sample, or the zero Sample if none
// has been taken yet.
func (r *RepositoryStatistics) Latest() Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.history) == 0 {
		return Sample{}
	}
	return r.history[len(r.history)-1]
}

// History returns a copy of the retained sample window.
func (r *RepositoryStatistics) History() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sample, len(r.history))
	copy(out, r.history)
	return out
}
