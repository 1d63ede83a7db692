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

// Package clock provides the timestamping seam used by workspace idle
// tracking, so tests can supply a deterministic time source.
package clock

import "time"

// TimeSource provides the current time.
type TimeSource interface {
	Now() time.Time
}

type realTimeSource struct{}

// NewRealTimeSource returns a TimeSource backed by time.Now.
func NewRealTimeSource() TimeSource { return realTimeSource{} }

func (realTimeSource) Now() time.Time { return time.Now() }

// EventTimeSource is a TimeSource whose value changes only through
// Advance and Update, so idle-disposal timing can be driven without
// sleeping.
type EventTimeSource struct {
	current time.Time
}

// NewEventTimeSource returns an EventTimeSource pinned at the current
// wall-clock time.
func NewEventTimeSource() *EventTimeSource {
	return &EventTimeSource{current: time.Now()}
}

func (ts *EventTimeSource) Now() time.Time { return ts.current }

// Advance moves the source forward by d.
func (ts *EventTimeSource) Advance(d time.Duration) {
	ts.current = ts.current.Add(d)
}

// Update pins the source at t.
func (ts *EventTimeSource) Update(t time.Time) {
	ts.current = t
}
