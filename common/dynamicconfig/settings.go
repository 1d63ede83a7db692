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

// Package dynamicconfig holds a small set of runtime-tunable
// properties (idle timeout, readthrough fan-out, sample and grace
// periods). Each is a typed accessor function rather than a raw field
// so call sites can be handed a value that changes without a restart.
// No other package of the kernel reads these values; the running
// components take the equivalent settings from their own configs.
package dynamicconfig

import "time"

type (
	// DurationPropertyFn returns the current value of a duration setting.
	DurationPropertyFn func() time.Duration

	// IntPropertyFn returns the current value of an integer setting.
	IntPropertyFn func() int

	// BoolPropertyFn returns the current value of a boolean setting.
	BoolPropertyFn func() bool
)

// StaticDuration returns a DurationPropertyFn that always yields d.
func StaticDuration(d time.Duration) DurationPropertyFn {
	return func() time.Duration { return d }
}

// StaticInt returns an IntPropertyFn that always yields v.
func StaticInt(v int) IntPropertyFn {
	return func() int { return v }
}

// StaticBool returns a BoolPropertyFn that always yields v.
func StaticBool(v bool) BoolPropertyFn {
	return func() bool { return v }
}

var (
	// WorkspaceMaxIdleTime is the idle-disposal window; 0 disables
	// idle disposal.
	WorkspaceMaxIdleTime = StaticDuration(0)

	// NamespaceReadthroughConcurrency is a per-key request-lock shard
	// count for namespace lookups.
	NamespaceReadthroughConcurrency = StaticInt(1024)

	// SearchBatchFlushInterval is a bound on how long search events may
	// be accumulated before being flushed to the query handler.
	SearchBatchFlushInterval = StaticDuration(0)

	// StatisticsSampleInterval is the tick period of RepositoryStatistics.
	StatisticsSampleInterval = StaticDuration(time.Second)

	// ShutdownExecutorGracePeriod bounds how long executor shutdown
	// waits before forcing cancellation.
	ShutdownExecutorGracePeriod = StaticDuration(10 * time.Second)
)
