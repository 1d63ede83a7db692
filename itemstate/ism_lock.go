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

package itemstate

import (
	"context"

	"golang.org/x/sync/semaphore"

	"github.com/jcrepo/kernel/repoerror"
)

// readerWeight is the semaphore weight a single reader holds; writers
// acquire the entire pool, which is the standard semaphore.Weighted
// idiom for a many-readers/single-writer lock that is also
// context-cancellable.
const (
	readerWeight = 1
	poolCapacity = 1 << 20
)

// ISMLock is the many-readers/single-writer locking policy
// SharedItemStateManager.Apply is serialized through: many concurrent
// readers are admitted together; a writer blocks until readers that
// began before it complete. Readers that arrive while a writer holds
// or waits for the lock block until it finishes, so they observe the
// post-write state; no snapshot of the pre-write state is kept.
type ISMLock interface {
	// AcquireRead admits a snapshot reader; release must be called
	// exactly once.
	AcquireRead(ctx context.Context) (release func(), err error)
	// AcquireWrite blocks until all in-flight readers release, then
	// admits the sole writer; release must be called exactly once.
	AcquireWrite(ctx context.Context) (release func(), err error)
}

type semaphoreISMLock struct {
	sem *semaphore.Weighted
}

// NewISMLock returns the default ISMLock implementation.
func NewISMLock() ISMLock {
	return &semaphoreISMLock{sem: semaphore.NewWeighted(poolCapacity)}
}

func (l *semaphoreISMLock) AcquireRead(ctx context.Context) (func(), error) {
	if err := l.sem.Acquire(ctx, readerWeight); err != nil {
		return nil, repoerror.Wrap(repoerror.KindInterrupted, "acquire ism read lock", err)
	}
	return func() { l.sem.Release(readerWeight) }, nil
}

func (l *semaphoreISMLock) AcquireWrite(ctx context.Context) (func(), error) {
	if err := l.sem.Acquire(ctx, poolCapacity); err != nil {
		return nil, repoerror.Wrap(repoerror.KindInterrupted, "acquire ism write lock", err)
	}
	return func() { l.sem.Release(poolCapacity) }, nil
}
