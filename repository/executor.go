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

package repository

import (
	"context"
	"sync"
	"time"

	"github.com/jcrepo/kernel/repoerror"
)

// Executor is the repository's shared pool of worker goroutines. The
// repository creates it at startup and shuts it down with a grace
// period, but no kernel component submits work to it: the workspace
// janitor and the statistics sampler run on their own cron schedulers,
// and observation dispatch and cluster sync do not use it either.
type Executor struct {
	tasks chan func(ctx context.Context)
	wg    sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	// mu orders Submit against the channel close in Shutdown.
	mu     sync.Mutex
	closed bool
}

// NewExecutor starts workerCount goroutines draining a shared task
// queue.
func NewExecutor(workerCount int) *Executor {
	if workerCount < 1 {
		workerCount = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Executor{
		tasks:  make(chan func(ctx context.Context), 256),
		ctx:    ctx,
		cancel: cancel,
	}
	for n := 0; n < workerCount; n++ {
		e.wg.Add(1)
		go e.worker()
	}
	return e
}

func (e *Executor) worker() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case fn, ok := <-e.tasks:
			if !ok {
				return
			}
			fn(e.ctx)
		}
	}
}

// Submit enqueues fn for execution by a worker goroutine. Submissions
// after Shutdown are dropped silently.
func (e *Executor) Submit(fn func(ctx context.Context)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	select {
	case e.tasks <- fn:
	case <-e.ctx.Done():
	}
}

// Shutdown stops accepting new work and waits up to the context's
// deadline for in-flight tasks to drain, then forces cancellation.
func (e *Executor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	close(e.tasks)
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.cancel()
		return nil
	case <-ctx.Done():
		e.cancel()
		<-done
		return repoerror.Wrap(repoerror.KindInterrupted, "executor shutdown forced after grace period", ctx.Err())
	}
}

// ShutdownGraceful is a convenience wrapper applying the default
// 10-second grace period.
func (e *Executor) ShutdownGraceful() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(ctx)
}
