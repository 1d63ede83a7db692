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

// Package observation implements the per-workspace event bus that
// delivers commit events to registered listeners in commit order.
package observation

import (
	"context"
	"sync"

	"github.com/jcrepo/kernel/itemstate"
)

// Listener receives a batch of events from one commit.
type Listener interface {
	HandleEvents(ctx context.Context, events itemstate.EventStateCollection)
}

// ListenerFunc adapts a function to a Listener.
type ListenerFunc func(ctx context.Context, events itemstate.EventStateCollection)

func (f ListenerFunc) HandleEvents(ctx context.Context, events itemstate.EventStateCollection) {
	f(ctx, events)
}

// Dispatcher is the per-workspace event bus contract.
type Dispatcher interface {
	AddListener(l Listener)
	RemoveListener(l Listener)
	Dispatch(ctx context.Context, events itemstate.EventStateCollection) error
	Dispose()
}

type dispatcherImpl struct {
	mu        sync.RWMutex
	listeners []Listener
	disposed  bool
}

// NewDispatcher returns the default Dispatcher implementation.
func NewDispatcher() Dispatcher {
	return &dispatcherImpl{}
}

func (d *dispatcherImpl) AddListener(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, l)
}

func (d *dispatcherImpl) RemoveListener(target Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.listeners[:0]
	for _, l := range d.listeners {
		if l != target {
			out = append(out, l)
		}
	}
	d.listeners = out
}

// Dispatch delivers events to every registered listener, in
// registration order, within the order the shared state manager
// applied the underlying change log.
func (d *dispatcherImpl) Dispatch(ctx context.Context, events itemstate.EventStateCollection) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.disposed {
		return nil
	}
	for _, l := range d.listeners {
		l.HandleEvents(ctx, events)
	}
	return nil
}

func (d *dispatcherImpl) Dispose() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.disposed = true
	d.listeners = nil
}
