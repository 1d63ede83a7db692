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

package observation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jcrepo/kernel/itemstate"
)

type countingListener struct {
	batches int
	events  int
}

func (l *countingListener) HandleEvents(_ context.Context, events itemstate.EventStateCollection) {
	l.batches++
	l.events += len(events)
}

func TestDispatchDeliversToAllListeners(t *testing.T) {
	d := NewDispatcher()
	l1 := &countingListener{}
	l2 := &countingListener{}
	d.AddListener(l1)
	d.AddListener(l2)

	err := d.Dispatch(context.Background(), itemstate.EventStateCollection{
		{Type: itemstate.NodeAdded, Path: "/a"},
		{Type: itemstate.NodeAdded, Path: "/b"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, l1.batches)
	require.Equal(t, 2, l1.events)
	require.Equal(t, 1, l2.batches)
}

func TestRemoveListenerStopsDelivery(t *testing.T) {
	d := NewDispatcher()
	l := &countingListener{}
	d.AddListener(l)
	d.RemoveListener(l)

	require.NoError(t, d.Dispatch(context.Background(), itemstate.EventStateCollection{
		{Type: itemstate.NodeAdded, Path: "/a"},
	}))
	require.Zero(t, l.batches)
}

func TestDisposedDispatcherDropsEvents(t *testing.T) {
	d := NewDispatcher()
	l := &countingListener{}
	d.AddListener(l)
	d.Dispose()

	require.NoError(t, d.Dispatch(context.Background(), itemstate.EventStateCollection{
		{Type: itemstate.NodeAdded, Path: "/a"},
	}))
	require.Zero(t, l.batches)
}
