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

import "github.com/jcrepo/kernel/id"

// EventType enumerates the observation event kinds.
type EventType int

const (
	NodeAdded EventType = iota
	NodeRemoved
	PropertyAdded
	PropertyChanged
	PropertyRemoved
)

// EventState is one observation event. Shareable records
// whether the subject node is shareable at the time the event was
// built; the search manager uses it to force re-indexing across the
// shared set.
type EventState struct {
	Type      EventType
	Path      string
	NodeID    id.NodeID
	ParentID  id.NodeID
	External  bool
	Shareable bool
}

// EventStateCollection is an ordered batch of events built for one
// commit and dispatched to registered listeners.
type EventStateCollection []EventState
