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

// Package itemstate implements the per-workspace SharedItemStateManager:
// the single authoritative, writer-serialized store of node and
// property state for one workspace.
package itemstate

import "github.com/jcrepo/kernel/id"

// Status is the lifecycle state of an item record.
type Status int

const (
	StatusNew Status = iota
	StatusExisting
	StatusModified
	StatusStale
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusExisting:
		return "existing"
	case StatusModified:
		return "modified"
	case StatusStale:
		return "stale"
	default:
		return "unknown"
	}
}

// NodeState is the mutable record of one node.
type NodeState struct {
	ID        id.NodeID
	ParentID  id.NodeID
	Type      id.Name
	Children  []id.NodeID
	Status    Status
	Shareable bool
}

// PropertyState is the mutable record of one property.
type PropertyState struct {
	ID     id.PropertyID
	Values [][]byte
	Status Status
}
