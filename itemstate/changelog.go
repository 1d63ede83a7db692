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

// ChangeLog is the atomic unit of commit: added, modified,
// and deleted states plus the events that describe them, with
// insertion order preserved.
type ChangeLog struct {
	AddedNodes    []*NodeState
	ModifiedNodes []*NodeState
	DeletedNodes  []*NodeState

	AddedProperties    []*PropertyState
	ModifiedProperties []*PropertyState
	DeletedProperties  []*PropertyState

	Events EventStateCollection
}

// NewChangeLog returns an empty ChangeLog ready for a session to
// accumulate transient changes into.
func NewChangeLog() *ChangeLog {
	return &ChangeLog{}
}

func (c *ChangeLog) AddNode(n *NodeState)      { c.AddedNodes = append(c.AddedNodes, n) }
func (c *ChangeLog) ModifyNode(n *NodeState)   { c.ModifiedNodes = append(c.ModifiedNodes, n) }
func (c *ChangeLog) DeleteNode(n *NodeState)   { c.DeletedNodes = append(c.DeletedNodes, n) }
func (c *ChangeLog) AddProperty(p *PropertyState)    { c.AddedProperties = append(c.AddedProperties, p) }
func (c *ChangeLog) ModifyProperty(p *PropertyState) { c.ModifiedProperties = append(c.ModifiedProperties, p) }
func (c *ChangeLog) DeleteProperty(p *PropertyState) { c.DeletedProperties = append(c.DeletedProperties, p) }

// IsEmpty reports whether the ChangeLog carries no mutations.
func (c *ChangeLog) IsEmpty() bool {
	return len(c.AddedNodes) == 0 && len(c.ModifiedNodes) == 0 && len(c.DeletedNodes) == 0 &&
		len(c.AddedProperties) == 0 && len(c.ModifiedProperties) == 0 && len(c.DeletedProperties) == 0
}
