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

package session

import (
	"context"
	"sync"
	"time"

	"github.com/jcrepo/kernel/common/log"
	"github.com/jcrepo/kernel/itemstate"
)

// ClusterSyncer is the narrow cluster.Node surface refresh needs.
type ClusterSyncer interface {
	Sync(ctx context.Context) error
}

// StatsRecorder receives the duration of every performed session
// operation; bound by the repository statistics.
type StatsRecorder interface {
	RecordSessionRead(d time.Duration)
	RecordSessionWrite(d time.Duration)
}

// Context is the per-session context bag SessionOperations run
// against: the workspace's item-state manager, the session's
// transient change set, and the session attributes that steer refresh
// semantics.
type Context struct {
	WorkspaceName string
	ItemStates    itemstate.SharedItemStateManager
	Cluster       ClusterSyncer // nil when the workspace is not clustered
	Stats         StatsRecorder // nil disables operation timing
	Logger        log.Logger

	mu         sync.Mutex
	transient  *itemstate.ChangeLog
	attributes map[string]interface{}
	disposed   bool
}

// NewContext constructs a fresh per-session context bound to one
// workspace's item-state manager.
func NewContext(workspaceName string, itemStates itemstate.SharedItemStateManager, cluster ClusterSyncer, logger log.Logger) *Context {
	return &Context{
		WorkspaceName: workspaceName,
		ItemStates:    itemStates,
		Cluster:       cluster,
		Logger:        logger,
		transient:     itemstate.NewChangeLog(),
		attributes:    make(map[string]interface{}),
	}
}

// SetAttribute records a session attribute, e.g.
// "disableClusterSyncOnRefresh".
func (c *Context) SetAttribute(name string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attributes[name] = value
}

// Attribute returns a session attribute and whether it was set.
func (c *Context) Attribute(name string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.attributes[name]
	return v, ok
}

// Transient returns the session's accumulated, not-yet-saved
// ChangeLog.
func (c *Context) Transient() *itemstate.ChangeLog {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transient
}

// ReplaceTransient swaps in a freshly built transient ChangeLog, used
// after a successful save.
func (c *Context) ReplaceTransient(cl *itemstate.ChangeLog) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transient = cl
}

func (c *Context) discardTransientState() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transient = itemstate.NewChangeLog()
}

func (c *Context) dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disposed = true
}

// Disposed reports whether logout has already torn this context down.
func (c *Context) Disposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}
