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

// Package repocontext defines RepositoryContext: the process-wide shared handles injected into every subsystem,
// an explicit context bag passed by reference instead of cyclic
// component back-references.
package repocontext

import (
	"context"
	"sync"

	"github.com/jcrepo/kernel/common/log"
	"github.com/jcrepo/kernel/common/metrics"
	"github.com/jcrepo/kernel/filesystem"
	"github.com/jcrepo/kernel/id"
	"github.com/jcrepo/kernel/namespace"
	"github.com/jcrepo/kernel/stats"
)

// NodeIDFactory mints fresh NodeIDs for new nodes.
type NodeIDFactory interface {
	NewNodeID() id.NodeID
}

type defaultNodeIDFactory struct{}

func (defaultNodeIDFactory) NewNodeID() id.NodeID { return id.NewNodeID() }

// NewNodeIDFactory returns the default UUID-backed factory.
func NewNodeIDFactory() NodeIDFactory { return defaultNodeIDFactory{} }

// Executor abstracts the shared worker pool. No kernel component
// submits its background tasks (janitor, statistics sampler,
// observation dispatch) to it; those run on their own schedulers.
type Executor interface {
	Submit(fn func(ctx context.Context))
	Shutdown(ctx context.Context) error
}

// Context bundles the process-wide shared handles described in
// every subsystem shares. It is constructed once at repository startup
// and handed down to every workspace and session; children hold a
// non-owning reference to it and never reach back up into the kernel.
type Context struct {
	RootNodeID  id.NodeID
	Namespaces  namespace.Registry
	RootFS      filesystem.FileSystem
	NodeIDs     NodeIDFactory
	Executor    Executor
	Logger      log.Logger
	Metrics     metrics.Handler
	Stats       *stats.RepositoryStatistics
	Descriptors map[string]string

	mu       sync.RWMutex
	clusterNodeID string
}

// SetClusterNodeID records the identifier this repository instance
// advertises on the cluster channel, if clustering is configured.
func (c *Context) SetClusterNodeID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clusterNodeID = id
}

// ClusterNodeID returns the advertised cluster node identifier, or ""
// if clustering is not configured.
func (c *Context) ClusterNodeID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clusterNodeID
}
