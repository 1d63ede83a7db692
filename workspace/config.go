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

package workspace

import (
	"github.com/jcrepo/kernel/cluster"
	"github.com/jcrepo/kernel/filesystem"
	"github.com/jcrepo/kernel/itemstate"
	"github.com/jcrepo/kernel/persistence"
	"github.com/jcrepo/kernel/search"
)

// LockManager, RetentionRegistry, and SystemSession are out-of-scope
// collaborators: the kernel only needs to hold and lazily
// construct them, never to implement their internals.
type LockManager interface {
	Close() error
}

type RetentionRegistry interface {
	Close() error
}

type SystemSession interface {
	Logout()
}

// Config describes one configured workspace.
type Config struct {
	Name         string
	Home         string
	ExcludedPath string // e.g. /jcr:system, excluded from search indexing

	NewFileSystem         func(home string) (filesystem.FileSystem, error)
	NewPersistenceManager func(pctx persistence.Context) (persistence.PersistenceManager, error)
	NewQueryHandler       func(workspaceName string) (search.QueryHandler, error)
	NewLockManager        func(*Info) (LockManager, error)
	NewRetentionRegistry  func(*Info) (RetentionRegistry, error)
	NewSystemSession      func(*Info) (SystemSession, error)

	SearchEnabled bool
	Clustered     bool
}

// VirtualProviderFactory contributes the version manager's and virtual
// node-type manager's read-only overlays at initialize time.
type VirtualProviderFactory func(*Info) []itemstate.VirtualProvider

// ClusterFactory binds a workspace to the repository's single
// ClusterNode, returning the per-workspace update channel.
type ClusterFactory func(workspaceName string, sink cluster.WorkspaceUpdateSink) itemstate.UpdateChannel
