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
	"time"

	"github.com/jcrepo/kernel/cluster"
	"github.com/jcrepo/kernel/common/metrics"
	"github.com/jcrepo/kernel/workspace"
)

// NodeTypeRegistry and PrivilegeRegistry are out-of-scope collaborator
// interfaces: the kernel only needs to hold, close, and
// (when clustered) hand them a cluster event sink.
type NodeTypeRegistry interface {
	Close() error
}

type PrivilegeRegistry interface {
	Close() error
}

// SecurityManager is an out-of-scope collaborator. Its
// internals (access control, principal/user management) are out of
// scope; the kernel drives it through this narrow contract.
type SecurityManager interface {
	Authenticate(ctx context.Context, credentials interface{}) (userID string, err error)
	Init(ctx context.Context, defaultWorkspaceName string) error
	Dispose(workspaceName string) error
	Close() error
}

// ClusterConfig enables clustering when non-nil.
type ClusterConfig struct {
	ID      string
	Journal cluster.Journal
}

// Config is the repository-wide configuration the kernel consumes
//: everything the config loader hands the kernel, not how
// it was parsed.
type Config struct {
	Home                 string
	DefaultWorkspaceName string
	Workspaces           []workspace.Config

	Cluster *ClusterConfig

	SecurityManager SecurityManager
	NewNodeTypes    func() (NodeTypeRegistry, error)
	NewPrivileges   func() (PrivilegeRegistry, error)

	WorkspaceMaxIdleTime time.Duration // 0 disables idle disposal
	ExecutorWorkers      int

	// Metrics backs the repository statistics and every subsystem
	// counter; a fresh Prometheus-backed handler is built when unset.
	Metrics metrics.Handler

	RepositoryName    string
	RepositoryVendor  string
	RepositoryVersion string
	QueryLanguages    []string
}
