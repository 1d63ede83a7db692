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

	"go.uber.org/multierr"

	"github.com/jcrepo/kernel/common/log/tag"
	"github.com/jcrepo/kernel/workspace"
)

// Shutdown runs the full teardown sequence: mark the repository
// disposed, acquire the write side of the shutdown lock (blocking until
// every in-flight Login releases its read side), stop the janitor and
// the statistics sampler, stop the cluster node, close the security
// manager, log out every active session, dispose every workspace, close
// the node-type and privilege registries, shut the executor down with a
// grace period, close the root file system, and finally release the
// repository lock. Idempotent: a
// second call is a no-op. Errors from subordinate close operations
// are logged, do not abort the remaining steps, and are returned as
// one aggregate.
func (r *Repository) Shutdown(ctx context.Context) error {
	if !r.disposed.CompareAndSwap(false, true) {
		return nil
	}

	r.shutdownLock.Lock()
	defer r.shutdownLock.Unlock()

	var closeErr error

	if r.janitor != nil {
		r.janitor.Stop()
	}
	if r.stats != nil {
		r.stats.Stop()
	}

	if r.cluster != nil {
		if err := r.cluster.Stop(ctx); err != nil {
			r.logger.Error("cluster node stop failed", tag.Error(err))
			closeErr = multierr.Append(closeErr, err)
		}
	}

	if r.cfg.SecurityManager != nil {
		if err := r.cfg.SecurityManager.Close(); err != nil {
			r.logger.Error("security manager close failed", tag.Error(err))
			closeErr = multierr.Append(closeErr, err)
		}
	}

	r.sessionsMu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessionsMu.Unlock()
	for _, s := range sessions {
		s.State.Logout(ctx, s.Context)
	}

	r.workspacesMu.RLock()
	infos := make([]*workspace.Info, 0, len(r.workspaces))
	for _, info := range r.workspaces {
		infos = append(infos, info)
	}
	r.workspacesMu.RUnlock()
	for _, info := range infos {
		info.Dispose()
	}

	if r.nodeTypes != nil {
		if err := r.nodeTypes.Close(); err != nil {
			r.logger.Error("node type registry close failed", tag.Error(err))
			closeErr = multierr.Append(closeErr, err)
		}
	}
	if r.privileges != nil {
		if err := r.privileges.Close(); err != nil {
			r.logger.Error("privilege registry close failed", tag.Error(err))
			closeErr = multierr.Append(closeErr, err)
		}
	}

	if r.executor != nil {
		if err := r.executor.ShutdownGraceful(); err != nil {
			r.logger.Error("executor shutdown forced", tag.Error(err))
			closeErr = multierr.Append(closeErr, err)
		}
	}

	if r.rootFS != nil {
		if err := r.rootFS.Close(); err != nil {
			r.logger.Error("root file system close failed", tag.Error(err))
			closeErr = multierr.Append(closeErr, err)
		}
	}

	if r.lock != nil {
		closeErr = multierr.Append(closeErr, r.lock.Release())
	}
	return closeErr
}

// Descriptors exposes the static repository descriptor table.
func (r *Repository) Descriptors() *Descriptors { return r.descriptors }
