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

	"github.com/google/uuid"

	"github.com/jcrepo/kernel/common/log/tag"
	"github.com/jcrepo/kernel/repoerror"
	"github.com/jcrepo/kernel/session"
	"github.com/jcrepo/kernel/workspace"
)

// Login runs the session-login sequence: acquire the
// shutdown read lock, resolve and initialise the workspace,
// authenticate, construct the session, register it, and mark the
// workspace active — all before releasing the read lock, so a
// concurrent Shutdown can never observe a half-registered session.
func (r *Repository) Login(ctx context.Context, workspaceName string, credentials interface{}) (*Session, error) {
	r.shutdownLock.RLock()
	defer r.shutdownLock.RUnlock()
	if r.disposed.Load() {
		return nil, repoerror.New(repoerror.KindRepositoryShuttingDown, "repository is shut down")
	}

	if workspaceName == "" {
		workspaceName = r.cfg.DefaultWorkspaceName
	}
	wsInfo, ok := r.workspace(workspaceName)
	if !ok {
		return nil, repoerror.New(repoerror.KindNoSuchWorkspace, "no such workspace: "+workspaceName)
	}
	if _, err := wsInfo.Initialize(ctx); err != nil {
		return nil, repoerror.Wrap(repoerror.KindConfig, "initialize workspace", err)
	}

	if r.cfg.SecurityManager != nil {
		if _, err := r.cfg.SecurityManager.Authenticate(ctx, credentials); err != nil {
			return nil, repoerror.Wrap(repoerror.KindLogin, "authenticate", err)
		}
	}

	sessionID := uuid.NewString()
	var syncer session.ClusterSyncer
	if r.cluster != nil {
		syncer = r.cluster
	}
	sessCtx := session.NewContext(workspaceName, wsInfo.ItemStateManager(), syncer, r.logger)
	sessCtx.Stats = r.stats
	state := session.NewState(sessionID, r.logger)
	sess := &Session{ID: sessionID, Workspace: workspaceName, State: state, Context: sessCtx}

	state.AddLifecycleListener(sessionListener{repo: r, sessionID: sessionID, wsInfo: wsInfo})

	r.sessionsMu.Lock()
	r.sessions[sessionID] = sess
	active := len(r.sessions)
	r.sessionsMu.Unlock()

	r.stats.IncrementLoginCount()
	r.stats.SetSessionCount(int64(active))

	wsInfo.SetActive(true)
	r.logger.Info("session logged in", tag.SessionID(sessionID), tag.WorkspaceName(workspaceName))
	return sess, nil
}

// sessionListener deregisters a session from the repository's active
// set on logout, and releases the workspace back to idle tracking once
// its last session is gone.
type sessionListener struct {
	repo      *Repository
	sessionID string
	wsInfo    *workspace.Info
}

func (l sessionListener) LoggingOut(ctx context.Context) {}

func (l sessionListener) LoggedOut(ctx context.Context) {
	l.repo.sessionsMu.Lock()
	delete(l.repo.sessions, l.sessionID)
	active := len(l.repo.sessions)
	remaining := 0
	for _, s := range l.repo.sessions {
		if s.Workspace == l.wsInfo.Name() {
			remaining++
		}
	}
	l.repo.sessionsMu.Unlock()

	l.repo.stats.SetSessionCount(int64(active))
	if remaining == 0 {
		l.wsInfo.SetActive(false)
	}
}
