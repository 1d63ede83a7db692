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

// Package session implements the session kernel and its SessionState:
// the alive/close-once guard around a workspace-bound sequence of
// SessionOperations.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/jcrepo/kernel/common/log"
	"github.com/jcrepo/kernel/common/log/tag"
	"github.com/jcrepo/kernel/repoerror"
)

// LifecycleListener is notified around logout.
type LifecycleListener interface {
	LoggingOut(ctx context.Context)
	LoggedOut(ctx context.Context)
}

// State is the per-session lifecycle guard: a binary
// alive flag plus a close-once invariant.
type State struct {
	id     string
	logger log.Logger

	closed atomic.Bool

	mu        sync.Mutex
	listeners []LifecycleListener
}

// NewState constructs a live SessionState for sessionID.
func NewState(sessionID string, logger log.Logger) *State {
	return &State{id: sessionID, logger: logger.With(tag.SessionID(sessionID))}
}

// AddLifecycleListener registers l to be notified around logout.
func (s *State) AddLifecycleListener(l LifecycleListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// RemoveAllLifecycleListeners drops every registered listener, used at
// the start of logout to avoid re-entrant event delivery during
// teardown.
func (s *State) RemoveAllLifecycleListeners() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = nil
}

// CheckAlive fails with the closed-session condition once the session
// has closed.
func (s *State) CheckAlive() error {
	if s.closed.Load() {
		return repoerror.New(repoerror.KindRepositoryClosed, "session closed: "+s.id)
	}
	return nil
}

// Perform checks alive, then runs op.Perform(ctx, sessCtx). Operations
// are first-class values so cross-cutting concerns (logging, stats,
// XA hooks) have a single attach point.
func (s *State) Perform(ctx context.Context, sessCtx *Context, op Operation) error {
	if err := s.CheckAlive(); err != nil {
		return err
	}
	s.logger.Debug("performing session operation", tag.Operation(op.Name()))
	start := time.Now()
	err := op.Perform(ctx, sessCtx)
	if sessCtx.Stats != nil {
		if _, isSave := op.(SaveOperation); isSave {
			sessCtx.Stats.RecordSessionWrite(time.Since(start))
		} else {
			sessCtx.Stats.RecordSessionRead(time.Since(start))
		}
	}
	return err
}

// Close is close-once: it returns true exactly once per session, and
// false on every subsequent call.
func (s *State) Close() bool {
	return s.closed.CompareAndSwap(false, true)
}

// Logout runs the exactly-once teardown sequence: notify
// loggingOut, discard transient state, dispose the session's
// collaborators, notify loggedOut.
func (s *State) Logout(ctx context.Context, sessCtx *Context) bool {
	if !s.Close() {
		return false
	}

	s.mu.Lock()
	listeners := s.listeners
	s.listeners = nil
	s.mu.Unlock()

	for _, l := range listeners {
		l.LoggingOut(ctx)
	}

	sessCtx.discardTransientState()
	sessCtx.dispose()

	for _, l := range listeners {
		l.LoggedOut(ctx)
	}
	return true
}
