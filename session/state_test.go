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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/jcrepo/kernel/common/log"
	"github.com/jcrepo/kernel/id"
	"github.com/jcrepo/kernel/itemstate"
	"github.com/jcrepo/kernel/observation"
)

var errNotFound = errors.New("not found")

func newTestManager() itemstate.SharedItemStateManager {
	return itemstate.NewSharedItemStateManager("default", inMemoryStore{}, observation.NewDispatcher(), log.NewNoop())
}

type inMemoryStore struct{}

func (inMemoryStore) Load(context.Context, id.NodeID) (*itemstate.NodeState, error) {
	return nil, errNotFound
}
func (inMemoryStore) Store(context.Context, *itemstate.ChangeLog) error { return nil }

type stateSuite struct {
	suite.Suite
	mgr itemstate.SharedItemStateManager
	ctx *Context
}

func TestStateSuite(t *testing.T) {
	suite.Run(t, new(stateSuite))
}

func (s *stateSuite) SetupTest() {
	s.mgr = newTestManager()
	s.ctx = NewContext("default", s.mgr, nil, log.NewNoop())
}

func (s *stateSuite) TestCloseIsExactlyOnce() {
	st := NewState("sess-1", log.NewNoop())
	s.True(st.Close())
	s.False(st.Close())

	err := st.CheckAlive()
	s.Require().Error(err)
}

func (s *stateSuite) TestPerformRejectsAfterClose() {
	st := NewState("sess-1", log.NewNoop())
	st.Close()

	err := st.Perform(context.Background(), s.ctx, SaveOperation{})
	s.Require().Error(err)
}

type trackingListener struct {
	loggingOut, loggedOut int
}

func (l *trackingListener) LoggingOut(context.Context) { l.loggingOut++ }
func (l *trackingListener) LoggedOut(context.Context)  { l.loggedOut++ }

func (s *stateSuite) TestLogoutNotifiesListenersAndDisposes() {
	st := NewState("sess-1", log.NewNoop())
	listener := &trackingListener{}
	st.AddLifecycleListener(listener)

	ok := st.Logout(context.Background(), s.ctx)
	s.True(ok)
	s.Equal(1, listener.loggingOut)
	s.Equal(1, listener.loggedOut)
	s.True(s.ctx.Disposed())

	ok = st.Logout(context.Background(), s.ctx)
	s.False(ok)
}

func (s *stateSuite) TestSaveAppliesAndClearsTransient() {
	node := &itemstate.NodeState{ID: id.NewNodeID()}
	s.ctx.Transient().AddNode(node)

	err := SaveOperation{}.Perform(context.Background(), s.ctx)
	s.Require().NoError(err)
	s.True(s.ctx.Transient().IsEmpty())
}

func (s *stateSuite) TestRefreshDiscardsTransientByDefault() {
	node := &itemstate.NodeState{ID: id.NewNodeID()}
	s.ctx.Transient().AddNode(node)

	err := RefreshOperation{KeepChanges: false}.Perform(context.Background(), s.ctx)
	s.Require().NoError(err)
	s.True(s.ctx.Transient().IsEmpty())
}

func (s *stateSuite) TestRefreshKeepsChangesWhenRequested() {
	node := &itemstate.NodeState{ID: id.NewNodeID()}
	s.ctx.Transient().AddNode(node)

	err := RefreshOperation{KeepChanges: true}.Perform(context.Background(), s.ctx)
	s.Require().NoError(err)
	s.False(s.ctx.Transient().IsEmpty())
}

type recordingStats struct {
	reads, writes int
}

func (r *recordingStats) RecordSessionRead(time.Duration)  { r.reads++ }
func (r *recordingStats) RecordSessionWrite(time.Duration) { r.writes++ }

func (s *stateSuite) TestPerformRecordsOperationTimings() {
	st := NewState("sess-1", log.NewNoop())
	rec := &recordingStats{}
	s.ctx.Stats = rec

	s.Require().NoError(st.Perform(context.Background(), s.ctx, SaveOperation{}))
	s.Equal(1, rec.writes)
	s.Equal(0, rec.reads)

	s.Require().NoError(st.Perform(context.Background(), s.ctx, RefreshOperation{KeepChanges: true}))
	s.Equal(1, rec.writes)
	s.Equal(1, rec.reads)
}
