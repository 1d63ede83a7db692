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
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/jcrepo/kernel/common/log"
	"github.com/jcrepo/kernel/filesystem"
	"github.com/jcrepo/kernel/id"
	"github.com/jcrepo/kernel/itemstate"
	"github.com/jcrepo/kernel/namespace"
	"github.com/jcrepo/kernel/persistence"
	"github.com/jcrepo/kernel/repocontext"
)

type memStore struct {
	mu    sync.Mutex
	nodes map[id.NodeID]*itemstate.NodeState
}

func newMemStore() *memStore { return &memStore{nodes: map[id.NodeID]*itemstate.NodeState{}} }

func (s *memStore) Init(context.Context, persistence.Context) error { return nil }

func (s *memStore) Load(_ context.Context, nodeID id.NodeID) (*itemstate.NodeState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ns, ok := s.nodes[nodeID]; ok {
		return ns, nil
	}
	return nil, persistence.ErrUnsupported
}

func (s *memStore) Store(_ context.Context, cl *itemstate.ChangeLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range append(append([]*itemstate.NodeState{}, cl.AddedNodes...), cl.ModifiedNodes...) {
		s.nodes[n.ID] = n
	}
	for _, n := range cl.DeletedNodes {
		delete(s.nodes, n.ID)
	}
	return nil
}

func (s *memStore) Close() error { return nil }

func (s *memStore) CheckConsistency(context.Context) error { return persistence.ErrUnsupported }

func (s *memStore) Iterate(context.Context, func(*itemstate.NodeState) error) error {
	return persistence.ErrUnsupported
}

type infoSuite struct {
	suite.Suite
	dir     string
	repoCtx *repocontext.Context
	info    *Info
}

func TestInfoSuite(t *testing.T) {
	suite.Run(t, new(infoSuite))
}

func (s *infoSuite) SetupTest() {
	s.dir = s.T().TempDir()
	fs, err := filesystem.NewBoltFileSystem(s.dir + "/repo.bolt")
	s.Require().NoError(err)

	nsFS := filesystem.SubRoot(fs, "namespaces")
	logger := log.NewNoop()
	reg, err := namespace.NewRegistry(context.Background(), nsFS, logger)
	s.Require().NoError(err)

	s.repoCtx = &repocontext.Context{
		RootNodeID: id.RootNodeID,
		Namespaces: reg,
		RootFS:     fs,
		Logger:     logger,
	}

	cfg := Config{
		Name: "default",
		Home: s.dir + "/default",
		NewFileSystem: func(home string) (filesystem.FileSystem, error) {
			return filesystem.SubRoot(fs, "workspaces/default"), nil
		},
		NewPersistenceManager: func(persistence.Context) (persistence.PersistenceManager, error) {
			return newMemStore(), nil
		},
	}
	s.info = New(cfg, s.repoCtx, nil, nil)
}

func (s *infoSuite) TestInitializeIsIdempotent() {
	ok, err := s.info.Initialize(context.Background())
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.info.Initialize(context.Background())
	s.Require().NoError(err)
	s.False(ok)

	s.NotNil(s.info.ItemStateManager())
	s.NotNil(s.info.PersistenceManager())
}

func (s *infoSuite) TestDisposeAllowsReinitialize() {
	_, err := s.info.Initialize(context.Background())
	s.Require().NoError(err)

	s.info.Dispose()

	ok, err := s.info.Initialize(context.Background())
	s.Require().NoError(err)
	s.True(ok)
}

func (s *infoSuite) TestDisposeIfIdleRespectsActiveFlag() {
	_, err := s.info.Initialize(context.Background())
	s.Require().NoError(err)

	// Still active (set by Initialize): DisposeIfIdle must not tear it
	// down even with a zero grace period.
	s.info.DisposeIfIdle(0)
	s.NotNil(s.info.ItemStateManager())

	s.info.SetActive(false)
	s.info.DisposeIfIdle(time.Hour)
	s.NotNil(s.info.ItemStateManager()) // still initialized, idle grace not elapsed

	s.info.DisposeIfIdle(0)
	_, err = s.info.Initialize(context.Background())
	s.Require().NoError(err)
}

func (s *infoSuite) TestGetSearchManagerFailsWithoutFactory() {
	_, err := s.info.Initialize(context.Background())
	s.Require().NoError(err)

	_, err = s.info.GetSearchManager(context.Background())
	s.Require().Error(err)
}

func (s *infoSuite) TestGetLockManagerFailsWithoutFactory() {
	_, err := s.info.GetLockManager()
	s.Require().Error(err)
}
