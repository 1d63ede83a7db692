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
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/jcrepo/kernel/common/log"
	"github.com/jcrepo/kernel/filesystem"
	"github.com/jcrepo/kernel/id"
	"github.com/jcrepo/kernel/itemstate"
	"github.com/jcrepo/kernel/persistence"
	"github.com/jcrepo/kernel/workspace"
)

var errNotFound = errors.New("not found")

// memStore is a minimal in-memory persistence.PersistenceManager, used
// so these tests never touch a real database.
type memStore struct {
	nodes map[string]*itemstate.NodeState
}

func newMemStore() *memStore { return &memStore{nodes: make(map[string]*itemstate.NodeState)} }

func (s *memStore) Init(context.Context, persistence.Context) error { return nil }

func (s *memStore) Load(_ context.Context, nodeID id.NodeID) (*itemstate.NodeState, error) {
	ns, ok := s.nodes[nodeID.String()]
	if !ok {
		return nil, errNotFound
	}
	return ns, nil
}

func (s *memStore) Store(_ context.Context, cl *itemstate.ChangeLog) error {
	for _, n := range cl.AddedNodes {
		s.nodes[n.ID.String()] = n
	}
	for _, n := range cl.ModifiedNodes {
		s.nodes[n.ID.String()] = n
	}
	for _, n := range cl.DeletedNodes {
		delete(s.nodes, n.ID.String())
	}
	return nil
}

func (s *memStore) Close() error                            { return nil }
func (s *memStore) CheckConsistency(context.Context) error  { return persistence.ErrUnsupported }
func (s *memStore) Iterate(context.Context, func(*itemstate.NodeState) error) error {
	return nil
}

type repositorySuite struct {
	suite.Suite
	home string
	cfg  Config
}

func (s *repositorySuite) SetupTest() {
	home, err := os.MkdirTemp("", "jcrepo-test-*")
	s.Require().NoError(err)
	s.home = home
	s.cfg = newTestConfig(home)
}

// newTestConfig builds a minimal runnable Config rooted at home,
// backed by an in-memory persistence manager and a bolt-backed file
// system, for use across this package's test suites.
func newTestConfig(home string) Config {
	return Config{
		Home:                 home,
		DefaultWorkspaceName: "default",
		Workspaces: []workspace.Config{
			{
				Name: "default",
				Home: home + "/default",
				NewFileSystem: func(h string) (filesystem.FileSystem, error) {
					return filesystem.NewBoltFileSystem(h + ".bolt")
				},
				NewPersistenceManager: func(persistence.Context) (persistence.PersistenceManager, error) {
					return newMemStore(), nil
				},
			},
		},
		RepositoryName:    "jcrepo",
		RepositoryVendor:  "jcrepo project",
		RepositoryVersion: "1.0.0",
		QueryLanguages:    []string{"JCR-SQL2"},
	}
}

func (s *repositorySuite) TearDownTest() {
	os.RemoveAll(s.home)
}

func (s *repositorySuite) TestStartAndShutdown() {
	repo := New(s.cfg, log.NewNoop())
	s.Require().NoError(repo.Start(context.Background()))

	_, ok := repo.workspace("default")
	s.True(ok)

	s.NoError(repo.Shutdown(context.Background()))
}

func (s *repositorySuite) TestShutdownIsIdempotent() {
	repo := New(s.cfg, log.NewNoop())
	s.Require().NoError(repo.Start(context.Background()))

	s.NoError(repo.Shutdown(context.Background()))
	s.NoError(repo.Shutdown(context.Background()))
}

func (s *repositorySuite) TestLoginRejectsUnknownWorkspace() {
	repo := New(s.cfg, log.NewNoop())
	s.Require().NoError(repo.Start(context.Background()))
	defer repo.Shutdown(context.Background())

	_, err := repo.Login(context.Background(), "nope", nil)
	s.Error(err)
}

func (s *repositorySuite) TestLoginDefaultsToDefaultWorkspace() {
	repo := New(s.cfg, log.NewNoop())
	s.Require().NoError(repo.Start(context.Background()))
	defer repo.Shutdown(context.Background())

	sess, err := repo.Login(context.Background(), "", nil)
	s.Require().NoError(err)
	s.Equal("default", sess.Workspace)
}

func (s *repositorySuite) TestLogoutDeregistersSession() {
	repo := New(s.cfg, log.NewNoop())
	s.Require().NoError(repo.Start(context.Background()))
	defer repo.Shutdown(context.Background())

	sess, err := repo.Login(context.Background(), "", nil)
	s.Require().NoError(err)

	s.True(sess.State.Logout(context.Background(), sess.Context))

	repo.sessionsMu.Lock()
	_, exists := repo.sessions[sess.ID]
	repo.sessionsMu.Unlock()
	s.False(exists)
}

func (s *repositorySuite) TestLoginFailsAfterShutdown() {
	repo := New(s.cfg, log.NewNoop())
	s.Require().NoError(repo.Start(context.Background()))
	s.Require().NoError(repo.Shutdown(context.Background()))

	_, err := repo.Login(context.Background(), "", nil)
	s.Error(err)
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(repositorySuite))
}

func (s *repositorySuite) TestLoginFeedsStatistics() {
	repo := New(s.cfg, log.NewNoop())
	s.Require().NoError(repo.Start(context.Background()))
	defer repo.Shutdown(context.Background())

	sess, err := repo.Login(context.Background(), "", nil)
	s.Require().NoError(err)

	snap := repo.Statistics().Snapshot()
	s.EqualValues(1, snap.LoginCount)
	s.EqualValues(1, snap.SessionCount)

	s.True(sess.State.Logout(context.Background(), sess.Context))
	snap = repo.Statistics().Snapshot()
	s.EqualValues(1, snap.LoginCount)
	s.EqualValues(0, snap.SessionCount)
}
