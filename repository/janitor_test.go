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
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/jcrepo/kernel/common/log"
	"github.com/jcrepo/kernel/filesystem"
	"github.com/jcrepo/kernel/persistence"
	"github.com/jcrepo/kernel/workspace"
)

type janitorSuite struct {
	suite.Suite
	home string
}

func (s *janitorSuite) SetupTest() {
	home, err := os.MkdirTemp("", "jcrepo-janitor-test-*")
	s.Require().NoError(err)
	s.home = home
}

func (s *janitorSuite) TearDownTest() {
	os.RemoveAll(s.home)
}

func (s *janitorSuite) TestSweepSkipsDefaultWorkspace() {
	cfg := newTestConfig(s.home)
	cfg.Workspaces = append(cfg.Workspaces, workspace.Config{
		Name: "secondary",
		Home: s.home + "/secondary",
		NewFileSystem: func(h string) (filesystem.FileSystem, error) {
			return filesystem.NewBoltFileSystem(h + ".bolt")
		},
		NewPersistenceManager: func(persistence.Context) (persistence.PersistenceManager, error) {
			return newMemStore(), nil
		},
	})
	cfg.WorkspaceMaxIdleTime = 0 // the janitor is not started by Start; swept manually below

	repo := New(cfg, log.NewNoop())
	s.Require().NoError(repo.Start(context.Background()))
	defer repo.Shutdown(context.Background())

	secondary, ok := repo.workspace("secondary")
	s.Require().True(ok)
	_, err := secondary.Initialize(context.Background())
	s.Require().NoError(err)
	secondary.SetActive(false)

	// Sweeping with a one-nanosecond grace period disposes any idle non-default
	// workspace whose idle timestamp has already been set; the first
	// sweep only records the timestamp (matches DisposeIfIdle's
	// two-phase contract), so call twice.
	repo.cfg.WorkspaceMaxIdleTime = time.Nanosecond
	repo.sweepIdleWorkspaces()
	time.Sleep(2 * time.Millisecond)
	repo.sweepIdleWorkspaces()

	defaultWS, ok := repo.workspace("default")
	s.Require().True(ok)
	s.True(defaultWS.Name() == "default")

	// Initialize reports true only for a workspace that was disposed.
	reinit, err := defaultWS.Initialize(context.Background())
	s.Require().NoError(err)
	s.False(reinit)
	reinit, err = secondary.Initialize(context.Background())
	s.Require().NoError(err)
	s.True(reinit)
}

func TestJanitorSuite(t *testing.T) {
	suite.Run(t, new(janitorSuite))
}
