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

	"github.com/stretchr/testify/suite"

	"github.com/jcrepo/kernel/common/log"
)

type transientSuite struct {
	suite.Suite
	home string
	cfg  Config
}

func (s *transientSuite) SetupTest() {
	home, err := os.MkdirTemp("", "jcrepo-transient-test-*")
	s.Require().NoError(err)
	s.home = home
	s.cfg = newTestConfig(home)
}

func (s *transientSuite) TearDownTest() {
	os.RemoveAll(s.home)
}

func (s *transientSuite) TestLoginStartsRepositoryLazily() {
	tr := NewTransientRepository(s.cfg, log.NewNoop())
	s.Nil(tr.repo)

	sess, err := tr.Login(context.Background(), "", nil)
	s.Require().NoError(err)
	s.NotNil(tr.repo)

	s.True(sess.State.Logout(context.Background(), sess.Context))
}

func (s *transientSuite) TestLastLogoutStopsRepository() {
	tr := NewTransientRepository(s.cfg, log.NewNoop())

	sess, err := tr.Login(context.Background(), "", nil)
	s.Require().NoError(err)
	s.NotNil(tr.repo)

	s.True(sess.State.Logout(context.Background(), sess.Context))

	tr.mu.Lock()
	repo := tr.repo
	tr.mu.Unlock()
	s.Nil(repo)
}

func (s *transientSuite) TestRepositoryStaysUpWhileAnySessionRemains() {
	tr := NewTransientRepository(s.cfg, log.NewNoop())

	first, err := tr.Login(context.Background(), "", nil)
	s.Require().NoError(err)
	second, err := tr.Login(context.Background(), "", nil)
	s.Require().NoError(err)

	s.True(first.State.Logout(context.Background(), first.Context))

	tr.mu.Lock()
	repo := tr.repo
	tr.mu.Unlock()
	s.NotNil(repo)

	s.True(second.State.Logout(context.Background(), second.Context))
}

func (s *transientSuite) TestDescriptorFallsBackToStaticTable() {
	tr := NewTransientRepository(s.cfg, log.NewNoop())

	name, ok := tr.Descriptor(DescriptorRepositoryName)
	s.True(ok)
	s.Equal("jcrepo", name)
}

func TestTransientSuite(t *testing.T) {
	suite.Run(t, new(transientSuite))
}
