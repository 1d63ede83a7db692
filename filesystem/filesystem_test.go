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

package filesystem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
)

type boltFSSuite struct {
	suite.Suite
	fs FileSystem
}

func TestBoltFSSuite(t *testing.T) {
	suite.Run(t, new(boltFSSuite))
}

func (s *boltFSSuite) SetupTest() {
	fs, err := NewBoltFileSystem(s.T().TempDir() + "/repo.bolt")
	s.Require().NoError(err)
	s.fs = fs
}

func (s *boltFSSuite) TearDownTest() {
	s.Require().NoError(s.fs.Close())
}

func (s *boltFSSuite) TestWriteReadRoundTrip() {
	ctx := context.Background()
	s.Require().NoError(s.fs.Write(ctx, "meta/rootUUID", []byte("cafebabe")))

	data, err := s.fs.Read(ctx, "meta/rootUUID")
	s.Require().NoError(err)
	s.Equal("cafebabe", string(data))
}

func (s *boltFSSuite) TestExistsAndDelete() {
	ctx := context.Background()
	exists, err := s.fs.Exists(ctx, "a")
	s.Require().NoError(err)
	s.False(exists)

	s.Require().NoError(s.fs.Write(ctx, "a", []byte("x")))
	exists, err = s.fs.Exists(ctx, "a")
	s.Require().NoError(err)
	s.True(exists)

	s.Require().NoError(s.fs.Delete(ctx, "a"))
	exists, err = s.fs.Exists(ctx, "a")
	s.Require().NoError(err)
	s.False(exists)
}

func (s *boltFSSuite) TestReadMissingFails() {
	_, err := s.fs.Read(context.Background(), "nope")
	s.Require().Error(err)
}

func (s *boltFSSuite) TestListReturnsKeysUnderPrefix() {
	ctx := context.Background()
	s.Require().NoError(s.fs.Write(ctx, "workspaces/default/a", nil))
	s.Require().NoError(s.fs.Write(ctx, "workspaces/default/b", nil))
	s.Require().NoError(s.fs.Write(ctx, "workspaces/other/c", nil))

	keys, err := s.fs.List(ctx, "workspaces/default/")
	s.Require().NoError(err)
	s.Len(keys, 2)
}

func (s *boltFSSuite) TestSubRootNamespacesPaths() {
	ctx := context.Background()
	sub := SubRoot(s.fs, "namespaces")
	s.Require().NoError(sub.Write(ctx, "ns_reg", []byte("{}")))

	data, err := s.fs.Read(ctx, "namespaces/ns_reg")
	s.Require().NoError(err)
	s.Equal("{}", string(data))

	// Leading slashes are stripped before joining.
	data, err = sub.Read(ctx, "/ns_reg")
	s.Require().NoError(err)
	s.Equal("{}", string(data))
}

func (s *boltFSSuite) TestNestedSubRoots() {
	ctx := context.Background()
	inner := SubRoot(SubRoot(s.fs, "workspaces"), "default")
	s.Require().NoError(inner.Write(ctx, "workspace.xml", []byte("<workspace/>")))

	exists, err := s.fs.Exists(ctx, "workspaces/default/workspace.xml")
	s.Require().NoError(err)
	s.True(exists)
}
