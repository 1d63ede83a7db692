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

package namespace

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/jcrepo/kernel/common/log"
	"github.com/jcrepo/kernel/filesystem"
)

type registrySuite struct {
	suite.Suite
	fs  filesystem.FileSystem
	reg Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(registrySuite))
}

func (s *registrySuite) SetupTest() {
	dir := s.T().TempDir()
	fs, err := filesystem.NewBoltFileSystem(dir + "/repo.bolt")
	s.Require().NoError(err)
	s.fs = filesystem.SubRoot(fs, "namespaces")
	reg, err := NewRegistry(context.Background(), s.fs, log.NewNoop())
	s.Require().NoError(err)
	s.reg = reg
}

func (s *registrySuite) TestFirstBootSeedsReservedBindings() {
	uri, err := s.reg.GetURI("jcr")
	s.Require().NoError(err)
	s.Equal("http://www.jcp.org/jcr/1.0", uri)

	idx, err := s.reg.GetIndexByURI("http://www.jcp.org/jcr/1.0")
	s.Require().NoError(err)
	s.Greater(idx, 0)
}

func (s *registrySuite) TestRegisterAndRemap() {
	ctx := context.Background()
	s.Require().NoError(s.reg.Register(ctx, "acme", "http://acme/"))

	idxBefore, err := s.reg.GetIndexByURI("http://acme/")
	s.Require().NoError(err)

	s.Require().NoError(s.reg.Register(ctx, "ACME", "http://acme/"))

	prefix, err := s.reg.GetPrefix("http://acme/")
	s.Require().NoError(err)
	s.Equal("ACME", prefix)

	_, err = s.reg.GetURI("acme")
	s.Require().Error(err)

	idxAfter, err := s.reg.GetIndexByURI("http://acme/")
	s.Require().NoError(err)
	s.Equal(idxBefore, idxAfter)
}

func (s *registrySuite) TestRegisterIdempotent() {
	ctx := context.Background()
	s.Require().NoError(s.reg.Register(ctx, "acme", "http://acme/"))
	s.Require().NoError(s.reg.Register(ctx, "acme", "http://acme/"))
}

func (s *registrySuite) TestReservedPrefixRejected() {
	ctx := context.Background()
	for _, p := range []string{"Xml", "XML", "xmlfoo"} {
		err := s.reg.Register(ctx, p, "http://example/"+p)
		s.Require().Error(err, p)
	}
}

func (s *registrySuite) TestInvalidNCNameRejected() {
	ctx := context.Background()
	for _, p := range []string{"1abc", "a b"} {
		err := s.reg.Register(ctx, p, "http://example/"+p)
		s.Require().Error(err, p)
	}
}

func (s *registrySuite) TestUnregisterAlwaysUnsupported() {
	ctx := context.Background()
	s.Require().NoError(s.reg.Register(ctx, "acme", "http://acme/"))
	err := s.reg.Unregister(ctx, "acme")
	s.Require().Error(err)
}

func (s *registrySuite) TestSafeRegisterSanitizesAndSuffixes() {
	ctx := context.Background()
	p1, err := s.reg.SafeRegister(ctx, "xmlfoo", "http://a/")
	s.Require().NoError(err)
	s.NotEqual("xmlfoo", p1)

	p2, err := s.reg.SafeRegister(ctx, p1, "http://b/")
	s.Require().NoError(err)
	s.NotEqual(p1, p2)
}

func (s *registrySuite) TestSafeRegisterIdempotentForURI() {
	ctx := context.Background()
	p1, err := s.reg.SafeRegister(ctx, "q", "http://q/")
	s.Require().NoError(err)
	p2, err := s.reg.SafeRegister(ctx, "different-hint", "http://q/")
	s.Require().NoError(err)
	s.Equal(p1, p2)
}

func (s *registrySuite) TestReloadRoundTrips() {
	ctx := context.Background()
	s.Require().NoError(s.reg.Register(ctx, "acme", "http://acme/"))
	_, err := s.reg.SafeRegister(ctx, "beta", "http://beta/")
	s.Require().NoError(err)

	reg2, err := NewRegistry(ctx, s.fs, log.NewNoop())
	s.Require().NoError(err)

	before := s.reg.(*registry)
	after := reg2.(*registry)
	s.Empty(cmp.Diff(before.prefixToURI, after.prefixToURI))
	s.Empty(cmp.Diff(before.uriToPrefix, after.uriToPrefix))
	s.Empty(cmp.Diff(before.uriToIndex, after.uriToIndex))
	s.Equal(before.nextIndex, after.nextIndex)
}

func (s *registrySuite) TestExternalRemapAppliesWithoutRebroadcast() {
	ctx := context.Background()
	ch := &recordingChannel{}
	s.reg.SetEventChannel(ch)
	require.NoError(s.T(), s.reg.ExternalRemap(ctx, "", "ext", "http://ext/"))
	uri, err := s.reg.GetURI("ext")
	s.Require().NoError(err)
	s.Equal("http://ext/", uri)
	s.Empty(ch.remaps)
}

func (s *registrySuite) TestExternalRemapRejectsUnregistration() {
	err := s.reg.ExternalRemap(context.Background(), "acme", "", "http://acme/")
	s.Require().Error(err)
}

type recordingChannel struct {
	remaps [][3]string
}

func (c *recordingChannel) Remapped(oldPrefix, newPrefix, uri string) error {
	c.remaps = append(c.remaps, [3]string{oldPrefix, newPrefix, uri})
	return nil
}

func (s *registrySuite) TestRegisterBroadcastsOnEventChannel() {
	ctx := context.Background()
	ch := &recordingChannel{}
	s.reg.SetEventChannel(ch)

	s.Require().NoError(s.reg.Register(ctx, "acme", "http://acme/"))
	s.Require().Len(ch.remaps, 1)
	s.Equal([3]string{"", "acme", "http://acme/"}, ch.remaps[0])

	s.Require().NoError(s.reg.Register(ctx, "ACME", "http://acme/"))
	s.Require().Len(ch.remaps, 2)
	s.Equal([3]string{"acme", "ACME", "http://acme/"}, ch.remaps[1])
}
