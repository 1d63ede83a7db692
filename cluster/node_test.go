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

package cluster

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/jcrepo/kernel/common/log"
	"github.com/jcrepo/kernel/itemstate"
)

type memJournal struct {
	mu      sync.Mutex
	records []Record
	seq     int64
}

func newMemJournal() *memJournal { return &memJournal{} }

func (j *memJournal) Append(_ context.Context, rec Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.seq++
	rec.Seq = j.seq
	j.records = append(j.records, rec)
	return nil
}

func (j *memJournal) Since(_ context.Context, seq int64) ([]Record, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []Record
	for _, r := range j.records {
		if r.Seq > seq {
			out = append(out, r)
		}
	}
	return out, nil
}

func (j *memJournal) Tail(context.Context) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.seq, nil
}

func (j *memJournal) Close() error { return nil }

type fakeNamespaceSink struct {
	mu     sync.Mutex
	calls  int
	lastOld string
	lastNew string
	lastURI string
}

func (f *fakeNamespaceSink) ExternalRemap(_ context.Context, oldPrefix, newPrefix, uri string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastOld, f.lastNew, f.lastURI = oldPrefix, newPrefix, uri
	return nil
}

type fakeWorkspaceSink struct {
	mu       sync.Mutex
	applied  []*itemstate.ChangeLog
}

func (f *fakeWorkspaceSink) ApplyExternal(_ context.Context, cl *itemstate.ChangeLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = append(f.applied, cl)
	return nil
}

type nodeSuite struct {
	suite.Suite
	journal *memJournal
	a, b    *node
}

func TestNodeSuite(t *testing.T) {
	suite.Run(t, new(nodeSuite))
}

func (s *nodeSuite) SetupTest() {
	s.journal = newMemJournal()
	s.a = New("node-a", s.journal, log.NewNoop()).(*node)
	s.b = New("node-b", s.journal, log.NewNoop()).(*node)
}

func (s *nodeSuite) TestOwnRecordsAreNotReplayedToSelf() {
	sink := &fakeNamespaceSink{}
	s.a.SetNamespaceSink(sink)

	s.Require().NoError(s.journal.Append(context.Background(), Record{
		ClusterNodeID: "node-a",
		Namespace:     &NamespaceRemap{OldPrefix: "old", NewPrefix: "new", URI: "urn:x"},
	}))

	s.Require().NoError(s.a.replay(context.Background()))
	s.Equal(0, sink.calls)
}

func (s *nodeSuite) TestForeignNamespaceRemapIsReplayed() {
	sink := &fakeNamespaceSink{}
	s.b.SetNamespaceSink(sink)

	s.Require().NoError(s.journal.Append(context.Background(), Record{
		ClusterNodeID: "node-a",
		Namespace:     &NamespaceRemap{OldPrefix: "old", NewPrefix: "new", URI: "urn:x"},
	}))

	s.Require().NoError(s.b.replay(context.Background()))
	s.Equal(1, sink.calls)
	s.Equal("urn:x", sink.lastURI)
}

func (s *nodeSuite) TestWorkspaceUpdateIsReplayedToBoundSink() {
	sink := &fakeWorkspaceSink{}
	s.b.WorkspaceChannel("default", sink)

	cl := itemstate.NewChangeLog()
	s.Require().NoError(s.journal.Append(context.Background(), Record{
		ClusterNodeID: "node-a",
		Update:        &WorkspaceUpdate{WorkspaceName: "default", ChangeLog: cl},
	}))

	s.Require().NoError(s.b.replay(context.Background()))
	s.Require().Len(sink.applied, 1)
}

func (s *nodeSuite) TestSyncCatchesUpToTail() {
	sink := &fakeWorkspaceSink{}
	s.b.WorkspaceChannel("default", sink)

	s.Require().NoError(s.journal.Append(context.Background(), Record{
		ClusterNodeID: "node-a",
		Update:        &WorkspaceUpdate{WorkspaceName: "default", ChangeLog: itemstate.NewChangeLog()},
	}))

	s.Require().NoError(s.b.Sync(context.Background()))
	s.Require().Len(sink.applied, 1)
}

func (s *nodeSuite) TestPublishChannelAppendsToJournal() {
	ch := s.a.WorkspaceChannel("default", &fakeWorkspaceSink{})
	s.Require().NoError(ch.Publish(context.Background(), itemstate.NewChangeLog()))

	tail, err := s.journal.Tail(context.Background())
	s.Require().NoError(err)
	s.Equal(int64(1), tail)
}

func (s *nodeSuite) TestNamespaceChannelBroadcastsToPeers() {
	sink := &fakeNamespaceSink{}
	s.b.SetNamespaceSink(sink)

	ch := s.a.NamespaceChannel()
	s.Require().NoError(ch.Remapped("", "acme", "http://acme/"))

	s.Require().NoError(s.b.replay(context.Background()))
	s.Equal(1, sink.calls)
	s.Equal("", sink.lastOld)
	s.Equal("acme", sink.lastNew)
	s.Equal("http://acme/", sink.lastURI)

	// The originating node skips its own record on replay.
	nsSink := &fakeNamespaceSink{}
	s.a.SetNamespaceSink(nsSink)
	s.Require().NoError(s.a.replay(context.Background()))
	s.Equal(0, nsSink.calls)
}
