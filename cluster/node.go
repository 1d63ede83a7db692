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

// Package cluster implements the cluster node external channel: the
// replicated transport that publishes namespace remaps and per-workspace
// item-state updates to every repository instance sharing a journal,
// and replays inbound namespace, update, and workspace-created records
// into local subsystems. Node-type and lock events are not carried.
package cluster

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/jcrepo/kernel/common/log"
	"github.com/jcrepo/kernel/common/log/tag"
	"github.com/jcrepo/kernel/itemstate"
	"github.com/jcrepo/kernel/repoerror"
)

// Record is one entry appended to the journal: exactly one of the
// payload fields is set.
type Record struct {
	ClusterNodeID string
	Seq           int64

	Namespace *NamespaceRemap
	Update    *WorkspaceUpdate
	Workspace *WorkspaceCreated
}

// NamespaceRemap mirrors namespace.Registry's externalRemap contract.
type NamespaceRemap struct {
	OldPrefix string
	NewPrefix string
	URI       string
}

// WorkspaceUpdate carries a replicated ChangeLog for one workspace.
type WorkspaceUpdate struct {
	WorkspaceName string
	ChangeLog     *itemstate.ChangeLog
}

// WorkspaceCreated announces a new workspace to the cluster.
type WorkspaceCreated struct {
	WorkspaceName string
}

// Journal is the append-only, cluster-shared record ClusterNode reads
// and writes. Seq is monotonically increasing per ClusterNodeID; Tail
// returns the latest sequence number assigned across the whole
// cluster, used to know how far Sync must catch up.
type Journal interface {
	Append(ctx context.Context, rec Record) error
	Since(ctx context.Context, seq int64) ([]Record, error)
	Tail(ctx context.Context) (int64, error)
	Close() error
}

// NamespaceSink receives replicated namespace remaps.
type NamespaceSink interface {
	ExternalRemap(ctx context.Context, oldPrefix, newPrefix, uri string) error
}

// WorkspaceUpdateSink receives a replicated ChangeLog for one workspace.
type WorkspaceUpdateSink interface {
	ApplyExternal(ctx context.Context, cl *itemstate.ChangeLog) error
}

// WorkspaceCreatedSink is notified when a peer creates a new workspace.
type WorkspaceCreatedSink interface {
	OnWorkspaceCreated(ctx context.Context, workspaceName string)
}

// NamespaceEventChannel is the outbound side of namespace
// replication: local registry mutations are broadcast through it to
// every peer. It matches the registry's event-channel contract.
type NamespaceEventChannel interface {
	Remapped(oldPrefix, newPrefix, uri string) error
}

// Node is the ClusterNode contract: start/stop/sync, plus the
// namespace channel and per-workspace update channels. There is no
// lock channel.
type Node interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Sync(ctx context.Context) error

	SetNamespaceSink(s NamespaceSink)
	SetWorkspaceCreatedSink(s WorkspaceCreatedSink)
	NamespaceChannel() NamespaceEventChannel
	WorkspaceChannel(workspaceName string, sink WorkspaceUpdateSink) itemstate.UpdateChannel
}

type workspaceBinding struct {
	sink WorkspaceUpdateSink
}

type node struct {
	id      string
	journal Journal
	logger  log.Logger
	breaker *gobreaker.CircuitBreaker

	mu              sync.RWMutex
	lastSeq         int64
	running         bool
	namespaceSink   NamespaceSink
	workspaceSink   WorkspaceCreatedSink
	workspaces      map[string]*workspaceBinding
	pollInterval    time.Duration
	stopCh          chan struct{}
	stoppedCh       chan struct{}
}

// New constructs a ClusterNode identified by id, replicating through
// journal.
func New(id string, journal Journal, logger log.Logger) Node {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "cluster-sync-" + id,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return &node{
		id:           id,
		journal:      journal,
		logger:       logger,
		breaker:      breaker,
		workspaces:   make(map[string]*workspaceBinding),
		pollInterval: time.Second,
	}
}

func (n *node) SetNamespaceSink(s NamespaceSink) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.namespaceSink = s
}

func (n *node) SetWorkspaceCreatedSink(s WorkspaceCreatedSink) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.workspaceSink = s
}

// WorkspaceChannel returns the per-workspace update channel a
// SharedItemStateManager publishes local commits on, and binds sink to
// receive replayed inbound updates for that workspace.
func (n *node) WorkspaceChannel(workspaceName string, sink WorkspaceUpdateSink) itemstate.UpdateChannel {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.workspaces[workspaceName] = &workspaceBinding{sink: sink}
	return &publishChannel{node: n, workspaceName: workspaceName}
}

type publishChannel struct {
	node          *node
	workspaceName string
}

func (c *publishChannel) Publish(ctx context.Context, cl *itemstate.ChangeLog) error {
	return c.node.journal.Append(ctx, Record{
		ClusterNodeID: c.node.id,
		Update: &WorkspaceUpdate{
			WorkspaceName: c.workspaceName,
			ChangeLog:     cl,
		},
	})
}

// NamespaceChannel returns the channel the namespace registry
// broadcasts local register/remap mutations on.
func (n *node) NamespaceChannel() NamespaceEventChannel {
	return &namespaceChannel{node: n}
}

type namespaceChannel struct {
	node *node
}

func (c *namespaceChannel) Remapped(oldPrefix, newPrefix, uri string) error {
	return c.node.journal.Append(context.Background(), Record{
		ClusterNodeID: c.node.id,
		Namespace: &NamespaceRemap{
			OldPrefix: oldPrefix,
			NewPrefix: newPrefix,
			URI:       uri,
		},
	})
}

// Start begins polling the journal tail and replaying foreign records.
func (n *node) Start(ctx context.Context) error {
	n.mu.Lock()
	if n.running {
		n.mu.Unlock()
		return nil
	}
	n.running = true
	n.stopCh = make(chan struct{})
	n.stoppedCh = make(chan struct{})
	n.mu.Unlock()

	go n.pollLoop()
	return nil
}

func (n *node) Stop(ctx context.Context) error {
	n.mu.Lock()
	if !n.running {
		n.mu.Unlock()
		return nil
	}
	n.running = false
	stopCh := n.stopCh
	stoppedCh := n.stoppedCh
	n.mu.Unlock()

	close(stopCh)
	select {
	case <-stoppedCh:
	case <-ctx.Done():
		return ctx.Err()
	}
	return n.journal.Close()
}

func (n *node) pollLoop() {
	defer close(n.stoppedCh)
	ticker := time.NewTicker(n.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-n.stopCh:
			return
		case <-ticker.C:
			if err := n.replay(context.Background()); err != nil {
				n.logger.Error("cluster replay failed", tag.Error(err))
			}
		}
	}
}

func (n *node) replay(ctx context.Context) error {
	n.mu.RLock()
	since := n.lastSeq
	n.mu.RUnlock()

	records, err := n.journal.Since(ctx, since)
	if err != nil {
		return repoerror.Wrap(repoerror.KindCluster, "read journal", err)
	}
	for _, rec := range records {
		if rec.ClusterNodeID == n.id {
			n.mu.Lock()
			if rec.Seq > n.lastSeq {
				n.lastSeq = rec.Seq
			}
			n.mu.Unlock()
			continue
		}
		n.applyRecord(ctx, rec)
		n.mu.Lock()
		if rec.Seq > n.lastSeq {
			n.lastSeq = rec.Seq
		}
		n.mu.Unlock()
	}
	return nil
}

func (n *node) applyRecord(ctx context.Context, rec Record) {
	switch {
	case rec.Namespace != nil:
		n.mu.RLock()
		sink := n.namespaceSink
		n.mu.RUnlock()
		if sink == nil {
			return
		}
		if err := sink.ExternalRemap(ctx, rec.Namespace.OldPrefix, rec.Namespace.NewPrefix, rec.Namespace.URI); err != nil {
			n.logger.Error("external namespace remap failed", tag.Error(err))
		}
	case rec.Update != nil:
		n.mu.RLock()
		binding := n.workspaces[rec.Update.WorkspaceName]
		n.mu.RUnlock()
		if binding == nil {
			return
		}
		if err := binding.sink.ApplyExternal(ctx, rec.Update.ChangeLog); err != nil {
			n.logger.Error("external change log apply failed", tag.WorkspaceName(rec.Update.WorkspaceName), tag.Error(err))
		}
	case rec.Workspace != nil:
		n.mu.RLock()
		sink := n.workspaceSink
		n.mu.RUnlock()
		if sink != nil {
			sink.OnWorkspaceCreated(ctx, rec.Workspace.WorkspaceName)
		}
	}
}

// Sync blocks until the local replay pointer reaches the journal's
// authoritative tail. The call is wrapped
// in a circuit breaker: a wedged journal trips the breaker so callers
// fail fast instead of hanging on every refresh.
func (n *node) Sync(ctx context.Context) error {
	_, err := n.breaker.Execute(func() (interface{}, error) {
		tail, err := n.journal.Tail(ctx)
		if err != nil {
			return nil, repoerror.Wrap(repoerror.KindCluster, "read journal tail", err)
		}
		if err := n.replay(ctx); err != nil {
			return nil, err
		}
		n.mu.RLock()
		caughtUp := n.lastSeq >= tail
		n.mu.RUnlock()
		if !caughtUp {
			return nil, repoerror.New(repoerror.KindCluster, "replay did not reach journal tail")
		}
		return nil, nil
	})
	if err != nil {
		return repoerror.Wrap(repoerror.KindCluster, "cluster sync", err)
	}
	return nil
}
