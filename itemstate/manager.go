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

package itemstate

import (
	"context"
	"sync"
	"time"

	"github.com/jcrepo/kernel/common/log"
	"github.com/jcrepo/kernel/common/log/tag"
	"github.com/jcrepo/kernel/id"
	"github.com/jcrepo/kernel/repoerror"
)

// VirtualProvider contributes a read-only overlay of synthesised
// nodes (version storage, node-type tree) to a workspace's view.
type VirtualProvider interface {
	HasItemState(nodeID id.NodeID) bool
	Load(nodeID id.NodeID) (*NodeState, error)
}

// EventDispatcher delivers a commit's events to registered listeners;
// implemented by the observation package.
type EventDispatcher interface {
	Dispatch(ctx context.Context, events EventStateCollection) error
}

// UpdateChannel is the per-workspace cluster update channel: local
// commits publish to it; it is also the source of inbound
// externalUpdate deliveries.
type UpdateChannel interface {
	Publish(ctx context.Context, cl *ChangeLog) error
}

// Store is the narrow persistence surface the manager needs: load one
// node, and durably store a ChangeLog. Bound concretely by
// persistence.PersistenceManager; declared narrowly here to avoid an
// import cycle between itemstate and persistence.
type Store interface {
	Load(ctx context.Context, nodeID id.NodeID) (*NodeState, error)
	Store(ctx context.Context, cl *ChangeLog) error
}

// BundleRecorder receives the durations of backing-store loads and
// change-log stores; bound by the repository statistics.
type BundleRecorder interface {
	RecordBundleRead(d time.Duration)
	RecordBundleWrite(d time.Duration)
}

// SharedItemStateManager is the authoritative state store for one
// workspace.
type SharedItemStateManager interface {
	Load(ctx context.Context, nodeID id.NodeID) (*NodeState, error)
	Apply(ctx context.Context, cl *ChangeLog) error
	ApplyExternal(ctx context.Context, cl *ChangeLog) error
	AddVirtualItemStateProvider(p VirtualProvider)
	SetEventChannel(ch UpdateChannel)
	SetCheckReferences(enabled bool)
	SetBundleRecorder(r BundleRecorder)
	Dispose()
}

type managerImpl struct {
	workspaceName string
	store         Store
	dispatcher    EventDispatcher
	lock          ISMLock
	logger        log.Logger

	mu       sync.RWMutex
	cache    map[id.NodeID]*NodeState
	children map[id.NodeID][]id.NodeID

	providersMu sync.RWMutex
	providers   []VirtualProvider

	channelMu       sync.RWMutex
	channel         UpdateChannel
	checkReferences bool
	bundleStats     BundleRecorder
}

// NewSharedItemStateManager builds the authoritative state manager for
// one workspace.
func NewSharedItemStateManager(workspaceName string, store Store, dispatcher EventDispatcher, logger log.Logger) SharedItemStateManager {
	return &managerImpl{
		workspaceName: workspaceName,
		store:         store,
		dispatcher:    dispatcher,
		lock:          NewISMLock(),
		logger:        logger,
		cache:         make(map[id.NodeID]*NodeState),
		children:      make(map[id.NodeID][]id.NodeID),
	}
}

func (m *managerImpl) AddVirtualItemStateProvider(p VirtualProvider) {
	m.providersMu.Lock()
	defer m.providersMu.Unlock()
	m.providers = append(m.providers, p)
}

func (m *managerImpl) SetEventChannel(ch UpdateChannel) {
	m.channelMu.Lock()
	defer m.channelMu.Unlock()
	m.channel = ch
}

func (m *managerImpl) SetCheckReferences(enabled bool) {
	m.channelMu.Lock()
	defer m.channelMu.Unlock()
	m.checkReferences = enabled
}

func (m *managerImpl) SetBundleRecorder(r BundleRecorder) {
	m.channelMu.Lock()
	defer m.channelMu.Unlock()
	m.bundleStats = r
}

func (m *managerImpl) bundleRecorder() BundleRecorder {
	m.channelMu.RLock()
	defer m.channelMu.RUnlock()
	return m.bundleStats
}

// Load resolves one node, consulting virtual providers first, then
// the cache, then the backing store.
func (m *managerImpl) Load(ctx context.Context, nodeID id.NodeID) (*NodeState, error) {
	m.providersMu.RLock()
	for _, p := range m.providers {
		if p.HasItemState(nodeID) {
			m.providersMu.RUnlock()
			return p.Load(nodeID)
		}
	}
	m.providersMu.RUnlock()

	release, err := m.lock.AcquireRead(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	m.mu.RLock()
	if ns, ok := m.cache[nodeID]; ok {
		m.mu.RUnlock()
		return ns, nil
	}
	m.mu.RUnlock()

	loadStart := time.Now()
	ns, err := m.store.Load(ctx, nodeID)
	if err != nil {
		return nil, repoerror.Wrap(repoerror.KindItemState, "load node", err)
	}
	if rec := m.bundleRecorder(); rec != nil {
		rec.RecordBundleRead(time.Since(loadStart))
	}
	m.mu.Lock()
	m.cache[nodeID] = ns
	m.mu.Unlock()
	return ns, nil
}

// Apply atomically installs a ChangeLog: a
// local commit, published onward on the cluster update channel if one
// is configured.
func (m *managerImpl) Apply(ctx context.Context, cl *ChangeLog) error {
	if err := m.applyLocked(ctx, cl); err != nil {
		return err
	}

	m.channelMu.RLock()
	ch := m.channel
	m.channelMu.RUnlock()
	if ch != nil {
		if err := ch.Publish(ctx, cl); err != nil {
			m.logger.Error("failed to publish change log to cluster", tag.Error(err))
		}
	}
	return nil
}

// ApplyExternal applies a cluster-originated ChangeLog under the same
// locking discipline as a local commit, without re-broadcasting.
func (m *managerImpl) ApplyExternal(ctx context.Context, cl *ChangeLog) error {
	for i := range cl.Events {
		cl.Events[i].External = true
	}
	return m.applyLocked(ctx, cl)
}

func (m *managerImpl) applyLocked(ctx context.Context, cl *ChangeLog) error {
	release, err := m.lock.AcquireWrite(ctx)
	if err != nil {
		return err
	}
	defer release()

	m.channelMu.RLock()
	checkReferences := m.checkReferences
	m.channelMu.RUnlock()
	if checkReferences {
		if err := m.checkLogReferences(ctx, cl); err != nil {
			return err
		}
	}

	storeStart := time.Now()
	if err := m.store.Store(ctx, cl); err != nil {
		return repoerror.Wrap(repoerror.KindItemState, "apply change log", err)
	}
	if rec := m.bundleRecorder(); rec != nil {
		rec.RecordBundleWrite(time.Since(storeStart))
	}

	m.mu.Lock()
	for _, n := range cl.AddedNodes {
		n.Status = StatusExisting
		m.cache[n.ID] = n
		m.children[n.ParentID] = append(m.children[n.ParentID], n.ID)
	}
	for _, n := range cl.ModifiedNodes {
		n.Status = StatusExisting
		m.cache[n.ID] = n
	}
	for _, n := range cl.DeletedNodes {
		delete(m.cache, n.ID)
		delete(m.children, n.ID)
	}
	m.mu.Unlock()

	if m.dispatcher != nil && len(cl.Events) > 0 {
		if err := m.dispatcher.Dispatch(ctx, cl.Events); err != nil {
			// Event delivery errors are logged and never propagate to
			// the committer.
			m.logger.Error("event dispatch failed", tag.Error(err))
		}
	}
	return nil
}

// checkLogReferences enforces referential integrity before the log is
// stored: every added or modified node must have a resolvable parent,
// and a deleted node must not leave orphaned children behind.
func (m *managerImpl) checkLogReferences(ctx context.Context, cl *ChangeLog) error {
	inLog := make(map[id.NodeID]struct{}, len(cl.AddedNodes)+len(cl.ModifiedNodes))
	for _, n := range cl.AddedNodes {
		inLog[n.ID] = struct{}{}
	}
	for _, n := range cl.ModifiedNodes {
		inLog[n.ID] = struct{}{}
	}
	deleted := make(map[id.NodeID]struct{}, len(cl.DeletedNodes))
	for _, n := range cl.DeletedNodes {
		deleted[n.ID] = struct{}{}
	}

	resolvable := func(nodeID id.NodeID) bool {
		if _, gone := deleted[nodeID]; gone {
			return false
		}
		if nodeID == id.RootNodeID {
			// The root is always present even before it has ever been
			// stored.
			return true
		}
		if _, ok := inLog[nodeID]; ok {
			return true
		}
		m.mu.RLock()
		_, cached := m.cache[nodeID]
		m.mu.RUnlock()
		if cached {
			return true
		}
		_, err := m.store.Load(ctx, nodeID)
		return err == nil
	}

	for _, n := range cl.AddedNodes {
		if n.ID != n.ParentID && !resolvable(n.ParentID) {
			return repoerror.New(repoerror.KindItemState, "parent of added node not found: "+n.ParentID.String())
		}
	}
	for _, n := range cl.ModifiedNodes {
		if n.ID != n.ParentID && !resolvable(n.ParentID) {
			return repoerror.New(repoerror.KindItemState, "parent of modified node not found: "+n.ParentID.String())
		}
	}
	for _, n := range cl.DeletedNodes {
		for _, child := range n.Children {
			if resolvable(child) {
				return repoerror.New(repoerror.KindItemState, "deleting node would orphan child: "+child.String())
			}
		}
	}
	return nil
}

func (m *managerImpl) Dispose() {
	m.mu.Lock()
	m.cache = nil
	m.children = nil
	m.mu.Unlock()
}
