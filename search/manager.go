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

// Package search implements the per-workspace search manager: an
// observation listener that batches add/remove/property events into
// index updates.
package search

import (
	"context"
	"strings"
	"sync"

	"github.com/jcrepo/kernel/common/log"
	"github.com/jcrepo/kernel/common/log/tag"
	"github.com/jcrepo/kernel/id"
	"github.com/jcrepo/kernel/itemstate"
)

// Canonical namespace URIs the query layer relies on.
const (
	xsURI           = "http://www.w3.org/2001/XMLSchema"
	fnURI           = "http://www.w3.org/2005/xpath-functions"
	fnDeprecatedURI = "http://www.w3.org/2004/10/xpath-functions"
)

// NamespaceBinder is the narrow namespace.Registry surface SearchManager
// needs at construction.
type NamespaceBinder interface {
	GetPrefix(uri string) (string, error)
	SafeRegister(ctx context.Context, prefixHint, uri string) (string, error)
	Register(ctx context.Context, prefix, uri string) error
}

// StateResolver resolves a NodeID through the workspace's shared item
// state manager.
type StateResolver interface {
	Load(ctx context.Context, nodeID id.NodeID) (*itemstate.NodeState, error)
}

// ShareableResolver reports whether a shareable node still has
// remaining shares after a NODE_REMOVED event; the
// shareable-node subsystem itself belongs to the out-of-scope node
// type/version machinery, so this is injected narrowly.
type ShareableResolver interface {
	HasRemainingShares(nodeID id.NodeID) bool
}

type noShares struct{}

func (noShares) HasRemainingShares(id.NodeID) bool { return false }

// QueryHandler is the index backend SearchManager drives.
type QueryHandler interface {
	Init(ctx context.Context) error
	UpdateNodes(ctx context.Context, removed []id.NodeID, added []*itemstate.NodeState) error
	GetWeaklyReferringNodes(ctx context.Context, nodeID id.NodeID) ([]id.NodeID, error)
	Close() error
}

// Manager is the per-workspace search manager contract.
type Manager interface {
	HandleEvents(ctx context.Context, events itemstate.EventStateCollection)
	// SetShareableResolver overrides the default resolver, which
	// reports no remaining shares for any node.
	SetShareableResolver(r ShareableResolver)
	Close() error
}

type managerImpl struct {
	workspaceName string
	handler       QueryHandler
	resolver      StateResolver
	shares        ShareableResolver
	excludedPath  string
	logger        log.Logger

	mu sync.Mutex
}

// New constructs a SearchManager: it registers the query namespaces
// and initialises handler.
func New(
	ctx context.Context,
	workspaceName string,
	namespaces NamespaceBinder,
	resolver StateResolver,
	handler QueryHandler,
	excludedPath string,
	logger log.Logger,
) (Manager, error) {
	if err := registerQueryNamespaces(ctx, namespaces); err != nil {
		return nil, err
	}
	if err := handler.Init(ctx); err != nil {
		return nil, err
	}
	return &managerImpl{
		workspaceName: workspaceName,
		handler:       handler,
		resolver:      resolver,
		shares:        noShares{},
		excludedPath:  excludedPath,
		logger:        logger,
	}, nil
}

func registerQueryNamespaces(ctx context.Context, namespaces NamespaceBinder) error {
	if _, err := namespaces.SafeRegister(ctx, "xs", xsURI); err != nil {
		return err
	}

	// If "fn" is already bound to the deprecated URI, remap it to a
	// fresh prefix before registering the canonical one.
	if prefix, err := namespaces.GetPrefix(fnDeprecatedURI); err == nil && prefix == "fn" {
		if _, err := namespaces.SafeRegister(ctx, "fn_old", fnDeprecatedURI); err != nil {
			return err
		}
	}
	if err := namespaces.Register(ctx, "fn", fnURI); err != nil {
		// Tolerate an identical mapping already present.
		if !strings.Contains(err.Error(), "already mapped to a different uri") {
			return err
		}
	}
	return nil
}

func (m *managerImpl) SetShareableResolver(r ShareableResolver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shares = r
}

// HandleEvents partitions one commit's events into index removals
// and (re-)additions and delivers them as a single batch.
func (m *managerImpl) HandleEvents(ctx context.Context, events itemstate.EventStateCollection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removedNodes := make(map[id.NodeID]struct{})
	addedNodes := make(map[id.NodeID]itemstate.EventState)

	for _, evt := range events {
		if m.isExcluded(evt.Path) {
			continue
		}
		switch evt.Type {
		case itemstate.NodeAdded:
			addedNodes[evt.NodeID] = evt
			if evt.Shareable {
				// Adding a share to an existing shared set forces a full
				// re-index of the node.
				removedNodes[evt.NodeID] = struct{}{}
			}
		case itemstate.NodeRemoved:
			removedNodes[evt.NodeID] = struct{}{}
			if evt.Shareable && m.shares.HasRemainingShares(evt.NodeID) {
				// A shareable node with remaining shares is re-indexed,
				// not dropped.
				addedNodes[evt.NodeID] = evt
			}
		case itemstate.PropertyAdded:
			if _, already := addedNodes[evt.ParentID]; !already {
				addedNodes[evt.ParentID] = evt
			}
		case itemstate.PropertyChanged, itemstate.PropertyRemoved:
			addedNodes[evt.ParentID] = evt
			removedNodes[evt.ParentID] = struct{}{}
		}
	}

	removedIDs := make([]id.NodeID, 0, len(removedNodes))
	for nodeID := range removedNodes {
		removedIDs = append(removedIDs, nodeID)
	}

	addedStates := make([]*itemstate.NodeState, 0, len(addedNodes))
	for nodeID, evt := range addedNodes {
		ns, err := m.resolver.Load(ctx, nodeID)
		if err != nil {
			if evt.External {
				m.logger.Info("skipping external node not yet resolvable", tag.NodeID(nodeID.String()))
			} else {
				m.logger.Error("failed to resolve node for indexing", tag.NodeID(nodeID.String()), tag.Error(err))
			}
			continue
		}
		addedStates = append(addedStates, ns)
	}

	if len(removedIDs) == 0 && len(addedStates) == 0 {
		return
	}
	if err := m.handler.UpdateNodes(ctx, removedIDs, addedStates); err != nil {
		// A failed index update logs and continues; the index can be
		// rebuilt.
		m.logger.Error("index update failed", tag.Error(err))
	}
}

func (m *managerImpl) isExcluded(path string) bool {
	if m.excludedPath == "" {
		return false
	}
	return path == m.excludedPath || strings.HasPrefix(path, m.excludedPath+"/")
}

func (m *managerImpl) Close() error { return m.handler.Close() }
