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

package session

import (
	"context"

	"github.com/jcrepo/kernel/id"
	"github.com/jcrepo/kernel/itemstate"
	"github.com/jcrepo/kernel/repoerror"
)

// Operation is a first-class SessionOperation: Save,
// Refresh, Move, Remove, Logout.
type Operation interface {
	Name() string
	Perform(ctx context.Context, sessCtx *Context) error
}

// SaveOperation delegates the session's transient states to the
// item-state manager, producing and applying one ChangeLog.
type SaveOperation struct{}

func (SaveOperation) Name() string { return "save" }

func (SaveOperation) Perform(ctx context.Context, sessCtx *Context) error {
	cl := sessCtx.Transient()
	if cl.IsEmpty() {
		return nil
	}
	if err := sessCtx.ItemStates.Apply(ctx, cl); err != nil {
		return err
	}
	sessCtx.ReplaceTransient(itemstate.NewChangeLog())
	return nil
}

// RefreshOperation implements refresh(keepChanges): sync
// with the cluster first unless disableClusterSyncOnRefresh is set,
// then discard transient state unless KeepChanges is true.
type RefreshOperation struct {
	KeepChanges bool
}

func (RefreshOperation) Name() string { return "refresh" }

func (r RefreshOperation) Perform(ctx context.Context, sessCtx *Context) error {
	if sessCtx.Cluster != nil {
		disabled, _ := sessCtx.Attribute("disableClusterSyncOnRefresh")
		if disabled != true {
			if err := sessCtx.Cluster.Sync(ctx); err != nil {
				return repoerror.Wrap(repoerror.KindCluster, "refresh: cluster sync", err)
			}
		}
	}
	if !r.KeepChanges {
		sessCtx.ReplaceTransient(itemstate.NewChangeLog())
	}
	return nil
}

// RemoveOperation stages a node deletion in the session's transient
// change set.
type RemoveOperation struct {
	NodeID id.NodeID
}

func (RemoveOperation) Name() string { return "remove" }

func (r RemoveOperation) Perform(ctx context.Context, sessCtx *Context) error {
	ns, err := sessCtx.ItemStates.Load(ctx, r.NodeID)
	if err != nil {
		return repoerror.Wrap(repoerror.KindItemState, "remove: load node", err)
	}
	sessCtx.Transient().DeleteNode(ns)
	return nil
}

// MoveOperation implements the ChangeLog mechanics of a move:
// re-parenting a node under a new parent, validated
// against the ancestor and shareable-node rules. Full path parsing
// and same-name-sibling naming live in the out-of-scope Node API; this
// operates on resolved node identities.
type MoveOperation struct {
	SourceID    id.NodeID
	DestParentID id.NodeID
}

func (MoveOperation) Name() string { return "move" }

func (m MoveOperation) Perform(ctx context.Context, sessCtx *Context) error {
	source, err := sessCtx.ItemStates.Load(ctx, m.SourceID)
	if err != nil {
		return repoerror.Wrap(repoerror.KindItemState, "move: load source", err)
	}
	if source.Shareable {
		return repoerror.New(repoerror.KindItemState, "move: cannot move a shareable node")
	}
	destParent, err := sessCtx.ItemStates.Load(ctx, m.DestParentID)
	if err != nil {
		return repoerror.Wrap(repoerror.KindItemState, "move: load destination parent", err)
	}

	if source.ParentID == m.DestParentID {
		// Same parent: the rename itself (the child's local name) is
		// resolved by the out-of-scope Node API; the kernel has nothing
		// further to stage.
		return nil
	}

	descendant, err := m.isDescendant(ctx, sessCtx, m.DestParentID, m.SourceID)
	if err != nil {
		return err
	}
	if descendant {
		return repoerror.New(repoerror.KindItemState, "move: destination is a descendant of source")
	}
	for _, child := range destParent.Children {
		if child == source.ID {
			return repoerror.New(repoerror.KindItemState, "move: same-name-sibling collision at destination")
		}
	}

	sourceParent, err := sessCtx.ItemStates.Load(ctx, source.ParentID)
	if err != nil {
		return repoerror.Wrap(repoerror.KindItemState, "move: load source parent", err)
	}

	updatedSourceParent := *sourceParent
	updatedSourceParent.Children = removeChild(sourceParent.Children, source.ID)
	updatedDestParent := *destParent
	updatedDestParent.Children = append(append([]id.NodeID(nil), destParent.Children...), source.ID)
	moved := *source
	moved.ParentID = m.DestParentID

	cl := sessCtx.Transient()
	cl.ModifyNode(&updatedSourceParent)
	cl.ModifyNode(&updatedDestParent)
	cl.ModifyNode(&moved)
	return nil
}

// isDescendant reports whether candidate is an ancestor-or-self of
// start by walking start's parent chain up to the root.
func (m MoveOperation) isDescendant(ctx context.Context, sessCtx *Context, start, candidate id.NodeID) (bool, error) {
	current := start
	for {
		if current == candidate {
			return true, nil
		}
		if current == id.RootNodeID {
			return false, nil
		}
		ns, err := sessCtx.ItemStates.Load(ctx, current)
		if err != nil {
			return false, repoerror.Wrap(repoerror.KindItemState, "move: walk ancestor chain", err)
		}
		if ns.ParentID == current {
			return false, nil
		}
		current = ns.ParentID
	}
}

// removeChild copies rather than filtering in place: the source slice
// belongs to a cached state that must stay untouched until the change
// set commits.
func removeChild(children []id.NodeID, target id.NodeID) []id.NodeID {
	out := make([]id.NodeID, 0, len(children))
	for _, c := range children {
		if c != target {
			out = append(out, c)
		}
	}
	return out
}

// LogoutOperation performs an orderly session logout through the
// owning SessionState.
type LogoutOperation struct {
	State *State
}

func (LogoutOperation) Name() string { return "logout" }

func (l LogoutOperation) Perform(ctx context.Context, sessCtx *Context) error {
	l.State.Logout(ctx, sessCtx)
	return nil
}
