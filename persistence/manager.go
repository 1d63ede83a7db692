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

// Package persistence defines the PersistenceManager collaborator
// contract. The persistence-manager subsystem itself
// (bundle format, storage backend internals) is explicitly out of
// scope; the kernel only needs a contract to apply and load
// item state through, and a concrete binding to exercise it.
package persistence

import (
	"context"

	"github.com/jcrepo/kernel/id"
	"github.com/jcrepo/kernel/itemstate"
)

// Context is the init-time handle passed to PersistenceManager.Init.
type Context struct {
	WorkspaceName string
}

// PersistenceManager is the storage collaborator contract.
type PersistenceManager interface {
	Init(ctx context.Context, pctx Context) error
	Load(ctx context.Context, nodeID id.NodeID) (*itemstate.NodeState, error)
	Store(ctx context.Context, cl *itemstate.ChangeLog) error
	Close() error

	// CheckConsistency and Iterate are optional; a manager
	// that doesn't support them returns ErrUnsupported.
	CheckConsistency(ctx context.Context) error
	Iterate(ctx context.Context, fn func(*itemstate.NodeState) error) error
}

// ErrUnsupported is returned by the optional PersistenceManager
// methods when a concrete implementation doesn't provide them.
var ErrUnsupported = unsupportedErr{}

type unsupportedErr struct{}

func (unsupportedErr) Error() string { return "persistence: operation not supported" }
