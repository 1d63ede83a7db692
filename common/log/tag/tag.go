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

// Package tag provides typed constructors for structured logging
// fields, so call sites never hand-format log messages.
package tag

import (
	"time"

	"go.uber.org/zap"
)

type tagImpl struct {
	field zap.Field
}

func (t tagImpl) Field() zap.Field { return t.field }

func build(f zap.Field) tagImpl { return tagImpl{field: f} }

// Error wraps an error as a log field.
func Error(err error) tagImpl { return build(zap.Error(err)) }

// WorkspaceName identifies the workspace a log line pertains to.
func WorkspaceName(name string) tagImpl { return build(zap.String("workspace-name", name)) }

// SessionID identifies a session.
func SessionID(id string) tagImpl { return build(zap.String("session-id", id)) }

// NodeID identifies a node.
func NodeID(id string) tagImpl { return build(zap.String("node-id", id)) }

// Namespace logs a resolved namespace URI.
func Namespace(uri string) tagImpl { return build(zap.String("namespace-uri", uri)) }

// Prefix logs a namespace prefix.
func Prefix(prefix string) tagImpl { return build(zap.String("namespace-prefix", prefix)) }

// Duration logs an elapsed duration.
func Duration(d time.Duration) tagImpl { return build(zap.Duration("duration", d)) }

// Value logs an arbitrary named value, for the rare call site that
// doesn't warrant its own typed constructor.
func Value(name string, v interface{}) tagImpl { return build(zap.Any(name, v)) }

// Operation names the SessionOperation or kernel operation in flight.
func Operation(name string) tagImpl { return build(zap.String("operation", name)) }

// Path logs an item path.
func Path(p string) tagImpl { return build(zap.String("path", p)) }

// Counter logs an integer counter value.
func Counter(name string, v int64) tagImpl { return build(zap.Int64(name, v)) }

// ClusterNodeID identifies the originating cluster node of an event.
func ClusterNodeID(id string) tagImpl { return build(zap.String("cluster-node-id", id)) }
