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

// Package filesystem defines the byte-addressable, hierarchical
// resource store the kernel builds every other persisted component on
// top of: a virtual root plus sub-roots for /meta,
// /namespaces, /nodetypes, and one per workspace.
package filesystem

import "context"

// FileSystem is the resource-store contract every persisted
// component is built on.
type FileSystem interface {
	Exists(ctx context.Context, path string) (bool, error)
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, prefix string) ([]string, error)
	MakeParentDirs(ctx context.Context, path string) error
	Close() error
}

// SubRoot returns a FileSystem rooted at prefix beneath parent; every
// path passed to the returned FileSystem is transparently namespaced
// under prefix. Used to derive /meta, /namespaces, /nodetypes, and
// per-workspace roots from a single backing store.
func SubRoot(parent FileSystem, prefix string) FileSystem {
	return &subRoot{parent: parent, prefix: normalizePrefix(prefix)}
}

type subRoot struct {
	parent FileSystem
	prefix string
}

func normalizePrefix(p string) string {
	if p == "" {
		return ""
	}
	if p[len(p)-1] != '/' {
		return p + "/"
	}
	return p
}

func (s *subRoot) join(path string) string {
	for len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	return s.prefix + path
}

func (s *subRoot) Exists(ctx context.Context, path string) (bool, error) {
	return s.parent.Exists(ctx, s.join(path))
}

func (s *subRoot) Read(ctx context.Context, path string) ([]byte, error) {
	return s.parent.Read(ctx, s.join(path))
}

func (s *subRoot) Write(ctx context.Context, path string, data []byte) error {
	return s.parent.Write(ctx, s.join(path), data)
}

func (s *subRoot) Delete(ctx context.Context, path string) error {
	return s.parent.Delete(ctx, s.join(path))
}

func (s *subRoot) List(ctx context.Context, prefix string) ([]string, error) {
	return s.parent.List(ctx, s.join(prefix))
}

func (s *subRoot) MakeParentDirs(ctx context.Context, path string) error {
	return s.parent.MakeParentDirs(ctx, s.join(path))
}

func (s *subRoot) Close() error { return nil }
