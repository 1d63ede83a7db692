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

package repository

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/jcrepo/kernel/repoerror"
)

// Lock is the repository-lock collaborator interface:
// `init(home)`, `acquire`, `release` — a single-instance guard over
// the repository home directory.
type Lock interface {
	Init(home string) error
	Acquire() error
	Release() error
}

// FileLock is the default Lock: an exclusively-created lock file under
// the repository home, released by removing it.
type FileLock struct {
	mu   sync.Mutex
	path string
	file *os.File
}

func NewFileLock() *FileLock { return &FileLock{} }

func (l *FileLock) Init(home string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(home, 0o755); err != nil {
		return repoerror.Wrap(repoerror.KindConfig, "create repository home", err)
	}
	l.path = filepath.Join(home, ".lock")
	return nil
}

func (l *FileLock) Acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return repoerror.New(repoerror.KindConfig, "repository already locked: "+l.path)
		}
		return repoerror.Wrap(repoerror.KindConfig, "acquire repository lock", err)
	}
	l.file = f
	return nil
}

func (l *FileLock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	l.file.Close()
	err := os.Remove(l.path)
	l.file = nil
	if err != nil && !os.IsNotExist(err) {
		return repoerror.Wrap(repoerror.KindConfig, "release repository lock", err)
	}
	return nil
}
