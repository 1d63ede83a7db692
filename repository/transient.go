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
	"context"
	"sync"

	"github.com/blang/semver/v4"

	"github.com/jcrepo/kernel/common/log"
	"github.com/jcrepo/kernel/repoerror"
)

// TransientRepository is a façade: it starts the
// underlying Repository on first login and stops it once the last
// session logs out, so a process that never logs in never pays
// repository startup cost.
type TransientRepository struct {
	cfg    Config
	logger log.Logger
	static *Descriptors

	mu       sync.Mutex
	repo     *Repository
	sessions map[string]*Session
}

// NewTransientRepository builds a TransientRepository over cfg without
// starting anything.
func NewTransientRepository(cfg Config, logger log.Logger) *TransientRepository {
	versionText := cfg.RepositoryVersion
	if versionText == "" {
		versionText = "0.0.0"
	}
	version, err := semver.Parse(versionText)
	if err != nil {
		version = semver.Version{}
	}
	static, _ := NewDescriptors(cfg.RepositoryName, cfg.RepositoryVendor, version, cfg.QueryLanguages)

	return &TransientRepository{
		cfg:      cfg,
		logger:   logger,
		static:   static,
		sessions: make(map[string]*Session),
	}
}

// Login starts the underlying repository on the first active session
// and rolls the startup back if authentication fails while no other
// session holds it open.
func (t *TransientRepository) Login(ctx context.Context, workspaceName string, credentials interface{}) (*Session, error) {
	t.mu.Lock()
	if t.repo == nil {
		repo := New(t.cfg, t.logger)
		if err := repo.Start(ctx); err != nil {
			t.mu.Unlock()
			return nil, repoerror.Wrap(repoerror.KindConfig, "start repository", err)
		}
		t.repo = repo
	}
	repo := t.repo
	t.mu.Unlock()

	sess, err := repo.Login(ctx, workspaceName, credentials)
	if err != nil {
		t.mu.Lock()
		if len(t.sessions) == 0 && t.repo != nil {
			_ = t.repo.Shutdown(ctx)
			t.repo = nil
		}
		t.mu.Unlock()
		return nil, err
	}

	sess.State.AddLifecycleListener(transientListener{t: t, sessionID: sess.ID})

	t.mu.Lock()
	t.sessions[sess.ID] = sess
	t.mu.Unlock()
	return sess, nil
}

// transientListener tears the repository down once the session it
// rides with is the last one to log out.
type transientListener struct {
	t         *TransientRepository
	sessionID string
}

func (l transientListener) LoggingOut(ctx context.Context) {}

func (l transientListener) LoggedOut(ctx context.Context) {
	l.t.mu.Lock()
	delete(l.t.sessions, l.sessionID)
	empty := len(l.t.sessions) == 0
	repo := l.t.repo
	if empty {
		l.t.repo = nil
	}
	l.t.mu.Unlock()

	if empty && repo != nil {
		_ = repo.Shutdown(context.Background())
	}
}

// Descriptor delegates to the live repository's descriptor table if
// one is running, else to the statically loaded table.
func (t *TransientRepository) Descriptor(name string) (string, bool) {
	t.mu.Lock()
	repo := t.repo
	t.mu.Unlock()
	if repo != nil {
		return repo.descriptors.Get(name)
	}
	return t.static.Get(name)
}
