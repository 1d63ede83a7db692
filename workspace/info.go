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

// Package workspace implements WorkspaceInfo: the lazy,
// per-workspace container that bootstraps and tears down every
// workspace-scoped component, and coordinates idle disposal.
package workspace

import (
	"context"
	"sync"
	"time"

	"github.com/jcrepo/kernel/common/clock"
	"github.com/jcrepo/kernel/common/log"
	"github.com/jcrepo/kernel/common/log/tag"
	"github.com/jcrepo/kernel/filesystem"
	"github.com/jcrepo/kernel/itemstate"
	"github.com/jcrepo/kernel/observation"
	"github.com/jcrepo/kernel/persistence"
	"github.com/jcrepo/kernel/repocontext"
	"github.com/jcrepo/kernel/repoerror"
	"github.com/jcrepo/kernel/search"
)

// Info bundles every workspace-scoped component and its lifecycle.
type Info struct {
	cfg     Config
	repoCtx *repocontext.Context
	logger  log.Logger

	virtualProviders VirtualProviderFactory
	clusterFactory   ClusterFactory

	// initLock guards the initialized/active/idleTimestamp state
	// machine. A standard sync.RWMutex already favors a blocked writer
	// over newly arriving readers on this runtime, approximating the
	// writer-preference lock the lifecycle needs.
	initLock      sync.RWMutex
	initialized   bool
	active        bool
	idleTimestamp time.Time
	clock         clock.TimeSource

	// xaLock serialises XA commits on this workspace.
	xaLock sync.Mutex

	fs          filesystem.FileSystem
	persistence persistence.PersistenceManager
	itemStates  itemstate.SharedItemStateManager
	dispatcher  observation.Dispatcher

	lazyMu      sync.Mutex
	searchMgr   search.Manager
	lockMgr     LockManager
	retention   RetentionRegistry
	systemSess  SystemSession
}

// New constructs an uninitialised WorkspaceInfo.
func New(cfg Config, repoCtx *repocontext.Context, vp VirtualProviderFactory, cf ClusterFactory) *Info {
	return &Info{
		cfg:              cfg,
		repoCtx:          repoCtx,
		logger:           repoCtx.Logger.With(tag.WorkspaceName(cfg.Name)),
		virtualProviders: vp,
		clusterFactory:   cf,
		clock:            clock.NewRealTimeSource(),
	}
}

// SetTimeSource overrides the idle-tracking clock, for tests that
// exercise DisposeIfIdle without sleeping.
func (i *Info) SetTimeSource(ts clock.TimeSource) { i.clock = ts }

func (i *Info) Name() string { return i.cfg.Name }

// Initialize is idempotent: under read lock, check
// initialized; under write lock, re-check and run doInitialize, then
// doPostInitialize. Returns true exactly once per cycle.
func (i *Info) Initialize(ctx context.Context) (bool, error) {
	i.initLock.RLock()
	already := i.initialized
	i.initLock.RUnlock()
	if already {
		return false, nil
	}

	i.initLock.Lock()
	defer i.initLock.Unlock()
	if i.initialized {
		return false, nil
	}

	if err := i.doInitialize(ctx); err != nil {
		return false, err
	}
	i.doPostInitialize(ctx)

	i.initialized = true
	i.active = true
	i.idleTimestamp = time.Time{}
	return true, nil
}

func (i *Info) doInitialize(ctx context.Context) error {
	fs, err := i.cfg.NewFileSystem(i.cfg.Home)
	if err != nil {
		return repoerror.Wrap(repoerror.KindFileSystem, "open workspace file system", err)
	}
	i.fs = fs

	pm, err := i.cfg.NewPersistenceManager(persistence.Context{WorkspaceName: i.cfg.Name})
	if err != nil {
		i.fs.Close()
		return repoerror.Wrap(repoerror.KindStorage, "build persistence manager", err)
	}
	if err := pm.Init(ctx, persistence.Context{WorkspaceName: i.cfg.Name}); err != nil {
		i.fs.Close()
		return repoerror.Wrap(repoerror.KindStorage, "init persistence manager", err)
	}
	i.persistence = pm

	i.dispatcher = observation.NewDispatcher()
	i.itemStates = itemstate.NewSharedItemStateManager(i.cfg.Name, pm, i.dispatcher, i.logger)
	if i.repoCtx.Stats != nil {
		i.itemStates.SetBundleRecorder(i.repoCtx.Stats)
	}

	if i.virtualProviders != nil {
		for _, p := range i.virtualProviders(i) {
			i.itemStates.AddVirtualItemStateProvider(p)
		}
	}

	if i.cfg.Clustered && i.clusterFactory != nil {
		ch := i.clusterFactory(i.cfg.Name, externalUpdateSink{i.itemStates})
		i.itemStates.SetEventChannel(ch)
	}

	return nil
}

type externalUpdateSink struct {
	manager itemstate.SharedItemStateManager
}

func (s externalUpdateSink) ApplyExternal(ctx context.Context, cl *itemstate.ChangeLog) error {
	return s.manager.ApplyExternal(ctx, cl)
}

// doPostInitialize wires the search-manager event subscription. The
// listener is attached at once; the search manager itself is
// constructed lazily by the listener on the first event batch.
func (i *Info) doPostInitialize(ctx context.Context) {
	if !i.cfg.SearchEnabled {
		return
	}
	i.dispatcher.AddListener(observation.ListenerFunc(func(ctx context.Context, events itemstate.EventStateCollection) {
		mgr, err := i.getOrCreateSearchManager(ctx)
		if err != nil {
			i.logger.Error("search manager unavailable for event batch", tag.Error(err))
			return
		}
		mgr.HandleEvents(ctx, events)
	}))
}

// Dispose runs the reverse of initialize: detach cluster channels,
// deregister the dispatcher, close search/lock/retention/system
// session, dispose the item-state manager, close the persistence
// manager, close the file system.
func (i *Info) Dispose() {
	i.initLock.Lock()
	defer i.initLock.Unlock()
	if !i.initialized {
		return
	}

	i.itemStates.SetEventChannel(nil)
	i.dispatcher.Dispose()

	i.lazyMu.Lock()
	if i.searchMgr != nil {
		if err := i.searchMgr.Close(); err != nil {
			i.logger.Error("search manager close failed", tag.Error(err))
		}
		i.searchMgr = nil
	}
	if i.lockMgr != nil {
		i.lockMgr.Close()
		i.lockMgr = nil
	}
	if i.retention != nil {
		i.retention.Close()
		i.retention = nil
	}
	if i.systemSess != nil {
		i.systemSess.Logout()
		i.systemSess = nil
	}
	i.lazyMu.Unlock()

	i.itemStates.Dispose()
	if err := i.persistence.Close(); err != nil {
		i.logger.Error("persistence manager close failed", tag.Error(err))
	}
	if err := i.fs.Close(); err != nil {
		i.logger.Error("workspace file system close failed", tag.Error(err))
	}

	i.initialized = false
	i.idleTimestamp = time.Time{}
	i.active = false
}

// DisposeIfIdle applies the two-phase idle-disposal policy: the
// first call past the activity window stamps the idle time, a later
// call past maxIdle disposes.
func (i *Info) DisposeIfIdle(maxIdle time.Duration) {
	i.initLock.RLock()
	if !i.initialized || i.active {
		i.initLock.RUnlock()
		return
	}
	idleSince := i.idleTimestamp
	i.initLock.RUnlock()

	if idleSince.IsZero() {
		i.initLock.Lock()
		if i.initialized && !i.active && i.idleTimestamp.IsZero() {
			i.idleTimestamp = i.clock.Now()
		}
		i.initLock.Unlock()
		return
	}
	if i.clock.Now().Sub(idleSince) > maxIdle {
		i.Dispose()
	}
}

// SetActive(true) is called on every successful session bind to keep
// the workspace live: it clears the idle timestamp and sets the active
// flag so DisposeIfIdle's first branch exits immediately while a
// session holds the workspace open. SetActive(false) only clears the
// flag.
func (i *Info) SetActive(active bool) {
	i.initLock.Lock()
	defer i.initLock.Unlock()
	i.active = active
	if active {
		i.idleTimestamp = time.Time{}
	}
}

func (i *Info) ItemStateManager() itemstate.SharedItemStateManager { return i.itemStates }
func (i *Info) FileSystem() filesystem.FileSystem                 { return i.fs }
func (i *Info) PersistenceManager() persistence.PersistenceManager { return i.persistence }
func (i *Info) Dispatcher() observation.Dispatcher                 { return i.dispatcher }

// XALock returns the mutex a transactional session holds around
// commits to prevent interleaved XA commits on this workspace.
func (i *Info) XALock() *sync.Mutex { return &i.xaLock }

// GetSearchManager lazily instantiates the search manager on first
// call, under the workspace monitor, resolving the chicken-and-egg
// bootstrap where the search manager may need a system session which
// needs the workspace already initialized.
func (i *Info) GetSearchManager(ctx context.Context) (search.Manager, error) {
	return i.getOrCreateSearchManager(ctx)
}

func (i *Info) getOrCreateSearchManager(ctx context.Context) (search.Manager, error) {
	i.lazyMu.Lock()
	defer i.lazyMu.Unlock()
	if i.searchMgr != nil {
		return i.searchMgr, nil
	}
	if i.cfg.NewQueryHandler == nil {
		return nil, repoerror.New(repoerror.KindConfig, "workspace has no query handler factory configured")
	}
	handler, err := i.cfg.NewQueryHandler(i.cfg.Name)
	if err != nil {
		return nil, repoerror.Wrap(repoerror.KindConfig, "build query handler", err)
	}
	mgr, err := search.New(ctx, i.cfg.Name, i.repoCtx.Namespaces, i.itemStates, handler, i.cfg.ExcludedPath, i.logger)
	if err != nil {
		return nil, err
	}
	i.searchMgr = mgr
	return mgr, nil
}

// GetLockManager lazily instantiates the lock manager.
func (i *Info) GetLockManager() (LockManager, error) {
	i.lazyMu.Lock()
	defer i.lazyMu.Unlock()
	if i.lockMgr != nil {
		return i.lockMgr, nil
	}
	if i.cfg.NewLockManager == nil {
		return nil, repoerror.New(repoerror.KindConfig, "workspace has no lock manager factory configured")
	}
	lm, err := i.cfg.NewLockManager(i)
	if err != nil {
		return nil, err
	}
	i.lockMgr = lm
	return lm, nil
}

// GetRetentionRegistry lazily instantiates the retention registry.
func (i *Info) GetRetentionRegistry() (RetentionRegistry, error) {
	i.lazyMu.Lock()
	defer i.lazyMu.Unlock()
	if i.retention != nil {
		return i.retention, nil
	}
	if i.cfg.NewRetentionRegistry == nil {
		return nil, repoerror.New(repoerror.KindConfig, "workspace has no retention registry factory configured")
	}
	rr, err := i.cfg.NewRetentionRegistry(i)
	if err != nil {
		return nil, err
	}
	i.retention = rr
	return rr, nil
}

// GetSystemSession lazily instantiates the workspace's system session.
func (i *Info) GetSystemSession() (SystemSession, error) {
	i.lazyMu.Lock()
	defer i.lazyMu.Unlock()
	if i.systemSess != nil {
		return i.systemSess, nil
	}
	if i.cfg.NewSystemSession == nil {
		return nil, repoerror.New(repoerror.KindConfig, "workspace has no system session factory configured")
	}
	sess, err := i.cfg.NewSystemSession(i)
	if err != nil {
		return nil, err
	}
	i.systemSess = sess
	return sess, nil
}
