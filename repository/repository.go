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

// Package repository implements the repository kernel:
// single-instance lifecycle, registries, session factory, idle
// janitor. It owns every workspace, the repository lock, the cluster
// node, the node-id factory, descriptors, and the active session set.
package repository

import (
	"context"
	"sync"

	"github.com/blang/semver/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"go.uber.org/atomic"

	"github.com/jcrepo/kernel/cluster"
	"github.com/jcrepo/kernel/common/log"
	"github.com/jcrepo/kernel/common/log/tag"
	"github.com/jcrepo/kernel/common/metrics"
	"github.com/jcrepo/kernel/filesystem"
	"github.com/jcrepo/kernel/id"
	"github.com/jcrepo/kernel/itemstate"
	"github.com/jcrepo/kernel/namespace"
	"github.com/jcrepo/kernel/repocontext"
	"github.com/jcrepo/kernel/repoerror"
	"github.com/jcrepo/kernel/session"
	"github.com/jcrepo/kernel/stats"
	"github.com/jcrepo/kernel/workspace"
)

// Repository owns every workspace and the process-wide registries,
// and is the login entry point.
type Repository struct {
	cfg    Config
	logger log.Logger

	lock     Lock
	rootFS   filesystem.FileSystem
	repoCtx  *repocontext.Context
	executor *Executor

	namespaces  namespace.Registry
	nodeTypes   NodeTypeRegistry
	privileges  PrivilegeRegistry
	descriptors *Descriptors
	cluster     cluster.Node
	metrics     metrics.Handler
	stats       *stats.RepositoryStatistics

	workspacesMu sync.RWMutex
	workspaces   map[string]*workspace.Info

	// shutdownLock is a writer-preference read/write lock: logins
	// take the read side, shutdown the write side.
	shutdownLock sync.RWMutex
	disposed     atomic.Bool

	sessionsMu sync.Mutex
	sessions   map[string]*Session

	janitor *cron.Cron
}

// Session bundles the session kernel pieces handed back from Login.
type Session struct {
	ID        string
	Workspace string
	State     *session.State
	Context   *session.Context
}

// Perform dispatches op through the session's close-once state guard.
func (s *Session) Perform(ctx context.Context, op session.Operation) error {
	return s.State.Perform(ctx, s.Context, op)
}

// New constructs an unstarted Repository.
func New(cfg Config, logger log.Logger) *Repository {
	return &Repository{
		cfg:        cfg,
		logger:     logger,
		lock:       NewFileLock(),
		workspaces: make(map[string]*workspace.Info),
		sessions:   make(map[string]*Session),
	}
}

// Start runs the startup sequence in a fixed order. If any step
// fails, it calls Shutdown and propagates the error; the repository
// lock is released on shutdown even on partial startup.
func (r *Repository) Start(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			_ = r.Shutdown(context.Background())
		}
	}()

	// 1. Acquire a repository lock on the home directory.
	if err = r.lock.Init(r.cfg.Home); err != nil {
		return err
	}
	if err = r.lock.Acquire(); err != nil {
		return err
	}

	// 2. Open the root file system; ensure /meta/rootUUID exists.
	rootFS, ferr := filesystem.NewBoltFileSystem(r.cfg.Home + "/repository.bolt")
	if ferr != nil {
		return repoerror.Wrap(repoerror.KindFileSystem, "open root file system", ferr)
	}
	r.rootFS = rootFS
	if err = r.ensureRootUUID(ctx); err != nil {
		return err
	}

	// 3. Build repository descriptors.
	versionText := r.cfg.RepositoryVersion
	if versionText == "" {
		versionText = "0.0.0"
	}
	version, verErr := semver.Parse(versionText)
	if verErr != nil {
		return repoerror.Wrap(repoerror.KindConfig, "parse repository version", verErr)
	}
	r.descriptors, err = NewDescriptors(r.cfg.RepositoryName, r.cfg.RepositoryVendor, version, r.cfg.QueryLanguages)
	if err != nil {
		return err
	}

	// 4. Construct NamespaceRegistry, NodeTypeRegistry, PrivilegeRegistry.
	nsFS := filesystem.SubRoot(r.rootFS, "namespaces")
	r.namespaces, err = namespace.NewRegistry(ctx, nsFS, r.logger)
	if err != nil {
		return repoerror.Wrap(repoerror.KindNamespace, "construct namespace registry", err)
	}
	if r.cfg.NewNodeTypes != nil {
		if r.nodeTypes, err = r.cfg.NewNodeTypes(); err != nil {
			return repoerror.Wrap(repoerror.KindConfig, "construct node type registry", err)
		}
	}
	if r.cfg.NewPrivileges != nil {
		if r.privileges, err = r.cfg.NewPrivileges(); err != nil {
			return repoerror.Wrap(repoerror.KindConfig, "construct privilege registry", err)
		}
	}

	// 5. Item-state cache factory and node-id factory. The item-state
	// cache is folded into each WorkspaceInfo's shared item-state
	// manager; only the node-id factory is process-wide.
	nodeIDs := repocontext.NewNodeIDFactory()

	executorWorkers := r.cfg.ExecutorWorkers
	if executorWorkers < 1 {
		executorWorkers = 4
	}
	r.executor = NewExecutor(executorWorkers)

	r.metrics = r.cfg.Metrics
	if r.metrics == nil {
		r.metrics = metrics.NewPrometheusHandler(prometheus.NewRegistry())
	}
	r.stats = stats.New(r.metrics, r.logger)
	r.stats.Start()

	r.repoCtx = &repocontext.Context{
		RootNodeID:  id.RootNodeID,
		Namespaces:  r.namespaces,
		RootFS:      r.rootFS,
		NodeIDs:     nodeIDs,
		Executor:    r.executor,
		Logger:      r.logger,
		Metrics:     r.metrics,
		Stats:       r.stats,
		Descriptors: r.descriptors.AsMap(),
	}

	// 6. Construct WorkspaceManager and create each configured
	// WorkspaceInfo (uninitialised).
	r.buildWorkspaces()

	// 7. If cluster is configured, construct ClusterNode and wire its
	// event channels into the registries, but do not start it yet.
	if r.cfg.Cluster != nil {
		r.cluster = cluster.New(r.cfg.Cluster.ID, r.cfg.Cluster.Journal, r.logger)
		r.cluster.SetNamespaceSink(r.namespaces)
		r.namespaces.SetEventChannel(r.cluster.NamespaceChannel())
		r.cluster.SetWorkspaceCreatedSink(r)
		r.repoCtx.SetClusterNodeID(r.cfg.Cluster.ID)
	}

	// 8-9. The internal version manager and virtual node-type manager
	// are out-of-scope collaborators; nothing to construct here.

	// 10. Initialise startup workspaces (default, plus the security
	// workspace if configured and absent — security workspace scoping
	// belongs to the out-of-scope security manager).
	defaultWS, ok := r.workspace(r.cfg.DefaultWorkspaceName)
	if !ok {
		return repoerror.New(repoerror.KindConfig, "default workspace not configured: "+r.cfg.DefaultWorkspaceName)
	}
	if _, err = defaultWS.Initialize(ctx); err != nil {
		return repoerror.Wrap(repoerror.KindConfig, "initialize default workspace", err)
	}

	// 11. Lazily create the system search manager over the default
	// workspace.
	if _, serr := defaultWS.GetSearchManager(ctx); serr != nil {
		r.logger.Warn("system search manager unavailable", tag.Error(serr))
	}

	// 12. Initialise the security manager.
	if r.cfg.SecurityManager != nil {
		if err = r.cfg.SecurityManager.Init(ctx, r.cfg.DefaultWorkspaceName); err != nil {
			return repoerror.Wrap(repoerror.KindLogin, "initialize security manager", err)
		}
	}

	// 13. Start the cluster node, now safe.
	if r.cluster != nil {
		if err = r.cluster.Start(ctx); err != nil {
			return repoerror.Wrap(repoerror.KindCluster, "start cluster node", err)
		}
	}

	// 14. If workspaceMaxIdleTime > 0, start the workspace janitor.
	if r.cfg.WorkspaceMaxIdleTime > 0 {
		r.startJanitor()
	}

	return nil
}

func (r *Repository) ensureRootUUID(ctx context.Context) error {
	metaFS := filesystem.SubRoot(r.rootFS, "meta")
	exists, err := metaFS.Exists(ctx, "rootUUID")
	if err != nil {
		return repoerror.Wrap(repoerror.KindFileSystem, "check rootUUID", err)
	}
	if exists {
		return nil
	}
	if err := metaFS.MakeParentDirs(ctx, "rootUUID"); err != nil {
		return repoerror.Wrap(repoerror.KindFileSystem, "make meta dir", err)
	}
	return metaFS.Write(ctx, "rootUUID", []byte(id.RootNodeID.String()))
}

func (r *Repository) buildWorkspaces() {
	r.workspacesMu.Lock()
	defer r.workspacesMu.Unlock()
	cf := r.clusterFactory()
	for _, cfg := range r.cfg.Workspaces {
		r.workspaces[cfg.Name] = workspace.New(cfg, r.repoCtx, nil, cf)
	}
}

// clusterFactory binds every workspace to the repository's single
// ClusterNode. The closure reads r.cluster lazily
// at call time, since workspaces are built (step 6) before the
// cluster node exists (step 7); only the default workspace is
// initialised eagerly (step 10), by which point the cluster is wired.
func (r *Repository) clusterFactory() workspace.ClusterFactory {
	return func(workspaceName string, sink cluster.WorkspaceUpdateSink) itemstate.UpdateChannel {
		if r.cluster == nil {
			return nil
		}
		return r.cluster.WorkspaceChannel(workspaceName, sink)
	}
}

// Statistics exposes the repository's counter set.
func (r *Repository) Statistics() *stats.RepositoryStatistics { return r.stats }

func (r *Repository) workspace(name string) (*workspace.Info, bool) {
	r.workspacesMu.RLock()
	defer r.workspacesMu.RUnlock()
	info, ok := r.workspaces[name]
	return info, ok
}

// OnWorkspaceCreated implements cluster.WorkspaceCreatedSink: a peer
// announced a workspace this instance does not yet know about. The
// kernel only logs it; dynamically provisioning a WorkspaceInfo from a
// remote announcement is out of scope.
func (r *Repository) OnWorkspaceCreated(ctx context.Context, workspaceName string) {
	if _, ok := r.workspace(workspaceName); !ok {
		r.logger.Info("peer announced unknown workspace", tag.WorkspaceName(workspaceName))
	}
}
