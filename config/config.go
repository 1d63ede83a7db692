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

// Package config holds the plain, serialisable configuration structs
// the kernel consumes. Parsing them from a file is the host's
// concern; Build translates the declarative shape here into the
// factory-bound repository.Config the kernel actually runs against.
package config

import (
	"context"
	"time"

	"github.com/jcrepo/kernel/cluster"
	"github.com/jcrepo/kernel/filesystem"
	"github.com/jcrepo/kernel/persistence"
	"github.com/jcrepo/kernel/persistence/sql"
	"github.com/jcrepo/kernel/repository"
	"github.com/jcrepo/kernel/workspace"
)

// FileSystemKind selects one of the concrete FileSystem backends wired
// into this kernel.
type FileSystemKind string

const (
	FileSystemBolt FileSystemKind = "bolt"
	FileSystemGCS  FileSystemKind = "gcs"
	FileSystemS3   FileSystemKind = "s3"
)

// FileSystemConfig is the declarative shape of one file-system backend.
type FileSystemConfig struct {
	Kind   FileSystemKind
	Path   string // bolt: file path
	Bucket string // gcs/s3: bucket name
	Prefix string // gcs/s3: key prefix
}

func (c FileSystemConfig) build(ctx context.Context) (filesystem.FileSystem, error) {
	switch c.Kind {
	case FileSystemGCS:
		return filesystem.NewGCSFileSystem(ctx, c.Bucket, c.Prefix)
	case FileSystemS3:
		return filesystem.NewS3FileSystem(c.Bucket, c.Prefix)
	default:
		return filesystem.NewBoltFileSystem(c.Path)
	}
}

// SQLPersistenceConfig is the declarative shape of one workspace's
// persistence manager.
type SQLPersistenceConfig struct {
	Driver         string // e.g. "mysql", "postgres", "sqlite"
	DataSourceName string
}

// WorkspaceConfig is the declarative shape of one configured
// workspace; build translates it into a workspace.Config bound to
// concrete factories.
type WorkspaceConfig struct {
	Name          string
	Home          string
	ExcludedPath  string
	FileSystem    FileSystemConfig
	Persistence   SQLPersistenceConfig
	SearchEnabled bool
	Clustered     bool
}

func (w WorkspaceConfig) build() workspace.Config {
	fsCfg := w.FileSystem
	persCfg := w.Persistence
	return workspace.Config{
		Name:         w.Name,
		Home:         w.Home,
		ExcludedPath: w.ExcludedPath,
		NewFileSystem: func(home string) (filesystem.FileSystem, error) {
			if fsCfg.Kind == "" && fsCfg.Path == "" {
				fsCfg.Path = home + "/workspace.bolt"
			}
			return fsCfg.build(context.Background())
		},
		NewPersistenceManager: func(persistence.Context) (persistence.PersistenceManager, error) {
			return sql.New(persCfg.Driver, persCfg.DataSourceName)
		},
		SearchEnabled: w.SearchEnabled,
		Clustered:     w.Clustered,
	}
}

// ClusterConfig is the declarative cluster configuration; a non-nil
// Cluster field on Config enables clustering.
type ClusterConfig struct {
	NodeID  string
	Journal cluster.Journal
}

// Config is the plain configuration the kernel consumes.
type Config struct {
	Home                 string
	DefaultWorkspaceName string
	Workspaces           []WorkspaceConfig

	Cluster *ClusterConfig

	SecurityManager repository.SecurityManager
	NewNodeTypes    func() (repository.NodeTypeRegistry, error)
	NewPrivileges   func() (repository.PrivilegeRegistry, error)

	WorkspaceMaxIdleTime time.Duration
	ExecutorWorkers      int

	RepositoryName    string
	RepositoryVendor  string
	RepositoryVersion string
	QueryLanguages    []string
}

// Build translates the declarative Config into the factory-bound
// repository.Config the kernel runs against.
func (c Config) Build() repository.Config {
	workspaces := make([]workspace.Config, 0, len(c.Workspaces))
	for _, w := range c.Workspaces {
		workspaces = append(workspaces, w.build())
	}

	var clusterCfg *repository.ClusterConfig
	if c.Cluster != nil {
		clusterCfg = &repository.ClusterConfig{ID: c.Cluster.NodeID, Journal: c.Cluster.Journal}
	}

	return repository.Config{
		Home:                 c.Home,
		DefaultWorkspaceName: c.DefaultWorkspaceName,
		Workspaces:           workspaces,
		Cluster:              clusterCfg,
		SecurityManager:      c.SecurityManager,
		NewNodeTypes:         c.NewNodeTypes,
		NewPrivileges:        c.NewPrivileges,
		WorkspaceMaxIdleTime: c.WorkspaceMaxIdleTime,
		ExecutorWorkers:      c.ExecutorWorkers,
		RepositoryName:       c.RepositoryName,
		RepositoryVendor:     c.RepositoryVendor,
		RepositoryVersion:    c.RepositoryVersion,
		QueryLanguages:       c.QueryLanguages,
	}
}
