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

package config

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type configSuite struct {
	suite.Suite
}

func (s *configSuite) TestBuildMapsWorkspaceConfig() {
	cfg := Config{
		Home:                 "/tmp/jcrepo",
		DefaultWorkspaceName: "default",
		Workspaces: []WorkspaceConfig{
			{
				Name:          "default",
				Home:          "/tmp/jcrepo/default",
				SearchEnabled: true,
				Persistence:   SQLPersistenceConfig{Driver: "sqlite", DataSourceName: "file::memory:"},
			},
		},
		RepositoryName:    "jcrepo",
		RepositoryVendor:  "jcrepo project",
		RepositoryVersion: "1.0.0",
	}

	built := cfg.Build()

	s.Equal("default", built.DefaultWorkspaceName)
	s.Require().Len(built.Workspaces, 1)
	s.Equal("default", built.Workspaces[0].Name)
	s.True(built.Workspaces[0].SearchEnabled)
	s.Nil(built.Cluster)
	s.NotNil(built.Workspaces[0].NewFileSystem)
	s.NotNil(built.Workspaces[0].NewPersistenceManager)
}

func (s *configSuite) TestClusterConfigPropagates() {
	cfg := Config{Cluster: &ClusterConfig{NodeID: "node-1"}}
	built := cfg.Build()
	s.Require().NotNil(built.Cluster)
	s.Equal("node-1", built.Cluster.ID)
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(configSuite))
}
