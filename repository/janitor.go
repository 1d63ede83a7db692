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
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jcrepo/kernel/common/log/tag"
	"github.com/jcrepo/kernel/workspace"
)

// startJanitor runs the idle-workspace reaper: a
// loop with period equal to 10% of WorkspaceMaxIdleTime, disposing any
// non-default workspace that has sat idle past the grace period.
func (r *Repository) startJanitor() {
	period := r.cfg.WorkspaceMaxIdleTime / 10
	if period <= 0 {
		period = time.Second
	}
	c := cron.New()
	_, err := c.AddFunc(fmt.Sprintf("@every %s", period), r.sweepIdleWorkspaces)
	if err != nil {
		r.logger.Error("failed to schedule workspace janitor", tag.Error(err))
		return
	}
	c.Start()
	r.janitor = c
}

func (r *Repository) sweepIdleWorkspaces() {
	r.workspacesMu.RLock()
	candidates := make([]*workspace.Info, 0, len(r.workspaces))
	for name, info := range r.workspaces {
		if name == r.cfg.DefaultWorkspaceName {
			continue
		}
		candidates = append(candidates, info)
	}
	r.workspacesMu.RUnlock()

	for _, info := range candidates {
		info.DisposeIfIdle(r.cfg.WorkspaceMaxIdleTime)
	}
}
