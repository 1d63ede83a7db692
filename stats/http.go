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

package stats

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jcrepo/kernel/common/log"
	"github.com/jcrepo/kernel/common/log/tag"
)

// HTTPServer exposes /metrics (Prometheus exposition) and /healthz (a
// JSON status with the session and login counts of the latest
// RepositoryStatistics sample), the small admin surface
// carried regardless of the CLI-surface non-goal.
type HTTPServer struct {
	server *http.Server
	logger log.Logger
}

// NewHTTPServer builds an HTTPServer bound to addr, rooted at registry
// for /metrics and stats for /healthz.
func NewHTTPServer(addr string, registry *prometheus.Registry, stats *RepositoryStatistics, logger log.Logger) *HTTPServer {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/healthz", healthzHandler(stats)).Methods(http.MethodGet)

	return &HTTPServer{
		server: &http.Server{Addr: addr, Handler: router},
		logger: logger,
	}
}

func healthzHandler(stats *RepositoryStatistics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		latest := stats.Latest()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Status       string `json:"status"`
			SessionCount int64  `json:"sessionCount"`
			LoginCount   int64  `json:"loginCount"`
		}{
			Status:       "ok",
			SessionCount: latest.SessionCount,
			LoginCount:   latest.LoginCount,
		})
	}
}

// Start listens in the background; errors other than a clean shutdown
// are logged.
func (s *HTTPServer) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("stats http server stopped unexpectedly", tag.Error(err))
		}
	}()
	return nil
}

// Stop shuts the server down, waiting at most five seconds or until
// ctx is done, whichever comes first.
func (s *HTTPServer) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
