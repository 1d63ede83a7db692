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

package search

import (
	"context"

	"github.com/olivere/elastic/v7"

	"github.com/jcrepo/kernel/id"
	"github.com/jcrepo/kernel/itemstate"
	"github.com/jcrepo/kernel/repoerror"
)

// ElasticHandler is an Elasticsearch-backed QueryHandler:
// one index per workspace, bulk-updated on
// every SearchManager batch.
type ElasticHandler struct {
	client *elastic.Client
	index  string
}

// NewElasticHandler dials the cluster at the given URL and binds to an
// index named after the workspace.
func NewElasticHandler(url, workspaceName string) (*ElasticHandler, error) {
	client, err := elastic.NewClient(elastic.SetURL(url), elastic.SetSniff(false))
	if err != nil {
		return nil, repoerror.Wrap(repoerror.KindStorage, "dial elasticsearch", err)
	}
	return &ElasticHandler{client: client, index: "jcrepo-" + workspaceName}, nil
}

type nodeDoc struct {
	ID        string   `json:"id"`
	ParentID  string   `json:"parentId"`
	Type      string   `json:"type"`
	Children  []string `json:"children,omitempty"`
	Shareable bool     `json:"shareable"`
}

func (h *ElasticHandler) Init(ctx context.Context) error {
	exists, err := h.client.IndexExists(h.index).Do(ctx)
	if err != nil {
		return repoerror.Wrap(repoerror.KindStorage, "check index", err)
	}
	if !exists {
		if _, err := h.client.CreateIndex(h.index).Do(ctx); err != nil {
			return repoerror.Wrap(repoerror.KindStorage, "create index", err)
		}
	}
	return nil
}

// UpdateNodes applies one batch as a bulk request: deletes first, then
// upserts, preserving remove-before-re-add ordering for
// moved/re-shared nodes.
func (h *ElasticHandler) UpdateNodes(ctx context.Context, removed []id.NodeID, added []*itemstate.NodeState) error {
	if len(removed) == 0 && len(added) == 0 {
		return nil
	}
	bulk := h.client.Bulk().Index(h.index)
	for _, nodeID := range removed {
		bulk = bulk.Add(elastic.NewBulkDeleteRequest().Id(nodeID.String()))
	}
	for _, ns := range added {
		children := make([]string, 0, len(ns.Children))
		for _, c := range ns.Children {
			children = append(children, c.String())
		}
		doc := nodeDoc{
			ID:        ns.ID.String(),
			ParentID:  ns.ParentID.String(),
			Type:      ns.Type.String(),
			Children:  children,
			Shareable: ns.Shareable,
		}
		bulk = bulk.Add(elastic.NewBulkIndexRequest().Id(ns.ID.String()).Doc(doc))
	}
	resp, err := bulk.Do(ctx)
	if err != nil {
		return repoerror.Wrap(repoerror.KindStorage, "bulk index update", err)
	}
	if resp.Errors {
		return repoerror.New(repoerror.KindStorage, "bulk index update reported per-item errors")
	}
	return nil
}

// GetWeaklyReferringNodes serves the weak-reference query used by
// reference integrity checks.
func (h *ElasticHandler) GetWeaklyReferringNodes(ctx context.Context, nodeID id.NodeID) ([]id.NodeID, error) {
	query := elastic.NewTermQuery("parentId", nodeID.String())
	res, err := h.client.Search(h.index).Query(query).Size(1000).Do(ctx)
	if err != nil {
		return nil, repoerror.Wrap(repoerror.KindStorage, "weak reference query", err)
	}
	out := make([]id.NodeID, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		parsed, err := id.ParseNodeID(hit.Id)
		if err != nil {
			continue
		}
		out = append(out, parsed)
	}
	return out, nil
}

func (h *ElasticHandler) Close() error { return nil }
