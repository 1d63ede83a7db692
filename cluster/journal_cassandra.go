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

package cluster

import (
	"context"
	"encoding/json"

	"github.com/gocql/gocql"

	"github.com/jcrepo/kernel/repoerror"
)

// CassandraJournal is a Cassandra-backed Journal: one clustered table
// holds the append-only record log keyed by sequence number, and the
// next sequence number is the current tail plus one.
type CassandraJournal struct {
	session *gocql.Session
}

// All records share one partition so seq is a cluster-wide total
// order and Tail is a single clustered read. The hot-partition
// tradeoff is acceptable for a journal written once per commit.
const schemaCQL = `
CREATE TABLE IF NOT EXISTS jcrepo_journal (
	shard int,
	seq bigint,
	cluster_node_id text,
	payload blob,
	PRIMARY KEY (shard, seq)
);`

const journalShard = 0

// NewCassandraJournal dials the given contact points and keyspace.
func NewCassandraJournal(hosts []string, keyspace string) (*CassandraJournal, error) {
	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.Quorum
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, repoerror.Wrap(repoerror.KindCluster, "dial cassandra journal", err)
	}
	if err := session.Query(schemaCQL).Exec(); err != nil {
		session.Close()
		return nil, repoerror.Wrap(repoerror.KindCluster, "create journal schema", err)
	}
	return &CassandraJournal{session: session}, nil
}

type wireRecord struct {
	ClusterNodeID string            `json:"clusterNodeId"`
	Namespace     *NamespaceRemap   `json:"namespace,omitempty"`
	Update        *wireUpdate       `json:"update,omitempty"`
	Workspace     *WorkspaceCreated `json:"workspace,omitempty"`
}

type wireUpdate struct {
	WorkspaceName string          `json:"workspaceName"`
	ChangeLog     json.RawMessage `json:"changeLog"`
}

func (j *CassandraJournal) Append(ctx context.Context, rec Record) error {
	seq, err := j.nextSeq(ctx)
	if err != nil {
		return err
	}
	rec.Seq = seq

	var wire wireRecord
	wire.ClusterNodeID = rec.ClusterNodeID
	wire.Namespace = rec.Namespace
	wire.Workspace = rec.Workspace
	if rec.Update != nil {
		clJSON, err := json.Marshal(rec.Update.ChangeLog)
		if err != nil {
			return repoerror.Wrap(repoerror.KindCluster, "encode change log", err)
		}
		wire.Update = &wireUpdate{WorkspaceName: rec.Update.WorkspaceName, ChangeLog: clJSON}
	}
	payload, err := json.Marshal(wire)
	if err != nil {
		return repoerror.Wrap(repoerror.KindCluster, "encode journal record", err)
	}
	if err := j.session.Query(
		`INSERT INTO jcrepo_journal (shard, seq, cluster_node_id, payload) VALUES (?, ?, ?, ?)`,
		journalShard, seq, rec.ClusterNodeID, payload,
	).WithContext(ctx).Exec(); err != nil {
		return repoerror.Wrap(repoerror.KindCluster, "append journal record", err)
	}
	return nil
}

func (j *CassandraJournal) nextSeq(ctx context.Context) (int64, error) {
	tail, err := j.Tail(ctx)
	if err != nil {
		return 0, err
	}
	return tail + 1, nil
}

func (j *CassandraJournal) Since(ctx context.Context, seq int64) ([]Record, error) {
	iter := j.session.Query(
		`SELECT seq, cluster_node_id, payload FROM jcrepo_journal WHERE shard = ? AND seq > ?`,
		journalShard, seq,
	).WithContext(ctx).Iter()

	var out []Record
	var gotSeq int64
	var clusterNodeID string
	var payload []byte
	for iter.Scan(&gotSeq, &clusterNodeID, &payload) {
		var wire wireRecord
		if err := json.Unmarshal(payload, &wire); err != nil {
			continue
		}
		rec := Record{ClusterNodeID: wire.ClusterNodeID, Seq: gotSeq, Namespace: wire.Namespace, Workspace: wire.Workspace}
		if wire.Update != nil {
			var update WorkspaceUpdate
			update.WorkspaceName = wire.Update.WorkspaceName
			if err := json.Unmarshal(wire.Update.ChangeLog, &update.ChangeLog); err == nil {
				rec.Update = &update
			}
		}
		out = append(out, rec)
	}
	if err := iter.Close(); err != nil {
		return nil, repoerror.Wrap(repoerror.KindCluster, "read journal records", err)
	}
	return out, nil
}

func (j *CassandraJournal) Tail(ctx context.Context) (int64, error) {
	var max int64
	if err := j.session.Query(
		`SELECT seq FROM jcrepo_journal WHERE shard = ? ORDER BY seq DESC LIMIT 1`, journalShard,
	).WithContext(ctx).Scan(&max); err != nil {
		if err == gocql.ErrNotFound {
			return 0, nil
		}
		return 0, repoerror.Wrap(repoerror.KindCluster, "read journal tail", err)
	}
	return max, nil
}

func (j *CassandraJournal) Close() error {
	j.session.Close()
	return nil
}
