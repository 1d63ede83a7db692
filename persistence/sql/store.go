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

// Package sql provides a relational PersistenceManager, standing in
// for the out-of-scope persistence-manager subsystem
// with a concrete binding selectable across MySQL, PostgreSQL, and
// SQLite behind one store interface.
package sql

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/jcrepo/kernel/id"
	"github.com/jcrepo/kernel/itemstate"
	"github.com/jcrepo/kernel/persistence"
	"github.com/jcrepo/kernel/repoerror"
)

// Driver names accepted by New.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS node_state (
	workspace TEXT NOT NULL,
	node_id   TEXT NOT NULL,
	parent_id TEXT NOT NULL,
	payload   BLOB NOT NULL,
	PRIMARY KEY (workspace, node_id)
);`

type store struct {
	db            *sqlx.DB
	workspaceName string
}

// New opens a relational PersistenceManager using driverName ("mysql",
// "postgres", or "sqlite") against dataSourceName.
func New(driverName, dataSourceName string) (persistence.PersistenceManager, error) {
	db, err := sqlx.Connect(driverName, dataSourceName)
	if err != nil {
		return nil, repoerror.Wrap(repoerror.KindStorage, "open persistence store", err)
	}
	if driverName == DriverSQLite {
		if _, err := db.Exec(schemaSQLite); err != nil {
			db.Close()
			return nil, repoerror.Wrap(repoerror.KindStorage, "create schema", err)
		}
	}
	return &store{db: db}, nil
}

func (s *store) Init(_ context.Context, pctx persistence.Context) error {
	s.workspaceName = pctx.WorkspaceName
	return nil
}

type row struct {
	NodeID   string `db:"node_id"`
	ParentID string `db:"parent_id"`
	Payload  []byte `db:"payload"`
}

func (s *store) Load(ctx context.Context, nodeID id.NodeID) (*itemstate.NodeState, error) {
	var r row
	err := s.db.GetContext(ctx, &r,
		`SELECT node_id, parent_id, payload FROM node_state WHERE workspace=? AND node_id=?`,
		s.workspaceName, nodeID.String())
	if err == sql.ErrNoRows {
		return nil, repoerror.New(repoerror.KindItemState, "node not found: "+nodeID.String())
	}
	if err != nil {
		return nil, repoerror.Wrap(repoerror.KindStorage, "load node state", err)
	}
	var ns itemstate.NodeState
	if err := json.Unmarshal(r.Payload, &ns); err != nil {
		return nil, repoerror.Wrap(repoerror.KindStorage, "decode node state", err)
	}
	return &ns, nil
}

func (s *store) Store(ctx context.Context, cl *itemstate.ChangeLog) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return repoerror.Wrap(repoerror.KindStorage, "begin tx", err)
	}
	defer tx.Rollback()

	for _, n := range append(append([]*itemstate.NodeState{}, cl.AddedNodes...), cl.ModifiedNodes...) {
		payload, err := json.Marshal(n)
		if err != nil {
			return repoerror.Wrap(repoerror.KindStorage, "encode node state", err)
		}
		_, err = tx.ExecContext(ctx,
			`REPLACE INTO node_state (workspace, node_id, parent_id, payload) VALUES (?, ?, ?, ?)`,
			s.workspaceName, n.ID.String(), n.ParentID.String(), payload)
		if err != nil {
			return repoerror.Wrap(repoerror.KindStorage, "store node state", err)
		}
	}
	for _, n := range cl.DeletedNodes {
		_, err := tx.ExecContext(ctx, `DELETE FROM node_state WHERE workspace=? AND node_id=?`,
			s.workspaceName, n.ID.String())
		if err != nil {
			return repoerror.Wrap(repoerror.KindStorage, "delete node state", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return repoerror.Wrap(repoerror.KindStorage, "commit tx", err)
	}
	return nil
}

func (s *store) Close() error { return s.db.Close() }

func (s *store) CheckConsistency(context.Context) error { return persistence.ErrUnsupported }

func (s *store) Iterate(ctx context.Context, fn func(*itemstate.NodeState) error) error {
	rows, err := s.db.QueryxContext(ctx, `SELECT node_id, parent_id, payload FROM node_state WHERE workspace=?`, s.workspaceName)
	if err != nil {
		return repoerror.Wrap(repoerror.KindStorage, "iterate node state", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r row
		if err := rows.StructScan(&r); err != nil {
			return repoerror.Wrap(repoerror.KindStorage, "scan node state", err)
		}
		var ns itemstate.NodeState
		if err := json.Unmarshal(r.Payload, &ns); err != nil {
			return repoerror.Wrap(repoerror.KindStorage, "decode node state", err)
		}
		if err := fn(&ns); err != nil {
			return err
		}
	}
	return rows.Err()
}
