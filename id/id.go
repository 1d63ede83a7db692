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

// Package id defines the value types that identify items in the
// repository: NodeID (a stable 128-bit UUID), Name (a namespace-
// qualified name) and PropertyID (a NodeID plus a Name).
package id

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// RootNodeID is the fixed identity of the repository root node,
// persisted under meta/rootUUID on first boot.
var RootNodeID = NodeID{uuid: uuid.MustParse("cafebabe-cafe-babe-cafe-babecafebabe")}

// NodeID is the stable identity of a node: a 128-bit UUID minted by
// the repository's node-id factory.
type NodeID struct {
	uuid uuid.UUID
}

// NewNodeID mints a fresh random NodeID.
func NewNodeID() NodeID {
	return NodeID{uuid: uuid.New()}
}

// ParseNodeID parses the canonical 36-character UUID text form.
func ParseNodeID(s string) (NodeID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return NodeID{}, fmt.Errorf("parse node id %q: %w", s, err)
	}
	return NodeID{uuid: u}, nil
}

func (n NodeID) String() string { return n.uuid.String() }

// IsZero reports whether n is the unset NodeID value.
func (n NodeID) IsZero() bool { return n.uuid == uuid.Nil }

// MarshalJSON encodes a NodeID as its canonical UUID text form.
func (n NodeID) MarshalJSON() ([]byte, error) { return n.uuid.MarshalText() }

// UnmarshalJSON decodes a NodeID from its canonical UUID text form.
func (n *NodeID) UnmarshalJSON(b []byte) error {
	var text string
	if err := json.Unmarshal(b, &text); err != nil {
		return err
	}
	if text == "" {
		n.uuid = uuid.Nil
		return nil
	}
	u, err := uuid.Parse(text)
	if err != nil {
		return err
	}
	n.uuid = u
	return nil
}

// Name is a namespace-qualified name: a namespace URI plus a local
// part, interned per namespace.
type Name struct {
	URI   string
	Local string
}

// NewName builds a Name over the given namespace URI and local part.
func NewName(uri, local string) Name { return Name{URI: uri, Local: local} }

func (n Name) String() string {
	if n.URI == "" {
		return n.Local
	}
	return fmt.Sprintf("{%s}%s", n.URI, n.Local)
}

// PropertyID is the identity of a named property of a node: the
// owning node's id plus the property's Name.
type PropertyID struct {
	Parent NodeID
	Name   Name
}

func (p PropertyID) String() string {
	return fmt.Sprintf("%s/%s", p.Parent, p.Name)
}
