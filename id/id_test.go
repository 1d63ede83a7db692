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

package id

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootNodeIDIsFixed(t *testing.T) {
	require.Equal(t, "cafebabe-cafe-babe-cafe-babecafebabe", RootNodeID.String())
}

func TestParseNodeIDRoundTrip(t *testing.T) {
	minted := NewNodeID()
	parsed, err := ParseNodeID(minted.String())
	require.NoError(t, err)
	require.Equal(t, minted, parsed)
}

func TestParseNodeIDRejectsGarbage(t *testing.T) {
	_, err := ParseNodeID("not-a-uuid")
	require.Error(t, err)
}

func TestIsZero(t *testing.T) {
	var zero NodeID
	require.True(t, zero.IsZero())
	require.False(t, NewNodeID().IsZero())
	require.False(t, RootNodeID.IsZero())
}

func TestNameString(t *testing.T) {
	require.Equal(t, "{http://www.jcp.org/jcr/1.0}primaryType",
		NewName("http://www.jcp.org/jcr/1.0", "primaryType").String())
	require.Equal(t, "plain", NewName("", "plain").String())
}
