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

// Package repoerror defines the typed error kinds surfaced across the
// repository kernel. Every kind wraps an optional cause so the chain
// survives fmt.Errorf("%w") and errors.As/errors.Is.
package repoerror

import "fmt"

// Kind identifies one of the error categories the kernel can raise.
type Kind int

const (
	KindUnspecified Kind = iota
	KindRepositoryShuttingDown
	KindRepositoryClosed
	KindNoSuchWorkspace
	KindLogin
	KindAccessDenied
	KindNamespace
	KindItemState
	KindStorage
	KindFileSystem
	KindCluster
	KindTransaction
	KindConfig
	KindInterrupted
)

func (k Kind) String() string {
	switch k {
	case KindRepositoryShuttingDown:
		return "RepositoryShuttingDown"
	case KindRepositoryClosed:
		return "RepositoryClosed"
	case KindNoSuchWorkspace:
		return "NoSuchWorkspace"
	case KindLogin:
		return "Login"
	case KindAccessDenied:
		return "AccessDenied"
	case KindNamespace:
		return "Namespace"
	case KindItemState:
		return "ItemState"
	case KindStorage:
		return "Storage"
	case KindFileSystem:
		return "FileSystem"
	case KindCluster:
		return "Cluster"
	case KindTransaction:
		return "Transaction"
	case KindConfig:
		return "Config"
	case KindInterrupted:
		return "Interrupted"
	default:
		return "Unspecified"
	}
}

// Error is the concrete error type returned by kernel operations.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error of the given kind with no underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind around an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Kind == kind {
				return true
			}
			err = e.Cause
			continue
		}
		type unwrapper interface{ Unwrap() error }
		u, ok := err.(unwrapper)
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
