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

// Package log provides the structured logger used throughout the
// repository kernel. Call sites pass typed Tag values (see the tag
// subpackage) instead of formatting strings by hand.
package log

import (
	"go.uber.org/zap"
)

type (
	// Tag is a single structured logging field.
	Tag interface {
		Field() zap.Field
	}

	// Logger is the logging surface every subsystem depends on.
	Logger interface {
		Debug(msg string, tags ...Tag)
		Info(msg string, tags ...Tag)
		Warn(msg string, tags ...Tag)
		Error(msg string, tags ...Tag)
		Fatal(msg string, tags ...Tag)
		With(tags ...Tag) Logger
	}

	zapLogger struct {
		zap *zap.Logger
	}
)

// NewZapLogger wraps a configured *zap.Logger as a Logger.
func NewZapLogger(zl *zap.Logger) Logger {
	return &zapLogger{zap: zl.WithOptions(zap.AddCallerSkip(1))}
}

// NewDevelopment returns a Logger suitable for tests and local runs.
func NewDevelopment() Logger {
	zl, err := zap.NewDevelopment()
	if err != nil {
		zl = zap.NewNop()
	}
	return NewZapLogger(zl)
}

// NewNoop returns a Logger that discards everything, for tests that
// don't care about log output.
func NewNoop() Logger {
	return NewZapLogger(zap.NewNop())
}

func fields(tags []Tag) []zap.Field {
	fs := make([]zap.Field, 0, len(tags))
	for _, t := range tags {
		fs = append(fs, t.Field())
	}
	return fs
}

func (l *zapLogger) Debug(msg string, tags ...Tag) { l.zap.Debug(msg, fields(tags)...) }
func (l *zapLogger) Info(msg string, tags ...Tag)  { l.zap.Info(msg, fields(tags)...) }
func (l *zapLogger) Warn(msg string, tags ...Tag)  { l.zap.Warn(msg, fields(tags)...) }
func (l *zapLogger) Error(msg string, tags ...Tag) { l.zap.Error(msg, fields(tags)...) }
func (l *zapLogger) Fatal(msg string, tags ...Tag) { l.zap.Fatal(msg, fields(tags)...) }

func (l *zapLogger) With(tags ...Tag) Logger {
	return &zapLogger{zap: l.zap.With(fields(tags)...)}
}
