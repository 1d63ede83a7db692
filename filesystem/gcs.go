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

package filesystem

import (
	"context"
	"errors"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// gcsFS is an alternate FileSystem backed by a Google Cloud Storage
// bucket.
type gcsFS struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
}

// NewGCSFileSystem builds a FileSystem over the given bucket using
// application-default credentials.
func NewGCSFileSystem(ctx context.Context, bucket, prefix string) (FileSystem, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &gcsFS{
		client: client,
		bucket: client.Bucket(bucket),
		prefix: strings.TrimSuffix(prefix, "/"),
	}, nil
}

func (f *gcsFS) key(path string) string {
	if f.prefix == "" {
		return path
	}
	return f.prefix + "/" + strings.TrimPrefix(path, "/")
}

func (f *gcsFS) Exists(ctx context.Context, path string) (bool, error) {
	_, err := f.bucket.Object(f.key(path)).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (f *gcsFS) Read(ctx context.Context, path string) ([]byte, error) {
	r, err := f.bucket.Object(f.key(path)).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (f *gcsFS) Write(ctx context.Context, path string, data []byte) error {
	w := f.bucket.Object(f.key(path)).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (f *gcsFS) Delete(ctx context.Context, path string) error {
	return f.bucket.Object(f.key(path)).Delete(ctx)
}

func (f *gcsFS) List(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	it := f.bucket.Objects(ctx, &storage.Query{Prefix: f.key(prefix)})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, strings.TrimPrefix(attrs.Name, f.prefix+"/"))
	}
	return out, nil
}

func (f *gcsFS) MakeParentDirs(_ context.Context, _ string) error { return nil }

func (f *gcsFS) Close() error { return f.client.Close() }
