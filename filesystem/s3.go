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
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// s3FS is an alternate FileSystem backed by an S3 bucket, for
// deployments that want the repository home off local disk.
type s3FS struct {
	client *s3.S3
	bucket string
	prefix string
}

// NewS3FileSystem builds a FileSystem over the given bucket using a
// default AWS session, picking up credentials and region from the
// environment.
func NewS3FileSystem(bucket, prefix string) (FileSystem, error) {
	sess, err := session.NewSession()
	if err != nil {
		return nil, err
	}
	return &s3FS{client: s3.New(sess), bucket: bucket, prefix: strings.TrimSuffix(prefix, "/")}, nil
}

func (f *s3FS) key(path string) string {
	if f.prefix == "" {
		return path
	}
	return f.prefix + "/" + strings.TrimPrefix(path, "/")
}

func (f *s3FS) Exists(ctx context.Context, path string) (bool, error) {
	_, err := f.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.key(path)),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (f *s3FS) Read(ctx context.Context, path string) ([]byte, error) {
	out, err := f.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.key(path)),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (f *s3FS) Write(ctx context.Context, path string, data []byte) error {
	_, err := f.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.key(path)),
		Body:   bytes.NewReader(data),
	})
	return err
}

func (f *s3FS) Delete(ctx context.Context, path string) error {
	_, err := f.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.key(path)),
	})
	return err
}

func (f *s3FS) List(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	err := f.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(f.bucket),
		Prefix: aws.String(f.key(prefix)),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, o := range page.Contents {
			out = append(out, strings.TrimPrefix(aws.StringValue(o.Key), f.prefix+"/"))
		}
		return true
	})
	return out, err
}

func (f *s3FS) MakeParentDirs(_ context.Context, _ string) error { return nil }

func (f *s3FS) Close() error { return nil }

func isNotFound(err error) bool {
	return strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "404")
}
