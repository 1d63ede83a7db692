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

package repository

import (
	"github.com/blang/semver/v4"
)

// Descriptors is the static repository descriptor table: product
// name, vendor and version, specification name and version, and the
// supported query languages. It holds no option descriptors.
type Descriptors struct {
	values map[string]string
}

const (
	DescriptorRepositoryName    = "jcr.repository.name"
	DescriptorRepositoryVendor  = "jcr.repository.vendor"
	DescriptorRepositoryVersion = "jcr.repository.version"
	DescriptorSpecName          = "jcr.specification.name"
	DescriptorSpecVersion       = "jcr.specification.version"
	DescriptorQueryLanguages    = "jcr.query.languages"
)

// NewDescriptors builds the static descriptor table for one release.
func NewDescriptors(name, vendor string, version semver.Version, queryLanguages []string) (*Descriptors, error) {
	d := &Descriptors{values: map[string]string{
		DescriptorRepositoryName:    name,
		DescriptorRepositoryVendor:  vendor,
		DescriptorRepositoryVersion: version.String(),
		DescriptorSpecName:          "Content Repository Kernel",
		DescriptorSpecVersion:       "2.0",
	}}
	for i, lang := range queryLanguages {
		if i == 0 {
			d.values[DescriptorQueryLanguages] = lang
			continue
		}
		d.values[DescriptorQueryLanguages] += "," + lang
	}
	return d, nil
}

func (d *Descriptors) Get(name string) (string, bool) {
	v, ok := d.values[name]
	return v, ok
}

// AsMap returns a copy of the descriptor table, for embedding in
// RepositoryContext.
func (d *Descriptors) AsMap() map[string]string {
	out := make(map[string]string, len(d.values))
	for k, v := range d.values {
		out[k] = v
	}
	return out
}

func (d *Descriptors) Keys() []string {
	out := make([]string, 0, len(d.values))
	for k := range d.values {
		out = append(out, k)
	}
	return out
}
