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

// Package namespace implements the prefix<->URI bimap with stable
// integer indices the compact on-disk name format relies on.
package namespace

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/jcrepo/kernel/common/log"
	"github.com/jcrepo/kernel/common/log/tag"
	"github.com/jcrepo/kernel/filesystem"
	"github.com/jcrepo/kernel/repoerror"
)

const (
	regFileName = "ns_reg"
	idxFileName = "ns_idx"

	regTmpFileName = "ns_reg.tmp"
	idxTmpFileName = "ns_idx.tmp"
)

// Default reserved bindings seeded on first boot.
var defaultBindings = map[string]string{
	"":      "",
	"rep":   "internal",
	"jcr":   "http://www.jcp.org/jcr/1.0",
	"nt":    "http://www.jcp.org/jcr/nt/1.0",
	"mix":   "http://www.jcp.org/jcr/mix/1.0",
	"sv":    "http://www.jcp.org/jcr/sv/1.0",
	"xml":   "http://www.w3.org/XML/1998/namespace",
	"xmlns": "http://www.w3.org/2000/xmlns/",
}

// reservedPrefixes can never be registered or unregistered.
var reservedPrefixes = map[string]struct{}{
	"":      {},
	"xml":   {},
	"xmlns": {},
	"rep":   {},
	"jcr":   {},
	"nt":    {},
	"mix":   {},
	"sv":    {},
}

var reservedURIs = func() map[string]struct{} {
	m := make(map[string]struct{}, len(defaultBindings))
	for _, u := range defaultBindings {
		m[u] = struct{}{}
	}
	return m
}()

var ncNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.\-]*$`)

// isValidNCName reports whether s is a syntactically valid XML NCName.
// The root prefix "" is a special case handled by callers, not here.
func isValidNCName(s string) bool {
	return s != "" && ncNamePattern.MatchString(s)
}

func isReservedPrefixGuard(prefix string) bool {
	if _, ok := reservedPrefixes[prefix]; ok {
		return true
	}
	return len(prefix) >= 3 && strings.EqualFold(prefix[:3], "xml")
}

// EventChannel is the outbound cluster sink a Registry publishes to
// when clustering is configured.
type EventChannel interface {
	Remapped(oldPrefix, newPrefix, uri string) error
}

// Listener receives local notification of namespace mutations,
// whether originated locally or applied via ExternalRemap.
type Listener interface {
	NamespaceAdded(prefix, uri string)
	NamespaceRemapped(oldPrefix, newPrefix, uri string)
}

// Registry is the namespace registry contract.
type Registry interface {
	Register(ctx context.Context, prefix, uri string) error
	Unregister(ctx context.Context, prefix string) error
	SafeRegister(ctx context.Context, prefixHint, uri string) (string, error)
	UniquePrefix(hint string) string

	GetURI(prefix string) (string, error)
	GetPrefix(uri string) (string, error)
	GetURIByIndex(index int) (string, error)
	GetIndexByURI(uri string) (int, error)

	SetEventChannel(ch EventChannel)
	AddListener(l Listener)

	// ExternalRemap applies a cluster-originated remap without
	// re-broadcasting it.
	ExternalRemap(ctx context.Context, oldPrefix, newPrefix, uri string) error
}

type persistedReg map[string]string // prefix -> uri
type persistedIdx map[string]int    // uri -> index

type registry struct {
	mu sync.RWMutex

	prefixToURI map[string]string
	uriToPrefix map[string]string
	uriToIndex  map[string]int
	nextIndex   int

	fs      filesystem.FileSystem
	logger  log.Logger
	channel EventChannel

	listenerMu sync.RWMutex
	listeners  []Listener
}

// NewRegistry loads (or seeds, on first boot) the namespace registry
// from fs, which must already be rooted at the repository's
// /namespaces sub-root.
func NewRegistry(ctx context.Context, fs filesystem.FileSystem, logger log.Logger) (Registry, error) {
	r := &registry{
		prefixToURI: make(map[string]string),
		uriToPrefix: make(map[string]string),
		uriToIndex:  make(map[string]int),
		fs:          fs,
		logger:      logger,
	}
	if err := r.load(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *registry) load(ctx context.Context) error {
	regExists, err := r.fs.Exists(ctx, regFileName)
	if err != nil {
		return repoerror.Wrap(repoerror.KindFileSystem, "check ns_reg", err)
	}
	if !regExists {
		for prefix, uri := range defaultBindings {
			r.prefixToURI[prefix] = uri
			r.uriToPrefix[uri] = prefix
		}
	} else {
		raw, err := r.fs.Read(ctx, regFileName)
		if err != nil {
			return repoerror.Wrap(repoerror.KindFileSystem, "read ns_reg", err)
		}
		var reg persistedReg
		if err := json.Unmarshal(raw, &reg); err != nil {
			return repoerror.Wrap(repoerror.KindStorage, "decode ns_reg", err)
		}
		for prefix, uri := range reg {
			r.prefixToURI[prefix] = uri
			r.uriToPrefix[uri] = prefix
		}
	}

	idxExists, err := r.fs.Exists(ctx, idxFileName)
	if err != nil {
		return repoerror.Wrap(repoerror.KindFileSystem, "check ns_idx", err)
	}
	if idxExists {
		raw, err := r.fs.Read(ctx, idxFileName)
		if err != nil {
			return repoerror.Wrap(repoerror.KindFileSystem, "read ns_idx", err)
		}
		var idx persistedIdx
		if err := json.Unmarshal(raw, &idx); err != nil {
			return repoerror.Wrap(repoerror.KindStorage, "decode ns_idx", err)
		}
		for uri, i := range idx {
			r.uriToIndex[uri] = i
			if i > r.nextIndex {
				r.nextIndex = i
			}
		}
	} else {
		// Rebuild indices from registrations, in sorted URI order.
		uris := make([]string, 0, len(r.prefixToURI))
		for _, u := range r.prefixToURI {
			uris = append(uris, u)
		}
		sort.Strings(uris)
		for _, u := range uris {
			r.nextIndex++
			r.uriToIndex[u] = r.nextIndex
		}
	}

	if !regExists || !idxExists {
		return r.persist(ctx)
	}
	return nil
}

// persist writes both ns_reg and ns_idx fully: temp copies first, then
// both files are overwritten in place and the temp copies deleted.
// There is no atomic swap, so a failure between the two final writes
// can leave ns_reg updated and ns_idx not; callers roll back the
// in-memory maps on any error.
func (r *registry) persist(ctx context.Context) error {
	regBytes, err := json.Marshal(persistedReg(r.prefixToURI))
	if err != nil {
		return repoerror.Wrap(repoerror.KindStorage, "encode ns_reg", err)
	}
	idxBytes, err := json.Marshal(persistedIdx(r.uriToIndex))
	if err != nil {
		return repoerror.Wrap(repoerror.KindStorage, "encode ns_idx", err)
	}

	if err := r.fs.Write(ctx, regTmpFileName, regBytes); err != nil {
		return repoerror.Wrap(repoerror.KindFileSystem, "write ns_reg.tmp", err)
	}
	if err := r.fs.Write(ctx, idxTmpFileName, idxBytes); err != nil {
		return repoerror.Wrap(repoerror.KindFileSystem, "write ns_idx.tmp", err)
	}
	if err := r.fs.Write(ctx, regFileName, regBytes); err != nil {
		return repoerror.Wrap(repoerror.KindFileSystem, "write ns_reg", err)
	}
	if err := r.fs.Write(ctx, idxFileName, idxBytes); err != nil {
		return repoerror.Wrap(repoerror.KindFileSystem, "write ns_idx", err)
	}
	_ = r.fs.Delete(ctx, regTmpFileName)
	_ = r.fs.Delete(ctx, idxTmpFileName)
	return nil
}

func (r *registry) AddListener(l Listener) {
	r.listenerMu.Lock()
	defer r.listenerMu.Unlock()
	r.listeners = append(r.listeners, l)
}

func (r *registry) SetEventChannel(ch EventChannel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channel = ch
}

func (r *registry) notifyAdded(prefix, uri string) {
	r.listenerMu.RLock()
	defer r.listenerMu.RUnlock()
	for _, l := range r.listeners {
		l.NamespaceAdded(prefix, uri)
	}
}

func (r *registry) notifyRemapped(oldPrefix, newPrefix, uri string) {
	r.listenerMu.RLock()
	defer r.listenerMu.RUnlock()
	for _, l := range r.listeners {
		l.NamespaceRemapped(oldPrefix, newPrefix, uri)
	}
}

// Register installs and persists a new prefix-to-URI mapping,
// remapping the URI's previous prefix if one exists.
func (r *registry) Register(ctx context.Context, prefix, uri string) error {
	if uri == "" && prefix != "" {
		return repoerror.New(repoerror.KindNamespace, "uri must not be empty")
	}
	if isReservedPrefixGuard(prefix) {
		return repoerror.New(repoerror.KindNamespace, fmt.Sprintf("reserved prefix %q", prefix))
	}
	if _, ok := reservedURIs[uri]; ok {
		return repoerror.New(repoerror.KindNamespace, fmt.Sprintf("reserved uri %q", uri))
	}
	if prefix != "" && !isValidNCName(prefix) {
		return repoerror.New(repoerror.KindNamespace, fmt.Sprintf("invalid prefix %q", prefix))
	}

	r.mu.Lock()

	if existingURI, ok := r.prefixToURI[prefix]; ok {
		if existingURI == uri {
			// Idempotent: identical mapping already present.
			r.mu.Unlock()
			return nil
		}
		r.mu.Unlock()
		return repoerror.New(repoerror.KindNamespace, fmt.Sprintf("prefix %q already mapped to a different uri", prefix))
	}

	oldPrefix := ""
	isRemap := false
	if existingPrefix, ok := r.uriToPrefix[uri]; ok {
		oldPrefix = existingPrefix
		isRemap = true
		delete(r.prefixToURI, existingPrefix)
	}

	r.prefixToURI[prefix] = uri
	r.uriToPrefix[uri] = prefix
	if _, ok := r.uriToIndex[uri]; !ok {
		r.nextIndex++
		r.uriToIndex[uri] = r.nextIndex
	}

	if err := r.persist(ctx); err != nil {
		// Roll back the in-memory mutation: persistence is authoritative.
		delete(r.prefixToURI, prefix)
		delete(r.uriToPrefix, uri)
		if isRemap {
			r.prefixToURI[oldPrefix] = uri
			r.uriToPrefix[uri] = oldPrefix
		}
		r.mu.Unlock()
		return err
	}
	channel := r.channel
	r.mu.Unlock()

	if channel != nil {
		if err := channel.Remapped(oldPrefix, prefix, uri); err != nil {
			r.logger.Warn("failed to broadcast namespace remap", tag.Error(err))
		}
	}

	if isRemap {
		r.notifyRemapped(oldPrefix, prefix, uri)
	} else {
		r.notifyAdded(prefix, uri)
	}
	return nil
}

// Unregister always fails for known non-reserved prefixes,
// to preserve referential integrity of stored names.
func (r *registry) Unregister(_ context.Context, prefix string) error {
	if _, ok := reservedPrefixes[prefix]; ok {
		return repoerror.New(repoerror.KindNamespace, fmt.Sprintf("reserved prefix %q", prefix))
	}
	r.mu.RLock()
	_, known := r.prefixToURI[prefix]
	r.mu.RUnlock()
	if !known {
		return repoerror.New(repoerror.KindNamespace, fmt.Sprintf("unknown prefix %q", prefix))
	}
	return repoerror.New(repoerror.KindNamespace, "unregister is not supported")
}

// SafeRegister registers uri under prefixHint, sanitizing the hint
// and suffixing it until unused; a no-op if uri is already mapped.
func (r *registry) SafeRegister(ctx context.Context, prefixHint, uri string) (string, error) {
	r.mu.RLock()
	existing, ok := r.uriToPrefix[uri]
	r.mu.RUnlock()
	if ok {
		return existing, nil
	}

	hint := prefixHint
	if hint == "" || isReservedPrefixGuard(hint) || !isValidNCName(hint) {
		hint = "_pre"
	}

	candidate := hint
	for suffix := 2; ; suffix++ {
		r.mu.RLock()
		_, taken := r.prefixToURI[candidate]
		r.mu.RUnlock()
		if !taken {
			if err := r.Register(ctx, candidate, uri); err != nil {
				return "", err
			}
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", hint, suffix)
	}
}

// UniquePrefix returns a generated prefix "_pre<N>" with N one more
// than the number of registered prefixes; the result is not checked
// against prefixes already registered.
func (r *registry) UniquePrefix(_ string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fmt.Sprintf("_pre%d", len(r.prefixToURI)+1)
}

func (r *registry) GetURI(prefix string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	uri, ok := r.prefixToURI[prefix]
	if !ok {
		return "", repoerror.New(repoerror.KindNamespace, fmt.Sprintf("prefix %q not registered", prefix))
	}
	return uri, nil
}

func (r *registry) GetPrefix(uri string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	prefix, ok := r.uriToPrefix[uri]
	if !ok {
		return "", repoerror.New(repoerror.KindNamespace, fmt.Sprintf("uri %q not registered", uri))
	}
	return prefix, nil
}

func (r *registry) GetURIByIndex(index int) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for uri, i := range r.uriToIndex {
		if i == index {
			return uri, nil
		}
	}
	return "", repoerror.New(repoerror.KindNamespace, fmt.Sprintf("index %d not registered", index))
}

func (r *registry) GetIndexByURI(uri string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.uriToIndex[uri]
	if !ok {
		return 0, repoerror.New(repoerror.KindNamespace, fmt.Sprintf("uri %q not registered", uri))
	}
	return idx, nil
}

// ExternalRemap applies an
// inbound remap without re-broadcasting.
func (r *registry) ExternalRemap(ctx context.Context, oldPrefix, newPrefix, uri string) error {
	if newPrefix == "" {
		return repoerror.New(repoerror.KindNamespace, "unregistration via external remap is not supported")
	}

	r.mu.Lock()
	if oldPrefix != "" {
		delete(r.prefixToURI, oldPrefix)
	}
	r.prefixToURI[newPrefix] = uri
	r.uriToPrefix[uri] = newPrefix
	if _, ok := r.uriToIndex[uri]; !ok {
		r.nextIndex++
		r.uriToIndex[uri] = r.nextIndex
	}
	if err := r.persist(ctx); err != nil {
		r.mu.Unlock()
		return err
	}
	r.mu.Unlock()

	if oldPrefix == "" {
		r.notifyAdded(newPrefix, uri)
	} else {
		r.notifyRemapped(oldPrefix, newPrefix, uri)
	}
	return nil
}
