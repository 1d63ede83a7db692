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

// Package metrics defines the Handler abstraction every subsystem uses
// to emit counters, gauges, and timers, backed by a prometheus
// registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Handler is the metrics emission surface passed down into every
// subsystem constructor.
type Handler interface {
	WithTags(tags ...Tag) Handler
	Counter(name string) CounterMetric
	Gauge(name string) GaugeMetric
	Timer(name string) TimerMetric
}

type (
	CounterMetric interface{ Record(v int64) }
	GaugeMetric   interface{ Record(v float64) }
	TimerMetric   interface{ Record(d time.Duration) }

	// Tag is a metrics dimension, e.g. OperationTag("login").
	Tag struct {
		Key   string
		Value string
	}
)

// OperationTag tags a metric with the kernel operation that emitted it.
func OperationTag(op string) Tag { return Tag{Key: "operation", Value: op} }

// WorkspaceTag tags a metric with the workspace it pertains to.
func WorkspaceTag(name string) Tag { return Tag{Key: "workspace", Value: name} }

type promHandler struct {
	registry *prometheus.Registry
	labels   prometheus.Labels
	counters *familyCache
	gauges   *familyCache
	timers   *familyCache
}

// NewPrometheusHandler builds a Handler backed by reg. Pass a fresh
// *prometheus.Registry per repository instance so parallel tests don't
// collide on metric name registration.
func NewPrometheusHandler(reg *prometheus.Registry) Handler {
	return &promHandler{
		registry: reg,
		labels:   prometheus.Labels{},
		counters: newFamilyCache(),
		gauges:   newFamilyCache(),
		timers:   newFamilyCache(),
	}
}

func (h *promHandler) WithTags(tags ...Tag) Handler {
	labels := make(prometheus.Labels, len(h.labels)+len(tags))
	for k, v := range h.labels {
		labels[k] = v
	}
	for _, t := range tags {
		labels[t.Key] = t.Value
	}
	return &promHandler{
		registry: h.registry,
		labels:   labels,
		counters: h.counters,
		gauges:   h.gauges,
		timers:   h.timers,
	}
}

func (h *promHandler) Counter(name string) CounterMetric {
	vec := h.counters.counterVec(h.registry, name, labelNames(h.labels))
	return counterMetric{c: vec.With(h.labels)}
}

func (h *promHandler) Gauge(name string) GaugeMetric {
	vec := h.gauges.gaugeVec(h.registry, name, labelNames(h.labels))
	return gaugeMetric{g: vec.With(h.labels)}
}

func (h *promHandler) Timer(name string) TimerMetric {
	vec := h.timers.histogramVec(h.registry, name, labelNames(h.labels))
	return timerMetric{h: vec.With(h.labels)}
}

type counterMetric struct{ c prometheus.Counter }

func (m counterMetric) Record(v int64) { m.c.Add(float64(v)) }

type gaugeMetric struct{ g prometheus.Gauge }

func (m gaugeMetric) Record(v float64) { m.g.Set(v) }

type timerMetric struct{ h prometheus.Observer }

func (m timerMetric) Record(d time.Duration) { m.h.Observe(d.Seconds()) }

func labelNames(labels prometheus.Labels) []string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	return names
}
