// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Glyphix Contributors

// Package telemetry holds the Prometheus collectors and OpenTelemetry span
// helpers shared across the registry's public operations.
package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Metrics is the set of gauges/counters a Registry keeps up to date. The
// zero value is safe to use: every method is a no-op when the underlying
// collector is nil, so a Registry built without WithMetrics pays nothing.
type Metrics struct {
	KnownLibraries   prometheus.Gauge
	KnownDescriptors prometheus.Gauge
	LoadedLibraries  prometheus.Gauge
	ScanDiagnostics  prometheus.Counter
}

// NewMetrics registers a fresh set of collectors with reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the default
// global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		KnownLibraries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "extsystem_known_libraries",
			Help: "Number of library files currently registered, loaded or not.",
		}),
		KnownDescriptors: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "extsystem_known_descriptors",
			Help: "Number of extension descriptors currently known to the registry.",
		}),
		LoadedLibraries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "extsystem_loaded_libraries",
			Help: "Number of libraries currently mapped into the process (refcount > 0).",
		}),
		ScanDiagnostics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "extsystem_scan_diagnostics_total",
			Help: "Total number of non-fatal diagnostics produced while scanning library files.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.KnownLibraries, m.KnownDescriptors, m.LoadedLibraries, m.ScanDiagnostics)
	}
	return m
}

func (m *Metrics) setKnownLibraries(n int) {
	if m == nil || m.KnownLibraries == nil {
		return
	}
	m.KnownLibraries.Set(float64(n))
}

func (m *Metrics) setKnownDescriptors(n int) {
	if m == nil || m.KnownDescriptors == nil {
		return
	}
	m.KnownDescriptors.Set(float64(n))
}

func (m *Metrics) setLoadedLibraries(n int) {
	if m == nil || m.LoadedLibraries == nil {
		return
	}
	m.LoadedLibraries.Set(float64(n))
}

// AddDiagnostics increments the diagnostics counter by n.
func (m *Metrics) AddDiagnostics(n int) {
	if m == nil || m.ScanDiagnostics == nil || n == 0 {
		return
	}
	m.ScanDiagnostics.Add(float64(n))
}

// SetGauges updates all three state gauges at once - the Registry calls this
// after every mutation rather than tracking deltas.
func (m *Metrics) SetGauges(libraries, descriptors, loaded int) {
	m.setKnownLibraries(libraries)
	m.setKnownDescriptors(descriptors)
	m.setLoadedLibraries(loaded)
}

// Tracer wraps an OTel tracer so call sites can pass a nil *Tracer in tests
// without threading a real TracerProvider through.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer builds a Tracer backed by the named instrumentation scope,
// using the globally configured OTel TracerProvider.
func NewTracer(name string) *Tracer {
	return &Tracer{tracer: otel.Tracer(name)}
}

// Start opens a span named op if t is non-nil, otherwise returns ctx
// unchanged and a no-op end function.
func (t *Tracer) Start(ctx context.Context, op string) (context.Context, func()) {
	if t == nil || t.tracer == nil {
		return ctx, func() {}
	}
	ctx, span := t.tracer.Start(ctx, op)
	return ctx, func() { span.End() }
}
