// Package otel bridges engine metric snapshots into OpenTelemetry
// observable instruments.
//
// [NewOTelExporter] registers an Int64ObservableCounter per engine counter
// and Int64ObservableGauge instruments per histogram bucket, all observed by
// a single callback that reads a fresh snapshot on each collection cycle.
// Callers supply the Meter; the package never owns a MeterProvider.
package otel
