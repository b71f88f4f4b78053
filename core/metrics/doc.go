// Package metrics exposes Prometheus instrumentation for storage drivers.
//
// Instrument wraps any storage.Driver so each call increments
// objstore_operations_total{op,result} and observes
// objstore_operation_duration_seconds{op}. The result label is
// storage.Reason of the returned error.
package metrics
