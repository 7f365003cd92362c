// Package metrics defines the Prometheus collectors exported by certregistry.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ericfisherdev/certregistry/internal/domain/port/driven"
)

// Outcome labels for participant operations.
const (
	OutcomeOK           = "ok"
	OutcomeInvalid      = "invalid"
	OutcomeUnauthorized = "unauthorized"
	OutcomeNotFound     = "not_found"
	OutcomeConflict     = "conflict"
	OutcomeError        = "error"
)

// Metrics holds the registry's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Operations    *prometheus.CounterVec
	StoreDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "certregistry_participant_operations_total",
			Help: "Participant operations by operation and outcome",
		}, []string{"operation", "outcome"}),
		StoreDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "certregistry_rowstore_duration_seconds",
			Help:    "Latency of row-store calls",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"operation"}),
	}
}

// ObserveOperation counts one participant operation.
func (m *Metrics) ObserveOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) observeStore(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.StoreDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Compile-time interface satisfaction check.
var _ driven.RowStore = (*InstrumentedStore)(nil)

// InstrumentedStore wraps a RowStore and records the latency of every call.
type InstrumentedStore struct {
	next    driven.RowStore
	metrics *Metrics
}

// InstrumentStore returns store wrapped with latency observation.
func InstrumentStore(store driven.RowStore, m *Metrics) *InstrumentedStore {
	return &InstrumentedStore{next: store, metrics: m}
}

func (s *InstrumentedStore) ReadColumn(ctx context.Context, col int) ([]string, error) {
	defer s.metrics.observeStore("read_column", time.Now())
	return s.next.ReadColumn(ctx, col)
}

func (s *InstrumentedStore) ReadAll(ctx context.Context) ([][]string, error) {
	defer s.metrics.observeStore("read_all", time.Now())
	return s.next.ReadAll(ctx)
}

func (s *InstrumentedStore) AppendRow(ctx context.Context, row []string) error {
	defer s.metrics.observeStore("append_row", time.Now())
	return s.next.AppendRow(ctx, row)
}

func (s *InstrumentedStore) UpdateRow(ctx context.Context, pos int, row []string) error {
	defer s.metrics.observeStore("update_row", time.Now())
	return s.next.UpdateRow(ctx, pos, row)
}

func (s *InstrumentedStore) DeleteRow(ctx context.Context, pos int) error {
	defer s.metrics.observeStore("delete_row", time.Now())
	return s.next.DeleteRow(ctx, pos)
}

func (s *InstrumentedStore) InsertBlankRow(ctx context.Context, pos int) error {
	defer s.metrics.observeStore("insert_blank_row", time.Now())
	return s.next.InsertBlankRow(ctx, pos)
}

func (s *InstrumentedStore) AppendBlankRows(ctx context.Context, n int) error {
	defer s.metrics.observeStore("append_blank_rows", time.Now())
	return s.next.AppendBlankRows(ctx, n)
}

func (s *InstrumentedStore) RowCount(ctx context.Context) (int, error) {
	defer s.metrics.observeStore("row_count", time.Now())
	return s.next.RowCount(ctx)
}
