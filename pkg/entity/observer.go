package entity

import (
	"sync/atomic"
	"time"
)

// Observer defines hooks for metrics collection on store operations.
type Observer interface {
	// OnPut is called after an entity is inserted or overwritten.
	OnPut(resource string, id int64, duration time.Duration)

	// OnGet is called after a lookup, whether or not the entity was found.
	OnGet(resource string, id int64, found bool, duration time.Duration)

	// OnList is called after a list or query.
	OnList(resource string, count int, duration time.Duration)

	// OnDelete is called after a delete, whether or not the entity existed.
	OnDelete(resource string, id int64, removed bool, duration time.Duration)

	// OnError is called when an operation fails.
	OnError(resource string, operation string, err error)

	// OnReset is called after the store is reset to seed data or cleared.
	OnReset(resource string, count int, duration time.Duration)
}

// NoopObserver is a no-op implementation of Observer.
type NoopObserver struct{}

func (NoopObserver) OnPut(string, int64, time.Duration)          {}
func (NoopObserver) OnGet(string, int64, bool, time.Duration)    {}
func (NoopObserver) OnList(string, int, time.Duration)           {}
func (NoopObserver) OnDelete(string, int64, bool, time.Duration) {}
func (NoopObserver) OnError(string, string, error)               {}
func (NoopObserver) OnReset(string, int, time.Duration)          {}

// MetricsObserver counts store operations. All counters are atomic so it can
// be shared by every store a Provider hands out.
type MetricsObserver struct {
	putCount       atomic.Int64
	getCount       atomic.Int64
	getMissCount   atomic.Int64
	listCount      atomic.Int64
	deleteCount    atomic.Int64
	errorCount     atomic.Int64
	resetCount     atomic.Int64
	totalLatencyNs atomic.Int64
}

// NewMetricsObserver creates a new metrics observer.
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

func (m *MetricsObserver) OnPut(_ string, _ int64, duration time.Duration) {
	m.putCount.Add(1)
	m.totalLatencyNs.Add(int64(duration))
}

func (m *MetricsObserver) OnGet(_ string, _ int64, found bool, duration time.Duration) {
	m.getCount.Add(1)
	if !found {
		m.getMissCount.Add(1)
	}
	m.totalLatencyNs.Add(int64(duration))
}

func (m *MetricsObserver) OnList(_ string, _ int, duration time.Duration) {
	m.listCount.Add(1)
	m.totalLatencyNs.Add(int64(duration))
}

func (m *MetricsObserver) OnDelete(_ string, _ int64, _ bool, duration time.Duration) {
	m.deleteCount.Add(1)
	m.totalLatencyNs.Add(int64(duration))
}

func (m *MetricsObserver) OnError(string, string, error) {
	m.errorCount.Add(1)
}

func (m *MetricsObserver) OnReset(_ string, _ int, duration time.Duration) {
	m.resetCount.Add(1)
	m.totalLatencyNs.Add(int64(duration))
}

// Snapshot returns a point-in-time copy of the counters.
func (m *MetricsObserver) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		PutCount:     m.putCount.Load(),
		GetCount:     m.getCount.Load(),
		GetMissCount: m.getMissCount.Load(),
		ListCount:    m.listCount.Load(),
		DeleteCount:  m.deleteCount.Load(),
		ErrorCount:   m.errorCount.Load(),
		ResetCount:   m.resetCount.Load(),
		TotalLatency: time.Duration(m.totalLatencyNs.Load()),
	}
}

// MetricsSnapshot is a point-in-time snapshot of store metrics.
type MetricsSnapshot struct {
	PutCount     int64         `json:"putCount"`
	GetCount     int64         `json:"getCount"`
	GetMissCount int64         `json:"getMissCount"`
	ListCount    int64         `json:"listCount"`
	DeleteCount  int64         `json:"deleteCount"`
	ErrorCount   int64         `json:"errorCount"`
	ResetCount   int64         `json:"resetCount"`
	TotalLatency time.Duration `json:"totalLatencyNs"`
}

// TotalOperations returns the number of completed operations.
func (s MetricsSnapshot) TotalOperations() int64 {
	return s.PutCount + s.GetCount + s.ListCount + s.DeleteCount + s.ResetCount
}
