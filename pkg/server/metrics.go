package server

import (
	"net/http"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

const metricsNamespace = "entityd"

// handleMetrics writes the store counters in the Prometheus exposition
// format negotiated from the Accept header.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	format := expfmt.Negotiate(r.Header)
	w.Header().Set("Content-Type", string(format))

	enc := expfmt.NewEncoder(w, format)
	for _, mf := range s.metricFamilies() {
		if err := enc.Encode(mf); err != nil {
			s.log.Warn("metrics encode failed", "metric", mf.GetName(), "error", err)
			return
		}
	}
	if closer, ok := enc.(expfmt.Closer); ok {
		_ = closer.Close()
	}
}

// metricFamilies snapshots the store state as Prometheus metric families.
func (s *Server) metricFamilies() []*dto.MetricFamily {
	snap := s.metrics.Snapshot()
	store := s.Store()
	resource := label("resource", store.Name())

	ops := []struct {
		op    string
		count int64
	}{
		{"put", snap.PutCount},
		{"get", snap.GetCount},
		{"list", snap.ListCount},
		{"delete", snap.DeleteCount},
		{"reset", snap.ResetCount},
	}
	opMetrics := make([]*dto.Metric, 0, len(ops))
	for _, o := range ops {
		opMetrics = append(opMetrics, counterMetric(float64(o.count), resource, label("op", o.op)))
	}

	return []*dto.MetricFamily{
		family("store_operations_total", "Store operations by type.", dto.MetricType_COUNTER, opMetrics...),
		family("store_get_misses_total", "Get operations for ids that were not stored.", dto.MetricType_COUNTER,
			counterMetric(float64(snap.GetMissCount), resource)),
		family("store_errors_total", "Store operations that failed.", dto.MetricType_COUNTER,
			counterMetric(float64(snap.ErrorCount), resource)),
		family("store_operation_seconds_total", "Cumulative time spent in store operations.", dto.MetricType_COUNTER,
			counterMetric(snap.TotalLatency.Seconds(), resource)),
		family("store_entities", "Entities currently in the shared store.", dto.MetricType_GAUGE,
			gaugeMetric(float64(store.Count()), resource)),
		family("store_seed_entities", "Entities in the seed data.", dto.MetricType_GAUGE,
			gaugeMetric(float64(store.SeedCount()), resource)),
		family("event_subscribers", "Connected change event subscribers.", dto.MetricType_GAUGE,
			gaugeMetric(float64(s.feed.Subscribers()), resource)),
		family("uptime_seconds", "Seconds since the server was created.", dto.MetricType_GAUGE,
			gaugeMetric(time.Since(s.started).Seconds())),
	}
}

func family(name, help string, typ dto.MetricType, metrics ...*dto.Metric) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(metricsNamespace + "_" + name),
		Help:   proto.String(help),
		Type:   typ.Enum(),
		Metric: metrics,
	}
}

func counterMetric(v float64, labels ...*dto.LabelPair) *dto.Metric {
	return &dto.Metric{Label: labels, Counter: &dto.Counter{Value: proto.Float64(v)}}
}

func gaugeMetric(v float64, labels ...*dto.LabelPair) *dto.Metric {
	return &dto.Metric{Label: labels, Gauge: &dto.Gauge{Value: proto.Float64(v)}}
}

func label(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: proto.String(name), Value: proto.String(value)}
}
