package server

import (
	"net/http"
	"time"

	"github.com/getmockd/entityd/pkg/entity"
	"github.com/getmockd/entityd/pkg/httputil"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ResetResponse is the body of the admin reset and clear routes.
type ResetResponse struct {
	// Count is the number of entities after a reset, or removed by a clear.
	Count int `json:"count"`
}

// StatsResponse is the body of GET /admin/stats.
type StatsResponse struct {
	Resource    string                 `json:"resource"`
	Scope       entity.Scope           `json:"scope"`
	Entities    int                    `json:"entities"`
	Seed        int                    `json:"seed"`
	Subscribers int                    `json:"subscribers"`
	Uptime      int64                  `json:"uptimeSeconds"`
	Operations  entity.MetricsSnapshot `json:"operations"`
}

func (s *Server) registerAdmin(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /admin/stats", s.handleStats)
	mux.HandleFunc("POST /admin/reset", s.handleReset)
	mux.HandleFunc("DELETE /admin/entities", s.handleClear)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteOK(w, HealthResponse{Status: "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	store := s.Store()
	httputil.WriteOK(w, StatsResponse{
		Resource:    store.Name(),
		Scope:       s.provider.Scope(),
		Entities:    store.Count(),
		Seed:        store.SeedCount(),
		Subscribers: s.feed.Subscribers(),
		Uptime:      int64(time.Since(s.started).Seconds()),
		Operations:  s.metrics.Snapshot(),
	})
}

// handleReset restores the seed data of the shared store.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	count := s.Store().Reset()
	s.log.Info("store reset", "entities", count, "requestId", RequestID(r.Context()))
	httputil.WriteOK(w, ResetResponse{Count: count})
}

// handleClear removes every entity from the shared store.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	removed := s.Store().Clear()
	s.log.Info("store cleared", "removed", removed, "requestId", RequestID(r.Context()))
	httputil.WriteOK(w, ResetResponse{Count: removed})
}
