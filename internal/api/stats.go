package api

import (
	"net/http"
)

// statsResponse is the JSON response for GET /v1/stats.
type statsResponse struct {
	Live            int            `json:"live"`
	LiveByStatus    map[string]int `json:"live_by_status"`
	TotalByStatus   map[string]int `json:"total_by_status"`
	AvgDurationMS   float64        `json:"avg_duration_ms"`
	TimedOutTotal   int            `json:"timed_out_total"`
	EvictedUnpolled int            `json:"evicted_unpolled"`
	Workers         int            `json:"workers"`
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats := s.registry.Stats()

	s.writeJSON(w, http.StatusOK, statsResponse{
		Live:            stats.Live,
		LiveByStatus:    stats.LiveByStatus,
		TotalByStatus:   stats.TotalByStatus,
		AvgDurationMS:   stats.AvgDurationMS,
		TimedOutTotal:   stats.TimedOutTotal,
		EvictedUnpolled: stats.EvictedUnpolled,
		Workers:         s.pool.Workers(),
	})
}
