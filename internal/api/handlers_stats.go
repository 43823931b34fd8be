package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleTaggerStats(w http.ResponseWriter, r *http.Request) {
	if s.tagger == nil {
		jsonError(w, "tagger stats unavailable", http.StatusServiceUnavailable)
		return
	}

	resp := map[string]any{
		"base_url":    s.tagger.BaseURL(),
		"latency":     s.tagger.Stats.Snapshot(),
		"queue_depth": s.orchestrator.QueueDepth(),
	}
	if s.cache != nil {
		hits, misses := s.cache.Stats()
		resp["cache"] = map[string]int64{"hits": hits, "misses": misses}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
