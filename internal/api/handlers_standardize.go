package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/zhongyd/addrnorm/internal/addr"
	"github.com/zhongyd/addrnorm/internal/bioes"
	"github.com/zhongyd/addrnorm/internal/cache"
	"github.com/zhongyd/addrnorm/internal/levels"
	"github.com/zhongyd/addrnorm/internal/pipeline"
)

const maxBatchAddresses = 100

type standardizeRequest struct {
	Address  string            `json:"address"`
	Entities map[string]string `json:"entities,omitempty"`
}

type standardizeResponse struct {
	Success      bool              `json:"success"`
	Address      string            `json:"address"`
	Entities     map[string]string `json:"entities,omitempty"`
	Levels       addr.LevelRecord  `json:"levels"`
	TokenResult  *addr.Tagged      `json:"token_result,omitempty"`
	Cached       bool              `json:"cached,omitempty"`
	ProcessingMs int64             `json:"processing_time_ms"`
	Error        string            `json:"error,omitempty"`
}

func (s *Server) handleStandardize(w http.ResponseWriter, r *http.Request) {
	var req standardizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Address == "" {
		jsonError(w, "address is required", http.StatusBadRequest)
		return
	}

	resp := s.standardizeOne(r, req)
	w.Header().Set("Content-Type", "application/json")
	if !resp.Success && resp.Entities == nil {
		w.WriteHeader(http.StatusBadGateway)
	}
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleStandardizeBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Addresses []string `json:"addresses"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Addresses) == 0 {
		jsonError(w, "addresses is required", http.StatusBadRequest)
		return
	}
	if len(req.Addresses) > maxBatchAddresses {
		jsonError(w, "too many addresses (max 100), use /api/ingest for batch files", http.StatusBadRequest)
		return
	}

	results := make([]standardizeResponse, 0, len(req.Addresses))
	for _, address := range req.Addresses {
		if address == "" {
			results = append(results, standardizeResponse{Error: "empty address"})
			continue
		}
		results = append(results, s.standardizeOne(r, standardizeRequest{Address: address}))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"results": results})
}

// standardizeOne runs the synchronous path for one address: cache lookup,
// tagging when no entities were supplied, then classification.
func (s *Server) standardizeOne(r *http.Request, req standardizeRequest) standardizeResponse {
	start := time.Now()
	ctx := r.Context()

	entities := req.Entities

	if entities == nil && s.cache != nil {
		if entry, ok := s.cache.Get(ctx, req.Address); ok {
			token := bioes.Encode(req.Address, entry.Entities, s.log)
			return standardizeResponse{
				Success:      true,
				Address:      req.Address,
				Entities:     entry.Entities,
				Levels:       entry.Levels,
				TokenResult:  &token,
				Cached:       true,
				ProcessingMs: time.Since(start).Milliseconds(),
			}
		}
	}

	tagged := false
	if entities == nil {
		var err error
		for attempt := 0; attempt < pipeline.MaxRetries; attempt++ {
			entities, err = s.tags.Entities(ctx, req.Address)
			if err == nil || !pipeline.IsRetryable(err) {
				break
			}
			s.log.Warn("retryable tagging error", "attempt", attempt, "error", err)
			select {
			case <-time.After(pipeline.Backoff(attempt)):
			case <-ctx.Done():
				err = ctx.Err()
			}
			if ctx.Err() != nil {
				break
			}
		}
		if err != nil {
			return standardizeResponse{
				Address:      req.Address,
				Error:        err.Error(),
				ProcessingMs: time.Since(start).Milliseconds(),
			}
		}
		tagged = true
	}

	record := levels.Classify(entities, req.Address, s.log)
	token := bioes.Encode(req.Address, entities, s.log)

	if tagged && record.Error == "" && s.cache != nil {
		s.cache.Set(ctx, req.Address, &cache.Entry{Entities: entities, Levels: record})
	}

	return standardizeResponse{
		Success:      record.Error == "",
		Address:      req.Address,
		Entities:     entities,
		Levels:       record,
		TokenResult:  &token,
		ProcessingMs: time.Since(start).Milliseconds(),
		Error:        record.Error,
	}
}

func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address  string            `json:"address"`
		Entities map[string]string `json:"entities"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Address == "" {
		jsonError(w, "address is required", http.StatusBadRequest)
		return
	}

	seq := bioes.Encode(req.Address, req.Entities, s.log)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(seq)
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tokens []string `json:"tokens"`
		Tags   []string `json:"ner_tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Tokens) != len(req.Tags) {
		jsonError(w, "tokens and ner_tags must have the same length", http.StatusBadRequest)
		return
	}

	entities := bioes.Decode(req.Tokens, req.Tags)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"entities": entities.Flat(),
	})
}
