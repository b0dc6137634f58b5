package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/hwaldron/meterhub-core/internal/metrics"
)

// ingestResponse is the success body for POST /metrics.
type ingestResponse struct {
	Success        bool `json:"success"`
	ProcessedCount int  `json:"processed_count"`
	New            int  `json:"new"`
	Changed        int  `json:"changed"`
}

// queryResponse is the success body for GET /metrics.
type queryResponse struct {
	Success bool             `json:"success"`
	Metrics []metrics.Record `json:"metrics"`
	Count   int              `json:"count"`
}

// handleIngest accepts a single metric or a batch and merges it into the
// store. Validation is all-or-nothing: any invalid item rejects the whole
// request with a per-item error list and nothing is stored.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "request body too large")
			return
		}
		writeBadRequest(w, "failed to read request body")
		return
	}

	items, err := metrics.DecodePayload(body)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	result, err := s.instance.Coordinator.Ingest(r.Context(), items)
	if err != nil {
		s.logger.Error("ingest failed", "error", err)
		writeInternalError(w, "failed to store metrics")
		return
	}

	if !result.Accepted {
		writeValidationError(w, result.Errors)
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{
		Success:        true,
		ProcessedCount: result.ProcessedCount,
		New:            result.New,
		Changed:        result.Changed,
	})
}

// handleQuery returns stored metrics.
//
// With start_time and end_time query parameters it returns all records in
// the inclusive range, ascending. Without parameters it returns the latest
// record, or an empty list when the store is empty. Supplying only one
// bound is a 400.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start_time")
	end := r.URL.Query().Get("end_time")

	if (start == "") != (end == "") {
		writeBadRequest(w, "start_time and end_time must be provided together")
		return
	}

	if start != "" {
		records, err := s.instance.Store.Range(r.Context(), start, end)
		if err != nil {
			if errors.Is(err, metrics.ErrInvalidTimestamp) {
				writeBadRequest(w, err.Error())
				return
			}
			s.logger.Error("range query failed", "error", err)
			writeInternalError(w, "failed to query metrics")
			return
		}
		writeJSON(w, http.StatusOK, queryResponse{Success: true, Metrics: records, Count: len(records)})
		return
	}

	record, ok, err := s.instance.Store.Latest(r.Context())
	if err != nil {
		s.logger.Error("latest query failed", "error", err)
		writeInternalError(w, "failed to query metrics")
		return
	}

	records := []metrics.Record{}
	if ok {
		records = append(records, record)
	}
	writeJSON(w, http.StatusOK, queryResponse{Success: true, Metrics: records, Count: len(records)})
}
