package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleListSensors returns current readings for all sensors.
func (s *Server) handleListSensors(w http.ResponseWriter, _ *http.Request) {
	if s.sensors == nil {
		writeNotFound(w, "sensors not enabled")
		return
	}

	readings := s.sensors.Readings()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"sensors": readings,
		"count":   len(readings),
	})
}

// handleGetSensor returns the current reading for one sensor key.
func (s *Server) handleGetSensor(w http.ResponseWriter, r *http.Request) {
	if s.sensors == nil {
		writeNotFound(w, "sensors not enabled")
		return
	}

	key := chi.URLParam(r, "key")
	reading, ok := s.sensors.Reading(key)
	if !ok {
		writeNotFound(w, "unknown sensor: "+key)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"sensor":  reading,
	})
}
