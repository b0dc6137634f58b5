package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemStatus represents the complete system status response.
type SystemStatus struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	InstanceID    string          `json:"instance_id"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runtime       RuntimeStatus   `json:"runtime"`
	Dataset       DatasetStatus   `json:"dataset"`
	WebSocket     WSStatus        `json:"websocket"`
	MQTT          MQTTStatus      `json:"mqtt"`
	Database      *DatabaseStatus `json:"database,omitempty"`
}

// RuntimeStatus contains Go runtime statistics.
type RuntimeStatus struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// DatasetStatus contains metrics store statistics.
type DatasetStatus struct {
	RecordCount int    `json:"record_count"`
	LastUpdated string `json:"last_updated,omitempty"`
	Subscribers int    `json:"subscribers"`
}

// WSStatus contains WebSocket hub statistics.
type WSStatus struct {
	ConnectedClients int `json:"connected_clients"`
}

// MQTTStatus contains MQTT client statistics.
type MQTTStatus struct {
	Connected bool `json:"connected"`
}

// DatabaseStatus contains database connection pool statistics.
type DatabaseStatus struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleStatus returns comprehensive system status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	status := SystemStatus{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		InstanceID:    s.instance.ID,
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Runtime: RuntimeStatus{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Dataset: DatasetStatus{
			Subscribers: s.instance.Publisher.SubscriberCount(),
		},
	}

	if s.hub != nil {
		status.WebSocket.ConnectedClients = s.hub.ClientCount()
	}
	if s.mqtt != nil {
		status.MQTT.Connected = s.mqtt.IsConnected()
	}

	snapshot, err := s.instance.Store.Snapshot(r.Context())
	if err != nil {
		s.logger.Warn("status snapshot failed", "error", err)
	} else {
		status.Dataset.RecordCount = snapshot.Size()
		if !snapshot.LastUpdated.IsZero() {
			status.Dataset.LastUpdated = snapshot.LastUpdated.UTC().Format(time.RFC3339)
		}
	}

	if s.db != nil {
		dbStats := s.db.Stats()
		status.Database = &DatabaseStatus{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, status)
}
