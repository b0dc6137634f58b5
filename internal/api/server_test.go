package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hwaldron/meterhub-core/internal/infrastructure/config"
	"github.com/hwaldron/meterhub-core/internal/infrastructure/logging"
	"github.com/hwaldron/meterhub-core/internal/metrics"
	"github.com/hwaldron/meterhub-core/internal/sensors"
)

// testServer creates a Server with a real metrics instance backed by
// in-memory SQLite.
func testServer(t *testing.T) (*Server, *metrics.Instance) {
	t.Helper()

	db := setupTestDB(t)
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	repo := metrics.NewSQLiteBlobRepository(db, "test-instance")
	instance := metrics.NewInstance("test-instance", repo, nil, log)
	registry := sensors.NewRegistry(log)

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		MaxBodySize: 1 << 20,
		Logger:      log,
		Instance:    instance,
		Sensors:     registry,
		Version:     "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	// Initialise hub for tests
	srv.hub = NewHub(srv.wsCfg, log)
	go srv.hub.Run(context.Background())

	return srv, instance
}

// setupTestDB creates an in-memory SQLite database with the datasets schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE datasets (
			instance_id TEXT PRIMARY KEY,
			version INTEGER NOT NULL DEFAULT 1,
			payload TEXT NOT NULL,
			updated_at TEXT NOT NULL
		) STRICT;
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// doRequest runs one request through the full router.
func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("response unmarshal error = %v, body = %s", err, rec.Body.String())
	}
}

// TestHealthEndpoint verifies the health check responds.
func TestHealthEndpoint(t *testing.T) {
	srv, _ := testServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	decodeBody(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}

// TestIngestSingleMetric verifies posting one metric object.
func TestIngestSingleMetric(t *testing.T) {
	srv, instance := testServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/metrics",
		`{"timestamp": "2024-01-01T10:00:00Z", "meter_value": 1234.5, "temperature": 68.0}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body = %s", rec.Code, rec.Body.String())
	}

	var body ingestResponse
	decodeBody(t, rec, &body)
	if !body.Success {
		t.Error("success = false, want true")
	}
	if body.ProcessedCount != 1 || body.New != 1 {
		t.Errorf("counts = {processed:%d new:%d}, want {1 1}", body.ProcessedCount, body.New)
	}

	snapshot, err := instance.Store.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snapshot.Size() != 1 {
		t.Errorf("stored size = %d, want 1", snapshot.Size())
	}
}

// TestIngestBatch verifies the batch shape and idempotent re-post.
func TestIngestBatch(t *testing.T) {
	srv, _ := testServer(t)

	batch := `{"metrics": [
		{"timestamp": "2024-01-01T10:00:00Z", "meter_value": 100},
		{"timestamp": "2024-01-01T11:00:00Z", "meter_value": 105}
	]}`

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/metrics", batch)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body = %s", rec.Code, rec.Body.String())
	}

	var first ingestResponse
	decodeBody(t, rec, &first)
	if first.New != 2 {
		t.Errorf("first post New = %d, want 2", first.New)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/metrics", batch)
	if rec.Code != http.StatusOK {
		t.Fatalf("repost status = %d, want 200", rec.Code)
	}

	var second ingestResponse
	decodeBody(t, rec, &second)
	if second.New != 0 || second.Changed != 0 {
		t.Errorf("repost counts = {new:%d changed:%d}, want {0 0}", second.New, second.Changed)
	}
	if second.ProcessedCount != 2 {
		t.Errorf("repost ProcessedCount = %d, want 2", second.ProcessedCount)
	}
}

// TestIngestRejectsInvalidItem verifies all-or-nothing rejection with
// per-item errors.
func TestIngestRejectsInvalidItem(t *testing.T) {
	srv, instance := testServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/metrics", `{"metrics": [
		{"timestamp": "2024-01-01T10:00:00Z", "meter_value": 100},
		{"timestamp": "garbage", "meter_value": 105}
	]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body = %s", rec.Code, rec.Body.String())
	}

	var body Error
	decodeBody(t, rec, &body)
	if body.Code != ErrCodeValidation {
		t.Errorf("code = %q, want %q", body.Code, ErrCodeValidation)
	}
	if len(body.Errors) != 1 {
		t.Fatalf("errors length = %d, want 1", len(body.Errors))
	}
	if body.Errors[0].Index != 1 {
		t.Errorf("error index = %d, want 1", body.Errors[0].Index)
	}

	snapshot, err := instance.Store.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snapshot.Size() != 0 {
		t.Errorf("stored size = %d, want 0 (rejected batch must not merge)", snapshot.Size())
	}
}

// TestIngestMalformedJSON verifies malformed bodies are a 400 before any
// validation runs.
func TestIngestMalformedJSON(t *testing.T) {
	srv, _ := testServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/metrics", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

// TestQueryLatest verifies GET without parameters returns the newest
// record, and an empty list on an empty store.
func TestQueryLatest(t *testing.T) {
	srv, _ := testServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var empty queryResponse
	decodeBody(t, rec, &empty)
	if empty.Count != 0 {
		t.Errorf("empty store count = %d, want 0", empty.Count)
	}

	doRequest(t, srv, http.MethodPost, "/api/v1/metrics", `{"metrics": [
		{"timestamp": "2024-01-01T10:00:00Z", "meter_value": 100},
		{"timestamp": "2024-01-01T12:00:00Z", "meter_value": 110}
	]}`)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/metrics", "")
	var body queryResponse
	decodeBody(t, rec, &body)
	if body.Count != 1 {
		t.Fatalf("count = %d, want 1", body.Count)
	}
	if body.Metrics[0].MeterValue == nil || *body.Metrics[0].MeterValue != 110 {
		t.Errorf("latest meter_value = %v, want 110", body.Metrics[0].MeterValue)
	}
}

// TestQueryRange verifies inclusive range queries and bound validation.
func TestQueryRange(t *testing.T) {
	srv, _ := testServer(t)

	doRequest(t, srv, http.MethodPost, "/api/v1/metrics", `{"metrics": [
		{"timestamp": "2024-01-01T10:00:00Z", "meter_value": 100},
		{"timestamp": "2024-01-01T11:00:00Z", "meter_value": 105},
		{"timestamp": "2024-01-01T12:00:00Z", "meter_value": 110}
	]}`)

	t.Run("inclusive range", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet,
			"/api/v1/metrics?start_time=2024-01-01T10:00:00Z&end_time=2024-01-01T11:00:00Z", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var body queryResponse
		decodeBody(t, rec, &body)
		if body.Count != 2 {
			t.Errorf("count = %d, want 2", body.Count)
		}
	})

	t.Run("inverted range is empty success", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet,
			"/api/v1/metrics?start_time=2024-01-01T12:00:00Z&end_time=2024-01-01T10:00:00Z", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var body queryResponse
		decodeBody(t, rec, &body)
		if body.Count != 0 {
			t.Errorf("count = %d, want 0", body.Count)
		}
	})

	t.Run("single bound rejected", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/api/v1/metrics?start_time=2024-01-01T10:00:00Z", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("invalid bound rejected", func(t *testing.T) {
		rec := doRequest(t, srv, http.MethodGet, "/api/v1/metrics?start_time=garbage&end_time=2024-01-01T12:00:00Z", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

// TestSensorsEndpoints verifies sensor listing and lookup track ingested
// data.
func TestSensorsEndpoints(t *testing.T) {
	srv, instance := testServer(t)

	doRequest(t, srv, http.MethodPost, "/api/v1/metrics",
		`{"timestamp": "2024-01-01T10:00:00Z", "meter_value": 500.5, "temperature": 68}`)

	// The registry normally runs off the publisher; update it directly here.
	snapshot, err := instance.Store.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	srv.sensors.Update(snapshot)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/sensors", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var list struct {
		Success bool              `json:"success"`
		Sensors []sensors.Reading `json:"sensors"`
		Count   int               `json:"count"`
	}
	decodeBody(t, rec, &list)
	if list.Count != 3 {
		t.Errorf("count = %d, want 3", list.Count)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/sensors/energy_meter", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var single struct {
		Success bool            `json:"success"`
		Sensor  sensors.Reading `json:"sensor"`
	}
	decodeBody(t, rec, &single)
	if single.Sensor.Value == nil || *single.Sensor.Value != 500.5 {
		t.Errorf("energy_meter value = %v, want 500.5", single.Sensor.Value)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/sensors/humidity", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown sensor status = %d, want 404", rec.Code)
	}
}

// TestStatusEndpoint verifies the status response carries dataset counts.
func TestStatusEndpoint(t *testing.T) {
	srv, _ := testServer(t)

	doRequest(t, srv, http.MethodPost, "/api/v1/metrics",
		`{"timestamp": "2024-01-01T10:00:00Z", "meter_value": 100}`)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body SystemStatus
	decodeBody(t, rec, &body)
	if body.InstanceID != "test-instance" {
		t.Errorf("instance_id = %q, want test-instance", body.InstanceID)
	}
	if body.Dataset.RecordCount != 1 {
		t.Errorf("record_count = %d, want 1", body.Dataset.RecordCount)
	}
	if body.Runtime.Goroutines <= 0 {
		t.Error("goroutines = 0, want positive")
	}
}

// TestRequestIDHeader verifies the request ID round-trips.
func TestRequestIDHeader(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "test-id-123")
	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "test-id-123" {
		t.Errorf("X-Request-ID = %q, want test-id-123", got)
	}
}
