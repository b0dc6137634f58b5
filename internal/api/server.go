// Package api provides the HTTP REST API and WebSocket server for MeterHub.
//
// It exposes metric ingestion, range and latest queries, sensor readings,
// and system status to dashboards and integrations, plus a WebSocket feed
// of dataset snapshot updates.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hwaldron/meterhub-core/internal/infrastructure/config"
	"github.com/hwaldron/meterhub-core/internal/infrastructure/database"
	"github.com/hwaldron/meterhub-core/internal/infrastructure/logging"
	"github.com/hwaldron/meterhub-core/internal/infrastructure/mqtt"
	"github.com/hwaldron/meterhub-core/internal/metrics"
	"github.com/hwaldron/meterhub-core/internal/sensors"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	MaxBodySize int64
	Logger      *logging.Logger
	Instance    *metrics.Instance
	Sensors     *sensors.Registry
	DB          *database.DB
	MQTT        *mqtt.Client // optional: surfaced in /status only
	Version     string
}

// Server is the HTTP API server for MeterHub.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	maxBodySize int64
	logger      *logging.Logger
	instance    *metrics.Instance
	sensors     *sensors.Registry
	db          *database.DB
	mqtt        *mqtt.Client
	version     string
	startedAt   time.Time
	server      *http.Server
	hub         *Hub
	cancel      context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, metrics instance)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Instance == nil {
		return nil, fmt.Errorf("metrics instance is required")
	}
	// Sensors, DB, and MQTT are optional - the corresponding endpoints
	// degrade rather than the whole server refusing to start.

	return &Server{
		cfg:         deps.Config,
		wsCfg:       deps.WS,
		maxBodySize: deps.MaxBodySize,
		logger:      deps.Logger,
		instance:    deps.Instance,
		sensors:     deps.Sensors,
		db:          deps.DB,
		mqtt:        deps.MQTT,
		version:     deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub, wires the hub to the snapshot publisher for
// real-time broadcast, and launches the HTTP listener in a background
// goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)

	// Relay dataset snapshots to WebSocket clients.
	go s.relaySnapshots(srvCtx)

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	s.startedAt = time.Now().UTC()

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// relaySnapshots broadcasts every published snapshot to subscribed
// WebSocket clients as a summary event.
func (s *Server) relaySnapshots(ctx context.Context) {
	snapshots, cancel := s.instance.Publisher.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, ok := <-snapshots:
			if !ok {
				return
			}
			payload := map[string]any{
				"instance_id":  s.instance.ID,
				"record_count": snapshot.Size(),
				"last_updated": snapshot.LastUpdated,
			}
			if latest, found := snapshot.LatestRecord(); found {
				payload["latest"] = latest
			}
			s.hub.Broadcast("metrics.snapshot_updated", payload)
		}
	}
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub, snapshot relay)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
