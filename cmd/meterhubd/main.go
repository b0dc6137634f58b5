// MeterHub Core - Energy Metrics Store
//
// This is the main entry point for the MeterHub daemon. MeterHub ingests
// energy and temperature readings over HTTP, deduplicates them into a
// canonical per-instant dataset persisted in SQLite, and fans changes out
// to sensors, WebSocket clients, a retained MQTT announcement, and an
// optional InfluxDB statistics sink.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	_ "github.com/hwaldron/meterhub-core/migrations"

	"github.com/hwaldron/meterhub-core/internal/api"
	"github.com/hwaldron/meterhub-core/internal/export"
	"github.com/hwaldron/meterhub-core/internal/infrastructure/config"
	"github.com/hwaldron/meterhub-core/internal/infrastructure/database"
	"github.com/hwaldron/meterhub-core/internal/infrastructure/influxdb"
	"github.com/hwaldron/meterhub-core/internal/infrastructure/logging"
	"github.com/hwaldron/meterhub-core/internal/infrastructure/mqtt"
	"github.com/hwaldron/meterhub-core/internal/metrics"
	"github.com/hwaldron/meterhub-core/internal/sensors"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting MeterHub",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Wire the metrics instance: repository, store, publisher, coordinator.
	// The repository blob is keyed by instance ID, so resolve it first.
	instanceID := cfg.Service.InstanceID
	if instanceID == "" {
		instanceID = uuid.NewString()
		log.Warn("no instance_id configured, generated one for this run", "instance_id", instanceID)
	}

	repo := metrics.NewSQLiteBlobRepository(db.DB, instanceID)

	var exporter metrics.StatisticsExporter
	if influxClient != nil {
		exporter = export.NewInfluxExporter(influxClient, instanceID, log)
	}

	instance := metrics.NewInstance(instanceID, repo, exporter, log)
	log.Info("metrics store initialised", "instance_id", instance.ID)

	// Sensor registry tracks the latest readings from dataset snapshots
	sensorRegistry := sensors.NewRegistry(log)

	// Background loops: sensor updates, periodic refresh, MQTT announcements
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return ignoreCancel(sensorRegistry.Run(groupCtx, instance.Publisher))
	})

	refresher := metrics.NewRefresher(instance.Store, instance.Publisher, cfg.GetRefreshInterval(), log)
	group.Go(func() error {
		return ignoreCancel(refresher.Run(groupCtx))
	})

	if mqttClient != nil {
		announcer := export.NewSnapshotAnnouncer(mqttClient, instance.ID, log)
		group.Go(func() error {
			return ignoreCancel(announcer.Run(groupCtx, instance.Publisher))
		})
	}

	// Start API server
	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		MaxBodySize: cfg.Ingest.MaxBodySize,
		Logger:      log,
		Instance:    instance,
		Sensors:     sensorRegistry,
		DB:          db,
		MQTT:        mqttClient,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient, server); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	// Publish the initial snapshot so subscribers start from current state
	if snapshot, snapErr := instance.Store.Snapshot(ctx); snapErr != nil {
		log.Warn("initial snapshot failed", "error", snapErr)
	} else {
		instance.Publisher.Notify(snapshot)
		log.Info("initial snapshot published", "records", snapshot.Size())
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal; background loops exit on context cancel
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	instance.Publisher.Close()
	if waitErr := group.Wait(); waitErr != nil {
		log.Error("background loop error", "error", waitErr)
	}

	log.Info("MeterHub stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses METERHUB_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("METERHUB_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// ignoreCancel maps context cancellation to a clean exit so errgroup.Wait
// only reports real failures.
func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// healthCheck verifies all infrastructure connections concurrently.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//   - server: API server to check
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, server *api.Server) error {
	group, checkCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := db.HealthCheck(checkCtx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		return nil
	})

	if mqttClient != nil {
		group.Go(func() error {
			if err := mqttClient.HealthCheck(checkCtx); err != nil {
				return fmt.Errorf("mqtt: %w", err)
			}
			return nil
		})
	}

	if influxClient != nil {
		group.Go(func() error {
			if err := influxClient.HealthCheck(checkCtx); err != nil {
				return fmt.Errorf("influxdb: %w", err)
			}
			return nil
		})
	}

	group.Go(func() error {
		if err := server.HealthCheck(checkCtx); err != nil {
			return fmt.Errorf("api: %w", err)
		}
		return nil
	})

	return group.Wait()
}
