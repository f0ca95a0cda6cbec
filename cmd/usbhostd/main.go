// usbhostd - USB host daemon
//
// This is the main entry point for the USB host daemon. It watches the
// bus for device arrivals and removals, maintains an identity-keyed
// registry of present devices, and exposes the registry over:
//   - HTTP REST API (inspect, open, configure, reset, clear-halt)
//   - MQTT announcements (arrival/removal events, online status)
//   - InfluxDB telemetry (plug events, registry gauges)
//   - SQLite event history (audit trail with retention pruning)
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/usb-host-core/migrations"

	"github.com/nerrad567/usb-host-core/internal/announce"
	"github.com/nerrad567/usb-host-core/internal/api"
	"github.com/nerrad567/usb-host-core/internal/infrastructure/config"
	"github.com/nerrad567/usb-host-core/internal/infrastructure/database"
	"github.com/nerrad567/usb-host-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/usb-host-core/internal/infrastructure/logging"
	"github.com/nerrad567/usb-host-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/usb-host-core/internal/telemetry"
	"github.com/nerrad567/usb-host-core/internal/usb"
	"github.com/nerrad567/usb-host-core/internal/usb/libusb"
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

// registryGaugeInterval is how often registry size gauges are written to
// InfluxDB when telemetry is enabled.
const registryGaugeInterval = 60 * time.Second

// pruneInterval is how often the event history retention window is
// enforced.
const pruneInterval = 12 * time.Hour

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
	// Remote shutdown commands cancel this context too
	ctx, shutdown := context.WithCancel(ctx)
	defer shutdown()

	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting usbhostd",
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
	db, err := database.Open(database.Config{
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
	applied, pending, statusErr := db.GetMigrationStatus(ctx)
	if statusErr != nil {
		return fmt.Errorf("checking migration status: %w", statusErr)
	}
	log.Info("database migrations complete", "applied", len(applied), "pending", len(pending))

	// Host options accumulate as sinks come online
	opts := []usb.Option{usb.WithLogger(log)}

	// Event history (optional)
	var history *usb.SQLiteEventHistory
	if cfg.History.Enabled {
		history = usb.NewSQLiteEventHistory(db.DB)
		opts = append(opts, usb.WithSink(usb.NewHistorySink(history, log)))
		log.Info("event history enabled", "retention_days", cfg.History.RetentionDays)
	} else {
		log.Info("event history disabled")
	}

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
		mqttClient.SetLogger(log.Component("mqtt"))

		announcer := announce.New(mqttClient, byte(cfg.MQTT.QoS), log.Component("announce"))
		opts = append(opts, usb.WithSink(announcer))

		// Remote shutdown: any message on the shutdown topic triggers a
		// graceful stop, same path as SIGTERM
		shutdownTopic := mqtt.Topics{}.SystemShutdown()
		err = mqttClient.Subscribe(shutdownTopic, byte(cfg.MQTT.QoS), func(topic string, payload []byte) error {
			log.Info("remote shutdown requested", "topic", topic)
			shutdown()
			return nil
		})
		if err != nil {
			return fmt.Errorf("subscribing to shutdown topic: %w", err)
		}
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
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

		opts = append(opts, usb.WithSink(telemetry.New(influxClient)))
	} else {
		log.Info("InfluxDB disabled")
	}

	// Initialise the device layer
	layer, err := libusb.New(libusb.Options{
		Debug:  cfg.USB.Debug,
		Logger: log,
	})
	if err != nil {
		return fmt.Errorf("initialising usb layer: %w", err)
	}
	defer func() {
		log.Info("shutting down usb layer")
		if closeErr := layer.Shutdown(); closeErr != nil {
			log.Error("error shutting down usb layer", "error", closeErr)
		}
	}()

	// Start the host registry
	host, err := usb.New(layer, opts...)
	if err != nil {
		return fmt.Errorf("starting usb host: %w", err)
	}
	defer func() {
		log.Info("stopping usb host")
		host.Close()
	}()
	log.Info("usb host started",
		"devices", host.Stats().Devices,
		"notifications", host.NotificationsSupported(),
	)

	// Start the API server
	apiServer, err := api.New(api.Deps{
		Config:  cfg.API,
		USB:     cfg.USB,
		Logger:  log,
		Host:    host,
		History: historyOrNil(history),
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Background maintenance loops
	if history != nil && cfg.History.RetentionDays > 0 {
		go pruneLoop(ctx, history, cfg.History.RetentionDays, log)
	}
	if influxClient != nil {
		go gaugeLoop(ctx, host, influxClient)
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. USB host, then the device layer
	// 3. InfluxDB (if enabled)
	// 4. MQTT (if enabled)
	// 5. Database

	log.Info("usbhostd stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses USBHOST_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("USBHOST_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// historyOrNil avoids handing the API a typed-nil interface when event
// history is disabled.
func historyOrNil(history *usb.SQLiteEventHistory) usb.EventHistory {
	if history == nil {
		return nil
	}
	return history
}

// pruneLoop enforces the event history retention window. It runs once at
// startup and then periodically until the context is cancelled.
func pruneLoop(ctx context.Context, history *usb.SQLiteEventHistory, retentionDays int, log *logging.Logger) {
	retention := time.Duration(retentionDays) * 24 * time.Hour

	prune := func() {
		cutoff := time.Now().UTC().Add(-retention)
		n, err := history.Prune(ctx, cutoff)
		if err != nil {
			log.Error("event history prune failed", "error", err)
			return
		}
		if n > 0 {
			log.Info("event history pruned", "removed", n, "cutoff", cutoff)
		}
	}

	prune()

	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}

// gaugeLoop periodically writes registry size gauges to InfluxDB.
func gaugeLoop(ctx context.Context, host *usb.Host, influxClient *influxdb.Client) {
	ticker := time.NewTicker(registryGaugeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := host.Stats()
			influxClient.WriteRegistryGauge(stats.Devices, stats.ByState)
		}
	}
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
