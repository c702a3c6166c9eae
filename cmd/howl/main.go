// HOWL - Home Assistant Ontology Web Language exporter
//
// This is the main entry point for the HOWL exporter. HOWL connects to
// a Home Assistant instance, walks its device, entity and automation
// registries, and emits a SAREF-aligned RDF knowledge graph in Turtle.
//
// It runs in two modes:
//   - One-shot (default): perform a single export and write the graph
//     to stdout or a file.
//   - Server (--serve): expose the export API over HTTP and MQTT and
//     keep a history of runs in SQLite.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/foldr-org/howl/migrations"

	"github.com/foldr-org/howl/internal/api"
	"github.com/foldr-org/howl/internal/convert"
	"github.com/foldr-org/howl/internal/export"
	"github.com/foldr-org/howl/internal/hass"
	"github.com/foldr-org/howl/internal/infrastructure/config"
	"github.com/foldr-org/howl/internal/infrastructure/database"
	"github.com/foldr-org/howl/internal/infrastructure/influxdb"
	"github.com/foldr-org/howl/internal/infrastructure/logging"
	"github.com/foldr-org/howl/internal/infrastructure/mqtt"
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

// options holds the parsed command-line flags.
type options struct {
	configPath string
	serve      bool
	metamodel  bool
	output     string
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "path to config file (default: HOWL_CONFIG or configs/config.yaml)")
	flag.BoolVar(&opts.serve, "serve", false, "run as a long-lived export service")
	flag.BoolVar(&opts.metamodel, "metamodel", false, "export the vocabulary document instead of the installation")
	flag.StringVar(&opts.output, "output", "", "one-shot mode: write the graph to this file instead of stdout")
	flag.Parse()

	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context, opts options) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting HOWL",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath(opts.configPath)
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
	log.Info("database migrations complete")

	// Connect to Home Assistant
	haClient, err := hass.New(hass.Config{
		URL:         cfg.HomeAssistant.URL,
		Token:       cfg.HomeAssistant.Token,
		CACertFile:  cfg.HomeAssistant.CACertFile,
		InsecureTLS: cfg.HomeAssistant.InsecureTLS,
		Timeout:     cfg.GetHassTimeout(),
	})
	if err != nil {
		return fmt.Errorf("creating Home Assistant client: %w", err)
	}
	if err := haClient.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to Home Assistant: %w", err)
	}
	defer func() {
		if closeErr := haClient.Close(); closeErr != nil {
			log.Error("error closing Home Assistant connection", "error", closeErr)
		}
	}()
	log.Info("Home Assistant connected", "url", cfg.HomeAssistant.URL)

	// Build the export runner
	repo := export.NewSQLiteRepository(db.DB)
	runner := export.NewRunner(repo, haClient, log, convert.Options{
		Namespace:      cfg.Export.Namespace,
		MasterURL:      cfg.Export.MasterURL,
		PrivacyEnabled: cfg.Export.Privacy.Enabled,
		PrivacyAllow:   cfg.Export.Privacy.Allow,
	})

	if opts.serve {
		return serve(ctx, cfg, log, db, haClient, runner, repo)
	}

	return exportOnce(ctx, log, runner, opts)
}

// exportOnce performs a single export run and writes the graph.
func exportOnce(ctx context.Context, log *logging.Logger, runner *export.Runner, opts options) error {
	kind := export.KindInstances
	if opts.metamodel {
		kind = export.KindSchema
	}

	run, err := runner.Start(ctx, kind)
	if err != nil {
		return fmt.Errorf("starting export: %w", err)
	}
	if run.Status != export.StatusCompleted {
		return fmt.Errorf("export failed: %s", run.Error)
	}

	if opts.output == "" || opts.output == "-" {
		fmt.Print(run.Graph)
	} else {
		if err := os.WriteFile(opts.output, []byte(run.Graph), 0600); err != nil {
			return fmt.Errorf("writing graph: %w", err)
		}
		log.Info("graph written", "path", opts.output)
	}

	log.Info("export complete",
		"run", run.ID,
		"kind", string(run.Kind),
		"devices", run.Stats.Devices,
		"entities", run.Stats.Entities,
		"automations", run.Stats.Automations,
		"triples", run.Stats.Triples,
	)
	return nil
}

// exportCommand is the payload accepted on the export command topic.
type exportCommand struct {
	Kind string `json:"kind"`
}

// serve runs the long-lived export service: HTTP API, MQTT announcements
// and commands, and optional InfluxDB run statistics.
func serve(ctx context.Context, cfg *config.Config, log *logging.Logger, db *database.DB, haClient *hass.Client, runner *export.Runner, repo export.Repository) error {
	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		var err error
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
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		qos := byte(cfg.MQTT.QoS)
		runner.SetPublisher(mqttClient, mqtt.Topics{}.Exports(), qos)

		// Other systems on the broker can request a run.
		err = mqttClient.Subscribe(mqtt.Topics{}.ExportCommand(), qos, func(_ string, payload []byte) error {
			var cmd exportCommand
			if len(payload) > 0 {
				if err := json.Unmarshal(payload, &cmd); err != nil {
					return fmt.Errorf("parsing export command: %w", err)
				}
			}
			kind := export.KindInstances
			if cmd.Kind == string(export.KindSchema) {
				kind = export.KindSchema
			}
			id, err := runner.Launch(ctx, kind)
			if err != nil {
				return fmt.Errorf("launching commanded export: %w", err)
			}
			log.Info("export commanded over MQTT", "run", id, "kind", string(kind))
			return nil
		})
		if err != nil {
			return fmt.Errorf("subscribing to export commands: %w", err)
		}
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		var err error
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
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		runner.SetMetrics(influxClient)
		haClient.SetLatencyObserver(influxClient.WriteSourceLatency)
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start the HTTP API
	server, err := api.New(api.Deps{
		Config:   cfg.API,
		Security: cfg.Security,
		Logger:   log,
		Runner:   runner,
		Repo:     repo,
		Version:  version,
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
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

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
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Home Assistant, database (in run)

	log.Info("HOWL stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Flag wins over the HOWL_CONFIG environment variable, then the default.
func getConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if path := os.Getenv("HOWL_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
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
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.HealthCheck(checkCtx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(checkCtx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(checkCtx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
