package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/nerrad567/gray-logic-automation/internal/api"
	"github.com/nerrad567/gray-logic-automation/internal/audit"
	"github.com/nerrad567/gray-logic-automation/internal/automation"
	"github.com/nerrad567/gray-logic-automation/internal/bridges/modulebus"
	"github.com/nerrad567/gray-logic-automation/internal/device"
	"github.com/nerrad567/gray-logic-automation/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-automation/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-automation/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-automation/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-automation/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-automation/internal/store"
	"github.com/nerrad567/gray-logic-automation/internal/workerpool"
	"github.com/nerrad567/gray-logic-automation/internal/workflow"
)

const auditBuffer = 1024

func newServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the automation hub (default)",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd.String("config"))
			if err != nil {
				return err
			}
			return serve(ctx, cfg)
		},
	}
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*database.DB, error) {
	db, err := database.Open(database.Config{
		Driver:      cfg.Driver,
		Path:        cfg.Path,
		DSN:         cfg.DSN,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

// serve wires every component and blocks until ctx is cancelled.
// Deferred cleanups run in reverse start order.
func serve(ctx context.Context, cfg *config.Config) error {
	log := logging.New(cfg.Logging, version)
	log.Info("starting Gray Logic automation hub",
		"version", version,
		"commit", commit,
		"build_date", date,
		"site", cfg.Site.ID,
	)

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database ready", "driver", db.Driver())

	docs := store.New(db)
	devices := device.NewRegistry(store.NewCollection[*device.Device](docs, store.KindDevice))
	devices.SetLogger(log.Component("device"))
	if err := devices.Load(ctx); err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}
	log.Info("device registry loaded", "devices", devices.Count())

	interp := workflow.New(
		workflow.WithLogger(log.Component("workflow")),
		workflow.WithDefaultWaitTimeout(cfg.WaitTimeout()),
	)
	registry, err := automation.NewRegistry(automation.Deps{
		Actions:            store.NewCollection[*automation.Action](docs, store.KindAction),
		Scenes:             store.NewCollection[*automation.Scene](docs, store.KindScene),
		Devices:            devices,
		Interpreter:        interp,
		Pool:               workerpool.New(cfg.Automation.WorkerPoolSize),
		Location:           cfg.Location(),
		Logger:             log.Component("automation"),
		SeedStandardScenes: cfg.Automation.SeedStandardScenes,
	})
	if err != nil {
		return fmt.Errorf("creating automation registry: %w", err)
	}
	auditRepo := audit.NewSQLRepository(db)
	recorder := audit.NewRecorder(auditRepo, log.Component("audit"), auditBuffer)
	auditCtx, stopAudit := context.WithCancel(context.Background())
	auditDone := make(chan struct{})
	go func() {
		recorder.Run(auditCtx)
		close(auditDone)
	}()
	defer func() {
		stopAudit()
		<-auditDone
	}()
	registry.AddSink(recorder)

	var influx *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influx, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influx.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influx.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		registry.AddSink(runMetrics{w: influx})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	// The registry must stop before the sinks and the MQTT client close.
	stopRegistry := sync.OnceFunc(func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		log.Info("stopping automation registry")
		if shutdownErr := registry.Shutdown(sctx); shutdownErr != nil {
			log.Warn("running actions did not finish in time", "error", shutdownErr)
		}
	})
	defer stopRegistry()

	if err := registry.Load(ctx); err != nil {
		return fmt.Errorf("loading actions: %w", err)
	}
	log.Info("automation registry loaded",
		"actions", len(registry.GetActions()),
		"scenes", len(registry.GetScenes()),
	)

	// Retained state reports can fire device triggers as soon as the bus
	// starts, so actions are wired first.
	var (
		mqttClient *mqtt.Client
		bridge     *modulebus.Bridge
	)
	if cfg.MQTT.Enabled {
		mqttClient, bridge, err = startModuleBus(ctx, cfg, devices, registry, influx, log)
		if err != nil {
			return err
		}
		defer func() {
			bridge.Stop()
			stopRegistry()
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
	} else {
		log.Info("MQTT disabled, device commands stay local")
	}

	if cfg.API.Enabled {
		srv, err := newAPIServer(cfg, log, registry, devices, bridge, auditRepo, mqttClient, db)
		if err != nil {
			return err
		}
		registry.AddSink(srv.Hub())
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")
	return nil
}

// startModuleBus connects to the broker and attaches the bridge as the
// executor of every device.
func startModuleBus(
	ctx context.Context,
	cfg *config.Config,
	devices *device.Registry,
	registry *automation.Registry,
	influx *influxdb.Client,
	log *logging.Logger,
) (*mqtt.Client, *modulebus.Bridge, error) {
	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log.Component("mqtt"))
	client.SetOnConnect(func() { log.Info("MQTT connected") })
	client.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })

	var wiring modulebus.Wiring = registry
	if influx != nil {
		wiring = moduleHealthWiring{Wiring: registry, w: influx}
	}

	// #nosec G115 -- config validation bounds qos to 0..2
	bridge, err := modulebus.New(modulebus.Options{
		Client:  client,
		Devices: devices,
		Wiring:  wiring,
		QoS:     byte(cfg.MQTT.QoS),
		Source:  cfg.MQTT.Broker.ClientID,
		Logger:  log.Component("modulebus"),
	})
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("creating module bus: %w", err)
	}
	if err := bridge.Start(ctx); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("starting module bus: %w", err)
	}
	devices.SetExecutor(bridge)

	log.Info("module bus started",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)
	return client, bridge, nil
}

func newAPIServer(
	cfg *config.Config,
	log *logging.Logger,
	registry *automation.Registry,
	devices *device.Registry,
	bridge *modulebus.Bridge,
	auditRepo audit.Repository,
	mqttClient *mqtt.Client,
	db *database.DB,
) (*api.Server, error) {
	deps := api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Logger:     log.Component("api"),
		Automation: registry,
		Devices:    devices,
		Audit:      auditRepo,
		DB:         db,
		Version:    version,
	}
	// Typed nil pointers must not reach the interface fields.
	if bridge != nil {
		deps.Modules = bridge
	}
	if mqttClient != nil {
		deps.MQTT = mqttClient
	}
	srv, err := api.New(deps)
	if err != nil {
		return nil, fmt.Errorf("creating API server: %w", err)
	}
	return srv, nil
}

// runMetricsWriter is satisfied by *influxdb.Client.
type runMetricsWriter interface {
	WriteActionRun(run influxdb.ActionRun)
	WriteModuleHealth(moduleID string, online bool, ts time.Time)
}

// runMetrics writes finished and dropped runs. The influx write API
// batches in memory, so HandleEvent does not block.
type runMetrics struct {
	w runMetricsWriter
}

func (m runMetrics) HandleEvent(e automation.Event) {
	var outcome string
	switch e.Type {
	case automation.EventActionCompleted:
		outcome = influxdb.OutcomeCompleted
	case automation.EventActionDropped:
		outcome = influxdb.OutcomeDropped
	default:
		return
	}
	m.w.WriteActionRun(influxdb.ActionRun{
		ActionID:    e.ActionID,
		ActionName:  e.ActionName,
		TriggerType: e.TriggerType,
		Outcome:     outcome,
		Reason:      e.Reason,
		Nodes:       e.Nodes,
		Failures:    e.Failures,
		Duration:    e.Duration,
		Time:        e.Time,
	})
}

// moduleHealthWiring records module transitions before passing them on.
type moduleHealthWiring struct {
	modulebus.Wiring
	w runMetricsWriter
}

func (m moduleHealthWiring) AddDevicesForModule(moduleID string) int {
	m.w.WriteModuleHealth(moduleID, true, time.Now())
	return m.Wiring.AddDevicesForModule(moduleID)
}

func (m moduleHealthWiring) RemoveDeviceForModule(moduleID string) int {
	m.w.WriteModuleHealth(moduleID, false, time.Now())
	return m.Wiring.RemoveDeviceForModule(moduleID)
}

