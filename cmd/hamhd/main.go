// hamhd bridges Home Assistant entities onto the Matter ecosystem:
// each configured bridge exposes a filtered, mapped subset of upstream
// entities as a commissionable Matter bridged-device node.
//
// For architecture details, see SPEC_FULL.md and DESIGN.md.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/hamh-bridge/internal/api"
	"github.com/nerrad567/hamh-bridge/internal/dispatcher"
	"github.com/nerrad567/hamh-bridge/internal/infrastructure/config"
	"github.com/nerrad567/hamh-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/hamh-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/hamh-bridge/internal/infrastructure/sqlitehist"
	"github.com/nerrad567/hamh-bridge/internal/infrastructure/tsdb"
	"github.com/nerrad567/hamh-bridge/internal/matterrt"
	"github.com/nerrad567/hamh-bridge/internal/model"
	"github.com/nerrad567/hamh-bridge/internal/queue"
	"github.com/nerrad567/hamh-bridge/internal/store"
	"github.com/nerrad567/hamh-bridge/internal/upstream"
)

// Version information, set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// defaultConfigPath is used when HAMH_CONFIG_FILE is unset — no base
// YAML layer, configuration comes entirely from defaults plus env.
const defaultConfigPath = ""

func main() {
	fmt.Printf("hamhd %s (%s) built %s\n", version, commit, date)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// getConfigPath returns the path of the optional YAML base layer named
// by HAMH_CONFIG_FILE, or defaultConfigPath if unset.
func getConfigPath() string {
	if v := os.Getenv("HAMH_CONFIG_FILE"); v != "" {
		return v
	}
	return defaultConfigPath
}

// run wires every component and blocks until ctx is cancelled.
// Separated from main for testability.
func run(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := logging.New(cfg.Logging, version)
	logger.Info("starting hamhd", "version", version, "commit", commit)

	st := store.New(cfg.Storage.Location)
	q := queue.New(st)
	ha := upstream.New(cfg.HomeAssistant.URL, cfg.HomeAssistant.AccessToken)

	if err := ha.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to home assistant: %w", err)
	}

	hub := api.NewHub(logger)

	dispCfg := dispatcher.Config{
		Store:         st,
		Upstream:      ha,
		StartRuntime:  startMatterRuntime,
		StorageRoot:   cfg.Storage.Location,
		Passcode:      cfg.Matter.Passcode,
		Discriminator: cfg.Matter.Discriminator,
		Notifier:      hub,
		Logger:        logger,
	}

	var historyDB *sqlitehist.DB
	if cfg.StateHistoryEnabled() {
		historyDB, err = sqlitehist.Open(sqlitehist.Config{Path: cfg.Storage.StateHistoryPath})
		if err != nil {
			return fmt.Errorf("opening state history database: %w", err)
		}
		defer historyDB.Close()
		dispCfg.History = historySinkAdapter{historyDB}
		logger.Info("state history enabled", "path", cfg.Storage.StateHistoryPath)
	}

	var metricsClient *tsdb.Client
	if cfg.InfluxDBEnabled() {
		metricsClient, err = tsdb.Connect(ctx, tsdb.Config{
			URL:    cfg.InfluxDB.URL,
			Token:  cfg.InfluxDB.Token,
			Org:    cfg.InfluxDB.Org,
			Bucket: cfg.InfluxDB.Bucket,
		})
		if err != nil {
			return fmt.Errorf("connecting to influxdb: %w", err)
		}
		defer metricsClient.Close()
		dispCfg.Metrics = metricsSinkAdapter{metricsClient}
		logger.Info("influxdb metrics enabled", "url", cfg.InfluxDB.URL)
	}

	disp := dispatcher.New(dispCfg)

	if cfg.MQTTStatestreamEnabled() {
		mqttClient, err := mqtt.Connect(mqtt.Config{
			Host:     cfg.HomeAssistant.MQTTHost,
			Port:     cfg.HomeAssistant.MQTTPort,
			ClientID: "hamhd",
		})
		if err != nil {
			return fmt.Errorf("connecting to mqtt statestream broker: %w", err)
		}
		defer mqttClient.Disconnect()

		if err := upstream.SubscribeStatestream(mqttClient, disp.ApplyEntityState); err != nil {
			return fmt.Errorf("subscribing to mqtt statestream: %w", err)
		}
		logger.Info("mqtt statestream enabled", "host", cfg.HomeAssistant.MQTTHost)
	}

	apiDeps := api.Deps{
		Port:          cfg.API.Port,
		Logger:        logger,
		Store:         st,
		Queue:         q,
		Upstream:      ha,
		Version:       version,
		Hub:           hub,
		Passcode:      cfg.Matter.Passcode,
		Discriminator: cfg.Matter.Discriminator,
	}
	if historyDB != nil {
		apiDeps.History = historyDB
	}

	apiServer, err := api.New(apiDeps)
	if err != nil {
		return fmt.Errorf("building api server: %w", err)
	}

	disp.Start(ctx)
	defer disp.Stop()

	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting api server: %w", err)
	}
	defer func() {
		if err := apiServer.Close(); err != nil {
			logger.Error("api server shutdown error", "error", err)
		}
	}()

	logger.Info("hamhd started", "port", cfg.API.Port)
	<-ctx.Done()
	logger.Info("shutdown signal received, cleaning up")

	return nil
}

// startMatterRuntime adapts matterrt.Start to dispatcher.RuntimeStarter.
// Go requires an exact signature match for function-value assignment,
// and *matterrt.Runtime does not implicitly convert to matterrt.Handle
// in a bare function value the way it does in a return statement.
func startMatterRuntime(ctx context.Context, cfg matterrt.Config) (matterrt.Handle, error) {
	return matterrt.Start(ctx, cfg)
}

// metricsSinkAdapter adapts tsdb.Client's fire-and-forget batched
// writes to dispatcher.MetricsSink's error-returning shape. The
// underlying writes are asynchronous and always accepted locally, so
// there is never an error to surface here.
type metricsSinkAdapter struct {
	*tsdb.Client
}

func (m metricsSinkAdapter) WriteOperationMetric(op model.BridgeOperation) error {
	m.Client.WriteOperationMetric(op)
	return nil
}

func (m metricsSinkAdapter) WriteQueueDepth(depth int) error {
	m.Client.WriteQueueDepth(depth)
	return nil
}

// historySinkAdapter adapts sqlitehist.DB's context-taking Record to
// dispatcher.HistorySink's context-free shape.
type historySinkAdapter struct {
	*sqlitehist.DB
}

func (h historySinkAdapter) Record(rec model.DeviceStateRecord) error {
	return h.DB.Record(context.Background(), rec)
}
