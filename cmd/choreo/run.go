package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/AaronLay10/Choreo/internal/api"
	"github.com/AaronLay10/Choreo/internal/config"
	"github.com/AaronLay10/Choreo/internal/events"
	"github.com/AaronLay10/Choreo/internal/host"
	"github.com/AaronLay10/Choreo/internal/level"
	"github.com/AaronLay10/Choreo/internal/mqtt"
	"github.com/AaronLay10/Choreo/internal/orchestrator"
	"github.com/AaronLay10/Choreo/internal/state"
	"github.com/AaronLay10/Choreo/internal/storage"
	"github.com/AaronLay10/Choreo/internal/version"
)

const (
	healthCheckInterval = 5 * time.Second
	alertCheckInterval  = 5 * time.Second
)

var (
	flagWatch  bool
	flagNoMQTT bool
)

var runCmd = &cobra.Command{
	Use:   "run <level.yaml>",
	Short: "Run a level until interrupted",
	Long: `Load a level, start it and serve the operator API.

Collaborators attach over MQTT when CHOREO_MQTT_URL is set. Events are
journaled when a journal driver is configured.

With --watch the level file is reloaded on save: the running attempt is
discarded and the new level starts from its first phase.

Examples:
  choreo run levels/forest.yaml
  choreo run levels/forest.yaml --watch --no-mqtt`,
	Args: cobra.ExactArgs(1),
	RunE: runLevel,
}

func init() {
	runCmd.Flags().BoolVar(&flagWatch, "watch", false, "Reload the level when the file changes")
	runCmd.Flags().BoolVar(&flagNoMQTT, "no-mqtt", false, "Do not connect to the MQTT broker")
}

// engine holds what survives a level reload.
type engine struct {
	logger    *log.Logger
	runner    *host.Runner
	publisher *mqtt.Publisher
}

// build instantiates lv with the publisher attached to the fresh store.
func (e *engine) build(lv *level.Level) (*orchestrator.Director, *level.Plan, error) {
	var attach func(*state.Store)
	if e.publisher != nil {
		attach = func(s *state.Store) { e.publisher.Attach(s) }
	}
	return level.Instantiate(lv, attach, orchestrator.WithLogger(e.logger.WithPrefix("director")))
}

// start begins a new attempt. Must run on the tick goroutine, or before the
// runner is started.
func (e *engine) start(d *orchestrator.Director, plan *level.Plan) {
	id, err := storage.NewAttemptID()
	if err != nil {
		e.logger.Warn("no attempt id", "err", err)
	}
	events.SetAttempt(id)
	d.Start(plan.LeadIn)
}

// reload swaps in lv. It runs on the tick goroutine as a posted command.
func (e *engine) reload(lv *level.Level, old *orchestrator.Director) {
	d, plan, err := e.build(lv)
	if err != nil {
		e.logger.Error("reload rejected", "err", err)
		events.Emit("error", "system.error", "level reload rejected", map[string]interface{}{"error": err.Error()})
		return
	}

	from := ""
	if cur := old.Current(); cur != nil {
		from = cur.Name()
	}
	if old.LevelID() != lv.Info.ID {
		e.logger.Warn("level id changed on reload; journal keeps the first level id", "was", old.LevelID(), "now", lv.Info.ID)
	}

	e.runner.Replace(d)
	events.Emit("info", "level.reloaded", "", map[string]interface{}{
		"level_id":   lv.Info.ID,
		"from_phase": from,
	})
	e.logger.Info("level reloaded", "level", lv.Info.ID, "from_phase", from)
	e.start(d, plan)
}

// watch loads the level on every change and posts the swap to the tick
// goroutine. Files that fail to load leave the running level alone.
func (e *engine) watch(ctx context.Context, w *level.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			e.logger.Warn("watch error", "err", err)
		case path, ok := <-w.Changes:
			if !ok {
				return
			}
			lv, err := level.Load(path)
			if err != nil {
				e.logger.Error("reload rejected", "path", path, "err", err)
				events.Emit("error", "system.error", "level reload rejected", map[string]interface{}{
					"path":  path,
					"error": err.Error(),
				})
				continue
			}
			e.runner.Post(func(old *orchestrator.Director) { e.reload(lv, old) })
		}
	}
}

func roleSpecs(cfg *config.EngineConfig) map[string]mqtt.RoleSpec {
	roles := make(map[string]mqtt.RoleSpec, len(cfg.Roles))
	for name, r := range cfg.Roles {
		roles[name] = mqtt.RoleSpec{Required: r.Required, Outputs: r.Outputs}
	}
	return roles
}

func runLevel(cmd *cobra.Command, args []string) error {
	path := args[0]
	cfg, env, err := loadConfig()
	if err != nil {
		return err
	}
	lv, err := level.Load(path)
	if err != nil {
		return fmt.Errorf("%s:\n%w", path, err)
	}

	logger := log.Default()
	api.SetLogger(logger.WithPrefix("api"))
	e := &engine{
		logger: logger,
		runner: host.NewRunner(nil, cfg.TickInterval()),
	}

	journal, err := openJournal(cfg, env, lv.Info.ID)
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	if journal != nil {
		events.SetJournal(journal)
		defer journal.Close()
		api.SetJournalOptional(false)
		api.SetJournalConnected(true)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hostname, _ := os.Hostname()
	name := cfg.Engine.Name
	if name == "" {
		name = hostname
	}
	events.Emit("info", "system.startup", "engine starting", map[string]interface{}{
		"engine":   name,
		"hostname": hostname,
		"pid":      os.Getpid(),
		"version":  version.Version,
		"level_id": lv.Info.ID,
	})

	if !flagNoMQTT && env.MQTTURL != "" {
		topics := mqtt.Topics{Prefix: cfg.MQTT.Prefix}
		registry := mqtt.NewCollaboratorRegistry()
		monitor := mqtt.NewMonitor(roleSpecs(cfg), registry, cfg.MQTT.HeartbeatTolerance)

		var bridge *mqtt.Bridge
		client := mqtt.NewClient(env.MQTTURL, env.MQTTClientID, func() {
			bridge.ClearSubscriptions()
			if err := bridge.SubscribeAll(); err != nil {
				logger.Error("subscribe failed", "err", err)
			}
		})
		bridge = mqtt.NewBridge(client, e.runner, monitor, topics)
		e.publisher = mqtt.NewPublisher(client, topics, registry)

		api.SetMQTTOptional(false)
		api.SetMQTTProbe(client.IsConnected)
		api.SetMQTTConnected(client.Start())
		defer client.Disconnect()

		monitor.Start(healthCheckInterval)
		defer monitor.Stop()

		if missing := mqtt.MissingRoles(roleSpecs(cfg), registry); len(missing) > 0 {
			logger.Info("waiting for collaborators", "roles", missing)
		}
	}

	d, plan, err := e.build(lv)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	e.runner.Replace(d)
	e.start(d, plan)

	if err := api.InitAuth(); err != nil {
		return err
	}
	api.InitTLS(env.TLSCert, env.TLSKey)
	api.InitMetrics()
	api.SetEngineName(name)
	api.InitAlerts(api.AlertConfig{
		WebhookURL:             env.AlertWebhookURL,
		MQTTDisconnectDelay:    env.MQTTAlertDelay,
		JournalDisconnectDelay: env.JournalAlertDelay,
		StallAfter:             env.StallAfter,
	})
	api.SetController(e.runner)
	api.SetDirectorReady(true)
	api.StartAlertMonitor(ctx, alertCheckInterval)

	if flagWatch {
		w, err := level.Watch(path)
		if err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		defer w.Close()
		go e.watch(ctx, w)
		logger.Info("watching level", "path", path)
	}

	errCh := make(chan error, 2)
	go func() { errCh <- api.Serve(ctx, cfg.ListenAddr()) }()
	go func() { errCh <- e.runner.Run(ctx) }()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			runErr = err
		}
		stop()
	}

	api.SetDirectorReady(false)
	events.Emit("info", "system.shutdown", "engine stopping", map[string]interface{}{"engine": name})
	events.CloseAllSubscribers()
	return runErr
}
