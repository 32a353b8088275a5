package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/flemzord/mnemo/internal/config"
	"github.com/flemzord/mnemo/internal/core"
	"github.com/flemzord/mnemo/internal/cron"
	"github.com/flemzord/mnemo/internal/embedding"
	"github.com/flemzord/mnemo/internal/gateway"
	"github.com/flemzord/mnemo/internal/logging"
	"github.com/flemzord/mnemo/internal/memory"
	"github.com/flemzord/mnemo/internal/notify"
	"github.com/flemzord/mnemo/internal/reminder"
	"github.com/flemzord/mnemo/internal/store"
	"github.com/flemzord/mnemo/internal/telemetry"

	// Registers config.DefaultStoreModule.
	_ "github.com/flemzord/mnemo/modules/store/sqlite"
)

// ServiceDimensions publishes the configured embedding length so the
// store can reject vectors of any other length.
const ServiceDimensions = "embedding.dimensions"

// Options tunes Open.
type Options struct {
	// Logger overrides the logger built from the log section.
	Logger *slog.Logger

	// Serve loads every configured module (the HTTP gateway among them)
	// and prepares the background scheduler and notification hub. Without
	// it only the store is loaded, which suits one-shot CLI commands.
	Serve bool
}

// Runtime is a wired mnemo process: store, embedding codec, reminder
// engine and memory service, plus the daemon pieces when serving.
type Runtime struct {
	Config   *config.Config
	Logger   *slog.Logger
	App      *core.App
	Codec    *embedding.Codec
	Engine   *reminder.Engine
	Memories *memory.Service
	Metrics  *telemetry.Metrics

	// Set only when opened with Serve.
	Clock     *cron.Clock
	Scheduler *cron.Scheduler
	Hub       *notify.Hub

	level           *slog.LevelVar
	shutdownTracing telemetry.ShutdownFunc
	started         bool
	closed          bool
}

// Open wires a Runtime from cfg. The store module (store.sqlite unless
// the modules section names another) is always loaded; Close releases it.
func Open(cfg *config.Config, opts Options) (*Runtime, error) {
	logger := opts.Logger
	var level *slog.LevelVar
	if logger == nil {
		var err error
		level = new(slog.LevelVar)
		logger, err = logging.New(logging.Options{
			Level:    cfg.Log.Level,
			Format:   cfg.Log.Format,
			Output:   os.Stderr,
			Secrets:  secretsOf(cfg),
			LevelVar: level,
		})
		if err != nil {
			return nil, err
		}
	}

	appCtx := core.NewAppContext(logger, cfg.DataDir).WithModuleConfigs(cfg.Modules)
	appCtx.RegisterService(ServiceDimensions, cfg.Embedding.Dimensions)
	appCtx.RegisterService(gateway.ServiceDefaultOwner, cfg.Reminders.DefaultOwner)

	rt := &Runtime{
		Config:  cfg,
		Logger:  logger,
		App:     core.NewApp(appCtx),
		Metrics: telemetry.NewMetrics(),
		level:   level,
	}

	storeID := cfg.StoreModule()
	if err := rt.App.LoadModules([]string{storeID}); err != nil {
		return nil, err
	}
	if err := rt.wire(appCtx, opts.Serve); err != nil {
		rt.App.Unload()
		return nil, err
	}

	if opts.Serve {
		rt.App.AppendModule(&runtimeModule{rt: rt})
		rest := slices.DeleteFunc(config.Resolve(cfg), func(id string) bool { return id == storeID })
		if err := rt.App.LoadModules(rest); err != nil {
			rt.Codec.Close()
			return nil, err
		}
	}
	return rt, nil
}

func (rt *Runtime) wire(appCtx *core.AppContext, serve bool) error {
	cfg := rt.Config

	reminders, ok := core.Service[reminder.Store](appCtx, store.ReminderService)
	if !ok {
		return fmt.Errorf("app: no reminder store registered under %q", store.ReminderService)
	}
	memories, ok := core.Service[memory.Store](appCtx, store.MemoryService)
	if !ok {
		return fmt.Errorf("app: no memory store registered under %q", store.MemoryService)
	}

	rt.Codec = newCodec(cfg.Embedding, rt.Logger, rt.Metrics)

	svc, err := memory.NewService(memory.ServiceConfig{
		Store:     memories,
		Embedder:  rt.Codec,
		Logger:    rt.Logger,
		TopK:      cfg.Recall.TopK,
		Threshold: cfg.Recall.Threshold,
	})
	if err != nil {
		rt.Codec.Close()
		return err
	}
	rt.Memories = svc

	sinks := []notify.Sink{notify.LogSink{Logger: rt.Logger}}
	var clock reminder.Clock = nopClock{}
	if serve {
		rt.Clock = cron.NewClock(rt.Logger)
		rt.Hub = notify.NewHub(notify.HubConfig{Logger: rt.Logger})
		rt.Scheduler = cron.NewScheduler(rt.Logger)
		sinks = append(sinks, rt.Hub)
		clock = rt.Clock
	}
	sink := notify.Multi(sinks...)

	engine, err := reminder.NewEngine(reminder.Config{
		Store:    reminders,
		Clock:    clock,
		Notifier: sink,
		Speaker:  sink,
		Observer: rt.Metrics,
		Logger:   rt.Logger,
		Snooze:   cfg.Reminders.Snooze,
	})
	if err != nil {
		rt.Codec.Close()
		return err
	}
	rt.Engine = engine

	if serve {
		rt.Clock.Handle(func(ctx context.Context, a cron.Alarm) {
			engine.HandleFire(ctx, a.ID, a.At)
		})
		rt.Hub.SetActions(engine)

		jobs := []cron.Job{
			&cron.ReminderSweepJob{Engine: engine, Logger: rt.Logger, ScheduleExpr: cfg.Reminders.SweepSchedule},
			&cron.EmbeddingBackfillJob{Memories: svc, Logger: rt.Logger, ScheduleExpr: cfg.Reminders.BackfillSchedule},
		}
		for _, j := range jobs {
			if err := rt.Scheduler.RegisterJob(j); err != nil {
				rt.Codec.Close()
				return err
			}
		}
		appCtx.RegisterService(gateway.ServiceNotifications, rt.Hub)
	}

	appCtx.RegisterService(gateway.ServiceReminders, engine)
	appCtx.RegisterService(gateway.ServiceMemories, svc)
	appCtx.RegisterService(gateway.ServiceEmbedding, rt.Codec)
	appCtx.RegisterService(gateway.ServiceMetrics, rt.Metrics)
	return nil
}

// Start installs tracing and starts every module: the runtime module
// (clock, hub, recovery, scheduler) before the gateway.
func (rt *Runtime) Start(ctx context.Context) error {
	shutdown, err := telemetry.SetupTracing(ctx, rt.Config.Telemetry.Tracing())
	if err != nil {
		return err
	}
	rt.shutdownTracing = shutdown

	if err := rt.App.Start(); err != nil {
		rt.closed = true // App.Start already stopped what it started.
		rt.Codec.Close()
		_ = shutdown(context.Background())
		return err
	}
	rt.started = true
	return nil
}

// Close stops started modules, or unloads them when Start never ran,
// and flushes traces.
func (rt *Runtime) Close() error {
	if rt.closed {
		return nil
	}
	rt.closed = true

	if rt.started {
		rt.App.Stop()
	} else {
		rt.App.Unload()
	}
	rt.Codec.Close()

	if rt.shutdownTracing != nil {
		if err := rt.shutdownTracing(context.Background()); err != nil {
			return fmt.Errorf("app: flush traces: %w", err)
		}
	}
	return nil
}

// Apply takes the hot-reloadable parts of cfg into use: the log level
// and the recall defaults. Settings that need a restart are reported and
// otherwise ignored.
func (rt *Runtime) Apply(cfg *config.Config) error {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	if rt.level != nil {
		rt.level.Set(level)
	}
	rt.Memories.SetDefaults(cfg.Recall.TopK, cfg.Recall.MinSimilarity())

	if pending := restartRequired(rt.Config, cfg); len(pending) > 0 {
		rt.Logger.Warn("configuration changes need a restart", "settings", pending)
	}
	rt.Logger.Debug("configuration applied",
		"log_level", cfg.Log.Level,
		"top_k", cfg.Recall.TopK,
		"threshold", cfg.Recall.MinSimilarity(),
	)
	return nil
}

// restartRequired names the settings of next that differ from running
// and cannot change in place.
func restartRequired(running, next *config.Config) []string {
	var out []string
	if running.DataDir != next.DataDir {
		out = append(out, "data_dir")
	}
	if running.Log.Format != next.Log.Format {
		out = append(out, "log.format")
	}
	re, ne := running.Embedding, next.Embedding
	if re.BaseURL != ne.BaseURL || re.Model != ne.Model || re.Dimensions != ne.Dimensions {
		out = append(out, "embedding")
	}
	if running.Reminders.Snooze != next.Reminders.Snooze {
		out = append(out, "reminders.snooze")
	}
	if !slices.Equal(config.Resolve(running), config.Resolve(next)) {
		out = append(out, "modules")
	}
	return out
}

func newCodec(cfg config.EmbeddingConfig, logger *slog.Logger, obs embedding.Observer) *embedding.Codec {
	var provider embedding.Provider
	if cfg.RemoteEnabled() {
		provider = embedding.NewHTTPProvider(embedding.HTTPConfig{
			BaseURL:      cfg.BaseURL,
			APIKey:       cfg.ResolvedAPIKey(),
			Model:        cfg.Model,
			Dimensions:   cfg.Dimensions,
			QueryTask:    cfg.QueryTask,
			DocumentTask: cfg.DocumentTask,
		}, nil)
	}

	cacheSize := 0
	if cfg.CacheSize != nil {
		cacheSize = *cfg.CacheSize
	}
	return embedding.New(provider, cfg.Dimensions,
		embedding.WithLogger(logger),
		embedding.WithTimeout(cfg.Timeout),
		embedding.WithFailureThreshold(cfg.FailureThreshold),
		embedding.WithCache(cacheSize),
		embedding.WithObserver(obs),
	)
}

func secretsOf(cfg *config.Config) []string {
	if key := cfg.Embedding.ResolvedAPIKey(); key != "" {
		return []string{key}
	}
	return nil
}

// runtimeModule runs the clock, hub and scheduler inside the App
// lifecycle.
type runtimeModule struct {
	rt *Runtime
}

func (m *runtimeModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "mnemo.runtime"}
}

// Start starts delivery first, then recovers persisted reminders so
// overdue ones fire through a running clock.
func (m *runtimeModule) Start() error {
	rt := m.rt
	rt.Clock.Start()
	if err := rt.Hub.Start(); err != nil {
		return err
	}

	report, err := rt.Engine.Recover(context.Background())
	if err != nil {
		return fmt.Errorf("app: recover reminders: %w", err)
	}
	rt.Logger.Info("reminders recovered", "armed", report.Armed, "fired", report.Fired)

	return rt.Scheduler.Start()
}

func (m *runtimeModule) Stop(ctx context.Context) error {
	rt := m.rt
	return errors.Join(
		rt.Scheduler.Stop(ctx),
		rt.Hub.Stop(ctx),
		rt.Clock.Stop(ctx),
	)
}

// nopClock backs one-shot commands. Reminders they create are persisted
// and armed by the daemon's next sweep.
type nopClock struct{}

func (nopClock) Arm(string, time.Time, map[string]string) {}
func (nopClock) Disarm(string)                            {}
