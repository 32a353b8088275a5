// Package gateway provides the HTTP surface of mnemo: health, metrics,
// the reminder and memory APIs, and the notification WebSocket. It binds
// to loopback by default and follows the module system pattern.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/mnemo/internal/core"
	"github.com/flemzord/mnemo/internal/embedding"
	"github.com/flemzord/mnemo/internal/memory"
	"github.com/flemzord/mnemo/internal/ranking"
	"github.com/flemzord/mnemo/internal/reminder"
)

// ModuleID is the registered ID of the gateway module.
const ModuleID = "gateway.http"

// Service names the gateway resolves at Start.
const (
	ServiceReminders     = "reminder.engine"
	ServiceMemories      = "memory.service"
	ServiceEmbedding     = "embedding.codec"
	ServiceMetrics       = "telemetry.metrics"
	ServiceNotifications = "notify.hub"
	ServiceDefaultOwner  = "reminders.default_owner"
)

const defaultOwner = "local"

func init() {
	core.RegisterModule(&Gateway{})
}

// Reminders is the reminder engine surface used by the API.
type Reminders interface {
	Create(ctx context.Context, owner, message string, kind reminder.Kind, p reminder.Params) (reminder.Reminder, error)
	CreateFromText(ctx context.Context, owner, text string) (reminder.Reminder, error)
	Get(ctx context.Context, id string) (reminder.Reminder, bool, error)
	List(ctx context.Context, owner string, includeInactive bool) ([]reminder.Reminder, error)
	Cancel(ctx context.Context, id string) (bool, error)
	CancelAll(ctx context.Context, owner string) (int, error)
	CancelFromText(ctx context.Context, owner, text string) (reminder.CancelResult, bool, error)
	Snooze(ctx context.Context, id string, minutes int) (reminder.Reminder, bool, error)
	Trigger(ctx context.Context, id string) (reminder.Reminder, bool, error)
	HandleAction(ctx context.Context, cmd reminder.Command) (bool, error)
}

// Memories is the recall service surface used by the API.
type Memories interface {
	Remember(ctx context.Context, owner, content string, metadata map[string]string) (memory.Memory, error)
	Recall(ctx context.Context, owner, query string, opts ...memory.RecallOption) []ranking.Scored
	List(ctx context.Context, owner string) ([]memory.Memory, error)
	Forget(ctx context.Context, id string) (bool, error)
	ForgetAll(ctx context.Context, owner string) (int, error)
}

// Embedding exposes the codec's circuit to operators.
type Embedding interface {
	Status() embedding.Status
	ResetCircuit()
}

// Metrics records request metrics and serves the exposition endpoint.
type Metrics interface {
	ObserveHTTP(method, route string, code int, elapsed time.Duration)
	Handler() http.Handler
}

// Gateway is the HTTP gateway module.
type Gateway struct {
	config    Config
	appCtx    *core.AppContext
	logger    *slog.Logger
	limiter   *RateLimiter
	server    *http.Server
	startedAt time.Time
	owner     string

	mu   sync.Mutex
	addr string

	// Resolved lazily at Start() via service registry.
	reminders     Reminders
	memories      Memories
	embedding     Embedding
	metrics       Metrics
	notifications http.Handler
}

var (
	_ core.Configurable = (*Gateway)(nil)
	_ core.Provisioner  = (*Gateway)(nil)
	_ core.Validator    = (*Gateway)(nil)
	_ core.Starter      = (*Gateway)(nil)
	_ core.Stopper      = (*Gateway)(nil)
)

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  ModuleID,
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return fmt.Errorf("gateway: decode config: %w", err)
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.config.defaults()
	g.appCtx = ctx
	g.logger = ctx.Logger
	g.limiter = NewRateLimiter(g.config.RateLimit)
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	return g.config.validate()
}

// Start implements core.Starter. It resolves dependencies from the service
// registry and starts the HTTP server. Missing services disable their
// routes.
func (g *Gateway) Start() error {
	g.reminders, _ = core.Service[Reminders](g.appCtx, ServiceReminders)
	g.memories, _ = core.Service[Memories](g.appCtx, ServiceMemories)
	g.embedding, _ = core.Service[Embedding](g.appCtx, ServiceEmbedding)
	g.metrics, _ = core.Service[Metrics](g.appCtx, ServiceMetrics)
	g.notifications, _ = core.Service[http.Handler](g.appCtx, ServiceNotifications)
	g.owner, _ = core.Service[string](g.appCtx, ServiceDefaultOwner)

	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen failed: %w", err)
	}
	g.mu.Lock()
	g.addr = ln.Addr().String()
	g.mu.Unlock()

	go func() {
		g.logger.Info("gateway listening", "addr", ln.Addr().String())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Addr returns the address the server listens on, once started.
func (g *Gateway) Addr() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addr
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}

func (g *Gateway) ownerOf(requested string) string {
	if requested != "" {
		return requested
	}
	if g.owner != "" {
		return g.owner
	}
	return defaultOwner
}
