// Package mcptools exposes reminders and memories as Model Context
// Protocol tools so an assistant can drive them over stdio.
package mcptools

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/flemzord/mnemo/internal/memory"
	"github.com/flemzord/mnemo/internal/ranking"
	"github.com/flemzord/mnemo/internal/reminder"
)

// ServerName is announced to MCP clients during initialization.
const ServerName = "mnemo"

// Reminders is the reminder engine surface the tools drive.
type Reminders interface {
	Create(ctx context.Context, owner, message string, kind reminder.Kind, p reminder.Params) (reminder.Reminder, error)
	CreateFromText(ctx context.Context, owner, text string) (reminder.Reminder, error)
	List(ctx context.Context, owner string, includeInactive bool) ([]reminder.Reminder, error)
	Cancel(ctx context.Context, id string) (bool, error)
	CancelFromText(ctx context.Context, owner, text string) (reminder.CancelResult, bool, error)
	Snooze(ctx context.Context, id string, minutes int) (reminder.Reminder, bool, error)
}

// Memories is the recall service surface the tools drive.
type Memories interface {
	Remember(ctx context.Context, owner, content string, metadata map[string]string) (memory.Memory, error)
	Recall(ctx context.Context, owner, query string, opts ...memory.RecallOption) []ranking.Scored
	Forget(ctx context.Context, id string) (bool, error)
}

// Config wires a Server.
type Config struct {
	Reminders Reminders
	Memories  Memories
	// Owner scopes every tool call. Defaults to "local".
	Owner   string
	Version string
	Logger  *slog.Logger
	Now     func() time.Time
}

// Server is an MCP server over the reminder engine and memory service.
type Server struct {
	mcp       *server.MCPServer
	reminders Reminders
	memories  Memories
	owner     string
	logger    *slog.Logger
	now       func() time.Time
}

// New builds a Server and registers the tools for every configured
// backend. At least one backend is required.
func New(cfg Config) (*Server, error) {
	if cfg.Reminders == nil && cfg.Memories == nil {
		return nil, errors.New("mcptools: no reminders or memories configured")
	}
	s := &Server{
		reminders: cfg.Reminders,
		memories:  cfg.Memories,
		owner:     cfg.Owner,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}
	if s.owner == "" {
		s.owner = "local"
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s.mcp = server.NewMCPServer(ServerName, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s.mcp.AddTools(s.tools()...)
	return s, nil
}

// tools returns the tool set for the configured backends.
func (s *Server) tools() []server.ServerTool {
	var out []server.ServerTool
	if s.memories != nil {
		out = append(out,
			server.ServerTool{Tool: rememberTool(), Handler: s.handleRemember},
			server.ServerTool{Tool: recallTool(), Handler: s.handleRecall},
			server.ServerTool{Tool: forgetTool(), Handler: s.handleForget},
		)
	}
	if s.reminders != nil {
		out = append(out,
			server.ServerTool{Tool: remindTool(), Handler: s.handleRemind},
			server.ServerTool{Tool: listRemindersTool(), Handler: s.handleListReminders},
			server.ServerTool{Tool: cancelReminderTool(), Handler: s.handleCancelReminder},
			server.ServerTool{Tool: snoozeReminderTool(), Handler: s.handleSnoozeReminder},
		)
	}
	return out
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcp }

// ServeStdio serves MCP over stdin/stdout until the input closes.
func (s *Server) ServeStdio() error {
	s.logger.Info("mcp: serving on stdio", "owner", s.owner)
	return server.ServeStdio(s.mcp)
}
