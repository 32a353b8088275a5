package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flemzord/mnemo/internal/memory"
)

func rememberTool() mcp.Tool {
	return mcp.NewTool("mnemo_remember",
		mcp.WithDescription("Store a fact for later recall. Use it for anything the user may ask about again: where they parked, a preference, a name."),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The fact to remember, as a self-contained sentence."),
		),
		mcp.WithString("source",
			mcp.Description("Optional origin of the fact, stored as metadata."),
		),
	)
}

func recallTool() mcp.Tool {
	return mcp.NewTool("mnemo_recall",
		mcp.WithDescription("Find stored facts relevant to a question, ranked by semantic similarity and recency."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("What you want to know. A question or keywords."),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Maximum number of results. Default: 3"),
		),
	)
}

func forgetTool() mcp.Tool {
	return mcp.NewTool("mnemo_forget",
		mcp.WithDescription("Delete a stored fact by its ID, as returned by mnemo_recall."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("The memory ID."),
		),
	)
}

func (s *Server) handleRemember(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil || strings.TrimSpace(content) == "" {
		return mcp.NewToolResultError("content is required"), nil
	}
	var meta map[string]string
	if src := req.GetString("source", ""); src != "" {
		meta = map[string]string{"source": src}
	}

	m, err := s.memories.Remember(ctx, s.owner, content, meta)
	if err != nil {
		s.logger.Error("mcp: remember failed", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("failed to remember: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Remembered (id %s).", m.ID)), nil
}

func (s *Server) handleRecall(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query is required"), nil
	}

	var opts []memory.RecallOption
	if k := req.GetInt("top_k", 0); k > 0 {
		opts = append(opts, memory.WithTopK(k))
	}
	results := s.memories.Recall(ctx, s.owner, query, opts...)
	if len(results) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No memories found for %q.", query)), nil
	}

	var b strings.Builder
	b.WriteString(memory.Format(results))
	b.WriteString("\nIDs:\n")
	for _, r := range results {
		fmt.Fprintf(&b, "- %s: %s\n", r.ID, r.Content)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleForget(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil || id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}
	found, err := s.memories.Forget(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to forget: %v", err)), nil
	}
	if !found {
		return mcp.NewToolResultError(fmt.Sprintf("no memory with id %s", id)), nil
	}
	return mcp.NewToolResultText("Forgotten."), nil
}
