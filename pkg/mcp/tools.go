package mcp

import (
	"context"
	"time"

	"github.com/ircmdb/ircmdb/pkg/advisory"
	"github.com/ircmdb/ircmdb/pkg/models"
	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) addTools() {
	s.mcp.AddTool(toolFAQ(), s.handleFAQ)
	s.mcp.AddTool(toolAsk(), s.handleAsk)
	s.mcp.AddTool(toolCacheStats(), s.handleCacheStats)
	s.mcp.AddTool(toolHistory(), s.handleHistory)
}

func toolFAQ() mcp.Tool {
	return mcp.NewTool(
		"ircmdb_faq",
		mcp.WithDescription("Answer the standard security questionnaire for the current infrastructure snapshot."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)
}

func toolAsk() mcp.Tool {
	return mcp.NewTool(
		"ircmdb_ask",
		mcp.WithDescription("Ask a free-text security question about the current infrastructure snapshot."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("question",
			mcp.Description("The question to answer"),
			mcp.Required(),
		),
	)
}

func toolCacheStats() mcp.Tool {
	return mcp.NewTool(
		"ircmdb_cache_stats",
		mcp.WithDescription("Show advisory cache statistics (entries, hits, misses, evictions)."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func toolHistory() mcp.Tool {
	return mcp.NewTool(
		"ircmdb_history",
		mcp.WithDescription("Search the advisory query log with optional filters."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("kind",
			mcp.Description("Filter by query kind (optional)"),
			mcp.Enum(string(models.KindFAQ), string(models.KindAdHoc)),
		),
		mcp.WithString("since",
			mcp.Description("Start date in YYYY-MM-DD format (optional)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of records (optional, default 50)"),
		),
	)
}

func queryError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(advisory.Code(err) + ": " + err.Error())
}

func (s *Server) handleFAQ(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.Query(ctx, models.KindFAQ, "")
	if err != nil {
		return queryError(err), nil
	}
	return mcp.NewToolResultText(formatFAQ(res.FAQ)), nil
}

func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.Query(ctx, models.KindAdHoc, request.GetString("question", ""))
	if err != nil {
		return queryError(err), nil
	}
	return mcp.NewToolResultText(res.Answer), nil
}

func (s *Server) handleCacheStats(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(formatCacheStats(s.svc.CacheStats())), nil
}

func (s *Server) handleHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.history == nil {
		return mcp.NewToolResultText("Query history is not configured."), nil
	}

	kind := request.GetString("kind", "")
	opts := models.HistoryQueryOpts{
		Kind:  models.QueryKind(kind),
		Limit: request.GetInt("limit", 50),
	}
	if opts.Kind != "" && !opts.Kind.Valid() {
		return mcp.NewToolResultError("Invalid kind (use faq or adhoc): " + kind), nil
	}
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	if since := request.GetString("since", ""); since != "" {
		t, err := time.Parse("2006-01-02", since)
		if err != nil {
			return mcp.NewToolResultError("Invalid since date (use YYYY-MM-DD): " + err.Error()), nil
		}
		opts.Since = t
	}

	records, err := s.history.Query(ctx, opts)
	if err != nil {
		return mcp.NewToolResultError("Error searching query history: " + err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(records, time.Now())), nil
}
