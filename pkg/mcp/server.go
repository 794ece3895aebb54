// Package mcp serves the advisory engine to MCP clients over stdio.
package mcp

import (
	"context"
	"io"
	"log"

	"github.com/ircmdb/ircmdb/pkg/advisory"
	"github.com/ircmdb/ircmdb/pkg/models"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
)

// Advisor answers advisory queries.
type Advisor interface {
	Query(ctx context.Context, kind models.QueryKind, question string) (advisory.Result, error)
	CacheStats() models.CacheStats
}

// HistorySearcher reads the query log.
type HistorySearcher interface {
	Query(ctx context.Context, opts models.HistoryQueryOpts) ([]models.QueryRecord, error)
}

// Server exposes the advisory tools over the Model Context Protocol.
type Server struct {
	svc     Advisor
	history HistorySearcher
	log     *logrus.Logger
	mcp     *server.MCPServer
}

// New creates an MCP Server. history may be nil when the query log is disabled.
func New(svc Advisor, history HistorySearcher, version string, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{
		svc:     svc,
		history: history,
		log:     log,
		mcp: server.NewMCPServer(
			"ircmdb",
			version,
			server.WithToolCapabilities(false),
		),
	}
	s.addTools()
	return s
}

// Run serves line-delimited JSON-RPC from r to w until r is closed or ctx is cancelled.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(log.New(s.log.WriterLevel(logrus.ErrorLevel), "mcp: ", 0))
	return stdio.Listen(ctx, r, w)
}
