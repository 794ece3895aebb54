package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ircmdb/ircmdb/pkg/mcp"
	"github.com/spf13/cobra"
)

func newMCPCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start ircmdb as an MCP server on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			// stdout carries the protocol
			a.log.SetOutput(os.Stderr)

			var hist mcp.HistorySearcher
			if a.history != nil {
				hist = a.history
			}
			return mcp.New(a.svc, hist, version, a.log).Run(ctx, os.Stdin, os.Stdout)
		},
	}
}
