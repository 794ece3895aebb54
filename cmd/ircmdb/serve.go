package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/ircmdb/ircmdb/pkg/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newServeCmd(configPath *string) *cobra.Command {
	var noWarm bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the advisory HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if !noWarm {
				go func() { _ = a.warmCache(ctx) }()
			}

			a.log.WithFields(logrus.Fields{"config": *configPath, "version": version}).Info("starting ircmdb")
			return server.New(a.cfg, a.svc, a.log, version).ListenAndServe(ctx)
		},
	}

	cmd.Flags().BoolVar(&noWarm, "no-warm", false, "skip precomputing the FAQ and configured warm-up questions")
	return cmd
}
