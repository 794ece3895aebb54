package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "ircmdb",
		Short:         "ircmdb: security advisory engine for cloud infrastructure snapshots",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load .env: %w", err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "ircmdb.yaml", "path to config file")

	root.AddCommand(
		newServeCmd(&configPath),
		newAskCmd(&configPath),
		newFAQCmd(&configPath),
		newSnapshotCmd(&configPath),
		newHistoryCmd(&configPath),
		newMCPCmd(&configPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
