package main

import (
	"context"
	"fmt"

	"github.com/ircmdb/ircmdb/pkg/prompt"
	"github.com/ircmdb/ircmdb/pkg/snapshot"
	"github.com/spf13/cobra"
)

func newSnapshotCmd(configPath *string) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Validate and print the current infrastructure snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			snap, err := snapshot.NewFileStore(cfg.SnapshotPath).Load(context.Background())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Account:     %s\n", snap.AccountID)
			fmt.Fprintf(out, "Fingerprint: %s\n", prompt.Fingerprint(snap))
			if !quiet {
				fmt.Fprintf(out, "\n%s\n", snap.Pretty())
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the account and fingerprint")
	return cmd
}
