package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ircmdb/ircmdb/pkg/history"
	"github.com/ircmdb/ircmdb/pkg/models"
	"github.com/spf13/cobra"
)

func newHistoryCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query and manage the advisory query log",
	}

	cmd.AddCommand(
		newHistorySearchCmd(configPath),
		newHistoryStatsCmd(configPath),
		newHistoryCleanupCmd(configPath),
	)
	return cmd
}

func newHistorySearchCmd(configPath *string) *cobra.Command {
	var (
		kind      string
		account   string
		since     string
		requestID string
		failed    bool
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search query log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openHistory(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = l.Close() }()

			opts := models.HistoryQueryOpts{
				Kind:       models.QueryKind(kind),
				AccountID:  account,
				RequestID:  requestID,
				FailedOnly: failed,
				Limit:      limit,
			}
			if opts.Kind != "" && !opts.Kind.Valid() {
				return fmt.Errorf("invalid --kind %q (use faq or adhoc)", kind)
			}
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date (use YYYY-MM-DD): %w", err)
				}
				opts.Since = t
			}

			records, err := l.Query(context.Background(), opts)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatRecords(records, time.Now()))
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "filter by query kind (faq or adhoc)")
	cmd.Flags().StringVar(&account, "account", "", "filter by account id")
	cmd.Flags().StringVar(&since, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&requestID, "request-id", "", "show a single request")
	cmd.Flags().BoolVar(&failed, "failed", false, "only show failed requests")
	cmd.Flags().IntVar(&limit, "limit", 50, "max entries to return")
	return cmd
}

func newHistoryStatsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show request counts by kind, outcome and day",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openHistory(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = l.Close() }()

			stats, err := l.Stats(context.Background())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatHistoryStats(stats))
			return nil
		},
	}
}

func newHistoryCleanupCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete query log entries older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openHistory(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = l.Close() }()

			deleted, err := l.Cleanup(context.Background())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s query log entries.\n", humanize.Comma(deleted))
			return nil
		},
	}
}

func openHistory(configPath string) (*history.Log, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	l, err := history.Open(cfg.History)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	return l, nil
}

func formatRecords(records []models.QueryRecord, now time.Time) string {
	if len(records) == 0 {
		return "No query log entries found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-38s %-8s %-6s %-20s %8s %-16s %s\n",
		"REQUEST ID", "ACCOUNT", "KIND", "RESULT", "LATENCY", "WHEN", "QUESTION")
	b.WriteString(strings.Repeat("-", 118) + "\n")
	for _, r := range records {
		result := string(r.Outcome)
		if r.Failed() {
			result = r.ErrorCode
		}
		fmt.Fprintf(&b, "%-38s %-8s %-6s %-20s %6dms %-16s %s\n",
			r.RequestID, r.AccountID, r.Kind, result, r.LatencyMs,
			humanize.RelTime(r.CreatedAt, now, "ago", "from now"), r.Question)
	}
	return b.String()
}

func formatHistoryStats(stats []models.HistoryStat) string {
	if len(stats) == 0 {
		return "No query log stats found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-12s %-6s %-8s %10s\n", "DAY", "KIND", "RESULT", "COUNT")
	b.WriteString(strings.Repeat("-", 39) + "\n")
	for _, s := range stats {
		fmt.Fprintf(&b, "%-12s %-6s %-8s %10s\n", s.Day, s.Kind, s.Outcome, humanize.Comma(int64(s.Count)))
	}
	return b.String()
}
