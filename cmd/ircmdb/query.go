package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a single question about the current snapshot",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			answer, err := a.svc.AnswerQuestion(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}
}

func newFAQCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "faq",
		Short: "Answer the standard security questionnaire for the current snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			faq, err := a.svc.AnswerFAQ(ctx)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatFAQ(faq))
			return nil
		},
	}
}

func formatFAQ(faq map[string]string) string {
	questions := make([]string, 0, len(faq))
	for q := range faq {
		questions = append(questions, q)
	}
	sort.Strings(questions)

	var b strings.Builder
	for _, q := range questions {
		fmt.Fprintf(&b, "Q: %s\nA: %s\n\n", q, faq[q])
	}
	return b.String()
}
