package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tomatoclock/internal/core/model"
	"tomatoclock/internal/storage"
)

const defaultHistoryLimit = 10

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show completed sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := environmentFrom(cmd)
			if err != nil {
				return err
			}
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}
			ctx := contextOf(cmd)

			history, err := storage.OpenHistory(ctx, env.settings.StorageDir)
			if err != nil {
				return err
			}
			defer history.Close()

			counts, err := history.CountsSince(ctx, startOfDay(time.Now()))
			if err != nil {
				return fmt.Errorf("count today's sessions: %w", err)
			}
			recent, err := history.Recent(ctx, limit)
			if err != nil {
				return fmt.Errorf("list recent sessions: %w", err)
			}
			printHistory(cmd.OutOrStdout(), counts, recent)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", defaultHistoryLimit, "Number of recent sessions to show")
	return cmd
}

func printHistory(w io.Writer, counts map[model.Mode]int, recent []storage.HistoryEntry) {
	heading := color.New(color.Bold)
	muted := color.New(color.FgHiBlack)

	heading.Fprintln(w, "Today")
	for _, mode := range model.Modes {
		fmt.Fprintf(w, "  %-12s %d\n", mode.Label(), counts[mode])
	}

	fmt.Fprintln(w)
	heading.Fprintln(w, "Recent")
	if len(recent) == 0 {
		muted.Fprintln(w, "  No completed sessions yet.")
		return
	}
	for _, entry := range recent {
		muted.Fprintf(w, "  %s  ", entry.CompletedAt.Local().Format("2006-01-02 15:04"))
		fmt.Fprintf(w, "%-12s %3dm  next: %s\n",
			entry.Mode.Label(), entry.DurationSeconds/60, entry.NextMode.Label())
	}
}

func startOfDay(now time.Time) time.Time {
	year, month, day := now.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, now.Location())
}
