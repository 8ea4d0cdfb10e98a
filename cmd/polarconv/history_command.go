package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"polarconv/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent conversions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				entries, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No conversions recorded")
					return nil
				}
				fmt.Fprintln(out, renderHistory(entries, time.Now()))
				return nil
			})
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show (0 for all)")

	historyCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded conversions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d history entries\n", removed)
				return nil
			})
		},
	})

	return historyCmd
}

func renderHistory(entries []history.Entry, now time.Time) string {
	title := cases.Title(language.Und)
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		status := title.String(string(entry.Status))
		if entry.Status == history.StatusFailed && entry.Stage != "" {
			status = fmt.Sprintf("%s (%s)", status, entry.Stage)
		}
		size := "-"
		if entry.Bytes > 0 {
			size = humanize.IBytes(uint64(entry.Bytes))
		}
		rows = append(rows, []string{
			strconv.FormatInt(entry.ID, 10),
			humanize.RelTime(entry.CreatedAt, now, "ago", "from now"),
			filepath.Base(entry.Source),
			status,
			strconv.Itoa(entry.Chunks),
			size,
			entry.Duration.Round(time.Millisecond).String(),
		})
	}
	return renderTable(
		[]string{"ID", "When", "World", "Status", "Chunks", "Size", "Duration"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
	)
}
