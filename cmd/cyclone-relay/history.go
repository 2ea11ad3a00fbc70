package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/couchcryptid/cyclone-relay/internal/history"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var (
		dbPath  string
		limit   int
		actions bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs from the history ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dbPath == "" {
				return fmt.Errorf("no history database: set HISTORY_DB or pass --db")
			}
			ledger, err := history.Open(dbPath)
			if err != nil {
				return err
			}
			defer ledger.Close()

			runs, err := ledger.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tSTARTED\tTOOK\tSTORMS\tUPDATED\tDIGEST\tFAILED\tRESULT")
			for _, r := range runs {
				result := "ok"
				if r.Error != "" {
					result = r.Error
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%t\t%d\t%s\n",
					shortID(r.RunID),
					humanize.Time(r.StartedAt),
					r.FinishedAt.Sub(r.StartedAt).Round(10*time.Millisecond),
					r.Cyclones,
					orDash(strings.Join(r.Updated, ",")),
					r.DigestPosted,
					r.Failures,
					result,
				)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if !actions {
				return nil
			}
			for _, r := range runs {
				if r.Failures == 0 {
					continue
				}
				list, err := ledger.Actions(cmd.Context(), r.RunID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "\n%s:\n", shortID(r.RunID))
				for _, a := range list {
					fmt.Fprintf(out, "  %s\n", a)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", sharedcfg.EnvOrDefault("HISTORY_DB", ""), "path to the history database")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	cmd.Flags().BoolVar(&actions, "actions", false, "list the best-effort actions of runs with failures")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
