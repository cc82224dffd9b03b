package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/serbanrobu/keepaway/internal/ledger"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded simulation runs",
		Long: `List runs recorded in the history ledger (~/.keepaway/runs.db), newest first.

Examples:
  keepaway history                 # last 20 runs
  keepaway history --limit 0       # every run
  keepaway history show 6f1c2a5e   # one run, by id or unique id prefix
  keepaway history export -o runs.jsonl
  keepaway history backup          # snapshot to ~/.keepaway/backups`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			jsonOut, _ := cmd.Flags().GetBool("json")

			l, err := openHistory(cmd)
			if err != nil {
				return err
			}
			defer l.Close()

			runs, err := l.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if jsonOut {
				if runs == nil {
					runs = []ledger.Run{}
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"runs":  runs,
					"count": len(runs),
				})
			}

			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tSOURCE\tRELIEF\tROUNDS\tSCORE")
			for _, run := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
					shortID(run.ID), run.CreatedAt.Local().Format(time.DateTime), run.Source, run.Relief, run.Rounds, run.Score)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().Int("limit", 20, "Maximum runs to list (0 for all)")
	cmd.AddCommand(
		newHistoryShowCmd(),
		newHistoryExportCmd(),
		newHistoryBackupCmd(),
		newHistoryRestoreCmd(),
		newHistoryBackupsCmd(),
	)
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			l, err := openHistory(cmd)
			if err != nil {
				return err
			}
			defer l.Close()

			run, err := l.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), run)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Run:         %s\n", run.ID)
			fmt.Fprintf(w, "Created:     %s\n", run.CreatedAt.Local().Format(time.RFC3339))
			fmt.Fprintf(w, "Source:      %s\n", run.Source)
			fmt.Fprintf(w, "Relief:      %s\n", run.Relief)
			fmt.Fprintf(w, "Rounds:      %d\n", run.Rounds)
			fmt.Fprintf(w, "Modulus:     %d\n", run.Modulus)
			fmt.Fprintf(w, "Fingerprint: %016x\n", run.Fingerprint)
			for i, n := range run.Inspections {
				fmt.Fprintf(w, "Worker %d inspected items %d times.\n", i, n)
			}
			fmt.Fprintf(w, "Score:       %d\n", run.Score)
			return nil
		},
	}
}

func newHistoryExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every recorded run as JSONL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")

			l, err := openHistory(cmd)
			if err != nil {
				return err
			}
			defer l.Close()

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}

			n, err := l.ExportJSONL(cmd.Context(), w)
			if err != nil {
				return err
			}
			if output != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d runs to %s\n", n, output)
			}
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "Write to this file instead of stdout")
	return cmd
}

// openHistory opens the ledger for read commands, failing when it is disabled.
func openHistory(cmd *cobra.Command) (*ledger.Ledger, error) {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	if !cfg.Ledger.Enabled {
		return nil, fmt.Errorf("run history is disabled (set ledger.enabled to true)")
	}
	l, err := openLedger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	return l, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

