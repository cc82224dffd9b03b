package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/serbanrobu/keepaway/internal/config"
	"github.com/serbanrobu/keepaway/internal/ledger"
	"github.com/serbanrobu/keepaway/internal/logging"
	"github.com/serbanrobu/keepaway/internal/metrics"
	"github.com/serbanrobu/keepaway/internal/notes"
	"github.com/serbanrobu/keepaway/internal/sim"
)

// runOutput is the JSON form of a finished run.
type runOutput struct {
	RunID  string `json:"run_id,omitempty"`
	Source string `json:"source"`
	*sim.Result
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Simulate worker notes and print the activity score",
		Long: `Simulate the workers described in <file> and print how often each worker
inspected an item, followed by the activity score (the product of the two
largest counts).

Files ending in .yaml or .yml are read as YAML; anything else as "Monkey N:"
notes. Use "-" to read notes from stdin.

Examples:
  keepaway run notes.txt --part 1          # bounded relief, 20 rounds
  keepaway run notes.txt --part 2          # unbounded relief, 10000 rounds
  keepaway run notes.yaml --relief unbounded --rounds 500
  keepaway run notes.txt --metrics-file /var/lib/node_exporter/keepaway.prom`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			part, _ := cmd.Flags().GetInt("part")
			relief, _ := cmd.Flags().GetString("relief")
			rounds, _ := cmd.Flags().GetInt("rounds")
			metricsFile, _ := cmd.Flags().GetString("metrics-file")
			noRecord, _ := cmd.Flags().GetBool("no-record")
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			r, n, err := cfg.Simulation.Resolve(part, relief, rounds)
			if err != nil {
				return err
			}
			opts, err := cfg.Simulation.Options()
			if err != nil {
				return err
			}

			source := args[0]
			reg, err := loadNotes(cmd, source)
			if err != nil {
				return err
			}

			runID := uuid.NewString()
			logger := newLogger(cfg, cmd.ErrOrStderr()).With("run", runID)
			trace := openTrace(cfg)
			defer trace.Close()

			observers := sim.Observers{logging.NewObserver(logger, trace, runID)}
			var collector *metrics.Collector
			if metricsFile != "" {
				collector = metrics.NewCollector("")
				observers = append(observers, collector)
			}
			opts = append(opts, sim.WithObserver(observers))

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			sigChan := make(chan os.Signal, 1)
			notifySignals(sigChan)
			defer signal.Stop(sigChan)
			go func() {
				select {
				case <-sigChan:
					cancel()
				case <-ctx.Done():
				}
			}()

			logger.Info("simulation started", "source", source, "relief", r, "rounds", n, "workers", reg.Len())
			res, err := sim.RunContext(ctx, reg, n, r, opts...)
			if err != nil {
				return fmt.Errorf("simulation failed: %w", err)
			}
			logger.Info("simulation finished", "score", res.Score)

			if collector != nil {
				collector.ObserveResult(res)
				if err := collector.WriteTextfile(metricsFile); err != nil {
					return err
				}
			}

			out := runOutput{Source: source, Result: res}
			if !noRecord {
				recorded, err := recordRun(ctx, cfg, runID, source, res)
				if err != nil {
					return err
				}
				if recorded {
					out.RunID = runID
				}
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			w := cmd.OutOrStdout()
			for i, count := range res.Inspections {
				fmt.Fprintf(w, "Worker %d inspected items %d times.\n", i, count)
			}
			fmt.Fprintf(w, "Score: %d\n", res.Score)
			if out.RunID != "" {
				fmt.Fprintf(w, "Run: %s\n", out.RunID)
			}
			return nil
		},
	}

	cmd.Flags().Int("part", 0, "Preset: 1 = bounded relief, 20 rounds; 2 = unbounded relief, 10000 rounds")
	cmd.Flags().String("relief", "", "Relief policy: bounded or unbounded (overrides --part)")
	cmd.Flags().Int("rounds", 0, "Number of rounds (default from config for the chosen relief)")
	cmd.Flags().String("metrics-file", "", "Write Prometheus metrics to this file after the run")
	cmd.Flags().Bool("no-record", false, "Do not record the run in the history ledger")

	return cmd
}

// loadNotes reads a registry from path, or from stdin when path is "-".
func loadNotes(cmd *cobra.Command, path string) (*sim.Registry, error) {
	if path == "-" {
		return notes.Parse(cmd.InOrStdin())
	}
	return notes.LoadFile(path)
}

func openTrace(cfg *config.KeepawayConfig) *logging.TraceLogger {
	dir, err := config.Dir()
	if err != nil {
		return nil
	}
	return logging.NewTraceLogger(dir, cfg.Logging.Level)
}

// recordRun stores res in the ledger. It reports false when the ledger is
// disabled.
func recordRun(ctx context.Context, cfg *config.KeepawayConfig, id, source string, res *sim.Result) (bool, error) {
	l, err := openLedger(cfg)
	if err != nil {
		return false, fmt.Errorf("failed to open ledger: %w", err)
	}
	if l == nil {
		return false, nil
	}
	defer l.Close()

	run := ledger.NewRun(source, res)
	run.ID = id
	if err := l.Record(ctx, run); err != nil {
		return false, err
	}
	return true, nil
}
