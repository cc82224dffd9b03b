package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/serbanrobu/keepaway/internal/sim"
	"github.com/serbanrobu/keepaway/internal/visualization"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph <file>",
		Short: "Visualize who throws to whom",
		Long: `Output the throw routes of the workers in <file> as DOT (Graphviz),
Mermaid or JSON. Solid edges are taken when the divisibility test passes,
dashed edges when it fails, and self-throws are highlighted.

With --simulate the notes are run first (using --part, --relief and --rounds
like "keepaway run") and the two busiest workers are highlighted.

Examples:
  keepaway graph notes.txt | dot -Tsvg > routes.svg
  keepaway graph notes.txt --format mermaid --simulate --part 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			simulate, _ := cmd.Flags().GetBool("simulate")
			part, _ := cmd.Flags().GetInt("part")
			relief, _ := cmd.Flags().GetString("relief")
			rounds, _ := cmd.Flags().GetInt("rounds")

			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			policy, err := cfg.Simulation.SelfTargetPolicy()
			if err != nil {
				return err
			}

			reg, err := loadNotes(cmd, args[0])
			if err != nil {
				return err
			}
			if err := reg.Validate(policy); err != nil {
				return fmt.Errorf("invalid notes: %w", err)
			}

			if simulate {
				r, n, err := cfg.Simulation.Resolve(part, relief, rounds)
				if err != nil {
					return err
				}
				opts, err := cfg.Simulation.Options()
				if err != nil {
					return err
				}
				res, err := sim.RunContext(cmd.Context(), reg, n, r, opts...)
				if err != nil {
					return fmt.Errorf("simulation failed: %w", err)
				}
				reg = res.Registry
			}

			w := cmd.OutOrStdout()
			switch visualization.Format(format) {
			case visualization.FormatDOT:
				fmt.Fprint(w, visualization.RenderDOT(reg))
			case visualization.FormatMermaid:
				fmt.Fprint(w, visualization.RenderMermaid(reg))
			case visualization.FormatJSON:
				return writeJSON(w, visualization.Build(reg))
			default:
				return fmt.Errorf("unsupported format %q (use 'dot', 'mermaid', or 'json')", format)
			}
			return nil
		},
	}

	cmd.Flags().String("format", "dot", "Output format: dot, mermaid, json")
	cmd.Flags().Bool("simulate", false, "Run the notes first and show inspection counts")
	cmd.Flags().Int("part", 0, "Preset used with --simulate: 1 or 2")
	cmd.Flags().String("relief", "", "Relief used with --simulate: bounded or unbounded")
	cmd.Flags().Int("rounds", 0, "Rounds used with --simulate")
	return cmd
}
