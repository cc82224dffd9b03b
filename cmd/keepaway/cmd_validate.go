package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/serbanrobu/keepaway/internal/notes"
	"github.com/serbanrobu/keepaway/internal/sim"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check worker notes without running them",
		Long: `Parse and validate worker notes. Reports malformed lines, zero divisors,
throw targets that are not workers and, when simulation.self_target is
"reject", workers that throw to themselves.

Use --print to echo the normalized notes as text or YAML.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			printFormat, _ := cmd.Flags().GetString("print")
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			policy, err := cfg.Simulation.SelfTargetPolicy()
			if err != nil {
				return err
			}

			reg, err := loadNotes(cmd, args[0])
			if err == nil {
				err = reg.Validate(policy)
			}
			var modulus uint64
			if err == nil {
				modulus, err = sim.CommonModulus(reg)
			}
			if err != nil {
				if jsonOut {
					if encErr := writeJSON(cmd.OutOrStdout(), map[string]any{
						"valid": false,
						"error": err.Error(),
					}); encErr != nil {
						return encErr
					}
				}
				return fmt.Errorf("invalid notes: %w", err)
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"valid":   true,
					"workers": reg.Len(),
					"items":   reg.TotalItems(),
					"modulus": modulus,
				})
			}

			w := cmd.OutOrStdout()
			switch printFormat {
			case "":
				fmt.Fprintf(w, "OK: %d workers, %d items, common modulus %d\n", reg.Len(), reg.TotalItems(), modulus)
			case "text":
				fmt.Fprint(w, notes.Format(reg))
			case "yaml":
				data, err := yaml.Marshal(notes.ToDocument(reg))
				if err != nil {
					return fmt.Errorf("failed to encode notes: %w", err)
				}
				fmt.Fprint(w, string(data))
			default:
				return fmt.Errorf("invalid --print format %q (valid: text, yaml)", printFormat)
			}
			return nil
		},
	}

	cmd.Flags().String("print", "", "Print the normalized notes: text or yaml")
	return cmd
}
