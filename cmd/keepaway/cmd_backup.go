package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/serbanrobu/keepaway/internal/backup"
	"github.com/serbanrobu/keepaway/internal/pathutil"
)

func newHistoryBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a compressed snapshot of the run history",
		Long: `Write every recorded run to a checksummed, gzip-compressed backup file.

By default backups go to ~/.keepaway/backups/ and only the 10 most recent
are kept. Output paths must be inside ~/.keepaway/backups/ or the current
directory.

Examples:
  keepaway history backup
  keepaway history backup --keep 3 --max-age 30d
  keepaway history backup -o ./runs-backup.gz`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			keep, _ := cmd.Flags().GetInt("keep")
			maxAge, _ := cmd.Flags().GetString("max-age")
			jsonOut, _ := cmd.Flags().GetBool("json")

			dir, err := backup.DefaultDir()
			if err != nil {
				return err
			}
			if output == "" {
				output = backup.GeneratePath(dir)
			}
			output, err = allowedPath(output)
			if err != nil {
				return err
			}

			var policy backup.AnyPolicy
			if keep > 0 {
				policy = append(policy, backup.CountPolicy{MaxCount: keep})
			}
			if maxAge != "" {
				age, err := backup.ParseDuration(maxAge)
				if err != nil {
					return err
				}
				policy = append(policy, backup.AgePolicy{MaxAge: age})
			}

			l, err := openHistory(cmd)
			if err != nil {
				return err
			}
			defer l.Close()

			header, err := backup.Write(cmd.Context(), l, output)
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}

			var deleted []string
			if len(policy) > 0 {
				deleted, err = backup.ApplyRetention(dir, policy)
				if err != nil {
					return fmt.Errorf("retention failed: %w", err)
				}
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"path":     output,
					"runs":     header.RunCount,
					"checksum": header.Checksum,
					"deleted":  len(deleted),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backed up %d runs to %s\n", header.RunCount, output)
			if len(deleted) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d old backups\n", len(deleted))
			}
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "Backup file (default ~/.keepaway/backups/keepaway-backup-<time>.gz)")
	cmd.Flags().Int("keep", 10, "Keep this many recent backups in ~/.keepaway/backups (0 keeps all)")
	cmd.Flags().String("max-age", "", "Also keep backups younger than this (e.g. 30d, 2w, 720h)")
	return cmd
}

func newHistoryRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file>",
		Short: "Merge runs from a backup into the run history",
		Long: `Verify a backup file and merge its runs into the history ledger. Runs
that are already recorded are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			path, err := allowedPath(args[0])
			if err != nil {
				return err
			}

			l, err := openHistory(cmd)
			if err != nil {
				return err
			}
			defer l.Close()

			result, err := backup.Restore(cmd.Context(), l, path)
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d runs (%d already recorded)\n", result.Restored, result.Skipped)
			return nil
		},
	}
}

func newHistoryBackupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backups",
		Short: "List backups in ~/.keepaway/backups and verify their checksums",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			dir, err := backup.DefaultDir()
			if err != nil {
				return err
			}
			backups, err := backup.List(dir)
			if err != nil {
				return err
			}

			type entry struct {
				backup.Info
				Valid bool   `json:"valid"`
				Error string `json:"error,omitempty"`
			}
			entries := make([]entry, 0, len(backups))
			for _, b := range backups {
				e := entry{Info: b, Valid: true}
				if _, err := backup.Verify(b.Path); err != nil {
					e.Valid, e.Error = false, err.Error()
				}
				entries = append(entries, e)
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"backups": entries,
					"count":   len(entries),
				})
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No backups found.")
				return nil
			}
			for _, e := range entries {
				status := "ok"
				if !e.Valid {
					status = "CORRUPT: " + e.Error
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %d runs  %d bytes  %s\n",
					pathutil.RedactPath(e.Path), e.RunCount, e.Size, status)
			}
			return nil
		},
	}
}

// allowedPath confines backup files to ~/.keepaway/backups and the working
// directory.
func allowedPath(path string) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	dirs, err := pathutil.BackupDirs(cwd)
	if err != nil {
		return "", err
	}
	return pathutil.ValidatePath(path, dirs)
}
