package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/serbanrobu/keepaway/internal/config"
	"github.com/serbanrobu/keepaway/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve keepaway tools over MCP (stdio)",
		Long: `Start a Model Context Protocol server on stdin/stdout exposing the
keepaway_simulate, keepaway_validate and keepaway_history tools.

Tool calls are rate limited and audited to ~/.keepaway/audit.jsonl. Logs go
to stderr so they never mix with protocol messages.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg, cmd.ErrOrStderr())

			l, err := openLedger(cfg)
			if err != nil {
				return fmt.Errorf("failed to open ledger: %w", err)
			}
			if l != nil {
				defer l.Close()
			}

			auditDir, err := config.Dir()
			if err != nil {
				return err
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:     "keepaway",
				Version:  version,
				Settings: cfg,
				Ledger:   l,
				AuditDir: auditDir,
				Logger:   logger,
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			defer server.Close()

			logger.Info("mcp server starting", "version", version, "ledger", l != nil)
			return server.Run(cmd.Context())
		},
	}
}
