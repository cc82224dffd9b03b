// Package mcp provides an MCP (Model Context Protocol) server for keepaway.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/serbanrobu/keepaway/internal/config"
	"github.com/serbanrobu/keepaway/internal/ledger"
	"github.com/serbanrobu/keepaway/internal/ratelimit"
)

// Server wraps the MCP SDK server and exposes the simulator as tools.
type Server struct {
	server       *sdk.Server
	settings     *config.KeepawayConfig
	ledger       *ledger.Ledger
	toolLimiters ratelimit.ToolLimiters
	auditLogger  *AuditLogger
	logger       *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Name     string                     // Server name (e.g., "keepaway")
	Version  string                     // Server version
	Settings *config.KeepawayConfig     // Simulation defaults; nil uses config.Default()
	Ledger   *ledger.Ledger             // Optional run history; owned by the caller
	Limits   map[string]ratelimit.Limit // Per-tool limits; nil uses ratelimit.DefaultLimits()
	AuditDir string                     // Directory for audit.jsonl; empty disables auditing
	Logger   *slog.Logger               // Defaults to a discard logger
}

// NewServer creates a new MCP server with keepaway tools.
func NewServer(cfg *Config) (*Server, error) {
	settings := cfg.Settings
	if settings == nil {
		settings = config.Default()
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	s := &Server{
		server:       mcpServer,
		settings:     settings,
		ledger:       cfg.Ledger,
		toolLimiters: ratelimit.NewToolLimiters(cfg.Limits),
		logger:       logger,
	}
	if cfg.AuditDir != "" {
		s.auditLogger = NewAuditLogger(cfg.AuditDir)
	}

	s.registerTools()
	s.registerResources()
	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	defer stopSignals(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	return s.server.Run(ctx, &sdk.StdioTransport{})
}

// Close releases resources held by the server. The ledger is left open.
func (s *Server) Close() error {
	return s.auditLogger.Close()
}
