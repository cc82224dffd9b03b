package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"gopkg.in/yaml.v3"

	"github.com/serbanrobu/keepaway/internal/ledger"
	"github.com/serbanrobu/keepaway/internal/notes"
	"github.com/serbanrobu/keepaway/internal/ratelimit"
	"github.com/serbanrobu/keepaway/internal/sim"
)

const (
	// maxToolRounds bounds a single keepaway_simulate call.
	maxToolRounds = 1_000_000

	// roundsPerToken converts simulated rounds into rate limit cost.
	roundsPerToken = 2000

	defaultHistoryLimit = 20

	runsURI       = "keepaway://runs/recent"
	runURIPrefix  = "keepaway://runs/"
	ledgerSource  = "mcp"
	ledgerMissing = "run history is disabled"
)

// registerTools registers all keepaway MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "keepaway_simulate",
		Description: "Run the keep-away simulation on worker notes and report the activity score",
	}, s.handleSimulate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "keepaway_validate",
		Description: "Parse and validate worker notes without running them",
	}, s.handleValidate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "keepaway_history",
		Description: "List recorded simulation runs or show a single run",
	}, s.handleHistory)
}

// registerResources registers MCP resources backed by the run ledger.
func (s *Server) registerResources() {
	s.server.AddResource(&sdk.Resource{
		URI:         runsURI,
		Name:        "keepaway-recent-runs",
		Description: "The most recent recorded simulation runs.",
		MIMEType:    "text/markdown",
	}, s.handleRunsResource)

	s.server.AddResourceTemplate(&sdk.ResourceTemplate{
		URITemplate: runURIPrefix + "{id}",
		Name:        "keepaway-run",
		Description: "Full details of one recorded simulation run.",
		MIMEType:    "text/markdown",
	}, s.handleRunResource)
}

// parseNotes reads a registry from tool input.
func parseNotes(text, format string) (*sim.Registry, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("notes are required")
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return notes.ParseString(text)
	case "yaml", "yml":
		return notes.ParseYAML(strings.NewReader(text))
	default:
		return nil, fmt.Errorf("invalid format %q (valid: text, yaml)", format)
	}
}

// paramsOf turns a tool input into the generic map the audit sanitizer reads.
func paramsOf(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

func fingerprintHex(fp uint64) string {
	return fmt.Sprintf("%016x", fp)
}

// handleSimulate implements the keepaway_simulate tool.
func (s *Server) handleSimulate(ctx context.Context, req *sdk.CallToolRequest, args SimulateInput) (_ *sdk.CallToolResult, _ SimulateOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("keepaway_simulate", start, retErr, sanitizeToolParams(paramsOf(args)))
	}()

	relief, rounds, err := s.settings.Simulation.Resolve(args.Part, args.Relief, args.Rounds)
	if err != nil {
		return nil, SimulateOutput{}, err
	}
	if rounds > maxToolRounds {
		return nil, SimulateOutput{}, fmt.Errorf("rounds %d exceeds the limit of %d per call", rounds, maxToolRounds)
	}

	if err := ratelimit.CheckCost(s.toolLimiters, "keepaway_simulate", float64(rounds)/roundsPerToken); err != nil {
		return nil, SimulateOutput{}, err
	}

	reg, err := parseNotes(args.Notes, args.Format)
	if err != nil {
		return nil, SimulateOutput{}, err
	}
	opts, err := s.settings.Simulation.Options()
	if err != nil {
		return nil, SimulateOutput{}, err
	}

	res, err := sim.RunContext(ctx, reg, rounds, relief, opts...)
	if err != nil {
		return nil, SimulateOutput{}, fmt.Errorf("simulation failed: %w", err)
	}

	out := SimulateOutput{
		Rounds:      res.Rounds,
		Relief:      res.Relief.String(),
		Modulus:     res.Modulus,
		Score:       res.Score,
		Fingerprint: fingerprintHex(res.Fingerprint),
		Workers:     make([]WorkerState, 0, res.Registry.Len()),
	}
	for _, w := range res.Registry.Workers {
		out.Workers = append(out.Workers, WorkerState{
			ID:        w.ID,
			Inspected: w.Inspected,
			Items:     append([]uint64{}, w.Items...),
		})
	}

	if args.Record {
		if s.ledger == nil {
			return nil, SimulateOutput{}, errors.New(ledgerMissing)
		}
		run := ledger.NewRun(ledgerSource, res)
		if err := s.ledger.Record(ctx, run); err != nil {
			return nil, SimulateOutput{}, err
		}
		out.RunID = run.ID
	}

	s.logger.Info("simulation finished",
		"tool", "keepaway_simulate",
		"relief", out.Relief,
		"rounds", out.Rounds,
		"score", out.Score,
	)
	return nil, out, nil
}

// handleValidate implements the keepaway_validate tool. Rejected notes are
// reported in the output rather than as a tool error.
func (s *Server) handleValidate(ctx context.Context, req *sdk.CallToolRequest, args ValidateInput) (_ *sdk.CallToolResult, _ ValidateOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("keepaway_validate", start, retErr, sanitizeToolParams(paramsOf(args)))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "keepaway_validate"); err != nil {
		return nil, ValidateOutput{}, err
	}

	policy, err := s.settings.Simulation.SelfTargetPolicy()
	if err != nil {
		return nil, ValidateOutput{}, err
	}

	reg, err := parseNotes(args.Notes, args.Format)
	if err == nil {
		err = reg.Validate(policy)
	}
	if err != nil {
		return nil, ValidateOutput{Valid: false, Error: err.Error()}, nil
	}

	modulus, err := sim.CommonModulus(reg)
	if err != nil {
		return nil, ValidateOutput{Valid: false, Error: err.Error()}, nil
	}

	doc, err := yaml.Marshal(notes.ToDocument(reg))
	if err != nil {
		return nil, ValidateOutput{}, fmt.Errorf("failed to encode notes: %w", err)
	}

	return nil, ValidateOutput{
		Valid:   true,
		Workers: reg.Len(),
		Items:   reg.TotalItems(),
		Modulus: modulus,
		YAML:    string(doc),
	}, nil
}

// handleHistory implements the keepaway_history tool.
func (s *Server) handleHistory(ctx context.Context, req *sdk.CallToolRequest, args HistoryInput) (_ *sdk.CallToolResult, _ HistoryOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("keepaway_history", start, retErr, sanitizeToolParams(paramsOf(args)))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "keepaway_history"); err != nil {
		return nil, HistoryOutput{}, err
	}
	if s.ledger == nil {
		return nil, HistoryOutput{}, errors.New(ledgerMissing)
	}

	if args.ID != "" {
		run, err := s.ledger.Get(ctx, args.ID)
		if err != nil {
			return nil, HistoryOutput{}, err
		}
		return nil, HistoryOutput{Runs: []RunSummary{summarize(*run, true)}, Count: 1}, nil
	}

	limit := args.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	runs, err := s.ledger.List(ctx, limit)
	if err != nil {
		return nil, HistoryOutput{}, err
	}

	out := HistoryOutput{Runs: make([]RunSummary, 0, len(runs)), Count: len(runs)}
	for _, run := range runs {
		out.Runs = append(out.Runs, summarize(run, false))
	}
	return nil, out, nil
}

func summarize(run ledger.Run, detail bool) RunSummary {
	sum := RunSummary{
		ID:          run.ID,
		CreatedAt:   run.CreatedAt,
		Source:      run.Source,
		Relief:      run.Relief,
		Rounds:      run.Rounds,
		Score:       run.Score,
		Fingerprint: fingerprintHex(run.Fingerprint),
	}
	if detail {
		sum.Inspections = run.Inspections
	}
	return sum
}

// handleRunsResource renders the most recent runs as a markdown table.
func (s *Server) handleRunsResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	var sb strings.Builder
	sb.WriteString("# Recent keepaway runs\n\n")

	if s.ledger == nil {
		sb.WriteString("Run history is disabled.\n")
		return markdownResult(runsURI, sb.String()), nil
	}

	runs, err := s.ledger.List(ctx, defaultHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		sb.WriteString("No runs recorded yet. Use `keepaway_simulate` with `record: true`.\n")
		return markdownResult(runsURI, sb.String()), nil
	}

	sb.WriteString("| id | created | relief | rounds | score |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	for _, run := range runs {
		fmt.Fprintf(&sb, "| %s | %s | %s | %d | %d |\n",
			run.ID, run.CreatedAt.Format(time.RFC3339), run.Relief, run.Rounds, run.Score)
	}
	return markdownResult(runsURI, sb.String()), nil
}

// handleRunResource renders one run. URI format: keepaway://runs/{id}
func (s *Server) handleRunResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	uri := req.Params.URI
	if !strings.HasPrefix(uri, runURIPrefix) {
		return nil, fmt.Errorf("invalid URI format: %s", uri)
	}
	id := strings.TrimPrefix(uri, runURIPrefix)
	if id == "" {
		return nil, fmt.Errorf("run ID is required")
	}
	if s.ledger == nil {
		return nil, errors.New(ledgerMissing)
	}

	run, err := s.ledger.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Run %s\n\n", run.ID)
	fmt.Fprintf(&sb, "- **Created**: %s\n", run.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "- **Source**: %s\n", run.Source)
	fmt.Fprintf(&sb, "- **Relief**: %s\n", run.Relief)
	fmt.Fprintf(&sb, "- **Rounds**: %d\n", run.Rounds)
	fmt.Fprintf(&sb, "- **Modulus**: %d\n", run.Modulus)
	fmt.Fprintf(&sb, "- **Score**: %d\n", run.Score)
	fmt.Fprintf(&sb, "- **Fingerprint**: %s\n\n", fingerprintHex(run.Fingerprint))
	sb.WriteString("| worker | inspected |\n|---|---|\n")
	for i, n := range run.Inspections {
		sb.WriteString("| " + strconv.Itoa(i) + " | " + strconv.FormatUint(n, 10) + " |\n")
	}
	return markdownResult(uri, sb.String()), nil
}

func markdownResult(uri, text string) *sdk.ReadResourceResult {
	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      uri,
				MIMEType: "text/markdown",
				Text:     text,
			},
		},
	}
}
