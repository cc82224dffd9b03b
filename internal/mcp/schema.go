package mcp

import "time"

// SimulateInput defines the input for the keepaway_simulate tool.
type SimulateInput struct {
	Notes  string `json:"notes" jsonschema:"Worker notes in the Monkey N text format or as a YAML document"`
	Format string `json:"format,omitempty" jsonschema:"Notes format: 'text' (default) or 'yaml'"`
	Part   int    `json:"part,omitempty" jsonschema:"Preset: 1 for bounded relief over 20 rounds, 2 for unbounded relief over 10000 rounds"`
	Relief string `json:"relief,omitempty" jsonschema:"Relief policy: 'bounded' or 'unbounded' (overrides part)"`
	Rounds int    `json:"rounds,omitempty" jsonschema:"Number of rounds (overrides the preset default)"`
	Record bool   `json:"record,omitempty" jsonschema:"Record the run in the ledger (default: false)"`
}

// SimulateOutput defines the output for the keepaway_simulate tool.
type SimulateOutput struct {
	RunID       string        `json:"run_id,omitempty" jsonschema:"Ledger id when the run was recorded"`
	Rounds      int           `json:"rounds" jsonschema:"Rounds simulated"`
	Relief      string        `json:"relief" jsonschema:"Relief policy used"`
	Modulus     uint64        `json:"modulus" jsonschema:"Product of all worker divisors"`
	Score       uint64        `json:"score" jsonschema:"Product of the two largest inspection counts"`
	Fingerprint string        `json:"fingerprint" jsonschema:"Hex digest of the final worker state"`
	Workers     []WorkerState `json:"workers" jsonschema:"Final state of every worker"`
}

// WorkerState summarizes one worker after a run.
type WorkerState struct {
	ID        int      `json:"id"`
	Inspected uint64   `json:"inspected"`
	Items     []uint64 `json:"items"`
}

// ValidateInput defines the input for the keepaway_validate tool.
type ValidateInput struct {
	Notes  string `json:"notes" jsonschema:"Worker notes in the Monkey N text format or as a YAML document"`
	Format string `json:"format,omitempty" jsonschema:"Notes format: 'text' (default) or 'yaml'"`
}

// ValidateOutput defines the output for the keepaway_validate tool.
type ValidateOutput struct {
	Valid   bool   `json:"valid" jsonschema:"Whether the notes describe a runnable population"`
	Workers int    `json:"workers,omitempty" jsonschema:"Number of workers"`
	Items   int    `json:"items,omitempty" jsonschema:"Total items held"`
	Modulus uint64 `json:"modulus,omitempty" jsonschema:"Product of all worker divisors"`
	Error   string `json:"error,omitempty" jsonschema:"Why the notes were rejected"`
	YAML    string `json:"yaml,omitempty" jsonschema:"Normalized YAML form of valid notes"`
}

// HistoryInput defines the input for the keepaway_history tool.
type HistoryInput struct {
	ID    string `json:"id,omitempty" jsonschema:"Run id or unique id prefix to show a single run"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum runs to list (default: 20)"`
}

// HistoryOutput defines the output for the keepaway_history tool.
type HistoryOutput struct {
	Runs  []RunSummary `json:"runs" jsonschema:"Recorded runs, newest first"`
	Count int          `json:"count" jsonschema:"Number of runs returned"`
}

// RunSummary provides a list view of a ledger run.
type RunSummary struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Source      string    `json:"source"`
	Relief      string    `json:"relief"`
	Rounds      int       `json:"rounds"`
	Score       uint64    `json:"score"`
	Fingerprint string    `json:"fingerprint"`
	Inspections []uint64  `json:"inspections,omitempty"`
}
