// Package ledger keeps a history of completed simulation runs in SQLite.
//
// The ledger only records outcomes. Runs are never resumed from it.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/serbanrobu/keepaway/internal/sim"
)

var (
	// ErrNotFound is returned when no run matches an id.
	ErrNotFound = errors.New("run not found")
	// ErrAmbiguousID is returned when an id prefix matches more than one run.
	ErrAmbiguousID = errors.New("run id prefix is ambiguous")
)

// Run is one recorded simulation outcome.
type Run struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Source      string    `json:"source"`
	Relief      string    `json:"relief"`
	Rounds      int       `json:"rounds"`
	Workers     int       `json:"workers"`
	Modulus     uint64    `json:"modulus"`
	Score       uint64    `json:"score"`
	Fingerprint uint64    `json:"fingerprint"`
	Inspections []uint64  `json:"inspections"`
}

// NewRun builds a ledger entry for a finished simulation.
func NewRun(source string, res *sim.Result) Run {
	return Run{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		Source:      source,
		Relief:      res.Relief.String(),
		Rounds:      res.Rounds,
		Workers:     len(res.Inspections),
		Modulus:     res.Modulus,
		Score:       res.Score,
		Fingerprint: res.Fingerprint,
		Inspections: res.Inspections,
	}
}

// Ledger stores runs in a SQLite database.
type Ledger struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the ledger database at path.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Ledger{db: db, path: path}, nil
}

// Path returns the database file location.
func (l *Ledger) Path() string {
	return l.path
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record inserts a run.
func (l *Ledger) Record(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("run ID is required")
	}
	inspections, err := json.Marshal(run.Inspections)
	if err != nil {
		return fmt.Errorf("failed to encode inspections: %w", err)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, source, relief, rounds, workers, modulus, score, fingerprint, inspections)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.CreatedAt.UTC().Format(timeLayout),
		run.Source,
		run.Relief,
		run.Rounds,
		run.Workers,
		strconv.FormatUint(run.Modulus, 10),
		strconv.FormatUint(run.Score, 10),
		strconv.FormatUint(run.Fingerprint, 16),
		string(inspections),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// timeLayout is fixed width so created_at sorts correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const selectRuns = `SELECT id, created_at, source, relief, rounds, workers, modulus, score, fingerprint, inspections FROM runs`

// List returns the most recent runs, newest first. A limit <= 0 returns all.
func (l *Ledger) List(ctx context.Context, limit int) ([]Run, error) {
	query := selectRuns + ` ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Get returns the run whose id equals or starts with id.
func (l *Ledger) Get(ctx context.Context, id string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}

	rows, err := l.db.QueryContext(ctx, selectRuns+` WHERE substr(id, 1, length(?)) = ? ORDER BY id LIMIT 2`, id, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	defer rows.Close()

	var found []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		if run.ID == id {
			return &run, nil
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	case 1:
		return &found[0], nil
	default:
		return nil, fmt.Errorf("%s: %w", id, ErrAmbiguousID)
	}
}

// ExportJSONL writes every run as one JSON object per line, oldest first.
func (l *Ledger) ExportJSONL(ctx context.Context, w io.Writer) (int, error) {
	runs, err := l.List(ctx, 0)
	if err != nil {
		return 0, err
	}
	enc := json.NewEncoder(w)
	for i := len(runs) - 1; i >= 0; i-- {
		if err := enc.Encode(runs[i]); err != nil {
			return 0, fmt.Errorf("failed to encode run %s: %w", runs[i].ID, err)
		}
	}
	return len(runs), nil
}

func scanRun(rows *sql.Rows) (Run, error) {
	var (
		run                                        Run
		createdAt, modulus, score, fp, inspections string
	)
	if err := rows.Scan(&run.ID, &createdAt, &run.Source, &run.Relief, &run.Rounds, &run.Workers,
		&modulus, &score, &fp, &inspections); err != nil {
		return Run{}, fmt.Errorf("failed to scan run: %w", err)
	}

	var err error
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return Run{}, fmt.Errorf("run %s: bad created_at: %w", run.ID, err)
	}
	if run.Modulus, err = strconv.ParseUint(modulus, 10, 64); err != nil {
		return Run{}, fmt.Errorf("run %s: bad modulus: %w", run.ID, err)
	}
	if run.Score, err = strconv.ParseUint(score, 10, 64); err != nil {
		return Run{}, fmt.Errorf("run %s: bad score: %w", run.ID, err)
	}
	if run.Fingerprint, err = strconv.ParseUint(fp, 16, 64); err != nil {
		return Run{}, fmt.Errorf("run %s: bad fingerprint: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(inspections), &run.Inspections); err != nil {
		return Run{}, fmt.Errorf("run %s: bad inspections: %w", run.ID, err)
	}
	return run, nil
}
