// Package notes reads worker registries from puzzle notes.
//
// Two formats are supported: the plain-text notes ("Monkey 0:" blocks) and an
// equivalent YAML document. Both produce a validated *sim.Registry.
package notes

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/serbanrobu/keepaway/internal/sim"
)

// ParseError reports a malformed line in plain-text notes.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Line prefixes, after trimming indentation.
const (
	headerPrefix   = "Monkey "
	itemsPrefix    = "Starting items:"
	opPrefix       = "Operation:"
	testPrefix     = "Test: divisible by "
	ifTruePrefix   = "If true: throw to monkey "
	ifFalsePrefix  = "If false: throw to monkey "
	linesPerWorker = 6
)

// ParseString parses plain-text notes held in memory.
func ParseString(s string) (*sim.Registry, error) {
	return Parse(strings.NewReader(s))
}

// Parse reads plain-text notes and returns a validated registry.
func Parse(r io.Reader) (*sim.Registry, error) {
	scanner := bufio.NewScanner(r)

	var (
		workers []*sim.Worker
		block   []string
		start   int
		lineNo  int
	)

	flush := func() error {
		if len(block) == 0 {
			return nil
		}
		w, err := parseBlock(block, start, len(workers))
		if err != nil {
			return err
		}
		workers = append(workers, w)
		block = block[:0]
		return nil
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		if len(block) == 0 {
			start = lineNo
		}
		block = append(block, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading notes: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}

	reg := sim.NewRegistry(workers...)
	if err := reg.Validate(sim.GuardSelfTarget); err != nil {
		return nil, fmt.Errorf("invalid notes: %w", err)
	}
	return reg, nil
}

// parseBlock parses the six lines describing one worker.
func parseBlock(lines []string, start, index int) (*sim.Worker, error) {
	if len(lines) != linesPerWorker {
		return nil, &ParseError{Line: start, Msg: fmt.Sprintf("expected %d lines per worker, got %d", linesPerWorker, len(lines))}
	}

	header, ok := cutPrefix(lines[0], headerPrefix)
	if !ok || !strings.HasSuffix(header, ":") {
		return nil, &ParseError{Line: start, Msg: fmt.Sprintf("expected %q header, got %q", "Monkey N:", lines[0])}
	}
	id, err := strconv.Atoi(strings.TrimSuffix(header, ":"))
	if err != nil {
		return nil, &ParseError{Line: start, Msg: fmt.Sprintf("invalid worker number %q", header)}
	}
	if id != index {
		return nil, &ParseError{Line: start, Msg: fmt.Sprintf("worker %d declared at position %d", id, index)}
	}

	itemsText, ok := cutPrefix(lines[1], itemsPrefix)
	if !ok {
		return nil, &ParseError{Line: start + 1, Msg: fmt.Sprintf("expected %q", itemsPrefix)}
	}
	items, err := parseItems(itemsText)
	if err != nil {
		return nil, &ParseError{Line: start + 1, Msg: err.Error()}
	}

	opText, ok := cutPrefix(lines[2], opPrefix)
	if !ok {
		return nil, &ParseError{Line: start + 2, Msg: fmt.Sprintf("expected %q", opPrefix)}
	}
	op, err := ParseOperation(opText)
	if err != nil {
		return nil, &ParseError{Line: start + 2, Msg: err.Error()}
	}

	divisor, err := parseField(lines[3], testPrefix)
	if err != nil {
		return nil, &ParseError{Line: start + 3, Msg: err.Error()}
	}
	ifTrue, err := parseField(lines[4], ifTruePrefix)
	if err != nil {
		return nil, &ParseError{Line: start + 4, Msg: err.Error()}
	}
	ifFalse, err := parseField(lines[5], ifFalsePrefix)
	if err != nil {
		return nil, &ParseError{Line: start + 5, Msg: err.Error()}
	}

	return &sim.Worker{
		ID:        index,
		Items:     items,
		Operation: op,
		Test: sim.Test{
			Divisor: divisor,
			IfTrue:  int(ifTrue),
			IfFalse: int(ifFalse),
		},
	}, nil
}

func parseItems(s string) ([]sim.Item, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []sim.Item{}, nil
	}
	parts := strings.Split(s, ",")
	items := make([]sim.Item, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid item %q", strings.TrimSpace(p))
		}
		items = append(items, v)
	}
	return items, nil
}

func parseField(line, prefix string) (uint64, error) {
	rest, ok := cutPrefix(line, prefix)
	if !ok {
		return 0, fmt.Errorf("expected %q, got %q", strings.TrimSpace(prefix), line)
	}
	v, err := strconv.ParseUint(strings.TrimSpace(rest), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", rest)
	}
	return v, nil
}

// ParseOperation parses "new = old * 19", "old + old" and similar forms.
func ParseOperation(s string) (sim.Operation, error) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "new"); ok {
		rest = strings.TrimSpace(rest)
		rest, ok = strings.CutPrefix(rest, "=")
		if !ok {
			return sim.Operation{}, fmt.Errorf("invalid operation %q", s)
		}
		s = strings.TrimSpace(rest)
	}

	fields := strings.Fields(s)
	if len(fields) != 3 || fields[0] != "old" {
		return sim.Operation{}, fmt.Errorf("invalid operation %q (want \"old <+|*> <old|N>\")", s)
	}

	var op sim.Operation
	switch fields[1] {
	case "+":
		op.Kind = sim.Add
	case "*":
		op.Kind = sim.Multiply
	default:
		return sim.Operation{}, fmt.Errorf("unknown operator %q", fields[1])
	}

	if fields[2] == "old" {
		op.Operand = sim.OldOperand()
	} else {
		v, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return sim.Operation{}, fmt.Errorf("invalid operand %q", fields[2])
		}
		op.Operand = sim.ConstOperand(v)
	}
	return op, nil
}

func cutPrefix(s, prefix string) (string, bool) {
	rest, ok := strings.CutPrefix(s, strings.TrimSpace(prefix))
	return strings.TrimSpace(rest), ok
}

// Format renders reg as plain-text notes.
func Format(reg *sim.Registry) string {
	var b strings.Builder
	for i, w := range reg.Workers {
		if i > 0 {
			b.WriteString("\n")
		}
		items := make([]string, len(w.Items))
		for j, it := range w.Items {
			items[j] = strconv.FormatUint(it, 10)
		}
		fmt.Fprintf(&b, "Monkey %d:\n", w.ID)
		fmt.Fprintf(&b, "  Starting items: %s\n", strings.Join(items, ", "))
		fmt.Fprintf(&b, "  Operation: new = %s\n", w.Operation)
		fmt.Fprintf(&b, "  Test: divisible by %d\n", w.Test.Divisor)
		fmt.Fprintf(&b, "    If true: throw to monkey %d\n", w.Test.IfTrue)
		fmt.Fprintf(&b, "    If false: throw to monkey %d\n", w.Test.IfFalse)
	}
	return b.String()
}

// LoadFile reads a registry from path. Files ending in .yaml or .yml are
// parsed as YAML, anything else as plain-text notes.
func LoadFile(path string) (*sim.Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening notes: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(f)
	default:
		return Parse(f)
	}
}
