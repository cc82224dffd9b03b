package notes

import (
	"fmt"
	"io"

	"github.com/serbanrobu/keepaway/internal/sim"
	"gopkg.in/yaml.v3"
)

// Document is the YAML form of a registry.
type Document struct {
	Workers []WorkerSpec `yaml:"workers"`
}

// WorkerSpec describes one worker. Workers are numbered by position.
type WorkerSpec struct {
	Items     []uint64 `yaml:"items"`
	Operation string   `yaml:"operation"`
	Test      TestSpec `yaml:"test"`
}

// TestSpec is the routing rule of a WorkerSpec.
type TestSpec struct {
	DivisibleBy uint64 `yaml:"divisible_by"`
	IfTrue      int    `yaml:"if_true"`
	IfFalse     int    `yaml:"if_false"`
}

// ParseYAML reads a YAML document and returns a validated registry.
func ParseYAML(r io.Reader) (*sim.Registry, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("parsing yaml notes: empty document")
		}
		return nil, fmt.Errorf("parsing yaml notes: %w", err)
	}
	return doc.Registry()
}

// Registry converts the document into a validated registry.
func (d Document) Registry() (*sim.Registry, error) {
	workers := make([]*sim.Worker, len(d.Workers))
	for i, ws := range d.Workers {
		op, err := ParseOperation(ws.Operation)
		if err != nil {
			return nil, fmt.Errorf("worker %d: %w", i, err)
		}
		items := make([]sim.Item, len(ws.Items))
		copy(items, ws.Items)
		workers[i] = &sim.Worker{
			Items:     items,
			Operation: op,
			Test: sim.Test{
				Divisor: ws.Test.DivisibleBy,
				IfTrue:  ws.Test.IfTrue,
				IfFalse: ws.Test.IfFalse,
			},
		}
	}

	reg := sim.NewRegistry(workers...)
	if err := reg.Validate(sim.GuardSelfTarget); err != nil {
		return nil, fmt.Errorf("invalid notes: %w", err)
	}
	return reg, nil
}

// ToDocument converts reg into its YAML form.
func ToDocument(reg *sim.Registry) Document {
	doc := Document{Workers: make([]WorkerSpec, len(reg.Workers))}
	for i, w := range reg.Workers {
		doc.Workers[i] = WorkerSpec{
			Items:     append([]uint64{}, w.Items...),
			Operation: w.Operation.String(),
			Test: TestSpec{
				DivisibleBy: w.Test.Divisor,
				IfTrue:      w.Test.IfTrue,
				IfFalse:     w.Test.IfFalse,
			},
		}
	}
	return doc
}
