package metrics

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serbanrobu/keepaway/internal/sim"
)

func exampleRegistry() *sim.Registry {
	return sim.NewRegistry(
		&sim.Worker{
			Items:     []sim.Item{79, 98},
			Operation: sim.Operation{Kind: sim.Multiply, Operand: sim.ConstOperand(19)},
			Test:      sim.Test{Divisor: 23, IfTrue: 2, IfFalse: 3},
		},
		&sim.Worker{
			Items:     []sim.Item{54, 65, 75, 74},
			Operation: sim.Operation{Kind: sim.Add, Operand: sim.ConstOperand(6)},
			Test:      sim.Test{Divisor: 19, IfTrue: 2, IfFalse: 0},
		},
		&sim.Worker{
			Items:     []sim.Item{79, 60, 97},
			Operation: sim.Operation{Kind: sim.Multiply, Operand: sim.OldOperand()},
			Test:      sim.Test{Divisor: 13, IfTrue: 1, IfFalse: 3},
		},
		&sim.Worker{
			Items:     []sim.Item{74},
			Operation: sim.Operation{Kind: sim.Add, Operand: sim.ConstOperand(3)},
			Test:      sim.Test{Divisor: 17, IfTrue: 0, IfFalse: 1},
		},
	)
}

func TestCollector_MatchesResult(t *testing.T) {
	c := NewCollector("")
	res, err := sim.Run(exampleRegistry(), 20, sim.Bounded, sim.WithObserver(c))
	require.NoError(t, err)
	c.ObserveResult(res)

	assert.Equal(t, 20.0, testutil.ToFloat64(c.rounds))
	for i, n := range res.Inspections {
		assert.Equal(t, float64(n), testutil.ToFloat64(c.inspections.WithLabelValues(strconv.Itoa(i))), "worker %d", i)
	}
	assert.Equal(t, 10605.0, testutil.ToFloat64(c.score))
	assert.Equal(t, float64(res.Modulus), testutil.ToFloat64(c.modulus))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.selfThrows))

	queued := 0.0
	for i := range res.Inspections {
		queued += testutil.ToFloat64(c.queueLength.WithLabelValues(strconv.Itoa(i)))
	}
	assert.Equal(t, 10.0, queued)
}

func TestCollector_WriteTextfile(t *testing.T) {
	c := NewCollector("test")
	res, err := sim.Run(exampleRegistry(), 1, sim.Unbounded, sim.WithObserver(c))
	require.NoError(t, err)
	c.ObserveResult(res)

	path := filepath.Join(t.TempDir(), "keepaway.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.Contains(out, "test_rounds_total 1"), out)
	assert.True(t, strings.Contains(out, `test_throws_total{from="0",to="3"} 2`), out)
	assert.True(t, strings.Contains(out, "test_activity_score"), out)
}

func TestCollector_CountsSelfThrows(t *testing.T) {
	reg := sim.NewRegistry(
		&sim.Worker{
			Items:     []sim.Item{1},
			Operation: sim.Operation{Kind: sim.Add, Operand: sim.ConstOperand(1)},
			Test:      sim.Test{Divisor: 2, IfTrue: 0, IfFalse: 1},
		},
		&sim.Worker{
			Operation: sim.Operation{Kind: sim.Multiply, Operand: sim.ConstOperand(1)},
			Test:      sim.Test{Divisor: 3, IfTrue: 0, IfFalse: 0},
		},
	)
	c := NewCollector("")
	_, err := sim.Run(reg, 1, sim.Unbounded, sim.WithObserver(c))
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.selfThrows))
}
