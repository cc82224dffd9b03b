package logging

import (
	"context"
	"log/slog"

	"github.com/serbanrobu/keepaway/internal/sim"
)

// Observer reports simulation progress to a slog.Logger and, when set, a
// TraceLogger.
type Observer struct {
	logger *slog.Logger
	trace  *TraceLogger
	run    string
}

var _ sim.Observer = (*Observer)(nil)

// NewObserver returns an observer for the run identified by run. run is only
// written to the trace; logger is expected to carry its own run attribute.
// trace may be nil.
func NewObserver(logger *slog.Logger, trace *TraceLogger, run string) *Observer {
	return &Observer{logger: logger, trace: trace, run: run}
}

// ItemThrown logs a single throw at trace level.
func (o *Observer) ItemThrown(round, from, to int, before, after sim.Item) {
	if !o.logger.Enabled(context.Background(), LevelTrace) {
		return
	}
	o.logger.Log(context.Background(), LevelTrace, "item thrown",
		"round", round, "from", from, "to", to, "before", before, "after", after)
}

// RoundCompleted logs the round at debug level and appends it to the trace.
func (o *Observer) RoundCompleted(round int, reg *sim.Registry) {
	queued := make([]int, reg.Len())
	for i, w := range reg.Workers {
		queued[i] = len(w.Items)
	}
	inspections := reg.Inspections()

	o.logger.Debug("round completed", "round", round, "inspections", inspections)
	o.trace.Log(RoundRecord{
		Run:         o.run,
		Round:       round,
		Inspections: inspections,
		Queued:      queued,
	})
}
