package watcher

import (
	"context"
	"time"

	"taintlens/pkg/logging"
)

// Debouncer batches rapid file system events to avoid excessive re-analysis.
// Events are held until a quiet period elapses, or until maxWait has passed
// since the first buffered event.
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a new event debouncer
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 10),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start begins processing events with debouncing
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

// run accumulates events and flushes them once the input goes quiet. All
// state lives in this goroutine; the timers are only read here.
func (d *Debouncer) run(ctx context.Context) {
	quiet := time.NewTimer(d.quietPeriod)
	quiet.Stop()
	maxWait := time.NewTimer(d.maxWait)
	maxWait.Stop()

	accumulated := make(map[ChangeType][]string)
	eventCount := 0

	flush := func() {
		quiet.Stop()
		maxWait.Stop()
		if eventCount == 0 {
			return
		}

		logging.Debug("flushing accumulated events", "count", eventCount)

		// Findings changes first: they always force a full re-run.
		if paths := accumulated[ChangeTypeFindings]; len(paths) > 0 {
			d.output <- ChangeEvent{
				Type:      ChangeTypeFindings,
				Paths:     paths,
				Timestamp: time.Now(),
			}
		}
		if paths := accumulated[ChangeTypeSource]; len(paths) > 0 {
			d.output <- ChangeEvent{
				Type:      ChangeTypeSource,
				Paths:     paths,
				Timestamp: time.Now(),
			}
		}

		accumulated = make(map[ChangeType][]string)
		eventCount = 0
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			close(d.output)
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				close(d.output)
				return
			}

			accumulated[event.Type] = append(accumulated[event.Type], event.Paths...)
			if eventCount == 0 {
				maxWait.Reset(d.maxWait)
			}
			eventCount++
			quiet.Reset(d.quietPeriod)

		case <-quiet.C:
			flush()

		case <-maxWait.C:
			flush()
		}
	}
}

// Output returns the channel of debounced events
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}
