package niawave

import (
	"context"
	"time"

	"github.com/niawave/niawave/nia"
	"github.com/pkg/errors"
)

// Run cycles the pipeline until ctx is done, handing every frame to sinks and
// sending a STATUS update on updates (if non-nil) after each cycle. With
// tick > 0 cycles start no more often than once per tick; otherwise they run
// back to back. Device errors are logged and counted, and the loop goes on.
// A *BufferOverrunError stops the loop and is returned.
func Run(ctx context.Context, p *Pipeline, tick time.Duration, updates chan<- ClientUpdate, sinks ...FrameSink) error {
	var ticks <-chan time.Time
	if tick > 0 {
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		ticks = ticker.C
	}

	status := Status{Connected: p.Connected()}
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		frame, err := p.Cycle(sinks...)
		var overrun *BufferOverrunError
		switch {
		case errors.As(err, &overrun):
			ProblemLogger.Printf("Stopping: %v", err)
			return err
		case nia.IsTimeout(err):
			status.Failures++
			status.LastError = err.Error()
			ProblemLogger.Printf("Cycle %d: device read timed out", p.Cycles()+1)
		case err != nil:
			status.Failures++
			status.LastError = err.Error()
			ProblemLogger.Printf("Cycle %d failed: %v", p.Cycles()+1, err)
		}

		if updates != nil {
			status.Cycles = p.Cycles()
			status.Peak = frame.Peak
			status.Bands = frame.Bands
			status.Time = time.Now()
			select {
			case updates <- ClientUpdate{"STATUS", status}:
			case <-ctx.Done():
				return nil
			}
		}

		if ticks != nil {
			select {
			case <-ticks:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
