package detection

import (
	"context"
	"log"
	"time"
)

// Run invokes Tick every interval until ctx is cancelled. On process
// start the loop runs immediately; afterwards it sleeps for interval
// after each tick completes rather than on a fixed-rate clock, so drift
// from slow ticks is tolerated rather than corrected. Per-tick panics
// are recovered and logged so the loop never dies; shutdown is observed
// only between ticks, never mid-tick.
//
// The core never spawns its own background goroutine implicitly. The
// caller decides whether to run this in a dedicated goroutine.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	for {
		e.runTickSafely(ctx)

		select {
		case <-ctx.Done():
			log.Printf("detection: scheduler loop stopping: %v", ctx.Err())
			return
		case <-time.After(interval):
		}
	}
}

func (e *Engine) runTickSafely(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("detection: tick panicked, continuing: %v", r)
			e.incErrors()
		}
	}()
	e.Tick(ctx)
}
