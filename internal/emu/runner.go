package emu

import (
	"context"
	"io"
	"time"

	"github.com/djwormlight/chip8-interpreter/internal/chip8"
)

// Runner executes an interpreter on its own goroutine and publishes a
// snapshot after every completed cycle. The interpreter must not be touched
// by anyone else while Run is active.
type Runner struct {
	c        *chip8.Interpreter
	interval time.Duration
	out      chan chip8.Snapshot

	// Trace, when set before Run, receives one line per executed cycle in
	// the same format as Machine tracing.
	Trace io.Writer

	dropped uint64
}

// NewRunner prepares a runner executing one cycle per interval. A zero
// interval runs cycles back to back. buffer sizes the snapshot channel.
func NewRunner(c *chip8.Interpreter, interval time.Duration, buffer int) *Runner {
	if buffer < 1 {
		buffer = 1
	}
	return &Runner{
		c:        c,
		interval: interval,
		out:      make(chan chip8.Snapshot, buffer),
	}
}

// Snapshots is closed when Run returns.
func (r *Runner) Snapshots() <-chan chip8.Snapshot { return r.out }

// Dropped reports how many snapshots were discarded because the channel
// was full. Only valid after Run has returned.
func (r *Runner) Dropped() uint64 { return r.dropped }

// Run executes cycles until ctx is done or the interpreter halts. It returns
// ctx.Err() on cancellation and the halting error otherwise.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.out)

	var tick <-chan time.Time
	if r.interval > 0 {
		t := time.NewTicker(r.interval)
		defer t.Stop()
		tick = t.C
	}

	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		if r.Trace != nil {
			writeTrace(r.Trace, r.c)
		}
		if err := r.c.ExecuteCycle(); err != nil {
			return err
		}

		select {
		case r.out <- r.c.Snapshot():
		default:
			r.dropped++
		}
	}
}
