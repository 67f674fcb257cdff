package player

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"
)

// CancelFlag is the single piece of state shared across the producer,
// consumer and input contexts: a one-way latch set by the quit key or an OS
// interrupt and polled every loop iteration. Once set, playback halts within
// one polling tick.
type CancelFlag struct {
	set atomic.Bool
}

// Cancel latches the flag. Safe to call from any goroutine, any number of
// times.
func (c *CancelFlag) Cancel() { c.set.Store(true) }

// Cancelled reports whether the flag has been latched.
func (c *CancelFlag) Cancelled() bool { return c.set.Load() }

// notifyOnSignal latches the flag on SIGINT or SIGTERM and returns a
// function that detaches the handler.
func notifyOnSignal(cancel *CancelFlag) (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		for range ch {
			cancel.Cancel()
		}
	}()
	return func() {
		signal.Stop(ch)
		close(ch)
	}
}

// sleepInterruptible sleeps for d, slicing the wait into poll-sized pieces
// so the cancellation flag is observed with sub-frame granularity. Returns
// false if the flag was latched before the full duration elapsed.
func sleepInterruptible(d, poll time.Duration, cancel *CancelFlag) bool {
	deadline := time.Now().Add(d)
	for {
		if cancel.Cancelled() {
			return false
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		if remaining > poll {
			remaining = poll
		}
		time.Sleep(remaining)
	}
}
