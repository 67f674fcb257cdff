package player

import (
	"testing"
	"time"
)

func TestSleepInterruptibleCompletes(t *testing.T) {
	cancel := &CancelFlag{}
	start := time.Now()
	if !sleepInterruptible(20*time.Millisecond, 2*time.Millisecond, cancel) {
		t.Fatal("uncancelled sleep reported interruption")
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("slept %v, want at least 20ms", elapsed)
	}
}

func TestSleepInterruptibleObservesCancellation(t *testing.T) {
	cancel := &CancelFlag{}
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel.Cancel()
	}()

	start := time.Now()
	if sleepInterruptible(10*time.Second, 2*time.Millisecond, cancel) {
		t.Fatal("cancelled sleep reported completion")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancellation took %v, want well under the full sleep", elapsed)
	}
}

func TestSleepInterruptibleAlreadyCancelled(t *testing.T) {
	cancel := &CancelFlag{}
	cancel.Cancel()
	if sleepInterruptible(time.Second, 2*time.Millisecond, cancel) {
		t.Fatal("sleep under a set flag reported completion")
	}
}

func TestCancelFlagLatches(t *testing.T) {
	cancel := &CancelFlag{}
	if cancel.Cancelled() {
		t.Fatal("fresh flag reads cancelled")
	}
	cancel.Cancel()
	cancel.Cancel()
	if !cancel.Cancelled() {
		t.Fatal("flag did not latch")
	}
}
