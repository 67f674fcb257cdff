package player

import (
	"time"

	"go.uber.org/zap"

	"github.com/hyunwoo/cellvid/render"
)

// Scheduler drives the main playback loop: it pulls decoded frames from the
// producer, decides which one to present when, converts it to a cell grid
// and hands it to the display. Exactly one pixel-to-cells-to-render pipeline
// runs per consumed frame, frames are never presented out of timestamp
// order, and the cancellation flag is observed at least once per iteration.
type Scheduler struct {
	Proc    *render.FrameProcessor
	Display *render.DisplayManager
	Log     *zap.SugaredLogger

	// Interval is the nominal frame duration, used by the lock-step
	// strategy for pacing and by the timestamp strategy as the drop
	// budget reference.
	Interval time.Duration

	// Poll is the cancellation polling granularity.
	Poll time.Duration

	// EWMAAlpha and DropCostFactor tune the adaptive drop policy; see
	// Config.
	EWMAAlpha      float64
	DropCostFactor float64

	// OnFirstFrame fires when the playback clock starts, at receipt of
	// the first frame. Used to kick off audio in sync with video.
	OnFirstFrame func()

	started    bool
	clockStart time.Time
	pending    *Frame
	renderCost time.Duration // EWMA of recent render cost
	stats      Stats
}

// PlayTimestamped runs the timestamp-driven strategy: a playback clock
// starts at the first frame, each iteration presents the newest frame whose
// timestamp is due, stale frames are counted as dropped, and sleeps last
// exactly until the next frame's timestamp.
func (s *Scheduler) PlayTimestamped(frames <-chan Frame, cancel *CancelFlag) (stats Stats, err error) {
	gridW, _ := s.Proc.GridSize()
	wall := time.Now()
	defer func() {
		s.finish(wall)
		stats = s.stats
	}()

	for !cancel.Cancelled() {
		pick, eof := s.drain(frames, s.playback())

		if pick == nil {
			if eof && s.pending == nil {
				return s.stats, nil
			}
			if s.pending != nil {
				// The next frame is still in the future; sleep exactly
				// the remaining delta.
				if !sleepInterruptible(s.pending.PTS-s.playback(), s.Poll, cancel) {
					return s.stats, nil
				}
			} else {
				time.Sleep(s.Poll)
			}
			continue
		}

		// Under sustained overload, skip frames already behind schedule
		// instead of burning the frame budget on stale content.
		if s.overloaded() && s.playback()-pick.PTS > s.Interval && (s.pending != nil || !eof) {
			s.stats.Dropped++
			continue
		}

		if err := s.renderFrame(*pick, gridW); err != nil {
			return s.stats, err
		}
		if eof && s.pending == nil {
			return s.stats, nil
		}
	}
	return s.stats, nil
}

// PlayLockStep runs the simpler strategy: frame i is rendered strictly at
// clock start plus i frame intervals, sleeping to hold pace and never
// dropping. Drift accumulates if rendering is slower than the interval.
func (s *Scheduler) PlayLockStep(frames <-chan Frame, cancel *CancelFlag) (stats Stats, err error) {
	gridW, _ := s.Proc.GridSize()
	wall := time.Now()
	defer func() {
		s.finish(wall)
		stats = s.stats
	}()

	idx := 0
	for !cancel.Cancelled() {
		select {
		case f, ok := <-frames:
			if !ok {
				return s.stats, nil
			}
			if !s.started {
				s.startClock()
			}
			target := s.Interval * time.Duration(idx)
			if wait := target - s.playback(); wait > 0 {
				if !sleepInterruptible(wait, s.Poll, cancel) {
					return s.stats, nil
				}
			}
			if err := s.renderFrame(f, gridW); err != nil {
				return s.stats, err
			}
			idx++
		default:
			time.Sleep(s.Poll)
		}
	}
	return s.stats, nil
}

// playback is the current position of the playback clock; zero until the
// first frame arrives.
func (s *Scheduler) playback() time.Duration {
	if !s.started {
		return 0
	}
	return time.Since(s.clockStart)
}

func (s *Scheduler) startClock() {
	s.started = true
	s.clockStart = time.Now()
	if s.OnFirstFrame != nil {
		s.OnFirstFrame()
	}
}

// drain non-blockingly empties the ready portion of the queue and returns
// the newest frame whose timestamp is due at now. A superseded candidate
// counts as dropped when its successor is itself strictly behind the clock;
// the frame presented exactly on schedule does not charge a drop for the
// candidate it replaces. The first frame past now is held as pending for a
// later iteration. eof reports that the producer closed the channel.
func (s *Scheduler) drain(frames <-chan Frame, now time.Duration) (pick *Frame, eof bool) {
	if s.pending != nil && s.pending.PTS <= now {
		pick = s.pending
		s.pending = nil
	}
	for {
		select {
		case f, ok := <-frames:
			if !ok {
				return pick, true
			}
			if !s.started {
				s.startClock()
				now = s.playback()
			}
			if f.PTS > now {
				s.pending = &f
				return pick, false
			}
			if pick != nil && f.PTS < now {
				s.stats.Dropped++
			}
			pick = &f
		default:
			return pick, false
		}
	}
}

// observeCost folds one render's cost into the exponentially weighted
// moving average. The first observation seeds the average directly.
func (s *Scheduler) observeCost(cost time.Duration) {
	if s.renderCost == 0 {
		s.renderCost = cost
		return
	}
	s.renderCost = time.Duration(s.EWMAAlpha*float64(cost) + (1-s.EWMAAlpha)*float64(s.renderCost))
}

// overloaded reports whether the smoothed render cost exceeds the drop
// budget (frame interval times the configured factor).
func (s *Scheduler) overloaded() bool {
	if s.Interval <= 0 {
		return false
	}
	budget := time.Duration(float64(s.Interval) * s.DropCostFactor)
	return s.renderCost > budget
}

// renderFrame runs the one-frame pipeline and folds its cost into the EWMA.
func (s *Scheduler) renderFrame(f Frame, gridW int) error {
	begin := time.Now()
	cells := s.Proc.Process(f.RGB)
	err := s.Display.RenderDiff(cells, gridW)
	cost := time.Since(begin)
	s.observeCost(cost)
	s.stats.Rendered++

	if cost > 10*time.Millisecond {
		s.Log.Debugw("slow render", "cost", cost, "ewma", s.renderCost, "pts", f.PTS)
	}
	return err
}

func (s *Scheduler) finish(wall time.Time) {
	s.stats.Elapsed = time.Since(wall)
	if s.Display != nil {
		s.stats.WriterDropped = s.Display.FramesDropped()
	}
	s.Log.Infow("playback finished",
		"rendered", s.stats.Rendered,
		"dropped", s.stats.Dropped,
		"writer_dropped", s.stats.WriterDropped,
		"elapsed", s.stats.Elapsed,
		"mean_fps", s.stats.MeanFPS(),
	)
}
