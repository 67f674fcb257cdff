package player

import (
	"time"

	"github.com/asticode/go-astiav"
)

func init() {
	// Suppress FFmpeg log messages; stdout belongs to the renderer.
	astiav.SetLogLevel(astiav.LogLevelQuiet)
}

// Frame is one decoded video frame: an RGB24 pixel buffer of exactly
// Width*Height*3 bytes plus its presentation timestamp relative to playback
// start. Frames are move-only: ownership transfers with the value through
// channels and no two goroutines ever touch the same buffer.
type Frame struct {
	RGB    []byte
	Width  int
	Height int
	PTS    time.Duration
}

// Stats summarizes a finished playback session.
type Stats struct {
	Rendered      int
	Dropped       int
	WriterDropped uint64
	Elapsed       time.Duration
}

// MeanFPS is the average presentation rate over the whole session.
func (s Stats) MeanFPS() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Rendered) / s.Elapsed.Seconds()
}

// audioSampleRate is the rate all audio is resampled to for playback.
const audioSampleRate = 44100
