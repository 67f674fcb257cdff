package player

import (
	"fmt"
	"time"

	"github.com/asticode/go-astiav"
	"go.uber.org/zap"

	"github.com/hyunwoo/cellvid/render"
)

const audioQueueCap = 64

// Player wires the collaborators of one playback session: decoder, frame
// processor, scheduler, display and audio. Construction order matters; the
// display owns the terminal and must be up before anything can fail loudly,
// and teardown restores the terminal on every exit path.
type Player struct {
	Path string
	Cfg  Config
	Log  *zap.SugaredLogger
}

// Play runs the session until end-of-stream, quit key, signal or error.
// With Loop enabled the media restarts from the beginning until cancelled,
// and the returned stats aggregate all passes.
func (p *Player) Play() (Stats, error) {
	if err := p.Cfg.Validate(); err != nil {
		return Stats{}, err
	}

	display, err := render.NewDisplayManager(render.DisplayConfig{
		Colors:        p.Cfg.ColorMode(),
		DiffThreshold: p.Cfg.DiffThreshold,
	}, p.Log)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to take over terminal: %w", err)
	}
	defer display.Close()

	cols, rows, err := render.TerminalSize()
	if err != nil {
		cols, rows = 80, 24
	}

	cancel := &CancelFlag{}
	stopSignals := notifyOnSignal(cancel)
	defer stopSignals()
	go pollKeyboard(cancel)

	var total Stats
	wall := time.Now()
	for !cancel.Cancelled() {
		stats, err := p.playOnce(display, cols, rows, cancel)
		total.Rendered += stats.Rendered
		total.Dropped += stats.Dropped
		if err != nil {
			total.Elapsed = time.Since(wall)
			total.WriterDropped = display.FramesDropped()
			return total, err
		}
		if !p.Cfg.Loop {
			break
		}
	}
	total.Elapsed = time.Since(wall)
	total.WriterDropped = display.FramesDropped()
	return total, nil
}

// playOnce runs a single pass over the media.
func (p *Player) playOnce(display *render.DisplayManager, cols, rows int, cancel *CancelFlag) (Stats, error) {
	dec, err := NewDecoder(p.Path, func(srcW, srcH int) (int, int) {
		return p.layout(srcW, srcH, cols, rows)
	}, p.Log)
	if err != nil {
		return Stats{}, err
	}
	defer dec.Close()

	srcW, srcH := dec.SourceSize()
	p.Log.Infow("opened media",
		"path", p.Path,
		"source", fmt.Sprintf("%dx%d", srcW, srcH),
		"interval", dec.FrameInterval(),
		"audio", dec.HasAudio(),
	)

	queueCap := p.Cfg.QueueCap
	if p.Cfg.LockStep {
		queueCap = p.Cfg.LockStepQueueCap
	}
	frames := make(chan Frame, queueCap)

	var audioCh chan *astiav.Packet
	var audio *AudioPlayer
	if dec.HasAudio() && !p.Cfg.NoAudio {
		audio, err = NewAudioPlayer(dec.AudioCodecParameters(), p.Log)
		if err != nil {
			p.Log.Warnw("audio unavailable, playing silent", "error", err)
		} else {
			defer audio.Close()
			audioCh = make(chan *astiav.Packet, audioQueueCap)
			go audio.DecodeLoop(audioCh)
		}
	}

	go dec.Run(frames, audioCh, p.Cfg.PollInterval, cancel)

	sched := &Scheduler{
		Proc:           p.processor(dec),
		Display:        display,
		Log:            p.Log,
		Interval:       dec.FrameInterval(),
		Poll:           p.Cfg.PollInterval,
		EWMAAlpha:      p.Cfg.EWMAAlpha,
		DropCostFactor: p.Cfg.DropCostFactor,
	}
	if audio != nil {
		sched.OnFirstFrame = func() {
			if err := audio.Start(); err != nil {
				p.Log.Warnw("audio start failed", "error", err)
			}
		}
	}

	if p.Cfg.LockStep {
		return sched.PlayLockStep(frames, cancel)
	}
	return sched.PlayTimestamped(frames, cancel)
}

func (p *Player) processor(dec *Decoder) *render.FrameProcessor {
	return &render.FrameProcessor{
		Width:  dec.dstWidth,
		Height: dec.dstHeight,
		Glyph:  p.Cfg.GlyphMode(),
		Colors: p.Cfg.ColorMode(),
		Dither: p.Cfg.Dither,
	}
}

// layout maps the source video size onto the terminal's pixel canvas. A
// half-block cell stacks two pixels vertically, which against the roughly
// 1:2 aspect of a terminal cell makes each pixel close to square. A quad
// cell packs 2x2 pixels into the same space, so its pixels are twice as
// tall as wide; the fit runs against a doubly-wide virtual source to
// compensate.
func (p *Player) layout(srcW, srcH, cols, rows int) (int, int) {
	var canvasW, canvasH int
	switch p.Cfg.GlyphMode() {
	case render.QuadBlock:
		canvasW, canvasH = cols*2, rows*2
		srcW *= 2
	default:
		canvasW, canvasH = cols, rows*2
	}

	w, h := canvasW, canvasH
	if !p.Cfg.Fill {
		w, h = fitDims(srcW, srcH, canvasW, canvasH)
	}
	// Even dimensions keep cells fully covered in both glyph modes.
	w -= w % 2
	h -= h % 2
	return w, h
}

// fitDims scales src into the max box preserving aspect ratio.
func fitDims(srcW, srcH, maxW, maxH int) (int, int) {
	if srcW <= 0 || srcH <= 0 {
		return maxW, maxH
	}
	if srcW*maxH >= srcH*maxW {
		return maxW, max(2, srcH*maxW/srcW)
	}
	return max(2, srcW*maxH/srcH), maxH
}
