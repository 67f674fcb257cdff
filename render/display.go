package render

import (
	"bufio"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Session bracketing. The init sequence enters the alternate screen, hides
// the cursor, disables line wrap and cursor blink; teardown restores each.
const (
	seqInit    = "\x1b[?1049h\x1b[?25l\x1b[?7l\x1b[?12l"
	seqRestore = "\x1b[0m\x1b[?12h\x1b[?7h\x1b[?25h\x1b[?1049l"
)

// writerQueueCap bounds the renderer-to-writer queue. Capacity 2 allows one
// frame being written and one waiting; when the writer falls further behind,
// completed frames are discarded instead of stalling the render loop.
const writerQueueCap = 2

// DisplayConfig carries the tunables of the diff renderer.
type DisplayConfig struct {
	Colors ColorMode

	// DiffThreshold is the squared RGB distance below which a truecolor
	// cell is considered unchanged. Zero requires exact equality.
	DiffThreshold int
}

// DisplayManager owns the terminal for the duration of a session. It diffs
// incoming cell grids against the previously rendered one, encodes minimal
// escape sequences and hands the bytes to a dedicated writer goroutine that
// serializes output, decoupling slow terminal I/O from render computation.
//
// Construction switches the terminal into raw mode and the alternate screen;
// Close restores it. Close must run on every exit path.
type DisplayManager struct {
	enc frameEncoder
	log *zap.SugaredLogger

	frames     chan []byte
	writerDone chan struct{}
	writeErr   atomic.Value // error from the writer goroutine, if any

	restoreTermios func()
	closeOnce      sync.Once

	framesDropped atomic.Uint64
}

// NewDisplayManager initializes the terminal and starts the writer
// goroutine. Failure to enter raw mode aborts before any frame is rendered.
func NewDisplayManager(cfg DisplayConfig, log *zap.SugaredLogger) (*DisplayManager, error) {
	restore, err := enterRawMode()
	if err != nil {
		return nil, err
	}

	d := &DisplayManager{
		enc:            frameEncoder{colors: cfg.Colors, threshold: cfg.DiffThreshold},
		log:            log,
		frames:         make(chan []byte, writerQueueCap),
		writerDone:     make(chan struct{}),
		restoreTermios: restore,
	}

	go d.writerLoop()
	d.frames <- []byte(seqInit)
	return d, nil
}

// writerLoop owns stdout. It drains the frame queue, writing and flushing
// one encoded frame at a time. On a write failure it logs, stops consuming
// and leaves teardown to Close.
func (d *DisplayManager) writerLoop() {
	defer close(d.writerDone)

	w := bufio.NewWriterSize(os.Stdout, 4*1024*1024)
	for buf := range d.frames {
		if d.writeErr.Load() != nil {
			continue // keep draining so the renderer never blocks
		}
		if _, err := w.Write(buf); err != nil {
			d.failWrite(err)
			continue
		}
		if err := w.Flush(); err != nil {
			d.failWrite(err)
		}
	}
}

func (d *DisplayManager) failWrite(err error) {
	d.writeErr.Store(err)
	d.log.Errorw("terminal write failed", "error", err)
}

// RenderDiff encodes the difference between grid and the previously rendered
// frame and enqueues the bytes non-blockingly. If the writer is behind, the
// frame is dropped; backpressure never stalls the caller. width is the grid
// width in cells.
func (d *DisplayManager) RenderDiff(grid []Cell, width int) error {
	if err, ok := d.writeErr.Load().(error); ok {
		return fmt.Errorf("terminal writer failed: %w", err)
	}

	termCols, termRows, err := TerminalSize()
	if err != nil {
		termCols, termRows = 80, 24
	}

	buf, _ := d.enc.encode(nil, grid, width, termCols, termRows)

	select {
	case d.frames <- buf:
	default:
		d.framesDropped.Add(1)
	}
	return nil
}

// FramesDropped returns how many encoded frames were discarded because the
// writer was behind.
func (d *DisplayManager) FramesDropped() uint64 {
	return d.framesDropped.Load()
}

// Close tears the session down: stops the writer, restores the terminal
// (cursor, alternate screen, line wrap, cooked mode) and is safe to call
// more than once. The restore bytes are written directly so they reach the
// terminal even if the writer goroutine died on an earlier error.
func (d *DisplayManager) Close() {
	d.closeOnce.Do(func() {
		close(d.frames)
		<-d.writerDone
		os.Stdout.WriteString(seqRestore)
		d.restoreTermios()
	})
}
