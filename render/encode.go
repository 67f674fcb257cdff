package render

import (
	"strconv"
	"unicode/utf8"
)

// Escape sequences shared by the encoder and the display manager.
const (
	seqSyncBegin = "\x1b[?2026h"
	seqSyncEnd   = "\x1b[?2026l"
	seqClear     = "\x1b[2J"
	seqReset     = "\x1b[0m"
)

// frameEncoder turns successive cell grids into minimal escape-sequence byte
// streams. It owns the render state: the previously encoded grid, the last
// emitted foreground/background colors and the virtual cursor position.
// A change in grid length invalidates the state and forces a full repaint.
type frameEncoder struct {
	colors    ColorMode
	threshold int // squared RGB distance under which truecolor churn is ignored
	prev      []Cell
}

// encode appends one frame update to buf and returns it together with the
// number of cells actually emitted. The whole frame is wrapped in a
// synchronized-update bracket so the terminal swaps it atomically, and ends
// with a full style reset. Content is centered when the terminal is larger
// than the grid, and clipped at the terminal bounds when it is smaller.
func (e *frameEncoder) encode(buf []byte, cells []Cell, width, termCols, termRows int) ([]byte, int) {
	buf = append(buf, seqSyncBegin...)

	force := false
	if len(e.prev) != len(cells) {
		buf = append(buf, seqClear...)
		e.prev = make([]Cell, len(cells))
		force = true
	}

	if width < 1 {
		width = 1
	}
	contentRows := len(cells) / width
	offX, offY := 0, 0
	if termCols > width {
		offX = (termCols - width) / 2
	}
	if termRows > contentRows {
		offY = (termRows - contentRows) / 2
	}

	// Last emitted colors are tracked across the whole frame, so runs of
	// same-colored cells emit a single SGR. The virtual cursor avoids
	// cursor moves between screen-contiguous changed cells.
	var lastFg, lastBg Color
	haveFg, haveBg := false, false
	cursorX, cursorY := -1, -1
	changed := 0

	for i, cell := range cells {
		if !force && !e.cellChanged(cell, e.prev[i]) {
			cursorX = -1
			continue
		}

		x := i%width + offX
		y := i/width + offY
		if x >= termCols || y >= termRows {
			// Clipped cells keep their stale previous state so they
			// repaint if the terminal grows back.
			cursorX = -1
			continue
		}

		if cursorX != x || cursorY != y {
			buf = appendCursorMove(buf, y+1, x+1)
			cursorY = y
		}

		if cell.Fg != lastFg || !haveFg {
			buf = e.appendColor(buf, cell.Fg, false)
			lastFg, haveFg = cell.Fg, true
		}
		if cell.Bg != lastBg || !haveBg {
			buf = e.appendColor(buf, cell.Bg, true)
			lastBg, haveBg = cell.Bg, true
		}

		buf = utf8.AppendRune(buf, cell.Glyph)
		e.prev[i] = cell
		cursorX = x + 1
		changed++
	}

	buf = append(buf, seqReset...)
	buf = append(buf, seqSyncEnd...)
	return buf, changed
}

// cellChanged reports whether a cell needs repainting. Truecolor sessions
// use a lossy comparison: squared color distance within the threshold is
// treated as unchanged, suppressing imperceptible decode-induced churn.
func (e *frameEncoder) cellChanged(next, prev Cell) bool {
	if next.Glyph != prev.Glyph {
		return true
	}
	if e.colors == Indexed256 {
		return next.Fg.Index != prev.Fg.Index || next.Bg.Index != prev.Bg.Index
	}
	return colorDistanceSq(next.Fg, prev.Fg) > e.threshold ||
		colorDistanceSq(next.Bg, prev.Bg) > e.threshold
}

// appendCursorMove emits ESC[{row};{col}H with 1-based coordinates.
func appendCursorMove(buf []byte, row, col int) []byte {
	buf = append(buf, "\x1b["...)
	buf = strconv.AppendInt(buf, int64(row), 10)
	buf = append(buf, ';')
	buf = strconv.AppendInt(buf, int64(col), 10)
	return append(buf, 'H')
}

// appendColor emits a foreground or background SGR in the session's color
// encoding: 38;2;R;G;B / 48;2;R;G;B for truecolor, 38;5;N / 48;5;N indexed.
func (e *frameEncoder) appendColor(buf []byte, c Color, background bool) []byte {
	if background {
		buf = append(buf, "\x1b[48;"...)
	} else {
		buf = append(buf, "\x1b[38;"...)
	}
	if e.colors == Indexed256 {
		buf = append(buf, "5;"...)
		buf = strconv.AppendInt(buf, int64(c.Index), 10)
	} else {
		buf = append(buf, "2;"...)
		buf = strconv.AppendInt(buf, int64(c.R), 10)
		buf = append(buf, ';')
		buf = strconv.AppendInt(buf, int64(c.G), 10)
		buf = append(buf, ';')
		buf = strconv.AppendInt(buf, int64(c.B), 10)
	}
	return append(buf, 'm')
}
