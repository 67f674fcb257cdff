package render

import (
	"runtime"
	"sync"
)

// bayer8x8 is the ordered-dither threshold matrix, indexed by (y%8, x%8).
// Subtracting 32 centers the offset around zero.
var bayer8x8 = [8][8]int{
	{0, 32, 8, 40, 2, 34, 10, 42},
	{48, 16, 56, 24, 50, 18, 58, 26},
	{12, 44, 4, 36, 14, 46, 6, 38},
	{60, 28, 52, 20, 62, 30, 54, 22},
	{3, 35, 11, 43, 1, 33, 9, 41},
	{51, 19, 59, 27, 49, 17, 57, 25},
	{15, 47, 7, 39, 13, 45, 5, 37},
	{63, 31, 55, 23, 61, 29, 53, 21},
}

// FrameProcessor converts raw RGB24 pixel buffers into cell grids. It holds
// only immutable configuration, so a single processor may be shared and
// Process called from any goroutine. Conversion is a pure function of the
// pixel buffer: identical input yields an identical grid.
type FrameProcessor struct {
	Width  int // pixel width of incoming frames
	Height int // pixel height of incoming frames
	Glyph  GlyphMode
	Colors ColorMode
	Dither bool // Bayer pre-quantization dither, Indexed256 sessions only
}

// GridSize returns the cell dimensions of grids produced by this processor.
func (p *FrameProcessor) GridSize() (cols, rows int) {
	return GridSize(p.Width, p.Height, p.Glyph)
}

// Process converts a pixel buffer into a freshly allocated cell grid.
// The buffer is expected to hold Width*Height*3 bytes; any pixel outside
// the readable range is treated as black rather than faulting, keeping the
// pipeline resilient to a misbehaving decoder.
func (p *FrameProcessor) Process(pixels []byte) []Cell {
	cols, rows := p.GridSize()
	cells := make([]Cell, cols*rows)
	p.ProcessInto(pixels, cells)
	return cells
}

// ProcessInto converts a pixel buffer into cells, which must have exactly
// GridSize() length. Cells are computed independently of each other, chunked
// across the available parallelism for cache locality.
func (p *FrameProcessor) ProcessInto(pixels []byte, cells []Cell) {
	cols, rows := p.GridSize()
	total := cols * rows
	if len(cells) != total || total == 0 {
		return
	}

	chunk := chunkSize(total)
	var wg sync.WaitGroup
	for start := 0; start < total; start += chunk {
		end := start + chunk
		if end > total {
			end = total
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				cells[i] = p.cellAt(pixels, i%cols, i/cols)
			}
		}(start, end)
	}
	wg.Wait()
}

// chunkSize trades goroutine dispatch overhead against cache locality:
// large grids use a fixed chunk, small ones split evenly across CPUs.
func chunkSize(total int) int {
	if total > 10000 {
		return 2000
	}
	n := total / runtime.NumCPU()
	if n < 1 {
		n = 1
	}
	return n
}

func (p *FrameProcessor) cellAt(pixels []byte, cx, cy int) Cell {
	if p.Glyph == QuadBlock {
		return p.quadCell(pixels, cx, cy)
	}
	return p.halfCell(pixels, cx, cy)
}

// halfCell renders a 1x2 pixel column: top pixel as foreground, bottom as
// background, under the upper half block.
func (p *FrameProcessor) halfCell(pixels []byte, cx, cy int) Cell {
	top := p.pixel(pixels, cx, cy*2)
	bottom := p.pixel(pixels, cx, cy*2+1)
	return Cell{
		Glyph: glyphUpper,
		Fg:    p.finalize(top, cx, cy*2),
		Bg:    p.finalize(bottom, cx, cy*2+1),
	}
}

// quadShapes are the candidate reconstructions for a 2x2 block. Each mask
// has bit i set when pixel i (order TL, TR, BL, BR) is covered by the
// foreground. Solid comes first so uniform blocks resolve to it on ties.
var quadShapes = []struct {
	glyph rune
	mask  uint8
}{
	{glyphFull, 0b1111},
	{glyphUpper, 0b0011},
	{glyphLeft, 0b0101},
	{glyphQuadTL, 0b0001},
	{glyphQuadTR, 0b0010},
	{glyphQuadBL, 0b0100},
	{glyphQuadBR, 0b1000},
}

// quadCell evaluates every candidate shape against the actual 2x2 pixel
// block, scoring by summed squared color error, and keeps the minimum.
// This is an exhaustive nearest-shape search, not a heuristic.
func (p *FrameProcessor) quadCell(pixels []byte, cx, cy int) Cell {
	px, py := cx*2, cy*2
	block := [4]Color{
		p.pixel(pixels, px, py),
		p.pixel(pixels, px+1, py),
		p.pixel(pixels, px, py+1),
		p.pixel(pixels, px+1, py+1),
	}
	if p.Dither && p.Colors == Indexed256 {
		block[0] = ditherColor(block[0], px, py)
		block[1] = ditherColor(block[1], px+1, py)
		block[2] = ditherColor(block[2], px, py+1)
		block[3] = ditherColor(block[3], px+1, py+1)
	}

	best := Cell{}
	bestErr := -1
	for _, shape := range quadShapes {
		fg, bg := splitMeans(block, shape.mask)
		e := 0
		for i, c := range block {
			if shape.mask&(1<<i) != 0 {
				e += colorDistanceSq(c, fg)
			} else {
				e += colorDistanceSq(c, bg)
			}
		}
		if bestErr < 0 || e < bestErr {
			bestErr = e
			best = Cell{Glyph: shape.glyph, Fg: fg, Bg: bg}
		}
	}

	if p.Colors == Indexed256 {
		best.Fg = indexed(best.Fg)
		best.Bg = indexed(best.Bg)
	}
	return best
}

// splitMeans averages the covered pixels into the foreground color and the
// uncovered ones into the background. A full mask reuses the foreground as
// background so solid cells stay well-defined.
func splitMeans(block [4]Color, mask uint8) (fg, bg Color) {
	var fr, fgreen, fb, fn int
	var br, bgreen, bb, bn int
	for i, c := range block {
		if mask&(1<<i) != 0 {
			fr += int(c.R)
			fgreen += int(c.G)
			fb += int(c.B)
			fn++
		} else {
			br += int(c.R)
			bgreen += int(c.G)
			bb += int(c.B)
			bn++
		}
	}
	if fn > 0 {
		fg = Color{R: uint8(fr / fn), G: uint8(fgreen / fn), B: uint8(fb / fn)}
	}
	if bn > 0 {
		bg = Color{R: uint8(br / bn), G: uint8(bgreen / bn), B: uint8(bb / bn)}
	} else {
		bg = fg
	}
	return fg, bg
}

// pixel reads one RGB pixel, substituting black for any out-of-range read.
func (p *FrameProcessor) pixel(pixels []byte, x, y int) Color {
	if x < 0 || y < 0 || x >= p.Width || y >= p.Height {
		return Color{}
	}
	off := (y*p.Width + x) * 3
	if off+2 >= len(pixels) {
		return Color{}
	}
	return Color{R: pixels[off], G: pixels[off+1], B: pixels[off+2]}
}

// finalize applies optional dithering and palette quantization to a color,
// in half-block mode where each pixel becomes one cell color directly.
func (p *FrameProcessor) finalize(c Color, x, y int) Color {
	if p.Colors != Indexed256 {
		return c
	}
	if p.Dither {
		c = ditherColor(c, x, y)
	}
	return indexed(c)
}

// ditherColor adds the position-dependent Bayer offset to each channel
// before palette lookup, diffusing banding from palette reduction.
func ditherColor(c Color, x, y int) Color {
	noise := bayer8x8[y&7][x&7] - 32
	return Color{
		R: clampChannel(int(c.R) + noise),
		G: clampChannel(int(c.G) + noise),
		B: clampChannel(int(c.B) + noise),
	}
}

func clampChannel(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func indexed(c Color) Color {
	return Color{Index: Quantize(c.R, c.G, c.B)}
}
