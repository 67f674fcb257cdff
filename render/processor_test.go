package render

import (
	"bytes"
	"testing"
)

// rgbFrame builds a pixel buffer from a list of colors, row-major.
func rgbFrame(colors ...[3]uint8) []byte {
	buf := make([]byte, 0, len(colors)*3)
	for _, c := range colors {
		buf = append(buf, c[0], c[1], c[2])
	}
	return buf
}

var (
	red    = [3]uint8{255, 0, 0}
	green  = [3]uint8{0, 255, 0}
	blue   = [3]uint8{0, 0, 255}
	yellow = [3]uint8{255, 255, 0}
	black  = [3]uint8{0, 0, 0}
	white  = [3]uint8{255, 255, 255}
)

func TestHalfBlockScenario(t *testing.T) {
	// 2x4 pixels, rows red/red, green/green, blue/blue, yellow/yellow.
	frame := rgbFrame(red, red, green, green, blue, blue, yellow, yellow)
	p := &FrameProcessor{Width: 2, Height: 4, Glyph: HalfBlock, Colors: TrueColor}

	cells := p.Process(frame)
	if len(cells) != 4 {
		t.Fatalf("grid length = %d, want 4", len(cells))
	}
	for i, c := range cells {
		if c.Glyph != glyphUpper {
			t.Errorf("cell[%d].Glyph = %q, want upper half block", i, c.Glyph)
		}
	}
	if cells[0].Fg != (Color{R: 255}) || cells[0].Bg != (Color{G: 255}) {
		t.Errorf("cell[0] = fg %+v bg %+v, want fg=red bg=green", cells[0].Fg, cells[0].Bg)
	}
	if cells[2].Fg != (Color{B: 255}) || cells[2].Bg != (Color{R: 255, G: 255}) {
		t.Errorf("cell[2] = fg %+v bg %+v, want fg=blue bg=yellow", cells[2].Fg, cells[2].Bg)
	}
}

func TestProcessIsPure(t *testing.T) {
	frame := make([]byte, 16*8*3)
	for i := range frame {
		frame[i] = byte(i * 7)
	}
	p := &FrameProcessor{Width: 16, Height: 8, Glyph: QuadBlock, Colors: Indexed256, Dither: true}

	a := p.Process(frame)
	b := p.Process(frame)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("conversion is not deterministic: cell %d differs (%+v vs %+v)", i, a[i], b[i])
		}
	}
}

func TestGridLengthInvariant(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		mode   GlyphMode
		expect int
	}{
		{"half block 64x32", 64, 32, HalfBlock, 64 * 16},
		{"half block 2x4", 2, 4, HalfBlock, 4},
		{"quad block 64x32", 64, 32, QuadBlock, 32 * 16},
		{"quad block 4x4", 4, 4, QuadBlock, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &FrameProcessor{Width: tt.w, Height: tt.h, Glyph: tt.mode, Colors: TrueColor}
			cells := p.Process(make([]byte, tt.w*tt.h*3))
			if len(cells) != tt.expect {
				t.Errorf("grid length = %d, want %d", len(cells), tt.expect)
			}
		})
	}
}

func TestUndersizedBufferReadsBlack(t *testing.T) {
	// Half the expected bytes: the missing lower rows must render black,
	// never fault.
	p := &FrameProcessor{Width: 4, Height: 4, Glyph: HalfBlock, Colors: TrueColor}
	frame := bytes.Repeat([]byte{255}, 4*2*3)

	cells := p.Process(frame)
	if len(cells) != 8 {
		t.Fatalf("grid length = %d, want 8", len(cells))
	}
	last := cells[len(cells)-1]
	if last.Fg != (Color{}) || last.Bg != (Color{}) {
		t.Errorf("out-of-range pixels should be black, got fg %+v bg %+v", last.Fg, last.Bg)
	}
	// First row is fully covered by the buffer and stays white.
	if cells[0].Fg != (Color{R: 255, G: 255, B: 255}) {
		t.Errorf("in-range pixel clobbered: %+v", cells[0].Fg)
	}
}

func TestQuadBlockShapeSelection(t *testing.T) {
	// Pixel order per 2x2 block: TL, TR, BL, BR.
	tests := []struct {
		name  string
		block [4][3]uint8
		glyph rune
		fg    Color
		bg    Color
	}{
		{
			name:  "solid block",
			block: [4][3]uint8{red, red, red, red},
			glyph: glyphFull,
			fg:    Color{R: 255},
			bg:    Color{R: 255},
		},
		{
			name:  "horizontal split",
			block: [4][3]uint8{white, white, black, black},
			glyph: glyphUpper,
			fg:    Color{R: 255, G: 255, B: 255},
			bg:    Color{},
		},
		{
			name:  "vertical split",
			block: [4][3]uint8{white, black, white, black},
			glyph: glyphLeft,
			fg:    Color{R: 255, G: 255, B: 255},
			bg:    Color{},
		},
		{
			name:  "top-left corner",
			block: [4][3]uint8{white, black, black, black},
			glyph: glyphQuadTL,
			fg:    Color{R: 255, G: 255, B: 255},
			bg:    Color{},
		},
		{
			name:  "bottom-right corner",
			block: [4][3]uint8{black, black, black, white},
			glyph: glyphQuadBR,
			fg:    Color{R: 255, G: 255, B: 255},
			bg:    Color{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &FrameProcessor{Width: 2, Height: 2, Glyph: QuadBlock, Colors: TrueColor}
			frame := rgbFrame(tt.block[0], tt.block[1], tt.block[2], tt.block[3])
			cells := p.Process(frame)
			if len(cells) != 1 {
				t.Fatalf("grid length = %d, want 1", len(cells))
			}
			c := cells[0]
			if c.Glyph != tt.glyph {
				t.Errorf("glyph = %q, want %q", c.Glyph, tt.glyph)
			}
			if c.Fg != tt.fg || c.Bg != tt.bg {
				t.Errorf("colors = fg %+v bg %+v, want fg %+v bg %+v", c.Fg, c.Bg, tt.fg, tt.bg)
			}
		})
	}
}

func TestQuadBlockPerfectReconstruction(t *testing.T) {
	// For every candidate shape pattern the chosen reconstruction must have
	// zero error, so the minimum-error search can never pick a worse glyph.
	for _, shape := range quadShapes {
		var block [4][3]uint8
		for i := range block {
			if shape.mask&(1<<i) != 0 {
				block[i] = white
			} else {
				block[i] = blue
			}
		}
		p := &FrameProcessor{Width: 2, Height: 2, Glyph: QuadBlock, Colors: TrueColor}
		cells := p.Process(rgbFrame(block[0], block[1], block[2], block[3]))

		got := [4]Color{}
		for i := range got {
			if shape.mask&(1<<i) != 0 {
				got[i] = cells[0].Fg
			} else {
				got[i] = cells[0].Bg
			}
		}
		for i, want := range block {
			if got[i] != (Color{R: want[0], G: want[1], B: want[2]}) {
				t.Errorf("mask %04b: pixel %d reconstructs to %+v, want %v", shape.mask, i, got[i], want)
			}
		}
	}
}

func TestBayerMatrixIsPermutation(t *testing.T) {
	seen := [64]bool{}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			v := bayer8x8[y][x]
			if v < 0 || v > 63 || seen[v] {
				t.Fatalf("threshold matrix is not a permutation of 0..63: %d at (%d,%d)", v, x, y)
			}
			seen[v] = true
		}
	}
}

func TestIndexedModeProducesValidIndices(t *testing.T) {
	frame := rgbFrame(red, green, blue, yellow)
	p := &FrameProcessor{Width: 2, Height: 2, Glyph: HalfBlock, Colors: Indexed256, Dither: true}
	for _, c := range p.Process(frame) {
		if c.Fg.Index < 16 || c.Bg.Index < 16 {
			t.Errorf("saturated colors must land in the cube, got fg=%d bg=%d", c.Fg.Index, c.Bg.Index)
		}
	}
}
