package player

import (
	"testing"

	"github.com/hyunwoo/cellvid/render"
)

func TestFitDims(t *testing.T) {
	tests := []struct {
		name                   string
		srcW, srcH, maxW, maxH int
		wantW, wantH           int
	}{
		{"wide source bound by width", 1920, 1080, 80, 48, 80, 45},
		{"tall source bound by height", 1080, 1920, 80, 48, 27, 48},
		{"exact fit", 160, 96, 80, 48, 80, 48},
		{"square box square source", 100, 100, 48, 48, 48, 48},
		{"degenerate source fills box", 0, 0, 80, 48, 80, 48},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := fitDims(tt.srcW, tt.srcH, tt.maxW, tt.maxH)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("fitDims(%d, %d, %d, %d) = %dx%d, want %dx%d",
					tt.srcW, tt.srcH, tt.maxW, tt.maxH, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestLayoutHalfBlock(t *testing.T) {
	p := &Player{Cfg: DefaultConfig()}
	w, h := p.layout(1920, 1080, 80, 24)

	if w > 80 || h > 48 {
		t.Fatalf("layout %dx%d exceeds 80x48 canvas", w, h)
	}
	if w%2 != 0 || h%2 != 0 {
		t.Errorf("layout %dx%d not even", w, h)
	}
	// 16:9 into an 80x48 canvas is width-bound.
	if w != 80 {
		t.Errorf("width = %d, want full 80 columns", w)
	}

	cols, rows := render.GridSize(w, h, render.HalfBlock)
	if cols > 80 || rows > 24 {
		t.Errorf("grid %dx%d exceeds the 80x24 terminal", cols, rows)
	}
}

func TestLayoutQuadBlockCompensatesAspect(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Glyph = "quad"
	p := &Player{Cfg: cfg}

	// A square source on a quad canvas: quad pixels are twice as tall as
	// wide, so the pixel grid must be twice as wide as high to display
	// square.
	w, h := p.layout(500, 500, 100, 50)
	if w != 2*h {
		t.Errorf("layout %dx%d, want width twice the height", w, h)
	}

	cols, rows := render.GridSize(w, h, render.QuadBlock)
	if cols > 100 || rows > 50 {
		t.Errorf("grid %dx%d exceeds the 100x50 terminal", cols, rows)
	}
}

func TestLayoutFillUsesWholeCanvas(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Fill = true
	p := &Player{Cfg: cfg}

	w, h := p.layout(1000, 1000, 80, 24)
	if w != 80 || h != 48 {
		t.Errorf("fill layout = %dx%d, want 80x48", w, h)
	}
}

func TestPlayRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Glyph = "sixel"
	p := &Player{Path: "ignored.mp4", Cfg: cfg}
	if _, err := p.Play(); err == nil {
		t.Fatal("invalid config accepted")
	}
}

func TestStatsMeanFPS(t *testing.T) {
	s := Stats{Rendered: 300, Elapsed: 10 * 1e9}
	if got := s.MeanFPS(); got != 30 {
		t.Errorf("MeanFPS() = %v, want 30", got)
	}
	if got := (Stats{}).MeanFPS(); got != 0 {
		t.Errorf("MeanFPS() on empty stats = %v, want 0", got)
	}
}
