package render

// GlyphMode selects how pixel blocks map onto character cells.
type GlyphMode int

const (
	// HalfBlock maps one cell to a 1x2 pixel column using the upper
	// half block, top pixel as foreground and bottom pixel as background.
	HalfBlock GlyphMode = iota

	// QuadBlock maps one cell to a 2x2 pixel block, choosing the block
	// glyph that reconstructs the four pixels with minimum color error.
	QuadBlock
)

// ColorMode selects how cell colors are encoded on the wire.
type ColorMode int

const (
	// TrueColor emits 24-bit SGR sequences (38;2;R;G;B).
	TrueColor ColorMode = iota

	// Indexed256 emits 8-bit palette SGR sequences (38;5;N), reducing
	// per-cell bandwidth at the cost of color fidelity.
	Indexed256
)

// Color is either a 24-bit RGB triple or an 8-bit palette index, depending
// on the session's ColorMode. A session uses exactly one encoding for its
// whole lifetime; the two are never mixed within a grid.
type Color struct {
	R, G, B uint8
	Index   uint8
}

// Cell is one rendered character cell: a glyph from the block alphabet plus
// foreground and background colors.
type Cell struct {
	Glyph rune
	Fg    Color
	Bg    Color
}

// Block glyph alphabet. Quad-block reconstruction picks from all of these;
// half-block mode only ever emits glyphUpper.
const (
	glyphFull   = '█'
	glyphUpper  = '▀'
	glyphLeft   = '▌'
	glyphQuadTL = '▘'
	glyphQuadTR = '▝'
	glyphQuadBL = '▖'
	glyphQuadBR = '▗'
)

// GridSize returns the cell grid dimensions implied by a pixel frame of
// pxWidth x pxHeight under the given glyph mode.
func GridSize(pxWidth, pxHeight int, mode GlyphMode) (cols, rows int) {
	switch mode {
	case QuadBlock:
		return pxWidth / 2, pxHeight / 2
	default:
		return pxWidth, pxHeight / 2
	}
}

// colorDistanceSq is the squared Euclidean distance between two RGB triples.
func colorDistanceSq(a, b Color) int {
	dr := int(a.R) - int(b.R)
	dg := int(a.G) - int(b.G)
	db := int(a.B) - int(b.B)
	return dr*dr + dg*dg + db*db
}
