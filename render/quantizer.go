package render

import "sync"

// The 256-color quantizer maps RGB triples to xterm palette indices through a
// full 16 MiB lookup table. The table is built lazily on first use, exactly
// once per process, and never mutated afterwards, so it is safe to read from
// any number of goroutines without synchronization.
var (
	lutOnce  sync.Once
	colorLUT []uint8
)

// Quantize maps a 24-bit RGB color to the nearest xterm 256-color index.
// Same input always yields the same index. Black maps to 16 (darkest cube
// entry) and white to 231 (brightest).
func Quantize(r, g, b uint8) uint8 {
	lutOnce.Do(buildLUT)
	return colorLUT[int(r)<<16|int(g)<<8|int(b)]
}

func buildLUT() {
	lut := make([]uint8, 256*256*256)
	for r := 0; r < 256; r++ {
		for g := 0; g < 256; g++ {
			for b := 0; b < 256; b++ {
				lut[r<<16|g<<8|b] = rgbToANSI256(uint8(r), uint8(g), uint8(b))
			}
		}
	}
	colorLUT = lut
}

// rgbToANSI256 classifies a color into the xterm palette: near-equal channels
// route to the 24-step grayscale ramp (232-255), everything else to the 6x6x6
// color cube (16-231).
func rgbToANSI256(r, g, b uint8) uint8 {
	const grayTolerance = 8
	if absDiff(r, g) < grayTolerance && absDiff(r, b) < grayTolerance && absDiff(g, b) < grayTolerance {
		gray := (int(r) + int(g) + int(b)) / 3
		switch {
		case gray < 8:
			return 16 // darkest cube entry, below the gray ramp
		case gray > 238:
			return 231 // brightest cube entry, above the gray ramp
		default:
			return uint8(232 + (gray-8)*24/230)
		}
	}

	r6 := int(r) * 6 / 256
	g6 := int(g) * 6 / 256
	b6 := int(b) * 6 / 256
	return uint8(16 + 36*r6 + 6*g6 + b6)
}

// PaletteRGB returns the nominal RGB value of an xterm 256-color index.
// Used for error estimation and tests; the first 16 entries are the
// conventional approximations since real terminals vary.
func PaletteRGB(index uint8) (r, g, b uint8) {
	switch {
	case index < 16:
		c := standard16[index]
		return c[0], c[1], c[2]
	case index < 232:
		i := index - 16
		return cubeLevel(i / 36), cubeLevel((i / 6) % 6), cubeLevel(i % 6)
	default:
		gray := 8 + (index-232)*10
		return gray, gray, gray
	}
}

func cubeLevel(n uint8) uint8 {
	if n == 0 {
		return 0
	}
	return 55 + n*40
}

var standard16 = [16][3]uint8{
	{0, 0, 0}, {128, 0, 0}, {0, 128, 0}, {128, 128, 0},
	{0, 0, 128}, {128, 0, 128}, {0, 128, 128}, {192, 192, 192},
	{128, 128, 128}, {255, 0, 0}, {0, 255, 0}, {255, 255, 0},
	{0, 0, 255}, {255, 0, 255}, {0, 255, 255}, {255, 255, 255},
}

func absDiff(a, b uint8) int {
	d := int(a) - int(b)
	if d < 0 {
		return -d
	}
	return d
}
