package player

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hyunwoo/cellvid/render"
)

// Config carries every tunable of a playback session. The diff and drop
// thresholds were calibrated empirically; they are configuration, not
// contract, and a config file or flags may override any of them.
type Config struct {
	// Glyph strategy: "half" (1x2 pixels per cell) or "quad" (2x2).
	Glyph string `yaml:"glyph"`

	// Palette: "truecolor" or "256". Reduced-palette mode is an explicit
	// choice; terminal capabilities are never auto-detected.
	Palette string `yaml:"palette"`

	// Dither enables ordered Bayer dithering before palette lookup.
	// Only meaningful with the 256-color palette.
	Dither bool `yaml:"dither"`

	// DiffThreshold is the squared RGB distance under which a truecolor
	// cell is treated as unchanged by the diff renderer.
	DiffThreshold int `yaml:"diff_threshold"`

	// QueueCap bounds the decoder-to-scheduler frame queue for the
	// timestamp strategy; it should hold several seconds of frames.
	QueueCap int `yaml:"queue_cap"`

	// LockStepQueueCap bounds the queue for the lock-step strategy.
	LockStepQueueCap int `yaml:"lockstep_queue_cap"`

	// EWMAAlpha weights the moving average of per-frame render cost.
	EWMAAlpha float64 `yaml:"ewma_alpha"`

	// DropCostFactor scales the ideal frame interval: when the average
	// render cost exceeds interval*factor, the scheduler becomes willing
	// to skip frames that are already behind schedule.
	DropCostFactor float64 `yaml:"drop_cost_factor"`

	// PollInterval is the cancellation polling granularity; every sleep
	// is sliced to at most this duration.
	PollInterval time.Duration `yaml:"poll_interval"`

	LockStep bool `yaml:"lockstep"` // use the lock-step strategy instead of timestamps
	Fill     bool `yaml:"fill"`     // stretch to the terminal instead of letterboxing
	Loop     bool `yaml:"loop"`
	NoAudio  bool `yaml:"no_audio"`
	Debug    bool `yaml:"debug"`
}

// DefaultConfig returns the calibrated defaults.
func DefaultConfig() Config {
	return Config{
		Glyph:            "half",
		Palette:          "truecolor",
		DiffThreshold:    100,
		QueueCap:         120,
		LockStepQueueCap: 8,
		EWMAAlpha:        0.2,
		DropCostFactor:   1.2,
		PollInterval:     2 * time.Millisecond,
	}
}

// LoadConfig overlays a YAML file onto the defaults. A missing path is not
// an error; an unreadable or malformed file is.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// GlyphMode translates the configured glyph strategy.
func (c Config) GlyphMode() render.GlyphMode {
	if c.Glyph == "quad" {
		return render.QuadBlock
	}
	return render.HalfBlock
}

// ColorMode translates the configured palette.
func (c Config) ColorMode() render.ColorMode {
	if c.Palette == "256" {
		return render.Indexed256
	}
	return render.TrueColor
}

// Validate rejects values the pipeline cannot run with.
func (c Config) Validate() error {
	if c.Glyph != "half" && c.Glyph != "quad" {
		return fmt.Errorf("unknown glyph strategy %q", c.Glyph)
	}
	if c.Palette != "truecolor" && c.Palette != "256" {
		return fmt.Errorf("unknown palette %q", c.Palette)
	}
	if c.QueueCap < 1 || c.LockStepQueueCap < 1 {
		return fmt.Errorf("queue capacities must be positive")
	}
	if c.EWMAAlpha <= 0 || c.EWMAAlpha > 1 {
		return fmt.Errorf("ewma_alpha must be in (0, 1]")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	return nil
}
