package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hyunwoo/cellvid/player"
)

var (
	flagGlyph         string
	flagPalette       string
	flagDither        bool
	flagFill          bool
	flagLockstep      bool
	flagLoop          bool
	flagNoAudio       bool
	flagDiffThreshold int
)

var playCmd = &cobra.Command{
	Use:   "play <file>",
	Short: "Play a video file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(args[0]); err != nil {
			return fmt.Errorf("cannot open %s: %w", args[0], err)
		}
		cfg, err := loadBaseConfig()
		if err != nil {
			return err
		}
		applyFlags(cmd, &cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}
		return runPlayback(args[0], cfg)
	},
}

func init() {
	f := playCmd.Flags()
	f.StringVar(&flagGlyph, "glyph", "half", `glyph strategy: "half" (1x2 pixels per cell) or "quad" (2x2)`)
	f.StringVar(&flagPalette, "palette", "truecolor", `color palette: "truecolor" or "256"`)
	f.BoolVar(&flagDither, "dither", false, "ordered dithering, for the 256-color palette")
	f.BoolVar(&flagFill, "fill", false, "stretch to the whole terminal instead of letterboxing")
	f.BoolVar(&flagLockstep, "lockstep", false, "pace frames by index instead of timestamps (never drops)")
	f.BoolVar(&flagLoop, "loop", false, "restart playback at end of stream")
	f.BoolVar(&flagNoAudio, "no-audio", false, "play without sound")
	f.IntVar(&flagDiffThreshold, "diff-threshold", 100, "squared RGB distance under which a cell counts as unchanged")
}

// applyFlags overlays only the flags the user actually set, so flag
// defaults do not clobber config file values.
func applyFlags(cmd *cobra.Command, cfg *player.Config) {
	f := cmd.Flags()
	if f.Changed("glyph") {
		cfg.Glyph = flagGlyph
	}
	if f.Changed("palette") {
		cfg.Palette = flagPalette
	}
	if f.Changed("dither") {
		cfg.Dither = flagDither
	}
	if f.Changed("fill") {
		cfg.Fill = flagFill
	}
	if f.Changed("lockstep") {
		cfg.LockStep = flagLockstep
	}
	if f.Changed("loop") {
		cfg.Loop = flagLoop
	}
	if f.Changed("no-audio") {
		cfg.NoAudio = flagNoAudio
	}
	if f.Changed("diff-threshold") {
		cfg.DiffThreshold = flagDiffThreshold
	}
}
