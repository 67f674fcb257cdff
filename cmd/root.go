package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyunwoo/cellvid/diag"
	"github.com/hyunwoo/cellvid/player"
	"github.com/hyunwoo/cellvid/tui"
)

var (
	configPath string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "cellvid",
	Short: "Play videos in the terminal",
	Long: "cellvid plays videos directly in the terminal using colored block\n" +
		"glyphs, with audio. Run without arguments for an interactive picker,\n" +
		"or pass a file to the play subcommand.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadBaseConfig()
		if err != nil {
			return err
		}
		path, cfg, ok, err := tui.Run(cfg)
		if err != nil || !ok {
			return err
		}
		return runPlayback(path, cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "write diagnostics to debug.log")
	rootCmd.AddCommand(playCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadBaseConfig() (player.Config, error) {
	cfg, err := player.LoadConfig(configPath)
	if err != nil {
		return cfg, err
	}
	cfg.Debug = cfg.Debug || debug
	return cfg, nil
}

// runPlayback hands the terminal to the player and prints the session
// report once it is restored.
func runPlayback(path string, cfg player.Config) error {
	log, flush, err := diag.NewLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer flush()

	p := &player.Player{Path: path, Cfg: cfg, Log: log}
	stats, err := p.Play()
	if err != nil {
		return err
	}

	fmt.Printf("rendered %d frames in %s (%.1f fps), scheduler dropped %d, writer dropped %d\n",
		stats.Rendered, stats.Elapsed.Round(time.Millisecond), stats.MeanFPS(),
		stats.Dropped, stats.WriterDropped)
	return nil
}
