package tui

import (
	"os"

	"github.com/charmbracelet/bubbles/filepicker"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hyunwoo/cellvid/player"
)

// videoExtensions is what the picker offers; anything FFmpeg can demux
// plays, these are just the common containers.
var videoExtensions = []string{".mp4", ".mkv", ".avi", ".webm", ".mov"}

// State represents the app state
type state int

const (
	statePicking state = iota
	stateOptions
)

// option is one row of the playback options menu.
type option struct {
	label  string
	value  func(player.Config) string
	toggle func(*player.Config)
}

var options = []option{
	{
		label: "Glyphs",
		value: func(c player.Config) string { return c.Glyph },
		toggle: func(c *player.Config) {
			if c.Glyph == "half" {
				c.Glyph = "quad"
			} else {
				c.Glyph = "half"
			}
		},
	},
	{
		label: "Palette",
		value: func(c player.Config) string { return c.Palette },
		toggle: func(c *player.Config) {
			if c.Palette == "truecolor" {
				c.Palette = "256"
			} else {
				c.Palette = "truecolor"
			}
		},
	},
	{
		label:  "Dither",
		value:  func(c player.Config) string { return onOff(c.Dither) },
		toggle: func(c *player.Config) { c.Dither = !c.Dither },
	},
	{
		label:  "Fill screen",
		value:  func(c player.Config) string { return onOff(c.Fill) },
		toggle: func(c *player.Config) { c.Fill = !c.Fill },
	},
	{
		label: "Timing",
		value: func(c player.Config) string {
			if c.LockStep {
				return "lock-step"
			}
			return "timestamps"
		},
		toggle: func(c *player.Config) { c.LockStep = !c.LockStep },
	},
	{
		label:  "Loop",
		value:  func(c player.Config) string { return onOff(c.Loop) },
		toggle: func(c *player.Config) { c.Loop = !c.Loop },
	},
	{
		label:  "Audio",
		value:  func(c player.Config) string { return onOff(!c.NoAudio) },
		toggle: func(c *player.Config) { c.NoAudio = !c.NoAudio },
	},
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// Model is the Bubble Tea model
type Model struct {
	state  state
	picker filepicker.Model
	cfg    player.Config

	width  int
	height int

	selected string
	cursor   int
	aborted  bool
}

// NewModel creates a new TUI model
func NewModel(cfg player.Config) Model {
	fp := filepicker.New()
	fp.AllowedTypes = videoExtensions
	fp.ShowHidden = false
	if dir, err := os.Getwd(); err == nil {
		fp.CurrentDirectory = dir
	}

	return Model{
		state:  statePicking,
		picker: fp,
		cfg:    cfg,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return m.picker.Init()
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.aborted = true
			return m, tea.Quit
		}
		if m.state == stateOptions {
			return m.updateOptions(msg)
		}
		if msg.String() == "q" {
			m.aborted = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	if ok, path := m.picker.DidSelectFile(msg); ok {
		m.selected = path
		m.state = stateOptions
		return m, nil
	}
	return m, cmd
}

func (m Model) updateOptions(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The last row of the menu is the play action.
	last := len(options)

	switch msg.String() {
	case "q", "esc":
		m.selected = ""
		m.state = statePicking
		return m, nil

	case "j", "down":
		if m.cursor < last {
			m.cursor++
		}

	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}

	case " ":
		if m.cursor < last {
			options[m.cursor].toggle(&m.cfg)
		}

	case "enter":
		if m.cursor == last {
			return m, tea.Quit
		}
		options[m.cursor].toggle(&m.cfg)
	}

	return m, nil
}

// View renders the UI
func (m Model) View() string {
	switch m.state {
	case statePicking:
		return m.viewPicking()
	case stateOptions:
		return m.viewOptions()
	default:
		return ""
	}
}

// Run shows the picker and returns the chosen file and adjusted config. ok
// is false when the user backed out. Playback itself happens after the
// program returns; the player needs the terminal to itself.
func Run(cfg player.Config) (path string, out player.Config, ok bool, err error) {
	final, err := tea.NewProgram(NewModel(cfg), tea.WithAltScreen()).Run()
	if err != nil {
		return "", cfg, false, err
	}
	m := final.(Model)
	if m.aborted || m.selected == "" {
		return "", cfg, false, nil
	}
	return m.selected, m.cfg, true, nil
}
