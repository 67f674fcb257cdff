package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hyunwoo/cellvid/player"
)

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func optionsModel() Model {
	m := NewModel(player.DefaultConfig())
	m.state = stateOptions
	m.selected = "clip.mp4"
	return m
}

func TestOptionsToggle(t *testing.T) {
	m := optionsModel()

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeySpace})
	m = next.(Model)
	if m.cfg.Glyph != "quad" {
		t.Errorf("glyph = %q after toggle, want quad", m.cfg.Glyph)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeySpace})
	m = next.(Model)
	if m.cfg.Glyph != "half" {
		t.Errorf("glyph = %q after second toggle, want half", m.cfg.Glyph)
	}
}

func TestOptionsCursorBounds(t *testing.T) {
	m := optionsModel()

	next, _ := m.Update(key('k'))
	m = next.(Model)
	if m.cursor != 0 {
		t.Errorf("cursor = %d after up at top, want 0", m.cursor)
	}

	for range options {
		next, _ = m.Update(key('j'))
		m = next.(Model)
	}
	next, _ = m.Update(key('j'))
	m = next.(Model)
	if m.cursor != len(options) {
		t.Errorf("cursor = %d, want pinned at %d", m.cursor, len(options))
	}
}

func TestEnterOnPlayQuits(t *testing.T) {
	m := optionsModel()
	for range options {
		next, _ := m.Update(key('j'))
		m = next.(Model)
	}

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if cmd == nil {
		t.Fatal("enter on play row did not quit")
	}
	if m.aborted {
		t.Error("play marked as aborted")
	}
	if m.selected != "clip.mp4" {
		t.Errorf("selected = %q, want clip.mp4", m.selected)
	}
}

func TestEscReturnsToPicker(t *testing.T) {
	m := optionsModel()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(Model)
	if m.state != statePicking {
		t.Errorf("state = %v after esc, want picking", m.state)
	}
	if m.selected != "" {
		t.Errorf("selected = %q after esc, want cleared", m.selected)
	}
}

func TestCtrlCAborts(t *testing.T) {
	m := optionsModel()
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(Model)
	if !m.aborted || cmd == nil {
		t.Fatal("ctrl+c did not abort")
	}
}
