package tui

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (m Model) viewPicking() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Pick a video"))
	b.WriteString("\n\n")
	b.WriteString(m.picker.View())
	b.WriteString("\n")
	b.WriteString(navStyle.Render("enter: select  q: quit"))
	return b.String()
}

func (m Model) viewOptions() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Playback options"))
	b.WriteString("\n")
	b.WriteString(pathStyle.Render(filepath.Base(m.selected)))
	b.WriteString("\n\n")

	for i, opt := range options {
		b.WriteString(m.row(i, fmt.Sprintf("%-12s %s",
			labelStyle.Render(opt.label),
			valueStyle.Render(opt.value(m.cfg)))))
	}
	b.WriteString(m.row(len(options), playStyle.Render("▶ Play")))

	b.WriteString("\n")
	b.WriteString(navStyle.Render("j/k: move  space: toggle  enter: play  esc: back"))
	return b.String()
}

func (m Model) row(i int, content string) string {
	marker := "  "
	if i == m.cursor {
		marker = cursorStyle.Render("> ")
	}
	return marker + content + "\n"
}
