// Package components holds reusable Bubble Tea view pieces.
package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"storage-visual/internal/adapter/tui/theme"
)

// KeyHint represents a single keybinding hint shown in the status bar.
type KeyHint struct {
	Key  string // e.g. "Enter"
	Desc string // e.g. "Run"
}

// StatusBarModel renders a bottom status bar with keybinding hints on the
// left and backend info plus the latest notice on the right.
type StatusBarModel struct {
	Hints   []KeyHint
	Backend string
	Notice  string // e.g. "privilege changed"
	Error   string // last unexpected failure, rendered in the error color
	width   int
}

// NewStatusBar creates an empty status bar.
func NewStatusBar() StatusBarModel {
	return StatusBarModel{}
}

// SetWidth updates the available width.
func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

// View renders the status bar as a single line.
func (m StatusBarModel) View() string {
	var hints []string
	for _, h := range m.Hints {
		hints = append(hints, theme.StatusKey.Render(h.Key)+": "+h.Desc)
	}
	left := strings.Join(hints, "  "+theme.Dim.Render("|")+"  ")

	var parts []string
	switch {
	case m.Error != "":
		parts = append(parts, theme.TextError.Render(theme.SymbolError+" "+m.Error))
	case m.Notice != "":
		parts = append(parts, theme.TextInfo.Render(m.Notice))
	}
	if m.Backend != "" {
		parts = append(parts, theme.TextMuted.Render(m.Backend))
	}
	right := strings.Join(parts, " "+theme.SymbolBullet+" ")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	bar := left + strings.Repeat(" ", gap) + right
	return theme.StatusBar.Width(m.width).Render(bar)
}
