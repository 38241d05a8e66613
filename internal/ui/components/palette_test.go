package components

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestMatchHints(t *testing.T) {
	t.Parallel()
	assert.Len(t, MatchHints(""), maxHints)
	assert.Equal(t, []string{"start [intensity]", "stop", "save"}, MatchHints("s"))
	assert.Equal(t, []string{"delete <event-id>"}, MatchHints("del 01J"))
	assert.Empty(t, MatchHints("xyz"))
}

func TestPaletteSubmitAndComplete(t *testing.T) {
	t.Parallel()
	p := NewPalette()
	p.Open()
	assert.True(t, p.Visible())

	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("sa")})
	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyTab})
	p, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, p.Visible())
	assert.Equal(t, PaletteSubmitMsg{Input: "save"}, cmd())
}

func TestPaletteCancel(t *testing.T) {
	t.Parallel()
	p := NewPalette()
	p.Open()
	p, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, p.Visible())
	assert.Equal(t, PaletteCancelMsg{}, cmd())
}
