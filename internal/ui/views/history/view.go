package history

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"storkwatch/internal/modules/contraction/domain"
	contractiondto "storkwatch/internal/modules/contraction/dto"
	"storkwatch/internal/ui/theme"
)

// ─── list item ───────────────────────────────────────────────────────────────

type eventItem struct {
	event contractiondto.EventOutput
}

func (i eventItem) Title() string {
	start := i.event.StartTime.Local().Format("Jan 02 15:04:05")
	if i.event.InProgress {
		return start + "  " + theme.Hot.Render("timing")
	}
	return start + "  " + domain.FormatOptional(i.event.DurationSec)
}

func (i eventItem) Description() string {
	origin := "unsaved"
	if i.event.Persisted {
		origin = "saved"
	}
	return fmt.Sprintf("interval %s · intensity %d · %s",
		domain.FormatOptional(i.event.IntervalSec), i.event.Intensity, origin)
}

func (i eventItem) FilterValue() string { return i.event.StartTime.Local().Format("2006-01-02 15:04:05") }

// ─── model ───────────────────────────────────────────────────────────────────

// Model lists the merged history, newest first, beside a detail pane.
type Model struct {
	list   list.Model
	detail viewport.Model
	stats  contractiondto.StatsOutput
	notice string
	width  int
	height int
}

func New() Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(theme.Lavender).BorderForeground(theme.Lavender)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(theme.Sapphire).BorderForeground(theme.Lavender)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "History"
	l.Styles.Title = theme.Title
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	vp := viewport.New(0, 0)
	vp.Style = lipgloss.NewStyle().
		Background(theme.Mantle).
		Foreground(theme.Text).
		Padding(1)

	return Model{list: l, detail: vp}
}

// SetHistory replaces the listed events and keeps the selection when possible.
func (m *Model) SetHistory(history contractiondto.HistoryOutput, stats contractiondto.StatsOutput) tea.Cmd {
	selected, hadSelection := m.SelectedEvent()
	items := make([]list.Item, len(history.Events))
	for i, e := range history.Events {
		items[i] = eventItem{event: e}
	}
	cmd := m.list.SetItems(items)
	if hadSelection {
		for i, e := range history.Events {
			if sameEvent(e, selected) {
				m.list.Select(i)
				break
			}
		}
	}
	m.stats = stats
	m.notice = ""
	if !history.RemoteAvailable {
		m.notice = "history temporarily unavailable"
		if history.RemoteError != "" {
			m.notice += ": " + history.RemoteError
		}
	}
	m.detail.SetContent(m.renderDetail())
	return cmd
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
	}
	prevIdx := m.list.Index()
	var lCmd tea.Cmd
	m.list, lCmd = m.list.Update(msg)
	cmds = append(cmds, lCmd)
	if m.list.Index() != prevIdx {
		m.detail.SetContent(m.renderDetail())
	}
	var vCmd tea.Cmd
	m.detail, vCmd = m.detail.Update(msg)
	cmds = append(cmds, vCmd)
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	listW := m.width * 5 / 10
	detailW := m.width - listW

	listPane := lipgloss.NewStyle().
		Width(listW).
		Height(m.height).
		Render(m.list.View())

	detailPane := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.Surface1).
		Background(theme.Mantle).
		Width(max(detailW-2, 0)).
		Height(max(m.height-2, 0)).
		Render(m.detail.View())

	return lipgloss.JoinHorizontal(lipgloss.Top, listPane, detailPane)
}

// SelectedEvent returns the highlighted event, if any.
func (m Model) SelectedEvent() (contractiondto.EventOutput, bool) {
	if item, ok := m.list.SelectedItem().(eventItem); ok {
		return item.event, true
	}
	return contractiondto.EventOutput{}, false
}

// Filtering reports whether the list's search filter is active, so the app
// does not treat typed characters as shortcuts.
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

func (m *Model) resize() {
	listW := m.width * 5 / 10
	m.list.SetSize(listW, m.height)
	m.detail.Width = max(m.width-listW-4, 0)
	m.detail.Height = max(m.height-4, 0)
}

func (m Model) renderDetail() string {
	var sb strings.Builder
	sb.WriteString(theme.Title.Render("All recent contractions") + "\n")
	fmt.Fprintf(&sb, "count         %d\n", m.stats.Count)
	fmt.Fprintf(&sb, "avg duration  %s\n", domain.FormatClock(m.stats.AvgDurationSec))
	fmt.Fprintf(&sb, "avg interval  %s\n", domain.FormatClock(m.stats.AvgIntervalSec))
	fmt.Fprintf(&sb, "pattern       %s\n", patternLabel(m.stats))
	if m.notice != "" {
		sb.WriteString("\n" + theme.Bad.Render(m.notice) + "\n")
	}

	e, ok := m.SelectedEvent()
	if !ok {
		return sb.String()
	}
	sb.WriteString("\n" + theme.Title.Render("Selected") + "\n")
	fmt.Fprintf(&sb, "start      %s\n", e.StartTime.Local().Format("2006-01-02 15:04:05"))
	if e.EndTime != nil {
		fmt.Fprintf(&sb, "end        %s\n", e.EndTime.Local().Format("15:04:05"))
	}
	fmt.Fprintf(&sb, "duration   %s\n", domain.FormatOptional(e.DurationSec))
	fmt.Fprintf(&sb, "interval   %s\n", domain.FormatOptional(e.IntervalSec))
	fmt.Fprintf(&sb, "intensity  %d/%d\n", e.Intensity, domain.MaxIntensity)
	if e.Persisted {
		fmt.Fprintf(&sb, "id         %s\n", e.ID)
	} else {
		sb.WriteString(theme.Muted.Render("not saved yet") + "\n")
	}
	return sb.String()
}

func patternLabel(s contractiondto.StatsOutput) string {
	switch {
	case s.AvgIntervalSec == 0:
		return theme.Muted.Render("not enough data")
	case s.IsRegular:
		return theme.Good.Render("regular")
	default:
		return theme.Bad.Render("irregular")
	}
}

func sameEvent(a, b contractiondto.EventOutput) bool {
	if a.ID != "" || b.ID != "" {
		return a.ID == b.ID
	}
	return a.StartTime.Equal(b.StartTime)
}
