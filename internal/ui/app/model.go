package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"storkwatch/internal/modules/contraction/domain"
	contractiondto "storkwatch/internal/modules/contraction/dto"
	apperrors "storkwatch/internal/platform/errors"
	"storkwatch/internal/ui/components"
	"storkwatch/internal/ui/theme"
	historyview "storkwatch/internal/ui/views/history"
)

// ─── ports ───────────────────────────────────────────────────────────────────

type trackerPort interface {
	Open(ctx context.Context) (contractiondto.ScreenOutput, error)
	Snapshot(ctx context.Context) (contractiondto.ScreenOutput, error)
	Start(ctx context.Context, intensity int) (contractiondto.ScreenOutput, error)
	Stop(ctx context.Context) (contractiondto.ScreenOutput, error)
	Clear(ctx context.Context) (contractiondto.ScreenOutput, error)
	Save(ctx context.Context) (contractiondto.SaveOutput, contractiondto.ScreenOutput, error)
	Delete(ctx context.Context, eventID string) (contractiondto.ScreenOutput, error)
	Refresh(ctx context.Context) (contractiondto.ScreenOutput, error)
}

// ─── messages ────────────────────────────────────────────────────────────────

// TickMsg is sent once per second while a contraction is being timed.
type TickMsg struct{ Elapsed int }

// RemoteChangedMsg is sent after a remote snapshot was merged into the history.
type RemoteChangedMsg struct{}

type screenMsg struct {
	screen contractiondto.ScreenOutput
	note   string
	err    error
}

// ─── key bindings ─────────────────────────────────────────────────────────────

type keyMap struct {
	Toggle  key.Binding
	Save    key.Binding
	Clear   key.Binding
	Delete  key.Binding
	Refresh key.Binding
	Up      key.Binding
	Down    key.Binding
	Help    key.Binding
	Palette key.Binding
	Quit    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Toggle:  key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "start/stop")),
		Save:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save session")),
		Clear:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear session")),
		Delete:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete saved")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh history")),
		Up:      key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+/-", "intensity")),
		Down:    key.NewBinding(key.WithKeys("-"), key.WithHelp("+/-", "intensity")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Palette: key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "palette")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Save, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Up, k.Save, k.Clear},
		{k.Delete, k.Refresh},
		{k.Help, k.Palette, k.Quit},
	}
}

// ─── model ───────────────────────────────────────────────────────────────────

// Model is the root Bubble Tea model: the running clock, session stats, the
// merged history list and the command palette. Every state change goes
// through the tracker port; the model only renders what it returns.
type Model struct {
	tracker trackerPort

	historyView historyview.Model

	keys      keyMap
	help      help.Model
	showHelp  bool
	palette   components.Palette
	screen    contractiondto.ScreenOutput
	intensity int
	status    string
	width     int
	height    int
}

func NewModel(tracker trackerPort, defaultIntensity int) Model {
	if defaultIntensity < domain.MinIntensity || defaultIntensity > domain.MaxIntensity {
		defaultIntensity = domain.DefaultIntensity
	}
	return Model{
		tracker:     tracker,
		historyView: historyview.New(),
		keys:        defaultKeys(),
		help:        help.New(),
		palette:     components.NewPalette(),
		intensity:   defaultIntensity,
		status:      "loading…",
	}
}

func (m Model) Init() tea.Cmd {
	return m.screenCmd(m.tracker.Open)
}

// ─── update ───────────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.palette.Visible() {
		if _, ok := msg.(tea.KeyMsg); ok {
			var cmd tea.Cmd
			m.palette, cmd = m.palette.Update(msg)
			return m, cmd
		}
	}

	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.palette.SetWidth(min(m.width-4, 80))
		m.help.Width = m.width
		m.propagateSize()
		return m, nil

	case screenMsg:
		// Nothing was observed when the tracker itself is unreachable.
		if !errors.Is(msg.err, apperrors.ErrUnavailable) {
			cmds = append(cmds, m.applyScreen(msg.screen))
		}
		switch {
		case msg.err != nil:
			m.status = describeError(msg.err)
		case msg.note != "":
			m.status = msg.note
		}
		return m, tea.Batch(cmds...)

	case TickMsg:
		if m.screen.Status.Timing {
			m.screen.Status.ElapsedSec = msg.Elapsed
		}
		return m, nil

	case RemoteChangedMsg:
		return m, m.screenCmd(m.tracker.Snapshot)

	case components.PaletteSubmitMsg:
		return m.executePalette(msg.Input)

	case components.PaletteCancelMsg:
		m.status = "ready"
		return m, nil

	case tea.KeyMsg:
		if m.showHelp {
			if msg.String() == "?" || msg.String() == "esc" {
				m.showHelp = false
			}
			return m, nil
		}
		if m.historyView.Filtering() {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.showHelp = true
			return m, nil
		case key.Matches(msg, m.keys.Palette):
			return m, m.palette.Open()
		case key.Matches(msg, m.keys.Toggle):
			return m, m.toggleCmd()
		case key.Matches(msg, m.keys.Save):
			return m, m.saveCmd()
		case key.Matches(msg, m.keys.Clear):
			return m, m.screenCmd(m.tracker.Clear)
		case key.Matches(msg, m.keys.Refresh):
			m.status = "refreshing…"
			return m, m.screenCmd(m.tracker.Refresh)
		case key.Matches(msg, m.keys.Delete):
			return m.deleteSelected()
		case key.Matches(msg, m.keys.Up):
			m.setIntensity(m.intensity + 1)
			return m, nil
		case key.Matches(msg, m.keys.Down):
			m.setIntensity(m.intensity - 1)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.historyView, cmd = m.historyView.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// ─── view ────────────────────────────────────────────────────────────────────

func (m Model) View() string {
	header := m.renderHeader()
	statusBar := m.renderStatusBar()
	contentH := max(m.height-lipgloss.Height(header)-lipgloss.Height(statusBar), 1)

	var content string
	switch {
	case m.showHelp:
		content = lipgloss.NewStyle().Width(m.width).Height(contentH).
			Render(m.help.View(m.keys))
	case m.palette.Visible():
		content = lipgloss.Place(m.width, contentH,
			lipgloss.Center, lipgloss.Center, m.palette.View())
	default:
		content = m.historyView.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}

func (m Model) renderHeader() string {
	status := m.screen.Status
	clockStyle := theme.ClockIdle
	label := "idle"
	if status.Timing {
		clockStyle = theme.Clock
		label = "contraction in progress"
	}
	clock := lipgloss.JoinVertical(lipgloss.Center,
		clockStyle.Render(domain.FormatClock(float64(status.ElapsedSec))),
		theme.Muted.Render(label),
	)

	var sb strings.Builder
	sb.WriteString(theme.Title.Render("This session") + "\n")
	fmt.Fprintf(&sb, "contractions  %d\n", status.Stats.Count)
	fmt.Fprintf(&sb, "avg duration  %s\n", domain.FormatClock(status.Stats.AvgDurationSec))
	fmt.Fprintf(&sb, "avg interval  %s\n", domain.FormatClock(status.Stats.AvgIntervalSec))
	fmt.Fprintf(&sb, "pattern       %s\n", pattern(status.Stats))
	fmt.Fprintf(&sb, "intensity     %s", intensityBar(m.intensity))
	stats := lipgloss.NewStyle().PaddingLeft(4).Render(sb.String())

	return lipgloss.NewStyle().
		Background(theme.Mantle).
		Width(m.width).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, clock, stats)) + "\n"
}

func (m Model) renderStatusBar() string {
	left := m.status
	if unsaved := unsavedCount(m.screen.Status.Session); unsaved > 0 {
		left = theme.Hot.Render(fmt.Sprintf("● %d unsaved", unsaved)) + "  " + left
	}
	right := theme.Muted.Render("space:start/stop  s:save  ?:help  q:quit")
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	bar := left + strings.Repeat(" ", gap) + right
	return "\n" + lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar)
}

// ─── palette execution ────────────────────────────────────────────────────────

func (m Model) executePalette(input string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return m, nil
	}

	switch strings.ToLower(parts[0]) {
	case "start":
		if len(parts) >= 2 {
			v, err := strconv.Atoi(parts[1])
			if err != nil || !m.setIntensity(v) {
				m.status = fmt.Sprintf("intensity must be %d-%d", domain.MinIntensity, domain.MaxIntensity)
				return m, nil
			}
		}
		return m, m.startCmd()
	case "stop":
		return m, m.screenCmd(m.tracker.Stop)
	case "save":
		return m, m.saveCmd()
	case "clear":
		return m, m.screenCmd(m.tracker.Clear)
	case "refresh":
		m.status = "refreshing…"
		return m, m.screenCmd(m.tracker.Refresh)
	case "delete":
		if len(parts) < 2 {
			m.status = "usage: delete <event-id>"
			return m, nil
		}
		return m, m.deleteCmd(parts[1])
	case "intensity":
		if len(parts) < 2 {
			m.status = "usage: intensity <1-10>"
			return m, nil
		}
		v, err := strconv.Atoi(parts[1])
		if err != nil || !m.setIntensity(v) {
			m.status = fmt.Sprintf("intensity must be %d-%d", domain.MinIntensity, domain.MaxIntensity)
		}
		return m, nil
	default:
		m.status = "unknown command: " + parts[0]
	}
	return m, nil
}

// ─── helpers ─────────────────────────────────────────────────────────────────

func (m *Model) applyScreen(screen contractiondto.ScreenOutput) tea.Cmd {
	m.screen = screen
	if m.status == "loading…" || m.status == "refreshing…" {
		m.status = "ready"
	}
	return m.historyView.SetHistory(screen.History, screen.HistoryStats)
}

// setIntensity rejects values outside the allowed range.
func (m *Model) setIntensity(v int) bool {
	if v < domain.MinIntensity || v > domain.MaxIntensity {
		return false
	}
	m.intensity = v
	m.status = fmt.Sprintf("next contraction intensity %d", v)
	return true
}

func (m Model) deleteSelected() (tea.Model, tea.Cmd) {
	e, ok := m.historyView.SelectedEvent()
	switch {
	case !ok:
		m.status = "nothing selected"
		return m, nil
	case !e.Persisted:
		m.status = "only saved contractions can be deleted"
		return m, nil
	}
	return m, m.deleteCmd(e.ID)
}

func (m *Model) propagateSize() {
	headerH := lipgloss.Height(m.renderHeader())
	sz := tea.WindowSizeMsg{Width: m.width, Height: max(m.height-headerH-2, 1)}
	m.historyView, _ = m.historyView.Update(sz)
}

func describeError(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrUnavailable):
		return "tracker stopped: " + err.Error()
	case errors.Is(err, apperrors.ErrNothingToSave):
		return "nothing to save"
	case errors.Is(err, apperrors.ErrInvalidState):
		return "not allowed right now: " + err.Error()
	case errors.Is(err, apperrors.ErrCacheWrite):
		return "saved in memory only: " + err.Error()
	case errors.Is(err, apperrors.ErrStore):
		return "history unavailable: " + err.Error()
	}
	return "error: " + err.Error()
}

func pattern(s contractiondto.StatsOutput) string {
	switch {
	case s.AvgIntervalSec == 0:
		return theme.Muted.Render("not enough data")
	case s.IsRegular:
		return theme.Good.Render("regular")
	default:
		return theme.Bad.Render("irregular")
	}
}

func intensityBar(v int) string {
	filled := strings.Repeat("■", v)
	empty := strings.Repeat("□", domain.MaxIntensity-v)
	return theme.Hot.Render(filled) + theme.Muted.Render(empty) + fmt.Sprintf(" %d", v)
}

func unsavedCount(events []contractiondto.EventOutput) int {
	n := 0
	for _, e := range events {
		if !e.Persisted && !e.InProgress {
			n++
		}
	}
	return n
}

// ─── async commands ───────────────────────────────────────────────────────────

func (m Model) screenCmd(action func(context.Context) (contractiondto.ScreenOutput, error)) tea.Cmd {
	return func() tea.Msg {
		screen, err := action(context.Background())
		return screenMsg{screen: screen, err: err}
	}
}

func (m Model) toggleCmd() tea.Cmd {
	if m.screen.Status.Timing {
		return m.screenCmd(m.tracker.Stop)
	}
	return m.startCmd()
}

func (m Model) startCmd() tea.Cmd {
	intensity := m.intensity
	return func() tea.Msg {
		screen, err := m.tracker.Start(context.Background(), intensity)
		return screenMsg{screen: screen, err: err}
	}
}

func (m Model) saveCmd() tea.Cmd {
	return func() tea.Msg {
		saved, screen, err := m.tracker.Save(context.Background())
		note := fmt.Sprintf("saved %d contractions", saved.Saved)
		if saved.NotePath != "" {
			note += " · note " + saved.NotePath
		}
		return screenMsg{screen: screen, note: note, err: err}
	}
}

func (m Model) deleteCmd(id string) tea.Cmd {
	return func() tea.Msg {
		screen, err := m.tracker.Delete(context.Background(), id)
		return screenMsg{screen: screen, note: "deleted " + id, err: err}
	}
}
