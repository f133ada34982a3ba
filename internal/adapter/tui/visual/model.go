package visual

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"storage-visual/internal/adapter/tui/components"
	"storage-visual/internal/adapter/tui/theme"
	"storage-visual/internal/adapter/tui/uxerror"
	"storage-visual/internal/domain"
	"storage-visual/internal/usecase"
)

// Ensure *Model satisfies tea.Model.
var _ tea.Model = (*Model)(nil)

// Labels rendered verbatim on screen.
const (
	AvailabilityLabel = "Local storage availability: "
	ResultLabel       = "Result: "
)

// focusTarget identifies which element receives keys.
type focusTarget int

const (
	focusSetName focusTarget = iota
	focusSetValue
	focusGetKey
	focusRemoveKey
	focusIndicator
	numInputs = int(focusIndicator)
)

// Deps are the collaborators of the visual model.
type Deps struct {
	Controller *usecase.Controller
	Bus        domain.EventBus // optional
	Backend    string          // shown in the status bar
	Logger     *slog.Logger
}

// Model is the root Bubble Tea model.
type Model struct {
	deps Deps

	inputs  [numInputs]textinput.Model
	focus   focusTarget
	surface domain.SurfaceSnapshot

	spinner   spinner.Model
	pending   int
	statusBar components.StatusBarModel
	lastErr   *uxerror.FriendlyError

	width  int
	height int

	// ctx is cancelled on quit, abandoning in-flight host calls.
	ctx    context.Context
	cancel context.CancelFunc

	// Event bus wiring.
	programSend func(tea.Msg)
	unsubscribe func()
}

// NewModel creates the visual model.
func NewModel(deps Deps) *Model {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	m := &Model{deps: deps}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	placeholders := [numInputs]string{"name", "value", "name", "name"}
	for i := range m.inputs {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.Prompt = ""
		ti.CharLimit = 256
		ti.Width = 24
		ti.PlaceholderStyle = theme.InputPlaceholder
		m.inputs[i] = ti
	}
	m.inputs[focusSetName].Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(theme.ColorInfo)
	m.spinner = s

	m.statusBar = components.NewStatusBar()
	m.statusBar.Backend = deps.Backend
	m.statusBar.Hints = []components.KeyHint{
		{Key: "Tab", Desc: "Next"},
		{Key: "Enter", Desc: "Run"},
		{Key: "ctrl+s", Desc: "Availability"},
		{Key: "ctrl+x", Desc: "Dismiss"},
		{Key: "esc", Desc: "Quit"},
	}

	m.surface = deps.Controller.Surface().Snapshot()
	return m
}

// SetProgramSender sets the function used to inject messages from the
// EventBus. Must be called before Run().
func (m *Model) SetProgramSender(send func(tea.Msg)) {
	m.programSend = send
}

// Init subscribes to the EventBus.
func (m *Model) Init() tea.Cmd {
	if m.deps.Bus != nil && m.programSend != nil {
		send := m.programSend
		unsubSurface := m.deps.Bus.Subscribe(domain.EventSurfaceChanged, func(context.Context, domain.Event) {
			send(SurfaceMsg{})
		})
		unsubPriv := m.deps.Bus.Subscribe(domain.EventPrivilegeChanged, func(_ context.Context, e domain.Event) {
			var p domain.PrivilegeChangedPayload
			if json.Unmarshal(e.Payload, &p) == nil {
				send(PrivilegeChangedMsg{From: p.From, To: p.To})
			}
		})
		m.unsubscribe = func() {
			unsubSurface()
			unsubPriv()
		}
	}
	return textinput.Blink
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.SetWidth(msg.Width)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case OpResultMsg:
		if m.pending > 0 {
			m.pending--
		}
		if msg.Err != nil {
			fe := uxerror.Humanize(msg.Err)
			m.lastErr = &fe
			m.statusBar.Error = fe.Short()
			m.deps.Logger.Error("operation failed", "op", string(msg.Kind), "code", string(fe.Code), "error", msg.Err)
		} else {
			m.lastErr = nil
			m.statusBar.Error = ""
		}
		m.refreshSurface()
		return m, nil

	case SurfaceMsg:
		m.refreshSurface()
		return m, nil

	case PrivilegeChangedMsg:
		m.statusBar.Notice = fmt.Sprintf("privilege %s %s %s (ctrl+s to refresh)", msg.From, theme.SymbolArrowR, msg.To)
		return m, nil

	case spinner.TickMsg:
		if m.pending == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, m.updateFocusedInput(msg)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		if m.unsubscribe != nil {
			m.unsubscribe()
			m.unsubscribe = nil
		}
		m.cancel()
		return m, tea.Quit
	case "tab":
		m.moveFocus(1)
		return m, nil
	case "shift+tab":
		m.moveFocus(-1)
		return m, nil
	case "ctrl+s":
		return m, m.run(domain.OpStatusCheck, "", "")
	case "ctrl+x":
		m.dismiss()
		return m, nil
	case "enter":
		return m, m.submit()
	case "x":
		if m.focus == focusIndicator {
			m.dismiss()
			return m, nil
		}
	}
	return m, m.updateFocusedInput(msg)
}

// submit triggers the action owning the focused element.
func (m *Model) submit() tea.Cmd {
	switch m.focus {
	case focusSetName, focusSetValue:
		return m.run(domain.OpSet, m.inputs[focusSetName].Value(), m.inputs[focusSetValue].Value())
	case focusGetKey:
		return m.run(domain.OpGet, m.inputs[focusGetKey].Value(), "")
	case focusRemoveKey:
		return m.run(domain.OpRemove, m.inputs[focusRemoveKey].Value(), "")
	case focusIndicator:
		m.dismiss()
	}
	return nil
}

func (m *Model) run(kind domain.OperationKind, key, value string) tea.Cmd {
	m.pending++
	return tea.Batch(m.spinner.Tick, runOpCmd(m.ctx, m.deps.Controller, kind, key, value))
}

func (m *Model) dismiss() {
	m.deps.Controller.DismissError(context.Background())
	m.refreshSurface()
}

// refreshSurface re-reads the controller's surface. Bus messages only
// signal a change; the snapshot is always read fresh so a late message can
// never roll the view back.
func (m *Model) refreshSurface() {
	m.surface = m.deps.Controller.Surface().Snapshot()
	if m.focus == focusIndicator && !m.surface.IndicatorShown() {
		m.setFocus(focusGetKey)
	}
}

// moveFocus cycles through the inputs, and the indicator while it is shown.
func (m *Model) moveFocus(delta int) {
	n := numInputs
	if m.surface.IndicatorShown() {
		n++
	}
	next := (int(m.focus) + delta + n) % n
	m.setFocus(focusTarget(next))
}

func (m *Model) setFocus(f focusTarget) {
	m.focus = f
	for i := range m.inputs {
		if focusTarget(i) == f {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
}

func (m *Model) updateFocusedInput(msg tea.Msg) tea.Cmd {
	if int(m.focus) >= numInputs {
		return nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return cmd
}

// Surface returns the snapshot the view renders.
func (m *Model) Surface() domain.SurfaceSnapshot { return m.surface }

// LastError returns the most recent unexpected failure, or nil.
func (m *Model) LastError() *uxerror.FriendlyError { return m.lastErr }

// View renders the screen.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(theme.Title.Render("Storage Visual"))
	b.WriteString("\n")

	status := m.surface.StatusText
	if status == "" {
		status = theme.Dim.Render("unknown")
	} else {
		status = statusStyle(status).Render(status)
	}
	b.WriteString(theme.Label.Render(AvailabilityLabel) + status)
	if m.pending > 0 {
		b.WriteString("  " + m.spinner.View())
	}
	b.WriteString("\n\n")

	b.WriteString(m.section("Set", m.focus == focusSetName || m.focus == focusSetValue,
		m.field("Name", focusSetName)+"  "+m.field("Value", focusSetValue)))
	b.WriteString("\n")

	getBody := m.field("Name", focusGetKey) + "\n" + theme.Label.Render(ResultLabel) + theme.Value.Render(m.surface.ResultText)
	if m.surface.IndicatorShown() {
		style := theme.Indicator
		if m.focus == focusIndicator {
			style = theme.IndicatorFocused
		}
		getBody += "\n" + style.Render(m.surface.Indicator+" "+theme.DismissMark)
	}
	b.WriteString(m.section("Get", m.focus == focusGetKey || m.focus == focusIndicator, getBody))
	b.WriteString("\n")

	b.WriteString(m.section("Remove", m.focus == focusRemoveKey, m.field("Name", focusRemoveKey)))
	b.WriteString("\n")

	if m.lastErr != nil {
		b.WriteString(theme.TextError.Render(m.lastErr.Render()))
		b.WriteString("\n")
	}

	b.WriteString(m.statusBar.View())
	return b.String()
}

func (m *Model) section(title string, active bool, body string) string {
	style := theme.Section
	if active {
		style = theme.SectionActive
	}
	if m.width > 0 {
		style = style.Width(theme.Clamp(m.width-2, 20, theme.MaxContentWidth))
	}
	return style.Render(theme.Bold.Render(title) + "\n" + body)
}

func (m *Model) field(label string, f focusTarget) string {
	cursor := "  "
	if m.focus == f {
		cursor = theme.InputPrompt.Render(theme.SymbolCursor) + " "
	}
	return cursor + theme.Label.Render(label+": ") + m.inputs[f].View()
}

func statusStyle(status string) lipgloss.Style {
	if status == domain.PrivilegeAllowed.String() {
		return theme.TextSuccess
	}
	return theme.TextWarning
}
