package visual

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storage-visual/internal/adapter/host"
	"storage-visual/internal/adapter/privilege"
	"storage-visual/internal/adapter/storage"
	"storage-visual/internal/domain"
	"storage-visual/internal/usecase"
)

type fixture struct {
	model *Model
	priv  *privilege.Static
	store *storage.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	priv := privilege.NewStatic(domain.PrivilegeAllowed, nil)
	store := storage.NewMemory()
	ctrl := usecase.NewController(host.NewService(priv, store, log), log)
	m := NewModel(Deps{Controller: ctrl, Backend: "memory", Logger: log})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return &fixture{model: m, priv: priv, store: store}
}

// drain runs cmd and feeds every resulting message back into the model,
// skipping spinner ticks and cursor blinks.
func (f *fixture) drain(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			f.drain(c)
		}
	case spinner.TickMsg, nil:
	case OpResultMsg, SurfaceMsg, PrivilegeChangedMsg:
		_, next := f.model.Update(msg)
		f.drain(next)
	}
}

func (f *fixture) key(k tea.KeyMsg) {
	_, cmd := f.model.Update(k)
	f.drain(cmd)
}

func (f *fixture) typeText(s string) {
	f.key(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

var (
	keyTab   = tea.KeyMsg{Type: tea.KeyTab}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyCtrlS = tea.KeyMsg{Type: tea.KeyCtrlS}
	keyCtrlX = tea.KeyMsg{Type: tea.KeyCtrlX}
)

func TestStatusCheckRendersAvailability(t *testing.T) {
	f := newFixture(t)
	assert.Contains(t, f.model.View(), AvailabilityLabel)

	f.key(keyCtrlS)
	assert.Equal(t, "Allowed", f.model.Surface().StatusText)
	assert.Contains(t, f.model.View(), "Allowed")
}

func TestSetThenGetThroughKeys(t *testing.T) {
	f := newFixture(t)

	f.typeText("color")
	f.key(keyTab)
	f.typeText("blue")
	f.key(keyEnter)

	v, err := f.store.Get(context.Background(), "color")
	require.NoError(t, err)
	assert.Equal(t, "blue", v)

	f.key(keyTab) // get key
	f.typeText("color")
	f.key(keyEnter)

	assert.Equal(t, "blue", f.model.Surface().ResultText)
	assert.Contains(t, f.model.View(), ResultLabel)
}

func TestGetFailureShowsAndDismissesIndicator(t *testing.T) {
	f := newFixture(t)

	f.key(keyTab)
	f.key(keyTab) // get key
	f.typeText("missing")
	f.key(keyEnter)

	snap := f.model.Surface()
	require.True(t, snap.IndicatorShown())
	view := f.model.View()
	assert.Equal(t, 1, strings.Count(view, domain.IndicatorMessage))
	assert.Contains(t, view, "[X]")

	f.key(keyEnter)
	assert.Equal(t, 1, strings.Count(f.model.View(), domain.IndicatorMessage), "second failure keeps a single indicator")

	f.key(keyCtrlX)
	assert.False(t, f.model.Surface().IndicatorShown())
	assert.NotContains(t, f.model.View(), domain.IndicatorMessage)
}

func TestIndicatorFocusAndXKey(t *testing.T) {
	f := newFixture(t)

	f.key(keyTab)
	f.key(keyTab)
	f.typeText("missing")
	f.key(keyEnter)
	require.True(t, f.model.Surface().IndicatorShown())

	f.key(keyTab) // remove key
	f.key(keyTab) // indicator
	require.Equal(t, focusIndicator, f.model.focus)

	f.typeText("x")
	assert.False(t, f.model.Surface().IndicatorShown())
	assert.Equal(t, focusGetKey, f.model.focus, "focus leaves the dismissed indicator")
}

func TestQuietDenyLeavesViewUnchanged(t *testing.T) {
	f := newFixture(t)
	f.priv.Set(context.Background(), domain.PrivilegePendingConsent)

	f.key(keyTab)
	f.key(keyTab)
	f.typeText("anything")
	f.key(keyEnter)

	assert.False(t, f.model.Surface().IndicatorShown())
	assert.Equal(t, "", f.model.Surface().ResultText)
	assert.Nil(t, f.model.LastError())
}

func TestUnexpectedErrorShownInStatusBar(t *testing.T) {
	f := newFixture(t)

	_, cmd := f.model.Update(OpResultMsg{
		Kind: domain.OpSet,
		Err:  domain.UnexpectedError("Controller.set", errors.New("disk full")),
	})
	assert.Nil(t, cmd)
	require.NotNil(t, f.model.LastError())
	assert.Equal(t, domain.CodeUnexpected, f.model.LastError().Code)
	assert.Contains(t, f.model.View(), "Unexpected Error")

	f.key(keyCtrlS)
	assert.Nil(t, f.model.LastError(), "a later success clears the error")
}

func TestPrivilegeChangedNotice(t *testing.T) {
	f := newFixture(t)
	f.model.Update(PrivilegeChangedMsg{From: "Allowed", To: "Disallowed"})
	view := f.model.View()
	assert.Contains(t, view, "Disallowed")
}

func TestRemoveThroughKeys(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Set(context.Background(), "gone", "v"))

	f.key(keyTab)
	f.key(keyTab)
	f.key(keyTab) // remove key
	f.typeText("gone")
	f.key(keyEnter)

	_, err := f.store.Get(context.Background(), "gone")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQuitKeys(t *testing.T) {
	f := newFixture(t)
	_, cmd := f.model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

// ctxRecordingStore remembers the context of the last Get.
type ctxRecordingStore struct {
	*storage.Memory
	last context.Context
}

func (s *ctxRecordingStore) Get(ctx context.Context, key string) (string, error) {
	s.last = ctx
	return s.Memory.Get(ctx, key)
}

func TestActionsCarryNoDeadlineAndStopOnQuit(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := &ctxRecordingStore{Memory: storage.NewMemory()}
	ctrl := usecase.NewController(host.NewService(privilege.NewStatic(domain.PrivilegeAllowed, nil), store, log), log)
	f := &fixture{model: NewModel(Deps{Controller: ctrl, Logger: log}), store: store.Memory}

	f.key(keyTab)
	f.key(keyTab) // get key
	f.typeText("k")
	f.key(keyEnter)

	require.NotNil(t, store.last)
	_, hasDeadline := store.last.Deadline()
	assert.False(t, hasDeadline, "host calls must not be given a deadline")
	assert.NoError(t, store.last.Err())

	f.model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.ErrorIs(t, store.last.Err(), context.Canceled)
}
