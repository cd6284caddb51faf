package console

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intercept/cmd/intercept/ui"
	"intercept/internal/dispatch"
	"intercept/internal/editor"
	"intercept/internal/inbox"
	"intercept/internal/intent"
	"intercept/internal/journal"
)

const self = "dev.intercept"

func viewIntent() *intent.Intent {
	in := intent.New(intent.ActionView)
	in.AddCategory(intent.CategoryDefault)
	in.PutExtra("foo", intent.StringValue("bar"))
	return in
}

func newScreen(t *testing.T, opts Options) *Screen {
	t.Helper()
	if opts.Model == nil {
		m, err := editor.Load(viewIntent(), nil)
		require.NoError(t, err)
		opts.Model = m
	}
	opts.Self = self
	opts.Styles = ui.NewStyles(ui.LightTheme())
	s, err := New(context.Background(), opts)
	require.NoError(t, err)
	return s
}

func keyRunes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func press(s *Screen, msgs ...tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	for _, msg := range msgs {
		_, cmd = s.Update(msg)
	}
	return cmd
}

func sendDispatcher(calls *int, receipt *dispatch.Receipt, err error) dispatch.Dispatcher {
	return dispatch.DispatcherFunc(func(_ context.Context, _ *intent.Intent) (*dispatch.Receipt, error) {
		*calls++
		return receipt, err
	})
}

func TestNew_RequiresModel(t *testing.T) {
	_, err := New(context.Background(), Options{})
	assert.Error(t, err)
}

func TestNew_FillsSurfaces(t *testing.T) {
	s := newScreen(t, Options{})
	assert.Equal(t, intent.ActionView, s.inputs[0].Value())
	assert.Equal(t, "", s.inputs[1].Value())
	assert.Equal(t, s.model.ResolvedURI(), s.inputs[3].Value())
	assert.False(t, s.keys.Reset.Enabled())
	assert.False(t, s.keys.Send.Enabled(), "no dispatcher")
}

func TestTyping_UpdatesModelAndOtherSurfaces(t *testing.T) {
	s := newScreen(t, Options{})

	press(s, tea.KeyMsg{Type: tea.KeyEnd}, keyRunes("X"))

	assert.Equal(t, intent.ActionView+"X", s.model.Intent().Action)
	assert.Equal(t, s.model.ResolvedURI(), s.inputs[3].Value())
	assert.Contains(t, s.inputs[3].Value(), "VIEWX")
	assert.True(t, s.keys.Reset.Enabled())
	assert.Contains(t, s.View(), "(edited)")
}

func TestTyping_InvalidDataShowsNotice(t *testing.T) {
	s := newScreen(t, Options{})

	press(s, tea.KeyMsg{Type: tea.KeyTab}, keyRunes("%"))

	assert.Equal(t, 1, s.focus)
	assert.Equal(t, "Wrong uri", s.Status())
	assert.True(t, s.statusErr)
	assert.Equal(t, "", s.model.Intent().Data)
	assert.Equal(t, "%", s.inputs[1].Value(), "edited surface keeps the typed text")
	assert.False(t, s.model.Dirty())
}

func TestFocusWraps(t *testing.T) {
	s := newScreen(t, Options{})
	press(s, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, 3, s.focus)
	press(s, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 0, s.focus)
}

func TestReset(t *testing.T) {
	s := newScreen(t, Options{})
	press(s, tea.KeyMsg{Type: tea.KeyEnd}, keyRunes("X"))
	require.True(t, s.model.Dirty())

	press(s, tea.KeyMsg{Type: tea.KeyCtrlR})

	assert.False(t, s.model.Dirty())
	assert.Equal(t, intent.ActionView, s.inputs[0].Value())
	assert.Equal(t, s.model.Original(), s.inputs[3].Value())
	assert.False(t, s.keys.Reset.Enabled())
}

func TestSend_SynchronousResultIsJournaled(t *testing.T) {
	store, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	rec, err := store.RecordIntercept(ctx, viewIntent(), "test", "")
	require.NoError(t, err)

	calls := 0
	receipt := &dispatch.Receipt{ID: "d1", Target: "adb", Result: &editor.Result{Code: editor.ResultOK}}
	s := newScreen(t, Options{
		Dispatcher:  sendDispatcher(&calls, receipt, nil),
		Journal:     store,
		InterceptID: rec.ID,
	})
	require.True(t, s.keys.Send.Enabled())

	cmd := press(s, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, cmd)
	press(s, cmd())

	assert.Equal(t, 1, calls)
	last, ok := s.LastResult()
	require.True(t, ok)
	assert.Equal(t, editor.ResultOK, last.Code)
	assert.Equal(t, "Result: RESULT_OK", s.Status())

	entry, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Len(t, entry.Dispatches, 1)
	assert.Len(t, entry.Results, 1)
}

func TestSend_Failure(t *testing.T) {
	calls := 0
	s := newScreen(t, Options{Dispatcher: sendDispatcher(&calls, nil, errors.New("device offline"))})

	cmd := press(s, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, cmd)
	press(s, cmd())

	assert.Contains(t, s.Status(), "device offline")
	_, ok := s.LastResult()
	assert.False(t, ok)
}

func TestSend_GatedOnOtherReceivers(t *testing.T) {
	onlySelf := editor.ResolverFunc(func(*intent.Intent) []editor.Candidate {
		return []editor.Candidate{{Label: "Intercept", Package: self, Component: self + ".InterceptActivity"}}
	})
	calls := 0
	s := newScreen(t, Options{
		Resolver:   onlySelf,
		Dispatcher: sendDispatcher(&calls, &dispatch.Receipt{ID: "x"}, nil),
	})

	assert.False(t, s.keys.Send.Enabled())
	assert.Nil(t, s.send())
	assert.Equal(t, 0, calls)
	assert.True(t, s.statusErr)
}

func TestAsyncResult_MatchedByReplyTo(t *testing.T) {
	calls := 0
	receipt := &dispatch.Receipt{ID: "env-1", Target: "outbox"}
	s := newScreen(t, Options{Dispatcher: sendDispatcher(&calls, receipt, nil)})

	cmd := press(s, tea.KeyMsg{Type: tea.KeyCtrlS})
	press(s, cmd())
	require.NotNil(t, s.pending)

	unrelated := inbox.NewResultEnvelope(editor.Result{Code: 7}, "other")
	press(s, deliveryMsg{delivery: inbox.Delivery{Envelope: unrelated}})
	_, ok := s.LastResult()
	assert.False(t, ok)

	reply := intent.New("done")
	answer := inbox.NewResultEnvelope(editor.Result{Code: editor.ResultOK, Intent: reply}, "env-1")
	press(s, deliveryMsg{delivery: inbox.Delivery{Envelope: answer}})

	last, ok := s.LastResult()
	require.True(t, ok)
	assert.Equal(t, editor.ResultOK, last.Code)
	require.NotNil(t, last.Intent)
	assert.Equal(t, "done", last.Intent.Action)
	assert.Nil(t, s.pending)
}

func TestDelivery_ErrorAndIntent(t *testing.T) {
	s := newScreen(t, Options{})

	press(s, deliveryMsg{delivery: inbox.Delivery{Path: "bad.json", Err: errors.New("boom")}})
	assert.True(t, s.statusErr)

	env := inbox.NewIntentEnvelope(intent.New(intent.ActionMain), "test")
	press(s, deliveryMsg{delivery: inbox.Delivery{Envelope: env}})
	assert.Contains(t, s.Status(), "Ignored intent envelope")
	assert.False(t, s.model.Dirty())
}

func TestCopy(t *testing.T) {
	var copied string
	orig := clipboardWriteAll
	t.Cleanup(func() { clipboardWriteAll = orig })
	clipboardWriteAll = func(text string) error {
		copied = text
		return nil
	}

	s := newScreen(t, Options{})

	press(s, tea.KeyMsg{Type: tea.KeyCtrlU})
	assert.Equal(t, s.model.ResolvedURI(), copied)

	press(s, tea.KeyMsg{Type: tea.KeyCtrlY})
	assert.Contains(t, copied, intent.ActionView)
	assert.Contains(t, copied, "foo")

	clipboardWriteAll = func(string) error { return errors.New("no clipboard") }
	press(s, tea.KeyMsg{Type: tea.KeyCtrlU})
	assert.Equal(t, "Failed to copy uri", s.Status())
}

func TestQuit(t *testing.T) {
	s := newScreen(t, Options{})
	cmd := press(s, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
	assert.Empty(t, s.View())
}

func TestWindowResize(t *testing.T) {
	s := newScreen(t, Options{})
	press(s, tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Equal(t, 118, s.viewport.Width)
	assert.Equal(t, 40-chromeHeight, s.viewport.Height)
	assert.Equal(t, 108, s.inputs[0].Width)
}

func TestWaitForDelivery(t *testing.T) {
	assert.Nil(t, waitForDelivery(nil))

	ch := make(chan inbox.Delivery, 1)
	ch <- inbox.Delivery{Path: "a.json"}
	msg := waitForDelivery(ch)()
	assert.Equal(t, "a.json", msg.(deliveryMsg).delivery.Path)

	close(ch)
	_, ok := waitForDelivery(ch)().(deliveriesClosedMsg)
	assert.True(t, ok)
}
