// Package console is the interactive editor screen: one text input per
// editable surface, a rendered details pane, and key bindings for reset,
// resend and copy.
package console

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"intercept/cmd/intercept/ui"
	"intercept/internal/details"
	"intercept/internal/dispatch"
	"intercept/internal/editor"
	"intercept/internal/inbox"
	"intercept/internal/intent"
	"intercept/internal/journal"
	"intercept/internal/logging"
)

// clipboardWriteAll is a package-level variable to allow mocking in tests.
var clipboardWriteAll = clipboard.WriteAll

const (
	defaultWidth  = 80
	defaultHeight = 24
	chromeHeight  = 9 // header, four inputs, divider, status, help, spacing
)

var surfaceLabels = map[editor.SurfaceID]string{
	editor.SurfaceAction: "Action",
	editor.SurfaceData:   "Data",
	editor.SurfaceType:   "Type",
	editor.SurfaceURI:    "URI",
}

// Options wires the screen to its collaborators. Only Model is required.
type Options struct {
	Model    *editor.Model
	Resolver editor.Resolver
	Self     string

	// Dispatcher sends the edited intent. Nil disables sending.
	Dispatcher dispatch.Dispatcher

	// Journal and InterceptID record dispatches and results when set.
	Journal     *journal.Store
	InterceptID string

	// Deliveries carries inbox envelopes; result envelopes answering the
	// pending dispatch are recorded as the last result.
	Deliveries <-chan inbox.Delivery

	Styles ui.Styles
}

// Screen is the bubbletea model. It is used through a pointer so the
// surface bindings registered with the controller stay valid.
type Screen struct {
	ctx  context.Context
	opts Options

	ctrl   *editor.Controller
	model  *editor.Model
	inputs []textinput.Model
	focus  int

	viewport viewport.Model
	renderer *glamour.TermRenderer
	keys     keyMap
	help     help.Model
	styles   ui.Styles

	width  int
	height int

	status    string
	statusErr bool

	pending     *dispatch.Receipt
	sending     bool
	quitting    bool
	unsubscribe func()
}

// New binds a controller to opts.Model and renders the initial state.
func New(ctx context.Context, opts Options) (*Screen, error) {
	if opts.Model == nil {
		return nil, errors.New("console: nil model")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s := &Screen{
		ctx:      ctx,
		opts:     opts,
		ctrl:     editor.NewController(opts.Model),
		model:    opts.Model,
		inputs:   make([]textinput.Model, len(editor.Surfaces)),
		viewport: viewport.New(defaultWidth, defaultHeight-chromeHeight),
		keys:     defaultKeyMap(),
		help:     help.New(),
		styles:   opts.Styles,
		width:    defaultWidth,
		height:   defaultHeight,
	}

	for i, id := range editor.Surfaces {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = strings.ToLower(surfaceLabels[id])
		ti.Width = defaultWidth - 12
		s.inputs[i] = ti

		idx := i
		s.ctrl.Bind(id, editor.SurfaceFunc(func(text string) {
			s.inputs[idx].SetValue(text)
		}))
	}
	s.inputs[0].Focus()

	s.ctrl.OnNotice(func(n editor.Notice) {
		s.setError(n.Message)
	})
	s.unsubscribe = s.model.Subscribe(func(editor.Change) {
		s.refreshDetails()
		s.updateKeys()
	})

	s.renderer = newRenderer(s.styles.Theme, defaultWidth)
	s.ctrl.RefreshAll()
	s.refreshDetails()
	s.updateKeys()
	return s, nil
}

func newRenderer(theme ui.Theme, width int) *glamour.TermRenderer {
	wrap := width - 4
	if wrap < 20 {
		wrap = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(theme.GlamourStyle()),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		logging.UIDebug("glamour renderer unavailable: %v", err)
		return nil
	}
	return r
}

// Controller exposes the field controller.
func (s *Screen) Controller() *editor.Controller { return s.ctrl }

// LastResult is the most recent result recorded during the session.
func (s *Screen) LastResult() (editor.Result, bool) { return s.model.LastResult() }

// Status is the current status line text.
func (s *Screen) Status() string { return s.status }

// Init implements tea.Model.
func (s *Screen) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if s.opts.Deliveries != nil {
		cmds = append(cmds, waitForDelivery(s.opts.Deliveries))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (s *Screen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return s, s.handleKey(msg)

	case tea.WindowSizeMsg:
		s.resize(msg.Width, msg.Height)
		return s, nil

	case dispatchedMsg:
		s.sending = false
		s.handleDispatched(msg)
		return s, nil

	case deliveryMsg:
		s.handleDelivery(msg.delivery)
		return s, waitForDelivery(s.opts.Deliveries)

	case deliveriesClosedMsg:
		logging.UIDebug("inbox deliveries closed")
		return s, nil
	}

	var cmd tea.Cmd
	s.viewport, cmd = s.viewport.Update(msg)
	return s, cmd
}

func (s *Screen) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, s.keys.Quit):
		s.quitting = true
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		return tea.Quit

	case key.Matches(msg, s.keys.Next):
		s.setFocus(s.focus + 1)
		return nil

	case key.Matches(msg, s.keys.Prev):
		s.setFocus(s.focus - 1)
		return nil

	case key.Matches(msg, s.keys.Reset):
		if err := s.ctrl.Reset(); err != nil {
			s.setError(fmt.Sprintf("Reset failed: %v", err))
			return nil
		}
		s.setInfo("Reset to the intercepted intent")
		return nil

	case key.Matches(msg, s.keys.Send):
		return s.send()

	case key.Matches(msg, s.keys.Copy):
		s.copy("details", details.Plain(s.report()))
		return nil

	case key.Matches(msg, s.keys.CopyURI):
		s.copy("uri", s.model.ResolvedURI())
		return nil

	case key.Matches(msg, s.keys.PageUp):
		s.viewport.HalfViewUp()
		return nil

	case key.Matches(msg, s.keys.PageDown):
		s.viewport.HalfViewDown()
		return nil
	}

	return s.editFocused(msg)
}

// editFocused feeds the key to the focused input and forwards the text to
// the controller when it changed.
func (s *Screen) editFocused(msg tea.KeyMsg) tea.Cmd {
	id := editor.Surfaces[s.focus]
	before := s.inputs[s.focus].Value()

	var cmd tea.Cmd
	s.inputs[s.focus], cmd = s.inputs[s.focus].Update(msg)
	after := s.inputs[s.focus].Value()
	if after == before {
		return cmd
	}

	err := s.ctrl.OnUserEdit(id, after)
	switch {
	case err == nil:
		if s.statusErr {
			s.status, s.statusErr = "", false
		}
	case intent.IsParseError(err):
		s.setError("Not a valid intent URI")
	case editor.IsInvalidDataURI(err):
		// Notice already published.
	default:
		s.setError(err.Error())
	}
	return cmd
}

func (s *Screen) setFocus(i int) {
	n := len(s.inputs)
	i = ((i % n) + n) % n
	s.inputs[s.focus].Blur()
	s.focus = i
	s.inputs[s.focus].Focus()
}

func (s *Screen) resize(width, height int) {
	s.width, s.height = width, height
	for i := range s.inputs {
		s.inputs[i].Width = max(width-12, 10)
	}
	s.viewport.Width = max(width-2, 10)
	s.viewport.Height = max(height-chromeHeight, 3)
	s.help.Width = width
	s.renderer = newRenderer(s.styles.Theme, width)
	s.refreshDetails()
}

func (s *Screen) report() details.Report {
	return details.ForModel(s.model, s.opts.Resolver, s.opts.Self)
}

func (s *Screen) refreshDetails() {
	md := details.Markdown(s.report())
	content := md
	if s.renderer != nil {
		if out, err := s.renderer.Render(md); err == nil {
			content = out
		} else {
			logging.UIDebug("render details: %v", err)
		}
	}
	s.viewport.SetContent(content)
}

// updateKeys enables reset only when dirty and send only when another
// receiver exists.
func (s *Screen) updateKeys() {
	s.keys.Reset.SetEnabled(s.ctrl.Dirty())
	s.keys.Send.SetEnabled(s.canSend())
}

func (s *Screen) canSend() bool {
	if s.opts.Dispatcher == nil {
		return false
	}
	if s.opts.Resolver == nil {
		return true
	}
	return s.model.MatchingTargets(s.opts.Resolver, s.opts.Self).CanResend()
}

func (s *Screen) send() tea.Cmd {
	if !s.canSend() {
		s.setError("No other activity can handle this intent")
		return nil
	}
	if s.sending {
		return nil
	}
	s.sending = true
	s.setInfo("Sending...")
	return dispatchCmd(s.ctx, s.opts.Dispatcher, s.model.Intent())
}

func (s *Screen) handleDispatched(msg dispatchedMsg) {
	var dispatchID string
	if s.opts.Journal != nil && s.opts.InterceptID != "" {
		d, err := s.opts.Journal.RecordDispatch(s.ctx, s.opts.InterceptID, msg.intent, msg.receipt, msg.err)
		if err != nil {
			logging.JournalError("record dispatch: %v", err)
		} else {
			dispatchID = d.ID
		}
	}

	if msg.err != nil {
		logging.DispatchError("send failed: %v", msg.err)
		s.setError(fmt.Sprintf("Send failed: %v", msg.err))
		return
	}
	if msg.receipt.Result != nil {
		s.recordResult(*msg.receipt.Result, dispatchID)
		return
	}
	s.pending = msg.receipt
	s.setInfo(fmt.Sprintf("Sent via %s, waiting for result", msg.receipt.Target))
}

func (s *Screen) handleDelivery(d inbox.Delivery) {
	if d.Err != nil {
		logging.InboxWarn("delivery %s: %v", d.Path, d.Err)
		s.setError(fmt.Sprintf("Unreadable envelope %s", d.Path))
		return
	}
	env := d.Envelope
	if env.Kind != inbox.KindResult {
		s.setInfo(fmt.Sprintf("Ignored intent envelope %s while editing", env.ID))
		return
	}
	if s.pending == nil || env.ReplyTo != s.pending.ID {
		logging.InboxDebug("result %s does not answer a pending send", env.ID)
		return
	}
	res, err := env.Result()
	if err != nil {
		s.setError(fmt.Sprintf("Bad result envelope: %v", err))
		return
	}
	dispatchID := ""
	if s.opts.Journal != nil {
		if d, err := s.opts.Journal.FindDispatch(s.ctx, s.pending.ID); err == nil {
			dispatchID = d.ID
		}
	}
	s.pending = nil
	s.recordResult(res, dispatchID)
}

func (s *Screen) recordResult(res editor.Result, dispatchID string) {
	s.model.Results().Record(res.Code, res.Intent)
	if s.opts.Journal != nil && s.opts.InterceptID != "" {
		if _, err := s.opts.Journal.RecordResult(s.ctx, s.opts.InterceptID, dispatchID, res); err != nil {
			logging.JournalError("record result: %v", err)
		}
	}
	s.refreshDetails()
	s.setInfo("Result: " + editor.ResultCodeName(res.Code))
}

func (s *Screen) copy(what, text string) {
	if err := clipboardWriteAll(text); err != nil {
		s.setError(fmt.Sprintf("Failed to copy %s", what))
		return
	}
	s.setInfo(fmt.Sprintf("Copied %s to clipboard", what))
}

func (s *Screen) setInfo(msg string) {
	s.status, s.statusErr = msg, false
}

func (s *Screen) setError(msg string) {
	s.status, s.statusErr = msg, true
}

// View implements tea.Model.
func (s *Screen) View() string {
	if s.quitting {
		return ""
	}

	var b strings.Builder
	title := "Intent Intercept"
	if s.ctrl.Dirty() {
		title += " " + s.styles.Dirty.Render("(edited)")
	}
	b.WriteString(s.styles.Header.Render(title))
	b.WriteString("\n")

	for i, id := range editor.Surfaces {
		label := s.styles.Label
		if i == s.focus {
			label = s.styles.FocusedLabel
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			label.Render(surfaceLabels[id]),
			s.inputs[i].View(),
		))
		b.WriteString("\n")
	}

	b.WriteString(s.styles.RenderDivider(s.width))
	b.WriteString("\n")
	b.WriteString(s.viewport.View())
	b.WriteString("\n")

	switch {
	case s.status == "":
		b.WriteString(s.styles.Muted.Render(" "))
	case s.statusErr:
		b.WriteString(s.styles.Error.Render(s.status))
	default:
		b.WriteString(s.styles.Success.Render(s.status))
	}
	b.WriteString("\n")
	b.WriteString(s.styles.Footer.Render(s.help.View(s.keys)))
	return b.String()
}

// Run shows the screen until the user quits and returns it for reading
// the session outcome.
func Run(ctx context.Context, opts Options) (*Screen, error) {
	s, err := New(ctx, opts)
	if err != nil {
		return nil, err
	}
	logging.UI("console opened on %s", s.model.Original())
	if _, err := tea.NewProgram(s, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return s, fmt.Errorf("console: %w", err)
	}
	return s, nil
}
