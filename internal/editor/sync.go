package editor

import (
	"fmt"

	"intercept/internal/logging"
)

// SurfaceID names one editable text surface.
type SurfaceID string

const (
	SurfaceAction SurfaceID = "action"
	SurfaceData   SurfaceID = "data"
	SurfaceType   SurfaceID = "type"
	SurfaceURI    SurfaceID = "uri"
)

// Surfaces lists every surface in refresh order.
var Surfaces = []SurfaceID{SurfaceAction, SurfaceData, SurfaceType, SurfaceURI}

// Surface is a text field the controller can write into. Writing may
// synchronously call back into OnUserEdit; those calls are suppressed.
type Surface interface {
	SetText(text string)
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func(text string)

// SetText implements Surface.
func (f SurfaceFunc) SetText(text string) { f(text) }

// Notice is a transient user-facing message.
type Notice struct {
	Surface SurfaceID
	Message string
	Err     error
}

// Controller binds text surfaces to a Model. A single suppress flag covers
// every programmatic write, so neither a mutator's observers nor a refresh
// can re-enter OnUserEdit.
type Controller struct {
	model      *Model
	surfaces   map[SurfaceID]Surface
	suppressed bool
	active     SurfaceID
	notify     func(Notice)
}

// NewController takes ownership of model.
func NewController(model *Model) *Controller {
	return &Controller{
		model:    model,
		surfaces: make(map[SurfaceID]Surface, len(Surfaces)),
	}
}

// Bind attaches a surface. Rebinding replaces the previous one.
func (c *Controller) Bind(id SurfaceID, s Surface) {
	c.surfaces[id] = s
}

// OnNotice sets the sink for transient notices.
func (c *Controller) OnNotice(fn func(Notice)) { c.notify = fn }

// Model returns the controlled model for reading.
func (c *Controller) Model() *Model { return c.model }

// Suppressed reports whether a programmatic update is in progress.
func (c *Controller) Suppressed() bool { return c.suppressed }

// ActiveSurface is the surface of the last accepted user edit.
func (c *Controller) ActiveSurface() SurfaceID { return c.active }

// Dirty gates the reset and "send edited" affordances.
func (c *Controller) Dirty() bool { return c.model.Dirty() }

// OnUserEdit applies text typed into surface id. It is a no-op while
// suppressed. The surface being edited is never written back.
func (c *Controller) OnUserEdit(id SurfaceID, text string) error {
	if c.suppressed {
		logging.SyncDebug("suppressed edit on %s", id)
		return nil
	}
	c.suppressed = true
	defer func() { c.suppressed = false }()

	switch id {
	case SurfaceAction:
		c.model.SetAction(text)
	case SurfaceData:
		if err := c.model.SetData(text); err != nil {
			c.publish(Notice{Surface: id, Message: "Wrong uri", Err: err})
			return err
		}
	case SurfaceType:
		c.model.SetType(text)
	case SurfaceURI:
		// The raw text stays as typed whether or not it parses.
		if err := c.model.ReplaceFromURI(text); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown surface %q", id)
	}

	c.active = id
	c.refreshExcept(id)
	return nil
}

// RefreshAllExcept writes the model into every surface but skip.
func (c *Controller) RefreshAllExcept(skip SurfaceID) {
	prev := c.suppressed
	c.suppressed = true
	defer func() { c.suppressed = prev }()
	c.refreshExcept(skip)
}

// RefreshAll writes the model into every surface.
func (c *Controller) RefreshAll() { c.RefreshAllExcept("") }

// Reset restores the loaded intent and redraws every surface.
func (c *Controller) Reset() error {
	prev := c.suppressed
	c.suppressed = true
	defer func() { c.suppressed = prev }()

	if err := c.model.Reset(); err != nil {
		return err
	}
	c.active = ""
	c.refreshExcept("")
	return nil
}

func (c *Controller) refreshExcept(skip SurfaceID) {
	in := c.model.current
	for _, id := range Surfaces {
		if id == skip {
			continue
		}
		s, ok := c.surfaces[id]
		if !ok {
			continue
		}
		switch id {
		case SurfaceAction:
			s.SetText(in.Action)
		case SurfaceData:
			s.SetText(in.Data)
		case SurfaceType:
			s.SetText(in.Type)
		case SurfaceURI:
			s.SetText(c.model.ResolvedURI())
		}
	}
}

func (c *Controller) publish(n Notice) {
	logging.SyncDebug("notice on %s: %s", n.Surface, n.Message)
	if c.notify != nil {
		c.notify(n)
	}
}
