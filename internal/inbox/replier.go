package inbox

import (
	"fmt"

	"intercept/internal/editor"
	"intercept/internal/logging"
)

// Replier returns results to whoever sent an intercepted intent.
type Replier struct {
	outbox string
}

// NewReplier writes replies into outbox.
func NewReplier(outbox string) *Replier {
	return &Replier{outbox: outbox}
}

// Reply forwards res unchanged as a reply to the inbound envelope.
func (r *Replier) Reply(inbound *Envelope, res editor.Result) (*Envelope, error) {
	if inbound == nil || inbound.ID == "" {
		return nil, fmt.Errorf("reply: inbound envelope has no id")
	}
	e := NewResultEnvelope(res, inbound.ID)
	e.Source = inbound.Source
	path, err := WriteEnvelope(r.outbox, e)
	if err != nil {
		return nil, fmt.Errorf("reply to %s: %w", inbound.ID, err)
	}
	e.Path = path
	logging.Inbox("replied to %s with %s (%s)", inbound.ID, editor.ResultCodeName(res.Code), path)
	return e, nil
}
