package dispatch

import (
	"context"
	"fmt"
	"time"

	"intercept/internal/inbox"
	"intercept/internal/intent"
	"intercept/internal/logging"
)

// Outbox hands intents to a companion process as envelope files. The
// result comes back later as an inbox result envelope whose reply_to is
// the receipt id.
type Outbox struct {
	dir    string
	source string
}

var _ Dispatcher = (*Outbox)(nil)

// NewOutbox writes into dir, stamping envelopes with source.
func NewOutbox(dir, source string) *Outbox {
	return &Outbox{dir: dir, source: source}
}

// Dispatch writes the intent envelope.
func (o *Outbox) Dispatch(ctx context.Context, in *intent.Intent) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if in == nil {
		return nil, fmt.Errorf("outbox: nil intent")
	}
	env := inbox.NewIntentEnvelope(in, o.source)
	path, err := inbox.WriteEnvelope(o.dir, env)
	if err != nil {
		logging.DispatchError("outbox: %v", err)
		return nil, fmt.Errorf("outbox: %w", err)
	}
	logging.Dispatch("outbox dispatch %s -> %s", env.ID, path)
	return &Receipt{
		ID:      env.ID,
		Target:  "outbox",
		Command: path,
		SentAt:  time.Now(),
	}, nil
}
