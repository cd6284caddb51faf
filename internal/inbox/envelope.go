// Package inbox carries intents and results across the process boundary as
// JSON envelope files. A Watcher delivers envelopes dropped into a
// directory; a Replier writes result envelopes to the outbox.
package inbox

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"intercept/internal/editor"
	"intercept/internal/intent"
)

// Kind distinguishes envelope payloads.
type Kind string

const (
	KindIntent Kind = "intent"
	KindResult Kind = "result"
)

// Envelope is the on-disk exchange format. URI carries the intent in its
// canonical form; Extras carries the payload the URI cannot.
type Envelope struct {
	ID        string        `json:"id"`
	Kind      Kind          `json:"kind"`
	URI       string        `json:"uri,omitempty"`
	Extras    intent.Extras `json:"extras,omitempty"`
	Code      *int          `json:"code,omitempty"`
	ReplyTo   string        `json:"reply_to,omitempty"`
	Source    string        `json:"source,omitempty"`
	CreatedAt time.Time     `json:"created_at,omitempty"`

	// Path is the file the envelope was read from.
	Path string `json:"-"`
}

// NewIntentEnvelope wraps an outbound intent under a fresh id.
func NewIntentEnvelope(in *intent.Intent, source string) *Envelope {
	if in == nil {
		in = &intent.Intent{}
	}
	return &Envelope{
		ID:        uuid.NewString(),
		Kind:      KindIntent,
		URI:       intent.Encode(in),
		Extras:    in.Extras.Clone(),
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
}

// NewResultEnvelope wraps a returned result. A nil intent leaves URI empty.
func NewResultEnvelope(res editor.Result, replyTo string) *Envelope {
	code := res.Code
	e := &Envelope{
		ID:        uuid.NewString(),
		Kind:      KindResult,
		Code:      &code,
		ReplyTo:   replyTo,
		CreatedAt: time.Now().UTC(),
	}
	if res.Intent != nil {
		e.URI = intent.Encode(res.Intent)
		e.Extras = res.Intent.Extras.Clone()
	}
	return e
}

// Validate checks the fields required by the envelope kind.
func (e *Envelope) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("envelope: id is required")
	}
	switch e.Kind {
	case KindIntent:
		if e.URI == "" {
			return fmt.Errorf("envelope %s: intent envelope without uri", e.ID)
		}
	case KindResult:
		if e.Code == nil {
			return fmt.Errorf("envelope %s: result envelope without code", e.ID)
		}
	default:
		return fmt.Errorf("envelope %s: unknown kind %q", e.ID, e.Kind)
	}
	return nil
}

// Intent decodes the carried intent. Extras decoded from the URI win over
// the envelope's extras.
func (e *Envelope) Intent() (*intent.Intent, error) {
	if e.URI == "" {
		return nil, nil
	}
	decoded, err := intent.Decode(e.URI)
	if err != nil {
		return nil, fmt.Errorf("envelope %s: %w", e.ID, err)
	}
	return intent.Reapply(decoded, e.Extras), nil
}

// Result converts a result envelope.
func (e *Envelope) Result() (editor.Result, error) {
	if e.Kind != KindResult || e.Code == nil {
		return editor.Result{}, fmt.Errorf("envelope %s is not a result", e.ID)
	}
	in, err := e.Intent()
	if err != nil {
		return editor.Result{}, err
	}
	return editor.Result{Code: *e.Code, Intent: in}, nil
}

// ReadEnvelope loads and validates one envelope file.
func ReadEnvelope(path string) (*Envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read envelope: %w", err)
	}
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to parse envelope %s: %w", path, err)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	e.Path = path
	return &e, nil
}

// WriteEnvelope writes e into dir as <id>.json. The file appears
// atomically so watchers never see a partial envelope.
func WriteEnvelope(dir string, e *Envelope) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create envelope directory: %w", err)
	}
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal envelope: %w", err)
	}

	final := filepath.Join(dir, e.ID+".json")
	tmp := filepath.Join(dir, "."+e.ID+".json.tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write envelope: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to publish envelope: %w", err)
	}
	return final, nil
}
