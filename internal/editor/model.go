// Package editor holds the editable intent model, the controller that keeps
// text surfaces in sync with it, and the holder for returned results.
//
// Everything here runs synchronously on the caller's goroutine. The model is
// owned by one Controller; other code reads it but mutates only through the
// controller or the mutators below.
package editor

import (
	"errors"
	"fmt"
	"net/url"

	"intercept/internal/intent"
	"intercept/internal/logging"
)

// Field identifies which parts of the intent a change touched.
type Field uint8

const (
	FieldAction Field = 1 << iota
	FieldData
	FieldType
	FieldCategories
	FieldFlags
	FieldExtras
	FieldComponent

	FieldAll = FieldAction | FieldData | FieldType | FieldCategories | FieldFlags | FieldExtras | FieldComponent
)

// Has reports whether f includes every bit of other.
func (f Field) Has(other Field) bool { return f&other == other }

// Change is delivered to observers after every mutation.
type Change struct {
	Fields Field
	Reset  bool
}

// InvalidDataURIError is returned when free text does not parse as a URI.
type InvalidDataURIError struct {
	Text string
	Err  error
}

func (e *InvalidDataURIError) Error() string {
	return fmt.Sprintf("invalid data uri %q: %v", e.Text, e.Err)
}

func (e *InvalidDataURIError) Unwrap() error { return e.Err }

// IsInvalidDataURI reports whether err wraps an *InvalidDataURIError.
func IsInvalidDataURI(err error) bool {
	var e *InvalidDataURIError
	return errors.As(err, &e)
}

type observer struct {
	id int
	fn func(Change)
}

// Model is the single mutable source of truth for the intent under edit.
type Model struct {
	current   *intent.Intent
	original  string        // canonical URI of the loaded intent, never changes
	recovered intent.Extras // extras lost by one encode/decode pass, never changes
	results   *ResultForwarder
	dirty     bool

	observers []observer
	nextID    int
}

// Load builds a model from an inbound intent. The canonical URI and the
// recovered extras are computed here once.
func Load(in *intent.Intent, results *ResultForwarder) (*Model, error) {
	if in == nil {
		return nil, fmt.Errorf("load: nil intent")
	}
	if results == nil {
		results = NewResultForwarder()
	}

	original := intent.Encode(in)
	copied, err := intent.Decode(original)
	if err != nil {
		return nil, fmt.Errorf("load: canonical form does not decode: %w", err)
	}
	recovered := intent.Diff(in.Extras, copied.Extras)

	m := &Model{
		original:  original,
		recovered: recovered,
		results:   results,
	}
	if err := m.showInitial(); err != nil {
		return nil, err
	}
	logging.Model("loaded %s (%d extras recovered)", original, len(recovered))
	return m, nil
}

// initial re-derives the shown intent from the snapshot. The explicit
// component is dropped: the inbound intent was addressed to this tool.
func (m *Model) initial() (*intent.Intent, error) {
	decoded, err := intent.Decode(m.original)
	if err != nil {
		return nil, err
	}
	in := intent.Reapply(decoded, m.recovered)
	in.Component = nil
	return in, nil
}

func (m *Model) showInitial() error {
	in, err := m.initial()
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	m.current = in
	m.dirty = false
	return nil
}

// Reset discards all edits. The last result is kept.
func (m *Model) Reset() error {
	if err := m.showInitial(); err != nil {
		return err
	}
	logging.ModelDebug("reset to %s", m.original)
	m.emit(Change{Fields: FieldAll, Reset: true})
	return nil
}

// =============================================================================
// MUTATORS
// =============================================================================

// SetAction replaces the action.
func (m *Model) SetAction(action string) {
	m.current.Action = action
	m.commit(FieldAction)
}

// SetData parses text as the data URI; the mime type is kept. Empty text
// clears the data. On a parse failure nothing changes.
func (m *Model) SetData(text string) error {
	data, err := parseData(text)
	if err != nil {
		return err
	}
	m.current.Data = data
	m.commit(FieldData)
	return nil
}

// SetType replaces the mime type; the data URI is kept.
func (m *Model) SetType(mimeType string) {
	m.current.Type = mimeType
	m.commit(FieldType)
}

// SetDataAndType updates both coupled fields in one step.
func (m *Model) SetDataAndType(text, mimeType string) error {
	data, err := parseData(text)
	if err != nil {
		return err
	}
	m.current.Data = data
	m.current.Type = mimeType
	m.commit(FieldData | FieldType)
	return nil
}

// ReplaceFromURI decodes text and replaces the whole intent, re-applying
// the recovered extras. On a *intent.ParseError the model is unchanged.
func (m *Model) ReplaceFromURI(text string) error {
	decoded, err := intent.Decode(text)
	if err != nil {
		logging.ModelDebug("rejected uri edit: %v", err)
		return err
	}
	m.current = intent.Reapply(decoded, m.recovered)
	m.commit(FieldAll)
	return nil
}

func parseData(text string) (string, error) {
	if text == "" {
		return "", nil
	}
	if _, err := url.Parse(text); err != nil {
		return "", &InvalidDataURIError{Text: text, Err: err}
	}
	return text, nil
}

func (m *Model) commit(fields Field) {
	m.dirty = true
	m.emit(Change{Fields: fields})
}

// =============================================================================
// OBSERVERS
// =============================================================================

// Subscribe registers fn for change notifications, delivered synchronously
// in registration order. The returned func removes it.
func (m *Model) Subscribe(fn func(Change)) (cancel func()) {
	id := m.nextID
	m.nextID++
	m.observers = append(m.observers, observer{id: id, fn: fn})
	return func() {
		for i, o := range m.observers {
			if o.id == id {
				m.observers = append(m.observers[:i], m.observers[i+1:]...)
				return
			}
		}
	}
}

func (m *Model) emit(c Change) {
	observers := append([]observer(nil), m.observers...)
	for _, o := range observers {
		o.fn(c)
	}
}

// =============================================================================
// READERS
// =============================================================================

// Intent returns a copy of the current intent.
func (m *Model) Intent() *intent.Intent { return m.current.Clone() }

// ResolvedURI is the canonical form of the current state.
func (m *Model) ResolvedURI() string { return intent.Encode(m.current) }

// Initial returns the intent as first shown, before any edit.
func (m *Model) Initial() *intent.Intent {
	in, err := m.initial()
	if err != nil {
		return nil
	}
	return in
}

// Original is the canonical URI captured at load.
func (m *Model) Original() string { return m.original }

// Recovered returns a copy of the extras recovered at load.
func (m *Model) Recovered() intent.Extras { return m.recovered.Clone() }

// Dirty reports whether any mutator ran since load or the last reset.
func (m *Model) Dirty() bool { return m.dirty }

// Results exposes the result holder shared with the render layer.
func (m *Model) Results() *ResultForwarder { return m.results }

// LastResult returns the most recent returned result.
func (m *Model) LastResult() (Result, bool) { return m.results.Last() }

// MatchingTargets asks r for candidates and discounts the host itself.
func (m *Model) MatchingTargets(r Resolver, self string) Matches {
	if r == nil {
		return Matches{Candidates: []Candidate{}}
	}
	return countMatches(r.ResolveCandidates(m.current.Clone()), self)
}
