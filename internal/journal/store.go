// Package journal keeps a sqlite history of intercepted intents, the
// edited intents sent on their behalf and the results that came back.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"intercept/internal/dispatch"
	"intercept/internal/editor"
	"intercept/internal/intent"
	"intercept/internal/logging"
)

// ErrNotFound is returned when an id has no row.
var ErrNotFound = errors.New("journal: not found")

// Store manages the journal database.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// Intercept is one inbound intent.
type Intercept struct {
	ID         string
	EnvelopeID string
	Source     string
	URI        string
	Extras     intent.Extras
	ReceivedAt time.Time
}

// Intent rebuilds the intercepted intent including the extras the URI
// does not carry.
func (i *Intercept) Intent() (*intent.Intent, error) {
	decoded, err := intent.Decode(i.URI)
	if err != nil {
		return nil, err
	}
	return intent.Reapply(decoded, i.Extras), nil
}

// Dispatch is one resend attempt.
type Dispatch struct {
	ID          string
	InterceptID string
	Target      string
	URI         string
	Command     string
	Output      string
	Error       string
	SentAt      time.Time
}

// Result is one returned result.
type Result struct {
	ID          string
	InterceptID string
	DispatchID  string
	Code        int
	URI         string
	Extras      intent.Extras
	ReceivedAt  time.Time
}

// Entry is an intercept with everything recorded against it.
type Entry struct {
	Intercept
	Dispatches []Dispatch
	Results    []Result
}

// Open creates or opens the journal at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, dbPath: path}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	logging.JournalDebug("journal opened at %s", path)
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS intercepts (
		id TEXT PRIMARY KEY,
		envelope_id TEXT,
		source TEXT,
		uri TEXT NOT NULL,
		extras_json TEXT,
		received_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_intercepts_received ON intercepts(received_at);
	CREATE INDEX IF NOT EXISTS idx_intercepts_envelope ON intercepts(envelope_id);

	CREATE TABLE IF NOT EXISTS dispatches (
		id TEXT PRIMARY KEY,
		intercept_id TEXT NOT NULL,
		target TEXT NOT NULL,
		uri TEXT NOT NULL,
		command TEXT,
		output TEXT,
		error TEXT,
		sent_at DATETIME NOT NULL,
		FOREIGN KEY (intercept_id) REFERENCES intercepts(id)
	);
	CREATE INDEX IF NOT EXISTS idx_dispatches_intercept ON dispatches(intercept_id);

	CREATE TABLE IF NOT EXISTS results (
		id TEXT PRIMARY KEY,
		intercept_id TEXT NOT NULL,
		dispatch_id TEXT,
		code INTEGER NOT NULL,
		uri TEXT,
		extras_json TEXT,
		received_at DATETIME NOT NULL,
		FOREIGN KEY (intercept_id) REFERENCES intercepts(id)
	);
	CREATE INDEX IF NOT EXISTS idx_results_intercept ON results(intercept_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func marshalExtras(e intent.Extras) (sql.NullString, error) {
	if len(e) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal extras: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalExtras(s sql.NullString) (intent.Extras, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var e intent.Extras
	if err := json.Unmarshal([]byte(s.String), &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal extras: %w", err)
	}
	return e, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// =============================================================================
// WRITES
// =============================================================================

// RecordIntercept stores an inbound intent with its full extras.
func (s *Store) RecordIntercept(ctx context.Context, in *intent.Intent, source, envelopeID string) (*Intercept, error) {
	if in == nil {
		return nil, fmt.Errorf("journal: nil intent")
	}
	rec := &Intercept{
		ID:         uuid.NewString(),
		EnvelopeID: envelopeID,
		Source:     source,
		URI:        intent.Encode(in),
		Extras:     in.Extras.Clone(),
		ReceivedAt: time.Now().UTC(),
	}
	extras, err := marshalExtras(rec.Extras)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO intercepts (id, envelope_id, source, uri, extras_json, received_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, nullable(envelopeID), nullable(source), rec.URI, extras, rec.ReceivedAt)
	if err != nil {
		logging.JournalError("record intercept: %v", err)
		return nil, fmt.Errorf("failed to record intercept: %w", err)
	}
	logging.JournalDebug("intercept %s recorded: %s", rec.ID, rec.URI)
	return rec, nil
}

// RecordDispatch stores a resend. A failed dispatch is recorded with its
// error and a nil receipt.
func (s *Store) RecordDispatch(ctx context.Context, interceptID string, in *intent.Intent, receipt *dispatch.Receipt, dispatchErr error) (*Dispatch, error) {
	rec := &Dispatch{
		ID:          uuid.NewString(),
		InterceptID: interceptID,
		URI:         intent.Encode(in),
		SentAt:      time.Now().UTC(),
	}
	if receipt != nil {
		rec.ID = receipt.ID
		rec.Target = receipt.Target
		rec.Command = receipt.Command
		rec.Output = receipt.Output
		rec.SentAt = receipt.SentAt.UTC()
	}
	if rec.Target == "" {
		rec.Target = "unknown"
	}
	if dispatchErr != nil {
		rec.Error = dispatchErr.Error()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dispatches (id, intercept_id, target, uri, command, output, error, sent_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.InterceptID, rec.Target, rec.URI, nullable(rec.Command), nullable(rec.Output), nullable(rec.Error), rec.SentAt)
	if err != nil {
		logging.JournalError("record dispatch: %v", err)
		return nil, fmt.Errorf("failed to record dispatch: %w", err)
	}
	return rec, nil
}

// RecordResult stores a returned result. dispatchID may be empty.
func (s *Store) RecordResult(ctx context.Context, interceptID, dispatchID string, res editor.Result) (*Result, error) {
	rec := &Result{
		ID:          uuid.NewString(),
		InterceptID: interceptID,
		DispatchID:  dispatchID,
		Code:        res.Code,
		ReceivedAt:  time.Now().UTC(),
	}
	if res.Intent != nil {
		rec.URI = intent.Encode(res.Intent)
		rec.Extras = res.Intent.Extras.Clone()
	}
	extras, err := marshalExtras(rec.Extras)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO results (id, intercept_id, dispatch_id, code, uri, extras_json, received_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.InterceptID, nullable(dispatchID), rec.Code, nullable(rec.URI), extras, rec.ReceivedAt)
	if err != nil {
		logging.JournalError("record result: %v", err)
		return nil, fmt.Errorf("failed to record result: %w", err)
	}
	return rec, nil
}

// =============================================================================
// READS
// =============================================================================

// Recent returns the latest intercepts, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Intercept, error) {
	if limit <= 0 {
		limit = 20
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, envelope_id, source, uri, extras_json, received_at FROM intercepts ORDER BY received_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query intercepts: %w", err)
	}
	defer rows.Close()

	var out []Intercept
	for rows.Next() {
		rec, err := scanIntercept(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIntercept(sc scanner) (*Intercept, error) {
	var (
		rec                  Intercept
		envelope, source, ex sql.NullString
	)
	if err := sc.Scan(&rec.ID, &envelope, &source, &rec.URI, &ex, &rec.ReceivedAt); err != nil {
		return nil, err
	}
	rec.EnvelopeID = envelope.String
	rec.Source = source.String
	extras, err := unmarshalExtras(ex)
	if err != nil {
		return nil, err
	}
	rec.Extras = extras
	return &rec, nil
}

// Get returns an intercept with its dispatches and results in time order.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, envelope_id, source, uri, extras_json, received_at FROM intercepts WHERE id = ?`, id)
	rec, err := scanIntercept(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("intercept %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load intercept: %w", err)
	}
	entry := &Entry{Intercept: *rec}

	if entry.Dispatches, err = s.dispatchesFor(ctx, id); err != nil {
		return nil, err
	}
	if entry.Results, err = s.resultsFor(ctx, id); err != nil {
		return nil, err
	}
	return entry, nil
}

// FindDispatch looks a dispatch up by id, which is also the receipt id an
// outbox reply refers to.
func (s *Store) FindDispatch(ctx context.Context, id string) (*Dispatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, intercept_id, target, uri, command, output, error, sent_at FROM dispatches WHERE id = ?`, id)
	d, err := scanDispatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dispatch %s: %w", id, ErrNotFound)
	}
	return d, err
}

func scanDispatch(sc scanner) (*Dispatch, error) {
	var (
		d                     Dispatch
		command, output, errs sql.NullString
	)
	if err := sc.Scan(&d.ID, &d.InterceptID, &d.Target, &d.URI, &command, &output, &errs, &d.SentAt); err != nil {
		return nil, err
	}
	d.Command = command.String
	d.Output = output.String
	d.Error = errs.String
	return &d, nil
}

func (s *Store) dispatchesFor(ctx context.Context, interceptID string) ([]Dispatch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, intercept_id, target, uri, command, output, error, sent_at FROM dispatches WHERE intercept_id = ? ORDER BY sent_at, rowid`, interceptID)
	if err != nil {
		return nil, fmt.Errorf("failed to query dispatches: %w", err)
	}
	defer rows.Close()

	var out []Dispatch
	for rows.Next() {
		d, err := scanDispatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (s *Store) resultsFor(ctx context.Context, interceptID string) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, intercept_id, dispatch_id, code, uri, extras_json, received_at FROM results WHERE intercept_id = ? ORDER BY received_at, rowid`, interceptID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var (
			r                 Result
			dispatchID, u, ex sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.InterceptID, &dispatchID, &r.Code, &u, &ex, &r.ReceivedAt); err != nil {
			return nil, err
		}
		r.DispatchID = dispatchID.String
		r.URI = u.String
		if r.Extras, err = unmarshalExtras(ex); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Intent rebuilds the result intent, nil when none was returned.
func (r *Result) Intent() (*intent.Intent, error) {
	if r.URI == "" {
		return nil, nil
	}
	decoded, err := intent.Decode(r.URI)
	if err != nil {
		return nil, err
	}
	return intent.Reapply(decoded, r.Extras), nil
}
