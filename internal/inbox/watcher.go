package inbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"intercept/internal/logging"
)

// Delivery is one processed inbox file. Err is set when the file could not
// be read as an envelope.
type Delivery struct {
	Path     string
	Envelope *Envelope
	Err      error
}

// WatcherStats tracks watcher activity.
type WatcherStats struct {
	Delivered     int
	Duplicates    int
	Errors        int
	LastEventTime time.Time
	LastEventPath string
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets how long a file must be quiet before it is read.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounceDur = d }
}

// WithBacklog makes Start deliver envelopes already present in the
// directory.
func WithBacklog() WatcherOption {
	return func(w *Watcher) { w.backlog = true }
}

// Watcher watches a directory for envelope files and delivers each
// envelope id once.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	dir         string
	debounceMap map[string]time.Time
	debounceDur time.Duration
	backlog     bool
	seen        map[string]bool
	out         chan Delivery
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats WatcherStats
}

// NewWatcher creates a watcher for dir.
func NewWatcher(dir string, opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		watcher:     fw,
		dir:         dir,
		debounceMap: make(map[string]time.Time),
		debounceDur: 200 * time.Millisecond,
		seen:        make(map[string]bool),
		out:         make(chan Delivery, 16),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Deliveries is closed when the watcher stops.
func (w *Watcher) Deliveries() <-chan Delivery { return w.out }

// Dir is the watched directory.
func (w *Watcher) Dir() string { return w.dir }

// Start creates the directory if needed and begins watching.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return w.abort(fmt.Errorf("failed to create inbox %s: %w", w.dir, err))
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return w.abort(fmt.Errorf("failed to watch inbox %s: %w", w.dir, err))
	}
	logging.Inbox("watching inbox: %s", w.dir)

	if w.backlog {
		entries, err := os.ReadDir(w.dir)
		if err != nil {
			return w.abort(fmt.Errorf("failed to scan inbox: %w", err))
		}
		w.mu.Lock()
		for _, e := range entries {
			if !e.IsDir() && isEnvelopeFile(e.Name()) {
				w.debounceMap[filepath.Join(w.dir, e.Name())] = time.Time{}
			}
		}
		w.mu.Unlock()
	}

	go w.run(ctx)
	return nil
}

func (w *Watcher) abort(err error) error {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	return err
}

// Stop halts the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.InboxWarn("inbox watcher: error closing watcher: %v", err)
	}
	logging.Inbox("inbox watcher stopped")
}

// Stats returns a snapshot of watcher counters.
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)
	defer close(w.out)

	tick := w.debounceDur / 2
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	debounceTicker := time.NewTicker(tick)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.InboxDebug("inbox watcher: context cancelled")
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.InboxWarn("inbox watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-debounceTicker.C:
			if !w.processDebounced(ctx) {
				return
			}
		}
	}
}

func isEnvelopeFile(name string) bool {
	base := filepath.Base(name)
	return strings.HasSuffix(base, ".json") && !strings.HasPrefix(base, ".")
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !isEnvelopeFile(event.Name) {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	logging.InboxDebug("inbox watcher: %s %s", event.Op, event.Name)

	w.mu.Lock()
	w.stats.LastEventTime = time.Now()
	w.stats.LastEventPath = event.Name
	w.debounceMap[event.Name] = time.Now()
	w.mu.Unlock()
}

// processDebounced delivers every file quiet for the debounce window. It
// returns false when the watcher should exit.
func (w *Watcher) processDebounced(ctx context.Context) bool {
	w.mu.Lock()
	now := time.Now()
	var ready []string
	for path, t := range w.debounceMap {
		if now.Sub(t) >= w.debounceDur {
			ready = append(ready, path)
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()

	for _, path := range ready {
		d, ok := w.read(path)
		if !ok {
			continue
		}
		select {
		case w.out <- d:
		case <-w.stopCh:
			return false
		case <-ctx.Done():
			return false
		}
	}
	return true
}

func (w *Watcher) read(path string) (Delivery, bool) {
	env, err := ReadEnvelope(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Delivery{}, false
		}
		w.mu.Lock()
		w.stats.Errors++
		w.mu.Unlock()
		logging.InboxWarn("inbox: %v", err)
		return Delivery{Path: path, Err: err}, true
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.seen[env.ID] {
		w.stats.Duplicates++
		logging.InboxDebug("inbox: duplicate envelope %s ignored", env.ID)
		return Delivery{}, false
	}
	w.seen[env.ID] = true
	w.stats.Delivered++
	logging.Inbox("inbox: %s envelope %s from %s", env.Kind, env.ID, path)
	return Delivery{Path: path, Envelope: env}, true
}
