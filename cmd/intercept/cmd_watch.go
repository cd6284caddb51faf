package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"intercept/internal/details"
	"intercept/internal/editor"
	"intercept/internal/inbox"
	"intercept/internal/journal"
)

var watchBacklog bool

// watchCmd is the headless inbox loop
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the inbox, journal every envelope and print intent details",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	store, err := openJournal()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}
	cat, err := loadCatalog(ctx)
	if err != nil {
		return err
	}

	opts := []inbox.WatcherOption{inbox.WithDebounce(cfg.GetInboxDebounce())}
	if watchBacklog {
		opts = append(opts, inbox.WithBacklog())
	}
	w, err := inbox.NewWatcher(cfg.Inbox.Dir, opts...)
	if err != nil {
		return fmt.Errorf("failed to create inbox watcher: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	logger.Info("Watching inbox", zap.String("dir", w.Dir()))
	h := &deliveryHandler{out: cmd.OutOrStdout(), store: store, resolver: cat, self: cfg.Identity.SelfPackage}
	for d := range w.Deliveries() {
		if err := h.handle(ctx, d); err != nil {
			logger.Warn("Envelope skipped", zap.String("path", d.Path), zap.Error(err))
		}
	}

	stats := w.Stats()
	logger.Info("Inbox watcher stopped",
		zap.Int("delivered", stats.Delivered),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("errors", stats.Errors))
	return nil
}

// deliveryHandler journals envelopes and prints the report of every
// inbound intent.
type deliveryHandler struct {
	out      io.Writer
	store    *journal.Store
	resolver editor.Resolver
	self     string
}

func (h *deliveryHandler) handle(ctx context.Context, d inbox.Delivery) error {
	if d.Err != nil {
		return d.Err
	}
	env := d.Envelope
	switch env.Kind {
	case inbox.KindIntent:
		return h.handleIntent(ctx, env)
	case inbox.KindResult:
		return h.handleResult(ctx, env)
	default:
		return fmt.Errorf("envelope %s: unknown kind %q", env.ID, env.Kind)
	}
}

func (h *deliveryHandler) handleIntent(ctx context.Context, env *inbox.Envelope) error {
	in, err := env.Intent()
	if err != nil {
		return err
	}
	model, err := editor.Load(in, nil)
	if err != nil {
		return err
	}

	if h.store != nil {
		rec, err := h.store.RecordIntercept(ctx, in, env.Source, env.ID)
		if err != nil {
			return fmt.Errorf("journal intercept: %w", err)
		}
		fmt.Fprintf(h.out, "=== %s (journal %s)\n", env.ID, rec.ID)
	} else {
		fmt.Fprintf(h.out, "=== %s\n", env.ID)
	}
	fmt.Fprintln(h.out, details.Plain(details.ForModel(model, h.resolver, h.self)))
	return nil
}

// handleResult journals a reply to an earlier outbox dispatch.
func (h *deliveryHandler) handleResult(ctx context.Context, env *inbox.Envelope) error {
	res, err := env.Result()
	if err != nil {
		return err
	}
	fmt.Fprintf(h.out, "=== result %s for %s: %s\n", env.ID, env.ReplyTo, editor.ResultCodeName(res.Code))
	if h.store == nil || env.ReplyTo == "" {
		return nil
	}
	d, err := h.store.FindDispatch(ctx, env.ReplyTo)
	if err != nil {
		return fmt.Errorf("result %s: %w", env.ID, err)
	}
	if _, err := h.store.RecordResult(ctx, d.InterceptID, d.ID, res); err != nil {
		return fmt.Errorf("journal result: %w", err)
	}
	return nil
}
