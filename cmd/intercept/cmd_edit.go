package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"intercept/cmd/intercept/console"
	"intercept/cmd/intercept/ui"
	"intercept/internal/config"
	"intercept/internal/dispatch"
	"intercept/internal/editor"
	"intercept/internal/inbox"
	"intercept/internal/intent"
	"intercept/internal/journal"
	"intercept/internal/logging"
)

var editOpts struct {
	envelope  string
	journalID string
}

// editCmd opens the interactive editor
var editCmd = &cobra.Command{
	Use:   "edit [uri]",
	Short: "Open the interactive intent editor",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runEdit,
}

func registerEditFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&editOpts.envelope, "envelope", "e", "", "Edit the intent in an inbox envelope file and reply to it on exit")
	cmd.Flags().StringVar(&editOpts.journalID, "journal-id", "", "Edit an intent recorded in the journal")
}

// inbound is what the editor was opened on.
type inbound struct {
	intent      *intent.Intent
	envelope    *inbox.Envelope // set when a reply is owed
	interceptID string
	source      string
}

func runEdit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := openJournal()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	src, err := resolveInbound(ctx, store, args)
	if err != nil {
		return err
	}

	model, err := editor.Load(src.intent, nil)
	if err != nil {
		return err
	}

	cat, err := loadCatalog(ctx)
	if err != nil {
		return err
	}
	dispatcher, err := dispatch.New(cfg, nil)
	if err != nil {
		return err
	}

	opts := console.Options{
		Model:       model,
		Resolver:    cat,
		Self:        cfg.Identity.SelfPackage,
		Dispatcher:  dispatcher,
		Journal:     store,
		InterceptID: src.interceptID,
		Styles:      ui.NewStyles(ui.ThemeFor(cfg.UI.Theme)),
	}

	// Outbox sends are answered through the inbox.
	if cfg.Dispatch.Mode == config.DispatchOutbox {
		w, err := inbox.NewWatcher(cfg.Inbox.Dir, inbox.WithDebounce(cfg.GetInboxDebounce()))
		if err != nil {
			return fmt.Errorf("failed to create inbox watcher: %w", err)
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
		opts.Deliveries = w.Deliveries()
	}

	screen, err := console.Run(ctx, opts)
	if err != nil {
		return err
	}
	return forwardResult(cmd, src, screen)
}

// resolveInbound picks the intent to edit from flags or the argument, and
// journals it when it is new.
func resolveInbound(ctx context.Context, store *journal.Store, args []string) (*inbound, error) {
	src := &inbound{}

	switch {
	case editOpts.journalID != "":
		if store == nil {
			return nil, errors.New("--journal-id needs the journal enabled")
		}
		entry, err := store.Get(ctx, editOpts.journalID)
		if err != nil {
			return nil, fmt.Errorf("journal entry %s: %w", editOpts.journalID, err)
		}
		in, err := entry.Intercept.Intent()
		if err != nil {
			return nil, err
		}
		src.intent = in
		src.interceptID = entry.ID
		return src, nil

	case editOpts.envelope != "":
		env, err := inbox.ReadEnvelope(editOpts.envelope)
		if err != nil {
			return nil, err
		}
		if env.Kind != inbox.KindIntent {
			return nil, fmt.Errorf("envelope %s carries a %s, not an intent", env.ID, env.Kind)
		}
		in, err := env.Intent()
		if err != nil {
			return nil, err
		}
		src.intent = in
		src.envelope = env
		src.source = env.Source

	case len(args) == 1:
		in, err := intent.Decode(args[0])
		if err != nil {
			return nil, err
		}
		src.intent = in
		src.source = "cli"

	default:
		return nil, errors.New("nothing to edit: pass an intent uri, --envelope or --journal-id")
	}

	if store != nil {
		envID := ""
		if src.envelope != nil {
			envID = src.envelope.ID
		}
		rec, err := store.RecordIntercept(ctx, src.intent, src.source, envID)
		if err != nil {
			logging.JournalError("record intercept: %v", err)
		} else {
			src.interceptID = rec.ID
		}
	}
	return src, nil
}

// forwardResult replies to the sender of an envelope with the last result,
// unchanged.
func forwardResult(cmd *cobra.Command, src *inbound, screen *console.Screen) error {
	if src.envelope == nil {
		return nil
	}
	res, ok := screen.LastResult()
	if !ok {
		return nil
	}
	reply, err := inbox.NewReplier(cfg.Inbox.Outbox).Reply(src.envelope, res)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Forwarded %s to %s\n", editor.ResultCodeName(res.Code), reply.Path)
	return nil
}
