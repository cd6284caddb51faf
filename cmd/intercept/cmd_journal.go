package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"intercept/internal/dispatch"
	"intercept/internal/editor"
	"intercept/internal/intent"
	"intercept/internal/journal"
)

var (
	historyLimit int
	sendForce    bool
	sendTest     bool
)

// testIntentText is the shared text of the --test preset.
const testIntentText = "This is a test intent from Intent Intercept"

// sendCmd dispatches an intent without opening the editor
var sendCmd = &cobra.Command{
	Use:   "send <uri> | send --test",
	Short: "Send an intent through the configured dispatcher",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSend,
}

// historyCmd lists recent intercepts
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent intercepted intents",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

// showCmd prints one journal entry
var showCmd = &cobra.Command{
	Use:   "show <journal-id>",
	Short: "Show a journaled intent with its sends and results",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	sendCmd.Flags().BoolVarP(&sendForce, "force", "f", false, "Send even when the catalog knows no other receiver")
	sendCmd.Flags().BoolVar(&sendTest, "test", false, "Send a plain-text share intent instead of a uri")
}

func runSend(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	in, err := sendTarget(args)
	if err != nil {
		return err
	}

	if !sendForce {
		cat, err := loadCatalog(ctx)
		if err != nil {
			return err
		}
		model, err := editor.Load(in, nil)
		if err != nil {
			return err
		}
		if !model.MatchingTargets(cat, cfg.Identity.SelfPackage).CanResend() {
			return errors.New("no other activity in the catalog can handle this intent (use --force to send anyway)")
		}
	}

	dispatcher, err := dispatch.New(cfg, nil)
	if err != nil {
		return err
	}
	store, err := openJournal()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	var interceptID string
	if store != nil {
		rec, err := store.RecordIntercept(ctx, in, "cli", "")
		if err != nil {
			return fmt.Errorf("journal intercept: %w", err)
		}
		interceptID = rec.ID
	}

	sendCtx, cancel := context.WithTimeout(ctx, cfg.GetDispatchTimeout()+5*time.Second)
	defer cancel()
	receipt, sendErr := dispatcher.Dispatch(sendCtx, in)

	var dispatchID string
	if store != nil {
		d, err := store.RecordDispatch(ctx, interceptID, in, receipt, sendErr)
		if err != nil {
			logger.Warn("Failed to journal dispatch", zap.Error(err))
		} else {
			dispatchID = d.ID
		}
	}
	if sendErr != nil {
		return fmt.Errorf("send failed: %w", sendErr)
	}

	logger.Info("Intent sent", zap.String("target", receipt.Target), zap.String("id", receipt.ID))
	if receipt.Result == nil {
		fmt.Fprintf(out, "Sent via %s (%s); the result will arrive in the inbox\n", receipt.Target, receipt.ID)
		return nil
	}

	fmt.Fprintf(out, "Sent via %s: %s\n", receipt.Target, editor.ResultCodeName(receipt.Result.Code))
	if store != nil {
		if _, err := store.RecordResult(ctx, interceptID, dispatchID, *receipt.Result); err != nil {
			logger.Warn("Failed to journal result", zap.Error(err))
		}
	}
	return nil
}

// sendTarget is the uri argument or, with --test, the share preset.
func sendTarget(args []string) (*intent.Intent, error) {
	switch {
	case sendTest && len(args) > 0:
		return nil, errors.New("--test takes no uri")
	case sendTest:
		return testIntent(), nil
	case len(args) == 0:
		return nil, errors.New("nothing to send: pass an intent uri or --test")
	}
	return intent.Decode(args[0])
}

func testIntent() *intent.Intent {
	in := intent.New(intent.ActionSend)
	in.Type = "text/plain"
	in.PutExtra(intent.ExtraText, intent.StringValue(testIntentText))
	return in
}

func requireJournal() (*journal.Store, error) {
	store, err := openJournal()
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("the journal is disabled (journal.enabled: false)")
	}
	return store, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := requireJournal()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No intercepted intents yet")
		return nil
	}
	for i, e := range entries {
		fmt.Fprintf(out, "  %d. %s  %s  [%s]  %s\n",
			i+1, e.ID, e.ReceivedAt.Local().Format(time.DateTime), e.Source, e.URI)
	}
	fmt.Fprintf(out, "Total: %d entries\n", len(entries))
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	store, err := requireJournal()
	if err != nil {
		return err
	}
	defer store.Close()

	entry, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	in, err := entry.Intercept.Intent()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Intercept %s from %s at %s\n", entry.ID, entry.Source, entry.ReceivedAt.Local().Format(time.DateTime))
	printIntent(out, in)

	for _, d := range entry.Dispatches {
		status := "ok"
		if d.Error != "" {
			status = "error: " + d.Error
		}
		fmt.Fprintf(out, "Sent %s via %s at %s (%s)\n", d.ID, d.Target, d.SentAt.Local().Format(time.DateTime), status)
	}
	for _, r := range entry.Results {
		fmt.Fprintf(out, "Result %s: %d (%s)\n", r.ID, r.Code, editor.ResultCodeName(r.Code))
		ri, err := r.Intent()
		if err != nil {
			fmt.Fprintf(out, "  unreadable result intent: %v\n", err)
			continue
		}
		if ri != nil {
			printIntent(out, ri)
		}
	}
	return nil
}
