// Package dispatch sends edited intents to their receivers. Delivery is
// delegated to an external mechanism: adb on a connected device or an
// outbox directory read by a companion process.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"intercept/internal/config"
	"intercept/internal/editor"
	"intercept/internal/intent"
	"intercept/internal/tactile"
)

// Receipt describes one dispatch.
type Receipt struct {
	ID      string
	Target  string // adb, outbox
	Command string
	Output  string
	SentAt  time.Time

	// Result is set when the target reports the outcome synchronously.
	// Otherwise it arrives later as an inbox result envelope.
	Result *editor.Result
}

// Dispatcher sends an intent to whichever receiver the platform picks.
type Dispatcher interface {
	Dispatch(ctx context.Context, in *intent.Intent) (*Receipt, error)
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, in *intent.Intent) (*Receipt, error)

// Dispatch implements Dispatcher.
func (f DispatcherFunc) Dispatch(ctx context.Context, in *intent.Intent) (*Receipt, error) {
	return f(ctx, in)
}

// New builds the dispatcher selected by cfg. A nil exec uses a direct
// host executor.
func New(cfg *config.Config, exec tactile.Executor) (Dispatcher, error) {
	switch cfg.Dispatch.Mode {
	case config.DispatchADB:
		if exec == nil {
			exec = tactile.NewDirectExecutor()
		}
		return NewADB(exec, cfg.Dispatch.ADBPath, cfg.Dispatch.Serial, cfg.GetDispatchTimeout()), nil
	case config.DispatchOutbox:
		return NewOutbox(cfg.Inbox.Outbox, cfg.Identity.SelfPackage), nil
	default:
		return nil, fmt.Errorf("unknown dispatch mode %q", cfg.Dispatch.Mode)
	}
}
