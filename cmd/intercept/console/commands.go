package console

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"intercept/internal/dispatch"
	"intercept/internal/inbox"
	"intercept/internal/intent"
	"intercept/internal/logging"
)

type dispatchedMsg struct {
	intent  *intent.Intent
	receipt *dispatch.Receipt
	err     error
}

type deliveryMsg struct {
	delivery inbox.Delivery
}

type deliveriesClosedMsg struct{}

func dispatchCmd(ctx context.Context, d dispatch.Dispatcher, in *intent.Intent) tea.Cmd {
	return func() tea.Msg {
		timer := logging.StartTimer(logging.CategoryDispatch, "console send")
		defer timer.Stop()
		receipt, err := d.Dispatch(ctx, in)
		return dispatchedMsg{intent: in, receipt: receipt, err: err}
	}
}

func waitForDelivery(ch <-chan inbox.Delivery) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		d, ok := <-ch
		if !ok {
			return deliveriesClosedMsg{}
		}
		return deliveryMsg{delivery: d}
	}
}
