package interfaces

import (
	"context"

	"github.com/navahdam/pktwatch/classify"
	"github.com/navahdam/pktwatch/rules"
)

type Runnable interface {
	// Start starts running the component. The component will stop running
	// when the context is closed.
	Start(context.Context) error
}

// RuleProvider hands the classification path a consistent point-in-time
// view of the blocked-value sets.
type RuleProvider interface {
	Snapshot() rules.RuleSet
}

// Consumer receives every classification record that passes the display
// filter. Implementations must not block for long; they run on the
// dispatcher's tick.
type Consumer interface {
	Forward(rec classify.Record)
}

// Notifier receives the display line of each blocked record while alerting
// is enabled.
type Notifier interface {
	Alert(line string)
}

// CaptureController drives the packet source through classification into
// the hand-off queue.
type CaptureController interface {
	Runnable
	Close() error
}

// DispatchController drains the hand-off queue on a fixed cadence, keeps
// the record history, filters, forwards, and alerts.
type DispatchController interface {
	Runnable
	Subscribe(c Consumer)
	SetFilter(f classify.Filter) []classify.Record
	History() []classify.Record
	Filtered() []classify.Record
	EnableAlerts(enabled bool)
	Stop()
}
