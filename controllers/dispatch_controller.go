package controllers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/navahdam/pktwatch/api/interfaces"
	"github.com/navahdam/pktwatch/classify"
	"github.com/navahdam/pktwatch/events"
	"github.com/navahdam/pktwatch/metrics"
)

const DefaultDrainInterval = time.Second

// Dispatcher states. Idle until Start, Running while ticking, Stopped after
// the final drain.
const (
	StateIdle int32 = iota
	StateRunning
	StateStopped
)

var _ interfaces.DispatchController = &DispatchController{}

// DispatchController drains the hand-off queue once per interval. Every
// drained record lands in the in-memory history; records passing the
// display filter are forwarded to the subscribed consumers; blocked records
// raise an alert while alerting is enabled.
type DispatchController struct {
	queue    *events.Queue
	interval time.Duration
	logger   *logrus.Logger

	mu sync.Mutex
	// historyLimit caps retained records; 0 keeps everything, matching the
	// original unbounded behavior.
	historyLimit int
	history      []classify.Record
	filter       classify.Filter
	consumers    []interfaces.Consumer
	notifier     interfaces.Notifier
	alerts       bool

	state    atomic.Int32
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewDispatchController(queue *events.Queue, interval time.Duration, historyLimit int, notifier interfaces.Notifier, logger *logrus.Logger) *DispatchController {
	if interval <= 0 {
		interval = DefaultDrainInterval
	}
	return &DispatchController{
		queue:        queue,
		interval:     interval,
		historyLimit: historyLimit,
		notifier:     notifier,
		logger:       logger,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Subscribe registers a consumer for filter-passing records.
func (dc *DispatchController) Subscribe(c interfaces.Consumer) {
	dc.mu.Lock()
	dc.consumers = append(dc.consumers, c)
	dc.mu.Unlock()
}

// EnableAlerts toggles alert notifications. The toggle only affects whether
// new alerts fire; classification, filtering, and history are untouched.
func (dc *DispatchController) EnableAlerts(enabled bool) {
	dc.mu.Lock()
	dc.alerts = enabled
	dc.mu.Unlock()
}

// SetFilter replaces the display filter and re-scans the entire retained
// history under the new filter, returning the records that pass. The result
// is identical to what the filter would have forwarded had it been active
// from the start.
func (dc *DispatchController) SetFilter(f classify.Filter) []classify.Record {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	dc.filter = f
	return filterRecords(dc.history, f)
}

// Filtered returns the retained history narrowed by the current filter.
func (dc *DispatchController) Filtered() []classify.Record {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return filterRecords(dc.history, dc.filter)
}

// History returns a copy of the full retained history.
func (dc *DispatchController) History() []classify.Record {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	out := make([]classify.Record, len(dc.history))
	copy(out, dc.history)
	return out
}

func (dc *DispatchController) State() int32 {
	return dc.state.Load()
}

func (dc *DispatchController) Start(ctx context.Context) error {
	if !dc.state.CompareAndSwap(StateIdle, StateRunning) {
		return nil
	}
	dc.logger.WithField("interval", dc.interval).Info("Starting dispatch controller")
	go dc.run(ctx)
	return nil
}

func (dc *DispatchController) run(ctx context.Context) {
	ticker := time.NewTicker(dc.interval)
	defer ticker.Stop()
	defer close(dc.done)
	defer dc.state.Store(StateStopped)

	for {
		select {
		case <-ticker.C:
			dc.Tick()
		case <-ctx.Done():
			dc.Tick()
			return
		case <-dc.stop:
			// Cooperative shutdown: one final drain, then stop.
			dc.Tick()
			return
		}
	}
}

// Stop shuts the dispatcher down after a final drain and waits for the loop
// to exit. Safe to call more than once.
func (dc *DispatchController) Stop() {
	dc.stopOnce.Do(func() {
		close(dc.stop)
	})
	if dc.state.Load() != StateIdle {
		<-dc.done
	}
}

// Tick drains the queue once and processes every record in push order.
func (dc *DispatchController) Tick() {
	recs := dc.queue.Drain()
	if len(recs) == 0 {
		return
	}
	metrics.DrainedRecords.Inc(int64(len(recs)))

	dc.mu.Lock()
	dc.history = append(dc.history, recs...)
	if dc.historyLimit > 0 && len(dc.history) > dc.historyLimit {
		trimmed := make([]classify.Record, dc.historyLimit)
		copy(trimmed, dc.history[len(dc.history)-dc.historyLimit:])
		dc.history = trimmed
	}
	forward := filterRecords(recs, dc.filter)
	consumers := make([]interfaces.Consumer, len(dc.consumers))
	copy(consumers, dc.consumers)
	alerts := dc.alerts
	notifier := dc.notifier
	dc.mu.Unlock()

	// Forward and alert outside the lock so a consumer may query the
	// dispatcher without deadlocking.
	for _, rec := range forward {
		for _, c := range consumers {
			c.Forward(rec)
		}
	}
	metrics.ForwardedRecords.Inc(int64(len(forward)))

	if alerts && notifier != nil {
		for _, rec := range recs {
			if rec.Blocked {
				notifier.Alert(rec.Line)
				metrics.AlertsRaised.Inc(1)
			}
		}
	}
}

func filterRecords(recs []classify.Record, f classify.Filter) []classify.Record {
	out := make([]classify.Record, 0, len(recs))
	for _, rec := range recs {
		if f.Match(rec) {
			out = append(out, rec)
		}
	}
	return out
}
