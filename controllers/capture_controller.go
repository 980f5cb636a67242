package controllers

import (
	"context"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/navahdam/pktwatch/api/interfaces"
	"github.com/navahdam/pktwatch/capture"
	"github.com/navahdam/pktwatch/classify"
	"github.com/navahdam/pktwatch/events"
	"github.com/navahdam/pktwatch/metrics"
)

var _ interfaces.CaptureController = &CaptureController{}

// CaptureController owns the capture loop: it reads decoded packets from the
// source, classifies each one against the current rule snapshot, and pushes
// the result onto the hand-off queue. The goroutine has an explicit
// shutdown contract: it stops between packets when the context closes or
// the source is exhausted.
type CaptureController struct {
	source capture.Source
	rules  interfaces.RuleProvider
	queue  *events.Queue
	logger *logrus.Logger
	closed atomic.Bool
}

func NewCaptureController(source capture.Source, rules interfaces.RuleProvider, queue *events.Queue, logger *logrus.Logger) *CaptureController {
	return &CaptureController{
		source: source,
		rules:  rules,
		queue:  queue,
		logger: logger,
	}
}

func (cc *CaptureController) Start(ctx context.Context) error {
	cc.logger.Info("Starting capture controller")
	go cc.listen(ctx)
	return nil
}

func (cc *CaptureController) listen(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-cc.source.Packets():
			if !ok {
				if !cc.closed.Load() {
					cc.logger.Info("Packet source exhausted")
				}
				return
			}
			cc.consume(p)
		}
	}
}

func (cc *CaptureController) consume(p capture.Record) {
	metrics.CapturedPackets.Inc(1)

	rec := classify.Classify(p, cc.rules.Snapshot())
	if rec.Blocked {
		metrics.BlockedPackets.Inc(1)
	} else {
		metrics.AllowedPackets.Inc(1)
	}

	cc.logger.
		WithField("packet", p).
		WithField("blocked", rec.Blocked).
		Debug("Classified packet")

	cc.queue.Push(rec)
}

func (cc *CaptureController) Close() error {
	cc.closed.Store(true)
	return cc.source.Close()
}
