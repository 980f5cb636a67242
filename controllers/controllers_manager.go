package controllers

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/navahdam/pktwatch/api/interfaces"
	"github.com/navahdam/pktwatch/capture"
	"github.com/navahdam/pktwatch/config"
	"github.com/navahdam/pktwatch/events"
	"github.com/navahdam/pktwatch/metrics"
	"github.com/navahdam/pktwatch/rules"
)

// ControllersManager wires the rule store, the packet source, the hand-off
// queue, and the two controllers into one pipeline with a single lifetime.
type ControllersManager struct {
	logger *logrus.Logger

	Rules    *rules.Store
	Capture  interfaces.CaptureController
	Dispatch interfaces.DispatchController

	queue *events.Queue
}

// NewControllersManager builds the pipeline around an already opened packet
// source and an already loaded rule store.
func NewControllersManager(cfg *config.Config, store *rules.Store, source capture.Source, logger *logrus.Logger) *ControllersManager {
	queue := events.NewQueue()

	captureLogger := logger.WithField("controller", "Capture")
	captureController := NewCaptureController(source, store, queue, captureLogger.Logger)

	dispatchLogger := logger.WithField("controller", "Dispatch")
	dispatchController := NewDispatchController(
		queue,
		cfg.Dispatch.DrainInterval(),
		cfg.Dispatch.HistoryLimit,
		NewLogNotifier(logger),
		dispatchLogger.Logger,
	)
	dispatchController.EnableAlerts(cfg.Dispatch.Alerts)

	return &ControllersManager{
		logger:   logger,
		Rules:    store,
		Capture:  captureController,
		Dispatch: dispatchController,
		queue:    queue,
	}
}

func (c *ControllersManager) Start(ctx context.Context, cfg *config.Config) error {
	if err := c.Capture.Start(ctx); err != nil {
		return err
	}
	if err := c.Dispatch.Start(ctx); err != nil {
		return err
	}
	if cfg.Metrics.Enabled {
		go metrics.LogPeriodically(ctx, c.logger, cfg.Metrics.DumpInterval())
	}
	return nil
}

// Stop closes the capture side first so no new records arrive, then shuts
// the dispatcher down after its final drain.
func (c *ControllersManager) Stop() {
	if err := c.Capture.Close(); err != nil {
		c.logger.WithError(err).Error("Failed to close capture controller")
	}
	c.Dispatch.Stop()
	c.logger.Info("Goodbye")
}

// Shutdown blocks until SIGINT or SIGTERM, then stops the pipeline.
func (c *ControllersManager) Shutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM)
	signal.Notify(sigChan, syscall.SIGINT)

	rawSig := <-sigChan
	c.logger.WithField("signal", rawSig.String()).Info("Caught signal, shutting down")
	c.Stop()
}
