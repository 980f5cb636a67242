package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/navahdam/pktwatch/capture"
	"github.com/navahdam/pktwatch/classify"
	"github.com/navahdam/pktwatch/config"
	"github.com/navahdam/pktwatch/controllers"
	"github.com/navahdam/pktwatch/rules"
	"github.com/navahdam/pktwatch/store"
)

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.Out = os.Stdout
	return logger
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	logger := newLogger()

	source, err := capture.NewPcapSource(capture.PcapConfig{
		Interface:   cfg.Capture.Interface,
		BPFFilter:   cfg.Capture.BPFFilter,
		SnapshotLen: cfg.Capture.SnapshotLen,
		Promiscuous: cfg.Capture.Promiscuous,
	}, logger)
	if err != nil {
		return err
	}

	return runPipeline(cfg, source, logger)
}

func replay(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	logger := newLogger()

	f, err := os.Open(c.String("file"))
	if err != nil {
		return err
	}
	defer f.Close()

	return runPipeline(cfg, capture.NewReplaySource(f, logger), logger)
}

// runPipeline wires the rule store, the source, and the controllers, then
// blocks until a shutdown signal arrives.
func runPipeline(cfg *config.Config, source capture.Source, logger *logrus.Logger) error {
	ruleStore, err := rules.Load(cfg.Rules.Path, cfg.Rules.Autosave)
	if err != nil {
		source.Close()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl := controllers.NewControllersManager(cfg, ruleStore, source, logger)
	ctrl.Dispatch.Subscribe(&consoleConsumer{})

	if cfg.Persistence.Enabled {
		sink, err := store.NewMongoSink(ctx, cfg.Persistence, logger)
		if err != nil {
			source.Close()
			return fmt.Errorf("failed to connect persistence sink: %w", err)
		}
		defer sink.Close(context.Background())
		ctrl.Dispatch.Subscribe(sink)
	}

	if err := ctrl.Start(ctx, cfg); err != nil {
		source.Close()
		return err
	}

	ctrl.Shutdown()
	return nil
}

// consoleConsumer is the default external consumer: it prints every
// filter-passing display line.
type consoleConsumer struct{}

func (consoleConsumer) Forward(rec classify.Record) {
	fmt.Println(rec.Line)
}
