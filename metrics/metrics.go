// Package metrics holds the pipeline counters in the go-metrics default
// registry.
package metrics

import (
	"context"
	"time"

	gometrics "github.com/rcrowley/go-metrics"
	"github.com/sirupsen/logrus"
)

var (
	CapturedPackets  = gometrics.NewRegisteredCounter("capture.packets", nil)
	DecodeErrors     = gometrics.NewRegisteredCounter("capture.decode_errors", nil)
	AllowedPackets   = gometrics.NewRegisteredCounter("classify.allowed", nil)
	BlockedPackets   = gometrics.NewRegisteredCounter("classify.blocked", nil)
	DrainedRecords   = gometrics.NewRegisteredCounter("dispatch.drained", nil)
	ForwardedRecords = gometrics.NewRegisteredCounter("dispatch.forwarded", nil)
	AlertsRaised     = gometrics.NewRegisteredCounter("dispatch.alerts", nil)
)

// LogPeriodically dumps every registered counter through the logger until
// the context is closed.
func LogPeriodically(ctx context.Context, logger *logrus.Logger, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fields := logrus.Fields{}
			gometrics.DefaultRegistry.Each(func(name string, i interface{}) {
				if c, ok := i.(gometrics.Counter); ok {
					fields[name] = c.Count()
				}
			})
			logger.WithFields(fields).Info("Pipeline counters")
		}
	}
}
