package controllers

import (
	"github.com/sirupsen/logrus"

	"github.com/navahdam/pktwatch/api/interfaces"
)

var _ interfaces.Notifier = &LogNotifier{}

// LogNotifier is the default alert sink: it writes the display line of each
// blocked record through the logger.
type LogNotifier struct {
	logger *logrus.Logger
}

func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Alert(line string) {
	n.logger.WithField("alert", line).Warn("Blocked packet")
}
