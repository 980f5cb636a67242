package controllers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navahdam/pktwatch/capture"
	"github.com/navahdam/pktwatch/classify"
	"github.com/navahdam/pktwatch/events"
	"github.com/navahdam/pktwatch/rules"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

type recordingConsumer struct {
	mu   sync.Mutex
	recs []classify.Record
}

func (c *recordingConsumer) Forward(rec classify.Record) {
	c.mu.Lock()
	c.recs = append(c.recs, rec)
	c.mu.Unlock()
}

func (c *recordingConsumer) lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.recs))
	for i, r := range c.recs {
		out[i] = r.Line
	}
	return out
}

type recordingNotifier struct {
	mu    sync.Mutex
	lines []string
}

func (n *recordingNotifier) Alert(line string) {
	n.mu.Lock()
	n.lines = append(n.lines, line)
	n.mu.Unlock()
}

func (n *recordingNotifier) alerts() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.lines...)
}

func classified(proto string, dstPort string, blocked bool) classify.Record {
	p := capture.Record{
		Timestamp: time.Now().Truncate(time.Second),
		SrcAddr:   "10.0.0.5",
		DstAddr:   "10.0.0.1",
		DstPort:   dstPort,
		Protocol:  proto,
	}
	return classify.Record{Packet: p, Blocked: blocked, Line: proto + ":" + dstPort}
}

func newDispatcher(notifier *recordingNotifier) (*DispatchController, *events.Queue) {
	q := events.NewQueue()
	dc := NewDispatchController(q, time.Hour, 0, notifier, testLogger())
	return dc, q
}

func TestTickForwardsInOrder(t *testing.T) {
	dc, q := newDispatcher(nil)
	consumer := &recordingConsumer{}
	dc.Subscribe(consumer)

	q.Push(classified("TCP", "80", false))
	q.Push(classified("UDP", "53", false))
	q.Push(classified("TCP", "22", true))
	dc.Tick()

	assert.Equal(t, []string{"TCP:80", "UDP:53", "TCP:22"}, consumer.lines())
	assert.Len(t, dc.History(), 3)
}

func TestTickWithEmptyQueue(t *testing.T) {
	dc, _ := newDispatcher(nil)
	dc.Tick()
	dc.Tick()
	assert.Empty(t, dc.History())
}

func TestFilterForwarding(t *testing.T) {
	dc, q := newDispatcher(nil)
	consumer := &recordingConsumer{}
	dc.Subscribe(consumer)
	dc.SetFilter(classify.Filter{Protocol: "tcp"})

	q.Push(classified("TCP", "80", false))
	q.Push(classified("UDP", "53", false))
	dc.Tick()

	assert.Equal(t, []string{"TCP:80"}, consumer.lines())
	assert.Len(t, dc.History(), 2, "history keeps every record regardless of filter")
}

func TestSetFilterRescansHistoryIdempotently(t *testing.T) {
	dc, q := newDispatcher(nil)

	q.Push(classified("TCP", "80", false))
	q.Push(classified("TCP", "22", true))
	q.Push(classified("UDP", "53", false))
	dc.Tick()

	f := classify.Filter{Port: "22"}
	first := dc.SetFilter(f)
	second := dc.SetFilter(f)

	require.Len(t, first, 1)
	assert.Equal(t, "TCP:22", first[0].Line)
	assert.Equal(t, first, second, "re-applying the same filter yields the same subset")
	assert.Equal(t, first, dc.Filtered())

	all := dc.SetFilter(classify.Filter{})
	assert.Len(t, all, 3, "clearing the filter passes the full history")
}

func TestAlertsOnlyWhenEnabled(t *testing.T) {
	notifier := &recordingNotifier{}
	dc, q := newDispatcher(notifier)

	q.Push(classified("TCP", "22", true))
	dc.Tick()
	assert.Empty(t, notifier.alerts(), "alerting defaults off")

	dc.EnableAlerts(true)
	q.Push(classified("TCP", "22", true))
	q.Push(classified("TCP", "80", false))
	dc.Tick()
	assert.Equal(t, []string{"TCP:22"}, notifier.alerts(), "only blocked records alert")

	dc.EnableAlerts(false)
	q.Push(classified("TCP", "22", true))
	dc.Tick()
	assert.Len(t, notifier.alerts(), 1, "toggle only affects new alerts")
	assert.Len(t, dc.History(), 4, "toggle never affects history")
}

func TestAlertsIgnoreDisplayFilter(t *testing.T) {
	notifier := &recordingNotifier{}
	dc, q := newDispatcher(notifier)
	dc.EnableAlerts(true)
	dc.SetFilter(classify.Filter{Protocol: "UDP"})

	q.Push(classified("TCP", "22", true))
	dc.Tick()

	assert.Equal(t, []string{"TCP:22"}, notifier.alerts(), "alerting is independent of the display filter")
}

func TestHistoryLimitKeepsMostRecent(t *testing.T) {
	q := events.NewQueue()
	dc := NewDispatchController(q, time.Hour, 2, nil, testLogger())

	q.Push(classified("TCP", "1", false))
	q.Push(classified("TCP", "2", false))
	q.Push(classified("TCP", "3", false))
	dc.Tick()

	hist := dc.History()
	require.Len(t, hist, 2)
	assert.Equal(t, "TCP:2", hist[0].Line)
	assert.Equal(t, "TCP:3", hist[1].Line)
}

func TestStopDrainsOnceMore(t *testing.T) {
	q := events.NewQueue()
	dc := NewDispatchController(q, time.Hour, 0, nil, testLogger())
	consumer := &recordingConsumer{}
	dc.Subscribe(consumer)

	require.NoError(t, dc.Start(context.Background()))
	assert.Equal(t, StateRunning, dc.State())

	q.Push(classified("TCP", "80", false))
	dc.Stop()

	assert.Equal(t, StateStopped, dc.State())
	assert.Equal(t, []string{"TCP:80"}, consumer.lines(), "shutdown performs a final drain")

	dc.Stop() // safe to call twice
}

func TestStartTwiceIsNoop(t *testing.T) {
	dc, _ := newDispatcher(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, dc.Start(ctx))
	require.NoError(t, dc.Start(ctx))
	dc.Stop()
}

func TestPeriodicDrain(t *testing.T) {
	q := events.NewQueue()
	dc := NewDispatchController(q, 10*time.Millisecond, 0, nil, testLogger())
	consumer := &recordingConsumer{}
	dc.Subscribe(consumer)

	require.NoError(t, dc.Start(context.Background()))
	defer dc.Stop()

	q.Push(classified("TCP", "80", false))

	assert.Eventually(t, func() bool {
		return len(consumer.lines()) == 1
	}, time.Second, 5*time.Millisecond)
}

// End-to-end through the capture controller: source → classify → queue →
// dispatcher, preserving capture order.
func TestPipelineOrdering(t *testing.T) {
	store := rules.NewStore()
	require.NoError(t, store.AddRule(rules.KindPort, "22"))

	src := &stubSource{out: make(chan capture.Record, 16)}
	q := events.NewQueue()
	cc := NewCaptureController(src, store, q, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, cc.Start(ctx))

	ts := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	src.out <- capture.NewRecord(ts, "10.0.0.5", "10.0.0.1", capture.ProtoTCP, 5555, 22)
	src.out <- capture.NewRecord(ts, "10.0.0.6", "10.0.0.1", capture.ProtoTCP, 5555, 80)
	src.out <- capture.NewRecord(ts, "10.0.0.7", "10.0.0.1", capture.ProtoICMP, 0, 0)
	close(src.out)

	dc := NewDispatchController(q, time.Hour, 0, nil, testLogger())
	var hist []classify.Record
	require.Eventually(t, func() bool {
		dc.Tick()
		hist = dc.History()
		return len(hist) == 3
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, "10.0.0.5", hist[0].Packet.SrcAddr)
	assert.True(t, hist[0].Blocked)
	assert.Equal(t, "10.0.0.6", hist[1].Packet.SrcAddr)
	assert.False(t, hist[1].Blocked)
	assert.Equal(t, "ICMP", hist[2].Packet.Protocol)
}

type stubSource struct {
	out chan capture.Record
}

func (s *stubSource) Packets() <-chan capture.Record { return s.out }
func (s *stubSource) Close() error                   { return nil }
