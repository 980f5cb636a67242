package capture

import (
	"fmt"
	"sync"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/gopacket/gopacket/pcap"
	"github.com/sirupsen/logrus"
)

// PcapConfig carries the live capture parameters.
type PcapConfig struct {
	Interface   string
	BPFFilter   string
	SnapshotLen int
	Promiscuous bool
}

// PcapSource captures live traffic from a network interface and decodes each
// IPv4 packet into a Record.
type PcapSource struct {
	handle *pcap.Handle
	out    chan Record
	logger *logrus.Logger

	closeOnce sync.Once
}

var _ Source = &PcapSource{}

// NewPcapSource opens the interface and starts decoding packets.
func NewPcapSource(cfg PcapConfig, logger *logrus.Logger) (*PcapSource, error) {
	if cfg.Interface == "" {
		return nil, fmt.Errorf("capture interface not configured")
	}
	if err := checkLink(cfg.Interface); err != nil {
		return nil, err
	}

	snaplen := cfg.SnapshotLen
	if snaplen <= 0 {
		snaplen = 65535
	}

	handle, err := pcap.OpenLive(cfg.Interface, int32(snaplen), cfg.Promiscuous, pcap.BlockForever)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", cfg.Interface, err)
	}
	if cfg.BPFFilter != "" {
		if err := handle.SetBPFFilter(cfg.BPFFilter); err != nil {
			handle.Close()
			return nil, fmt.Errorf("failed to set bpf filter %q: %w", cfg.BPFFilter, err)
		}
	}

	s := &PcapSource{
		handle: handle,
		out:    make(chan Record),
		logger: logger,
	}

	logger.
		WithField("interface", cfg.Interface).
		WithField("filter", cfg.BPFFilter).
		Info("Capture started")

	go s.loop()
	return s, nil
}

func (s *PcapSource) loop() {
	defer close(s.out)

	src := gopacket.NewPacketSource(s.handle, s.handle.LinkType())
	for pkt := range src.Packets() {
		rec, ok := recordFromPacket(pkt)
		if !ok {
			continue
		}
		s.out <- rec
	}
}

func recordFromPacket(pkt gopacket.Packet) (Record, bool) {
	ipLayer := pkt.Layer(layers.LayerTypeIPv4)
	if ipLayer == nil {
		return Record{}, false
	}
	ip := ipLayer.(*layers.IPv4)

	var srcPort, dstPort uint16
	switch t := pkt.TransportLayer().(type) {
	case *layers.TCP:
		srcPort = uint16(t.SrcPort)
		dstPort = uint16(t.DstPort)
	case *layers.UDP:
		srcPort = uint16(t.SrcPort)
		dstPort = uint16(t.DstPort)
	}

	ts := pkt.Metadata().Timestamp
	return NewRecord(ts, ip.SrcIP.String(), ip.DstIP.String(), uint8(ip.Protocol), srcPort, dstPort), true
}

func (s *PcapSource) Packets() <-chan Record {
	return s.out
}

func (s *PcapSource) Close() error {
	s.closeOnce.Do(func() {
		s.handle.Close()
	})
	return nil
}
