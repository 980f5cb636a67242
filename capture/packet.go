package capture

import (
	"fmt"
	"strconv"
	"time"
)

const (
	ProtoICMP = 1
	ProtoTCP  = 6
	ProtoUDP  = 17
)

var protocolMap = map[uint8]string{
	ProtoICMP: "ICMP",
	ProtoTCP:  "TCP",
	ProtoUDP:  "UDP",
}

// ProtocolName resolves an IP protocol number to its display name.
// Anything outside the known set is rendered as the decimal number itself,
// so a rule written as "47" matches GRE traffic.
func ProtocolName(proto uint8) string {
	if n, ok := protocolMap[proto]; ok {
		return n
	}
	return strconv.Itoa(int(proto))
}

// Record holds the decoded fields of one observed IP packet.
// Port fields are empty strings for protocols without transport ports.
// Immutable once constructed.
type Record struct {
	Timestamp time.Time
	SrcAddr   string
	DstAddr   string
	SrcPort   string
	DstPort   string
	Protocol  string
}

func (r Record) String() string {
	return fmt.Sprintf("src=%s:%s dst=%s:%s proto=%s",
		r.SrcAddr, r.SrcPort, r.DstAddr, r.DstPort, r.Protocol)
}

// NewRecord builds a Record from raw decoded fields, resolving the protocol
// number and stringifying ports. srcPort/dstPort are ignored unless the
// protocol carries transport ports.
func NewRecord(ts time.Time, srcAddr, dstAddr string, proto uint8, srcPort, dstPort uint16) Record {
	r := Record{
		Timestamp: ts.Truncate(time.Second),
		SrcAddr:   srcAddr,
		DstAddr:   dstAddr,
		Protocol:  ProtocolName(proto),
	}
	if proto == ProtoTCP || proto == ProtoUDP {
		r.SrcPort = strconv.Itoa(int(srcPort))
		r.DstPort = strconv.Itoa(int(dstPort))
	}
	return r
}
