// Package classify decides allowed/blocked for one packet against a rule
// snapshot and formats its display line. It holds no state of its own and is
// safe to call from any number of goroutines.
package classify

import (
	"fmt"

	"github.com/navahdam/pktwatch/capture"
	"github.com/navahdam/pktwatch/rules"
)

// Record wraps one observed packet with its classification outcome and the
// formatted display line. Created once per packet, never mutated afterward.
type Record struct {
	Packet  capture.Record
	Blocked bool
	Line    string
}

// Classify matches a packet against a rule snapshot. A packet is blocked if
// any of the three independent predicates hold: blocked source address,
// blocked destination port, or blocked protocol name.
func Classify(p capture.Record, rs rules.RuleSet) Record {
	blocked := rs.BlocksAddress(p.SrcAddr) ||
		rs.BlocksPort(p.DstPort) ||
		rs.BlocksProtocol(p.Protocol)

	return Record{
		Packet:  p,
		Blocked: blocked,
		Line:    formatLine(p, blocked),
	}
}

// formatLine renders the stable display line. Port fields render as empty
// strings for non-TCP/UDP packets, producing "SRC: -> DST:"; exports that
// re-parse the line depend on this exact shape.
func formatLine(p capture.Record, blocked bool) string {
	verdict := "Allowed"
	if blocked {
		verdict = "Blocked"
	}
	return fmt.Sprintf("%s [%s] %s:%s -> %s:%s | %s Packet on port %s",
		p.Timestamp.Format("15:04:05"),
		verdict,
		p.SrcAddr, p.SrcPort,
		p.DstAddr, p.DstPort,
		p.Protocol, p.DstPort)
}
