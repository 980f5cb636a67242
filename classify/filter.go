package classify

import "strings"

// Filter is the consumer-supplied display filter. An empty dimension is a
// wildcard. Protocol matches the packet's protocol name exactly,
// case-insensitively. Port compares the destination-port field itself rather
// than substring-matching the formatted line, which the original did; the
// field comparison cannot false-positive on digits inside the timestamp or
// an address.
type Filter struct {
	Protocol string
	Port     string
}

// Match reports whether a record passes the filter. Applying the same
// filter to the same records any number of times yields the same result.
func (f Filter) Match(rec Record) bool {
	if f.Protocol != "" && !strings.EqualFold(f.Protocol, rec.Packet.Protocol) {
		return false
	}
	if f.Port != "" && f.Port != rec.Packet.DstPort {
		return false
	}
	return true
}

// IsWildcard reports whether the filter passes everything.
func (f Filter) IsWildcard() bool {
	return f.Protocol == "" && f.Port == ""
}
