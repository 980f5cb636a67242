package rules

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCorruptData marks a rules file that exists but cannot be parsed.
	// Load never falls back to empty rules on this error.
	ErrCorruptData = errors.New("rules file is corrupt")

	ErrUnknownKind = errors.New("unknown rule kind")
)

// Kind selects one of the three independent rule dimensions.
type Kind int

const (
	KindAddress Kind = iota
	KindPort
	KindProtocol
)

func (k Kind) String() string {
	switch k {
	case KindAddress:
		return "address"
	case KindPort:
		return "port"
	case KindProtocol:
		return "protocol"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps the CLI spellings onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ip", "address", "addr":
		return KindAddress, nil
	case "port":
		return KindPort, nil
	case "proto", "protocol":
		return KindProtocol, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// RuleSet is an immutable point-in-time copy of the three blocked-value
// sets. A snapshot never changes after it is taken; a concurrent mutation
// shows up only in later snapshots.
type RuleSet struct {
	Addresses map[string]struct{}
	Ports     map[string]struct{}
	Protocols map[string]struct{}
}

// EmptyRuleSet returns a RuleSet with no blocked values.
func EmptyRuleSet() RuleSet {
	return RuleSet{
		Addresses: map[string]struct{}{},
		Ports:     map[string]struct{}{},
		Protocols: map[string]struct{}{},
	}
}

func (r RuleSet) BlocksAddress(addr string) bool {
	_, ok := r.Addresses[addr]
	return ok
}

// BlocksPort matches the destination port verbatim. An empty port (non
// TCP/UDP packet) never matches.
func (r RuleSet) BlocksPort(port string) bool {
	if port == "" {
		return false
	}
	_, ok := r.Ports[port]
	return ok
}

// BlocksProtocol matches the protocol name case-insensitively; rule values
// are stored upper-cased.
func (r RuleSet) BlocksProtocol(proto string) bool {
	_, ok := r.Protocols[strings.ToUpper(proto)]
	return ok
}

// normalize applies the per-kind value normalization: protocols compare
// upper-cased, addresses and ports verbatim after trimming.
func normalize(kind Kind, value string) string {
	value = strings.TrimSpace(value)
	if kind == KindProtocol {
		value = strings.ToUpper(value)
	}
	return value
}
