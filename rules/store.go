package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
)

// Store owns the three blocked-value sets and mediates every read and
// write. Snapshot may be called concurrently with AddRule/RemoveRule from
// other goroutines; file I/O never happens while the lock is held.
type Store struct {
	mu        sync.RWMutex
	addresses map[string]struct{}
	ports     map[string]struct{}
	protocols map[string]struct{}

	path     string
	autosave bool
}

// ruleFile is the persisted representation. Unknown fields are ignored on
// read; an absent field is an empty set.
type ruleFile struct {
	IPs       []string `json:"ips"`
	Ports     []string `json:"ports"`
	Protocols []string `json:"protocols"`
}

// NewStore creates an empty store with no backing file.
func NewStore() *Store {
	return &Store{
		addresses: map[string]struct{}{},
		ports:     map[string]struct{}{},
		protocols: map[string]struct{}{},
	}
}

// Load reads the rules file at path. A missing file is not an error: the
// store starts empty and the file is created immediately. A file that
// exists but cannot be parsed fails with ErrCorruptData and is never
// replaced with defaults. With autosave set, every AddRule/RemoveRule
// persists right away.
func Load(path string, autosave bool) (*Store, error) {
	s := NewStore()
	s.path = path
	s.autosave = autosave

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := s.Save(); err != nil {
			return nil, err
		}
		return s, nil
	}

	var rf ruleFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptData, path, err)
	}

	for _, v := range rf.IPs {
		s.addresses[normalize(KindAddress, v)] = struct{}{}
	}
	for _, v := range rf.Ports {
		s.ports[normalize(KindPort, v)] = struct{}{}
	}
	for _, v := range rf.Protocols {
		s.protocols[normalize(KindProtocol, v)] = struct{}{}
	}
	return s, nil
}

// Snapshot returns an immutable copy of the current sets.
func (s *Store) Snapshot() RuleSet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := RuleSet{
		Addresses: make(map[string]struct{}, len(s.addresses)),
		Ports:     make(map[string]struct{}, len(s.ports)),
		Protocols: make(map[string]struct{}, len(s.protocols)),
	}
	for v := range s.addresses {
		snap.Addresses[v] = struct{}{}
	}
	for v := range s.ports {
		snap.Ports[v] = struct{}{}
	}
	for v := range s.protocols {
		snap.Protocols[v] = struct{}{}
	}
	return snap
}

// AddRule inserts a value into one dimension. Adding a value that is
// already present is a no-op.
func (s *Store) AddRule(kind Kind, value string) error {
	value = normalize(kind, value)
	if value == "" {
		return nil
	}

	set, err := s.set(kind)
	if err != nil {
		return err
	}

	s.mu.Lock()
	set[value] = struct{}{}
	s.mu.Unlock()

	return s.maybeSave()
}

// RemoveRule deletes a value from one dimension. Removing an absent value
// is a no-op.
func (s *Store) RemoveRule(kind Kind, value string) error {
	value = normalize(kind, value)

	set, err := s.set(kind)
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(set, value)
	s.mu.Unlock()

	return s.maybeSave()
}

func (s *Store) set(kind Kind) (map[string]struct{}, error) {
	switch kind {
	case KindAddress:
		return s.addresses, nil
	case KindPort:
		return s.ports, nil
	case KindProtocol:
		return s.protocols, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownKind, kind)
	}
}

func (s *Store) maybeSave() error {
	if !s.autosave || s.path == "" {
		return nil
	}
	return s.Save()
}

// Save serializes the current sets to the store's file. Write failures are
// reported to the caller and never retried here.
func (s *Store) Save() error {
	return s.SaveTo(s.path)
}

// SaveTo writes the persisted representation to an arbitrary path. The
// marshalled copy is taken under the read lock; the write syscall runs
// outside it so disk latency never blocks classification.
func (s *Store) SaveTo(path string) error {
	if path == "" {
		return fmt.Errorf("rules store has no file path")
	}

	s.mu.RLock()
	rf := ruleFile{
		IPs:       sortedKeys(s.addresses),
		Ports:     sortedKeys(s.ports),
		Protocols: sortedKeys(s.protocols),
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(rf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for v := range set {
		keys = append(keys, v)
	}
	sort.Strings(keys)
	return keys
}
