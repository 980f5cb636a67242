package rules

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRemoveIdempotent(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.AddRule(KindAddress, "10.0.0.5"))
	require.NoError(t, s.AddRule(KindAddress, "10.0.0.5"))

	snap := s.Snapshot()
	assert.True(t, snap.BlocksAddress("10.0.0.5"))
	assert.Len(t, snap.Addresses, 1, "duplicate add must not grow the set")

	require.NoError(t, s.RemoveRule(KindAddress, "10.0.0.5"))
	require.NoError(t, s.RemoveRule(KindAddress, "10.0.0.5"))
	assert.False(t, s.Snapshot().BlocksAddress("10.0.0.5"))
}

func TestNormalization(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.AddRule(KindProtocol, "udp"))
	snap := s.Snapshot()
	assert.True(t, snap.BlocksProtocol("UDP"), "lowercase input stored upper-cased")
	assert.True(t, snap.BlocksProtocol("udp"))

	require.NoError(t, s.AddRule(KindPort, "  22 "))
	assert.True(t, s.Snapshot().BlocksPort("22"), "port values trimmed before insertion")

	require.NoError(t, s.RemoveRule(KindProtocol, "Udp"))
	assert.False(t, s.Snapshot().BlocksProtocol("UDP"))
}

func TestSnapshotIsolation(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.AddRule(KindAddress, "1.1.1.1"))

	snap := s.Snapshot()
	require.NoError(t, s.AddRule(KindAddress, "2.2.2.2"))

	assert.False(t, snap.BlocksAddress("2.2.2.2"), "snapshot must not observe later mutations")
	assert.True(t, s.Snapshot().BlocksAddress("2.2.2.2"))
}

func TestEmptyPortNeverBlocks(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.AddRule(KindPort, "22"))
	assert.False(t, s.Snapshot().BlocksPort(""), "empty destination port never matches a rule")
}

func TestLoadMissingFileCreatesIt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")

	s, err := Load(path, false)
	require.NoError(t, err)
	assert.Empty(t, s.Snapshot().Addresses)

	_, err = os.Stat(path)
	assert.NoError(t, err, "missing file should be created on load")
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorruptData)
}

func TestLoadIgnoresUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	payload := `{"ips":["10.0.0.5"],"protocols":["udp"],"comment":"old format"}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	s, err := Load(path, false)
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.True(t, snap.BlocksAddress("10.0.0.5"))
	assert.True(t, snap.BlocksProtocol("UDP"), "persisted protocols normalized on load")
	assert.Empty(t, snap.Ports, "absent field reads as empty set")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")

	s, err := Load(path, false)
	require.NoError(t, err)
	require.NoError(t, s.AddRule(KindAddress, "192.168.1.10"))
	require.NoError(t, s.AddRule(KindPort, "443"))
	require.NoError(t, s.AddRule(KindProtocol, "icmp"))
	require.NoError(t, s.Save())

	loaded, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, s.Snapshot(), loaded.Snapshot())
}

func TestAutosavePersistsMutations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")

	s, err := Load(path, true)
	require.NoError(t, err)
	require.NoError(t, s.AddRule(KindPort, "8080"))

	loaded, err := Load(path, false)
	require.NoError(t, err)
	assert.True(t, loaded.Snapshot().BlocksPort("8080"), "autosave writes through on add")

	require.NoError(t, s.RemoveRule(KindPort, "8080"))
	loaded, err = Load(path, false)
	require.NoError(t, err)
	assert.False(t, loaded.Snapshot().BlocksPort("8080"), "autosave writes through on remove")
}

func TestConcurrentSnapshotAndMutate(t *testing.T) {
	s := NewStore()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_ = s.AddRule(KindAddress, "10.0.0.5")
			_ = s.RemoveRule(KindAddress, "10.0.0.5")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			snap := s.Snapshot()
			// Present or absent, never torn.
			_ = snap.BlocksAddress("10.0.0.5")
		}
	}()
	wg.Wait()
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in       string
		expected Kind
		wantErr  bool
	}{
		{"ip", KindAddress, false},
		{"address", KindAddress, false},
		{"PORT", KindPort, false},
		{"proto", KindProtocol, false},
		{"protocol", KindProtocol, false},
		{"bogus", 0, true},
	}

	for _, tt := range tests {
		kind, err := ParseKind(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		assert.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.expected, kind, "input %q", tt.in)
	}
}
