package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signupguard/internal/types"
)

func TestSQLiteNetworkStatusUpsert(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "guard.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.UpdateNetworkStatus("shareasale", "signed_up", time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)))

	status, date, err := s.NetworkStatus("shareasale")
	require.NoError(t, err)
	assert.Equal(t, "signed_up", status)
	assert.Equal(t, "2026-08-30", date)

	// Upsert replaces.
	require.NoError(t, s.UpdateNetworkStatus("shareasale", "pending_review", time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)))
	status, date, err = s.NetworkStatus("shareasale")
	require.NoError(t, err)
	assert.Equal(t, "pending_review", status)
	assert.Equal(t, "2026-09-01", date)
}

func TestSQLiteComplianceMirror(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "guard.db"))
	require.NoError(t, err)
	defer s.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.AppendComplianceLog(types.ComplianceLogEntry{
			Action:    "state_transition",
			Level:     types.LevelInfo,
			NetworkID: "shareasale",
			Timestamp: time.Now().UTC(),
		}))
	}
	require.NoError(t, s.AppendComplianceLog(types.ComplianceLogEntry{
		Action:        "human_submitted",
		Level:         types.LevelCritical,
		HumanApproved: types.BoolPtr(true),
		Timestamp:     time.Now().UTC(),
	}))

	n, err := s.ComplianceCount()
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestJSONLChainAppendsAndVerifies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compliance.jsonl")

	sink, err := OpenJSONL(path)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, sink.AppendComplianceLog(types.ComplianceLogEntry{
			Action:    "state_transition",
			Level:     types.LevelInfo,
			Timestamp: time.Now().UTC(),
		}))
	}
	require.NoError(t, sink.Close())

	n, err := Verify(path)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestJSONLChainSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compliance.jsonl")

	sink, err := OpenJSONL(path)
	require.NoError(t, err)
	require.NoError(t, sink.AppendComplianceLog(types.ComplianceLogEntry{Action: "a", Level: types.LevelInfo, Timestamp: time.Now().UTC()}))
	require.NoError(t, sink.Close())

	sink, err = OpenJSONL(path)
	require.NoError(t, err)
	require.NoError(t, sink.AppendComplianceLog(types.ComplianceLogEntry{Action: "b", Level: types.LevelInfo, Timestamp: time.Now().UTC()}))
	require.NoError(t, sink.Close())

	n, err := Verify(path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestVerifyDetectsTampering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compliance.jsonl")

	sink, err := OpenJSONL(path)
	require.NoError(t, err)
	for _, action := range []string{"a", "b", "c"} {
		require.NoError(t, sink.AppendComplianceLog(types.ComplianceLogEntry{Action: action, Level: types.LevelInfo, Timestamp: time.Now().UTC()}))
	}
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// Flip a byte inside the first line.
	data[10] ^= 0x01
	require.NoError(t, os.WriteFile(path, data, 0o600))

	_, err = Verify(path)
	assert.Error(t, err, "a modified line must break the chain")
}
