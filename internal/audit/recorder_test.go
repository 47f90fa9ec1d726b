package audit

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signupguard/internal/types"
)

type captureSink struct {
	mu      sync.Mutex
	entries []types.ComplianceLogEntry
	fail    bool
}

func (s *captureSink) AppendComplianceLog(entry types.ComplianceLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("sink unavailable")
	}
	s.entries = append(s.entries, entry)
	return nil
}

func TestRecordStampsTimestampAndAppends(t *testing.T) {
	rec := NewRecorder(nil)

	rec.Record(types.ComplianceLogEntry{Action: "session_started", Level: types.LevelInfo})
	rec.Record(types.ComplianceLogEntry{Action: "automation_blocked", Level: types.LevelWarning})

	entries := rec.Entries()
	require.Len(t, entries, 2)
	assert.False(t, entries[0].Timestamp.IsZero())
	assert.Equal(t, "session_started", entries[0].Action)
	assert.Equal(t, "automation_blocked", entries[1].Action)
}

func TestEntriesReturnsSnapshot(t *testing.T) {
	rec := NewRecorder(nil)
	rec.Record(types.ComplianceLogEntry{Action: "a", Level: types.LevelInfo})

	snap := rec.Entries()
	snap[0].Action = "mutated"

	assert.Equal(t, "a", rec.Entries()[0].Action, "recorder entries must be immutable from outside")
}

func TestSinkReceivesEveryEntry(t *testing.T) {
	sink := &captureSink{}
	rec := NewRecorder(nil, sink)

	for i := 0; i < 5; i++ {
		rec.Record(types.ComplianceLogEntry{Action: "step", Level: types.LevelInfo})
	}
	assert.Len(t, sink.entries, 5)
}

func TestSinkFailureDoesNotAbort(t *testing.T) {
	sink := &captureSink{fail: true}
	rec := NewRecorder(nil, sink)

	rec.Record(types.ComplianceLogEntry{Action: "step", Level: types.LevelInfo})

	// The in-memory trail is intact despite the sink failure.
	assert.Equal(t, 1, rec.Len())
}

func TestFilters(t *testing.T) {
	rec := NewRecorder(nil)
	rec.Record(types.ComplianceLogEntry{Action: "permission_autofill_form", Level: types.LevelInfo})
	rec.Record(types.ComplianceLogEntry{Action: "human_submitted", Level: types.LevelCritical})
	rec.Record(types.ComplianceLogEntry{Action: "permission_autofill_form", Level: types.LevelWarning})

	assert.Len(t, rec.ByAction("permission_autofill_form"), 2)
	assert.Len(t, rec.ByLevel(types.LevelCritical), 1)
	assert.Empty(t, rec.ByAction("missing"))
}
