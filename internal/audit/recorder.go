// Package audit implements the append-only compliance recorder. Every
// gate decision and session lifecycle transition lands here. Entries are
// always kept in memory for the life of the recorder; optional sinks
// (JSONL file, sqlite mirror) receive each entry fire-and-forget — a
// sink failure is logged and ignored, never surfaced to the workflow.
package audit

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"signupguard/internal/types"
)

// Sink receives a copy of every recorded entry.
type Sink interface {
	AppendComplianceLog(entry types.ComplianceLogEntry) error
}

// Recorder is the in-memory append-only compliance log.
type Recorder struct {
	mu      sync.Mutex
	entries []types.ComplianceLogEntry
	sinks   []Sink
	log     *zap.Logger
}

// NewRecorder builds a recorder fanning out to the given sinks.
func NewRecorder(log *zap.Logger, sinks ...Sink) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{sinks: sinks, log: log}
}

// Record appends one entry, stamping the timestamp if unset. Append-only:
// nothing ever removes or rewrites an entry.
func (r *Recorder) Record(entry types.ComplianceLogEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	r.mu.Lock()
	r.entries = append(r.entries, entry)
	sinks := r.sinks
	r.mu.Unlock()

	for _, s := range sinks {
		if err := s.AppendComplianceLog(entry); err != nil {
			cerr := &types.CollaboratorError{Op: "appendComplianceLog", Err: err}
			r.log.Warn("compliance sink write failed",
				zap.String("action", entry.Action),
				zap.Error(cerr))
		}
	}
}

// Entries returns a snapshot copy of all recorded entries.
func (r *Recorder) Entries() []types.ComplianceLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.ComplianceLogEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of recorded entries.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// ByAction returns entries with the given action, in record order.
func (r *Recorder) ByAction(action string) []types.ComplianceLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []types.ComplianceLogEntry
	for _, e := range r.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// ByLevel returns entries at the given level, in record order.
func (r *Recorder) ByLevel(level types.LogLevel) []types.ComplianceLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []types.ComplianceLogEntry
	for _, e := range r.entries {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}
