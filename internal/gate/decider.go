package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"signupguard/internal/types"
)

// PendingDecision is one request waiting on a human, delivered to the
// host through ChannelDecider.Requests.
type PendingDecision struct {
	Request types.PermissionRequest
	resolve chan bool
}

// Approve resolves the decision as approved.
func (p PendingDecision) Approve() { p.resolve <- true }

// Deny resolves the decision as denied.
func (p PendingDecision) Deny() { p.resolve <- false }

// ChannelDecider hands requests to an in-process host (a TUI, a desktop
// prompt, a test) over a channel and blocks until resolved.
type ChannelDecider struct {
	requests chan PendingDecision
}

// NewChannelDecider builds a decider with the given request buffer.
func NewChannelDecider(buffer int) *ChannelDecider {
	return &ChannelDecider{requests: make(chan PendingDecision, buffer)}
}

// Requests is the host's side of the dialog.
func (d *ChannelDecider) Requests() <-chan PendingDecision {
	return d.requests
}

// Decide implements Decider.
func (d *ChannelDecider) Decide(ctx context.Context, req types.PermissionRequest) (bool, error) {
	pending := PendingDecision{Request: req, resolve: make(chan bool, 1)}
	select {
	case d.requests <- pending:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	select {
	case approved := <-pending.resolve:
		return approved, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// fileDecision is the on-disk shape of a pending approval. A human (or
// an approval tool) flips Status to "approved" or "denied".
type fileDecision struct {
	Request types.PermissionRequest `json:"request"`
	Status  string                  `json:"status"` // pending | approved | denied
}

// FileDecider parks each request as a JSON file in a directory and polls
// it until a human edits the status. Suited to out-of-process approval
// flows where the host has no UI of its own.
type FileDecider struct {
	dir      string
	interval time.Duration
}

// NewFileDecider builds a file-backed decider polling at the given
// interval.
func NewFileDecider(dir string, interval time.Duration) (*FileDecider, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create approval dir: %w", err)
	}
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &FileDecider{dir: dir, interval: interval}, nil
}

// Decide implements Decider. The pending file is removed once resolved;
// on context cancellation it is removed as well so no stale requests
// accumulate.
func (d *FileDecider) Decide(ctx context.Context, req types.PermissionRequest) (bool, error) {
	path := filepath.Join(d.dir, req.ID+".json")
	if err := d.write(path, fileDecision{Request: req, Status: "pending"}); err != nil {
		return false, err
	}
	defer os.Remove(path)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
			dec, err := d.read(path)
			if err != nil {
				return false, err
			}
			switch dec.Status {
			case "approved":
				return true, nil
			case "denied":
				return false, nil
			}
		}
	}
}

func (d *FileDecider) write(path string, dec fileDecision) error {
	data, err := json.MarshalIndent(dec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal approval: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write approval: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("publish approval: %w", err)
	}
	return nil
}

func (d *FileDecider) read(path string) (fileDecision, error) {
	var dec fileDecision
	data, err := os.ReadFile(path)
	if err != nil {
		return dec, fmt.Errorf("read approval: %w", err)
	}
	if err := json.Unmarshal(data, &dec); err != nil {
		return dec, fmt.Errorf("parse approval: %w", err)
	}
	return dec, nil
}

// Resolve flips a pending approval file's status, for approval tooling
// and tests.
func (d *FileDecider) Resolve(requestID string, approve bool) error {
	path := filepath.Join(d.dir, requestID+".json")
	dec, err := d.read(path)
	if err != nil {
		return err
	}
	if approve {
		dec.Status = "approved"
	} else {
		dec.Status = "denied"
	}
	return d.write(path, dec)
}
