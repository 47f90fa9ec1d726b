// Package gate implements the synchronous human-approval checkpoint.
// Every mutating stage of the workflow calls RequestPermission and
// suspends until a human approves or denies; there is no default-approve
// timeout. Each call produces exactly one compliance entry and, when a
// session is attached, exactly one PermissionRequest on it.
package gate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"signupguard/internal/audit"
	"signupguard/internal/types"
)

// Decider resolves one permission request to approve (true) or deny
// (false). Decide blocks until the human answers or ctx is cancelled;
// cancellation counts as denial.
type Decider interface {
	Decide(ctx context.Context, req types.PermissionRequest) (bool, error)
}

// DeciderFunc adapts a function to the Decider interface.
type DeciderFunc func(ctx context.Context, req types.PermissionRequest) (bool, error)

// Decide implements Decider.
func (f DeciderFunc) Decide(ctx context.Context, req types.PermissionRequest) (bool, error) {
	return f(ctx, req)
}

// Gate is the permission checkpoint. mu serializes requests: only one
// may be outstanding at a time, matching the single modal decision
// point a human can attend to. The session pointer has its own lock so
// attach and detach never wait behind an unanswered decider.
type Gate struct {
	mu      sync.Mutex
	decider Decider
	rec     *audit.Recorder
	log     *zap.Logger

	sessMu  sync.Mutex
	session *types.Session
}

// New builds a Gate.
func New(decider Decider, rec *audit.Recorder, log *zap.Logger) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{decider: decider, rec: rec, log: log}
}

// AttachSession makes subsequent decisions append PermissionRequests to
// the session.
func (g *Gate) AttachSession(s *types.Session) {
	g.sessMu.Lock()
	defer g.sessMu.Unlock()
	g.session = s
}

// DetachSession clears the attached session. It returns promptly even
// while a request is suspended on the decider.
func (g *Gate) DetachSession() {
	g.sessMu.Lock()
	defer g.sessMu.Unlock()
	g.session = nil
}

// RequestPermission suspends until the human decides. It returns the
// decision; a decider error (including context cancellation) is reported
// alongside a deny. Exactly one compliance entry is recorded per call on
// every path, and exactly one PermissionRequest is appended when a
// session is attached.
func (g *Gate) RequestPermission(ctx context.Context, action, description string, risks []string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	req := types.PermissionRequest{
		ID:          uuid.NewString(),
		Action:      action,
		Description: description,
		Risks:       append([]string(nil), risks...),
		Timestamp:   time.Now().UTC(),
	}

	approved, err := g.decider.Decide(ctx, req)
	if err != nil {
		approved = false
	}
	req.Approved = approved

	g.sessMu.Lock()
	networkID := ""
	if g.session != nil {
		g.session.Permissions = append(g.session.Permissions, req)
		networkID = g.session.NetworkID
	}
	g.sessMu.Unlock()

	level := types.LevelInfo
	if !approved {
		level = types.LevelWarning
	}
	details := description
	if len(risks) > 0 {
		details = fmt.Sprintf("%s (risks: %s)", description, strings.Join(risks, "; "))
	}
	if err != nil {
		details = fmt.Sprintf("%s [decider error: %v]", details, err)
	}
	g.rec.Record(types.ComplianceLogEntry{
		Action:        "permission_" + action,
		Level:         level,
		NetworkID:     networkID,
		HumanApproved: types.BoolPtr(approved),
		Details:       details,
	})

	g.log.Info("permission decision",
		zap.String("action", action),
		zap.Bool("approved", approved),
		zap.Error(err))

	if err != nil {
		return false, fmt.Errorf("permission %s: %w", action, err)
	}
	return approved, nil
}
