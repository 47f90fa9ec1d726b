// Package session owns the signup workflow state machine. A Manager
// drives the other components in order — classify, detect, gate, fill,
// observe, record — and guarantees the ordering invariants: no mutation
// before classification permits it, no field write before the gate
// approves, and completion only after a human-triggered submission was
// observed.
//
// States: IDLE → DETECTING → AWAITING_PERMISSION → FILLING →
// AWAITING_HUMAN_SUBMIT → RECORDING → COMPLETE|FAILED → IDLE (EndSession).
// A gate denial does not fail the session; the workflow continues with
// zero filled fields.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"signupguard/internal/audit"
	"signupguard/internal/autofill"
	"signupguard/internal/gate"
	"signupguard/internal/inspect"
	"signupguard/internal/observe"
	"signupguard/internal/page"
	"signupguard/internal/risk"
	"signupguard/internal/types"
)

// StatusUpdater is the optional external store that tracks per-network
// signup status. Calls to it are fire-and-forget: failures are logged
// and never abort the workflow.
type StatusUpdater interface {
	UpdateNetworkStatus(networkID, status string, date time.Time) error
}

// Deps wires a Manager.
type Deps struct {
	Registry  *risk.Registry
	Inspector *inspect.Inspector
	Gate      *gate.Gate
	Engine    *autofill.Engine
	Observer  *observe.Observer
	Recorder  *audit.Recorder
	Status    StatusUpdater // optional
	Log       *zap.Logger

	// SubmissionTimeout bounds the human-submission wait; zero means
	// observe.DefaultTimeout.
	SubmissionTimeout time.Duration
}

// Outcome summarizes one RunSignup pass.
type Outcome struct {
	Network        types.Network
	Policy         types.AutomationPolicy
	Form           *types.SignupForm
	Fill           autofill.Result
	HumanSubmitted bool
	State          types.State
}

// Manager runs at most one session at a time.
type Manager struct {
	registry  *risk.Registry
	inspector *inspect.Inspector
	gate      *gate.Gate
	engine    *autofill.Engine
	observer  *observe.Observer
	rec       *audit.Recorder
	status    StatusUpdater
	log       *zap.Logger
	timeout   time.Duration

	mu      sync.Mutex
	current *types.Session
	state   types.State
	pending *errgroup.Group
}

// New builds a Manager and hooks the engine's approval callback so the
// FILLING state is entered after the gate approves and before the first
// write.
func New(d Deps) *Manager {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	m := &Manager{
		registry:  d.Registry,
		inspector: d.Inspector,
		gate:      d.Gate,
		engine:    d.Engine,
		observer:  d.Observer,
		rec:       d.Recorder,
		status:    d.Status,
		log:       d.Log,
		timeout:   d.SubmissionTimeout,
		state:     types.StateIdle,
	}
	if m.engine != nil {
		m.engine.OnApproved = func() {
			m.transition(types.StateFilling, "fill permission approved")
		}
	}
	return m
}

// State returns the current machine state.
func (m *Manager) State() types.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current returns the active session, or nil.
func (m *Manager) Current() *types.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// StartSession opens a session for a network. Only one session may be
// active at a time.
func (m *Manager) StartSession(networkID string) (*types.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		return nil, types.ErrSessionActive
	}
	sess := &types.Session{
		ID:              uuid.NewString(),
		NetworkID:       networkID,
		StartedAt:       time.Now().UTC(),
		FieldsCompleted: make(map[string]bool),
	}
	m.current = sess
	m.state = types.StateIdle
	m.gate.AttachSession(sess)
	m.pending = &errgroup.Group{}

	m.rec.Record(types.ComplianceLogEntry{
		Action:    "session_started",
		Level:     types.LevelInfo,
		NetworkID: networkID,
	})
	m.log.Info("session started",
		zap.String("session_id", sess.ID),
		zap.String("network_id", networkID))
	return sess, nil
}

// RunSignup executes the full workflow against a page. It never submits
// the form; the returned Outcome reports whether a human did.
func (m *Manager) RunSignup(ctx context.Context, p page.Page, attrs autofill.Attributes) (*Outcome, error) {
	sess := m.Current()
	if sess == nil {
		return nil, types.ErrNoActiveSession
	}
	out := &Outcome{State: types.StateFailed}

	// Classification gates everything: no mutation happens unless the
	// network's ToS tier permits automation.
	m.transition(types.StateDetecting, "classifying network and detecting form")
	network, err := m.registry.Detect(p.URL())
	if err != nil {
		m.recordWarning(sess, "classification_failed", err.Error())
		m.fail("url classification failed")
		return out, fmt.Errorf("classify url: %w", err)
	}
	policy := m.registry.ClassifyNetwork(network)
	out.Network, out.Policy = network, policy
	if sess.NetworkID == "" {
		sess.NetworkID = network.ID
	}
	sess.AddStep("classified", fmt.Sprintf("network=%s tier=%d risk=%s", network.ID, network.TOSLevel, policy.RiskLevel))

	if !policy.Permitted {
		m.rec.Record(types.ComplianceLogEntry{
			Action:    "automation_blocked",
			Level:     types.LevelWarning,
			NetworkID: network.ID,
			Details: fmt.Sprintf("tos tier %d permits at most %q; automated signup assistance refused",
				network.TOSLevel, policy.MaxMode),
		})
		m.fail("automation not permitted by tos tier")
		return out, nil
	}

	det, err := m.detect(ctx, p)
	if err != nil {
		m.recordWarning(sess, "form_detection_failed", err.Error())
		m.fail("no usable signup form")
		if errors.Is(err, types.ErrNoFormFound) {
			return out, nil
		}
		return out, err
	}
	out.Form = det.Form
	sess.AddStep("form_detected", fmt.Sprintf("fields=%d reason=%s", len(det.Form.Fields), det.MatchReason))
	m.rec.Record(types.ComplianceLogEntry{
		Action:    "form_detected",
		Level:     types.LevelInfo,
		NetworkID: network.ID,
		Details:   fmt.Sprintf("fields=%d submit_target=%q", len(det.Form.Fields), det.Form.SubmitTarget),
	})

	// The gate suspends here until the human decides. Denial continues
	// with zero fills — the human can still type and submit by hand.
	m.transition(types.StateAwaitingPermission, "awaiting fill permission")
	fill, err := m.prefill(ctx, det, attrs)
	if err != nil && !errors.Is(err, types.ErrPermissionDenied) {
		// The gate already audited a denial; anything else is a prefill
		// failure, treated the same as a denial.
		m.recordWarning(sess, "prefill_failed", err.Error())
		fill = autofill.Result{Denied: true}
	}
	out.Fill = fill
	for _, name := range fill.FilledNames {
		sess.MarkFieldCompleted(name)
	}
	sess.AddStep("prefill", fmt.Sprintf("filled=%d skipped=%d denied=%t", fill.Filled, fill.Skipped, fill.Denied))

	m.transition(types.StateAwaitingHumanSubmit, "awaiting human submission")
	submitted, err := m.observer.WaitForHumanSubmission(ctx, det.FormHandle, sess, m.timeout)
	if !submitted {
		if errors.Is(err, types.ErrSubmissionTimeout) {
			m.recordWarning(sess, "submission_timeout", "no human submission before deadline")
			m.fail("submission wait timed out")
			return out, err
		}
		m.recordWarning(sess, "submission_wait_cancelled", fmt.Sprintf("%v", err))
		m.fail("submission wait cancelled")
		return out, err
	}
	out.HumanSubmitted = true

	m.transition(types.StateRecording, "recording signup completion")
	if err := m.RecordSignupComplete(network.ID); err != nil {
		m.fail("completion recording failed")
		return out, err
	}
	m.transition(types.StateComplete, "signup complete")
	out.State = types.StateComplete
	return out, nil
}

// detect runs form detection with panic containment: a misbehaving page
// adapter surfaces as an error, never a crash.
func (m *Manager) detect(ctx context.Context, p page.Page) (det *inspect.Detection, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("form detection panicked: %v", r)
		}
	}()
	return m.inspector.DetectSignupForm(ctx, p)
}

// prefill runs the gated fill with panic containment.
func (m *Manager) prefill(ctx context.Context, det *inspect.Detection, attrs autofill.Attributes) (res autofill.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("prefill panicked: %v", r)
		}
	}()
	return m.engine.Prefill(ctx, det, attrs)
}

// RecordSignupComplete stamps the session, writes the completion audit
// entry — permission counts, filled field names only, duration — and
// forwards the network-status update to the external store without
// blocking the workflow on it.
func (m *Manager) RecordSignupComplete(networkID string) error {
	m.mu.Lock()
	sess := m.current
	m.mu.Unlock()
	if sess == nil {
		return types.ErrNoActiveSession
	}

	now := time.Now().UTC()
	sess.CompletedAt = &now

	approved := 0
	for _, p := range sess.Permissions {
		if p.Approved {
			approved++
		}
	}
	names := make([]string, 0, len(sess.FieldsCompleted))
	for name := range sess.FieldsCompleted {
		names = append(names, name)
	}
	sort.Strings(names)

	m.rec.Record(types.ComplianceLogEntry{
		Action:        "signup_complete",
		Level:         types.LevelInfo,
		NetworkID:     networkID,
		HumanApproved: types.BoolPtr(sess.HumanSubmitted),
		Details: fmt.Sprintf("permissions=%d/%d approved; fields=%v; duration=%s",
			approved, len(sess.Permissions), names, now.Sub(sess.StartedAt).Round(time.Millisecond)),
	})

	if m.status != nil {
		m.pending.Go(func() error {
			if err := m.status.UpdateNetworkStatus(networkID, "signed_up", now); err != nil {
				cerr := &types.CollaboratorError{Op: "updateNetworkStatus", Err: err}
				m.log.Warn("network status update failed", zap.Error(cerr))
				m.rec.Record(types.ComplianceLogEntry{
					Action:    "collaborator_error",
					Level:     types.LevelWarning,
					NetworkID: networkID,
					Details:   cerr.Error(),
				})
			}
			return nil
		})
	}
	return nil
}

// EndSession tears the session down: detaches the gate, drains pending
// collaborator writes, and returns the machine to IDLE. Safe to call
// with no session active.
func (m *Manager) EndSession() {
	m.mu.Lock()
	sess := m.current
	pending := m.pending
	m.current = nil
	m.pending = nil
	m.state = types.StateIdle
	m.mu.Unlock()

	if sess == nil {
		return
	}
	m.gate.DetachSession()
	if pending != nil {
		_ = pending.Wait() // goroutines never return errors; failures were logged inline
	}
	m.rec.Record(types.ComplianceLogEntry{
		Action:    "session_ended",
		Level:     types.LevelInfo,
		NetworkID: sess.NetworkID,
	})
	m.log.Info("session ended",
		zap.String("session_id", sess.ID),
		zap.Bool("human_submitted", sess.HumanSubmitted))
}

// transition moves the machine and records the mandatory audit entry.
func (m *Manager) transition(state types.State, detail string) {
	m.mu.Lock()
	sess := m.current
	m.state = state
	m.mu.Unlock()

	networkID := ""
	if sess != nil {
		sess.AddStep(string(state), detail)
		networkID = sess.NetworkID
	}
	m.rec.Record(types.ComplianceLogEntry{
		Action:    "state_transition",
		Level:     types.LevelInfo,
		NetworkID: networkID,
		Details:   fmt.Sprintf("%s: %s", state, detail),
	})
	m.log.Debug("state transition", zap.String("state", string(state)), zap.String("detail", detail))
}

func (m *Manager) fail(detail string) {
	m.transition(types.StateFailed, detail)
}

func (m *Manager) recordWarning(sess *types.Session, action, details string) {
	networkID := ""
	if sess != nil {
		networkID = sess.NetworkID
	}
	m.rec.Record(types.ComplianceLogEntry{
		Action:    action,
		Level:     types.LevelWarning,
		NetworkID: networkID,
		Details:   details,
	})
}
