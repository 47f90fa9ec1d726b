// Package observe waits for the human to submit the signup form. The
// wait is strictly passive: it subscribes to the form's native submit
// signal and races that against a timeout. No code path here — success,
// timeout, cancellation, or error — ever invokes the submit control or
// the form's submit operation. The interface it consumes has no way to.
package observe

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"signupguard/internal/audit"
	"signupguard/internal/page"
	"signupguard/internal/types"
)

// DefaultTimeout bounds the submission wait when the caller passes zero.
const DefaultTimeout = 5 * time.Minute

// Observer watches for human-triggered submission.
type Observer struct {
	rec *audit.Recorder
	log *zap.Logger
}

// New builds an Observer.
func New(rec *audit.Recorder, log *zap.Logger) *Observer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Observer{rec: rec, log: log}
}

// WaitForHumanSubmission blocks until the form's submit signal fires,
// the timeout elapses, or ctx is cancelled. The subscription is closed
// on every exit path; no listener or timer survives the call.
//
// On an observed submit it marks the session's HumanSubmitted flag
// exactly once and records one critical compliance entry whose details
// state the submission was human-triggered, distinguishing it from any
// automated path (of which this module has none).
func (o *Observer) WaitForHumanSubmission(ctx context.Context, form page.FormHandle, sess *types.Session, timeout time.Duration) (bool, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	sub, err := form.SubscribeSubmit(ctx)
	if err != nil {
		return false, fmt.Errorf("subscribe submit: %w", err)
	}
	defer sub.Close()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-sub.Fired():
		o.markSubmitted(sess)
		return true, nil
	case <-timer.C:
		o.log.Warn("submission wait timed out",
			zap.Duration("timeout", timeout))
		return false, types.ErrSubmissionTimeout
	case <-ctx.Done():
		o.log.Info("submission wait cancelled")
		return false, ctx.Err()
	}
}

// markSubmitted flips HumanSubmitted false→true exactly once and writes
// the critical audit entry. A second observed submit on the same session
// is recorded as info, not critical, so the 1:1 pairing of sessions and
// critical human_submitted entries holds.
func (o *Observer) markSubmitted(sess *types.Session) {
	networkID := ""
	first := true
	if sess != nil {
		networkID = sess.NetworkID
		first = !sess.HumanSubmitted
		if first {
			sess.HumanSubmitted = true
			sess.AddStep("human_submitted", "native submit signal observed")
		}
	}
	if !first {
		o.rec.Record(types.ComplianceLogEntry{
			Action:    "human_submitted_repeat",
			Level:     types.LevelInfo,
			NetworkID: networkID,
			Details:   "additional submit signal observed after first human submission",
		})
		return
	}
	o.rec.Record(types.ComplianceLogEntry{
		Action:        "human_submitted",
		Level:         types.LevelCritical,
		NetworkID:     networkID,
		HumanApproved: types.BoolPtr(true),
		Details:       "form submission observed from native submit event; human-triggered, not automated",
	})
	o.log.Info("human submission observed", zap.String("network_id", networkID))
}
