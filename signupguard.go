// Package signupguard is a human-in-loop signup assistance library. It
// classifies a target site's terms-of-service risk, detects a signup
// form, pre-fills non-sensitive fields after explicit human approval,
// and then waits for the human to submit — it never submits a form
// itself, and it never writes a sensitive field.
//
// The package wires the internal components with working defaults; a
// host supplies a page (live browser via rodpage, or static HTML via
// htmlpage) and a gate.Decider through which humans answer permission
// prompts.
package signupguard

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"signupguard/internal/audit"
	"signupguard/internal/autofill"
	"signupguard/internal/config"
	"signupguard/internal/gate"
	"signupguard/internal/inspect"
	"signupguard/internal/logging"
	"signupguard/internal/observe"
	"signupguard/internal/page"
	"signupguard/internal/risk"
	"signupguard/internal/session"
	"signupguard/internal/store"
	"signupguard/internal/types"
)

// Workflow is a fully wired signup assistance workflow.
type Workflow struct {
	Manager  *session.Manager
	Recorder *audit.Recorder
	Registry *risk.Registry

	sqlite *store.SQLiteStore
	jsonl  *store.JSONLSink
	log    *zap.Logger
}

// New assembles a Workflow from config. The decider is how humans
// answer permission prompts. A nil decider is accepted only when
// gate.approval_dir is configured; approvals then go through the
// file-based dialog.
func New(cfg config.Config, decider gate.Decider) (*Workflow, error) {
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}

	if decider == nil {
		if cfg.Gate.ApprovalDir == "" {
			return nil, fmt.Errorf("a gate decider is required: supply one or set gate.approval_dir")
		}
		decider, err = gate.NewFileDecider(cfg.Gate.ApprovalDir, cfg.GatePollInterval())
		if err != nil {
			return nil, err
		}
	}

	registry := risk.DefaultRegistry()
	if cfg.RegistryPath != "" {
		registry, err = risk.LoadRegistry(cfg.RegistryPath)
		if err != nil {
			return nil, err
		}
	}
	logging.Named(log, logging.CategoryRisk).Info("network registry ready",
		zap.String("path", cfg.RegistryPath),
		zap.Int("networks", len(registry.Networks())))

	w := &Workflow{Registry: registry, log: log}

	var sinks []audit.Sink
	if cfg.Store.Enabled {
		storeLog := logging.Named(log, logging.CategoryStore)
		if cfg.Store.DatabasePath != "" {
			w.sqlite, err = store.OpenSQLite(cfg.Store.DatabasePath)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, w.sqlite)
			storeLog.Info("sqlite store attached", zap.String("path", cfg.Store.DatabasePath))
		}
		if cfg.Store.ComplianceLogPath != "" {
			w.jsonl, err = store.OpenJSONL(cfg.Store.ComplianceLogPath)
			if err != nil {
				w.close()
				return nil, err
			}
			sinks = append(sinks, w.jsonl)
			storeLog.Info("compliance log attached", zap.String("path", cfg.Store.ComplianceLogPath))
		}
	}

	w.Recorder = audit.NewRecorder(logging.Named(log, logging.CategoryAudit), sinks...)
	g := gate.New(decider, w.Recorder, logging.Named(log, logging.CategoryGate))

	var status session.StatusUpdater
	if w.sqlite != nil {
		status = w.sqlite
	}

	w.Manager = session.New(session.Deps{
		Registry:          registry,
		Inspector:         inspect.New(logging.Named(log, logging.CategoryInspect)),
		Gate:              g,
		Engine:            autofill.New(g, logging.Named(log, logging.CategoryAutofill)),
		Observer:          observe.New(w.Recorder, logging.Named(log, logging.CategoryObserve)),
		Recorder:          w.Recorder,
		Status:            status,
		Log:               logging.Named(log, logging.CategorySession),
		SubmissionTimeout: cfg.SubmissionTimeout(),
	})
	return w, nil
}

// StartSession opens a session for a network ID ("" lets classification
// fill it in).
func (w *Workflow) StartSession(networkID string) (*types.Session, error) {
	return w.Manager.StartSession(networkID)
}

// RunSignup runs the full workflow against a page.
func (w *Workflow) RunSignup(ctx context.Context, p page.Page, attrs autofill.Attributes) (*session.Outcome, error) {
	return w.Manager.RunSignup(ctx, p, attrs)
}

// EndSession tears down the active session.
func (w *Workflow) EndSession() {
	w.Manager.EndSession()
}

// ComplianceLog returns a snapshot of the audit trail.
func (w *Workflow) ComplianceLog() []types.ComplianceLogEntry {
	return w.Recorder.Entries()
}

// Close releases persistent collaborators. The in-memory workflow keeps
// functioning after Close; only the optional sinks stop.
func (w *Workflow) Close() error {
	return w.close()
}

func (w *Workflow) close() error {
	var firstErr error
	if w.jsonl != nil {
		if err := w.jsonl.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if w.sqlite != nil {
		if err := w.sqlite.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if w.log != nil {
		_ = w.log.Sync()
	}
	return firstErr
}
