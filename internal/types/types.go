// Package types holds the shared domain model for the signup workflow:
// network records, derived automation policies, detected forms, sessions,
// and compliance log entries. Types here carry no behavior beyond small
// constructors and accessors so every other package can depend on them
// without cycles.
package types

import "time"

// MaxMode is the most automation a network's terms of service allow.
type MaxMode string

const (
	ModeNone        MaxMode = "none"
	ModeHumanGuided MaxMode = "human-guided"
	ModeAssisted    MaxMode = "assisted-auto"
	ModeFullAuto    MaxMode = "full-auto"
)

// RiskLevel grades the compliance risk of automating against a network.
type RiskLevel string

const (
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
	RiskExtreme RiskLevel = "extreme"
)

// ToS tier bounds. Tier 0 is safe to automate fully, tier 3 is never
// automated under any mode.
const (
	TierSafe       = 0
	TierGeneric    = 1
	TierRestricted = 2
	TierForbidden  = 3
)

// Network is one static registry record. Loaded once at startup and never
// mutated during a session.
type Network struct {
	ID             string   `yaml:"id" json:"id"`
	DomainPatterns []string `yaml:"domain_patterns" json:"domain_patterns"`
	TOSLevel       int      `yaml:"tos_level" json:"tos_level"`
	APIAvailable   bool     `yaml:"api_available" json:"api_available"`
}

// AutomationPolicy is derived from a Network's ToS tier, never stored.
type AutomationPolicy struct {
	Permitted bool      `json:"permitted"`
	MaxMode   MaxMode   `json:"max_mode"`
	RiskLevel RiskLevel `json:"risk_level"`
}

// FormField describes one fillable control on a signup form. Sensitive is
// authoritative: once set by the inspector it cannot be cleared by callers.
type FormField struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Label     string `json:"label,omitempty"`
	Required  bool   `json:"required"`
	Sensitive bool   `json:"sensitive"`
}

// SignupForm is the pure-data result of form detection. Created per
// detection call and discarded at session end; never persisted.
type SignupForm struct {
	Fields       []FormField `json:"fields"`
	SubmitTarget string      `json:"submit_target,omitempty"` // button text/name, "" if none
	DetectedAt   time.Time   `json:"detected_at"`
}

// PermissionRequest records one human gate decision. Immutable once
// created; appended to the owning Session.
type PermissionRequest struct {
	ID          string    `json:"id"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	Risks       []string  `json:"risks,omitempty"`
	Approved    bool      `json:"approved"`
	Timestamp   time.Time `json:"ts"`
}

// State is the session lifecycle state.
type State string

const (
	StateIdle                State = "IDLE"
	StateDetecting           State = "DETECTING"
	StateAwaitingPermission  State = "AWAITING_PERMISSION"
	StateFilling             State = "FILLING"
	StateAwaitingHumanSubmit State = "AWAITING_HUMAN_SUBMIT"
	StateRecording           State = "RECORDING"
	StateComplete            State = "COMPLETE"
	StateFailed              State = "FAILED"
)

// Step is one timestamped lifecycle step within a session.
type Step struct {
	Name   string    `json:"name"`
	At     time.Time `json:"at"`
	Detail string    `json:"detail,omitempty"`
}

// Session aggregates the state of one signup attempt. HumanSubmitted
// transitions false→true exactly once, and only because a submit signal
// was observed on the page; no code path in this module sets it any
// other way.
type Session struct {
	ID              string              `json:"id"`
	NetworkID       string              `json:"network_id"`
	StartedAt       time.Time           `json:"started_at"`
	Steps           []Step              `json:"steps,omitempty"`
	FieldsCompleted map[string]bool     `json:"fields_completed,omitempty"`
	HumanSubmitted  bool                `json:"human_submitted"`
	CompletedAt     *time.Time          `json:"completed_at,omitempty"`
	Permissions     []PermissionRequest `json:"permissions,omitempty"`
}

// AddStep appends a lifecycle step stamped now.
func (s *Session) AddStep(name, detail string) {
	s.Steps = append(s.Steps, Step{Name: name, At: time.Now().UTC(), Detail: detail})
}

// MarkFieldCompleted records a filled field by name.
func (s *Session) MarkFieldCompleted(name string) {
	if s.FieldsCompleted == nil {
		s.FieldsCompleted = make(map[string]bool)
	}
	s.FieldsCompleted[name] = true
}

// LogLevel is the severity of a compliance log entry.
type LogLevel string

const (
	LevelInfo     LogLevel = "info"
	LevelWarning  LogLevel = "warning"
	LevelCritical LogLevel = "critical"
)

// ComplianceLogEntry is one line of the append-only audit trail. All
// fields are scalars or pointers to scalars so json.Marshal output is
// deterministic, which the hash-chained sink relies on.
type ComplianceLogEntry struct {
	Action        string    `json:"action"`
	Level         LogLevel  `json:"level"`
	NetworkID     string    `json:"network_id,omitempty"`
	HumanApproved *bool     `json:"human_approved,omitempty"`
	Timestamp     time.Time `json:"ts"`
	Details       string    `json:"details,omitempty"`
}

// BoolPtr is a convenience for the HumanApproved field.
func BoolPtr(b bool) *bool { return &b }
