// Package page defines the narrow page-automation capability the signup
// workflow consumes. The workflow never talks to a browser library
// directly; it sees only these interfaces. Two implementations ship:
// rodpage (a live Chromium page via go-rod) and htmlpage (static HTML,
// used by tests and offline form inspection).
//
// The interface is deliberately unable to submit a form: there is no
// Click or Submit method anywhere. Human submission is observed through
// a Subscription, never caused.
package page

import "context"

// Page is one loaded document.
type Page interface {
	// URL returns the page's current address.
	URL() string

	// Forms enumerates the document's forms in document order.
	Forms(ctx context.Context) ([]FormHandle, error)
}

// FormHandle is one form element on a page.
type FormHandle interface {
	// VisibleText returns the form's rendered text content.
	VisibleText(ctx context.Context) (string, error)

	// ActionPath returns the form's action attribute (may be empty).
	ActionPath(ctx context.Context) (string, error)

	// Fields enumerates input/select/textarea controls in document order,
	// including hidden ones; callers filter on FieldInfo.
	Fields(ctx context.Context) ([]FieldHandle, error)

	// Buttons enumerates button-like controls in document order.
	Buttons(ctx context.Context) ([]ButtonInfo, error)

	// SubscribeSubmit registers a passive listener on the form's native
	// submit signal. The listener observes only; it never triggers
	// submission and never prevents it.
	SubscribeSubmit(ctx context.Context) (Subscription, error)
}

// FieldInfo is a snapshot of a field's attributes as rendered. Label
// candidates are reported raw; label-resolution priority lives in the
// inspector, not in page adapters.
type FieldInfo struct {
	Name           string
	Type           string
	ID             string
	Placeholder    string
	AriaLabel      string
	ExplicitLabel  string // text of label[for=this]
	EnclosingLabel string // text of an ancestor <label>
	Required       bool
	Hidden         bool // type=hidden
	Visible        bool // rendered (display/visibility)
}

// FieldHandle is one fillable control.
type FieldHandle interface {
	// Describe snapshots the field's attributes.
	Describe(ctx context.Context) (FieldInfo, error)

	// SetValue writes the field's value.
	SetValue(ctx context.Context, value string) error

	// DispatchInputChange fires input and change notifications so
	// reactive page logic observes the write.
	DispatchInputChange(ctx context.Context) error

	// MarkFilled applies transient visual feedback to the field.
	// Cosmetic only; failures are ignorable.
	MarkFilled(ctx context.Context) error
}

// ButtonInfo describes a button-like control. Buttons are data, not
// handles: the workflow reads them to resolve a submit target but can
// never actuate one.
type ButtonInfo struct {
	Text string
	Type string // submit, button, ""
	Name string
}

// Subscription is a disposable event registration. Close is idempotent
// and releases every listener and goroutine the subscription owns; no
// resource survives Close.
type Subscription interface {
	// Fired is closed when the subscribed event occurs.
	Fired() <-chan struct{}

	// Close detaches the listener. Safe to call multiple times and
	// after the event fired.
	Close()
}
