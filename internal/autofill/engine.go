// Package autofill writes known user attributes into the non-sensitive
// fields of a detected signup form. Every prefill is permission-gated:
// the human approves before the first write, and a denial means zero
// writes. Sensitive fields are never written under any input.
package autofill

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"signupguard/internal/gate"
	"signupguard/internal/inspect"
	"signupguard/internal/types"
)

// Result summarizes one prefill pass.
type Result struct {
	Filled      int
	Skipped     int
	Denied      bool     // human denied the gate; no writes happened
	FilledNames []string // names only, never values
}

// Engine matches attributes to fields and performs the writes.
type Engine struct {
	gate *gate.Gate
	log  *zap.Logger

	// OnApproved, when set, runs after the gate approves and before the
	// first write. The session manager uses it to enter its FILLING
	// state at the correct instant.
	OnApproved func()
}

// New builds an Engine behind the given gate.
func New(g *gate.Gate, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{gate: g, log: log}
}

// Prefill requests permission and, if granted, fills every matchable
// non-sensitive field. On denial it returns immediately with zero
// writes and types.ErrPermissionDenied, which callers treat as
// non-fatal. Per-field write failures are logged and skipped; they
// never abort the pass.
func (e *Engine) Prefill(ctx context.Context, det *inspect.Detection, attrs Attributes) (Result, error) {
	fillable := 0
	for _, bf := range det.Fields {
		if !bf.Field.Sensitive {
			fillable++
		}
	}

	approved, err := e.gate.RequestPermission(ctx,
		"autofill_form",
		fmt.Sprintf("pre-fill up to %d non-sensitive fields on the detected signup form", fillable),
		[]string{
			"writes values into form fields",
			"page scripts will observe programmatic input",
		})
	if err != nil {
		return Result{Denied: true}, err
	}
	if !approved {
		return Result{Denied: true}, types.ErrPermissionDenied
	}
	if e.OnApproved != nil {
		e.OnApproved()
	}

	var res Result
	for _, bf := range det.Fields {
		if bf.Field.Sensitive {
			res.Skipped++
			continue
		}
		value, ok := Match(bf.Field, attrs)
		if !ok {
			res.Skipped++
			continue
		}
		if err := e.writeField(ctx, bf, value); err != nil {
			e.log.Warn("field write failed, skipping",
				zap.String("field", bf.Field.Name),
				zap.Error(err))
			res.Skipped++
			continue
		}
		res.Filled++
		res.FilledNames = append(res.FilledNames, bf.Field.Name)
	}
	return res, nil
}

// writeField sets the value, dispatches input+change so reactive page
// logic sees it, and applies the cosmetic fill marker.
func (e *Engine) writeField(ctx context.Context, bf inspect.BoundField, value string) error {
	if err := bf.Handle.SetValue(ctx, value); err != nil {
		return &types.FieldWriteError{Field: bf.Field.Name, Err: err}
	}
	if err := bf.Handle.DispatchInputChange(ctx); err != nil {
		return &types.FieldWriteError{Field: bf.Field.Name, Err: err}
	}
	if err := bf.Handle.MarkFilled(ctx); err != nil {
		// Cosmetic only.
		e.log.Debug("fill marker failed", zap.String("field", bf.Field.Name), zap.Error(err))
	}
	return nil
}

// Match resolves the attribute value for a field: exact attribute-name
// hit first, then the synonym table in priority order against the
// normalized name and label. First match wins. Sensitive fields never
// match.
func Match(field types.FormField, attrs Attributes) (string, bool) {
	if field.Sensitive {
		return "", false
	}

	if v, ok := attrs[AttributeKey(field.Name)]; ok && v != "" {
		return v, true
	}

	name := normalize(field.Name)
	label := normalize(field.Label)
	for _, rule := range synonymTable {
		v, ok := attrs[rule.key]
		if !ok || v == "" {
			continue
		}
		for _, syn := range rule.synonyms {
			if (name != "" && strings.Contains(name, syn)) ||
				(label != "" && strings.Contains(label, syn)) {
				return v, true
			}
		}
	}
	return "", false
}

// normalize lowercases and strips non-alphanumerics so naming styles
// (first_name, firstName, First Name) compare equal.
func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
