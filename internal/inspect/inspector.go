// Package inspect discovers the candidate signup form on a page and
// enumerates its fields with an authoritative sensitivity classification.
// Detection is read-only and idempotent: inspecting an unchanged page
// twice yields structurally equal results.
package inspect

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"signupguard/internal/page"
	"signupguard/internal/types"
)

// BoundField pairs the pure field description with the live handle the
// autofill engine writes through.
type BoundField struct {
	Field  types.FormField
	Handle page.FieldHandle
}

// Detection is the result of one DetectSignupForm call. Form is pure
// data (structurally comparable); the handles drive later stages.
type Detection struct {
	Form         *types.SignupForm
	Fields       []BoundField
	FormHandle   page.FormHandle
	SubmitTarget *page.ButtonInfo // nil when the form has no submit control
	MatchReason  string           // keyword that selected the form, or "first-form-fallback"
}

// Inspector detects signup forms.
type Inspector struct {
	log *zap.Logger
}

// New builds an Inspector.
func New(log *zap.Logger) *Inspector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Inspector{log: log}
}

// DetectSignupForm selects the form whose visible text or action path
// contains a signup keyword, falling back to the first form on the page.
// Returns types.ErrNoFormFound when the page has no forms at all.
func (i *Inspector) DetectSignupForm(ctx context.Context, p page.Page) (*Detection, error) {
	forms, err := p.Forms(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate forms: %w", err)
	}
	if len(forms) == 0 {
		return nil, types.ErrNoFormFound
	}

	selected := forms[0]
	reason := "first-form-fallback"
	for _, f := range forms {
		text, err := f.VisibleText(ctx)
		if err != nil {
			return nil, fmt.Errorf("form text: %w", err)
		}
		action, err := f.ActionPath(ctx)
		if err != nil {
			return nil, fmt.Errorf("form action: %w", err)
		}
		if kw := MatchSignupKeyword(text + " " + action); kw != "" {
			selected, reason = f, kw
			break
		}
	}

	fields, err := i.enumerateFields(ctx, selected)
	if err != nil {
		return nil, err
	}

	submit, err := resolveSubmitTarget(ctx, selected)
	if err != nil {
		return nil, err
	}

	form := &types.SignupForm{
		Fields:     make([]types.FormField, len(fields)),
		DetectedAt: time.Now().UTC(),
	}
	for idx, bf := range fields {
		form.Fields[idx] = bf.Field
	}
	if submit != nil {
		form.SubmitTarget = submitLabel(*submit)
	}

	i.log.Debug("signup form detected",
		zap.String("url", p.URL()),
		zap.String("reason", reason),
		zap.Int("fields", len(fields)),
		zap.Bool("has_submit", submit != nil))

	return &Detection{
		Form:         form,
		Fields:       fields,
		FormHandle:   selected,
		SubmitTarget: submit,
		MatchReason:  reason,
	}, nil
}

// enumerateFields keeps every visible, non-hidden control and classifies
// sensitivity. The Sensitive flag set here is final.
func (i *Inspector) enumerateFields(ctx context.Context, f page.FormHandle) ([]BoundField, error) {
	handles, err := f.Fields(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate fields: %w", err)
	}

	var out []BoundField
	for _, h := range handles {
		info, err := h.Describe(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe field: %w", err)
		}
		if info.Hidden || !info.Visible {
			continue
		}

		name := info.Name
		if name == "" {
			name = info.ID
		}
		label := ResolveLabel(info)

		field := types.FormField{
			Name:      name,
			Type:      info.Type,
			Label:     label,
			Required:  info.Required,
			Sensitive: info.Type == "password" || IsSensitiveToken(name) || IsSensitiveToken(label),
		}
		out = append(out, BoundField{Field: field, Handle: h})
	}
	return out, nil
}

// ResolveLabel applies the label priority chain: explicit label[for] →
// enclosing label → aria-label → placeholder → unset.
func ResolveLabel(info page.FieldInfo) string {
	switch {
	case info.ExplicitLabel != "":
		return info.ExplicitLabel
	case info.EnclosingLabel != "":
		return info.EnclosingLabel
	case info.AriaLabel != "":
		return info.AriaLabel
	case info.Placeholder != "":
		return info.Placeholder
	}
	return ""
}

// resolveSubmitTarget applies the priority chain: submit-typed control →
// button with submit-like text → first button → none.
func resolveSubmitTarget(ctx context.Context, f page.FormHandle) (*page.ButtonInfo, error) {
	buttons, err := f.Buttons(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate buttons: %w", err)
	}
	if len(buttons) == 0 {
		return nil, nil
	}
	for idx := range buttons {
		if buttons[idx].Type == "submit" {
			return &buttons[idx], nil
		}
	}
	for idx := range buttons {
		if IsSubmitText(buttons[idx].Text) {
			return &buttons[idx], nil
		}
	}
	return &buttons[0], nil
}

func submitLabel(b page.ButtonInfo) string {
	if b.Text != "" {
		return b.Text
	}
	if b.Name != "" {
		return b.Name
	}
	return "submit"
}
