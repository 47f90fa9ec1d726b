package inspect

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signupguard/internal/page"
	"signupguard/internal/page/htmlpage"
	"signupguard/internal/types"
)

const signupMarkup = `
<html><body>
<form action="/search">
  <input type="text" name="q" placeholder="Search">
  <button type="submit">Search</button>
</form>
<form action="/register" id="signup">
  <h2>Create your account</h2>
  <label for="fn">First name</label>
  <input type="text" id="fn" name="firstName" required>
  <label>Last name <input type="text" name="lastName"></label>
  <input type="email" name="email" aria-label="Email address" required>
  <input type="text" name="company" placeholder="Company name">
  <input type="password" name="password" required>
  <input type="hidden" name="csrf_token" value="abc">
  <input type="text" name="trap" style="display:none">
  <button type="submit">Sign Up</button>
</form>
</body></html>`

func detect(t *testing.T, markup string) *Detection {
	t.Helper()
	p := htmlpage.MustParse("https://example.com/signup", markup)
	det, err := New(nil).DetectSignupForm(context.Background(), p)
	require.NoError(t, err)
	return det
}

func TestDetectSignupFormPrefersKeywordMatch(t *testing.T) {
	det := detect(t, signupMarkup)

	// The search form comes first in the document but the registration
	// form carries the signup keywords.
	names := make([]string, 0, len(det.Form.Fields))
	for _, f := range det.Form.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"firstName", "lastName", "email", "company", "password"}, names)
	assert.NotEqual(t, "first-form-fallback", det.MatchReason)
}

func TestDetectSignupFormFallsBackToFirstForm(t *testing.T) {
	markup := `<html><body>
	<form action="/a"><input type="text" name="alpha"></form>
	<form action="/b"><input type="text" name="beta"></form>
	</body></html>`
	det := detect(t, markup)
	require.Len(t, det.Form.Fields, 1)
	assert.Equal(t, "alpha", det.Form.Fields[0].Name)
	assert.Equal(t, "first-form-fallback", det.MatchReason)
}

func TestDetectSignupFormNoForms(t *testing.T) {
	p := htmlpage.MustParse("https://example.com", "<html><body><p>nothing here</p></body></html>")
	_, err := New(nil).DetectSignupForm(context.Background(), p)
	assert.ErrorIs(t, err, types.ErrNoFormFound)
}

func TestFieldEnumerationSkipsHiddenControls(t *testing.T) {
	det := detect(t, signupMarkup)
	for _, f := range det.Form.Fields {
		assert.NotEqual(t, "csrf_token", f.Name, "hidden input must not be enumerated")
		assert.NotEqual(t, "trap", f.Name, "display:none input must not be enumerated")
	}
}

func TestSensitivityClassification(t *testing.T) {
	markup := `<html><body><form action="/signup">
	<input type="password" name="pw">
	<input type="text" name="api_key">
	<input type="text" name="creditCardNumber">
	<label for="s">Social Security Number</label><input type="text" id="s" name="govid">
	<input type="text" name="email">
	</form></body></html>`
	det := detect(t, markup)

	sensitive := map[string]bool{}
	for _, f := range det.Form.Fields {
		sensitive[f.Name] = f.Sensitive
	}
	assert.True(t, sensitive["pw"], "password type is sensitive")
	assert.True(t, sensitive["api_key"], "api key name is sensitive")
	assert.True(t, sensitive["creditCardNumber"], "credit card name is sensitive")
	assert.True(t, sensitive["govid"], "ssn label is sensitive")
	assert.False(t, sensitive["email"])
}

func TestLabelResolutionPriority(t *testing.T) {
	tests := []struct {
		name string
		info page.FieldInfo
		want string
	}{
		{"explicit wins", page.FieldInfo{ExplicitLabel: "a", EnclosingLabel: "b", AriaLabel: "c", Placeholder: "d"}, "a"},
		{"enclosing next", page.FieldInfo{EnclosingLabel: "b", AriaLabel: "c", Placeholder: "d"}, "b"},
		{"aria next", page.FieldInfo{AriaLabel: "c", Placeholder: "d"}, "c"},
		{"placeholder last", page.FieldInfo{Placeholder: "d"}, "d"},
		{"unset", page.FieldInfo{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveLabel(tt.info))
		})
	}
}

func TestSubmitTargetPriority(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   string
	}{
		{
			"submit typed control wins",
			`<form action="/signup"><input type="text" name="a">
			<button type="button">Maybe</button><button type="submit">Go</button></form>`,
			"Go",
		},
		{
			"submit-like text next",
			`<form action="/signup"><input type="text" name="a">
			<button type="button">Cancel</button><button type="button">Register now</button></form>`,
			"Register now",
		},
		{
			"first button as fallback",
			`<form action="/signup"><input type="text" name="a">
			<button type="button">Continue</button></form>`,
			"Continue",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det := detect(t, "<html><body>"+tt.markup+"</body></html>")
			require.NotNil(t, det.SubmitTarget)
			assert.Equal(t, tt.want, det.Form.SubmitTarget)
		})
	}
}

func TestSubmitTargetNone(t *testing.T) {
	det := detect(t, `<html><body><form action="/signup"><input type="text" name="a"></form></body></html>`)
	assert.Nil(t, det.SubmitTarget)
	assert.Empty(t, det.Form.SubmitTarget)
}

func TestDetectionIsIdempotent(t *testing.T) {
	p := htmlpage.MustParse("https://example.com/signup", signupMarkup)
	ins := New(nil)

	first, err := ins.DetectSignupForm(context.Background(), p)
	require.NoError(t, err)
	second, err := ins.DetectSignupForm(context.Background(), p)
	require.NoError(t, err)

	diff := cmp.Diff(first.Form, second.Form,
		cmpopts.IgnoreFields(types.SignupForm{}, "DetectedAt"))
	assert.Empty(t, diff, "repeated detection must be structurally equal")
}

func TestMatchSignupKeyword(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Create your account today", "create your account"},
		{"Sign Up for free", "sign up"},
		{"/user/registration", "register"},
		{"log in to continue", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchSignupKeyword(tt.text), "text %q", tt.text)
	}
}

func TestIsSensitiveToken(t *testing.T) {
	tests := []struct {
		token string
		want  bool
	}{
		{"password", true},
		{"confirm_password", true},
		{"api-key", true},
		{"apiToken", true},
		{"credit_card", true},
		{"ssn", true},
		{"Social Security Number", true},
		{"email", false},
		{"firstName", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsSensitiveToken(tt.token), "token %q", tt.token)
	}
}
