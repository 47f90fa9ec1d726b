package htmlpage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const markup = `
<html><body>
<form action="/register" id="reg">
  <label for="fn">First name</label>
  <input type="text" id="fn" name="firstName" required>
  <label>Last name <input type="text" name="lastName"></label>
  <input type="email" name="email" placeholder="you@example.com">
  <input type="hidden" name="csrf">
  <div style="display: none"><input type="text" name="honeypot"></div>
  <button type="submit">Sign Up</button>
</form>
</body></html>`

func TestParseEnumeratesFormsAndFields(t *testing.T) {
	p := MustParse("https://example.com/signup", markup)
	ctx := context.Background()

	forms, err := p.Forms(ctx)
	require.NoError(t, err)
	require.Len(t, forms, 1)

	action, err := forms[0].ActionPath(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/register", action)

	fields, err := forms[0].Fields(ctx)
	require.NoError(t, err)
	assert.Len(t, fields, 5, "submit controls are excluded, hidden inputs are reported with flags")
}

func TestDescribeReportsLabelsAndVisibility(t *testing.T) {
	p := MustParse("https://example.com/signup", markup)
	ctx := context.Background()
	form := p.Form(0)

	first, err := form.FieldByName("firstName").Describe(ctx)
	require.NoError(t, err)
	assert.Equal(t, "First name", first.ExplicitLabel)
	assert.True(t, first.Required)
	assert.True(t, first.Visible)

	last, err := form.FieldByName("lastName").Describe(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Last name", last.EnclosingLabel)

	email, err := form.FieldByName("email").Describe(ctx)
	require.NoError(t, err)
	assert.Equal(t, "you@example.com", email.Placeholder)

	csrf, err := form.FieldByName("csrf").Describe(ctx)
	require.NoError(t, err)
	assert.True(t, csrf.Hidden)

	pot, err := form.FieldByName("honeypot").Describe(ctx)
	require.NoError(t, err)
	assert.False(t, pot.Visible, "ancestor display:none hides the field")
}

func TestSetValueAndCounters(t *testing.T) {
	p := MustParse("https://example.com/signup", markup)
	ctx := context.Background()
	field := p.Form(0).FieldByName("email")

	_, set := field.Value()
	assert.False(t, set)

	require.NoError(t, field.SetValue(ctx, "jane@example.com"))
	require.NoError(t, field.DispatchInputChange(ctx))
	require.NoError(t, field.MarkFilled(ctx))

	v, set := field.Value()
	assert.True(t, set)
	assert.Equal(t, "jane@example.com", v)
	assert.Equal(t, 1, field.Writes())
	assert.Equal(t, 1, field.Dispatches())
	assert.True(t, field.Marked())
}

func TestSubscriptionFiresOnceAndCloses(t *testing.T) {
	p := MustParse("https://example.com/signup", markup)
	form := p.Form(0)

	sub, err := form.SubscribeSubmit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, form.OpenSubscriptions())

	form.FireSubmit()
	select {
	case <-sub.Fired():
	default:
		t.Fatal("subscription did not observe the submit signal")
	}

	sub.Close()
	sub.Close() // idempotent
	assert.Zero(t, form.OpenSubscriptions())
}

func TestVisibleTextCollapsesWhitespace(t *testing.T) {
	p := MustParse("https://example.com", `<html><body><form>
		<h2>Create   your
		account</h2></form></body></html>`)
	text, err := p.Form(0).VisibleText(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Create your account", text)
}
