package observe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"signupguard/internal/audit"
	"signupguard/internal/page/htmlpage"
	"signupguard/internal/types"
)

const formMarkup = `
<html><body>
<form action="/register">
  <h2>Sign up</h2>
  <input type="text" name="email">
  <button type="submit">Sign Up</button>
</form>
</body></html>`

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWaitTimesOutWithoutSubmission(t *testing.T) {
	p := htmlpage.MustParse("https://example.com/signup", formMarkup)
	form := p.Form(0)
	rec := audit.NewRecorder(nil)
	sess := &types.Session{ID: "s1", NetworkID: "shareasale"}

	start := time.Now()
	ok, err := New(rec, nil).WaitForHumanSubmission(context.Background(), form, sess, 100*time.Millisecond)
	elapsed := time.Since(start)

	assert.False(t, ok)
	assert.ErrorIs(t, err, types.ErrSubmissionTimeout)
	assert.False(t, sess.HumanSubmitted)
	assert.Less(t, elapsed, time.Second, "timeout wait overshot badly")

	assert.Empty(t, rec.ByLevel(types.LevelCritical))
	assert.Zero(t, form.OpenSubscriptions(), "listener must be removed on timeout")
}

func TestWaitResolvesOnHumanSubmit(t *testing.T) {
	p := htmlpage.MustParse("https://example.com/signup", formMarkup)
	form := p.Form(0)
	rec := audit.NewRecorder(nil)
	sess := &types.Session{ID: "s1", NetworkID: "shareasale"}

	go func() {
		time.Sleep(50 * time.Millisecond)
		form.FireSubmit()
	}()

	ok, err := New(rec, nil).WaitForHumanSubmission(context.Background(), form, sess, 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, sess.HumanSubmitted)

	critical := rec.ByLevel(types.LevelCritical)
	require.Len(t, critical, 1, "exactly one critical entry")
	assert.Equal(t, "human_submitted", critical[0].Action)
	assert.Contains(t, critical[0].Details, "human-triggered")

	assert.Zero(t, form.ProgrammaticSubmits(), "observer must never invoke submission")
	assert.Zero(t, form.OpenSubscriptions(), "listener must be removed after success")
}

func TestWaitNeverInvokesSubmitAcrossFullLifetime(t *testing.T) {
	p := htmlpage.MustParse("https://example.com/signup", formMarkup)
	form := p.Form(0)
	rec := audit.NewRecorder(nil)

	// Timeout path, no submit ever dispatched: the spy must stay zero.
	_, _ = New(rec, nil).WaitForHumanSubmission(context.Background(), form, nil, 50*time.Millisecond)
	assert.Zero(t, form.ProgrammaticSubmits())
}

func TestHumanSubmittedTransitionsExactlyOnce(t *testing.T) {
	p := htmlpage.MustParse("https://example.com/signup", formMarkup)
	form := p.Form(0)
	rec := audit.NewRecorder(nil)
	sess := &types.Session{ID: "s1"}
	obs := New(rec, nil)

	fireSoon := func() {
		go func() {
			time.Sleep(10 * time.Millisecond)
			form.FireSubmit()
		}()
	}

	fireSoon()
	ok, err := obs.WaitForHumanSubmission(context.Background(), form, sess, time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	// A second observed submit does not produce a second critical entry.
	fireSoon()
	ok, err = obs.WaitForHumanSubmission(context.Background(), form, sess, time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	assert.True(t, sess.HumanSubmitted)
	assert.Len(t, rec.ByLevel(types.LevelCritical), 1)
	assert.Len(t, rec.ByAction("human_submitted_repeat"), 1)
}

func TestWaitCancellationDetachesCleanly(t *testing.T) {
	p := htmlpage.MustParse("https://example.com/signup", formMarkup)
	form := p.Form(0)
	rec := audit.NewRecorder(nil)
	sess := &types.Session{ID: "s1"}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	ok, err := New(rec, nil).WaitForHumanSubmission(ctx, form, sess, 5*time.Minute)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, sess.HumanSubmitted)
	assert.Zero(t, form.OpenSubscriptions(), "listener must be removed on cancellation")
}
