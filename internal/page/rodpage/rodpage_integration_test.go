//go:build integration

package rodpage_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signupguard/internal/inspect"
	"signupguard/internal/page/rodpage"
)

const fixture = `<!DOCTYPE html>
<html><body>
<form action="/register">
  <h2>Create your account</h2>
  <label for="fn">First name</label>
  <input type="text" id="fn" name="firstName" required>
  <input type="email" name="email" placeholder="you@example.com">
  <input type="password" name="password">
  <button type="submit">Sign Up</button>
</form>
</body></html>`

func launchPage(t *testing.T, url string) *rod.Page {
	t.Helper()
	u, err := launcher.New().Headless(true).Launch()
	require.NoError(t, err)
	browser := rod.New().ControlURL(u)
	require.NoError(t, browser.Connect())
	t.Cleanup(func() { _ = browser.Close() })

	p, err := browser.Page(proto.TargetCreateTarget{URL: url})
	require.NoError(t, err)
	require.NoError(t, p.WaitLoad())
	return p
}

func TestRodPageDetectionAndFill(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(fixture))
	}))
	defer srv.Close()

	p := rodpage.New(launchPage(t, srv.URL))

	det, err := inspect.New(nil).DetectSignupForm(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, det.Form.Fields, 3)
	assert.True(t, det.Form.Fields[2].Sensitive)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, det.Fields[0].Handle.SetValue(ctx, "Jane"))
	require.NoError(t, det.Fields[0].Handle.DispatchInputChange(ctx))

	sub, err := det.FormHandle.SubscribeSubmit(ctx)
	require.NoError(t, err)
	sub.Close()
}
