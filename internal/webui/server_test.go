package webui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexdraft/internal/assistant"
	"lexdraft/internal/metrics"
	"lexdraft/internal/session"
)

type stubDrafter struct {
	mu       sync.Mutex
	err      error
	requests []assistant.DraftRequest
}

func (d *stubDrafter) SuggestTones(_ context.Context, email string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return "", d.err
	}
	return "- Reassuring: about " + email, nil
}

func (d *stubDrafter) DraftReply(_ context.Context, req assistant.DraftRequest) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return "", d.err
	}
	d.requests = append(d.requests, req)
	return "Dear client,\n\n" + req.Tone + " reply.\n\n" + req.Signature, nil
}

func newTestServer(t *testing.T, d *stubDrafter, opts ...Option) (*httptest.Server, *http.Client) {
	t.Helper()
	srv := httptest.NewServer(NewServer(d, session.NewStore(time.Hour, nil), 0, opts...).Handler())
	t.Cleanup(srv.Close)

	return srv, &http.Client{
		Jar: newJar(t),
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func newJar(t *testing.T) http.CookieJar {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return jar
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func postJSON(t *testing.T, c *http.Client, u string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := c.Post(u, "application/json", strings.NewReader(string(b)))
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestIndexSetsSessionCookie(t *testing.T) {
	srv, c := newTestServer(t, &stubDrafter{})

	resp, err := c.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var found bool
	for _, ck := range resp.Cookies() {
		if ck.Name == CookieName && ck.Value != "" {
			found = true
		}
	}
	assert.True(t, found, "expected %s cookie", CookieName)
}

func TestTonesEndpoint(t *testing.T) {
	srv, c := newTestServer(t, &stubDrafter{})

	resp, err := c.Get(srv.URL + "/api/tones")
	require.NoError(t, err)
	var tones []toneResponse
	decode(t, resp, &tones)

	require.Len(t, tones, 9)
	assert.Equal(t, "Formal", tones[0].Name)
	assert.Equal(t, "Empathetic but Objective", tones[8].Name)
	assert.Equal(t, "Balance empathy with professionalism.", tones[8].Instruction)
}

func TestSuggestThenDraftJSON(t *testing.T) {
	d := &stubDrafter{}
	srv, c := newTestServer(t, d)

	resp := postJSON(t, c, srv.URL+"/api/suggest", SuggestRequest{Email: "lease ends"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap session.Snapshot
	decode(t, resp, &snap)
	assert.Equal(t, "submitted", snap.State)
	assert.Equal(t, "- Reassuring: about lease ends", snap.Suggestions)

	resp = postJSON(t, c, srv.URL+"/api/draft", DraftRequest{
		Tone: "Reassuring", Notes: "Renewal pending", Signature: "Jane Doe, Esq.",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &snap)
	assert.Equal(t, "drafted", snap.State)
	assert.Contains(t, snap.Draft, "Jane Doe, Esq.")

	require.Len(t, d.requests, 1)
	assert.Equal(t, "lease ends", d.requests[0].Email)
	assert.Equal(t, "Renewal pending", d.requests[0].CaseNotes)

	resp, err := c.Get(srv.URL + "/api/session")
	require.NoError(t, err)
	decode(t, resp, &snap)
	assert.Equal(t, "Reassuring", snap.Tone)
}

func TestDraftBeforeSubmitConflicts(t *testing.T) {
	srv, c := newTestServer(t, &stubDrafter{})

	resp := postJSON(t, c, srv.URL+"/api/draft", DraftRequest{})
	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
}

func TestUnknownToneIsBadRequest(t *testing.T) {
	srv, c := newTestServer(t, &stubDrafter{})
	postJSON(t, c, srv.URL+"/api/suggest", SuggestRequest{Email: "x"}).Body.Close()

	resp := postJSON(t, c, srv.URL+"/api/draft", DraftRequest{Tone: "Sarcastic"})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRemoteFailureIsBadGateway(t *testing.T) {
	d := &stubDrafter{err: errors.New("upstream quota exceeded")}
	srv, c := newTestServer(t, d)

	resp := postJSON(t, c, srv.URL+"/api/suggest", SuggestRequest{Email: "x"})
	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body["error"], "quota exceeded")
}

func TestFormFlowRedirectsAndRenders(t *testing.T) {
	srv, c := newTestServer(t, &stubDrafter{})

	resp, err := c.PostForm(srv.URL+"/submit", url.Values{"email": {"My lease ends next month"}})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, err = c.PostForm(srv.URL+"/draft", url.Values{
		"tone": {"Urgent"}, "notes": {""}, "signature": {"J. Doe"},
	})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, err = c.Get(srv.URL + "/")
	require.NoError(t, err)
	page := readBody(t, resp)

	assert.Contains(t, page, "My lease ends next month")
	assert.Contains(t, page, `<option value="Urgent" selected>`)
	assert.Contains(t, page, "Urgent reply.")
}

func TestFormFailureRendersBanner(t *testing.T) {
	srv, c := newTestServer(t, &stubDrafter{err: errors.New("connection refused")})

	resp, err := c.PostForm(srv.URL+"/submit", url.Values{"email": {"hello"}})
	require.NoError(t, err)
	page := readBody(t, resp)

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, page, `class="error"`)
	assert.Contains(t, page, "connection refused")
}

func TestFailedSubmitKeepsPastedEmail(t *testing.T) {
	d := &stubDrafter{}
	srv, c := newTestServer(t, d)

	resp, err := c.PostForm(srv.URL+"/submit", url.Values{"email": {"first email"}})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	d.mu.Lock()
	d.err = errors.New("connection refused")
	d.mu.Unlock()

	resp, err = c.PostForm(srv.URL+"/submit", url.Values{"email": {"second pasted email"}})
	require.NoError(t, err)
	page := readBody(t, resp)

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, page, ">second pasted email</textarea>")
	assert.NotContains(t, page, ">first email</textarea>")

	// The stored session still holds the last successful submission.
	resp, err = c.Get(srv.URL + "/api/session")
	require.NoError(t, err)
	var snap session.Snapshot
	decode(t, resp, &snap)
	assert.Equal(t, "first email", snap.EmailText)
}

func TestSessionsAreIsolated(t *testing.T) {
	d := &stubDrafter{}
	srv, alice := newTestServer(t, d)
	bob := &http.Client{Jar: newJar(t)}

	postJSON(t, alice, srv.URL+"/api/suggest", SuggestRequest{Email: "alice's email"}).Body.Close()

	resp, err := bob.Get(srv.URL + "/api/session")
	require.NoError(t, err)
	var snap session.Snapshot
	decode(t, resp, &snap)
	assert.Equal(t, "empty", snap.State)
	assert.Empty(t, snap.EmailText)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, c := newTestServer(t, &stubDrafter{}, WithMetrics(metrics.New()))

	resp, err := c.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = c.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	assert.Contains(t, readBody(t, resp), `lexdraft_http_requests_total{code="200",path="GET /api/status"} 1`)
}

func TestMetricsCollapseUnknownPaths(t *testing.T) {
	m := metrics.New()
	srv, c := newTestServer(t, &stubDrafter{}, WithMetrics(m))

	for i := range 50 {
		resp, err := c.Get(fmt.Sprintf("%s/random/%d", srv.URL, i))
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	}

	n, err := testutil.GatherAndCount(m.Registry, "lexdraft_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	resp, err := c.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	assert.Contains(t, readBody(t, resp), `lexdraft_http_requests_total{code="404",path="other"} 50`)
}
