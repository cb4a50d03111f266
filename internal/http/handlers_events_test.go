package httpx

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chavhanmoin/CrackBatu/internal/service"
	"github.com/Chavhanmoin/CrackBatu/internal/testutil"
)

// readSessionEvent returns the next "session" event, skipping keepalive comments.
func readSessionEvent(t *testing.T, r *bufio.Reader) sessionView {
	t.Helper()
	var (
		name string
		data string
	)
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && data != "":
			require.Equal(t, "session", name)
			var v sessionView
			require.NoError(t, json.Unmarshal([]byte(data), &v))
			return v
		}
	}
}

func TestAuthHandlers_Events_FollowsSession(t *testing.T) {
	t.Parallel()
	f := newPortalFixture(t)
	cookie := f.signedIn(t, testutil.NewProfile("u1").Build())

	srv := httptest.NewServer(f.handler)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/auth/events", nil)
	require.NoError(t, err)
	req.AddCookie(cookie)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	stream := bufio.NewReader(resp.Body)
	first := readSessionEvent(t, stream)
	assert.True(t, first.Resolved)
	assert.True(t, first.Authenticated)
	assert.True(t, first.Provisioned)

	require.NoError(t, f.auth.SignOut(ctx, cookie.Value))

	after := readSessionEvent(t, stream)
	assert.True(t, after.Resolved)
	assert.False(t, after.Authenticated)
	assert.Nil(t, after.Profile)
}

func TestAuthHandlers_Events_Anonymous(t *testing.T) {
	t.Parallel()
	f := newPortalFixture(t)
	srv := httptest.NewServer(f.handler)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/auth/events", nil)
	require.NoError(t, err)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	v := readSessionEvent(t, bufio.NewReader(resp.Body))
	assert.True(t, v.Resolved)
	assert.False(t, v.Authenticated)
}

func TestAuthHandlers_Events_Unavailable(t *testing.T) {
	t.Parallel()
	f := newPortalFixture(t)
	// Without an event source the resolver can only take snapshots.
	snapshots := service.NewSessionResolver(service.SessionResolverOptions{Sessions: f.sessions, Profiles: f.profiles})
	h := NewRouter(RouterServices{Auth: f.auth, Sessions: snapshots})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/events", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.True(t, decodeBody[errorResponse](t, rec).Retryable)
}

func TestStreamOptions_KeepAlive(t *testing.T) {
	t.Parallel()
	assert.Equal(t, defaultKeepAlive, StreamOptions{}.keepAlive())
	assert.Equal(t, time.Second, StreamOptions{KeepAlive: time.Second}.keepAlive())
}
