package restclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cisco-sastre/sastre-engine/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c := New(types.ConnectionConfig{
		Address:         "127.0.0.1",
		Port:            1,
		User:            "admin",
		Password:        "admin",
		MaxRetries429:   2,
		MaxRetriesRetry: 2,
	})
	c.baseURL = srv.URL
	c.token = "test-token"
	return c
}

func TestLoginSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/j_security_check":
			w.WriteHeader(http.StatusOK)
		case "/dataservice/client/token":
			w.Write([]byte("XSRF-TOKEN-VALUE"))
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	c.token = ""
	err := c.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "XSRF-TOKEN-VALUE", c.token)
}

func TestLoginRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>login form</html>"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	err := c.Login(context.Background())
	require.Error(t, err)
	var sastreErr *types.Error
	require.ErrorAs(t, err, &sastreErr)
	assert.Equal(t, types.ErrAuth, sastreErr.Kind)
}

func TestGetJSONUnwrapsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":"1"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	raw, err := c.GetJSON(context.Background(), "/dataservice/template/device")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"1"}]`, string(raw))
}

func TestDoJSONRetriesOnRateLimit(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"data":{"ok":true}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	raw, err := c.GetJSON(context.Background(), "/dataservice/device")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
	assert.Equal(t, 3, attempts)
}

func TestDoJSONGivesUpAfterMaxRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.GetJSON(context.Background(), "/dataservice/device")
	require.Error(t, err)
}

func TestDeleteNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	err := c.Delete(context.Background(), "/dataservice/template/device/abc")
	require.Error(t, err)
	var sastreErr *types.Error
	require.ErrorAs(t, err, &sastreErr)
	assert.Equal(t, types.ErrNotFound, sastreErr.Kind)
}

func TestPollActionReachesTerminalStatus(t *testing.T) {
	polls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		polls++
		if polls < 2 {
			w.Write([]byte(`{"id":"action-1","data":[{"uuid":"dev-1","status":"Running"}]}`))
			return
		}
		w.Write([]byte(`{"id":"action-1","data":[{"uuid":"dev-1","status":"Success"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	result, err := c.PollAction(context.Background(), "action-1", 5*time.Second, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, ActionSuccess, result.Status)
	assert.False(t, result.TimedOut)
}

func TestPollActionTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"action-1","data":[{"uuid":"dev-1","status":"Running"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	result, err := c.PollAction(context.Background(), "action-1", 30*time.Millisecond, 10*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, result.TimedOut)
}
