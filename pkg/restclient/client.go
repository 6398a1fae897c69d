// Package restclient implements the Controller Client: one authenticated
// HTTPS session to one SD-WAN controller, with typed JSON CRUD helpers,
// adaptive retry on rate-limiting and transient network errors, and the
// long-task polling primitive the Async Action Engine builds on.
package restclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/cisco-sastre/sastre-engine/pkg/log"
	"github.com/cisco-sastre/sastre-engine/pkg/types"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Client is a single authenticated session to one controller. It is not
// safe to share across controllers; callers needing multiple controllers
// (e.g. a migrate from one live controller to another) build one Client
// per side.
type Client struct {
	cfg    types.ConnectionConfig
	http   *http.Client
	logger zerolog.Logger

	baseURL string
	token   string // XSRF token required by vManage's form-auth flow

	// limiter paces outbound requests client-side as a courtesy to the
	// controller, independent of the reactive 429 backoff below.
	limiter *rate.Limiter

	recorder Recorder
}

// New creates a Client for cfg. It does not perform network I/O; call
// Login to establish the session.
func New(cfg types.ConnectionConfig) *Client {
	cfg = cfg.WithDefaults()

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.SkipCertCheck}, //nolint:gosec // controllers ship self-signed certs by default
	}
	jar, _ := cookiejar.New(nil)

	return &Client{
		cfg: cfg,
		http: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   cfg.Timeout,
		},
		logger:   log.WithComponent("restclient"),
		baseURL:  fmt.Sprintf("https://%s:%d", cfg.Address, cfg.Port),
		limiter:  rate.NewLimiter(rate.Every(20*time.Millisecond), 5),
		recorder: DefaultRecorder,
	}
}

// Login authenticates and retrieves the XSRF token subsequent requests
// must carry. Authorization failures surface as a fatal types.ErrAuth.
func (c *Client) Login(ctx context.Context) error {
	form := strings.NewReader(fmt.Sprintf("j_username=%s&j_password=%s", c.cfg.User, c.cfg.Password))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/j_security_check", form)
	if err != nil {
		return types.WrapError(types.ErrConnection, err, "build login request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.applyTenant(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return types.WrapError(types.ErrConnection, err, "login request to %s", c.baseURL)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	// vManage returns 200 with an HTML login form on bad credentials
	// rather than a 401; an empty response body is the signal for success,
	// and any body is treated as a rejection.
	if resp.StatusCode != http.StatusOK || len(body) > 0 {
		return types.NewError(types.ErrAuth, "login rejected for user %q", c.cfg.User)
	}

	token, err := c.fetchToken(ctx)
	if err != nil {
		return err
	}
	c.token = token
	c.logger.Info().Str("address", c.cfg.Address).Msg("session established")
	return nil
}

func (c *Client) fetchToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/dataservice/client/token", nil)
	if err != nil {
		return "", types.WrapError(types.ErrConnection, err, "build token request")
	}
	c.applyTenant(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", types.WrapError(types.ErrConnection, err, "fetch XSRF token")
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", types.NewError(types.ErrAuth, "token endpoint returned %d", resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", types.WrapError(types.ErrConnection, err, "read token response")
	}
	return string(b), nil
}

// Logout tears down the session. Errors are logged, not returned: a
// failed logout must never block task completion.
func (c *Client) Logout(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/logout", nil)
	if err != nil {
		return
	}
	c.applyTenant(req)
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Msg("logout failed")
		return
	}
	resp.Body.Close()
}

func (c *Client) applyTenant(req *http.Request) {
	if c.cfg.Tenant != "" {
		req.Header.Set("VSessionId", c.cfg.Tenant)
	}
}

// GetJSON issues a GET against path and decodes the "data" envelope
// vManage wraps list/get responses in, falling back to the raw body when
// no envelope is present.
func (c *Client) GetJSON(ctx context.Context, path string) (json.RawMessage, error) {
	return c.doJSON(ctx, http.MethodGet, path, nil)
}

// PostJSON issues a POST with body and returns the response payload.
func (c *Client) PostJSON(ctx context.Context, path string, body json.RawMessage) (json.RawMessage, error) {
	return c.doJSON(ctx, http.MethodPost, path, body)
}

// PutJSON issues a PUT with body and returns the response payload.
func (c *Client) PutJSON(ctx context.Context, path string, body json.RawMessage) (json.RawMessage, error) {
	return c.doJSON(ctx, http.MethodPut, path, body)
}

// Delete issues a DELETE against path.
func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.doJSON(ctx, http.MethodDelete, path, nil)
	return err
}

func (c *Client) doJSON(ctx context.Context, method, path string, body json.RawMessage) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, types.WrapError(types.ErrConnection, err, "rate limiter wait")
	}

	var out json.RawMessage
	err := c.withRetry(ctx, method, path, func() error {
		resp, respBody, err := c.rawRequest(ctx, method, path, body)
		if err != nil {
			return err
		}
		out = respBody
		_ = resp
		return nil
	})
	return out, err
}

func (c *Client) rawRequest(ctx context.Context, method, path string, body json.RawMessage) (*http.Response, json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, nil, types.WrapError(types.ErrConnection, err, "build %s %s", method, path)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-XSRF-TOKEN", c.token)
	c.applyTenant(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.recordRequestDuration(method, statusClass(0), time.Since(start))
		return nil, nil, transientOrFatal(err)
	}
	c.recordRequestDuration(method, statusClass(resp.StatusCode), time.Since(start))
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, types.WrapError(types.ErrConnection, err, "read response for %s %s", method, path)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, nil, types.NewError(types.ErrAuth, "%s %s returned %d", method, path, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, nil, rateLimitedError{}
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil, types.NewError(types.ErrNotFound, "%s %s returned 404", method, path)
	case resp.StatusCode == http.StatusConflict:
		return nil, nil, types.NewError(types.ErrConflict, "%s %s returned 409", method, path)
	case resp.StatusCode >= 500:
		return nil, nil, serverError{status: resp.StatusCode, body: digest(respBody)}
	case resp.StatusCode >= 400:
		return nil, nil, types.NewError(types.ErrInvalidArg, "%s %s returned %d: %s", method, path, resp.StatusCode, digest(respBody))
	}

	return resp, unwrapEnvelope(respBody), nil
}

// unwrapEnvelope strips vManage's {"data": ...} wrapper when present.
func unwrapEnvelope(body []byte) json.RawMessage {
	if len(body) == 0 {
		return nil
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Data != nil {
		return envelope.Data
	}
	return body
}

// digest truncates a response body for error logging so a failed push
// never dumps an entire policy body into the log stream.
func digest(body []byte) string {
	const max = 256
	if len(body) <= max {
		return string(body)
	}
	return string(body[:max]) + "..."
}
