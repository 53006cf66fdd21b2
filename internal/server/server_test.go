package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/orderdesk/apiserver/config"
	"github.com/orderdesk/apiserver/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := config.Config{
		Database: config.DatabaseConfig{Driver: config.DriverMemory},
		Auth: config.AuthConfig{
			Secret:     "test-secret",
			Algorithm:  "HS256",
			ShortTTL:   30 * time.Minute,
			LongTTL:    30 * 24 * time.Hour,
			BcryptCost: bcrypt.MinCost,
		},
	}
	srv, err := New(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

type client struct {
	t    *testing.T
	base string
}

func (c client) do(method, path, token string, body any) (int, map[string]any) {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = strings.NewReader(string(raw))
	}
	req, err := http.NewRequest(method, c.base+path, reader)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	if len(raw) > 0 {
		require.NoError(c.t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (c client) signup(email, password string) int {
	c.t.Helper()
	status, body := c.do(http.MethodPost, "/users", "", map[string]any{"name": "Ann", "email": email, "password": password})
	require.Equal(c.t, http.StatusCreated, status, body)
	return int(body["id"].(float64))
}

func (c client) login(email, password string) string {
	c.t.Helper()
	status, body := c.do(http.MethodPost, "/auth/login", "", map[string]any{"email": email, "password": password})
	require.Equal(c.t, http.StatusOK, status, body)
	return body["access_token"].(string)
}

func TestOrderLifecycle(t *testing.T) {
	ts := newTestServer(t)
	c := client{t: t, base: ts.URL}

	userID := c.signup("a@x.com", "pw")

	status, login := c.do(http.MethodPost, "/auth/login", "", map[string]any{"email": "a@x.com", "password": "pw"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "bearer", login["token_type"])
	expiresAt, err := time.Parse(time.RFC3339, login["expires_at"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), expiresAt, time.Minute)
	token := login["access_token"].(string)

	status, me := c.do(http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "a@x.com", me["email"])
	assert.NotContains(t, me, "password_hash")

	status, order := c.do(http.MethodPost, "/requests", token, map[string]any{"item": "coffee", "quantity": 1, "price": 3.5})
	require.Equal(t, http.StatusCreated, status, order)
	assert.Equal(t, float64(userID), order["user_id"])
	assert.Equal(t, "coffee", order["item"])
	orderID := int(order["id"].(float64))

	status, updated := c.do(http.MethodPut, "/requests/"+strconv.Itoa(orderID), token, map[string]any{"item": "tea", "quantity": 2, "price": 2})
	require.Equal(t, http.StatusOK, status, updated)
	assert.Equal(t, "tea", updated["item"])

	status, mine := c.do(http.MethodGet, "/requests/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), mine["total"])

	status, _ = c.do(http.MethodGet, "/requests/"+strconv.Itoa(orderID)+"/receipt", token, nil)
	assert.Equal(t, http.StatusNotFound, status, "no receipt storage configured")

	status, body := c.do(http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "logged out", body["message"])

	status, body = c.do(http.MethodPost, "/requests", token, map[string]any{"item": "coffee", "quantity": 1, "price": 3.5})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", body["error"])

	status, body = c.do(http.MethodPost, "/auth/logout", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "token already invalid", body["error"])
}

func TestOrderOwnership(t *testing.T) {
	ts := newTestServer(t)
	c := client{t: t, base: ts.URL}

	c.signup("a@x.com", "pw")
	c.signup("b@x.com", "pw")
	alice := c.login("a@x.com", "pw")
	bob := c.login("b@x.com", "pw")

	status, order := c.do(http.MethodPost, "/requests", alice, map[string]any{"item": "coffee", "quantity": 1, "price": 3.5})
	require.Equal(t, http.StatusCreated, status)
	path := "/requests/" + strconv.Itoa(int(order["id"].(float64)))

	status, _ = c.do(http.MethodGet, path, bob, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = c.do(http.MethodDelete, path, bob, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, list := c.do(http.MethodGet, "/requests", bob, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), list["total"])

	status, _ = c.do(http.MethodDelete, path, alice, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = c.do(http.MethodGet, path, alice, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestUserEndpoints(t *testing.T) {
	ts := newTestServer(t)
	c := client{t: t, base: ts.URL}

	id := c.signup("a@x.com", "pw")
	token := c.login("a@x.com", "pw")

	status, body := c.do(http.MethodPost, "/users", "", map[string]any{"name": "Dup", "email": "A@X.com", "password": "pw"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "email already registered", body["error"])

	status, _ = c.do(http.MethodGet, "/users", token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = c.do(http.MethodGet, "/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = c.do(http.MethodPut, "/users/"+strconv.Itoa(id), token, map[string]any{"name": "Annie"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Annie", body["name"])

	status, _ = c.do(http.MethodDelete, "/users/"+strconv.Itoa(id), token, nil)
	assert.Equal(t, http.StatusBadRequest, status, "delete needs confirmation")

	status, _ = c.do(http.MethodDelete, "/users/"+strconv.Itoa(id), token, map[string]any{"confirm": true})
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = c.do(http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status, "tokens of a deleted user stop working")
}

func TestInputLimits(t *testing.T) {
	ts := newTestServer(t)
	c := client{t: t, base: ts.URL}

	longPassword := strings.Repeat("p", 80)
	status, body := c.do(http.MethodPost, "/users", "", map[string]any{"name": "Ann", "email": "a@x.com", "password": longPassword})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "password is too long", body["error"])

	longEmail := strings.Repeat("a", 250) + "@x.com"
	status, body = c.do(http.MethodPost, "/users", "", map[string]any{"name": "Ann", "email": longEmail, "password": "pw"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "email is too long", body["error"])

	id := c.signup("a@x.com", "pw")
	token := c.login("a@x.com", "pw")

	status, body = c.do(http.MethodPut, "/users/"+strconv.Itoa(id), token, map[string]any{"password": longPassword})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "password is too long", body["error"])

	// Multi-byte passwords are measured in bytes.
	status, body = c.do(http.MethodPut, "/users/"+strconv.Itoa(id), token, map[string]any{"password": strings.Repeat("é", 40)})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "password is too long", body["error"])

	status, body = c.do(http.MethodPost, "/requests", token, map[string]any{"item": "coffee", "quantity": 3000000000, "price": 1})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "quantity is out of range", body["error"])

	status, _ = c.do(http.MethodPost, "/requests", token, map[string]any{"item": "coffee", "quantity": 2147483647, "price": 1})
	assert.Equal(t, http.StatusCreated, status)

	token = c.login("a@x.com", "pw")
	assert.NotEmpty(t, token, "rejected updates leave the password unchanged")
}

func TestLoginForm(t *testing.T) {
	ts := newTestServer(t)
	c := client{t: t, base: ts.URL}
	c.signup("a@x.com", "pw")

	form := url.Values{"username": {"a@x.com"}, "password": {"pw"}, "remember": {"true"}}
	resp, err := http.PostForm(ts.URL+"/auth/login-form", form)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		ExpiresAt time.Time `json:"expires_at"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), body.ExpiresAt, time.Minute)

	status, _ := c.do(http.MethodPost, "/auth/login", "", map[string]any{"email": "a@x.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)
	c := client{t: t, base: ts.URL}

	status, body := c.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `orderdesk_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}

func TestNew_RejectsMissingSecret(t *testing.T) {
	_, err := New(context.Background(), config.Config{
		Database: config.DatabaseConfig{Driver: config.DriverMemory},
	}, nil)
	assert.Error(t, err)
}
