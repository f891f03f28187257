package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/cashier"
	"github.com/xraph/cashier/api"
	"github.com/xraph/cashier/export"
	"github.com/xraph/cashier/store/memory"
	"github.com/xraph/cashier/webhook"
)

const (
	jwtSecret     = "test-jwt-secret"
	webhookSecret = "test-webhook-secret"
)

type server struct {
	engine *cashier.Cashier
	auth   *api.Authenticator
	srv    *httptest.Server
}

func newServer(t *testing.T) *server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := cashier.New(memory.New(),
		cashier.WithLogger(logger),
		cashier.WithEntitlementCache(nil),
	)
	ctx := context.Background()
	require.NoError(t, engine.Start(ctx))
	t.Cleanup(func() { _ = engine.Stop() })

	_, err := engine.SeedCatalog(ctx, nil)
	require.NoError(t, err)
	_, err = engine.SeedPaymentMethods(ctx)
	require.NoError(t, err)

	auth := api.NewAuthenticator(jwtSecret, "", "")
	a := api.New(engine, auth,
		api.WithLogger(logger),
		api.WithAccessLog(false),
		api.WithWebhookVerifier(webhook.NewVerifier(webhookSecret, 0)),
	)
	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)

	return &server{engine: engine, auth: auth, srv: srv}
}

func (s *server) token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := s.auth.Issue(userID, role, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *server) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, s.srv.URL+path, rdr)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealth(t *testing.T) {
	s := newServer(t)

	resp := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decodeBody(t, resp)["status"])
}

func TestAuthRequired(t *testing.T) {
	s := newServer(t)

	resp := s.do(t, http.MethodGet, "/v1/plans", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", decodeBody(t, resp)["code"])

	resp = s.do(t, http.MethodGet, "/v1/plans", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminRequiresRole(t *testing.T) {
	s := newServer(t)

	resp := s.do(t, http.MethodGet, "/v1/admin/plans", s.token(t, "u1", ""), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/v1/admin/plans", s.token(t, "ops", api.RoleAdmin), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Len(t, body["data"], 5)
}

func TestListPlans(t *testing.T) {
	s := newServer(t)

	resp := s.do(t, http.MethodGet, "/v1/plans", s.token(t, "u1", ""), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	plans := decodeBody(t, resp)["data"].([]any)
	require.Len(t, plans, 5)

	resp = s.do(t, http.MethodGet, "/v1/plans/premium", s.token(t, "u1", ""), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Premium", decodeBody(t, resp)["name"])

	resp = s.do(t, http.MethodGet, "/v1/plans/nope", s.token(t, "u1", ""), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCheckoutAndWebhook(t *testing.T) {
	s := newServer(t)
	tok := s.token(t, "u1", "")

	resp := s.do(t, http.MethodPost, "/v1/checkout", tok, map[string]string{
		"plan_slug": "premium",
		"method":    "visa",
		"country":   "SA",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	pay := decodeBody(t, resp)
	assert.Equal(t, "pending", pay["status"])
	paymentID := pay["id"].(string)

	body, err := json.Marshal(map[string]string{
		"type":        string(webhook.PaymentSucceeded),
		"payment_id":  paymentID,
		"gateway_ref": "gw-123",
	})
	require.NoError(t, err)

	send := func(sig webhook.Headers) *http.Response {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodPost,
			s.srv.URL+"/webhooks/payments", bytes.NewReader(body))
		require.NoError(t, err)
		sig.Set(req.Header)
		resp, err := s.srv.Client().Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	bad := send(webhook.Sign("wrong-secret", body, time.Now()))
	assert.Equal(t, http.StatusUnauthorized, bad.StatusCode)

	ok := send(webhook.Sign(webhookSecret, body, time.Now()))
	require.Equal(t, http.StatusOK, ok.StatusCode)

	// replay of an applied event
	again := send(webhook.Sign(webhookSecret, body, time.Now()))
	assert.Equal(t, http.StatusOK, again.StatusCode)

	resp = s.do(t, http.MethodGet, "/v1/me/status", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "active", decodeBody(t, resp)["status"])

	resp = s.do(t, http.MethodGet, "/v1/me/features/see_who_liked", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decodeBody(t, resp)["allowed"])
}

func TestConsumeLimitRefused(t *testing.T) {
	s := newServer(t)
	tok := s.token(t, "free-user", "")

	resp := s.do(t, http.MethodPost, "/v1/me/limits/daily_likes/consume", tok, map[string]int{"n": 10})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/v1/me/limits/daily_likes/consume", tok, nil)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "quota_exceeded", body["code"])
	result := body["result"].(map[string]any)
	assert.Equal(t, false, result["allowed"])
	assert.EqualValues(t, 10, result["used"])

	resp = s.do(t, http.MethodGet, "/v1/me/limits/unknown_limit", tok, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminPaymentsCSV(t *testing.T) {
	s := newServer(t)

	resp := s.do(t, http.MethodPost, "/v1/checkout", s.token(t, "u1", ""), map[string]string{
		"plan_slug": "basic",
		"method":    "mada",
		"country":   "SA",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/v1/admin/payments?format=csv", s.token(t, "ops", api.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, export.ContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "payments-")

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "id,"))

	resp = s.do(t, http.MethodGet, "/v1/admin/payments?format=xml", s.token(t, "ops", api.RoleAdmin), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminNotifyWithoutNotifier(t *testing.T) {
	s := newServer(t)

	resp := s.do(t, http.MethodPost, "/v1/admin/users/u1/notify", s.token(t, "ops", api.RoleAdmin),
		map[string]string{"type": "welcome"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestValidateCoupon(t *testing.T) {
	s := newServer(t)
	admin := s.token(t, "ops", api.RoleAdmin)

	resp := s.do(t, http.MethodPost, "/v1/admin/coupons", admin, map[string]any{
		"code":     "launch",
		"type":     "percentage",
		"percent":  2500,
		"max_uses": 5,
		"active":   true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	tok := s.token(t, "u1", "")
	resp = s.do(t, http.MethodPost, "/v1/coupons/validate", tok, map[string]string{"code": "LAUNCH", "plan_slug": "basic"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decodeBody(t, resp)["valid"])

	resp = s.do(t, http.MethodPost, "/v1/coupons/validate", tok, map[string]string{"code": "MISSING", "plan_slug": "basic"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, decodeBody(t, resp)["valid"])
}
