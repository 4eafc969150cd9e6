package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"ai-bot/internal/catalog"
	"ai-bot/internal/entitlement"
	"ai-bot/internal/payment"
	"ai-bot/internal/promo"
	"ai-bot/internal/repo"
	"ai-bot/migrations"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminID  = "100"
	username = "ops"
	password = "s3cret"
)

type recordingNotifier struct {
	mu        sync.Mutex
	confirmed []payment.ConfirmResult
	rejected  []repo.Payment
}

func (n *recordingNotifier) NotifyConfirmed(_ context.Context, res payment.ConfirmResult) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, res)
}

func (n *recordingNotifier) NotifyRejected(_ context.Context, p repo.Payment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rejected = append(n.rejected, p)
}

type offlineTransport struct{}

func (offlineTransport) Connected() bool { return false }

type testEnv struct {
	srv      *httptest.Server
	wf       *payment.Workflow
	repo     *repo.SQLiteRepository
	notifier *recordingNotifier
}

func newTestEnv(t *testing.T, basePath string) *testEnv {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r, err := repo.NewSQLite(ctx, ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	require.NoError(t, r.RunMigrations(ctx, migrations.SQLite()))

	reg, err := catalog.New(catalog.DefaultPackages())
	require.NoError(t, err)
	clock := entitlement.NewFakeClock(time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC))
	promos := promo.New(r, clock, nil, logger)
	wf := payment.New(payment.Options{
		Catalog:    reg,
		Repository: r,
		Promos:     promos,
		Clock:      clock,
		AdminIDs:   []int64{100},
	}, logger)

	notifier := &recordingNotifier{}
	admin := NewAdminHandler(AdminConfig{
		UsernameMD5: md5Hex(username),
		PasswordMD5: strings.ToUpper(md5Hex(password)),
		Payments:    wf,
		Promos:      promos,
		Notifier:    notifier,
	}, logger)

	server := New(":0", logger, nil, Handlers{Admin: admin}, basePath)
	server.SetDependencies(Dependencies{Repository: r, WhatsApp: offlineTransport{}})
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, wf: wf, repo: r, notifier: notifier}
}

func (e *testEnv) do(t *testing.T, method, path, body string, auth bool) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	require.NoError(t, err)
	if auth {
		req.SetBasicAuth(username, password)
		req.Header.Set(AdminIDHeader, adminID)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var out map[string]any
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	if len(raw) > 0 && strings.HasPrefix(res.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return res, out
}

func (e *testEnv) pendingPayment(t *testing.T, userID int64) string {
	t.Helper()
	ctx := context.Background()
	_, err := e.repo.EnsureUser(ctx, repo.UserProfile{ID: userID, Language: "en"}, time.Now())
	require.NoError(t, err)
	ins, err := e.wf.CreatePendingPayment(ctx, userID, "standard", 50000, "")
	require.NoError(t, err)
	return ins.Payment.ID
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, "")

	res, body := env.do(t, http.MethodGet, "/healthz", "", false)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "ok", body["status"])

	res, body = env.do(t, http.MethodGet, "/readyz", "", false)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, true, body["ready"])
	checks, ok := body["checks"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ok", checks["database"])
	assert.Equal(t, "disconnected", checks["whatsapp"])

	res, _ = env.do(t, http.MethodPost, "/healthz", "", false)
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
}

func TestBasePath(t *testing.T) {
	env := newTestEnv(t, "bot/")

	res, _ := env.do(t, http.MethodGet, "/bot/healthz", "", false)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, _ = env.do(t, http.MethodGet, "/healthz", "", false)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, _ = env.do(t, http.MethodGet, "/botx/healthz", "", false)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, _ = env.do(t, http.MethodGet, "/bot/admin/stats", "", true)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestAdminAuth(t *testing.T) {
	env := newTestEnv(t, "")

	res, _ := env.do(t, http.MethodGet, "/admin/stats", "", false)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	req, err := http.NewRequest(http.MethodGet, env.srv.URL+"/admin/stats", nil)
	require.NoError(t, err)
	req.SetBasicAuth(username, "wrong")
	req.Header.Set(AdminIDHeader, adminID)
	res, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	req, err = http.NewRequest(http.MethodGet, env.srv.URL+"/admin/stats", nil)
	require.NoError(t, err)
	req.SetBasicAuth(username, password)
	req.Header.Set(AdminIDHeader, "7")
	res, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestAdminPayments(t *testing.T) {
	env := newTestEnv(t, "")
	first := env.pendingPayment(t, 501)
	second := env.pendingPayment(t, 502)

	res, body := env.do(t, http.MethodGet, "/admin/payments/pending", "", true)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Len(t, body["payments"], 2)

	res, body = env.do(t, http.MethodPost, "/admin/payments/"+first+"/confirm", "", true)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 501, body["user_id"])
	require.Len(t, env.notifier.confirmed, 1)
	assert.Equal(t, first, env.notifier.confirmed[0].Payment.ID)

	res, _ = env.do(t, http.MethodPost, "/admin/payments/"+first+"/confirm", "", true)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Len(t, env.notifier.confirmed, 1)

	res, _ = env.do(t, http.MethodPost, "/admin/payments/"+second+"/reject", "", true)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Len(t, env.notifier.rejected, 1)

	p, err := env.repo.GetPayment(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, repo.PaymentFailed, p.Status)

	res, _ = env.do(t, http.MethodGet, "/admin/payments/"+first+"/confirm", "", true)
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)

	res, body = env.do(t, http.MethodGet, "/admin/stats", "", true)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.EqualValues(t, 2, body["total_users"])
	assert.EqualValues(t, 50000, body["confirmed_amount"])

	res, body = env.do(t, http.MethodGet, "/admin/users?limit=1", "", true)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Len(t, body["users"], 1)

	res, _ = env.do(t, http.MethodGet, "/admin/users?limit=many", "", true)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestAdminPromos(t *testing.T) {
	env := newTestEnv(t, "")

	res, body := env.do(t, http.MethodPost, "/admin/promos", `{"code":"spring","discount_percent":15,"max_uses":10}`, true)
	require.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, "SPRING", body["code"])

	res, _ = env.do(t, http.MethodPost, "/admin/promos", `{"code":"SPRING","discount_percent":20}`, true)
	assert.Equal(t, http.StatusConflict, res.StatusCode)

	res, _ = env.do(t, http.MethodPost, "/admin/promos", `{"code":"BIG","discount_percent":101}`, true)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, _ = env.do(t, http.MethodPost, "/admin/promos", `{"code":"X","percent":5}`, true)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, body = env.do(t, http.MethodGet, "/admin/promos", "", true)
	require.Equal(t, http.StatusOK, res.StatusCode)
	promos, ok := body["promos"].([]any)
	require.True(t, ok)
	require.Len(t, promos, 1)
	first := promos[0].(map[string]any)
	assert.Equal(t, "SPRING", first["code"])
	assert.EqualValues(t, 15, first["discount_percent"])
	assert.EqualValues(t, 10, first["max_uses"])
}
