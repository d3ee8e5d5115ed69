package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/isdelr/realty-be/internal/api/handlers"
	"github.com/isdelr/realty-be/internal/auth"
	"github.com/isdelr/realty-be/internal/config"
	"github.com/isdelr/realty-be/internal/database"
	"github.com/isdelr/realty-be/internal/metrics"
	"github.com/isdelr/realty-be/internal/services"
	"github.com/isdelr/realty-be/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type okPinger struct{}

func (okPinger) PingContext(ctx context.Context) error { return nil }

func newTestRouter(t *testing.T, perMinute, burst int) (http.Handler, *metrics.Metrics) {
	t.Helper()
	cfg := config.Default()
	cfg.Auth.Secret = "s3cret"
	cfg.Auth.LoginRatePerMinute = perMinute
	cfg.Auth.LoginRateBurst = burst
	m := metrics.New()
	return NewRouter(Deps{
		Config:  cfg,
		Codec:   auth.NewCodec(cfg.Auth.Secret),
		DB:      okPinger{},
		Metrics: m,
	}), m
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	r.RemoteAddr = "203.0.113.7:5555"
	h.ServeHTTP(rec, r)
	return rec
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body["error"]
}

func TestRouter_NotFound(t *testing.T) {
	router, _ := newTestRouter(t, 60, 10)

	for _, target := range []string{"/nowhere", "/property/nowhere", "/info/nowhere"} {
		rec := serve(router, http.MethodGet, target, "")
		require.Equal(t, http.StatusNotFound, rec.Code, target)
		assert.Equal(t, handlers.MsgNotFoundRoute, errorOf(t, rec))
	}
}

func TestRouter_GatedRoutesNeedToken(t *testing.T) {
	router, _ := newTestRouter(t, 60, 10)

	gated := []struct{ method, target string }{
		{http.MethodPost, "/logout"},
		{http.MethodGet, "/me"},
		{http.MethodPost, "/property/addProperty"},
		{http.MethodPut, "/property/editPropertyInformation/1"},
		{http.MethodDelete, "/property/delete/1"},
		{http.MethodGet, "/info/getUserInfo"},
		{http.MethodPut, "/info/updateUserInfo"},
		{http.MethodGet, "/info/getProfilePicture"},
		{http.MethodPut, "/info/updateProfilePicture"},
		{http.MethodGet, "/info/getRecentActivity"},
	}
	for _, g := range gated {
		rec := serve(router, g.method, g.target, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code, g.target)
		assert.Equal(t, auth.MsgUnauthorized, errorOf(t, rec), g.target)
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	router, _ := newTestRouter(t, 60, 10)

	rec := serve(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `realty_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestRouter_LoginIsRateLimited(t *testing.T) {
	router, _ := newTestRouter(t, 1, 2)

	for i := 0; i < 2; i++ {
		rec := serve(router, http.MethodPost, "/login", `{}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, validation.MsgLoginMissing, errorOf(t, rec))
	}

	rec := serve(router, http.MethodPost, "/login", `{}`)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, handlers.MsgTooManyRequest, errorOf(t, rec))

	// Other endpoints keep their own budget.
	rec = serve(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_SignupThenLoginWithPaddedPassword(t *testing.T) {
	db, err := database.New("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))

	cfg := config.Default()
	cfg.Auth.Secret = "s3cret"
	router := NewRouter(Deps{
		Config:  cfg,
		Codec:   auth.NewCodec(cfg.Auth.Secret),
		Users:   services.NewUserService(db),
		Info:    services.NewInfoService(db),
		Events:  services.NewEventService(db),
		DB:      db,
		Metrics: metrics.New(),
	})

	rec := serve(router, http.MethodPost, "/signup", `{"email":"hank@example.com","username":"hank","password":" hunter2 "}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(router, http.MethodPost, "/login", `{"username":"hank","password":" hunter2 "}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(router, http.MethodPost, "/login", `{"username":"hank","password":"hunter2"}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
