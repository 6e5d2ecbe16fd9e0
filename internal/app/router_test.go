package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/mini-erp/telecrm/internal/activities"
	"github.com/mini-erp/telecrm/internal/rbac"
	"github.com/mini-erp/telecrm/internal/shared"
	_ "github.com/mini-erp/telecrm/testing"
)

type emptyTimeline struct{}

func (emptyTimeline) List(context.Context, shared.ListParams, activities.Filters) ([]activities.Activity, int, error) {
	return nil, 0, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := rbac.Middleware{Logger: logger}
	return NewRouter(RouterParams{
		Logger:            logger,
		Config:            &Config{AppEnv: "test", RateLimitPerMinute: 1000},
		SessionManager:    shared.NewSessionManager(client, "telecrm_session", time.Hour, false),
		ActivitiesHandler: activities.NewHandler(logger, activities.NewService(emptyTimeline{}), m),
	})
}

func TestRouterHealthAndProblems(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/activities", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "json")
}

func TestConfigLocation(t *testing.T) {
	cfg := &Config{Timezone: "Asia/Bangkok"}
	_, offset := time.Date(2025, 3, 10, 0, 0, 0, 0, cfg.Location()).Zone()
	require.Equal(t, 7*3600, offset)

	require.Equal(t, time.Local, (&Config{}).Location())
}

func TestLoadConfigRejectsBadTimezone(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s")
	t.Setenv("APP_TIMEZONE", "Mars/Olympus")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("APP_TIMEZONE", "UTC")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 90, cfg.OwnershipDays)
}
