package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/rejap-backend/internal/platform/dbctx"
	"github.com/yungbote/rejap-backend/internal/platform/logger"
	"github.com/yungbote/rejap-backend/internal/services"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	t.Setenv("LOG_MODE", "test")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "app.db"))
	t.Setenv("LLM_PROVIDER", "none")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("JWT_SECRET_KEY", "app-secret")
	t.Setenv("QUIZ_PREWARM_INTERVAL", "0")

	a, err := New(context.Background())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("FEEDBACK_CONCURRENCY", "")
	t.Setenv("CONTENT_CACHE_TTL", "")
	t.Setenv("PORT", "9090")
	cfg := LoadConfig(logger.Nop())
	if cfg.FeedbackConcurrency != services.DefaultFeedbackConcurrency {
		t.Fatalf("FeedbackConcurrency: want=%d got=%d", services.DefaultFeedbackConcurrency, cfg.FeedbackConcurrency)
	}
	if cfg.ContentCacheTTL != 10*time.Minute {
		t.Fatalf("ContentCacheTTL: want=10m got=%s", cfg.ContentCacheTTL)
	}
	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, 1, cfg.LLM.Retry.MaxAttempts)
}

func TestAppSeedsAndServes(t *testing.T) {
	a := newTestApp(t)
	require.NoError(t, a.Start())
	ctx := context.Background()

	res, err := a.Seed(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 9, res.Quizzes)

	pre, err := a.Prewarm(ctx, 0)
	require.NoError(t, err)
	if pre.Checked != 9 || pre.Populated != 0 || pre.Failed != 9 {
		t.Fatalf("prewarm without AI: want checked=9 populated=0 failed=9 got=%+v", pre)
	}

	rec := httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	tok, err := a.Services.Auth.IssueToken(services.Identity{Subject: "app-user"}, time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/levels", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Beginner")

	req = httptest.NewRequest(http.MethodGet, "/api/quiz?moduleId="+mustFirstModule(t, a).String(), nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "upstream_generation_error")
}

func mustFirstModule(t *testing.T, a *App) uuid.UUID {
	t.Helper()
	dbc := dbctx.Context{Ctx: context.Background()}
	levels, err := a.Repos.Level.List(dbc)
	require.NoError(t, err)
	require.NotEmpty(t, levels)
	mods, err := a.Repos.Module.ListByLevel(dbc, levels[0].ID)
	require.NoError(t, err)
	require.NotEmpty(t, mods)
	return mods[0].ID
}
