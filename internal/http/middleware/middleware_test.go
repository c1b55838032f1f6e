package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yungbote/rejap-backend/internal/http/response"
	"github.com/yungbote/rejap-backend/internal/observability"
	"github.com/yungbote/rejap-backend/internal/platform/apierr"
	"github.com/yungbote/rejap-backend/internal/platform/ctxutil"
	"github.com/yungbote/rejap-backend/internal/platform/logger"
	"github.com/yungbote/rejap-backend/internal/services"
)

type stubAuth struct {
	userID uuid.UUID
	err    error
}

func (s stubAuth) SetContextFromToken(ctx context.Context, tok string) (context.Context, error) {
	if s.err != nil {
		return ctx, s.err
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{TokenString: tok, UserID: s.userID}), nil
}

func (s stubAuth) IssueToken(services.Identity, time.Duration) (string, error) { return "", nil }

func authRouter(auth services.AuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewAuthMiddleware(logger.Nop(), auth).RequireAuth())
	r.GET("/who", func(c *gin.Context) {
		c.String(http.StatusOK, ctxutil.UserID(c.Request.Context()).String())
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	id := uuid.New()
	cases := []struct {
		name   string
		auth   stubAuth
		header string
		query  string
		status int
	}{
		{"missing token", stubAuth{userID: id}, "", "", http.StatusUnauthorized},
		{"bearer header", stubAuth{userID: id}, "Bearer abc", "", http.StatusOK},
		{"lowercase bearer", stubAuth{userID: id}, "bearer abc", "", http.StatusOK},
		{"query token", stubAuth{userID: id}, "", "abc", http.StatusOK},
		{"rejected token", stubAuth{err: errors.New("expired")}, "Bearer abc", "", http.StatusUnauthorized},
		{"no user", stubAuth{}, "Bearer abc", "", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			target := "/who"
			if tc.query != "" {
				target += "?token=" + tc.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			authRouter(tc.auth).ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status: want=%d got=%d body=%s", tc.status, rec.Code, rec.Body.String())
			}
			if tc.status == http.StatusOK && rec.Body.String() != id.String() {
				t.Fatalf("user: want=%s got=%s", id, rec.Body.String())
			}
		})
	}
}

func TestCORSAllowsConfiguredOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://learn.example.com, http://localhost:5173")
	gin.SetMode(gin.TestMode)

	for _, origin := range []string{"https://learn.example.com", "http://localhost:5173"} {
		r := gin.New()
		r.Use(CORS())
		r.OPTIONS("/api/quiz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

		req := httptest.NewRequest(http.MethodOptions, "/api/quiz", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != origin {
			t.Fatalf("allow-origin: want=%q got=%q", origin, got)
		}
	}
}

func TestTraceContextEchoesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/x", func(c *gin.Context) {
		td := ctxutil.GetTraceData(c.Request.Context())
		c.String(http.StatusOK, td.RequestID)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Body.String() != "req-42" || rec.Header().Get("X-Request-Id") != "req-42" {
		t.Fatalf("request id: want=req-42 got body=%q header=%q", rec.Body.String(), rec.Header().Get("X-Request-Id"))
	}
	if rec.Header().Get("X-Trace-Id") == "" {
		t.Fatalf("trace id header missing")
	}
}

func TestMetricsMiddlewareObservesRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := observability.New()
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/api/levels", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/levels", nil))

	var sb strings.Builder
	if err := m.WritePrometheus(&sb); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	if !strings.Contains(sb.String(), `route="/api/levels"`) {
		t.Fatalf("route label missing from:\n%s", sb.String())
	}
}

func TestRequestLoggerRecordsRouteAndErrorCode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	log := &logger.Logger{SugaredLogger: zap.New(core).Sugar()}

	moduleID := uuid.New()
	r := gin.New()
	r.Use(RequestLogger(log))
	r.GET("/api/quiz", func(c *gin.Context) {
		response.RespondAPIError(c, apierr.NotFound("quiz not found for module %s", moduleID))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/quiz?moduleId="+moduleID.String(), nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: want=%d got=%d", http.StatusNotFound, rec.Code)
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries: want=1 got=%d", len(entries))
	}
	e := entries[0]
	if e.Level != zapcore.WarnLevel {
		t.Fatalf("level: want=warn got=%s", e.Level)
	}
	fields := e.ContextMap()
	want := map[string]any{
		"route":      "/api/quiz",
		"path":       "/api/quiz",
		"module_id":  moduleID.String(),
		"error_code": apierr.CodeNotFound,
	}
	for k, v := range want {
		if fields[k] != v {
			t.Fatalf("%s: want=%v got=%v", k, v, fields[k])
		}
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	e = logs.All()[1]
	if got := e.ContextMap()["route"]; got != "" {
		t.Fatalf("unmatched route: want empty got=%v", got)
	}
}
