package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/rejap-backend/internal/data/repos"
	"github.com/yungbote/rejap-backend/internal/data/repos/testutil"
	httpH "github.com/yungbote/rejap-backend/internal/http/handlers"
	httpMW "github.com/yungbote/rejap-backend/internal/http/middleware"
	"github.com/yungbote/rejap-backend/internal/observability"
	"github.com/yungbote/rejap-backend/internal/platform/cache"
	"github.com/yungbote/rejap-backend/internal/platform/llm"
	"github.com/yungbote/rejap-backend/internal/services"
)

type testServer struct {
	engine *gin.Engine
	auth   services.AuthService
	cur    *testutil.Curriculum
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	cur := testutil.SeedCurriculum(t, gdb, 3, 2, 5)

	userRepo := repos.NewUserRepo(gdb, log)
	levelRepo := repos.NewLevelRepo(gdb, log)
	moduleRepo := repos.NewModuleRepo(gdb, log)
	quizRepo := repos.NewQuizRepo(gdb, log)
	questionRepo := repos.NewQuizQuestionRepo(gdb, log)
	moduleProg := repos.NewModuleProgressRepo(gdb, log)
	levelStatus := repos.NewLevelStatusRepo(gdb, log)

	tutor := services.NewTutorService(log, llm.NewMockProvider(), time.Second)
	content := services.NewContentService(gdb, log, levelRepo, moduleRepo, repos.NewContentItemRepo(gdb, log), cache.NewMemory(), 0)
	quiz := services.NewQuizService(gdb, log, content, tutor, quizRepo, questionRepo)
	prog := services.NewProgressionService(gdb, log, userRepo, levelRepo, moduleProg, levelStatus)
	submission := services.NewSubmissionService(gdb, log, services.SubmissionDeps{
		Content:     content,
		Tutor:       tutor,
		Progression: prog,
		Quizzes:     quizRepo,
		Questions:   questionRepo,
		Attempts:    repos.NewQuizAttemptRepo(gdb, log),
		Answers:     repos.NewUserAnswerRepo(gdb, log),
		Feedback:    repos.NewAIFeedbackRepo(gdb, log),
		ModuleProg:  moduleProg,
	}, 0)
	diagnostic := services.NewDiagnosticService(gdb, log, services.DiagnosticDeps{
		Users:       userRepo,
		Levels:      levelRepo,
		Modules:     moduleRepo,
		Quizzes:     quizRepo,
		Questions:   questionRepo,
		ModuleProg:  moduleProg,
		LevelStatus: levelStatus,
	})
	users := services.NewUserService(gdb, log, userRepo, levelRepo, moduleRepo, moduleProg, levelStatus)
	auth := services.NewAuthService(log, users, "router-secret", "")

	engine := NewRouter(RouterConfig{
		Log:            log,
		Metrics:        observability.New(),
		AuthMiddleware: httpMW.NewAuthMiddleware(log, auth),
		HealthHandler:  httpH.NewHealthHandler(gdb),
		ContentHandler: httpH.NewContentHandler(content),
		QuizHandler:    httpH.NewQuizHandler(quiz, submission, diagnostic),
		UserHandler:    httpH.NewUserHandler(users),
	})
	return &testServer{engine: engine, auth: auth, cur: cur}
}

func (s *testServer) do(t *testing.T, method, path, subject string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if subject != "" {
		tok, err := s.auth.IssueToken(services.Identity{Subject: subject, Email: subject + "@example.com"}, time.Minute)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestPublicEndpoints(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/healthcheck", "", nil).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/readyz", "", nil).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/metrics", "", nil).Code)
	require.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/levels", "", nil).Code)
}

func TestContentEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/levels", "reader", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	levels := decode[[]map[string]any](t, rec)
	require.Len(t, levels, 3)

	rec = s.do(t, http.MethodGet, "/api/modules", "reader", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/modules?levelId=nope", "reader", nil).Code)

	rec = s.do(t, http.MethodGet, "/api/modules?levelId="+s.cur.Levels[0].ID.String(), "reader", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mods := decode[[]map[string]any](t, rec)
	require.Len(t, mods, 2)
	require.NotNil(t, mods[0]["level"])

	require.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/content", "reader", nil).Code)
	rec = s.do(t, http.MethodGet, "/api/content?moduleId="+s.cur.Modules[0][0].ID.String(), "reader", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]map[string]any](t, rec), 2)
}

func TestQuizFetchHidesAnswerKey(t *testing.T) {
	s := newTestServer(t)
	m := s.cur.Modules[0][0]

	require.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/quiz", "q", nil).Code)
	require.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/quiz?moduleId="+uuid.NewString(), "q", nil).Code)

	rec := s.do(t, http.MethodGet, "/api/quiz?moduleId="+m.ID.String(), "q", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "correctAnswer")
	require.NotContains(t, rec.Body.String(), "correct_answer")
	view := decode[services.QuizView](t, rec)
	require.Len(t, view.Questions, 5)
}

func TestSubmitQuizFlow(t *testing.T) {
	s := newTestServer(t)
	m := s.cur.Modules[0][0]
	quizID := s.cur.Quizzes[m.ID].ID

	rec := s.do(t, http.MethodPost, "/api/quiz/submit", "sub", map[string]any{"moduleId": m.ID})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "validation_error", decode[map[string]map[string]string](t, rec)["error"]["code"])

	rec = s.do(t, http.MethodPost, "/api/quiz/submit", "sub", map[string]any{
		"quizId": uuid.New(), "moduleId": m.ID, "answers": []any{},
	})
	require.Equal(t, http.StatusNotFound, rec.Code)

	var answers []map[string]string
	for _, a := range s.cur.CorrectAnswers(m.ID) {
		answers = append(answers, map[string]string{"answer": a})
	}
	answers[4]["answer"] = "nope"
	rec = s.do(t, http.MethodPost, "/api/quiz/submit", "sub", map[string]any{
		"quizId": quizID, "moduleId": m.ID, "answers": answers,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[map[string]any](t, rec)
	require.InDelta(t, 0.8, res["score"], 1e-9)
	require.Equal(t, true, res["passed"])
	require.Equal(t, float64(4), res["correctCount"])
	require.Equal(t, float64(5), res["totalQuestions"])
	require.Equal(t, s.cur.Modules[0][1].ID.String(), res["nextModuleUnlocked"])
	require.Equal(t, false, res["levelPromoted"])
	require.Nil(t, res["newLevelUnlocked"])
	require.Equal(t, services.FallbackRecommendation, res["aiRecommendation"])
	results := res["results"].([]any)
	require.Len(t, results, 5)
	require.Nil(t, results[0].(map[string]any)["feedback"])
	require.Equal(t, services.FallbackExplanation, results[4].(map[string]any)["feedback"])
	next := res["nextModule"].(map[string]any)
	require.Equal(t, s.cur.Modules[0][1].Title, next["title"])

	rec = s.do(t, http.MethodGet, "/api/user/progress", "sub", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	prog := decode[map[string][]map[string]any](t, rec)
	require.Len(t, prog["moduleProgress"], 2)
}

func TestNewUserThenDiagnostic(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/user/me", "newbie", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[map[string]any](t, rec)
	require.Nil(t, me["currentLevel"])
	require.Empty(t, me["levelStatus"])

	rec = s.do(t, http.MethodGet, "/api/quiz/diagnostic", "newbie", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	qs := decode[[]services.DiagnosticQuestion](t, rec)
	require.Len(t, qs, 10)
	require.NotContains(t, rec.Body.String(), "correctAnswer")

	key := map[uuid.UUID]string{}
	for _, list := range s.cur.Questions {
		for _, q := range list {
			key[q.ID] = q.CorrectAnswer
		}
	}
	var answers []map[string]any
	for i, q := range qs {
		a := key[q.ID]
		if i == 0 {
			a = "Not sure"
		}
		answers = append(answers, map[string]any{"questionId": q.ID, "answer": a})
	}
	require.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/quiz/diagnostic", "newbie", map[string]any{}).Code)

	rec = s.do(t, http.MethodPost, "/api/quiz/diagnostic", "newbie", map[string]any{"answers": answers})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	placed := decode[map[string]any](t, rec)
	require.InDelta(t, 0.9, placed["score"], 1e-9)
	require.Equal(t, float64(10), placed["totalQuestions"])
	require.Equal(t, s.cur.Levels[2].Title, placed["assignedLevel"])
	require.Equal(t, s.cur.Levels[2].ID.String(), placed["levelId"])

	rec = s.do(t, http.MethodGet, "/api/user/me", "newbie", nil)
	me = decode[map[string]any](t, rec)
	require.Equal(t, s.cur.Levels[2].ID.String(), me["currentLevel"].(map[string]any)["id"])
	require.Len(t, me["levelStatus"], 3)

	rec = s.do(t, http.MethodGet, "/api/user/learning-path", "newbie", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	path := decode[map[string][]services.LevelPathView](t, rec)
	for _, l := range path["levels"] {
		require.True(t, l.Unlocked)
		for _, m := range l.Modules {
			require.True(t, m.Unlocked)
		}
	}
}
