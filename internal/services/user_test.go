package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/rejap-backend/internal/data/repos/testutil"
	"github.com/yungbote/rejap-backend/internal/platform/ctxutil"
	"github.com/yungbote/rejap-backend/internal/platform/dbctx"
)

func TestMeForBrandNewUser(t *testing.T) {
	h := newHarness(t, &fakeTutor{})
	testutil.SeedCurriculum(t, h.db, 2, 2, 1)
	ctx := context.Background()

	u, err := h.users.SyncUser(ctx, Identity{Subject: "auth0|new", Email: "new@example.com", Name: "New"})
	require.NoError(t, err)

	me, err := h.users.Me(ctx, u.ID)
	require.NoError(t, err)
	require.Nil(t, me.CurrentLevel)
	require.Empty(t, me.LevelStatus)
	require.Equal(t, "new@example.com", me.Email)

	path, err := h.users.LearningPath(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, path, 2)
	require.True(t, path[0].Unlocked)
	require.True(t, path[0].Modules[0].Unlocked)
	require.False(t, path[0].Modules[1].Unlocked)
	require.False(t, path[1].Unlocked)
	require.False(t, path[1].Modules[0].Unlocked)
}

func TestSyncUserIsIdempotentAndRefreshesProfile(t *testing.T) {
	h := newHarness(t, &fakeTutor{})
	ctx := context.Background()

	a, err := h.users.SyncUser(ctx, Identity{Subject: "sub-1", Name: "Old"})
	require.NoError(t, err)
	b, err := h.users.SyncUser(ctx, Identity{Subject: "sub-1", Name: "New"})
	require.NoError(t, err)
	require.Equal(t, a.ID, b.ID)
	require.Equal(t, "New", b.Name)

	_, err = h.users.SyncUser(ctx, Identity{Subject: "  "})
	require.Error(t, err)
}

func TestMeAndProgressAfterActivity(t *testing.T) {
	h := newHarness(t, &fakeTutor{})
	c := testutil.SeedCurriculum(t, h.db, 2, 2, 5)
	u := testutil.SeedUser(t, h.db, "active")
	ctx := context.Background()
	m := c.Modules[0][0]

	_, err := h.submission.Submit(ctx, u.ID, SubmitInput{QuizID: c.Quizzes[m.ID].ID, ModuleID: m.ID, Answers: c.CorrectAnswers(m.ID)})
	require.NoError(t, err)

	me, err := h.users.Me(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, me.CurrentLevel)
	require.Equal(t, c.Levels[0].ID, me.CurrentLevel.ID)

	prog, err := h.users.Progress(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, prog.ModuleProgress, 2)
	require.Equal(t, m.ID, prog.ModuleProgress[0].ModuleID)
	require.NotNil(t, prog.ModuleProgress[0].Module)
	require.NotNil(t, prog.ModuleProgress[0].Module.Level)
	require.True(t, prog.ModuleProgress[1].Unlocked)

	path, err := h.users.LearningPath(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, path[0].Modules[0].Completed)
	require.InDelta(t, 1.0, path[0].Modules[0].Progress, 1e-9)
	require.True(t, path[0].Modules[1].Unlocked)
}

func TestCurrentLevelFallsBackToHighestUnlockedStatus(t *testing.T) {
	h := newHarness(t, &fakeTutor{})
	c := testutil.SeedCurriculum(t, h.db, 3, 1, 1)
	u := testutil.SeedUser(t, h.db, "statusonly")
	ctx := context.Background()

	_, err := h.levelStatusRepo.EnsureUnlocked(dbctx.Context{Ctx: ctx}, u.ID, []uuid.UUID{c.Levels[0].ID, c.Levels[1].ID})
	require.NoError(t, err)
	me, err := h.users.Me(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, me.CurrentLevel)
	require.Equal(t, c.Levels[1].ID, me.CurrentLevel.ID)
	require.Len(t, me.LevelStatus, 2)
	require.NotNil(t, me.LevelStatus[0].Level)
}

func TestAuthTokenRoundTripSyncsUser(t *testing.T) {
	h := newHarness(t, &fakeTutor{})
	ctx := context.Background()

	tok, err := h.auth.IssueToken(Identity{Subject: "auth0|abc", Email: "a@example.com", Name: "A"}, time.Minute)
	require.NoError(t, err)

	authed, err := h.auth.SetContextFromToken(ctx, tok)
	require.NoError(t, err)
	rd := ctxutil.GetRequestData(authed)
	require.NotNil(t, rd)
	require.Equal(t, "auth0|abc", rd.Subject)

	u, err := h.userRepo.GetByAuthSubject(dbctx.Context{Ctx: ctx}, "auth0|abc")
	require.NoError(t, err)
	require.Equal(t, u.ID, rd.UserID)
	require.Equal(t, "a@example.com", u.Email)
}

func TestAuthRejectsBadTokens(t *testing.T) {
	h := newHarness(t, &fakeTutor{})
	log := testutil.Logger(t)
	ctx := context.Background()

	other := NewAuthService(log, h.users, "another-secret", "rejap-test")
	forged, err := other.IssueToken(Identity{Subject: "x"}, time.Minute)
	require.NoError(t, err)
	_, err = h.auth.SetContextFromToken(ctx, forged)
	require.Error(t, err)

	wrongIssuer := NewAuthService(log, h.users, "test-secret", "someone-else")
	tok, err := wrongIssuer.IssueToken(Identity{Subject: "x"}, time.Minute)
	require.NoError(t, err)
	_, err = h.auth.SetContextFromToken(ctx, tok)
	require.Error(t, err)

	_, err = h.auth.SetContextFromToken(ctx, "not-a-jwt")
	require.Error(t, err)

	unconfigured := NewAuthService(log, h.users, "", "")
	_, err = unconfigured.SetContextFromToken(ctx, tok)
	require.ErrorIs(t, err, ErrAuthNotConfigured)
}
