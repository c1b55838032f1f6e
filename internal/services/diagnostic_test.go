package services

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/rejap-backend/internal/data/repos/testutil"
	"github.com/yungbote/rejap-backend/internal/learning/progression"
	"github.com/yungbote/rejap-backend/internal/platform/apierr"
	"github.com/yungbote/rejap-backend/internal/platform/dbctx"
)

func answerKey(c *testutil.Curriculum) map[uuid.UUID]string {
	out := map[uuid.UUID]string{}
	for _, qs := range c.Questions {
		for _, q := range qs {
			out[q.ID] = q.CorrectAnswer
		}
	}
	return out
}

func TestDiagnosticQuestionsSampleAcrossLevels(t *testing.T) {
	h := newHarness(t, &fakeTutor{})
	c := testutil.SeedCurriculum(t, h.db, 3, 2, 5)
	h.diagnostic = NewDiagnosticService(h.db, testutil.Logger(t), DiagnosticDeps{
		Users:       h.userRepo,
		Levels:      h.levelRepo,
		Modules:     h.moduleRepo,
		Quizzes:     h.quizRepo,
		Questions:   h.questionRepo,
		ModuleProg:  h.moduleProgRepo,
		LevelStatus: h.levelStatusRepo,
		Rand:        rand.New(rand.NewPCG(7, 11)),
	})

	qs, err := h.diagnostic.Questions(context.Background())
	require.NoError(t, err)
	require.Len(t, qs, progression.DiagnosticSize)

	levelOf := map[uuid.UUID]int{}
	for li, mods := range c.Modules {
		for _, m := range mods {
			for _, q := range c.Questions[m.ID] {
				levelOf[q.ID] = li
			}
		}
	}
	perLevel := make([]int, 3)
	seen := map[uuid.UUID]bool{}
	for _, q := range qs {
		require.False(t, seen[q.ID], "duplicate question %s", q.ID)
		seen[q.ID] = true
		perLevel[levelOf[q.ID]]++
		require.Equal(t, progression.NotSureOption, q.Options[len(q.Options)-1])
		require.Len(t, q.Options, 5)
	}
	require.Equal(t, []int{3, 4, 3}, perLevel)
}

func TestDiagnosticSubmitPlacesHighScorerAtTop(t *testing.T) {
	h := newHarness(t, &fakeTutor{})
	c := testutil.SeedCurriculum(t, h.db, 3, 2, 5)
	u := testutil.SeedUser(t, h.db, "fluent")
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}

	qs, err := h.diagnostic.Questions(ctx)
	require.NoError(t, err)
	key := answerKey(c)
	answers := make([]DiagnosticAnswer, len(qs))
	for i, q := range qs {
		answers[i] = DiagnosticAnswer{QuestionID: q.ID, Answer: key[q.ID]}
	}
	answers[0].Answer = progression.NotSureOption

	res, err := h.diagnostic.Submit(ctx, u.ID, answers)
	require.NoError(t, err)
	require.Equal(t, 9, res.CorrectCount)
	require.InDelta(t, 0.9, res.Score, 1e-9)
	require.Equal(t, progression.DiagnosticSize, res.TotalQuestions)
	require.Equal(t, c.Levels[2].ID, res.LevelID)
	require.Equal(t, c.Levels[2].Title, res.AssignedLevel)

	for _, l := range c.Levels {
		st, err := h.levelStatusRepo.Get(dbc, u.ID, l.ID)
		require.NoError(t, err)
		require.NotNil(t, st)
		require.True(t, st.Unlocked)
	}
	for _, mods := range c.Modules {
		for _, m := range mods {
			mp, err := h.moduleProgRepo.Get(dbc, u.ID, m.ID)
			require.NoError(t, err)
			require.NotNil(t, mp)
			require.True(t, mp.Unlocked)
		}
	}
	got, err := h.userRepo.GetByID(dbc, u.ID)
	require.NoError(t, err)
	require.Equal(t, c.Levels[2].ID, *got.CurrentLevelID)

	// A poor rerun places lower but revokes nothing.
	res, err = h.diagnostic.Submit(ctx, u.ID, []DiagnosticAnswer{})
	require.NoError(t, err)
	require.Equal(t, c.Levels[0].ID, res.LevelID)
	got, err = h.userRepo.GetByID(dbc, u.ID)
	require.NoError(t, err)
	require.Equal(t, c.Levels[2].ID, *got.CurrentLevelID)
	st, err := h.levelStatusRepo.Get(dbc, u.ID, c.Levels[2].ID)
	require.NoError(t, err)
	require.True(t, st.Unlocked)
}

func TestDiagnosticSubmitMiddlePlacementLeavesUpperLevelLocked(t *testing.T) {
	h := newHarness(t, &fakeTutor{})
	c := testutil.SeedCurriculum(t, h.db, 3, 1, 5)
	u := testutil.SeedUser(t, h.db, "mid")
	ctx := context.Background()
	key := answerKey(c)

	var answers []DiagnosticAnswer
	for _, q := range c.Questions[c.Modules[0][0].ID] {
		answers = append(answers, DiagnosticAnswer{QuestionID: q.ID, Answer: key[q.ID]})
	}
	// Duplicates count once.
	answers = append(answers, answers[0], answers[1])

	res, err := h.diagnostic.Submit(ctx, u.ID, answers)
	require.NoError(t, err)
	require.Equal(t, 5, res.CorrectCount)
	require.Equal(t, c.Levels[1].ID, res.LevelID)

	st, err := h.levelStatusRepo.Get(dbctx.Context{Ctx: ctx}, u.ID, c.Levels[2].ID)
	require.NoError(t, err)
	require.Nil(t, st)
}

func TestDiagnosticSubmitValidation(t *testing.T) {
	h := newHarness(t, &fakeTutor{})
	u := testutil.SeedUser(t, h.db, "v")
	if _, err := h.diagnostic.Submit(context.Background(), u.ID, nil); !apierr.HasCode(err, apierr.CodeValidation) {
		t.Fatalf("nil answers: want validation got=%v", err)
	}
	if _, err := h.diagnostic.Submit(context.Background(), u.ID, []DiagnosticAnswer{}); !apierr.HasCode(err, apierr.CodeInvariant) {
		t.Fatalf("no levels: want invariant got=%v", err)
	}
}
