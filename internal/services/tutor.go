package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/rejap-backend/internal/observability"
	"github.com/yungbote/rejap-backend/internal/platform/apierr"
	"github.com/yungbote/rejap-backend/internal/platform/llm"
	"github.com/yungbote/rejap-backend/internal/platform/logger"
)

const (
	QuizQuestionCount = 5
	QuizOptionCount   = 4

	FallbackExplanation    = "Keep practicing! You're making progress."
	FallbackStrength       = "You're making steady progress!"
	FallbackWeakArea       = "Continue practicing the areas you found challenging."
	FallbackRecommendation = "Keep up the great work! Continue practicing and you'll see improvement."
)

const vocabularyConstraint = "Use ONLY the provided vocabulary, kanji, and grammar. Do NOT introduce new Japanese words or cultural concepts."

type GeneratedQuestion struct {
	Question      string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
}

type QuizGenerationInput struct {
	LevelTitle     string
	ModuleTitle    string
	AllowedContent []string
}

type ExplainInput struct {
	LevelTitle     string
	Question       string
	UserAnswer     string
	CorrectAnswer  string
	AllowedContent []string
}

type ModuleScore struct {
	Module string
	Score  float64
}

type AnalyzeInput struct {
	LevelTitle       string
	Scores           []ModuleScore
	IncorrectSummary string
}

type RecommendInput struct {
	LevelTitle string
	Summary    string
	WeakAreas  []string
}

// Explanation, Analysis and Recommendation always carry usable text.
// Fallback marks the fixed text substituted after a failed call.
type Explanation struct {
	Text     string
	Fallback bool
}

type Analysis struct {
	Strengths []string
	WeakAreas []string
	Fallback  bool
}

type Recommendation struct {
	Text     string
	Fallback bool
}

// TutorService is the AI text capability. Only GenerateQuiz can fail; the
// other operations never return an error.
type TutorService interface {
	GenerateQuiz(ctx context.Context, in QuizGenerationInput) ([]GeneratedQuestion, error)
	ExplainAnswer(ctx context.Context, in ExplainInput) Explanation
	AnalyzePerformance(ctx context.Context, in AnalyzeInput) Analysis
	RecommendNextSteps(ctx context.Context, in RecommendInput) Recommendation
}

type tutorService struct {
	log      *logger.Logger
	provider llm.Provider
	timeout  time.Duration
}

func NewTutorService(baseLog *logger.Logger, provider llm.Provider, timeout time.Duration) TutorService {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &tutorService{
		log:      baseLog.With("service", "TutorService"),
		provider: provider,
		timeout:  timeout,
	}
}

var quizSchema = &llm.Schema{
	Name:        "rejap-quiz",
	Description: "Multiple-choice Japanese vocabulary quiz.",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question_text":  map[string]any{"type": "string"},
						"options":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						"correct_answer": map[string]any{"type": "string"},
					},
					"required":             []any{"question_text", "options", "correct_answer"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"questions"},
		"additionalProperties": false,
	},
}

var analysisSchema = &llm.Schema{
	Name:        "rejap-analysis",
	Description: "Strengths and weak areas of a learner.",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"strengths": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"weakAreas": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required":             []any{"strengths", "weakAreas"},
		"additionalProperties": false,
	},
}

func (t *tutorService) call(ctx context.Context, op string, req llm.Request) (*llm.Response, time.Duration, error) {
	ctx, cancel := context.WithTimeout(llm.WithOp(ctx, op), t.timeout)
	defer cancel()
	start := time.Now()
	resp, err := t.provider.Generate(ctx, req)
	return resp, time.Since(start), err
}

func (t *tutorService) GenerateQuiz(ctx context.Context, in QuizGenerationInput) ([]GeneratedQuestion, error) {
	req := llm.UserPrompt(vocabularyConstraint, quizPrompt(in))
	req.Schema = quizSchema
	req.MaxTokens = 2000
	req.Temperature = 0.7

	resp, dur, err := t.call(ctx, "generate_quiz", req)
	if err != nil {
		observability.Current().ObserveAICall("generate_quiz", "error", dur)
		t.log.Error("quiz generation failed", "module", in.ModuleTitle, "error", err)
		return nil, apierr.UpstreamGeneration(fmt.Errorf("generate quiz: %w", err))
	}
	var out struct {
		Questions []GeneratedQuestion `json:"questions"`
	}
	if err := llm.Decode(resp, quizSchema, &out); err != nil {
		observability.Current().ObserveAICall("generate_quiz", "error", dur)
		t.log.Error("quiz generation returned invalid content", "module", in.ModuleTitle, "error", err)
		return nil, apierr.UpstreamGeneration(err)
	}
	if err := ValidateGeneratedQuiz(out.Questions); err != nil {
		observability.Current().ObserveAICall("generate_quiz", "error", dur)
		t.log.Error("quiz generation returned malformed quiz", "module", in.ModuleTitle, "error", err)
		return nil, apierr.UpstreamGeneration(err)
	}
	observability.Current().ObserveAICall("generate_quiz", "ok", dur)
	return out.Questions, nil
}

var errMalformedQuiz = errors.New("malformed quiz")

// ValidateGeneratedQuiz enforces the persisted shape: exactly 5 questions
// of exactly 4 options with a non-empty correct answer among the options.
func ValidateGeneratedQuiz(qs []GeneratedQuestion) error {
	if len(qs) != QuizQuestionCount {
		return fmt.Errorf("%w: want %d questions, got %d", errMalformedQuiz, QuizQuestionCount, len(qs))
	}
	for i, q := range qs {
		if strings.TrimSpace(q.Question) == "" {
			return fmt.Errorf("%w: question %d has no text", errMalformedQuiz, i+1)
		}
		if len(q.Options) != QuizOptionCount {
			return fmt.Errorf("%w: question %d has %d options", errMalformedQuiz, i+1, len(q.Options))
		}
		if q.CorrectAnswer == "" {
			return fmt.Errorf("%w: question %d has no correct answer", errMalformedQuiz, i+1)
		}
		found := false
		for _, o := range q.Options {
			if o == q.CorrectAnswer {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: question %d correct answer is not an option", errMalformedQuiz, i+1)
		}
	}
	return nil
}

func (t *tutorService) ExplainAnswer(ctx context.Context, in ExplainInput) Explanation {
	req := llm.UserPrompt(vocabularyConstraint, explainPrompt(in))
	req.MaxTokens = 200
	req.Temperature = 0.7

	resp, dur, err := t.call(ctx, "explain", req)
	text := ""
	if err == nil {
		text = strings.TrimSpace(resp.Text())
	}
	if text == "" {
		t.fallback("explain", dur, err)
		return Explanation{Text: FallbackExplanation, Fallback: true}
	}
	observability.Current().ObserveAICall("explain", "ok", dur)
	return Explanation{Text: text}
}

func (t *tutorService) AnalyzePerformance(ctx context.Context, in AnalyzeInput) Analysis {
	req := llm.UserPrompt(vocabularyConstraint, analyzePrompt(in))
	req.Schema = analysisSchema
	req.MaxTokens = 500
	req.Temperature = 0.7

	resp, dur, err := t.call(ctx, "analyze", req)
	var out struct {
		Strengths []string `json:"strengths"`
		WeakAreas []string `json:"weakAreas"`
	}
	if err == nil {
		err = llm.Decode(resp, analysisSchema, &out)
	}
	if err != nil {
		t.fallback("analyze", dur, err)
		return Analysis{
			Strengths: []string{FallbackStrength},
			WeakAreas: []string{FallbackWeakArea},
			Fallback:  true,
		}
	}
	observability.Current().ObserveAICall("analyze", "ok", dur)
	return Analysis{Strengths: out.Strengths, WeakAreas: out.WeakAreas}
}

func (t *tutorService) RecommendNextSteps(ctx context.Context, in RecommendInput) Recommendation {
	req := llm.UserPrompt(vocabularyConstraint, recommendPrompt(in))
	req.MaxTokens = 300
	req.Temperature = 0.8

	resp, dur, err := t.call(ctx, "recommend", req)
	text := ""
	if err == nil {
		text = strings.TrimSpace(resp.Text())
	}
	if text == "" {
		t.fallback("recommend", dur, err)
		return Recommendation{Text: FallbackRecommendation, Fallback: true}
	}
	observability.Current().ObserveAICall("recommend", "ok", dur)
	return Recommendation{Text: text}
}

func (t *tutorService) fallback(op string, dur time.Duration, err error) {
	if err == nil {
		err = errors.New("empty response")
	}
	observability.Current().ObserveAICall(op, "fallback", dur)
	t.log.Warn("tutor call fell back", "op", op, "error", err)
}

func quizPrompt(in QuizGenerationInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a multiple-choice quiz for a Japanese learner.\n\nLevel: %s\nModule: %s\n\n", in.LevelTitle, in.ModuleTitle)
	b.WriteString("Allowed content:\n")
	b.WriteString(strings.Join(in.AllowedContent, "\n"))
	fmt.Fprintf(&b, "\n\nRules:\n- exactly %d questions\n- exactly %d options per question\n", QuizQuestionCount, QuizOptionCount)
	b.WriteString("- correct_answer must be copied verbatim from options\n")
	b.WriteString("- only use words, kanji and grammar from the allowed content\n")
	if strings.Contains(strings.ToLower(in.LevelTitle), "beginner") {
		b.WriteString("- ask in English about a Japanese word; options are Japanese (e.g. \"What is the Japanese word for 'dog'?\" with 犬, 猫, 鳥, 魚)\n")
	} else {
		b.WriteString("- questions and options may mix Japanese and English as the level requires\n")
	}
	b.WriteString("\nRespond with JSON: {\"questions\": [{\"question_text\": ..., \"options\": [...], \"correct_answer\": ...}]}")
	return b.String()
}

func explainPrompt(in ExplainInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A learner answered a quiz question incorrectly. In 2-3 encouraging sentences, written in English, explain why the correct answer is right.\n\n")
	fmt.Fprintf(&b, "Level: %s\nQuestion: %s\nLearner's answer: %s\nCorrect answer: %s\n\n", in.LevelTitle, in.Question, in.UserAnswer, in.CorrectAnswer)
	b.WriteString("Allowed content:\n")
	b.WriteString(strings.Join(in.AllowedContent, "\n"))
	b.WriteString("\n\nReply with the explanation text only.")
	return b.String()
}

func analyzePrompt(in AnalyzeInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Identify 2-3 strengths and 2-3 weak areas for a Japanese learner.\n\nLevel: %s\n\nModule scores:\n", in.LevelTitle)
	for _, s := range in.Scores {
		fmt.Fprintf(&b, "%s: %.0f%%\n", s.Module, s.Score*100)
	}
	b.WriteString("\nFeedback on incorrect answers:\n")
	b.WriteString(in.IncorrectSummary)
	b.WriteString("\n\nRespond with JSON: {\"strengths\": [...], \"weakAreas\": [...]}")
	return b.String()
}

func recommendPrompt(in RecommendInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write 3-5 motivating sentences recommending what a Japanese learner should do next.\n\nLevel: %s\n\nSummary: %s\n", in.LevelTitle, in.Summary)
	fmt.Fprintf(&b, "Focus areas: %s\n\nDo not introduce new Japanese words. Reply with the recommendation text only.", strings.Join(in.WeakAreas, ", "))
	return b.String()
}
