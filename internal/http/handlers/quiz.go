package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/rejap-backend/internal/http/response"
	"github.com/yungbote/rejap-backend/internal/platform/ctxutil"
	"github.com/yungbote/rejap-backend/internal/services"
)

type QuizHandler struct {
	quiz       services.QuizService
	submission services.SubmissionService
	diagnostic services.DiagnosticService
}

func NewQuizHandler(quiz services.QuizService, submission services.SubmissionService, diagnostic services.DiagnosticService) *QuizHandler {
	return &QuizHandler{quiz: quiz, submission: submission, diagnostic: diagnostic}
}

type submitAnswer struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

type submitQuizRequest struct {
	QuizID   uuid.UUID      `json:"quizId" binding:"required"`
	ModuleID uuid.UUID      `json:"moduleId" binding:"required"`
	Answers  []submitAnswer `json:"answers" binding:"required"`
}

type diagnosticAnswer struct {
	QuestionID uuid.UUID `json:"questionId" binding:"required"`
	Answer     string    `json:"answer"`
}

type submitDiagnosticRequest struct {
	Answers []diagnosticAnswer `json:"answers" binding:"required,dive"`
}

// GET /api/quiz?moduleId=X
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	moduleID, err := queryUUID(c, "moduleId")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	quiz, err := h.quiz.GetQuiz(c.Request.Context(), moduleID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, quiz)
}

// POST /api/quiz/submit
// body: { "quizId": "...", "moduleId": "...", "answers": [{ "answer": "..." }] }
// Answers are judged in the order the questions were served.
func (h *QuizHandler) SubmitQuiz(c *gin.Context) {
	var req submitQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, bindError(err))
		return
	}
	answers := make([]string, len(req.Answers))
	for i, a := range req.Answers {
		answers[i] = a.Answer
	}
	res, err := h.submission.Submit(c.Request.Context(), ctxutil.UserID(c.Request.Context()), services.SubmitInput{
		QuizID:   req.QuizID,
		ModuleID: req.ModuleID,
		Answers:  answers,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, res)
}

// GET /api/quiz/diagnostic
func (h *QuizHandler) GetDiagnostic(c *gin.Context) {
	qs, err := h.diagnostic.Questions(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, qs)
}

// POST /api/quiz/diagnostic
func (h *QuizHandler) SubmitDiagnostic(c *gin.Context) {
	var req submitDiagnosticRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, bindError(err))
		return
	}
	answers := make([]services.DiagnosticAnswer, len(req.Answers))
	for i, a := range req.Answers {
		answers[i] = services.DiagnosticAnswer{QuestionID: a.QuestionID, Answer: a.Answer}
	}
	res, err := h.diagnostic.Submit(c.Request.Context(), ctxutil.UserID(c.Request.Context()), answers)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, res)
}
