package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/rejap-backend/internal/http/response"
	"github.com/yungbote/rejap-backend/internal/platform/ctxutil"
	"github.com/yungbote/rejap-backend/internal/services"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GET /api/user/me
func (uh *UserHandler) GetMe(c *gin.Context) {
	me, err := uh.userService.Me(c.Request.Context(), ctxutil.UserID(c.Request.Context()))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, me)
}

// GET /api/user/progress
func (uh *UserHandler) GetProgress(c *gin.Context) {
	prog, err := uh.userService.Progress(c.Request.Context(), ctxutil.UserID(c.Request.Context()))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, prog)
}

// GET /api/user/learning-path
func (uh *UserHandler) GetLearningPath(c *gin.Context) {
	path, err := uh.userService.LearningPath(c.Request.Context(), ctxutil.UserID(c.Request.Context()))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"levels": path})
}
