package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/rejap-backend/internal/http/response"
	"github.com/yungbote/rejap-backend/internal/services"
)

type ContentHandler struct {
	content services.ContentService
}

func NewContentHandler(content services.ContentService) *ContentHandler {
	return &ContentHandler{content: content}
}

// GET /api/levels
func (h *ContentHandler) ListLevels(c *gin.Context) {
	levels, err := h.content.ListLevels(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, levels)
}

// GET /api/modules?levelId=X
func (h *ContentHandler) ListModules(c *gin.Context) {
	levelID, err := queryUUID(c, "levelId")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	mods, err := h.content.ListModules(c.Request.Context(), levelID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, mods)
}

// GET /api/content?moduleId=X
func (h *ContentHandler) ListContent(c *gin.Context) {
	moduleID, err := queryUUID(c, "moduleId")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	items, err := h.content.ListContent(c.Request.Context(), moduleID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, items)
}
