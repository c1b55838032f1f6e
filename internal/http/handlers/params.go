package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/rejap-backend/internal/platform/apierr"
)

// queryUUID reads a required uuid query parameter.
func queryUUID(c *gin.Context, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return uuid.Nil, apierr.Validation("%s is required", name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apierr.Validation("%s must be a uuid", name)
	}
	return id, nil
}

func bindError(err error) error {
	return apierr.Validation("invalid request: %v", err)
}
