package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/rejap-backend/internal/http/response"
	"github.com/yungbote/rejap-backend/internal/platform/ctxutil"
	"github.com/yungbote/rejap-backend/internal/platform/logger"
)

// learnerParams are query parameters worth carrying into the access log.
var learnerParams = []struct{ query, field string }{
	{"moduleId", "module_id"},
	{"levelId", "level_id"},
}

// RequestLogger writes one line per request. Unmatched routes log the raw
// path under "path" and an empty "route".
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if log == nil {
			return
		}

		status := c.Writer.Status()
		fields := []interface{}{
			"method", strings.ToUpper(c.Request.Method),
			"route", c.FullPath(),
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		for _, p := range learnerParams {
			if v := strings.TrimSpace(c.Query(p.query)); v != "" {
				fields = append(fields, p.field, v)
			}
		}
		if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
			if td.TraceID != "" {
				fields = append(fields, "trace_id", td.TraceID)
			}
			if td.RequestID != "" {
				fields = append(fields, "request_id", td.RequestID)
			}
		}
		if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil && rd.UserID != uuid.Nil {
			fields = append(fields, "user_id", rd.UserID.String())
		}
		if code := c.GetString(response.ErrorCodeKey); code != "" {
			fields = append(fields, "error_code", code)
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			fields = append(fields, "error", errs.String())
		}

		switch {
		case status >= 500:
			log.Error("api request", fields...)
		case status >= 400:
			log.Warn("api request", fields...)
		default:
			log.Info("api request", fields...)
		}
	}
}
