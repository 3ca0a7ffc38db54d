package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/clinic-concierge/internal/http/response"
	"github.com/yungbote/clinic-concierge/internal/platform/logger"
)

// Recovery converts panics into a structured JSON 500.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		if log != nil {
			log.Error("panic recovered", "path", c.Request.URL.Path, "panic", fmt.Sprint(recovered))
		}
		response.RespondStatusError(c, http.StatusInternalServerError, "internal error")
		c.Abort()
	})
}
