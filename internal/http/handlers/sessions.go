package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/clinic-concierge/internal/data/repos/conversation"
	"github.com/yungbote/clinic-concierge/internal/http/response"
	"github.com/yungbote/clinic-concierge/internal/platform/dbctx"
	pkgerrors "github.com/yungbote/clinic-concierge/internal/pkg/errors"
)

type SessionHandler struct {
	sessions conversation.SessionRepo
}

func NewSessionHandler(sessions conversation.SessionRepo) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// GET /api/sessions?limit=&offset=
func (h *SessionHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	limit, offset = conversation.ClampPage(limit, offset)

	rows, total, err := h.sessions.List(dbctx.Context{Ctx: c.Request.Context()}, limit, offset)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "list_sessions_failed", err)
		return
	}
	response.RespondOK(c, gin.H{
		"sessions": rows,
		"total":    total,
		"count":    len(rows),
		"limit":    limit,
		"offset":   offset,
	})
}

// GET /api/sessions/:key
func (h *SessionHandler) Get(c *gin.Context) {
	key := c.Param("key")
	row, err := h.sessions.GetByKey(dbctx.Context{Ctx: c.Request.Context()}, key)
	if errors.Is(err, pkgerrors.ErrNotFound) {
		response.RespondError(c, http.StatusNotFound, "session_not_found", err)
		return
	}
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "get_session_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"session": row})
}
