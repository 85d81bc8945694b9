package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/agent-chat/internal/chat"
	"github.com/suPer8Hu/agent-chat/internal/common"
	"github.com/suPer8Hu/agent-chat/internal/httpapi/middleware"
)

type sessionView struct {
	DBID              string    `json:"db_id"`
	ExternalSessionID string    `json:"external_session_id"`
	AgentName         string    `json:"agent_name"`
	Summary           string    `json:"summary"`
	CreatedAt         time.Time `json:"created_at"`
}

func viewSession(s *chat.Session) sessionView {
	return sessionView{
		DBID:              s.ID,
		ExternalSessionID: s.ExternalSessionID,
		AgentName:         s.AgentName,
		Summary:           s.DisplaySummary(),
		CreatedAt:         s.CreatedAt,
	}
}

func (h *Handler) ListAgents(c *gin.Context) {
	names, err := h.ChatSvc.ListAgents(c.Request.Context())
	if err != nil {
		h.failErr(c, "list agents", err)
		return
	}
	common.OK(c, gin.H{"agents": names})
}

type createSessionReq struct {
	AgentName string `json:"agent_name" binding:"required"`
	Summary   string `json:"summary"`
}

func (h *Handler) CreateChatSession(c *gin.Context) {
	var req createSessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "agent_name required")
		return
	}

	conv, err := h.ChatSvc.StartSession(c.Request.Context(), middleware.CurrentUser(c), req.AgentName, req.Summary)
	if err != nil {
		h.failErr(c, "create session", err)
		return
	}
	common.OK(c, gin.H{"session": viewSession(conv.Session)})
}

func (h *Handler) ListChatSessions(c *gin.Context) {
	list, err := h.ChatSvc.ListSessions(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		h.failErr(c, "list sessions", err)
		return
	}
	out := make([]sessionView, 0, len(list))
	for i := range list {
		out = append(out, viewSession(&list[i]))
	}
	common.OK(c, gin.H{"sessions": out})
}

// GetChatSession selects a session and returns it with its history.
func (h *Handler) GetChatSession(c *gin.Context) {
	conv, err := h.ChatSvc.OpenSession(c.Request.Context(), middleware.CurrentUser(c), c.Param("session_id"))
	if err != nil {
		h.failErr(c, "open session", err)
		return
	}
	common.OK(c, gin.H{
		"session":  viewSession(conv.Session),
		"messages": conv.Messages,
	})
}

type renameSessionReq struct {
	Summary string `json:"summary"`
}

func (h *Handler) RenameChatSession(c *gin.Context) {
	var req renameSessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	sess, err := h.ChatSvc.RenameSession(c.Request.Context(), middleware.CurrentUser(c), c.Param("session_id"), req.Summary)
	if err != nil {
		h.failErr(c, "rename session", err)
		return
	}
	common.OK(c, gin.H{"session": viewSession(sess)})
}

func (h *Handler) ListChatMessages(c *gin.Context) {
	conv, err := h.ChatSvc.OpenSession(c.Request.Context(), middleware.CurrentUser(c), c.Param("session_id"))
	if err != nil {
		h.failErr(c, "list messages", err)
		return
	}
	common.OK(c, gin.H{"messages": conv.Messages})
}

type sendMessageReq struct {
	Message string `json:"message" binding:"required"`
}

func (h *Handler) SendChatMessage(c *gin.Context) {
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	ctx := c.Request.Context()
	conv, err := h.ChatSvc.OpenSession(ctx, middleware.CurrentUser(c), c.Param("session_id"))
	if err != nil {
		h.failErr(c, "send message", err)
		return
	}

	replies, err := h.ChatSvc.SendMessage(ctx, conv, req.Message)
	if err != nil {
		if common.KindOf(err) == common.KindGatewayFailure {
			// the user's message is already stored; only the reply is missing
			h.Log.WithField("request_id", c.GetString(middleware.RequestIDKey)).
				WithField("session", conv.Session.ID).
				WithError(err).Warn("agent gateway failed")
		}
		h.failErr(c, "send message", err)
		return
	}

	common.OK(c, gin.H{
		"session_id": conv.Session.ID,
		"replies":    replies,
	})
}
