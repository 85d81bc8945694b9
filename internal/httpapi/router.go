package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/agent-chat/internal/common"
	"github.com/suPer8Hu/agent-chat/internal/httpapi/handlers"
	"github.com/suPer8Hu/agent-chat/internal/httpapi/middleware"
)

func NewRouter(h *handlers.Handler) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(h.Log))
	r.Use(middleware.Recovery(h.Log))

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.GET("/ping", h.Ping)

	// setup + auth
	r.GET("/setup", h.Setup)
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)

	var revoker middleware.TokenRevoker
	if h.Revoker != nil {
		revoker = h.Revoker
	}
	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(h.Cfg.JWTSecret, h.UserRepo, revoker))
	authGroup.POST("/logout", h.Logout)
	authGroup.GET("/me", h.Me)

	// chat (JWT required)
	authGroup.GET("/agents", h.ListAgents)
	authGroup.POST("/chat/sessions", h.CreateChatSession)
	authGroup.GET("/chat/sessions", h.ListChatSessions)
	authGroup.GET("/chat/sessions/:session_id", h.GetChatSession)
	authGroup.PATCH("/chat/sessions/:session_id", h.RenameChatSession)
	authGroup.GET("/chat/sessions/:session_id/messages", h.ListChatMessages)
	authGroup.POST("/chat/sessions/:session_id/messages", h.SendChatMessage)

	// admin panel
	admin := authGroup.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	admin.GET("/users", h.ListUsers)
	admin.PUT("/users/:username", h.UpdateUser)
	admin.DELETE("/users/:username", h.DeleteUser)

	return r
}
