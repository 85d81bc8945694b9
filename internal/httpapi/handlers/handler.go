package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/suPer8Hu/agent-chat/internal/agent"
	"github.com/suPer8Hu/agent-chat/internal/auth"
	"github.com/suPer8Hu/agent-chat/internal/chat"
	"github.com/suPer8Hu/agent-chat/internal/common"
	"github.com/suPer8Hu/agent-chat/internal/config"
	"github.com/suPer8Hu/agent-chat/internal/httpapi/middleware"
	"github.com/suPer8Hu/agent-chat/internal/users"
	"gorm.io/gorm"
)

// TokenRevoker is the logout side of the revocation store.
type TokenRevoker interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

type Handler struct {
	Cfg      config.Config
	Log      *logrus.Logger
	UserRepo *users.Repo
	AuthSvc  *auth.Service
	UsersSvc *users.Service
	ChatSvc  *chat.Service
	// nil when no revocation store is reachable
	Revoker TokenRevoker
}

func NewHandler(db *gorm.DB, cfg config.Config, log *logrus.Logger, gateway agent.Gateway, revoker TokenRevoker) *Handler {
	userRepo := users.NewRepo(db)
	return &Handler{
		Cfg:      cfg,
		Log:      log,
		UserRepo: userRepo,
		AuthSvc:  auth.NewService(userRepo),
		UsersSvc: users.NewService(userRepo),
		ChatSvc:  chat.NewService(chat.NewRepo(db), gateway),
		Revoker:  revoker,
	}
}

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"pong": true})
}

// failErr answers with the status and message of err's kind. Internal
// failures are logged; their detail never reaches the client.
func (h *Handler) failErr(c *gin.Context, op string, err error) {
	status := common.HTTPStatus(err)
	kind := common.KindOf(err)
	if status >= 500 {
		h.Log.WithFields(logrus.Fields{
			"request_id": c.GetString(middleware.RequestIDKey),
			"op":         op,
			"kind":       kind.String(),
		}).WithError(err).Error("request failed")
	}
	common.Fail(c, status, status*100+int(kind), common.MessageOf(err))
}
