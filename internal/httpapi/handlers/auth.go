package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/agent-chat/internal/auth"
	"github.com/suPer8Hu/agent-chat/internal/common"
	"github.com/suPer8Hu/agent-chat/internal/httpapi/middleware"
)

// Setup tells the front end whether the first (admin) account still has
// to be created.
func (h *Handler) Setup(c *gin.Context) {
	n, err := h.UserRepo.CountUsers(c.Request.Context())
	if err != nil {
		h.failErr(c, "setup", err)
		return
	}
	common.OK(c, gin.H{"needs_setup": n == 0})
}

type registerReq struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.Password != req.ConfirmPassword {
		common.Fail(c, http.StatusBadRequest, 10002, "passwords do not match")
		return
	}

	u, msg, err := h.AuthSvc.Register(c.Request.Context(), req.Username, req.Password, req.Email)
	if err != nil {
		h.failErr(c, "register", err)
		return
	}

	h.Log.WithField("user", u.Username).WithField("role", u.Role).Info("user registered")
	common.OK(c, gin.H{
		"message":  msg,
		"username": u.Username,
		"role":     u.Role,
	})
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	u, err := h.AuthSvc.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.failErr(c, "login", err)
		return
	}

	token, err := auth.SignJWT(u.ID, h.Cfg.JWTSecret, h.Cfg.JWTTTL)
	if err != nil {
		h.failErr(c, "login", err)
		return
	}

	common.OK(c, gin.H{
		"token": token,
		"user":  u,
	})
}

func (h *Handler) Logout(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	if h.Revoker != nil && claims.ExpiresAt != nil {
		if err := h.Revoker.RevokeToken(c.Request.Context(), claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
			h.failErr(c, "logout", common.StoreFailure(err))
			return
		}
	}
	common.OK(c, gin.H{"logged_out": true})
}

func (h *Handler) Me(c *gin.Context) {
	u := middleware.CurrentUser(c)
	if u == nil {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	common.OK(c, gin.H{
		"user":         u,
		"capabilities": gin.H{"manage_users": u.Role.Capabilities().ManageUsers},
	})
}
