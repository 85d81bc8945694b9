package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/agent-chat/internal/common"
	"github.com/suPer8Hu/agent-chat/internal/httpapi/middleware"
	"github.com/suPer8Hu/agent-chat/internal/models"
	"github.com/suPer8Hu/agent-chat/internal/users"
)

func (h *Handler) ListUsers(c *gin.Context) {
	list, err := h.UsersSvc.ListUsers(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		h.failErr(c, "list users", err)
		return
	}
	common.OK(c, gin.H{"users": list})
}

type updateUserReq struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Role            string `json:"role" binding:"required"`
	IsActive        *bool  `json:"is_active" binding:"required"`
}

func (h *Handler) UpdateUser(c *gin.Context) {
	var req updateUserReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	actor := middleware.CurrentUser(c)
	u, err := h.UsersSvc.UpdateUser(c.Request.Context(), actor, c.Param("username"), users.Update{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Role:            models.Role(req.Role),
		IsActive:        *req.IsActive,
	})
	if err != nil {
		h.failErr(c, "update user", err)
		return
	}

	h.Log.WithField("actor", actor.Username).WithField("user", u.Username).Info("user updated")
	common.OK(c, gin.H{"user": u})
}

func (h *Handler) DeleteUser(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	target := c.Param("username")
	if err := h.UsersSvc.DeleteUser(c.Request.Context(), actor, target); err != nil {
		h.failErr(c, "delete user", err)
		return
	}

	h.Log.WithField("actor", actor.Username).WithField("user", target).Info("user deleted")
	common.OK(c, gin.H{"deleted": target})
}
