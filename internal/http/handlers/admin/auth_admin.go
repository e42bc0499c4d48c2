package admin

import (
	"errors"

	"github.com/puntoz/puntoz/internal/http/response"
	"github.com/puntoz/puntoz/internal/service"

	"github.com/gin-gonic/gin"
)

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AdminLogin 管理员登录
func (h *Handler) AdminLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	token, admin, err := h.AuthService.Login(req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAdminNotFound), errors.Is(err, service.ErrPasswordIncorrect):
			respondError(c, response.CodeUnauthorized, "username or password incorrect", nil)
		case errors.Is(err, service.ErrAdminDisabled):
			respondError(c, response.CodeForbidden, "admin disabled", nil)
		default:
			respondError(c, response.CodeInternal, "login failed", err)
		}
		return
	}

	response.Success(c, gin.H{
		"token": token,
		"admin": admin,
	})
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// ChangePassword 修改当前管理员密码
func (h *Handler) ChangePassword(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	if err := h.AuthService.ChangePassword(adminID, req.OldPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrAdminNotFound):
			respondError(c, response.CodeNotFound, "admin not found", nil)
		case errors.Is(err, service.ErrPasswordIncorrect):
			respondError(c, response.CodeBadRequest, "old password incorrect", nil)
		default:
			respondError(c, response.CodeInternal, "change password failed", err)
		}
		return
	}

	response.SuccessWithMsg(c, "password changed", nil)
}

// GetProfile 获取当前管理员信息
func (h *Handler) GetProfile(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	admin, err := h.AdminRepo.GetByID(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "admin fetch failed", err)
		return
	}
	if admin == nil {
		respondError(c, response.CodeNotFound, "admin not found", nil)
		return
	}
	roles, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		requestLog(c).Warnw("admin_roles_fetch_failed", "admin_id", adminID, "error", err)
		roles = nil
	}
	response.Success(c, gin.H{
		"admin": admin,
		"roles": roles,
	})
}
