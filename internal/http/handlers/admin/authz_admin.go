package admin

import (
	"strconv"

	"github.com/puntoz/puntoz/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetRoles 获取角色列表
func (h *Handler) GetRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "role fetch failed", err)
		return
	}

	response.Success(c, roles)
}

// GetRolePolicies 获取角色策略
func (h *Handler) GetRolePolicies(c *gin.Context) {
	role := c.Param("role")
	policies, err := h.AuthzService.GetRolePolicies(role)
	if err != nil {
		respondError(c, response.CodeBadRequest, "role invalid", err)
		return
	}

	response.Success(c, policies)
}

// RolePolicyRequest 角色策略请求
type RolePolicyRequest struct {
	Object string `json:"object" binding:"required"`
	Action string `json:"action" binding:"required"`
}

// GrantRolePolicy 为角色授予策略
func (h *Handler) GrantRolePolicy(c *gin.Context) {
	role := c.Param("role")
	var req RolePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	if err := h.AuthzService.GrantRolePolicy(role, req.Object, req.Action); err != nil {
		respondError(c, response.CodeInternal, "grant policy failed", err)
		return
	}

	response.SuccessWithMsg(c, "policy granted", nil)
}

// RevokeRolePolicy 撤销角色策略
func (h *Handler) RevokeRolePolicy(c *gin.Context) {
	role := c.Param("role")
	var req RolePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	if err := h.AuthzService.RevokeRolePolicy(role, req.Object, req.Action); err != nil {
		respondError(c, response.CodeInternal, "revoke policy failed", err)
		return
	}

	response.SuccessWithMsg(c, "policy revoked", nil)
}

// SetAdminRolesRequest 设置管理员角色请求
type SetAdminRolesRequest struct {
	Roles []string `json:"roles"`
}

// SetAdminRoles 覆盖设置管理员角色
func (h *Handler) SetAdminRoles(c *gin.Context) {
	adminID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || adminID == 0 {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	var req SetAdminRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	if err := h.AuthzService.SetAdminRoles(uint(adminID), req.Roles); err != nil {
		respondError(c, response.CodeInternal, "set admin roles failed", err)
		return
	}

	response.SuccessWithMsg(c, "admin roles updated", nil)
}

// GetAdminRoles 查询管理员角色
func (h *Handler) GetAdminRoles(c *gin.Context) {
	adminID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || adminID == 0 {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	roles, err := h.AuthzService.GetAdminRoles(uint(adminID))
	if err != nil {
		respondError(c, response.CodeInternal, "admin roles fetch failed", err)
		return
	}

	response.Success(c, roles)
}
