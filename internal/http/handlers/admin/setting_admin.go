package admin

import (
	"strings"

	"github.com/puntoz/puntoz/internal/http/response"
	"github.com/puntoz/puntoz/internal/models"

	"github.com/gin-gonic/gin"
)

// GetSettings 获取全部配置项
func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := h.SettingService.List()
	if err != nil {
		respondError(c, response.CodeInternal, "setting fetch failed", err)
		return
	}

	response.Success(c, settings)
}

// GetSetting 获取单个配置项
func (h *Handler) GetSetting(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}

	value, err := h.SettingService.Get(c.Request.Context(), key)
	if err != nil {
		respondError(c, response.CodeInternal, "setting fetch failed", err)
		return
	}

	response.Success(c, gin.H{
		"key":   key,
		"value": value,
	})
}

// SetSettingRequest 写入配置项请求
type SetSettingRequest struct {
	Value  models.JSON `json:"value" binding:"required"`
	Remark string      `json:"remark"`
}

// SetSetting 写入配置项
func (h *Handler) SetSetting(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	var req SetSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	if err := h.SettingService.Set(c.Request.Context(), key, req.Value, req.Remark); err != nil {
		respondError(c, response.CodeInternal, "setting save failed", err)
		return
	}

	response.SuccessWithMsg(c, "setting saved", nil)
}
