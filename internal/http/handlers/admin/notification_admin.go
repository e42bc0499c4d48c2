package admin

import (
	"strconv"

	"github.com/puntoz/puntoz/internal/http/response"
	"github.com/puntoz/puntoz/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetNotifications 获取通知记录列表
func (h *Handler) GetNotifications(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	memberID, _ := strconv.ParseUint(c.Query("member_id"), 10, 64)

	notifications, total, err := h.NotificationService.List(repository.NotificationListFilter{
		Page:     page,
		PageSize: pageSize,
		Event:    c.Query("event"),
		Status:   c.Query("status"),
		MemberID: uint(memberID),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "notification fetch failed", err)
		return
	}

	response.SuccessWithPage(c, notifications, response.NewPagination(page, pageSize, total))
}
