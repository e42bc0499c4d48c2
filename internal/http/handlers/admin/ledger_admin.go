package admin

import (
	"strconv"

	"github.com/puntoz/puntoz/internal/http/response"
	"github.com/puntoz/puntoz/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetLedgerEntries 获取积分流水列表
func (h *Handler) GetLedgerEntries(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	memberID, _ := strconv.ParseUint(c.Query("member_id"), 10, 64)

	entries, total, err := h.LedgerService.List(repository.LedgerListFilter{
		Page:      page,
		PageSize:  pageSize,
		MemberID:  uint(memberID),
		Concept:   c.Query("concept"),
		Direction: c.Query("direction"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "ledger fetch failed", err)
		return
	}

	response.SuccessWithPage(c, entries, response.NewPagination(page, pageSize, total))
}
