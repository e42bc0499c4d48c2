package admin

import (
	"errors"
	"strconv"

	"github.com/puntoz/puntoz/internal/http/response"
	"github.com/puntoz/puntoz/internal/repository"
	"github.com/puntoz/puntoz/internal/service"

	"github.com/gin-gonic/gin"
)

// GetReferrals 获取推荐关系列表
func (h *Handler) GetReferrals(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	referrerID, _ := strconv.ParseUint(c.Query("referrer_id"), 10, 64)

	relationships, total, err := h.ReferralService.ListRelationships(repository.ReferralListFilter{
		Page:       page,
		PageSize:   pageSize,
		ReferrerID: uint(referrerID),
		Status:     c.Query("status"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "referral fetch failed", err)
		return
	}

	response.SuccessWithPage(c, relationships, response.NewPagination(page, pageSize, total))
}

// GetMemberReferralCode 获取（或创建）会员推荐码
func (h *Handler) GetMemberReferralCode(c *gin.Context) {
	memberID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || memberID == 0 {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	code, err := h.ReferralService.GetOrCreateCode(uint(memberID))
	if err != nil {
		if errors.Is(err, service.ErrMemberNotFound) {
			respondError(c, response.CodeNotFound, "member not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "referral code fetch failed", err)
		return
	}

	response.Success(c, code)
}
