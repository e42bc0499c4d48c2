package admin

import (
	"errors"
	"strconv"

	"github.com/puntoz/puntoz/internal/http/response"
	"github.com/puntoz/puntoz/internal/repository"
	"github.com/puntoz/puntoz/internal/service"

	"github.com/gin-gonic/gin"
)

// RedeemRequest 兑换请求
type RedeemRequest struct {
	MemberID uint   `json:"member_id" binding:"required"`
	RewardID uint   `json:"reward_id" binding:"required"`
	Note     string `json:"note"`
}

// CreateRedemption 发起兑换
func (h *Handler) CreateRedemption(c *gin.Context) {
	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	redemption, err := h.RedemptionService.Redeem(service.RedeemInput{
		MemberID: req.MemberID,
		RewardID: req.RewardID,
		Note:     req.Note,
		Operator: getAdminUsername(c),
	})
	if err != nil {
		respondRedeemError(c, err)
		return
	}

	response.Success(c, redemption)
}

func respondRedeemError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMemberNotFound):
		respondError(c, response.CodeNotFound, "member not found", nil)
	case errors.Is(err, service.ErrMemberDisabled):
		respondError(c, response.CodeForbidden, "member disabled", nil)
	case errors.Is(err, service.ErrRewardNotFound):
		respondError(c, response.CodeNotFound, "reward not found", nil)
	case errors.Is(err, service.ErrRewardInactive):
		respondError(c, response.CodeBadRequest, "reward inactive", nil)
	case errors.Is(err, service.ErrRewardOutOfStock):
		respondError(c, response.CodeConflict, "reward out of stock", nil)
	case errors.Is(err, service.ErrInsufficientPoints):
		respondError(c, response.CodeConflict, "insufficient points", nil)
	default:
		respondError(c, response.CodeInternal, "redeem failed", err)
	}
}

// GetRedemptions 获取兑换记录列表
func (h *Handler) GetRedemptions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	memberID, _ := strconv.ParseUint(c.Query("member_id"), 10, 64)
	rewardID, _ := strconv.ParseUint(c.Query("reward_id"), 10, 64)

	redemptions, total, err := h.RedemptionService.List(repository.RedemptionListFilter{
		Page:     page,
		PageSize: pageSize,
		MemberID: uint(memberID),
		RewardID: uint(rewardID),
		Status:   c.Query("status"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "redemption fetch failed", err)
		return
	}

	response.SuccessWithPage(c, redemptions, response.NewPagination(page, pageSize, total))
}

// GetRedemption 获取兑换详情
func (h *Handler) GetRedemption(c *gin.Context) {
	redemptionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || redemptionID == 0 {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	redemption, err := h.RedemptionService.GetByID(uint(redemptionID))
	if err != nil {
		if errors.Is(err, service.ErrRedemptionNotFound) {
			respondError(c, response.CodeNotFound, "redemption not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "redemption fetch failed", err)
		return
	}

	response.Success(c, redemption)
}

// DeliverRedemption 标记兑换已交付
func (h *Handler) DeliverRedemption(c *gin.Context) {
	redemptionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || redemptionID == 0 {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	redemption, err := h.RedemptionService.MarkDelivered(uint(redemptionID), getAdminUsername(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRedemptionNotFound):
			respondError(c, response.CodeNotFound, "redemption not found", nil)
		case errors.Is(err, service.ErrRedemptionStatusInvalid):
			respondError(c, response.CodeConflict, "redemption status invalid", nil)
		default:
			respondError(c, response.CodeInternal, "redemption deliver failed", err)
		}
		return
	}

	response.Success(c, redemption)
}

// RevertRedemptionRequest 兑换冲正请求
type RevertRedemptionRequest struct {
	Reason string `json:"reason"`
}

// RevertRedemption 冲正兑换并退回积分
func (h *Handler) RevertRedemption(c *gin.Context) {
	redemptionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || redemptionID == 0 {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	// 冲正原因可选，请求体允许为空
	var req RevertRedemptionRequest
	_ = c.ShouldBindJSON(&req)

	redemption, err := h.RedemptionService.Revert(uint(redemptionID), getAdminUsername(c), req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRedemptionNotFound):
			respondError(c, response.CodeNotFound, "redemption not found", nil)
		case errors.Is(err, service.ErrRedemptionStatusInvalid):
			respondError(c, response.CodeConflict, "redemption status invalid", nil)
		default:
			respondError(c, response.CodeInternal, "redemption revert failed", err)
		}
		return
	}

	response.Success(c, redemption)
}
