package admin

import (
	"errors"
	"strconv"

	"github.com/puntoz/puntoz/internal/http/response"
	"github.com/puntoz/puntoz/internal/models"
	"github.com/puntoz/puntoz/internal/repository"
	"github.com/puntoz/puntoz/internal/service"

	"github.com/gin-gonic/gin"
)

// RewardRequest 奖品创建/更新请求
type RewardRequest struct {
	Name        string  `json:"name" binding:"required"`
	Kind        string  `json:"kind" binding:"required"`
	Description string  `json:"description"`
	PointsCost  int64   `json:"points_cost" binding:"required"`
	Stock       int     `json:"stock"`
	RetailValue float64 `json:"retail_value"`
	ImageURL    string  `json:"image_url"`
	IsActive    bool    `json:"is_active"`
	SortOrder   int     `json:"sort_order"`
}

func (r RewardRequest) toInput() service.RewardInput {
	return service.RewardInput{
		Name:        r.Name,
		Kind:        r.Kind,
		Description: r.Description,
		PointsCost:  r.PointsCost,
		Stock:       r.Stock,
		RetailValue: models.NewMoneyFromFloat(r.RetailValue),
		ImageURL:    r.ImageURL,
		IsActive:    r.IsActive,
		SortOrder:   r.SortOrder,
	}
}

// CreateReward 创建奖品
func (h *Handler) CreateReward(c *gin.Context) {
	var req RewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	reward, err := h.RewardService.Create(req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRewardInvalid):
			respondError(c, response.CodeBadRequest, "reward config invalid", nil)
		default:
			respondError(c, response.CodeInternal, "reward create failed", err)
		}
		return
	}

	response.Success(c, reward)
}

// UpdateReward 更新奖品
func (h *Handler) UpdateReward(c *gin.Context) {
	rewardID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || rewardID == 0 {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	var req RewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	reward, err := h.RewardService.Update(uint(rewardID), req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRewardNotFound):
			respondError(c, response.CodeNotFound, "reward not found", nil)
		case errors.Is(err, service.ErrRewardInvalid):
			respondError(c, response.CodeBadRequest, "reward config invalid", nil)
		default:
			respondError(c, response.CodeInternal, "reward update failed", err)
		}
		return
	}

	response.Success(c, reward)
}

// DeleteReward 删除奖品
func (h *Handler) DeleteReward(c *gin.Context) {
	rewardID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || rewardID == 0 {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	if err := h.RewardService.Delete(uint(rewardID)); err != nil {
		switch {
		case errors.Is(err, service.ErrRewardNotFound):
			respondError(c, response.CodeNotFound, "reward not found", nil)
		default:
			respondError(c, response.CodeInternal, "reward delete failed", err)
		}
		return
	}

	response.SuccessWithMsg(c, "reward deleted", nil)
}

// GetReward 获取奖品详情
func (h *Handler) GetReward(c *gin.Context) {
	rewardID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || rewardID == 0 {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	reward, err := h.RewardService.GetByID(uint(rewardID))
	if err != nil {
		if errors.Is(err, service.ErrRewardNotFound) {
			respondError(c, response.CodeNotFound, "reward not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "reward fetch failed", err)
		return
	}

	response.Success(c, reward)
}

// GetRewards 获取奖品列表
func (h *Handler) GetRewards(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	rewards, total, err := h.RewardService.List(repository.RewardListFilter{
		Page:       page,
		PageSize:   pageSize,
		Kind:       c.Query("kind"),
		Search:     c.Query("search"),
		OnlyActive: c.Query("only_active") == "true",
	})
	if err != nil {
		respondError(c, response.CodeInternal, "reward fetch failed", err)
		return
	}

	response.SuccessWithPage(c, rewards, response.NewPagination(page, pageSize, total))
}
