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

// GiftLinkRequest 礼品链接创建请求
type GiftLinkRequest struct {
	Title          string  `json:"title" binding:"required"`
	Message        string  `json:"message"`
	BenefitType    string  `json:"benefit_type" binding:"required"`
	PointsAmount   int64   `json:"points_amount"`
	ServiceName    string  `json:"service_name"`
	ServiceValue   float64 `json:"service_value"`
	RecipientPhone string  `json:"recipient_phone"`
	IsCampaign     bool    `json:"is_campaign"`
	MaxClaims      int     `json:"max_claims"`
	ExpiresInHours int     `json:"expires_in_hours"`
}

// CreateGiftLink 创建礼品链接
func (h *Handler) CreateGiftLink(c *gin.Context) {
	var req GiftLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	link, err := h.GiftLinkService.Create(service.GiftLinkCreateInput{
		Title:          req.Title,
		Message:        req.Message,
		BenefitType:    req.BenefitType,
		PointsAmount:   req.PointsAmount,
		ServiceName:    req.ServiceName,
		ServiceValue:   models.NewMoneyFromFloat(req.ServiceValue),
		RecipientPhone: req.RecipientPhone,
		IsCampaign:     req.IsCampaign,
		MaxClaims:      req.MaxClaims,
		ExpiresInHours: req.ExpiresInHours,
		CreatedBy:      getAdminUsername(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGiftLinkInvalid):
			respondError(c, response.CodeBadRequest, "gift link config invalid", nil)
		case errors.Is(err, service.ErrMemberPhoneInvalid):
			respondError(c, response.CodeBadRequest, "recipient phone invalid", nil)
		default:
			respondError(c, response.CodeInternal, "gift link create failed", err)
		}
		return
	}

	response.Success(c, link)
}

// GetGiftLinks 获取礼品链接列表
func (h *Handler) GetGiftLinks(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	links, total, err := h.GiftLinkService.List(repository.GiftLinkListFilter{
		Page:        page,
		PageSize:    pageSize,
		Status:      c.Query("status"),
		BenefitType: c.Query("benefit_type"),
		Search:      c.Query("search"),
		CreatedBy:   c.Query("created_by"),
		OnlyExpired: c.Query("only_expired") == "true",
	})
	if err != nil {
		respondError(c, response.CodeInternal, "gift link fetch failed", err)
		return
	}

	response.SuccessWithPage(c, links, response.NewPagination(page, pageSize, total))
}

// GetGiftLink 获取礼品链接详情
func (h *Handler) GetGiftLink(c *gin.Context) {
	linkID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || linkID == 0 {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	link, err := h.GiftLinkService.GetByID(uint(linkID))
	if err != nil {
		if errors.Is(err, service.ErrGiftLinkNotFound) {
			respondError(c, response.CodeNotFound, "gift link not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "gift link fetch failed", err)
		return
	}

	response.Success(c, link)
}

// DisableGiftLink 停用礼品链接
func (h *Handler) DisableGiftLink(c *gin.Context) {
	linkID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || linkID == 0 {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	link, err := h.GiftLinkService.Disable(uint(linkID))
	if err != nil {
		if errors.Is(err, service.ErrGiftLinkNotFound) {
			respondError(c, response.CodeNotFound, "gift link not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "gift link disable failed", err)
		return
	}

	response.Success(c, link)
}

// GetGiftLinkClaims 获取礼品链接领取记录
func (h *Handler) GetGiftLinkClaims(c *gin.Context) {
	linkID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || linkID == 0 {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	claims, total, err := h.GiftLinkService.ListClaims(repository.GiftClaimListFilter{
		Page:       page,
		PageSize:   pageSize,
		GiftLinkID: uint(linkID),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "gift claim fetch failed", err)
		return
	}

	response.SuccessWithPage(c, claims, response.NewPagination(page, pageSize, total))
}
