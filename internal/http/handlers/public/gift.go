package public

import (
	"time"

	"github.com/puntoz/puntoz/internal/constants"
	"github.com/puntoz/puntoz/internal/http/response"
	"github.com/puntoz/puntoz/internal/models"
	"github.com/puntoz/puntoz/internal/service"

	"github.com/gin-gonic/gin"
)

// GiftLinkView 礼品链接公开视图
// 不暴露收件人手机号与创建人。
type GiftLinkView struct {
	Code         string       `json:"code"`
	Title        string       `json:"title"`
	Message      string       `json:"message"`
	BenefitType  string       `json:"benefit_type"`
	PointsAmount int64        `json:"points_amount"`
	ServiceName  string       `json:"service_name"`
	ServiceValue models.Money `json:"service_value"`
	IsCampaign   bool         `json:"is_campaign"`
	Claimable    bool         `json:"claimable"`
	ExpiresAt    *time.Time   `json:"expires_at"`
}

func buildGiftLinkView(link *models.GiftLink) GiftLinkView {
	now := time.Now()
	claimable := link.Status == constants.GiftLinkStatusActive &&
		!link.IsExpired(now) &&
		!link.IsExhausted()
	return GiftLinkView{
		Code:         link.Code,
		Title:        link.Title,
		Message:      link.Message,
		BenefitType:  link.BenefitType,
		PointsAmount: link.PointsAmount,
		ServiceName:  link.ServiceName,
		ServiceValue: link.ServiceValue,
		IsCampaign:   link.IsCampaign,
		Claimable:    claimable,
		ExpiresAt:    link.ExpiresAt,
	}
}

// ViewGiftLink 查看礼品链接
func (h *Handler) ViewGiftLink(c *gin.Context) {
	link, err := h.GiftLinkService.View(c.Param("code"))
	if err != nil {
		respondWithMappedError(c, err, giftClaimErrorRules, response.CodeInternal, "gift link fetch failed")
		return
	}

	response.Success(c, buildGiftLinkView(link))
}

// ClaimGiftRequest 礼品领取请求
type ClaimGiftRequest struct {
	Phone string `json:"phone" binding:"required"`
	Name  string `json:"name"`
}

// ClaimGiftLink 领取礼品
func (h *Handler) ClaimGiftLink(c *gin.Context) {
	var req ClaimGiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	claim, member, err := h.GiftLinkService.Claim(service.GiftClaimInput{
		Code:     c.Param("code"),
		Phone:    req.Phone,
		Name:     req.Name,
		ClientIP: c.ClientIP(),
	})
	if err != nil {
		rules := concatMappedHandlerErrors(giftClaimErrorRules, memberCommonErrorRules)
		respondWithMappedError(c, err, rules, response.CodeInternal, "gift claim failed")
		return
	}

	response.Success(c, gin.H{
		"claim":  claim,
		"member": member,
	})
}
