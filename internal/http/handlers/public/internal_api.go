package public

import (
	"errors"
	"strconv"

	"github.com/puntoz/puntoz/internal/http/response"
	"github.com/puntoz/puntoz/internal/repository"
	"github.com/puntoz/puntoz/internal/service"

	"github.com/gin-gonic/gin"
)

// InternalGrantRequest 内部积分发放请求（POS 消费累计等）
type InternalGrantRequest struct {
	MemberID    uint   `json:"member_id"`
	Phone       string `json:"phone"`
	Points      int64  `json:"points" binding:"required"`
	Concept     string `json:"concept"`
	Reference   string `json:"reference" binding:"required"`
	Description string `json:"description"`
	Source      string `json:"source"`
}

// InternalGrantPoints 内部系统发放积分
// 引用键重复时幂等返回原流水。
func (h *Handler) InternalGrantPoints(c *gin.Context) {
	var req InternalGrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	if req.MemberID == 0 && req.Phone == "" {
		respondError(c, response.CodeBadRequest, "member_id or phone required", nil)
		return
	}

	operator := req.Source
	if operator == "" {
		operator = "internal"
	}
	member, entry, err := h.LedgerService.GrantPoints(service.GrantInput{
		MemberID:    req.MemberID,
		Phone:       req.Phone,
		Points:      req.Points,
		Concept:     req.Concept,
		Reference:   req.Reference,
		Description: req.Description,
		Operator:    operator,
	})
	if err != nil {
		rules := concatMappedHandlerErrors(pointsGrantErrorRules, memberCommonErrorRules)
		respondWithMappedError(c, err, rules, response.CodeInternal, "grant points failed")
		return
	}

	response.Success(c, gin.H{
		"member": member,
		"entry":  entry,
	})
}

// InternalRedeemRequest 内部兑换请求
type InternalRedeemRequest struct {
	MemberID uint   `json:"member_id" binding:"required"`
	RewardID uint   `json:"reward_id" binding:"required"`
	Note     string `json:"note"`
	Source   string `json:"source"`
}

// InternalCreateRedemption 内部系统发起兑换
func (h *Handler) InternalCreateRedemption(c *gin.Context) {
	var req InternalRedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	operator := req.Source
	if operator == "" {
		operator = "internal"
	}
	redemption, err := h.RedemptionService.Redeem(service.RedeemInput{
		MemberID: req.MemberID,
		RewardID: req.RewardID,
		Note:     req.Note,
		Operator: operator,
	})
	if err != nil {
		rules := concatMappedHandlerErrors(redeemErrorRules, memberCommonErrorRules)
		respondWithMappedError(c, err, rules, response.CodeInternal, "redeem failed")
		return
	}

	response.Success(c, redemption)
}

// InternalReferralApplyRequest 推荐码绑定请求
type InternalReferralApplyRequest struct {
	Code  string `json:"code" binding:"required"`
	Phone string `json:"phone" binding:"required"`
	Name  string `json:"name"`
}

// InternalApplyReferral 绑定推荐码
// 被推荐会员不存在时自动建档。
func (h *Handler) InternalApplyReferral(c *gin.Context) {
	var req InternalReferralApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	relationship, member, err := h.ReferralService.ApplyCode(service.ApplyCodeInput{
		Code:  req.Code,
		Phone: req.Phone,
		Name:  req.Name,
	})
	if err != nil {
		rules := concatMappedHandlerErrors(referralApplyErrorRules, memberCommonErrorRules)
		respondWithMappedError(c, err, rules, response.CodeInternal, "referral apply failed")
		return
	}

	response.Success(c, gin.H{
		"relationship": relationship,
		"member":       member,
	})
}

// InternalFindOrCreateMemberRequest 会员建档请求
type InternalFindOrCreateMemberRequest struct {
	Phone string `json:"phone" binding:"required"`
	Name  string `json:"name"`
}

// InternalFindOrCreateMember 查找或创建会员
func (h *Handler) InternalFindOrCreateMember(c *gin.Context) {
	var req InternalFindOrCreateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	member, created, err := h.MemberService.FindOrCreate(service.MemberCreateInput{
		Phone: req.Phone,
		Name:  req.Name,
	})
	if err != nil {
		respondWithMappedError(c, err, memberCommonErrorRules, response.CodeInternal, "member create failed")
		return
	}

	response.Success(c, gin.H{
		"member":  member,
		"created": created,
	})
}

// InternalGetMemberByPhone 按手机号查询会员
func (h *Handler) InternalGetMemberByPhone(c *gin.Context) {
	member, err := h.MemberService.GetByPhone(c.Query("phone"))
	if err != nil {
		respondWithMappedError(c, err, memberCommonErrorRules, response.CodeInternal, "member fetch failed")
		return
	}

	response.Success(c, member)
}

// InternalGetMemberBalance 查询会员余额
func (h *Handler) InternalGetMemberBalance(c *gin.Context) {
	memberID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || memberID == 0 {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	member, err := h.MemberService.GetByID(uint(memberID))
	if err != nil {
		if errors.Is(err, service.ErrMemberNotFound) {
			respondError(c, response.CodeNotFound, "member not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "member fetch failed", err)
		return
	}

	response.Success(c, gin.H{
		"member_id": member.ID,
		"points":    member.Points,
		"tier":      member.Tier,
		"status":    member.Status,
	})
}

// InternalGetMemberLedger 查询会员积分流水
func (h *Handler) InternalGetMemberLedger(c *gin.Context) {
	memberID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || memberID == 0 {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	entries, total, err := h.MemberService.ListLedger(repository.LedgerListFilter{
		Page:     page,
		PageSize: pageSize,
		MemberID: uint(memberID),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "ledger fetch failed", err)
		return
	}

	response.SuccessWithPage(c, entries, response.NewPagination(page, pageSize, total))
}
