package admin

import (
	"errors"
	"strconv"

	"github.com/puntoz/puntoz/internal/constants"
	"github.com/puntoz/puntoz/internal/http/response"
	"github.com/puntoz/puntoz/internal/repository"
	"github.com/puntoz/puntoz/internal/service"

	"github.com/gin-gonic/gin"
)

// GetMembers 获取会员列表
func (h *Handler) GetMembers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	members, total, err := h.MemberService.List(repository.MemberListFilter{
		Page:     page,
		PageSize: pageSize,
		Search:   c.Query("search"),
		Tier:     c.Query("tier"),
		Status:   c.Query("status"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "member fetch failed", err)
		return
	}

	response.SuccessWithPage(c, members, response.NewPagination(page, pageSize, total))
}

// GetMember 获取会员详情
func (h *Handler) GetMember(c *gin.Context) {
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

	response.Success(c, member)
}

// CreateMemberRequest 创建会员请求
type CreateMemberRequest struct {
	Phone string `json:"phone" binding:"required"`
	Name  string `json:"name"`
}

// CreateMember 创建会员（已存在时幂等返回）
func (h *Handler) CreateMember(c *gin.Context) {
	var req CreateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	member, created, err := h.MemberService.FindOrCreate(service.MemberCreateInput{
		Phone: req.Phone,
		Name:  req.Name,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMemberPhoneInvalid):
			respondError(c, response.CodeBadRequest, "member phone invalid", nil)
		case errors.Is(err, service.ErrMemberDisabled):
			respondError(c, response.CodeForbidden, "member disabled", nil)
		default:
			respondError(c, response.CodeInternal, "member create failed", err)
		}
		return
	}

	response.Success(c, gin.H{
		"member":  member,
		"created": created,
	})
}

// UpdateMemberRequest 更新会员请求
type UpdateMemberRequest struct {
	Name   string `json:"name"`
	Tier   string `json:"tier"`
	Status string `json:"status"`
}

// UpdateMember 更新会员资料（手机号不可变更）
func (h *Handler) UpdateMember(c *gin.Context) {
	memberID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || memberID == 0 {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	var req UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	member, err := h.MemberService.UpdateProfile(uint(memberID), req.Name, req.Tier, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMemberNotFound):
			respondError(c, response.CodeNotFound, "member not found", nil)
		default:
			respondError(c, response.CodeInternal, "member update failed", err)
		}
		return
	}

	response.Success(c, member)
}

// GrantPointsRequest 发放积分请求
type GrantPointsRequest struct {
	Points      int64  `json:"points" binding:"required"`
	Concept     string `json:"concept"`
	Reference   string `json:"reference" binding:"required"`
	Description string `json:"description"`
}

// GrantMemberPoints 向会员发放积分
// 引用键重复时幂等返回原流水。
func (h *Handler) GrantMemberPoints(c *gin.Context) {
	memberID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || memberID == 0 {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	var req GrantPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	// 后台手工调整未指定 concept 时归类为 manual_grant
	concept := req.Concept
	if concept == "" {
		concept = constants.LedgerConceptManualGrant
	}
	member, entry, err := h.LedgerService.GrantPoints(service.GrantInput{
		MemberID:    uint(memberID),
		Points:      req.Points,
		Concept:     concept,
		Reference:   req.Reference,
		Description: req.Description,
		Operator:    getAdminUsername(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMemberNotFound):
			respondError(c, response.CodeNotFound, "member not found", nil)
		case errors.Is(err, service.ErrPointsInvalid):
			respondError(c, response.CodeBadRequest, "points invalid", nil)
		case errors.Is(err, service.ErrConceptRequired):
			respondError(c, response.CodeBadRequest, "concept required", nil)
		case errors.Is(err, service.ErrInsufficientPoints):
			respondError(c, response.CodeConflict, "insufficient points", nil)
		case errors.Is(err, service.ErrReferenceConflict):
			respondError(c, response.CodeConflict, "reference already used with different amount", nil)
		default:
			respondError(c, response.CodeInternal, "grant points failed", err)
		}
		return
	}

	response.Success(c, gin.H{
		"member": member,
		"entry":  entry,
	})
}

// GetMemberLedger 获取会员积分流水
func (h *Handler) GetMemberLedger(c *gin.Context) {
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
		Concept:  c.Query("concept"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "ledger fetch failed", err)
		return
	}

	response.SuccessWithPage(c, entries, response.NewPagination(page, pageSize, total))
}

// CheckMemberBalance 核对会员余额与流水合计
func (h *Handler) CheckMemberBalance(c *gin.Context) {
	memberID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || memberID == 0 {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	balance, ledgerSum, err := h.MemberService.CheckBalance(uint(memberID))
	if err != nil {
		if errors.Is(err, service.ErrMemberNotFound) {
			respondError(c, response.CodeNotFound, "member not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "balance check failed", err)
		return
	}

	response.Success(c, gin.H{
		"balance":    balance,
		"ledger_sum": ledgerSum,
		"consistent": balance == ledgerSum,
	})
}
