package public

import (
	"errors"

	handlershared "github.com/puntoz/puntoz/internal/http/handlers/shared"
	"github.com/puntoz/puntoz/internal/http/response"
	"github.com/puntoz/puntoz/internal/service"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

func normalizePagination(page, pageSize int) (int, int) {
	return handlershared.NormalizePagination(page, pageSize)
}

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

var memberCommonErrorRules = []mappedHandlerError{
	{target: service.ErrMemberPhoneInvalid, code: response.CodeBadRequest, msg: "member phone invalid"},
	{target: service.ErrMemberNotFound, code: response.CodeNotFound, msg: "member not found"},
	{target: service.ErrMemberDisabled, code: response.CodeForbidden, msg: "member disabled"},
}

var giftClaimErrorRules = []mappedHandlerError{
	{target: service.ErrGiftLinkNotFound, code: response.CodeNotFound, msg: "gift link not found"},
	{target: service.ErrGiftLinkDisabled, code: response.CodeGone, msg: "gift link disabled"},
	{target: service.ErrGiftLinkExpired, code: response.CodeGone, msg: "gift link expired"},
	{target: service.ErrGiftLinkExhausted, code: response.CodeGone, msg: "gift link claim limit reached"},
	{target: service.ErrGiftAlreadyClaimed, code: response.CodeConflict, msg: "gift already claimed"},
	{target: service.ErrGiftRecipientMismatch, code: response.CodeForbidden, msg: "gift link bound to another recipient"},
}

var referralApplyErrorRules = []mappedHandlerError{
	{target: service.ErrReferralCodeInvalid, code: response.CodeBadRequest, msg: "referral code invalid"},
	{target: service.ErrReferralCodeExhausted, code: response.CodeGone, msg: "referral code use limit reached"},
	{target: service.ErrReferralSelf, code: response.CodeBadRequest, msg: "cannot refer yourself"},
	{target: service.ErrReferralAlreadyBound, code: response.CodeConflict, msg: "member already referred"},
}

var pointsGrantErrorRules = []mappedHandlerError{
	{target: service.ErrPointsInvalid, code: response.CodeBadRequest, msg: "points amount invalid"},
	{target: service.ErrConceptRequired, code: response.CodeBadRequest, msg: "concept required"},
	{target: service.ErrReferenceRequired, code: response.CodeBadRequest, msg: "reference required"},
	{target: service.ErrReferenceConflict, code: response.CodeConflict, msg: "reference already used with different amount"},
	{target: service.ErrInsufficientPoints, code: response.CodeConflict, msg: "insufficient points"},
}

var redeemErrorRules = []mappedHandlerError{
	{target: service.ErrRewardNotFound, code: response.CodeNotFound, msg: "reward not found"},
	{target: service.ErrRewardInactive, code: response.CodeBadRequest, msg: "reward inactive"},
	{target: service.ErrRewardOutOfStock, code: response.CodeConflict, msg: "reward out of stock"},
	{target: service.ErrInsufficientPoints, code: response.CodeConflict, msg: "insufficient points"},
}

func concatMappedHandlerErrors(groups ...[]mappedHandlerError) []mappedHandlerError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]mappedHandlerError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}
