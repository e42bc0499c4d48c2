package service

import "errors"

// 会员相关错误
var (
	ErrMemberNotFound     = errors.New("member not found")
	ErrMemberDisabled     = errors.New("member disabled")
	ErrMemberPhoneInvalid = errors.New("member phone invalid")
	ErrMemberExists       = errors.New("member already exists")
)

// 积分账本相关错误
var (
	ErrPointsInvalid       = errors.New("points amount invalid")
	ErrInsufficientPoints  = errors.New("insufficient points")
	ErrReferenceRequired   = errors.New("ledger reference required")
	ErrConceptRequired     = errors.New("ledger concept required")
	ErrLedgerCreateFailed  = errors.New("ledger entry create failed")
	ErrLedgerEntryNotFound = errors.New("ledger entry not found")
	ErrBalanceUpdateFailed = errors.New("member balance update failed")
	ErrReferenceConflict   = errors.New("ledger reference already used with different amount")
)

// 奖品与兑换相关错误
var (
	ErrRewardNotFound          = errors.New("reward not found")
	ErrRewardInactive          = errors.New("reward inactive")
	ErrRewardOutOfStock        = errors.New("reward out of stock")
	ErrRewardInvalid           = errors.New("reward config invalid")
	ErrRedemptionNotFound      = errors.New("redemption not found")
	ErrRedemptionStatusInvalid = errors.New("redemption status invalid")
)

// 礼品链接相关错误
var (
	ErrGiftLinkNotFound      = errors.New("gift link not found")
	ErrGiftLinkDisabled      = errors.New("gift link disabled")
	ErrGiftLinkExpired       = errors.New("gift link expired")
	ErrGiftLinkExhausted     = errors.New("gift link claim limit reached")
	ErrGiftLinkInvalid       = errors.New("gift link config invalid")
	ErrGiftAlreadyClaimed    = errors.New("gift already claimed by member")
	ErrGiftRecipientMismatch = errors.New("gift link bound to another recipient")
)

// 推荐相关错误
var (
	ErrReferralCodeInvalid   = errors.New("referral code invalid")
	ErrReferralCodeExhausted = errors.New("referral code use limit reached")
	ErrReferralSelf          = errors.New("cannot refer yourself")
	ErrReferralAlreadyBound  = errors.New("member already referred")
	ErrReferralNotFound      = errors.New("referral relationship not found")
)

// 同步任务相关错误
var (
	ErrSyncJobNotFound    = errors.New("sync job not found")
	ErrSyncJobNotTerminal = errors.New("sync job not in terminal status")
)

// 通知相关错误
var (
	ErrNotificationNotFound = errors.New("notification not found")
)

// 认证相关错误
var (
	ErrAdminNotFound     = errors.New("admin not found")
	ErrAdminDisabled     = errors.New("admin disabled")
	ErrPasswordIncorrect = errors.New("password incorrect")
	ErrTokenInvalid      = errors.New("token invalid")
)
