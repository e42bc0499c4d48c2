package constants

// 会员等级常量
const (
	MemberTierStandard = "standard"
	MemberTierVIP      = "vip"
)

// 会员状态常量
const (
	MemberStatusActive   = "active"
	MemberStatusDisabled = "disabled"
)

// 积分流水类型常量
const (
	LedgerConceptManualGrant   = "manual_grant"
	LedgerConceptRedeem        = "redeem"
	LedgerConceptGiftClaim     = "gift_claim"
	LedgerConceptReferrerBonus = "referrer_bonus"
	LedgerConceptReferredBonus = "referred_bonus"
	LedgerConceptWelcomeBonus  = "welcome_bonus"
	LedgerConceptRevert        = "revert"
)

// 积分流水方向常量
const (
	LedgerDirectionIn  = "in"
	LedgerDirectionOut = "out"
)

// 奖品类型常量
const (
	RewardKindPhysical = "physical"
	RewardKindService  = "service"
)

// 服务类奖品不限库存的哨兵值
const RewardStockUnlimited = -1

// 兑换状态常量
const (
	RedemptionStatusPendingDelivery = "pending_delivery"
	RedemptionStatusInQueue         = "in_queue"
	RedemptionStatusDelivered       = "delivered"
	RedemptionStatusCompleted       = "completed"
)

// 礼品链接权益类型常量
const (
	GiftBenefitPoints  = "points"
	GiftBenefitService = "service"
)

// 礼品链接状态常量
const (
	GiftLinkStatusActive   = "active"
	GiftLinkStatusDisabled = "disabled"
)

// 推荐关系状态常量
const (
	ReferralStatusPending = "pending"
	ReferralStatusActive  = "active"
	ReferralStatusExpired = "expired"
)

// 同步队列条目状态常量
const (
	SyncJobStatusPending  = "pending"
	SyncJobStatusDone     = "done"
	SyncJobStatusTerminal = "terminal"
)

// 同步操作类型常量
const (
	SyncOpAccountSync  = "account_sync"
	SyncOpTicketCreate = "ticket_create"
	SyncOpStatusUpdate = "status_update"
)

// 同步来源标签常量
const (
	SyncSourceLedger     = "ledger"
	SyncSourceRedemption = "redemption"
	SyncSourceGiftClaim  = "gift_claim"
	SyncSourceReferral   = "referral"
	SyncSourceAdmin      = "admin"
)

// 管理员角色常量
const (
	AdminRoleSuper    = "super"
	AdminRoleOperator = "operator"
)

// 通知事件类型常量
const (
	NotifyEventPointsGranted       = "points_granted"
	NotifyEventRedemptionCreated   = "redemption_created"
	NotifyEventRedemptionDelivered = "redemption_delivered"
	NotifyEventGiftClaimed         = "gift_claimed"
	NotifyEventReferralActivated   = "referral_activated"
	NotifyEventSyncTerminal        = "sync_terminal"
)

// 通知接收方常量
const (
	NotifyAudienceMember = "member"
	NotifyAudienceAdmins = "admins"
)

// 通知状态常量
const (
	NotificationStatusPending = "pending"
	NotificationStatusSent    = "sent"
	NotificationStatusFailed  = "failed"
)

// 异步任务类型常量
const (
	TaskNotificationDispatch = "notification:dispatch"
	TaskSyncKick             = "sync:kick"
)

// 队列名称常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)
