package repository

import "time"

// MemberListFilter 查询会员列表的过滤条件
type MemberListFilter struct {
	Page     int
	PageSize int
	Search   string
	Tier     string
	Status   string
}

// LedgerListFilter 查询积分流水的过滤条件
type LedgerListFilter struct {
	Page        int
	PageSize    int
	MemberID    uint
	Concept     string
	Direction   string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// RewardListFilter 查询奖品列表的过滤条件
type RewardListFilter struct {
	Page       int
	PageSize   int
	Kind       string
	Search     string
	OnlyActive bool
}

// RedemptionListFilter 查询兑换记录的过滤条件
type RedemptionListFilter struct {
	Page        int
	PageSize    int
	MemberID    uint
	RewardID    uint
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// GiftLinkListFilter 查询礼品链接的过滤条件
type GiftLinkListFilter struct {
	Page        int
	PageSize    int
	Status      string
	BenefitType string
	Search      string
	CreatedBy   string
	OnlyExpired bool
}

// GiftClaimListFilter 查询礼品领取记录的过滤条件
type GiftClaimListFilter struct {
	Page       int
	PageSize   int
	GiftLinkID uint
	MemberID   uint
}

// ReferralListFilter 查询推荐关系的过滤条件
type ReferralListFilter struct {
	Page       int
	PageSize   int
	ReferrerID uint
	Status     string
}

// SyncJobListFilter 查询同步任务的过滤条件
type SyncJobListFilter struct {
	Page       int
	PageSize   int
	OpType     string
	Status     string
	ResourceID string
}

// NotificationListFilter 查询通知记录的过滤条件
type NotificationListFilter struct {
	Page     int
	PageSize int
	Event    string
	Status   string
	MemberID uint
}
