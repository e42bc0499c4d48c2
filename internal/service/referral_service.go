package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/puntoz/puntoz/internal/config"
	"github.com/puntoz/puntoz/internal/constants"
	"github.com/puntoz/puntoz/internal/logger"
	"github.com/puntoz/puntoz/internal/models"
	"github.com/puntoz/puntoz/internal/repository"

	"gorm.io/gorm"
)

const referralCodePrefix = "RF"

// ReferralService 推荐服务
// 绑定时只建立 pending 关系并占用推荐码名额，
// 被推荐人完成首次兑换才激活并给双方发放积分，
// 超过激活期限由后台扫描标记过期。
type ReferralService struct {
	referralRepo repository.ReferralRepository
	memberRepo   repository.MemberRepository
	memberSvc    *MemberService
	ledgerSvc    *LedgerService
	syncSvc      *SyncService
	notifSvc     *NotificationService
	program      config.ProgramConfig
}

// NewReferralService 创建推荐服务
func NewReferralService(
	referralRepo repository.ReferralRepository,
	memberRepo repository.MemberRepository,
	memberSvc *MemberService,
	ledgerSvc *LedgerService,
	syncSvc *SyncService,
	notifSvc *NotificationService,
	program config.ProgramConfig,
) *ReferralService {
	return &ReferralService{
		referralRepo: referralRepo,
		memberRepo:   memberRepo,
		memberSvc:    memberSvc,
		ledgerSvc:    ledgerSvc,
		syncSvc:      syncSvc,
		notifSvc:     notifSvc,
		program:      program,
	}
}

// ApplyCodeInput 推荐码绑定输入
type ApplyCodeInput struct {
	Code  string
	Phone string
	Name  string
}

// GetOrCreateCode 获取或创建会员推荐码
func (s *ReferralService) GetOrCreateCode(memberID uint) (*models.ReferralCode, error) {
	member, err := s.memberRepo.GetByID(memberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	existing, err := s.referralRepo.GetCodeByMemberID(memberID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	code := &models.ReferralCode{
		MemberID: memberID,
		Code:     generateReferralCode(),
		MaxUses:  s.program.ReferralMaxUses,
		IsActive: true,
	}
	if err := s.referralRepo.CreateCode(code); err != nil {
		return nil, err
	}
	return code, nil
}

// ApplyCode 绑定推荐码
// 被推荐人不存在时创建；一个会员只能被推荐一次，不能自荐。
func (s *ReferralService) ApplyCode(input ApplyCodeInput) (*models.ReferralRelationship, *models.Member, error) {
	codeValue := strings.TrimSpace(input.Code)
	if codeValue == "" {
		return nil, nil, ErrReferralCodeInvalid
	}

	var rel *models.ReferralRelationship
	var member *models.Member
	var jobs []*models.SyncJob

	err := s.referralRepo.Transaction(func(tx *gorm.DB) error {
		referralRepo := s.referralRepo.WithTx(tx)
		code, err := referralRepo.GetCodeByCode(codeValue)
		if err != nil {
			return err
		}
		if code == nil || !code.IsActive {
			return ErrReferralCodeInvalid
		}

		var created bool
		member, created, err = s.memberSvc.FindOrCreateTx(tx, MemberCreateInput{
			Phone: input.Phone,
			Name:  input.Name,
		})
		if err != nil {
			return err
		}
		if member.ID == code.MemberID {
			return ErrReferralSelf
		}

		existing, err := referralRepo.GetRelationshipByReferred(member.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrReferralAlreadyBound
		}

		// 条件递增占用名额，并发下超出的绑定在这里被拒绝
		incremented, err := referralRepo.IncrementCodeUse(code.ID)
		if err != nil {
			return err
		}
		if !incremented {
			return ErrReferralCodeExhausted
		}

		windowDays := s.program.ReferralWindowDays
		if windowDays <= 0 {
			windowDays = 30
		}
		rel = &models.ReferralRelationship{
			ReferrerID:     code.MemberID,
			ReferredID:     member.ID,
			ReferralCodeID: code.ID,
			Status:         constants.ReferralStatusPending,
			ReferrerPoints: s.program.ReferrerRewardPoints,
			ReferredPoints: s.program.ReferredRewardPoints,
			ActivateBy:     time.Now().Add(time.Duration(windowDays) * 24 * time.Hour),
		}
		if err := referralRepo.CreateRelationship(rel); err != nil {
			return err
		}

		if created {
			job, err := s.syncSvc.EnqueueAccountSyncTx(tx, member, constants.SyncSourceReferral)
			if err != nil {
				return err
			}
			jobs = append(jobs, job)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.syncSvc.AfterCommit(jobs...)
	return rel, member, nil
}

// ActivateOnQualifyingEventTx 事务内激活推荐关系
// 被推荐人完成首次兑换时调用；无 pending 关系或已过期限时静默跳过。
func (s *ReferralService) ActivateOnQualifyingEventTx(tx *gorm.DB, referredID uint) ([]*models.SyncJob, []*models.Notification, error) {
	referralRepo := s.referralRepo.WithTx(tx)
	rel, err := referralRepo.GetRelationshipByReferredForUpdate(referredID)
	if err != nil {
		return nil, nil, err
	}
	if rel == nil || rel.Status != constants.ReferralStatusPending {
		return nil, nil, nil
	}
	now := time.Now()
	if now.After(rel.ActivateBy) {
		return nil, nil, nil
	}

	var jobs []*models.SyncJob
	var notifs []*models.Notification

	if rel.ReferrerPoints > 0 {
		_, err := s.ledgerSvc.ApplyDeltaTx(tx, LedgerApplyInput{
			MemberID:    rel.ReferrerID,
			Delta:       rel.ReferrerPoints,
			Concept:     constants.LedgerConceptReferrerBonus,
			Reference:   fmt.Sprintf("referral:%d:referrer", rel.ID),
			Description: "推荐好友奖励",
			Operator:    "system",
		})
		if err != nil {
			return nil, nil, err
		}
	}
	if rel.ReferredPoints > 0 {
		_, err := s.ledgerSvc.ApplyDeltaTx(tx, LedgerApplyInput{
			MemberID:    rel.ReferredID,
			Delta:       rel.ReferredPoints,
			Concept:     constants.LedgerConceptReferredBonus,
			Reference:   fmt.Sprintf("referral:%d:referred", rel.ID),
			Description: "受邀好友奖励",
			Operator:    "system",
		})
		if err != nil {
			return nil, nil, err
		}
	}

	rel.Status = constants.ReferralStatusActive
	rel.ActivatedAt = &now
	if err := referralRepo.UpdateRelationship(rel); err != nil {
		return nil, nil, err
	}

	memberRepo := s.memberRepo.WithTx(tx)
	for _, memberID := range []uint{rel.ReferrerID, rel.ReferredID} {
		member, err := memberRepo.GetByID(memberID)
		if err != nil {
			return nil, nil, err
		}
		if member == nil {
			continue
		}
		job, err := s.syncSvc.EnqueueAccountSyncTx(tx, member, constants.SyncSourceReferral)
		if err != nil {
			return nil, nil, err
		}
		jobs = append(jobs, job)
	}

	referrerID := rel.ReferrerID
	notif, err := s.notifSvc.EmitTx(tx, EmitInput{
		Event:    constants.NotifyEventReferralActivated,
		Audience: constants.NotifyAudienceMember,
		MemberID: &referrerID,
		Title:    "推荐奖励到账",
		Body:     fmt.Sprintf("您推荐的好友已完成首次兑换，%d 积分已到账", rel.ReferrerPoints),
		Payload:  models.JSON{"referral_id": rel.ID},
	})
	if err != nil {
		return nil, nil, err
	}
	notifs = append(notifs, notif)
	return jobs, notifs, nil
}

// ExpireOverdue 扫描并标记超期未激活的推荐关系，返回处理数量
func (s *ReferralService) ExpireOverdue(limit int) (int, error) {
	now := time.Now()
	rels, err := s.referralRepo.ListExpiredPending(now, limit)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, rel := range rels {
		marked, err := s.referralRepo.MarkExpired(rel.ID, now)
		if err != nil {
			logger.Warnw("referral_mark_expired_failed", "referral_id", rel.ID, "error", err)
			continue
		}
		if marked {
			expired++
		}
	}
	return expired, nil
}

// GetRelationshipByReferred 查询被推荐人的推荐关系
func (s *ReferralService) GetRelationshipByReferred(referredID uint) (*models.ReferralRelationship, error) {
	rel, err := s.referralRepo.GetRelationshipByReferred(referredID)
	if err != nil {
		return nil, err
	}
	if rel == nil {
		return nil, ErrReferralNotFound
	}
	return rel, nil
}

// ListRelationships 分页查询推荐关系
func (s *ReferralService) ListRelationships(filter repository.ReferralListFilter) ([]models.ReferralRelationship, int64, error) {
	return s.referralRepo.ListRelationships(filter)
}

func generateReferralCode() string {
	return strings.ToUpper(referralCodePrefix + randomHex(4))
}
