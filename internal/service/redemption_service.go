package service

import (
	"fmt"
	"time"

	"github.com/puntoz/puntoz/internal/constants"
	"github.com/puntoz/puntoz/internal/models"
	"github.com/puntoz/puntoz/internal/repository"

	"gorm.io/gorm"
)

// RedemptionService 兑换服务
// 扣分、扣库存、写兑换单与写同步任务在同一事务内完成，
// 任一步失败整体回滚，不会出现扣了分却没有兑换单的状态。
type RedemptionService struct {
	memberRepo     repository.MemberRepository
	rewardRepo     repository.RewardRepository
	redemptionRepo repository.RedemptionRepository
	ledgerSvc      *LedgerService
	referralSvc    *ReferralService
	syncSvc        *SyncService
	notifSvc       *NotificationService
}

// NewRedemptionService 创建兑换服务
func NewRedemptionService(
	memberRepo repository.MemberRepository,
	rewardRepo repository.RewardRepository,
	redemptionRepo repository.RedemptionRepository,
	ledgerSvc *LedgerService,
	referralSvc *ReferralService,
	syncSvc *SyncService,
	notifSvc *NotificationService,
) *RedemptionService {
	return &RedemptionService{
		memberRepo:     memberRepo,
		rewardRepo:     rewardRepo,
		redemptionRepo: redemptionRepo,
		ledgerSvc:      ledgerSvc,
		referralSvc:    referralSvc,
		syncSvc:        syncSvc,
		notifSvc:       notifSvc,
	}
}

// RedeemInput 兑换输入
type RedeemInput struct {
	MemberID uint
	RewardID uint
	Note     string
	Operator string
}

// Redeem 兑换奖品
func (s *RedemptionService) Redeem(input RedeemInput) (*models.Redemption, error) {
	if input.MemberID == 0 {
		return nil, ErrMemberNotFound
	}
	if input.RewardID == 0 {
		return nil, ErrRewardNotFound
	}

	var redemption *models.Redemption
	var jobs []*models.SyncJob
	var notifs []*models.Notification

	err := s.redemptionRepo.Transaction(func(tx *gorm.DB) error {
		memberRepo := s.memberRepo.WithTx(tx)
		member, err := memberRepo.GetByID(input.MemberID)
		if err != nil {
			return err
		}
		if member == nil {
			return ErrMemberNotFound
		}
		if member.Status == constants.MemberStatusDisabled {
			return ErrMemberDisabled
		}

		rewardRepo := s.rewardRepo.WithTx(tx)
		reward, err := rewardRepo.GetByIDForUpdate(input.RewardID)
		if err != nil {
			return err
		}
		if reward == nil {
			return ErrRewardNotFound
		}
		if !reward.IsActive {
			return ErrRewardInactive
		}
		// 余额不足先于缺货报出，真正的扣减仍由 ApplyDeltaTx 加锁兜底
		if member.Points < reward.PointsCost {
			return ErrInsufficientPoints
		}

		// 条件扣库存，并发下多余的兑换会在这里被拒绝
		if !reward.HasUnlimitedStock() {
			decremented, err := rewardRepo.DecrementStock(reward.ID)
			if err != nil {
				return err
			}
			if !decremented {
				return ErrRewardOutOfStock
			}
		}

		status := constants.RedemptionStatusPendingDelivery
		if reward.Kind == constants.RewardKindService {
			status = constants.RedemptionStatusInQueue
		}
		redemption = &models.Redemption{
			MemberID:    member.ID,
			RewardID:    reward.ID,
			RewardName:  reward.Name,
			RewardKind:  reward.Kind,
			PointsSpent: reward.PointsCost,
			Status:      status,
			Note:        input.Note,
			Operator:    input.Operator,
		}
		if err := s.redemptionRepo.WithTx(tx).Create(redemption); err != nil {
			return err
		}

		entry, err := s.ledgerSvc.ApplyDeltaTx(tx, LedgerApplyInput{
			MemberID:     member.ID,
			Delta:        -reward.PointsCost,
			Concept:      constants.LedgerConceptRedeem,
			Reference:    fmt.Sprintf("redeem:%d", redemption.ID),
			Description:  fmt.Sprintf("兑换 %s", reward.Name),
			RedemptionID: &redemption.ID,
			Operator:     input.Operator,
		})
		if err != nil {
			return err
		}

		// 首次兑换激活推荐关系
		count, err := s.redemptionRepo.WithTx(tx).CountByMember(member.ID)
		if err != nil {
			return err
		}
		if count == 1 {
			refJobs, refNotifs, err := s.referralSvc.ActivateOnQualifyingEventTx(tx, member.ID)
			if err != nil {
				return err
			}
			jobs = append(jobs, refJobs...)
			notifs = append(notifs, refNotifs...)
		}

		member, err = memberRepo.GetByID(member.ID)
		if err != nil {
			return err
		}

		ticketJob, err := s.syncSvc.EnqueueTx(tx, constants.SyncOpTicketCreate,
			fmt.Sprintf("redemption:%d", redemption.ID),
			TicketPayload{
				Kind:    reward.Kind,
				Subject: fmt.Sprintf("兑换交付：%s", reward.Name),
				Body:    fmt.Sprintf("会员 %s 兑换 %s，消耗 %d 积分", member.Phone, reward.Name, reward.PointsCost),
				Fields: map[string]interface{}{
					"redemption_id": redemption.ID,
					"member_phone":  member.Phone,
					"reward_id":     reward.ID,
					"points_spent":  reward.PointsCost,
				},
			}, constants.SyncSourceRedemption)
		if err != nil {
			return err
		}
		accountJob, err := s.syncSvc.EnqueueAccountSyncTx(tx, member, constants.SyncSourceRedemption)
		if err != nil {
			return err
		}
		jobs = append(jobs, ticketJob, accountJob)

		memberID := member.ID
		notif, err := s.notifSvc.EmitTx(tx, EmitInput{
			Event:    constants.NotifyEventRedemptionCreated,
			Audience: constants.NotifyAudienceMember,
			MemberID: &memberID,
			Title:    "兑换成功",
			Body:     fmt.Sprintf("您已兑换 %s，消耗 %d 积分，余额 %d", reward.Name, reward.PointsCost, entry.BalanceAfter),
			Payload:  models.JSON{"redemption_id": redemption.ID},
		})
		if err != nil {
			return err
		}
		notifs = append(notifs, notif)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.syncSvc.AfterCommit(jobs...)
	s.notifSvc.DispatchAfterCommit(notifs...)
	return redemption, nil
}

// MarkDelivered 标记兑换已交付
func (s *RedemptionService) MarkDelivered(id uint, operator string) (*models.Redemption, error) {
	var redemption *models.Redemption
	var jobs []*models.SyncJob
	var notifs []*models.Notification

	err := s.redemptionRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.redemptionRepo.WithTx(tx)
		found, err := repo.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if found == nil {
			return ErrRedemptionNotFound
		}
		if found.Status != constants.RedemptionStatusPendingDelivery &&
			found.Status != constants.RedemptionStatusInQueue {
			return ErrRedemptionStatusInvalid
		}

		now := time.Now()
		found.Status = constants.RedemptionStatusDelivered
		found.DeliveredAt = &now
		found.Operator = operator
		if err := repo.Update(found); err != nil {
			return err
		}
		redemption = found

		job, err := s.syncSvc.EnqueueTx(tx, constants.SyncOpStatusUpdate,
			fmt.Sprintf("redemption:%d", found.ID),
			StatusPayload{
				Status: constants.RedemptionStatusDelivered,
				Note:   fmt.Sprintf("兑换 #%d 已交付", found.ID),
			}, constants.SyncSourceRedemption)
		if err != nil {
			return err
		}
		jobs = append(jobs, job)

		memberID := found.MemberID
		notif, err := s.notifSvc.EmitTx(tx, EmitInput{
			Event:    constants.NotifyEventRedemptionDelivered,
			Audience: constants.NotifyAudienceMember,
			MemberID: &memberID,
			Title:    "兑换已交付",
			Body:     fmt.Sprintf("您兑换的 %s 已交付", found.RewardName),
			Payload:  models.JSON{"redemption_id": found.ID},
		})
		if err != nil {
			return err
		}
		notifs = append(notifs, notif)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.syncSvc.AfterCommit(jobs...)
	s.notifSvc.DispatchAfterCommit(notifs...)
	return redemption, nil
}

// Revert 回退兑换：退还积分并回补库存
// 生成反向流水而不是删除原流水，账本保持只增。
func (s *RedemptionService) Revert(id uint, operator, reason string) (*models.Redemption, error) {
	var redemption *models.Redemption
	var jobs []*models.SyncJob

	err := s.redemptionRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.redemptionRepo.WithTx(tx)
		found, err := repo.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if found == nil {
			return ErrRedemptionNotFound
		}
		if found.Status == constants.RedemptionStatusDelivered ||
			found.Status == constants.RedemptionStatusCompleted {
			return ErrRedemptionStatusInvalid
		}

		_, err = s.ledgerSvc.ApplyDeltaTx(tx, LedgerApplyInput{
			MemberID:     found.MemberID,
			Delta:        found.PointsSpent,
			Concept:      constants.LedgerConceptRevert,
			Reference:    fmt.Sprintf("revert:redeem:%d", found.ID),
			Description:  reason,
			RedemptionID: &found.ID,
			Operator:     operator,
		})
		if err != nil {
			return err
		}

		if err := s.rewardRepo.WithTx(tx).IncrementStock(found.RewardID); err != nil {
			return err
		}

		found.Status = constants.RedemptionStatusCompleted
		found.Note = reason
		found.Operator = operator
		if err := repo.Update(found); err != nil {
			return err
		}
		redemption = found

		member, err := s.memberRepo.WithTx(tx).GetByID(found.MemberID)
		if err != nil {
			return err
		}
		job, err := s.syncSvc.EnqueueAccountSyncTx(tx, member, constants.SyncSourceRedemption)
		if err != nil {
			return err
		}
		jobs = append(jobs, job)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.syncSvc.AfterCommit(jobs...)
	return redemption, nil
}

// GetByID 按ID获取兑换记录
func (s *RedemptionService) GetByID(id uint) (*models.Redemption, error) {
	redemption, err := s.redemptionRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if redemption == nil {
		return nil, ErrRedemptionNotFound
	}
	return redemption, nil
}

// List 分页查询兑换记录
func (s *RedemptionService) List(filter repository.RedemptionListFilter) ([]models.Redemption, int64, error) {
	return s.redemptionRepo.List(filter)
}
