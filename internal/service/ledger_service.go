package service

import (
	"fmt"
	"strings"

	"github.com/puntoz/puntoz/internal/constants"
	"github.com/puntoz/puntoz/internal/models"
	"github.com/puntoz/puntoz/internal/repository"

	"gorm.io/gorm"
)

// LedgerService 积分账本服务
// 所有积分变动都经过 ApplyDeltaTx：锁定会员行、校验余额、
// 更新余额并写入带前后快照的流水，保证余额恒等于流水净额。
type LedgerService struct {
	memberRepo repository.MemberRepository
	ledgerRepo repository.LedgerRepository
	syncSvc    *SyncService
	notifSvc   *NotificationService
}

// NewLedgerService 创建积分账本服务
func NewLedgerService(
	memberRepo repository.MemberRepository,
	ledgerRepo repository.LedgerRepository,
	syncSvc *SyncService,
	notifSvc *NotificationService,
) *LedgerService {
	return &LedgerService{
		memberRepo: memberRepo,
		ledgerRepo: ledgerRepo,
		syncSvc:    syncSvc,
		notifSvc:   notifSvc,
	}
}

// LedgerApplyInput 事务内积分变更输入
type LedgerApplyInput struct {
	MemberID     uint
	Delta        int64 // 带符号，正数入账负数出账
	Concept      string
	Reference    string
	Description  string
	RedemptionID *uint
	GiftClaimID  *uint
	Operator     string
}

// GrantInput 积分调整输入
type GrantInput struct {
	MemberID    uint
	Phone       string
	Points      int64 // 带符号，负数为下调（冲正等场景）
	Concept     string
	Reference   string
	Description string
	Operator    string
}

// ApplyDeltaTx 在事务内变更会员积分并写入流水
// 引用键已存在时幂等返回原流水；余额不足时拒绝出账。
func (s *LedgerService) ApplyDeltaTx(tx *gorm.DB, input LedgerApplyInput) (*models.LedgerEntry, error) {
	if input.Delta == 0 {
		return nil, ErrPointsInvalid
	}
	reference := strings.TrimSpace(input.Reference)
	if reference == "" {
		return nil, ErrReferenceRequired
	}

	ledgerRepo := s.ledgerRepo.WithTx(tx)
	existing, err := ledgerRepo.GetByReference(reference)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.MemberID != input.MemberID || existing.Delta != input.Delta {
			return nil, ErrReferenceConflict
		}
		return existing, nil
	}

	memberRepo := s.memberRepo.WithTx(tx)
	member, err := memberRepo.GetByIDForUpdate(input.MemberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}

	before := member.Points
	after := before + input.Delta
	if after < 0 {
		return nil, ErrInsufficientPoints
	}

	member.Points = after
	if err := memberRepo.Update(member); err != nil {
		return nil, ErrBalanceUpdateFailed
	}

	direction := constants.LedgerDirectionIn
	if input.Delta < 0 {
		direction = constants.LedgerDirectionOut
	}
	entry := &models.LedgerEntry{
		MemberID:      input.MemberID,
		Delta:         input.Delta,
		Direction:     direction,
		Concept:       input.Concept,
		Reference:     reference,
		Description:   strings.TrimSpace(input.Description),
		RedemptionID:  input.RedemptionID,
		GiftClaimID:   input.GiftClaimID,
		BalanceBefore: before,
		BalanceAfter:  after,
		Operator:      strings.TrimSpace(input.Operator),
	}
	if err := ledgerRepo.Create(entry); err != nil {
		return nil, ErrLedgerCreateFailed
	}
	return entry, nil
}

// GrantPoints 调整会员积分，正数发放，负数下调
// 余额不足以承担下调时拒绝；引用键重复时幂等返回原流水，不会重复记账。
func (s *LedgerService) GrantPoints(input GrantInput) (*models.Member, *models.LedgerEntry, error) {
	if input.Points == 0 {
		return nil, nil, ErrPointsInvalid
	}
	concept := strings.TrimSpace(input.Concept)
	if concept == "" {
		return nil, nil, ErrConceptRequired
	}
	if strings.TrimSpace(input.Reference) == "" {
		return nil, nil, ErrReferenceRequired
	}

	var member *models.Member
	var entry *models.LedgerEntry
	var jobs []*models.SyncJob
	var notifs []*models.Notification

	err := s.memberRepo.Transaction(func(tx *gorm.DB) error {
		memberID := input.MemberID
		if memberID == 0 {
			normalized, err := NormalizePhone(input.Phone)
			if err != nil {
				return err
			}
			found, err := s.memberRepo.WithTx(tx).GetByPhone(normalized)
			if err != nil {
				return err
			}
			if found == nil {
				return ErrMemberNotFound
			}
			memberID = found.ID
		}

		applied, err := s.ApplyDeltaTx(tx, LedgerApplyInput{
			MemberID:    memberID,
			Delta:       input.Points,
			Concept:     concept,
			Reference:   input.Reference,
			Description: input.Description,
			Operator:    input.Operator,
		})
		if err != nil {
			return err
		}
		entry = applied

		member, err = s.memberRepo.WithTx(tx).GetByID(memberID)
		if err != nil {
			return err
		}

		job, err := s.syncSvc.EnqueueAccountSyncTx(tx, member, constants.SyncSourceLedger)
		if err != nil {
			return err
		}
		jobs = append(jobs, job)

		title := "积分到账"
		body := fmt.Sprintf("您获得 %d 积分，当前余额 %d", input.Points, entry.BalanceAfter)
		if input.Points < 0 {
			title = "积分调整"
			body = fmt.Sprintf("您的积分调整 %d，当前余额 %d", input.Points, entry.BalanceAfter)
		}
		notif, err := s.notifSvc.EmitTx(tx, EmitInput{
			Event:    constants.NotifyEventPointsGranted,
			Audience: constants.NotifyAudienceMember,
			MemberID: &memberID,
			Title:    title,
			Body:     body,
			Payload:  models.JSON{"ledger_entry_id": entry.ID, "delta": input.Points},
		})
		if err != nil {
			return err
		}
		notifs = append(notifs, notif)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.syncSvc.AfterCommit(jobs...)
	s.notifSvc.DispatchAfterCommit(notifs...)
	return member, entry, nil
}

// GetEntryByReference 按引用查询流水
func (s *LedgerService) GetEntryByReference(reference string) (*models.LedgerEntry, error) {
	entry, err := s.ledgerRepo.GetByReference(reference)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrLedgerEntryNotFound
	}
	return entry, nil
}

// List 分页查询流水
func (s *LedgerService) List(filter repository.LedgerListFilter) ([]models.LedgerEntry, int64, error) {
	return s.ledgerRepo.List(filter)
}
