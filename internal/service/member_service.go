package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/puntoz/puntoz/internal/config"
	"github.com/puntoz/puntoz/internal/constants"
	"github.com/puntoz/puntoz/internal/models"
	"github.com/puntoz/puntoz/internal/repository"

	"gorm.io/gorm"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{6,15}$`)

// MemberService 会员服务
type MemberService struct {
	memberRepo repository.MemberRepository
	ledgerRepo repository.LedgerRepository
	ledgerSvc  *LedgerService
	syncSvc    *SyncService
	program    config.ProgramConfig
}

// NewMemberService 创建会员服务
func NewMemberService(
	memberRepo repository.MemberRepository,
	ledgerRepo repository.LedgerRepository,
	ledgerSvc *LedgerService,
	syncSvc *SyncService,
	program config.ProgramConfig,
) *MemberService {
	return &MemberService{
		memberRepo: memberRepo,
		ledgerRepo: ledgerRepo,
		ledgerSvc:  ledgerSvc,
		syncSvc:    syncSvc,
		program:    program,
	}
}

// MemberCreateInput 会员创建输入
type MemberCreateInput struct {
	Phone string
	Name  string
}

// NormalizePhone 规范化手机号
func NormalizePhone(phone string) (string, error) {
	trimmed := strings.TrimSpace(phone)
	trimmed = strings.ReplaceAll(trimmed, " ", "")
	trimmed = strings.ReplaceAll(trimmed, "-", "")
	if !phonePattern.MatchString(trimmed) {
		return "", ErrMemberPhoneInvalid
	}
	return trimmed, nil
}

// GetByID 按ID获取会员
func (s *MemberService) GetByID(id uint) (*models.Member, error) {
	member, err := s.memberRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	return member, nil
}

// GetByPhone 按手机号获取会员
func (s *MemberService) GetByPhone(phone string) (*models.Member, error) {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}
	member, err := s.memberRepo.GetByPhone(normalized)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	return member, nil
}

// List 分页查询会员
func (s *MemberService) List(filter repository.MemberListFilter) ([]models.Member, int64, error) {
	return s.memberRepo.List(filter)
}

// ListLedger 查询会员积分流水
func (s *MemberService) ListLedger(filter repository.LedgerListFilter) ([]models.LedgerEntry, int64, error) {
	return s.ledgerRepo.List(filter)
}

// FindOrCreate 按手机号查找会员，不存在时创建并发放新人礼
func (s *MemberService) FindOrCreate(input MemberCreateInput) (*models.Member, bool, error) {
	var member *models.Member
	var created bool
	var jobs []*models.SyncJob
	err := s.memberRepo.Transaction(func(tx *gorm.DB) error {
		var err error
		member, created, err = s.FindOrCreateTx(tx, input)
		if err != nil {
			return err
		}
		if created {
			job, err := s.syncSvc.EnqueueAccountSyncTx(tx, member, constants.SyncSourceAdmin)
			if err != nil {
				return err
			}
			jobs = append(jobs, job)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	s.syncSvc.AfterCommit(jobs...)
	return member, created, nil
}

// FindOrCreateTx 事务内按手机号查找或创建会员
// 新会员创建后立即发放新人积分，引用键取会员ID保证重复调用幂等。
func (s *MemberService) FindOrCreateTx(tx *gorm.DB, input MemberCreateInput) (*models.Member, bool, error) {
	normalized, err := NormalizePhone(input.Phone)
	if err != nil {
		return nil, false, err
	}
	repo := s.memberRepo.WithTx(tx)
	member, err := repo.GetByPhone(normalized)
	if err != nil {
		return nil, false, err
	}
	if member != nil {
		if member.Status == constants.MemberStatusDisabled {
			return nil, false, ErrMemberDisabled
		}
		return member, false, nil
	}

	member = &models.Member{
		Phone:  normalized,
		Name:   strings.TrimSpace(input.Name),
		Tier:   constants.MemberTierStandard,
		Status: constants.MemberStatusActive,
	}
	if err := repo.Create(member); err != nil {
		return nil, false, err
	}

	if s.program.WelcomeBonusPoints > 0 {
		_, err := s.ledgerSvc.ApplyDeltaTx(tx, LedgerApplyInput{
			MemberID:    member.ID,
			Delta:       s.program.WelcomeBonusPoints,
			Concept:     constants.LedgerConceptWelcomeBonus,
			Reference:   fmt.Sprintf("welcome:%d", member.ID),
			Description: "新会员注册礼",
			Operator:    "system",
		})
		if err != nil {
			return nil, false, err
		}
		member, err = repo.GetByID(member.ID)
		if err != nil {
			return nil, false, err
		}
	}
	return member, true, nil
}

// UpdateProfile 更新会员资料（手机号不可变更）
func (s *MemberService) UpdateProfile(id uint, name, tier, status string) (*models.Member, error) {
	member, err := s.memberRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	if name = strings.TrimSpace(name); name != "" {
		member.Name = name
	}
	if tier == constants.MemberTierStandard || tier == constants.MemberTierVIP {
		member.Tier = tier
	}
	if status == constants.MemberStatusActive || status == constants.MemberStatusDisabled {
		member.Status = status
	}
	if err := s.memberRepo.Update(member); err != nil {
		return nil, err
	}
	return member, nil
}

// CheckBalance 核对会员余额与流水净额是否一致
func (s *MemberService) CheckBalance(id uint) (int64, int64, error) {
	member, err := s.GetByID(id)
	if err != nil {
		return 0, 0, err
	}
	sum, err := s.ledgerRepo.SumDeltaByMember(id)
	if err != nil {
		return 0, 0, err
	}
	return member.Points, sum, nil
}
