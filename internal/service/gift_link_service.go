package service

import (
	crand "crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/puntoz/puntoz/internal/config"
	"github.com/puntoz/puntoz/internal/constants"
	"github.com/puntoz/puntoz/internal/models"
	"github.com/puntoz/puntoz/internal/repository"

	"gorm.io/gorm"
)

const giftLinkCodePrefix = "GL"

// GiftLinkService 礼品链接服务
type GiftLinkService struct {
	giftRepo   repository.GiftLinkRepository
	memberRepo repository.MemberRepository
	memberSvc  *MemberService
	ledgerSvc  *LedgerService
	syncSvc    *SyncService
	notifSvc   *NotificationService
	program    config.ProgramConfig
}

// NewGiftLinkService 创建礼品链接服务
func NewGiftLinkService(
	giftRepo repository.GiftLinkRepository,
	memberRepo repository.MemberRepository,
	memberSvc *MemberService,
	ledgerSvc *LedgerService,
	syncSvc *SyncService,
	notifSvc *NotificationService,
	program config.ProgramConfig,
) *GiftLinkService {
	return &GiftLinkService{
		giftRepo:   giftRepo,
		memberRepo: memberRepo,
		memberSvc:  memberSvc,
		ledgerSvc:  ledgerSvc,
		syncSvc:    syncSvc,
		notifSvc:   notifSvc,
		program:    program,
	}
}

// GiftLinkCreateInput 礼品链接创建输入
type GiftLinkCreateInput struct {
	Title          string
	Message        string
	BenefitType    string
	PointsAmount   int64
	ServiceName    string
	ServiceValue   models.Money
	RecipientPhone string
	IsCampaign     bool
	MaxClaims      int
	ExpiresInHours int
	CreatedBy      string
}

// GiftClaimInput 礼品领取输入
type GiftClaimInput struct {
	Code     string
	Phone    string
	Name     string
	ClientIP string
}

// Create 创建礼品链接
// 普通链接限领一次；活动链接可指定领取上限。
func (s *GiftLinkService) Create(input GiftLinkCreateInput) (*models.GiftLink, error) {
	switch input.BenefitType {
	case constants.GiftBenefitPoints:
		if input.PointsAmount <= 0 {
			return nil, ErrGiftLinkInvalid
		}
	case constants.GiftBenefitService:
		if strings.TrimSpace(input.ServiceName) == "" {
			return nil, ErrGiftLinkInvalid
		}
	default:
		return nil, ErrGiftLinkInvalid
	}

	maxClaims := 1
	if input.IsCampaign {
		maxClaims = input.MaxClaims
		if maxClaims <= 0 {
			return nil, ErrGiftLinkInvalid
		}
	}

	recipient := ""
	if strings.TrimSpace(input.RecipientPhone) != "" {
		normalized, err := NormalizePhone(input.RecipientPhone)
		if err != nil {
			return nil, err
		}
		recipient = normalized
	}

	hours := input.ExpiresInHours
	if hours <= 0 {
		hours = s.program.GiftLinkDefaultTTLHours
	}
	var expiresAt *time.Time
	if hours > 0 {
		t := time.Now().Add(time.Duration(hours) * time.Hour)
		expiresAt = &t
	}

	link := &models.GiftLink{
		Code:           generateGiftLinkCode(time.Now()),
		Title:          strings.TrimSpace(input.Title),
		Message:        strings.TrimSpace(input.Message),
		BenefitType:    input.BenefitType,
		PointsAmount:   input.PointsAmount,
		ServiceName:    strings.TrimSpace(input.ServiceName),
		ServiceValue:   input.ServiceValue,
		RecipientPhone: recipient,
		IsCampaign:     input.IsCampaign,
		MaxClaims:      maxClaims,
		Status:         constants.GiftLinkStatusActive,
		ExpiresAt:      expiresAt,
		CreatedBy:      input.CreatedBy,
	}
	if err := s.giftRepo.Create(link); err != nil {
		return nil, err
	}
	return link, nil
}

// View 查看礼品链接并累加访问计数
// 计数为尽力而为，失败不影响查看。
func (s *GiftLinkService) View(code string) (*models.GiftLink, error) {
	link, err := s.giftRepo.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrGiftLinkNotFound
	}
	_ = s.giftRepo.IncrementViewCount(link.ID)
	link.ViewCount++
	return link, nil
}

// Claim 领取礼品
// 加锁校验链接状态后条件递增领取计数，同一会员对同一链接只能领取一次。
func (s *GiftLinkService) Claim(input GiftClaimInput) (*models.GiftClaim, *models.Member, error) {
	var claim *models.GiftClaim
	var member *models.Member
	var jobs []*models.SyncJob
	var notifs []*models.Notification

	err := s.giftRepo.Transaction(func(tx *gorm.DB) error {
		giftRepo := s.giftRepo.WithTx(tx)
		link, err := giftRepo.GetByCodeForUpdate(input.Code)
		if err != nil {
			return err
		}
		if link == nil {
			return ErrGiftLinkNotFound
		}
		now := time.Now()
		if link.Status != constants.GiftLinkStatusActive {
			return ErrGiftLinkDisabled
		}
		if link.IsExpired(now) {
			return ErrGiftLinkExpired
		}
		if link.IsExhausted() {
			return ErrGiftLinkExhausted
		}

		normalized, err := NormalizePhone(input.Phone)
		if err != nil {
			return err
		}
		if link.RecipientPhone != "" && link.RecipientPhone != normalized {
			return ErrGiftRecipientMismatch
		}

		member, _, err = s.memberSvc.FindOrCreateTx(tx, MemberCreateInput{
			Phone: normalized,
			Name:  input.Name,
		})
		if err != nil {
			return err
		}

		existing, err := giftRepo.GetClaimByLinkAndMember(link.ID, member.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrGiftAlreadyClaimed
		}

		incremented, err := giftRepo.IncrementClaimCount(link.ID)
		if err != nil {
			return err
		}
		if !incremented {
			return ErrGiftLinkExhausted
		}

		claim = &models.GiftClaim{
			GiftLinkID: link.ID,
			MemberID:   member.ID,
			Phone:      member.Phone,
			ClientIP:   input.ClientIP,
		}
		if err := giftRepo.CreateClaim(claim); err != nil {
			return err
		}

		body := ""
		switch link.BenefitType {
		case constants.GiftBenefitPoints:
			entry, err := s.ledgerSvc.ApplyDeltaTx(tx, LedgerApplyInput{
				MemberID:    member.ID,
				Delta:       link.PointsAmount,
				Concept:     constants.LedgerConceptGiftClaim,
				Reference:   fmt.Sprintf("gift_claim:%d", claim.ID),
				Description: fmt.Sprintf("领取礼品「%s」", link.Title),
				GiftClaimID: &claim.ID,
				Operator:    "system",
			})
			if err != nil {
				return err
			}
			body = fmt.Sprintf("您已领取 %d 积分，当前余额 %d", link.PointsAmount, entry.BalanceAfter)

		case constants.GiftBenefitService:
			// 服务权益走 CRM 工单交付
			job, err := s.syncSvc.EnqueueTx(tx, constants.SyncOpTicketCreate,
				fmt.Sprintf("gift_claim:%d", claim.ID),
				TicketPayload{
					Kind:    constants.GiftBenefitService,
					Subject: fmt.Sprintf("礼品服务交付：%s", link.ServiceName),
					Body:    fmt.Sprintf("会员 %s 领取服务「%s」", member.Phone, link.ServiceName),
					Fields: map[string]interface{}{
						"gift_claim_id": claim.ID,
						"gift_link_id":  link.ID,
						"member_phone":  member.Phone,
						"service_name":  link.ServiceName,
						"service_value": link.ServiceValue.String(),
					},
				}, constants.SyncSourceGiftClaim)
			if err != nil {
				return err
			}
			jobs = append(jobs, job)
			body = fmt.Sprintf("您已领取服务「%s」，稍后将为您安排", link.ServiceName)
		}

		member, err = s.memberRepo.WithTx(tx).GetByID(member.ID)
		if err != nil {
			return err
		}
		accountJob, err := s.syncSvc.EnqueueAccountSyncTx(tx, member, constants.SyncSourceGiftClaim)
		if err != nil {
			return err
		}
		jobs = append(jobs, accountJob)

		memberID := member.ID
		notif, err := s.notifSvc.EmitTx(tx, EmitInput{
			Event:    constants.NotifyEventGiftClaimed,
			Audience: constants.NotifyAudienceMember,
			MemberID: &memberID,
			Title:    "礼品领取成功",
			Body:     body,
			Payload:  models.JSON{"gift_claim_id": claim.ID, "gift_link_id": link.ID},
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
	return claim, member, nil
}

// Disable 停用礼品链接
func (s *GiftLinkService) Disable(id uint) (*models.GiftLink, error) {
	link, err := s.giftRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrGiftLinkNotFound
	}
	link.Status = constants.GiftLinkStatusDisabled
	if err := s.giftRepo.Update(link); err != nil {
		return nil, err
	}
	return link, nil
}

// GetByID 按ID获取礼品链接
func (s *GiftLinkService) GetByID(id uint) (*models.GiftLink, error) {
	link, err := s.giftRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrGiftLinkNotFound
	}
	return link, nil
}

// List 分页查询礼品链接
func (s *GiftLinkService) List(filter repository.GiftLinkListFilter) ([]models.GiftLink, int64, error) {
	return s.giftRepo.List(filter)
}

// ListClaims 分页查询领取记录
func (s *GiftLinkService) ListClaims(filter repository.GiftClaimListFilter) ([]models.GiftClaim, int64, error) {
	return s.giftRepo.ListClaims(filter)
}

func generateGiftLinkCode(now time.Time) string {
	return strings.ToUpper(fmt.Sprintf("%s%s%s", giftLinkCodePrefix, now.Format("060102150405"), randomHex(6)))
}

func randomHex(n int) string {
	if n <= 0 {
		return ""
	}
	buf := make([]byte, n)
	if _, err := crand.Read(buf); err != nil {
		fallback := make([]byte, n)
		for i := range fallback {
			fallback[i] = byte('A' + (i % 26))
		}
		return hex.EncodeToString(fallback)
	}
	return hex.EncodeToString(buf)
}
