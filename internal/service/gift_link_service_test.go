package service

import (
	"errors"
	"testing"
	"time"

	"github.com/puntoz/puntoz/internal/constants"
	"github.com/puntoz/puntoz/internal/models"
)

func TestGiftLinkCreateValidation(t *testing.T) {
	env := setupLoyaltyTest(t, nil)

	if _, err := env.giftSvc.Create(GiftLinkCreateInput{
		BenefitType:  constants.GiftBenefitPoints,
		PointsAmount: 0,
	}); !errors.Is(err, ErrGiftLinkInvalid) {
		t.Fatalf("expected invalid for zero points, got: %v", err)
	}
	if _, err := env.giftSvc.Create(GiftLinkCreateInput{
		BenefitType: constants.GiftBenefitService,
		ServiceName: "",
	}); !errors.Is(err, ErrGiftLinkInvalid) {
		t.Fatalf("expected invalid for empty service name, got: %v", err)
	}
	if _, err := env.giftSvc.Create(GiftLinkCreateInput{
		BenefitType:  "coupon",
		PointsAmount: 10,
	}); !errors.Is(err, ErrGiftLinkInvalid) {
		t.Fatalf("expected invalid benefit type, got: %v", err)
	}
}

func TestClaimPointsGiftCreatesMemberAndCredits(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	link, err := env.giftSvc.Create(GiftLinkCreateInput{
		Title:        "感恩回馈",
		BenefitType:  constants.GiftBenefitPoints,
		PointsAmount: 500,
		CreatedBy:    "ops",
	})
	if err != nil {
		t.Fatalf("create link failed: %v", err)
	}
	if link.Code == "" || link.MaxClaims != 1 {
		t.Fatalf("unexpected link: %+v", link)
	}

	claim, member, err := env.giftSvc.Claim(GiftClaimInput{
		Code:     link.Code,
		Phone:    "+8613500000001",
		Name:     "新客",
		ClientIP: "203.0.113.9",
	})
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if claim.GiftLinkID != link.ID || claim.MemberID != member.ID {
		t.Fatalf("unexpected claim: %+v", claim)
	}
	// 新会员：新人礼 + 礼品积分
	if member.Points != testProgram.WelcomeBonusPoints+500 {
		t.Fatalf("balance want %d, got %d", testProgram.WelcomeBonusPoints+500, member.Points)
	}

	var entry models.LedgerEntry
	if err := env.db.Where("gift_claim_id = ?", claim.ID).First(&entry).Error; err != nil {
		t.Fatalf("load gift entry failed: %v", err)
	}
	if entry.Delta != 500 || entry.Concept != constants.LedgerConceptGiftClaim {
		t.Fatalf("unexpected gift entry: %+v", entry)
	}
}

func TestClaimGiftTwiceRejected(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	link, err := env.giftSvc.Create(GiftLinkCreateInput{
		Title:        "双重领取",
		BenefitType:  constants.GiftBenefitPoints,
		PointsAmount: 100,
		IsCampaign:   true,
		MaxClaims:    10,
	})
	if err != nil {
		t.Fatalf("create link failed: %v", err)
	}

	if _, _, err := env.giftSvc.Claim(GiftClaimInput{Code: link.Code, Phone: "+8613500000002"}); err != nil {
		t.Fatalf("first claim failed: %v", err)
	}
	_, _, err = env.giftSvc.Claim(GiftClaimInput{Code: link.Code, Phone: "+8613500000002"})
	if !errors.Is(err, ErrGiftAlreadyClaimed) {
		t.Fatalf("expected already claimed, got: %v", err)
	}
}

func TestCampaignGiftExhausted(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	link, err := env.giftSvc.Create(GiftLinkCreateInput{
		Title:        "限量活动",
		BenefitType:  constants.GiftBenefitPoints,
		PointsAmount: 50,
		IsCampaign:   true,
		MaxClaims:    2,
	})
	if err != nil {
		t.Fatalf("create link failed: %v", err)
	}

	phones := []string{"+8613500000011", "+8613500000012", "+8613500000013"}
	for i, phone := range phones[:2] {
		if _, _, err := env.giftSvc.Claim(GiftClaimInput{Code: link.Code, Phone: phone}); err != nil {
			t.Fatalf("claim %d failed: %v", i, err)
		}
	}
	_, _, err = env.giftSvc.Claim(GiftClaimInput{Code: link.Code, Phone: phones[2]})
	if !errors.Is(err, ErrGiftLinkExhausted) {
		t.Fatalf("expected exhausted, got: %v", err)
	}

	var after models.GiftLink
	if err := env.db.First(&after, link.ID).Error; err != nil {
		t.Fatalf("reload link failed: %v", err)
	}
	if after.ClaimCount != 2 {
		t.Fatalf("claim count overran max: %d", after.ClaimCount)
	}
}

func TestClaimExhaustedBeforeRecipientCheck(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	link, err := env.giftSvc.Create(GiftLinkCreateInput{
		Title:          "专属礼",
		BenefitType:    constants.GiftBenefitPoints,
		PointsAmount:   50,
		RecipientPhone: "+8613500000014",
	})
	if err != nil {
		t.Fatalf("create link failed: %v", err)
	}
	if _, _, err := env.giftSvc.Claim(GiftClaimInput{Code: link.Code, Phone: "+8613500000014"}); err != nil {
		t.Fatalf("claim by recipient failed: %v", err)
	}

	// 已领完的链接对任何手机号都报已领完，不泄露收礼人校验结果
	_, _, err = env.giftSvc.Claim(GiftClaimInput{Code: link.Code, Phone: "+8613500000015"})
	if !errors.Is(err, ErrGiftLinkExhausted) {
		t.Fatalf("expected exhausted, got: %v", err)
	}
}

func TestClaimExpiredGift(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	link, err := env.giftSvc.Create(GiftLinkCreateInput{
		Title:          "过期链接",
		BenefitType:    constants.GiftBenefitPoints,
		PointsAmount:   100,
		ExpiresInHours: 1,
	})
	if err != nil {
		t.Fatalf("create link failed: %v", err)
	}
	past := time.Now().Add(-time.Hour)
	if err := env.db.Model(&models.GiftLink{}).Where("id = ?", link.ID).Update("expires_at", past).Error; err != nil {
		t.Fatalf("backdate link failed: %v", err)
	}

	_, _, err = env.giftSvc.Claim(GiftClaimInput{Code: link.Code, Phone: "+8613500000021"})
	if !errors.Is(err, ErrGiftLinkExpired) {
		t.Fatalf("expected expired, got: %v", err)
	}
}

func TestClaimRecipientMismatch(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	link, err := env.giftSvc.Create(GiftLinkCreateInput{
		Title:          "专属礼",
		BenefitType:    constants.GiftBenefitPoints,
		PointsAmount:   100,
		RecipientPhone: "+8613500000031",
	})
	if err != nil {
		t.Fatalf("create link failed: %v", err)
	}

	_, _, err = env.giftSvc.Claim(GiftClaimInput{Code: link.Code, Phone: "+8613500000032"})
	if !errors.Is(err, ErrGiftRecipientMismatch) {
		t.Fatalf("expected recipient mismatch, got: %v", err)
	}
	if _, _, err := env.giftSvc.Claim(GiftClaimInput{Code: link.Code, Phone: "+8613500000031"}); err != nil {
		t.Fatalf("claim by intended recipient failed: %v", err)
	}
}

func TestClaimDisabledGift(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	link, err := env.giftSvc.Create(GiftLinkCreateInput{
		Title:        "停用链接",
		BenefitType:  constants.GiftBenefitPoints,
		PointsAmount: 100,
	})
	if err != nil {
		t.Fatalf("create link failed: %v", err)
	}
	if _, err := env.giftSvc.Disable(link.ID); err != nil {
		t.Fatalf("disable failed: %v", err)
	}

	_, _, err = env.giftSvc.Claim(GiftClaimInput{Code: link.Code, Phone: "+8613500000041"})
	if !errors.Is(err, ErrGiftLinkDisabled) {
		t.Fatalf("expected disabled, got: %v", err)
	}
}

func TestClaimServiceGiftCreatesTicketJob(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	link, err := env.giftSvc.Create(GiftLinkCreateInput{
		Title:        "服务礼",
		BenefitType:  constants.GiftBenefitService,
		ServiceName:  "免费保养一次",
		ServiceValue: models.NewMoneyFromFloat(120),
	})
	if err != nil {
		t.Fatalf("create link failed: %v", err)
	}

	claim, member, err := env.giftSvc.Claim(GiftClaimInput{Code: link.Code, Phone: "+8613500000051"})
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	// 服务权益不改积分，只发新人礼
	if member.Points != testProgram.WelcomeBonusPoints {
		t.Fatalf("service gift changed balance: %d", member.Points)
	}

	var ticketJobs int64
	env.db.Model(&models.SyncJob{}).
		Where("op_type = ? AND source = ?", constants.SyncOpTicketCreate, constants.SyncSourceGiftClaim).
		Count(&ticketJobs)
	if ticketJobs != 1 {
		t.Fatalf("ticket jobs want 1, got %d", ticketJobs)
	}
	_ = claim
}

func TestViewGiftIncrementsCounter(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	link, err := env.giftSvc.Create(GiftLinkCreateInput{
		Title:        "浏览计数",
		BenefitType:  constants.GiftBenefitPoints,
		PointsAmount: 10,
	})
	if err != nil {
		t.Fatalf("create link failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := env.giftSvc.View(link.Code); err != nil {
			t.Fatalf("view %d failed: %v", i, err)
		}
	}
	var after models.GiftLink
	if err := env.db.First(&after, link.ID).Error; err != nil {
		t.Fatalf("reload link failed: %v", err)
	}
	if after.ViewCount != 3 {
		t.Fatalf("view count want 3, got %d", after.ViewCount)
	}

	if _, err := env.giftSvc.View("PZNOPE"); !errors.Is(err, ErrGiftLinkNotFound) {
		t.Fatalf("expected not found, got: %v", err)
	}
}
