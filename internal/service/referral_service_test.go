package service

import (
	"errors"
	"testing"
	"time"

	"github.com/puntoz/puntoz/internal/constants"
	"github.com/puntoz/puntoz/internal/models"
)

func TestGetOrCreateCodeIdempotent(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	member := createTestMember(t, env, "+8613400000001")

	first, err := env.referralSvc.GetOrCreateCode(member.ID)
	if err != nil {
		t.Fatalf("create code failed: %v", err)
	}
	if first.Code == "" || !first.IsActive || first.MaxUses != testProgram.ReferralMaxUses {
		t.Fatalf("unexpected code: %+v", first)
	}
	second, err := env.referralSvc.GetOrCreateCode(member.ID)
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if second.ID != first.ID || second.Code != first.Code {
		t.Fatalf("code not stable: %+v vs %+v", first, second)
	}

	if _, err := env.referralSvc.GetOrCreateCode(9999); !errors.Is(err, ErrMemberNotFound) {
		t.Fatalf("expected member not found, got: %v", err)
	}
}

func TestApplyCodeCreatesPendingRelationship(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	referrer := createTestMember(t, env, "+8613400000002")
	code, err := env.referralSvc.GetOrCreateCode(referrer.ID)
	if err != nil {
		t.Fatalf("create code failed: %v", err)
	}

	rel, referred, err := env.referralSvc.ApplyCode(ApplyCodeInput{
		Code:  code.Code,
		Phone: "+8613400000003",
		Name:  "被推荐人",
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if rel.Status != constants.ReferralStatusPending {
		t.Fatalf("status want pending, got %s", rel.Status)
	}
	if rel.ReferrerID != referrer.ID || rel.ReferredID != referred.ID {
		t.Fatalf("unexpected relationship: %+v", rel)
	}
	if rel.ReferrerPoints != testProgram.ReferrerRewardPoints || rel.ReferredPoints != testProgram.ReferredRewardPoints {
		t.Fatalf("bonus snapshot wrong: %+v", rel)
	}
	// 绑定阶段不发积分
	if referred.Points != testProgram.WelcomeBonusPoints {
		t.Fatalf("bonus granted before activation: %d", referred.Points)
	}
}

func TestApplyCodeRejectsSelfAndRebind(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	referrer := createTestMember(t, env, "+8613400000004")
	code, err := env.referralSvc.GetOrCreateCode(referrer.ID)
	if err != nil {
		t.Fatalf("create code failed: %v", err)
	}

	if _, _, err := env.referralSvc.ApplyCode(ApplyCodeInput{Code: code.Code, Phone: referrer.Phone}); !errors.Is(err, ErrReferralSelf) {
		t.Fatalf("expected self referral error, got: %v", err)
	}

	if _, _, err := env.referralSvc.ApplyCode(ApplyCodeInput{Code: code.Code, Phone: "+8613400000005"}); err != nil {
		t.Fatalf("first bind failed: %v", err)
	}
	if _, _, err := env.referralSvc.ApplyCode(ApplyCodeInput{Code: code.Code, Phone: "+8613400000005"}); !errors.Is(err, ErrReferralAlreadyBound) {
		t.Fatalf("expected already bound, got: %v", err)
	}

	if _, _, err := env.referralSvc.ApplyCode(ApplyCodeInput{Code: "PZRNOPE", Phone: "+8613400000006"}); !errors.Is(err, ErrReferralCodeInvalid) {
		t.Fatalf("expected code invalid, got: %v", err)
	}
}

func TestApplyCodeExhaustsUses(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	referrer := createTestMember(t, env, "+8613400000010")
	code, err := env.referralSvc.GetOrCreateCode(referrer.ID)
	if err != nil {
		t.Fatalf("create code failed: %v", err)
	}

	phones := []string{"+8613400000011", "+8613400000012", "+8613400000013"}
	for i, phone := range phones[:testProgram.ReferralMaxUses] {
		if _, _, err := env.referralSvc.ApplyCode(ApplyCodeInput{Code: code.Code, Phone: phone}); err != nil {
			t.Fatalf("bind %d failed: %v", i, err)
		}
	}
	_, _, err = env.referralSvc.ApplyCode(ApplyCodeInput{Code: code.Code, Phone: phones[2]})
	if !errors.Is(err, ErrReferralCodeExhausted) {
		t.Fatalf("expected code exhausted, got: %v", err)
	}
}

func TestReferralActivatesOnFirstRedemption(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	referrer := createTestMember(t, env, "+8613400000020")
	code, err := env.referralSvc.GetOrCreateCode(referrer.ID)
	if err != nil {
		t.Fatalf("create code failed: %v", err)
	}
	_, referred, err := env.referralSvc.ApplyCode(ApplyCodeInput{Code: code.Code, Phone: "+8613400000021"})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	reward := createTestReward(t, env, "激活礼", 50, 10, constants.RewardKindPhysical)
	if _, err := env.redeemSvc.Redeem(RedeemInput{MemberID: referred.ID, RewardID: reward.ID}); err != nil {
		t.Fatalf("first redeem failed: %v", err)
	}

	rel, err := env.referralSvc.GetRelationshipByReferred(referred.ID)
	if err != nil {
		t.Fatalf("load relationship failed: %v", err)
	}
	if rel.Status != constants.ReferralStatusActive || rel.ActivatedAt == nil {
		t.Fatalf("relationship not activated: %+v", rel)
	}

	var referrerAfter, referredAfter models.Member
	if err := env.db.First(&referrerAfter, referrer.ID).Error; err != nil {
		t.Fatalf("reload referrer failed: %v", err)
	}
	if err := env.db.First(&referredAfter, referred.ID).Error; err != nil {
		t.Fatalf("reload referred failed: %v", err)
	}
	if referrerAfter.Points != testProgram.WelcomeBonusPoints+testProgram.ReferrerRewardPoints {
		t.Fatalf("referrer bonus missing: %d", referrerAfter.Points)
	}
	wantReferred := testProgram.WelcomeBonusPoints - 50 + testProgram.ReferredRewardPoints
	if referredAfter.Points != wantReferred {
		t.Fatalf("referred balance want %d, got %d", wantReferred, referredAfter.Points)
	}

	// 第二次兑换不再触发奖励
	if _, err := env.redeemSvc.Redeem(RedeemInput{MemberID: referred.ID, RewardID: reward.ID}); err != nil {
		t.Fatalf("second redeem failed: %v", err)
	}
	var bonusEntries int64
	env.db.Model(&models.LedgerEntry{}).
		Where("concept IN ?", []string{constants.LedgerConceptReferrerBonus, constants.LedgerConceptReferredBonus}).
		Count(&bonusEntries)
	if bonusEntries != 2 {
		t.Fatalf("bonus entries want 2, got %d", bonusEntries)
	}
}

func TestExpireOverdueReferrals(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	referrer := createTestMember(t, env, "+8613400000030")
	code, err := env.referralSvc.GetOrCreateCode(referrer.ID)
	if err != nil {
		t.Fatalf("create code failed: %v", err)
	}
	rel, referred, err := env.referralSvc.ApplyCode(ApplyCodeInput{Code: code.Code, Phone: "+8613400000031"})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	past := time.Now().Add(-time.Hour)
	if err := env.db.Model(&models.ReferralRelationship{}).Where("id = ?", rel.ID).Update("activate_by", past).Error; err != nil {
		t.Fatalf("backdate failed: %v", err)
	}

	expired, err := env.referralSvc.ExpireOverdue(100)
	if err != nil {
		t.Fatalf("expire sweep failed: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expired count want 1, got %d", expired)
	}

	after, err := env.referralSvc.GetRelationshipByReferred(referred.ID)
	if err != nil {
		t.Fatalf("reload relationship failed: %v", err)
	}
	if after.Status != constants.ReferralStatusExpired {
		t.Fatalf("status want expired, got %s", after.Status)
	}

	// 过期后完成兑换不再补发奖励
	reward := createTestReward(t, env, "迟到礼", 10, 10, constants.RewardKindPhysical)
	if _, err := env.redeemSvc.Redeem(RedeemInput{MemberID: referred.ID, RewardID: reward.ID}); err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	var bonusEntries int64
	env.db.Model(&models.LedgerEntry{}).
		Where("concept IN ?", []string{constants.LedgerConceptReferrerBonus, constants.LedgerConceptReferredBonus}).
		Count(&bonusEntries)
	if bonusEntries != 0 {
		t.Fatalf("bonus granted on expired referral: %d entries", bonusEntries)
	}
}
