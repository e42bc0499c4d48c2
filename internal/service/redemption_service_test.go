package service

import (
	"errors"
	"testing"

	"github.com/puntoz/puntoz/internal/constants"
	"github.com/puntoz/puntoz/internal/models"
)

func createTestReward(t *testing.T, env *loyaltyTestEnv, name string, cost int64, stock int, kind string) *models.Reward {
	t.Helper()
	reward, err := env.rewardSvc.Create(RewardInput{
		Name:       name,
		Kind:       kind,
		PointsCost: cost,
		Stock:      stock,
		IsActive:   true,
	})
	if err != nil {
		t.Fatalf("create reward failed: %v", err)
	}
	return reward
}

func TestRedeemHappyPath(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	member := createTestMember(t, env, "+8613600000001")
	if _, _, err := env.ledgerSvc.GrantPoints(GrantInput{MemberID: member.ID, Points: 1000, Concept: constants.LedgerConceptManualGrant, Reference: "topup:1"}); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	reward := createTestReward(t, env, "保温杯", 800, 5, constants.RewardKindPhysical)

	redemption, err := env.redeemSvc.Redeem(RedeemInput{MemberID: member.ID, RewardID: reward.ID})
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if redemption.Status != constants.RedemptionStatusPendingDelivery {
		t.Fatalf("status want pending_delivery, got %s", redemption.Status)
	}
	if redemption.PointsSpent != 800 || redemption.RewardName != "保温杯" {
		t.Fatalf("unexpected redemption: %+v", redemption)
	}

	var after models.Member
	if err := env.db.First(&after, member.ID).Error; err != nil {
		t.Fatalf("reload member failed: %v", err)
	}
	if after.Points != testProgram.WelcomeBonusPoints+1000-800 {
		t.Fatalf("balance want %d, got %d", testProgram.WelcomeBonusPoints+200, after.Points)
	}

	var rewardAfter models.Reward
	if err := env.db.First(&rewardAfter, reward.ID).Error; err != nil {
		t.Fatalf("reload reward failed: %v", err)
	}
	if rewardAfter.Stock != 4 {
		t.Fatalf("stock want 4, got %d", rewardAfter.Stock)
	}

	var entry models.LedgerEntry
	if err := env.db.Where("redemption_id = ?", redemption.ID).First(&entry).Error; err != nil {
		t.Fatalf("load redeem entry failed: %v", err)
	}
	if entry.Direction != constants.LedgerDirectionOut || entry.Delta != -800 {
		t.Fatalf("unexpected redeem entry: %+v", entry)
	}

	var ticketJobs int64
	env.db.Model(&models.SyncJob{}).Where("op_type = ?", constants.SyncOpTicketCreate).Count(&ticketJobs)
	if ticketJobs != 1 {
		t.Fatalf("ticket sync jobs want 1, got %d", ticketJobs)
	}
}

func TestRedeemInsufficientPoints(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	member := createTestMember(t, env, "+8613600000002")
	reward := createTestReward(t, env, "蓝牙音箱", 5000, 5, constants.RewardKindPhysical)

	_, err := env.redeemSvc.Redeem(RedeemInput{MemberID: member.ID, RewardID: reward.ID})
	if !errors.Is(err, ErrInsufficientPoints) {
		t.Fatalf("expected insufficient points, got: %v", err)
	}

	// 失败的兑换不得扣减库存
	var after models.Reward
	if err := env.db.First(&after, reward.ID).Error; err != nil {
		t.Fatalf("reload reward failed: %v", err)
	}
	if after.Stock != 5 {
		t.Fatalf("stock mutated by rejected redeem: %d", after.Stock)
	}
	var count int64
	env.db.Model(&models.Redemption{}).Count(&count)
	if count != 0 {
		t.Fatalf("redemption rows want 0, got %d", count)
	}
}

func TestRedeemOutOfStock(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	member := createTestMember(t, env, "+8613600000003")
	if _, _, err := env.ledgerSvc.GrantPoints(GrantInput{MemberID: member.ID, Points: 2000, Concept: constants.LedgerConceptManualGrant, Reference: "topup:stock"}); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	reward := createTestReward(t, env, "限量礼盒", 100, 1, constants.RewardKindPhysical)

	if _, err := env.redeemSvc.Redeem(RedeemInput{MemberID: member.ID, RewardID: reward.ID}); err != nil {
		t.Fatalf("first redeem failed: %v", err)
	}
	_, err := env.redeemSvc.Redeem(RedeemInput{MemberID: member.ID, RewardID: reward.ID})
	if !errors.Is(err, ErrRewardOutOfStock) {
		t.Fatalf("expected out of stock, got: %v", err)
	}

	var after models.Reward
	if err := env.db.First(&after, reward.ID).Error; err != nil {
		t.Fatalf("reload reward failed: %v", err)
	}
	if after.Stock != 0 {
		t.Fatalf("stock went negative: %d", after.Stock)
	}
}

func TestRedeemInsufficientPointsBeforeStock(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	member := createTestMember(t, env, "+8613600000013")
	reward := createTestReward(t, env, "售罄礼盒", testProgram.WelcomeBonusPoints+1, 0, constants.RewardKindPhysical)

	// 余额和库存同时不满足时先报余额不足
	_, err := env.redeemSvc.Redeem(RedeemInput{MemberID: member.ID, RewardID: reward.ID})
	if !errors.Is(err, ErrInsufficientPoints) {
		t.Fatalf("expected insufficient points, got: %v", err)
	}
}

func TestRedeemServiceRewardUnlimitedStock(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	member := createTestMember(t, env, "+8613600000004")
	if _, _, err := env.ledgerSvc.GrantPoints(GrantInput{MemberID: member.ID, Points: 5000, Concept: constants.LedgerConceptManualGrant, Reference: "topup:svc"}); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	reward := createTestReward(t, env, "上门保养", 1000, 0, constants.RewardKindService)
	if !reward.HasUnlimitedStock() {
		t.Fatalf("service reward should default to unlimited stock, got %d", reward.Stock)
	}

	for i := 0; i < 3; i++ {
		redemption, err := env.redeemSvc.Redeem(RedeemInput{MemberID: member.ID, RewardID: reward.ID})
		if err != nil {
			t.Fatalf("redeem %d failed: %v", i, err)
		}
		if redemption.Status != constants.RedemptionStatusInQueue {
			t.Fatalf("service redemption status want in_queue, got %s", redemption.Status)
		}
	}
}

func TestRedeemInactiveReward(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	member := createTestMember(t, env, "+8613600000005")
	reward := createTestReward(t, env, "下架奖品", 10, 5, constants.RewardKindPhysical)
	if _, err := env.rewardSvc.Update(reward.ID, RewardInput{
		Name:       reward.Name,
		Kind:       reward.Kind,
		PointsCost: reward.PointsCost,
		Stock:      reward.Stock,
		IsActive:   false,
	}); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}

	_, err := env.redeemSvc.Redeem(RedeemInput{MemberID: member.ID, RewardID: reward.ID})
	if !errors.Is(err, ErrRewardInactive) {
		t.Fatalf("expected reward inactive, got: %v", err)
	}
}

func TestMarkDeliveredTransitions(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	member := createTestMember(t, env, "+8613600000006")
	if _, _, err := env.ledgerSvc.GrantPoints(GrantInput{MemberID: member.ID, Points: 500, Concept: constants.LedgerConceptManualGrant, Reference: "topup:deliver"}); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	reward := createTestReward(t, env, "马克杯", 200, 3, constants.RewardKindPhysical)
	redemption, err := env.redeemSvc.Redeem(RedeemInput{MemberID: member.ID, RewardID: reward.ID})
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}

	delivered, err := env.redeemSvc.MarkDelivered(redemption.ID, "ops")
	if err != nil {
		t.Fatalf("mark delivered failed: %v", err)
	}
	if delivered.Status != constants.RedemptionStatusDelivered || delivered.DeliveredAt == nil {
		t.Fatalf("unexpected delivered state: %+v", delivered)
	}

	if _, err := env.redeemSvc.MarkDelivered(redemption.ID, "ops"); !errors.Is(err, ErrRedemptionStatusInvalid) {
		t.Fatalf("expected status invalid on double delivery, got: %v", err)
	}

	var statusJobs int64
	env.db.Model(&models.SyncJob{}).Where("op_type = ?", constants.SyncOpStatusUpdate).Count(&statusJobs)
	if statusJobs != 1 {
		t.Fatalf("status update jobs want 1, got %d", statusJobs)
	}
}

func TestRevertRestoresPointsAndStock(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	member := createTestMember(t, env, "+8613600000007")
	if _, _, err := env.ledgerSvc.GrantPoints(GrantInput{MemberID: member.ID, Points: 500, Concept: constants.LedgerConceptManualGrant, Reference: "topup:revert"}); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	reward := createTestReward(t, env, "雨伞", 300, 2, constants.RewardKindPhysical)
	redemption, err := env.redeemSvc.Redeem(RedeemInput{MemberID: member.ID, RewardID: reward.ID})
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}

	balanceBefore, _, _ := env.memberSvc.CheckBalance(member.ID)
	reverted, err := env.redeemSvc.Revert(redemption.ID, "ops", "会员取消")
	if err != nil {
		t.Fatalf("revert failed: %v", err)
	}
	if reverted.Status != constants.RedemptionStatusCompleted {
		t.Fatalf("status want completed, got %s", reverted.Status)
	}

	balance, sum, err := env.memberSvc.CheckBalance(member.ID)
	if err != nil {
		t.Fatalf("check balance failed: %v", err)
	}
	if balance != balanceBefore+300 || balance != sum {
		t.Fatalf("points not restored: before=%d after=%d sum=%d", balanceBefore, balance, sum)
	}

	var rewardAfter models.Reward
	if err := env.db.First(&rewardAfter, reward.ID).Error; err != nil {
		t.Fatalf("reload reward failed: %v", err)
	}
	if rewardAfter.Stock != 2 {
		t.Fatalf("stock not restored: %d", rewardAfter.Stock)
	}

	// 冲正生成反向流水而不是删除原流水
	var entries int64
	env.db.Model(&models.LedgerEntry{}).Where("redemption_id = ?", redemption.ID).Count(&entries)
	if entries != 2 {
		t.Fatalf("ledger entries for redemption want 2, got %d", entries)
	}

	// 已交付的兑换不允许冲正
	other, err := env.redeemSvc.Redeem(RedeemInput{MemberID: member.ID, RewardID: reward.ID})
	if err != nil {
		t.Fatalf("second redeem failed: %v", err)
	}
	if _, err := env.redeemSvc.MarkDelivered(other.ID, "ops"); err != nil {
		t.Fatalf("mark delivered failed: %v", err)
	}
	if _, err := env.redeemSvc.Revert(other.ID, "ops", "too late"); !errors.Is(err, ErrRedemptionStatusInvalid) {
		t.Fatalf("expected status invalid reverting delivered redemption, got: %v", err)
	}
}

func TestRewardInputValidation(t *testing.T) {
	env := setupLoyaltyTest(t, nil)

	cases := []RewardInput{
		{Name: "", Kind: constants.RewardKindPhysical, PointsCost: 10, Stock: 1},
		{Name: "x", Kind: "digital", PointsCost: 10, Stock: 1},
		{Name: "x", Kind: constants.RewardKindPhysical, PointsCost: 0, Stock: 1},
		{Name: "x", Kind: constants.RewardKindPhysical, PointsCost: 10, Stock: -2},
	}
	for i, input := range cases {
		if _, err := env.rewardSvc.Create(input); !errors.Is(err, ErrRewardInvalid) {
			t.Fatalf("case %d: expected reward invalid, got: %v", i, err)
		}
	}
}
