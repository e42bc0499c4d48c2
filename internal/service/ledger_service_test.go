package service

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/puntoz/puntoz/internal/config"
	"github.com/puntoz/puntoz/internal/constants"
	"github.com/puntoz/puntoz/internal/crm"
	"github.com/puntoz/puntoz/internal/models"
	"github.com/puntoz/puntoz/internal/queue"
	"github.com/puntoz/puntoz/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type loyaltyTestEnv struct {
	db          *gorm.DB
	memberSvc   *MemberService
	ledgerSvc   *LedgerService
	rewardSvc   *RewardService
	redeemSvc   *RedemptionService
	giftSvc     *GiftLinkService
	referralSvc *ReferralService
	syncSvc     *SyncService
	notifSvc    *NotificationService
	syncRepo    repository.SyncJobRepository
	crmCalls    *atomic.Int64
}

var testProgram = config.ProgramConfig{
	WelcomeBonusPoints:   100,
	ReferrerRewardPoints: 200,
	ReferredRewardPoints: 50,
	ReferralWindowDays:   30,
	ReferralMaxUses:      2,
}

var testOutbox = config.OutboxConfig{
	BatchSize:          20,
	ClaimTTLSeconds:    60,
	MaxAttempts:        3,
	BackoffBaseSeconds: 30,
	BackoffMaxSeconds:  600,
	ImmediateTimeoutMS: 2000,
}

func crmOKHandler(calls *atomic.Int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status_code":0,"msg":"ok","data":{"remote_id":"crm-100"}}`)
	}
}

func setupLoyaltyTest(t *testing.T, crmHandler http.HandlerFunc) *loyaltyTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:loyalty_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Admin{},
		&models.Member{},
		&models.LedgerEntry{},
		&models.Reward{},
		&models.Redemption{},
		&models.GiftLink{},
		&models.GiftClaim{},
		&models.ReferralCode{},
		&models.ReferralRelationship{},
		&models.SyncJob{},
		&models.Notification{},
		&models.Setting{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	calls := &atomic.Int64{}
	if crmHandler == nil {
		crmHandler = crmOKHandler(calls)
	}
	crmSrv := httptest.NewServer(crmHandler)
	t.Cleanup(crmSrv.Close)

	memberRepo := repository.NewMemberRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	rewardRepo := repository.NewRewardRepository(db)
	redemptionRepo := repository.NewRedemptionRepository(db)
	giftRepo := repository.NewGiftLinkRepository(db)
	referralRepo := repository.NewReferralRepository(db)
	syncRepo := repository.NewSyncJobRepository(db)
	notifRepo := repository.NewNotificationRepository(db)

	queueCli, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("new queue client failed: %v", err)
	}
	crmClient := crm.NewClient(crm.Config{BaseURL: crmSrv.URL, Token: "test-token", Timeout: 2 * time.Second})

	notifSvc := NewNotificationService(notifRepo, queueCli, nil)
	syncSvc := NewSyncService(syncRepo, memberRepo, crmClient, queueCli, notifSvc, testOutbox)
	ledgerSvc := NewLedgerService(memberRepo, ledgerRepo, syncSvc, notifSvc)
	memberSvc := NewMemberService(memberRepo, ledgerRepo, ledgerSvc, syncSvc, testProgram)
	referralSvc := NewReferralService(referralRepo, memberRepo, memberSvc, ledgerSvc, syncSvc, notifSvc, testProgram)
	giftSvc := NewGiftLinkService(giftRepo, memberRepo, memberSvc, ledgerSvc, syncSvc, notifSvc, testProgram)
	rewardSvc := NewRewardService(rewardRepo)
	redeemSvc := NewRedemptionService(memberRepo, rewardRepo, redemptionRepo, ledgerSvc, referralSvc, syncSvc, notifSvc)

	return &loyaltyTestEnv{
		db:          db,
		memberSvc:   memberSvc,
		ledgerSvc:   ledgerSvc,
		rewardSvc:   rewardSvc,
		redeemSvc:   redeemSvc,
		giftSvc:     giftSvc,
		referralSvc: referralSvc,
		syncSvc:     syncSvc,
		notifSvc:    notifSvc,
		syncRepo:    syncRepo,
		crmCalls:    calls,
	}
}

func createTestMember(t *testing.T, env *loyaltyTestEnv, phone string) *models.Member {
	t.Helper()
	member, _, err := env.memberSvc.FindOrCreate(MemberCreateInput{Phone: phone, Name: "测试会员"})
	if err != nil {
		t.Fatalf("find or create member failed: %v", err)
	}
	return member
}

func TestGrantPointsWritesLedgerAndBalance(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	member := createTestMember(t, env, "+8613900000001")
	if member.Points != testProgram.WelcomeBonusPoints {
		t.Fatalf("welcome bonus not granted, points=%d", member.Points)
	}

	updated, entry, err := env.ledgerSvc.GrantPoints(GrantInput{
		MemberID:  member.ID,
		Points:    250,
		Concept:   constants.LedgerConceptManualGrant,
		Reference: "campaign:spring:1",
		Operator:  "ops",
	})
	if err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if updated.Points != 350 {
		t.Fatalf("balance want 350, got %d", updated.Points)
	}
	if entry.Direction != constants.LedgerDirectionIn || entry.Concept != constants.LedgerConceptManualGrant {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.BalanceBefore != 100 || entry.BalanceAfter != 350 {
		t.Fatalf("balance snapshot want 100->350, got %d->%d", entry.BalanceBefore, entry.BalanceAfter)
	}

	balance, sum, err := env.memberSvc.CheckBalance(member.ID)
	if err != nil {
		t.Fatalf("check balance failed: %v", err)
	}
	if balance != sum {
		t.Fatalf("balance %d diverged from ledger sum %d", balance, sum)
	}
}

func TestGrantPointsIdempotentReference(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	member := createTestMember(t, env, "+8613900000002")

	first, firstEntry, err := env.ledgerSvc.GrantPoints(GrantInput{
		MemberID:  member.ID,
		Points:    80,
		Concept:   constants.LedgerConceptManualGrant,
		Reference: "campaign:dup:1",
	})
	if err != nil {
		t.Fatalf("first grant failed: %v", err)
	}
	second, secondEntry, err := env.ledgerSvc.GrantPoints(GrantInput{
		MemberID:  member.ID,
		Points:    80,
		Concept:   constants.LedgerConceptManualGrant,
		Reference: "campaign:dup:1",
	})
	if err != nil {
		t.Fatalf("second grant failed: %v", err)
	}
	if secondEntry.ID != firstEntry.ID {
		t.Fatalf("expected same ledger entry, got %d vs %d", firstEntry.ID, secondEntry.ID)
	}
	if second.Points != first.Points {
		t.Fatalf("balance changed on replay: %d vs %d", first.Points, second.Points)
	}

	var count int64
	env.db.Model(&models.LedgerEntry{}).Where("reference = ?", "campaign:dup:1").Count(&count)
	if count != 1 {
		t.Fatalf("reference rows want 1, got %d", count)
	}
}

func TestGrantPointsReferenceConflict(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	member := createTestMember(t, env, "+8613900000003")

	if _, _, err := env.ledgerSvc.GrantPoints(GrantInput{
		MemberID:  member.ID,
		Points:    30,
		Concept:   constants.LedgerConceptManualGrant,
		Reference: "campaign:conflict:1",
	}); err != nil {
		t.Fatalf("first grant failed: %v", err)
	}
	_, _, err := env.ledgerSvc.GrantPoints(GrantInput{
		MemberID:  member.ID,
		Points:    60,
		Concept:   constants.LedgerConceptManualGrant,
		Reference: "campaign:conflict:1",
	})
	if !errors.Is(err, ErrReferenceConflict) {
		t.Fatalf("expected reference conflict, got: %v", err)
	}
}

func TestGrantPointsValidation(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	member := createTestMember(t, env, "+8613900000004")

	grantConcept := constants.LedgerConceptManualGrant
	if _, _, err := env.ledgerSvc.GrantPoints(GrantInput{MemberID: member.ID, Points: 0, Concept: grantConcept, Reference: "x:1"}); !errors.Is(err, ErrPointsInvalid) {
		t.Fatalf("expected points invalid, got: %v", err)
	}
	if _, _, err := env.ledgerSvc.GrantPoints(GrantInput{MemberID: member.ID, Points: 10, Concept: "  ", Reference: "x:2"}); !errors.Is(err, ErrConceptRequired) {
		t.Fatalf("expected concept required, got: %v", err)
	}
	if _, _, err := env.ledgerSvc.GrantPoints(GrantInput{MemberID: member.ID, Points: 10, Concept: grantConcept, Reference: "  "}); !errors.Is(err, ErrReferenceRequired) {
		t.Fatalf("expected reference required, got: %v", err)
	}
	if _, _, err := env.ledgerSvc.GrantPoints(GrantInput{Phone: "+8613999999999", Points: 10, Concept: grantConcept, Reference: "x:3"}); !errors.Is(err, ErrMemberNotFound) {
		t.Fatalf("expected member not found, got: %v", err)
	}
}

func TestGrantPointsNegativeCorrection(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	member := createTestMember(t, env, "+8613900000007")

	updated, entry, err := env.ledgerSvc.GrantPoints(GrantInput{
		MemberID:  member.ID,
		Points:    -30,
		Concept:   "correction",
		Reference: "correction:1",
		Operator:  "ops",
	})
	if err != nil {
		t.Fatalf("downward correction failed: %v", err)
	}
	if updated.Points != testProgram.WelcomeBonusPoints-30 {
		t.Fatalf("balance want %d, got %d", testProgram.WelcomeBonusPoints-30, updated.Points)
	}
	if entry.Direction != constants.LedgerDirectionOut || entry.Concept != "correction" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.Delta != -30 {
		t.Fatalf("delta want -30, got %d", entry.Delta)
	}

	// 超出余额的下调被拒绝，余额保持不变
	_, _, err = env.ledgerSvc.GrantPoints(GrantInput{
		MemberID:  member.ID,
		Points:    -(updated.Points + 1),
		Concept:   "correction",
		Reference: "correction:2",
	})
	if !errors.Is(err, ErrInsufficientPoints) {
		t.Fatalf("expected insufficient points, got: %v", err)
	}
	balance, sum, err := env.memberSvc.CheckBalance(member.ID)
	if err != nil {
		t.Fatalf("check balance failed: %v", err)
	}
	if balance != testProgram.WelcomeBonusPoints-30 || balance != sum {
		t.Fatalf("balance mutated by rejected correction: balance=%d sum=%d", balance, sum)
	}
}

func TestApplyDeltaTxRejectsOverdraft(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	member := createTestMember(t, env, "+8613900000005")

	err := env.db.Transaction(func(tx *gorm.DB) error {
		_, err := env.ledgerSvc.ApplyDeltaTx(tx, LedgerApplyInput{
			MemberID:  member.ID,
			Delta:     -(member.Points + 1),
			Concept:   constants.LedgerConceptRedeem,
			Reference: "overdraft:1",
		})
		return err
	})
	if !errors.Is(err, ErrInsufficientPoints) {
		t.Fatalf("expected insufficient points, got: %v", err)
	}

	balance, sum, err := env.memberSvc.CheckBalance(member.ID)
	if err != nil {
		t.Fatalf("check balance failed: %v", err)
	}
	if balance != testProgram.WelcomeBonusPoints || balance != sum {
		t.Fatalf("balance mutated by rejected overdraft: balance=%d sum=%d", balance, sum)
	}
}

func TestGrantPointsSyncsAccountToCRM(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	member := createTestMember(t, env, "+8613900000006")

	if _, _, err := env.ledgerSvc.GrantPoints(GrantInput{
		MemberID:  member.ID,
		Points:    40,
		Concept:   constants.LedgerConceptManualGrant,
		Reference: "campaign:sync:1",
	}); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	var jobs []models.SyncJob
	if err := env.db.Where("op_type = ?", constants.SyncOpAccountSync).Find(&jobs).Error; err != nil {
		t.Fatalf("load sync jobs failed: %v", err)
	}
	if len(jobs) == 0 {
		t.Fatalf("expected account sync jobs enqueued")
	}
	for _, job := range jobs {
		if job.Status != constants.SyncJobStatusDone {
			t.Fatalf("job %d not done after immediate attempt: %s", job.ID, job.Status)
		}
		if job.RemoteID != "crm-100" {
			t.Fatalf("job %d remote id want crm-100, got %q", job.ID, job.RemoteID)
		}
	}

	var synced models.Member
	if err := env.db.First(&synced, member.ID).Error; err != nil {
		t.Fatalf("reload member failed: %v", err)
	}
	if synced.CRMRemoteID != "crm-100" || synced.CRMSyncedAt == nil {
		t.Fatalf("member remote id not recorded: %+v", synced)
	}
	if env.crmCalls.Load() == 0 {
		t.Fatalf("crm endpoint never called")
	}
}
