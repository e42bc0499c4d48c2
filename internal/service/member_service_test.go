package service

import (
	"errors"
	"testing"

	"github.com/puntoz/puntoz/internal/constants"
	"github.com/puntoz/puntoz/internal/models"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "+8613800138000", want: "+8613800138000"},
		{in: " 138-0013-8000 ", want: "13800138000"},
		{in: "13800138000", want: "13800138000"},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
		{in: "123", wantErr: true},
	}
	for _, tc := range cases {
		got, err := NormalizePhone(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrMemberPhoneInvalid) {
				t.Fatalf("normalize %q: expected phone invalid, got: %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("normalize %q failed: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("normalize %q want %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestFindOrCreateGrantsWelcomeBonusOnce(t *testing.T) {
	env := setupLoyaltyTest(t, nil)

	member, created, err := env.memberSvc.FindOrCreate(MemberCreateInput{Phone: "+8613700000001", Name: "小赵"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !created {
		t.Fatalf("expected created=true")
	}
	if member.Points != testProgram.WelcomeBonusPoints {
		t.Fatalf("welcome bonus want %d, got %d", testProgram.WelcomeBonusPoints, member.Points)
	}

	again, created, err := env.memberSvc.FindOrCreate(MemberCreateInput{Phone: "+86 137-0000-0001"})
	if err != nil {
		t.Fatalf("second find failed: %v", err)
	}
	if created {
		t.Fatalf("expected created=false on replay")
	}
	if again.Points != testProgram.WelcomeBonusPoints {
		t.Fatalf("welcome bonus granted twice: %d", again.Points)
	}

	var count int64
	env.db.Model(&models.LedgerEntry{}).
		Where("member_id = ? AND concept = ?", member.ID, constants.LedgerConceptWelcomeBonus).
		Count(&count)
	if count != 1 {
		t.Fatalf("welcome bonus entries want 1, got %d", count)
	}
}

func TestFindOrCreateRejectsDisabledMember(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	member := createTestMember(t, env, "+8613700000002")

	if _, err := env.memberSvc.UpdateProfile(member.ID, "", "", constants.MemberStatusDisabled); err != nil {
		t.Fatalf("disable failed: %v", err)
	}
	_, _, err := env.memberSvc.FindOrCreate(MemberCreateInput{Phone: "+8613700000002"})
	if !errors.Is(err, ErrMemberDisabled) {
		t.Fatalf("expected member disabled, got: %v", err)
	}
}

func TestUpdateProfileKeepsPhoneImmutable(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	member := createTestMember(t, env, "+8613700000003")

	updated, err := env.memberSvc.UpdateProfile(member.ID, "新名字", constants.MemberTierVIP, "")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Name != "新名字" || updated.Tier != constants.MemberTierVIP {
		t.Fatalf("profile not updated: %+v", updated)
	}
	if updated.Phone != member.Phone {
		t.Fatalf("phone changed: %s -> %s", member.Phone, updated.Phone)
	}

	// 非法等级/状态输入被忽略
	updated, err = env.memberSvc.UpdateProfile(member.ID, "", "platinum", "frozen")
	if err != nil {
		t.Fatalf("update with invalid enums failed: %v", err)
	}
	if updated.Tier != constants.MemberTierVIP || updated.Status != constants.MemberStatusActive {
		t.Fatalf("invalid enums applied: %+v", updated)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	if _, err := env.memberSvc.GetByID(9999); !errors.Is(err, ErrMemberNotFound) {
		t.Fatalf("expected member not found, got: %v", err)
	}
	if _, err := env.memberSvc.GetByPhone("+8613711111111"); !errors.Is(err, ErrMemberNotFound) {
		t.Fatalf("expected member not found by phone, got: %v", err)
	}
}
