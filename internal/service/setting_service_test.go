package service

import (
	"context"
	"testing"

	"github.com/puntoz/puntoz/internal/models"
	"github.com/puntoz/puntoz/internal/repository"
)

func TestSettingSetGetRoundtrip(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	svc := NewSettingService(repository.NewSettingRepository(env.db), 60)
	ctx := context.Background()

	value := models.JSON{"name": "积分计划", "enabled": true}
	if err := svc.Set(ctx, "program.display", value, "展示文案"); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	got, err := svc.Get(ctx, "program.display")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got["name"] != "积分计划" {
		t.Fatalf("unexpected value: %+v", got)
	}

	// 覆盖写入后读到新值
	if err := svc.Set(ctx, "program.display", models.JSON{"name": "新名称"}, ""); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	got, err = svc.Get(ctx, "program.display")
	if err != nil {
		t.Fatalf("get after overwrite failed: %v", err)
	}
	if got["name"] != "新名称" {
		t.Fatalf("stale value after overwrite: %+v", got)
	}
}

func TestSettingGetMissingKey(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	svc := NewSettingService(repository.NewSettingRepository(env.db), 60)

	got, err := svc.Get(context.Background(), "does.not.exist")
	if err != nil {
		t.Fatalf("get missing failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty value, got %+v", got)
	}
}

func TestSettingList(t *testing.T) {
	env := setupLoyaltyTest(t, nil)
	svc := NewSettingService(repository.NewSettingRepository(env.db), 60)
	ctx := context.Background()

	if err := svc.Set(ctx, "a", models.JSON{"v": 1}, ""); err != nil {
		t.Fatalf("set a failed: %v", err)
	}
	if err := svc.Set(ctx, "b", models.JSON{"v": 2}, ""); err != nil {
		t.Fatalf("set b failed: %v", err)
	}

	settings, err := svc.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(settings) != 2 {
		t.Fatalf("settings want 2, got %d", len(settings))
	}
}
