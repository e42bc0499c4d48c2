package service

import (
	"context"
	"sync"
	"time"

	"github.com/puntoz/puntoz/internal/cache"
	"github.com/puntoz/puntoz/internal/models"
	"github.com/puntoz/puntoz/internal/repository"
)

// SettingService 系统设置服务
// 读多写少，带 TTL 的进程内缓存，Redis 可用时作为二级缓存。
type SettingService struct {
	settingRepo repository.SettingRepository
	ttl         time.Duration

	mu    sync.RWMutex
	local map[string]settingCacheItem
}

type settingCacheItem struct {
	value     models.JSON
	expiresAt time.Time
}

// NewSettingService 创建设置服务
func NewSettingService(settingRepo repository.SettingRepository, ttlSeconds int) *SettingService {
	ttl := time.Duration(ttlSeconds) * time.Second
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &SettingService{
		settingRepo: settingRepo,
		ttl:         ttl,
		local:       make(map[string]settingCacheItem),
	}
}

// Get 获取设置值，未配置时返回 nil
func (s *SettingService) Get(ctx context.Context, key string) (models.JSON, error) {
	s.mu.RLock()
	item, ok := s.local[key]
	s.mu.RUnlock()
	if ok && time.Now().Before(item.expiresAt) {
		return item.value, nil
	}

	var cached models.JSON
	hit, err := cache.GetJSON(ctx, "setting:"+key, &cached)
	if err == nil && hit {
		s.storeLocal(key, cached)
		return cached, nil
	}

	setting, err := s.settingRepo.Get(key)
	if err != nil {
		return nil, err
	}
	var value models.JSON
	if setting != nil {
		value = setting.Value
	}
	s.storeLocal(key, value)
	_ = cache.SetJSON(ctx, "setting:"+key, value, s.ttl)
	return value, nil
}

// Set 写入设置并失效缓存
func (s *SettingService) Set(ctx context.Context, key string, value models.JSON, remark string) error {
	setting := &models.Setting{
		Key:    key,
		Value:  value,
		Remark: remark,
	}
	if err := s.settingRepo.Upsert(setting); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.local, key)
	s.mu.Unlock()
	_ = cache.Del(ctx, "setting:"+key)
	return nil
}

// List 获取全部设置
func (s *SettingService) List() ([]models.Setting, error) {
	return s.settingRepo.List()
}

func (s *SettingService) storeLocal(key string, value models.JSON) {
	s.mu.Lock()
	s.local[key] = settingCacheItem{value: value, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()
}
