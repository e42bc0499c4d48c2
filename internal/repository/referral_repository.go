package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/puntoz/puntoz/internal/constants"
	"github.com/puntoz/puntoz/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReferralRepository 推荐码与推荐关系数据访问接口
type ReferralRepository interface {
	CreateCode(code *models.ReferralCode) error
	GetCodeByCode(code string) (*models.ReferralCode, error)
	GetCodeByMemberID(memberID uint) (*models.ReferralCode, error)
	UpdateCode(code *models.ReferralCode) error
	IncrementCodeUse(id uint) (bool, error)
	CreateRelationship(rel *models.ReferralRelationship) error
	GetRelationshipByReferred(referredID uint) (*models.ReferralRelationship, error)
	GetRelationshipByReferredForUpdate(referredID uint) (*models.ReferralRelationship, error)
	UpdateRelationship(rel *models.ReferralRelationship) error
	ListRelationships(filter ReferralListFilter) ([]models.ReferralRelationship, int64, error)
	ListExpiredPending(now time.Time, limit int) ([]models.ReferralRelationship, error)
	MarkExpired(id uint, now time.Time) (bool, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormReferralRepository
}

// GormReferralRepository GORM 推荐仓储实现
type GormReferralRepository struct {
	db *gorm.DB
}

// NewReferralRepository 创建推荐仓储
func NewReferralRepository(db *gorm.DB) *GormReferralRepository {
	return &GormReferralRepository{db: db}
}

// WithTx 绑定事务
func (r *GormReferralRepository) WithTx(tx *gorm.DB) *GormReferralRepository {
	if tx == nil {
		return r
	}
	return &GormReferralRepository{db: tx}
}

// Transaction 在事务中执行
func (r *GormReferralRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// CreateCode 创建推荐码
func (r *GormReferralRepository) CreateCode(code *models.ReferralCode) error {
	return r.db.Create(code).Error
}

// GetCodeByCode 按码值获取推荐码
func (r *GormReferralRepository) GetCodeByCode(code string) (*models.ReferralCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var referralCode models.ReferralCode
	if err := r.db.Where("code = ?", code).First(&referralCode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referralCode, nil
}

// GetCodeByMemberID 按会员获取推荐码
func (r *GormReferralRepository) GetCodeByMemberID(memberID uint) (*models.ReferralCode, error) {
	if memberID == 0 {
		return nil, nil
	}
	var referralCode models.ReferralCode
	if err := r.db.Where("member_id = ?", memberID).First(&referralCode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referralCode, nil
}

// UpdateCode 更新推荐码
func (r *GormReferralRepository) UpdateCode(code *models.ReferralCode) error {
	return r.db.Save(code).Error
}

// IncrementCodeUse 条件递增推荐码使用次数，超限或停用时返回 false
// max_uses <= 0 表示不限次数。
func (r *GormReferralRepository) IncrementCodeUse(id uint) (bool, error) {
	result := r.db.Model(&models.ReferralCode{}).
		Where("id = ? AND is_active = ? AND (max_uses <= 0 OR use_count < max_uses)", id, true).
		UpdateColumn("use_count", gorm.Expr("use_count + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CreateRelationship 创建推荐关系
func (r *GormReferralRepository) CreateRelationship(rel *models.ReferralRelationship) error {
	return r.db.Create(rel).Error
}

// GetRelationshipByReferred 按被推荐人获取推荐关系
func (r *GormReferralRepository) GetRelationshipByReferred(referredID uint) (*models.ReferralRelationship, error) {
	if referredID == 0 {
		return nil, nil
	}
	var rel models.ReferralRelationship
	if err := r.db.Where("referred_id = ?", referredID).First(&rel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rel, nil
}

// GetRelationshipByReferredForUpdate 按被推荐人加锁获取推荐关系
func (r *GormReferralRepository) GetRelationshipByReferredForUpdate(referredID uint) (*models.ReferralRelationship, error) {
	if referredID == 0 {
		return nil, nil
	}
	var rel models.ReferralRelationship
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("referred_id = ?", referredID).
		First(&rel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rel, nil
}

// UpdateRelationship 更新推荐关系
func (r *GormReferralRepository) UpdateRelationship(rel *models.ReferralRelationship) error {
	return r.db.Save(rel).Error
}

// ListRelationships 分页查询推荐关系
func (r *GormReferralRepository) ListRelationships(filter ReferralListFilter) ([]models.ReferralRelationship, int64, error) {
	query := r.db.Model(&models.ReferralRelationship{})
	if filter.ReferrerID != 0 {
		query = query.Where("referrer_id = ?", filter.ReferrerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var rels []models.ReferralRelationship
	if err := query.Order("id DESC").Find(&rels).Error; err != nil {
		return nil, 0, err
	}
	return rels, total, nil
}

// ListExpiredPending 查询已超过激活期限仍未激活的推荐关系
func (r *GormReferralRepository) ListExpiredPending(now time.Time, limit int) ([]models.ReferralRelationship, error) {
	if limit <= 0 {
		limit = 100
	}
	var rels []models.ReferralRelationship
	err := r.db.Where("status = ? AND activate_by < ?", constants.ReferralStatusPending, now).
		Order("activate_by ASC").
		Limit(limit).
		Find(&rels).Error
	if err != nil {
		return nil, err
	}
	return rels, nil
}

// MarkExpired 条件标记推荐关系过期，已被并发激活时返回 false
func (r *GormReferralRepository) MarkExpired(id uint, now time.Time) (bool, error) {
	result := r.db.Model(&models.ReferralRelationship{}).
		Where("id = ? AND status = ?", id, constants.ReferralStatusPending).
		Updates(map[string]interface{}{
			"status":     constants.ReferralStatusExpired,
			"updated_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
