package repository

import (
	"errors"

	"github.com/puntoz/puntoz/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RedemptionRepository 兑换记录数据访问接口
type RedemptionRepository interface {
	Create(redemption *models.Redemption) error
	GetByID(id uint) (*models.Redemption, error)
	GetByIDForUpdate(id uint) (*models.Redemption, error)
	Update(redemption *models.Redemption) error
	List(filter RedemptionListFilter) ([]models.Redemption, int64, error)
	CountByMember(memberID uint) (int64, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormRedemptionRepository
}

// GormRedemptionRepository GORM 兑换记录仓储实现
type GormRedemptionRepository struct {
	db *gorm.DB
}

// NewRedemptionRepository 创建兑换记录仓储
func NewRedemptionRepository(db *gorm.DB) *GormRedemptionRepository {
	return &GormRedemptionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRedemptionRepository) WithTx(tx *gorm.DB) *GormRedemptionRepository {
	if tx == nil {
		return r
	}
	return &GormRedemptionRepository{db: tx}
}

// Transaction 在事务中执行
func (r *GormRedemptionRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// Create 创建兑换记录
func (r *GormRedemptionRepository) Create(redemption *models.Redemption) error {
	return r.db.Create(redemption).Error
}

// GetByID 按ID获取兑换记录
func (r *GormRedemptionRepository) GetByID(id uint) (*models.Redemption, error) {
	if id == 0 {
		return nil, nil
	}
	var redemption models.Redemption
	if err := r.db.First(&redemption, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &redemption, nil
}

// GetByIDForUpdate 按ID加锁获取兑换记录
func (r *GormRedemptionRepository) GetByIDForUpdate(id uint) (*models.Redemption, error) {
	if id == 0 {
		return nil, nil
	}
	var redemption models.Redemption
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&redemption, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &redemption, nil
}

// Update 更新兑换记录
func (r *GormRedemptionRepository) Update(redemption *models.Redemption) error {
	return r.db.Save(redemption).Error
}

// List 分页查询兑换记录
func (r *GormRedemptionRepository) List(filter RedemptionListFilter) ([]models.Redemption, int64, error) {
	query := r.db.Model(&models.Redemption{})
	if filter.MemberID != 0 {
		query = query.Where("member_id = ?", filter.MemberID)
	}
	if filter.RewardID != 0 {
		query = query.Where("reward_id = ?", filter.RewardID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var redemptions []models.Redemption
	if err := query.Order("id DESC").Find(&redemptions).Error; err != nil {
		return nil, 0, err
	}
	return redemptions, total, nil
}

// CountByMember 统计会员兑换次数，用于判断首次兑换
func (r *GormRedemptionRepository) CountByMember(memberID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Redemption{}).
		Where("member_id = ?", memberID).
		Count(&count).Error
	return count, err
}
