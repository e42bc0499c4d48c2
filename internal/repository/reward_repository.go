package repository

import (
	"errors"
	"strings"

	"github.com/puntoz/puntoz/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RewardRepository 奖品数据访问接口
type RewardRepository interface {
	GetByID(id uint) (*models.Reward, error)
	GetByIDForUpdate(id uint) (*models.Reward, error)
	Create(reward *models.Reward) error
	Update(reward *models.Reward) error
	Delete(id uint) error
	List(filter RewardListFilter) ([]models.Reward, int64, error)
	DecrementStock(id uint) (bool, error)
	IncrementStock(id uint) error
	WithTx(tx *gorm.DB) *GormRewardRepository
}

// GormRewardRepository GORM 奖品仓储实现
type GormRewardRepository struct {
	db *gorm.DB
}

// NewRewardRepository 创建奖品仓储
func NewRewardRepository(db *gorm.DB) *GormRewardRepository {
	return &GormRewardRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRewardRepository) WithTx(tx *gorm.DB) *GormRewardRepository {
	if tx == nil {
		return r
	}
	return &GormRewardRepository{db: tx}
}

// GetByID 按ID获取奖品
func (r *GormRewardRepository) GetByID(id uint) (*models.Reward, error) {
	if id == 0 {
		return nil, nil
	}
	var reward models.Reward
	if err := r.db.First(&reward, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reward, nil
}

// GetByIDForUpdate 按ID加锁获取奖品
func (r *GormRewardRepository) GetByIDForUpdate(id uint) (*models.Reward, error) {
	if id == 0 {
		return nil, nil
	}
	var reward models.Reward
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&reward, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reward, nil
}

// Create 创建奖品
func (r *GormRewardRepository) Create(reward *models.Reward) error {
	return r.db.Create(reward).Error
}

// Update 更新奖品
func (r *GormRewardRepository) Update(reward *models.Reward) error {
	return r.db.Save(reward).Error
}

// Delete 删除奖品（软删除）
func (r *GormRewardRepository) Delete(id uint) error {
	return r.db.Delete(&models.Reward{}, id).Error
}

// List 分页查询奖品
func (r *GormRewardRepository) List(filter RewardListFilter) ([]models.Reward, int64, error) {
	query := r.db.Model(&models.Reward{})
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}
	if filter.OnlyActive {
		query = query.Where("is_active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var rewards []models.Reward
	if err := query.Order("sort_order ASC, id DESC").Find(&rewards).Error; err != nil {
		return nil, 0, err
	}
	return rewards, total, nil
}

// DecrementStock 条件扣减库存，库存不足时返回 false
// 不限库存（stock < 0）的奖品不应调用本方法。
func (r *GormRewardRepository) DecrementStock(id uint) (bool, error) {
	result := r.db.Model(&models.Reward{}).
		Where("id = ? AND stock > 0", id).
		UpdateColumn("stock", gorm.Expr("stock - 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// IncrementStock 回补库存，用于兑换回退
func (r *GormRewardRepository) IncrementStock(id uint) error {
	return r.db.Model(&models.Reward{}).
		Where("id = ? AND stock >= 0", id).
		UpdateColumn("stock", gorm.Expr("stock + 1")).Error
}
