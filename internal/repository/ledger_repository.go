package repository

import (
	"errors"
	"strings"

	"github.com/puntoz/puntoz/internal/models"

	"gorm.io/gorm"
)

// LedgerRepository 积分流水数据访问接口
type LedgerRepository interface {
	Create(entry *models.LedgerEntry) error
	GetByID(id uint) (*models.LedgerEntry, error)
	GetByReference(reference string) (*models.LedgerEntry, error)
	List(filter LedgerListFilter) ([]models.LedgerEntry, int64, error)
	SumDeltaByMember(memberID uint) (int64, error)
	WithTx(tx *gorm.DB) *GormLedgerRepository
}

// GormLedgerRepository GORM 积分流水仓储实现
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository 创建积分流水仓储
func NewLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// WithTx 绑定事务
func (r *GormLedgerRepository) WithTx(tx *gorm.DB) *GormLedgerRepository {
	if tx == nil {
		return r
	}
	return &GormLedgerRepository{db: tx}
}

// Create 写入流水
func (r *GormLedgerRepository) Create(entry *models.LedgerEntry) error {
	return r.db.Create(entry).Error
}

// GetByID 按ID获取流水
func (r *GormLedgerRepository) GetByID(id uint) (*models.LedgerEntry, error) {
	if id == 0 {
		return nil, nil
	}
	var entry models.LedgerEntry
	if err := r.db.First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// GetByReference 按引用获取流水，用于幂等判断
func (r *GormLedgerRepository) GetByReference(reference string) (*models.LedgerEntry, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, nil
	}
	var entry models.LedgerEntry
	if err := r.db.Where("reference = ?", reference).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// List 分页查询流水
func (r *GormLedgerRepository) List(filter LedgerListFilter) ([]models.LedgerEntry, int64, error) {
	query := r.db.Model(&models.LedgerEntry{})
	if filter.MemberID != 0 {
		query = query.Where("member_id = ?", filter.MemberID)
	}
	if filter.Concept != "" {
		query = query.Where("concept = ?", filter.Concept)
	}
	if filter.Direction != "" {
		query = query.Where("direction = ?", filter.Direction)
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

	var entries []models.LedgerEntry
	if err := query.Order("id DESC").Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// SumDeltaByMember 汇总会员流水净额，用于对账
func (r *GormLedgerRepository) SumDeltaByMember(memberID uint) (int64, error) {
	var sum int64
	err := r.db.Model(&models.LedgerEntry{}).
		Where("member_id = ?", memberID).
		Select("COALESCE(SUM(delta), 0)").
		Scan(&sum).Error
	return sum, err
}
