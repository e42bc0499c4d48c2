package repository

import (
	"errors"
	"strings"

	"github.com/puntoz/puntoz/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MemberRepository 会员数据访问接口
type MemberRepository interface {
	GetByID(id uint) (*models.Member, error)
	GetByIDForUpdate(id uint) (*models.Member, error)
	GetByPhone(phone string) (*models.Member, error)
	GetByIDs(ids []uint) ([]models.Member, error)
	Create(member *models.Member) error
	Update(member *models.Member) error
	List(filter MemberListFilter) ([]models.Member, int64, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormMemberRepository
}

// GormMemberRepository GORM 会员仓储实现
type GormMemberRepository struct {
	db *gorm.DB
}

// NewMemberRepository 创建会员仓储
func NewMemberRepository(db *gorm.DB) *GormMemberRepository {
	return &GormMemberRepository{db: db}
}

// WithTx 绑定事务
func (r *GormMemberRepository) WithTx(tx *gorm.DB) *GormMemberRepository {
	if tx == nil {
		return r
	}
	return &GormMemberRepository{db: tx}
}

// Transaction 在事务中执行
func (r *GormMemberRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// GetByID 按ID获取会员
func (r *GormMemberRepository) GetByID(id uint) (*models.Member, error) {
	if id == 0 {
		return nil, nil
	}
	var member models.Member
	if err := r.db.First(&member, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// GetByIDForUpdate 按ID加锁获取会员
func (r *GormMemberRepository) GetByIDForUpdate(id uint) (*models.Member, error) {
	if id == 0 {
		return nil, nil
	}
	var member models.Member
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&member, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// GetByPhone 按手机号获取会员
func (r *GormMemberRepository) GetByPhone(phone string) (*models.Member, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, nil
	}
	var member models.Member
	if err := r.db.Where("phone = ?", phone).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// GetByIDs 批量获取会员
func (r *GormMemberRepository) GetByIDs(ids []uint) ([]models.Member, error) {
	if len(ids) == 0 {
		return []models.Member{}, nil
	}
	var members []models.Member
	if err := r.db.Where("id IN ?", ids).Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// Create 创建会员
func (r *GormMemberRepository) Create(member *models.Member) error {
	return r.db.Create(member).Error
}

// Update 更新会员
func (r *GormMemberRepository) Update(member *models.Member) error {
	return r.db.Save(member).Error
}

// List 分页查询会员
func (r *GormMemberRepository) List(filter MemberListFilter) ([]models.Member, int64, error) {
	query := r.db.Model(&models.Member{})
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		query = query.Where("phone LIKE ? OR name LIKE ?", like, like)
	}
	if filter.Tier != "" {
		query = query.Where("tier = ?", filter.Tier)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var members []models.Member
	if err := query.Order("id DESC").Find(&members).Error; err != nil {
		return nil, 0, err
	}
	return members, total, nil
}
