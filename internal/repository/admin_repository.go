package repository

import (
	"errors"
	"strings"

	"github.com/puntoz/puntoz/internal/models"

	"gorm.io/gorm"
)

// AdminRepository 管理员数据访问接口
type AdminRepository interface {
	GetByID(id uint) (*models.Admin, error)
	GetByUsername(username string) (*models.Admin, error)
	Create(admin *models.Admin) error
	Update(admin *models.Admin) error
	WithTx(tx *gorm.DB) *GormAdminRepository
}

// GormAdminRepository GORM 管理员仓储实现
type GormAdminRepository struct {
	db *gorm.DB
}

// NewAdminRepository 创建管理员仓储
func NewAdminRepository(db *gorm.DB) *GormAdminRepository {
	return &GormAdminRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAdminRepository) WithTx(tx *gorm.DB) *GormAdminRepository {
	if tx == nil {
		return r
	}
	return &GormAdminRepository{db: tx}
}

// GetByID 按ID获取管理员
func (r *GormAdminRepository) GetByID(id uint) (*models.Admin, error) {
	if id == 0 {
		return nil, nil
	}
	var admin models.Admin
	if err := r.db.First(&admin, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &admin, nil
}

// GetByUsername 按用户名获取管理员
func (r *GormAdminRepository) GetByUsername(username string) (*models.Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, nil
	}
	var admin models.Admin
	if err := r.db.Where("username = ?", username).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &admin, nil
}

// Create 创建管理员
func (r *GormAdminRepository) Create(admin *models.Admin) error {
	return r.db.Create(admin).Error
}

// Update 更新管理员
func (r *GormAdminRepository) Update(admin *models.Admin) error {
	return r.db.Save(admin).Error
}
