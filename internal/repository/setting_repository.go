package repository

import (
	"errors"
	"strings"

	"github.com/puntoz/puntoz/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingRepository 系统设置数据访问接口
type SettingRepository interface {
	Get(key string) (*models.Setting, error)
	Upsert(setting *models.Setting) error
	List() ([]models.Setting, error)
	WithTx(tx *gorm.DB) *GormSettingRepository
}

// GormSettingRepository GORM 设置仓储实现
type GormSettingRepository struct {
	db *gorm.DB
}

// NewSettingRepository 创建设置仓储
func NewSettingRepository(db *gorm.DB) *GormSettingRepository {
	return &GormSettingRepository{db: db}
}

// WithTx 绑定事务
func (r *GormSettingRepository) WithTx(tx *gorm.DB) *GormSettingRepository {
	if tx == nil {
		return r
	}
	return &GormSettingRepository{db: tx}
}

// Get 按键获取设置
func (r *GormSettingRepository) Get(key string) (*models.Setting, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var setting models.Setting
	if err := r.db.Where("key = ?", key).First(&setting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &setting, nil
}

// Upsert 写入或更新设置
func (r *GormSettingRepository) Upsert(setting *models.Setting) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "remark", "updated_at"}),
	}).Create(setting).Error
}

// List 获取全部设置
func (r *GormSettingRepository) List() ([]models.Setting, error) {
	var settings []models.Setting
	if err := r.db.Order("key ASC").Find(&settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}
