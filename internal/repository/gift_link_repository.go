package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/puntoz/puntoz/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GiftLinkRepository 礼品链接数据访问接口
type GiftLinkRepository interface {
	Create(link *models.GiftLink) error
	GetByID(id uint) (*models.GiftLink, error)
	GetByCode(code string) (*models.GiftLink, error)
	GetByCodeForUpdate(code string) (*models.GiftLink, error)
	Update(link *models.GiftLink) error
	List(filter GiftLinkListFilter) ([]models.GiftLink, int64, error)
	IncrementViewCount(id uint) error
	IncrementClaimCount(id uint) (bool, error)
	CreateClaim(claim *models.GiftClaim) error
	GetClaimByLinkAndMember(linkID, memberID uint) (*models.GiftClaim, error)
	ListClaims(filter GiftClaimListFilter) ([]models.GiftClaim, int64, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormGiftLinkRepository
}

// GormGiftLinkRepository GORM 礼品链接仓储实现
type GormGiftLinkRepository struct {
	db *gorm.DB
}

// NewGiftLinkRepository 创建礼品链接仓储
func NewGiftLinkRepository(db *gorm.DB) *GormGiftLinkRepository {
	return &GormGiftLinkRepository{db: db}
}

// WithTx 绑定事务
func (r *GormGiftLinkRepository) WithTx(tx *gorm.DB) *GormGiftLinkRepository {
	if tx == nil {
		return r
	}
	return &GormGiftLinkRepository{db: tx}
}

// Transaction 在事务中执行
func (r *GormGiftLinkRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// Create 创建礼品链接
func (r *GormGiftLinkRepository) Create(link *models.GiftLink) error {
	return r.db.Create(link).Error
}

// GetByID 按ID获取礼品链接
func (r *GormGiftLinkRepository) GetByID(id uint) (*models.GiftLink, error) {
	if id == 0 {
		return nil, nil
	}
	var link models.GiftLink
	if err := r.db.First(&link, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// GetByCode 按领取码获取礼品链接
func (r *GormGiftLinkRepository) GetByCode(code string) (*models.GiftLink, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var link models.GiftLink
	if err := r.db.Where("code = ?", code).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// GetByCodeForUpdate 按领取码加锁获取礼品链接
func (r *GormGiftLinkRepository) GetByCodeForUpdate(code string) (*models.GiftLink, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var link models.GiftLink
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ?", code).
		First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// Update 更新礼品链接
func (r *GormGiftLinkRepository) Update(link *models.GiftLink) error {
	return r.db.Save(link).Error
}

// List 分页查询礼品链接
func (r *GormGiftLinkRepository) List(filter GiftLinkListFilter) ([]models.GiftLink, int64, error) {
	query := r.db.Model(&models.GiftLink{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.BenefitType != "" {
		query = query.Where("benefit_type = ?", filter.BenefitType)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		query = query.Where("code LIKE ? OR title LIKE ? OR recipient_phone LIKE ?", like, like, like)
	}
	if filter.CreatedBy != "" {
		query = query.Where("created_by = ?", filter.CreatedBy)
	}
	if filter.OnlyExpired {
		query = query.Where("expires_at IS NOT NULL AND expires_at < ?", time.Now())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var links []models.GiftLink
	if err := query.Order("id DESC").Find(&links).Error; err != nil {
		return nil, 0, err
	}
	return links, total, nil
}

// IncrementViewCount 访问计数递增，尽力而为
func (r *GormGiftLinkRepository) IncrementViewCount(id uint) error {
	return r.db.Model(&models.GiftLink{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

// IncrementClaimCount 条件递增领取计数，次数用尽时返回 false
func (r *GormGiftLinkRepository) IncrementClaimCount(id uint) (bool, error) {
	result := r.db.Model(&models.GiftLink{}).
		Where("id = ? AND claim_count < max_claims", id).
		UpdateColumn("claim_count", gorm.Expr("claim_count + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CreateClaim 写入领取审计记录
func (r *GormGiftLinkRepository) CreateClaim(claim *models.GiftClaim) error {
	return r.db.Create(claim).Error
}

// GetClaimByLinkAndMember 查询会员在某链接上的领取记录
func (r *GormGiftLinkRepository) GetClaimByLinkAndMember(linkID, memberID uint) (*models.GiftClaim, error) {
	if linkID == 0 || memberID == 0 {
		return nil, nil
	}
	var claim models.GiftClaim
	if err := r.db.Where("gift_link_id = ? AND member_id = ?", linkID, memberID).
		First(&claim).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &claim, nil
}

// ListClaims 分页查询领取记录
func (r *GormGiftLinkRepository) ListClaims(filter GiftClaimListFilter) ([]models.GiftClaim, int64, error) {
	query := r.db.Model(&models.GiftClaim{})
	if filter.GiftLinkID != 0 {
		query = query.Where("gift_link_id = ?", filter.GiftLinkID)
	}
	if filter.MemberID != 0 {
		query = query.Where("member_id = ?", filter.MemberID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var claims []models.GiftClaim
	if err := query.Order("id DESC").Find(&claims).Error; err != nil {
		return nil, 0, err
	}
	return claims, total, nil
}
