package service

import (
	"strings"

	"github.com/puntoz/puntoz/internal/constants"
	"github.com/puntoz/puntoz/internal/models"
	"github.com/puntoz/puntoz/internal/repository"
)

// RewardService 奖品管理服务
type RewardService struct {
	rewardRepo repository.RewardRepository
}

// NewRewardService 创建奖品管理服务
func NewRewardService(rewardRepo repository.RewardRepository) *RewardService {
	return &RewardService{rewardRepo: rewardRepo}
}

// RewardInput 奖品创建/更新输入
type RewardInput struct {
	Name        string
	Kind        string
	Description string
	PointsCost  int64
	Stock       int
	RetailValue models.Money
	ImageURL    string
	IsActive    bool
	SortOrder   int
}

func validateRewardInput(input *RewardInput) error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return ErrRewardInvalid
	}
	if input.Kind != constants.RewardKindPhysical && input.Kind != constants.RewardKindService {
		return ErrRewardInvalid
	}
	if input.PointsCost <= 0 {
		return ErrRewardInvalid
	}
	// 服务类奖品默认不限库存
	if input.Kind == constants.RewardKindService && input.Stock == 0 {
		input.Stock = constants.RewardStockUnlimited
	}
	if input.Stock < constants.RewardStockUnlimited {
		return ErrRewardInvalid
	}
	return nil
}

// Create 创建奖品
func (s *RewardService) Create(input RewardInput) (*models.Reward, error) {
	if err := validateRewardInput(&input); err != nil {
		return nil, err
	}
	reward := &models.Reward{
		Name:        input.Name,
		Kind:        input.Kind,
		Description: strings.TrimSpace(input.Description),
		PointsCost:  input.PointsCost,
		Stock:       input.Stock,
		RetailValue: input.RetailValue,
		ImageURL:    strings.TrimSpace(input.ImageURL),
		IsActive:    input.IsActive,
		SortOrder:   input.SortOrder,
	}
	if err := s.rewardRepo.Create(reward); err != nil {
		return nil, err
	}
	return reward, nil
}

// Update 更新奖品
func (s *RewardService) Update(id uint, input RewardInput) (*models.Reward, error) {
	reward, err := s.rewardRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if reward == nil {
		return nil, ErrRewardNotFound
	}
	if err := validateRewardInput(&input); err != nil {
		return nil, err
	}
	reward.Name = input.Name
	reward.Kind = input.Kind
	reward.Description = strings.TrimSpace(input.Description)
	reward.PointsCost = input.PointsCost
	reward.Stock = input.Stock
	reward.RetailValue = input.RetailValue
	reward.ImageURL = strings.TrimSpace(input.ImageURL)
	reward.IsActive = input.IsActive
	reward.SortOrder = input.SortOrder
	if err := s.rewardRepo.Update(reward); err != nil {
		return nil, err
	}
	return reward, nil
}

// Delete 删除奖品
func (s *RewardService) Delete(id uint) error {
	reward, err := s.rewardRepo.GetByID(id)
	if err != nil {
		return err
	}
	if reward == nil {
		return ErrRewardNotFound
	}
	return s.rewardRepo.Delete(id)
}

// GetByID 按ID获取奖品
func (s *RewardService) GetByID(id uint) (*models.Reward, error) {
	reward, err := s.rewardRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if reward == nil {
		return nil, ErrRewardNotFound
	}
	return reward, nil
}

// List 分页查询奖品
func (s *RewardService) List(filter repository.RewardListFilter) ([]models.Reward, int64, error) {
	return s.rewardRepo.List(filter)
}
