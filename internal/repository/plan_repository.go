package repository

import (
	"errors"

	"github.com/yieldtree/engine/internal/models"

	"gorm.io/gorm"
)

// PlanRepository 套餐数据访问接口
type PlanRepository interface {
	GetByID(id uint) (*models.Plan, error)
	GetByIDs(ids []uint) ([]models.Plan, error)
	Create(plan *models.Plan) error
	WithTx(tx *gorm.DB) PlanRepository
}

// GormPlanRepository GORM 套餐仓储实现
type GormPlanRepository struct {
	db *gorm.DB
}

// NewPlanRepository 创建套餐仓储
func NewPlanRepository(db *gorm.DB) *GormPlanRepository {
	return &GormPlanRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPlanRepository) WithTx(tx *gorm.DB) PlanRepository {
	if tx == nil {
		return r
	}
	return &GormPlanRepository{db: tx}
}

// GetByID 按ID获取套餐
func (r *GormPlanRepository) GetByID(id uint) (*models.Plan, error) {
	if id == 0 {
		return nil, nil
	}
	var plan models.Plan
	if err := r.db.First(&plan, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

// GetByIDs 批量获取套餐
func (r *GormPlanRepository) GetByIDs(ids []uint) ([]models.Plan, error) {
	if len(ids) == 0 {
		return []models.Plan{}, nil
	}
	var plans []models.Plan
	if err := r.db.Where("id IN ?", ids).Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

// Create 创建套餐
func (r *GormPlanRepository) Create(plan *models.Plan) error {
	return r.db.Create(plan).Error
}
