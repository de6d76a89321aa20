package repository

import (
	"errors"
	"time"

	"github.com/yieldtree/engine/internal/models"

	"gorm.io/gorm"
)

// InvestmentRepository 投资数据访问接口
type InvestmentRepository interface {
	GetByID(id uint) (*models.Investment, error)
	Create(investment *models.Investment) error
	ListEligible(query EligibleInvestmentQuery) ([]models.Investment, error)
	HasActiveInvestment(accountID uint) (bool, error)
	AdvanceProfit(investment *models.Investment, cycle models.CycleDate, now time.Time) (int64, error)
	WithTx(tx *gorm.DB) InvestmentRepository
}

// GormInvestmentRepository GORM 投资仓储实现
type GormInvestmentRepository struct {
	db *gorm.DB
}

// NewInvestmentRepository 创建投资仓储
func NewInvestmentRepository(db *gorm.DB) *GormInvestmentRepository {
	return &GormInvestmentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormInvestmentRepository) WithTx(tx *gorm.DB) InvestmentRepository {
	if tx == nil {
		return r
	}
	return &GormInvestmentRepository{db: tx}
}

// GetByID 按ID获取投资
func (r *GormInvestmentRepository) GetByID(id uint) (*models.Investment, error) {
	if id == 0 {
		return nil, nil
	}
	var investment models.Investment
	if err := r.db.First(&investment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &investment, nil
}

// Create 创建投资
func (r *GormInvestmentRepository) Create(investment *models.Investment) error {
	return r.db.Create(investment).Error
}

// ListEligible 查询周期内尚未发放收益的有效投资，按账户与投资ID排序
func (r *GormInvestmentRepository) ListEligible(query EligibleInvestmentQuery) ([]models.Investment, error) {
	db := r.db.Model(&models.Investment{}).
		Where("status = ?", models.InvestmentActive).
		Where("last_profit_date < ?", string(query.CycleDate))
	if !query.StartedBefore.IsZero() {
		db = db.Where("started_at < ?", query.StartedBefore)
	}
	if len(query.ExcludeIDs) > 0 {
		db = db.Where("id NOT IN ?", query.ExcludeIDs)
	}
	var investments []models.Investment
	if err := db.Order("account_id asc").Order("id asc").Find(&investments).Error; err != nil {
		return nil, err
	}
	return investments, nil
}

// HasActiveInvestment 账户是否持有有效投资
func (r *GormInvestmentRepository) HasActiveInvestment(accountID uint) (bool, error) {
	if accountID == 0 {
		return false, nil
	}
	var count int64
	if err := r.db.Model(&models.Investment{}).
		Where("account_id = ? AND status = ?", accountID, models.InvestmentActive).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// AdvanceProfit 条件推进收益周期，仅当 last_profit_date 早于本周期时生效
func (r *GormInvestmentRepository) AdvanceProfit(investment *models.Investment, cycle models.CycleDate, now time.Time) (int64, error) {
	if investment == nil || investment.ID == 0 {
		return 0, nil
	}
	updates := map[string]interface{}{
		"last_profit_date": string(cycle),
		"paid_days":        investment.PaidDays,
		"total_returned":   investment.TotalReturned,
		"status":           investment.Status,
		"updated_at":       now,
	}
	if investment.CompletedAt != nil {
		updates["completed_at"] = investment.CompletedAt
	}
	res := r.db.Model(&models.Investment{}).
		Where("id = ? AND last_profit_date < ?", investment.ID, string(cycle)).
		Updates(updates)
	return res.RowsAffected, res.Error
}
