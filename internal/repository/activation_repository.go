package repository

import (
	"errors"

	"github.com/yieldtree/engine/internal/models"

	"gorm.io/gorm"
)

// ActivationRepository 激活记录数据访问接口
type ActivationRepository interface {
	GetByKey(accountID, investmentID uint, cycle models.CycleDate) (*models.ActivationRecord, error)
	Ensure(record *models.ActivationRecord) (*models.ActivationRecord, error)
	Update(record *models.ActivationRecord) error
	ListInvestmentIDsByStates(cycle models.CycleDate, states []models.ActivationState) ([]uint, error)
	List(filter ActivationListFilter) ([]models.ActivationRecord, int64, error)
	WithTx(tx *gorm.DB) ActivationRepository
}

// GormActivationRepository GORM 激活记录仓储实现
type GormActivationRepository struct {
	db *gorm.DB
}

// NewActivationRepository 创建激活记录仓储
func NewActivationRepository(db *gorm.DB) *GormActivationRepository {
	return &GormActivationRepository{db: db}
}

// WithTx 绑定事务
func (r *GormActivationRepository) WithTx(tx *gorm.DB) ActivationRepository {
	if tx == nil {
		return r
	}
	return &GormActivationRepository{db: tx}
}

// GetByKey 按 (账户, 投资, 周期) 获取激活记录
func (r *GormActivationRepository) GetByKey(accountID, investmentID uint, cycle models.CycleDate) (*models.ActivationRecord, error) {
	var record models.ActivationRecord
	if err := r.db.Where("account_id = ? AND investment_id = ? AND cycle_date = ?", accountID, investmentID, string(cycle)).
		First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// Ensure 不存在时创建，存在时返回已有记录
func (r *GormActivationRepository) Ensure(record *models.ActivationRecord) (*models.ActivationRecord, error) {
	if record == nil {
		return nil, nil
	}
	existing, err := r.GetByKey(record.AccountID, record.InvestmentID, record.CycleDate)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	err = r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(record).Error
	})
	if err == nil {
		return record, nil
	}
	if !IsUniqueViolation(err) {
		return nil, err
	}
	existing, getErr := r.GetByKey(record.AccountID, record.InvestmentID, record.CycleDate)
	if getErr != nil {
		return nil, getErr
	}
	if existing == nil {
		return nil, err
	}
	return existing, nil
}

// Update 更新激活记录
func (r *GormActivationRepository) Update(record *models.ActivationRecord) error {
	return r.db.Save(record).Error
}

// ListInvestmentIDsByStates 查询周期内处于指定状态的投资ID
func (r *GormActivationRepository) ListInvestmentIDsByStates(cycle models.CycleDate, states []models.ActivationState) ([]uint, error) {
	if len(states) == 0 {
		return []uint{}, nil
	}
	raw := make([]string, 0, len(states))
	for _, state := range states {
		raw = append(raw, string(state))
	}
	var ids []uint
	if err := r.db.Model(&models.ActivationRecord{}).
		Where("cycle_date = ? AND state IN ?", string(cycle), raw).
		Pluck("investment_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// List 分页查询激活记录
func (r *GormActivationRepository) List(filter ActivationListFilter) ([]models.ActivationRecord, int64, error) {
	query := r.db.Model(&models.ActivationRecord{})
	if filter.AccountID != 0 {
		query = query.Where("account_id = ?", filter.AccountID)
	}
	if filter.InvestmentID != 0 {
		query = query.Where("investment_id = ?", filter.InvestmentID)
	}
	if filter.CycleDate != "" {
		query = query.Where("cycle_date = ?", string(filter.CycleDate))
	}
	if filter.State != "" {
		query = query.Where("state = ?", filter.State)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var records []models.ActivationRecord
	if err := query.Order("id desc").Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}
