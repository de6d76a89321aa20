package repository

import (
	"errors"
	"time"

	"github.com/yieldtree/engine/internal/models"

	"gorm.io/gorm"
)

// LedgerRepository 账本流水数据访问接口
type LedgerRepository interface {
	GetByID(id uint) (*models.LedgerEntry, error)
	GetByKey(key models.IdempotencyKey) (*models.LedgerEntry, error)
	Create(entry *models.LedgerEntry) error
	MarkApplied(id uint, balanceBefore, balanceAfter models.Money, appliedAt time.Time) (int64, error)
	Cancel(id uint, remark string, cancelledAt time.Time) (int64, error)
	ListPendingByCycle(cycle models.CycleDate) ([]models.LedgerEntry, error)
	List(filter LedgerListFilter) ([]models.LedgerEntry, int64, error)
	WithTx(tx *gorm.DB) LedgerRepository
}

// GormLedgerRepository GORM 账本流水仓储实现
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository 创建账本流水仓储
func NewLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// WithTx 绑定事务
func (r *GormLedgerRepository) WithTx(tx *gorm.DB) LedgerRepository {
	if tx == nil {
		return r
	}
	return &GormLedgerRepository{db: tx}
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

// GetByKey 按幂等键获取未作废流水
func (r *GormLedgerRepository) GetByKey(key models.IdempotencyKey) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if err := r.db.
		Where("beneficiary_id = ? AND source_id = ? AND investment_id = ?", key.BeneficiaryID, key.SourceID, key.InvestmentID).
		Where("kind = ? AND level = ? AND cycle_date = ?", string(key.Kind), key.Level, string(key.CycleDate)).
		Where("status <> ?", string(models.LedgerCancelled)).
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// Create 写入流水，唯一约束冲突时原样返回驱动错误
// 写入包裹在保存点内，冲突不会中止外层事务
func (r *GormLedgerRepository) Create(entry *models.LedgerEntry) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(entry).Error
	})
}

// MarkApplied 条件更新 pending -> applied
func (r *GormLedgerRepository) MarkApplied(id uint, balanceBefore, balanceAfter models.Money, appliedAt time.Time) (int64, error) {
	res := r.db.Model(&models.LedgerEntry{}).
		Where("id = ? AND status = ?", id, string(models.LedgerPending)).
		Updates(map[string]interface{}{
			"status":         models.LedgerApplied,
			"balance_before": balanceBefore,
			"balance_after":  balanceAfter,
			"applied_at":     appliedAt,
			"updated_at":     appliedAt,
		})
	return res.RowsAffected, res.Error
}

// Cancel 作废待入账流水，已入账流水不可作废
func (r *GormLedgerRepository) Cancel(id uint, remark string, cancelledAt time.Time) (int64, error) {
	res := r.db.Model(&models.LedgerEntry{}).
		Where("id = ? AND status = ?", id, string(models.LedgerPending)).
		Updates(map[string]interface{}{
			"status":     models.LedgerCancelled,
			"remark":     remark,
			"updated_at": cancelledAt,
		})
	return res.RowsAffected, res.Error
}

// ListPendingByCycle 查询周期内待入账流水
func (r *GormLedgerRepository) ListPendingByCycle(cycle models.CycleDate) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	query := r.db.Where("status = ?", string(models.LedgerPending))
	if cycle != "" {
		query = query.Where("cycle_date = ?", string(cycle))
	}
	if err := query.Order("id asc").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// List 分页查询流水
func (r *GormLedgerRepository) List(filter LedgerListFilter) ([]models.LedgerEntry, int64, error) {
	query := r.db.Model(&models.LedgerEntry{})
	if filter.BeneficiaryID != 0 {
		query = query.Where("beneficiary_id = ?", filter.BeneficiaryID)
	}
	if filter.SourceID != 0 {
		query = query.Where("source_id = ?", filter.SourceID)
	}
	if filter.InvestmentID != 0 {
		query = query.Where("investment_id = ?", filter.InvestmentID)
	}
	if filter.RunID != 0 {
		query = query.Where("run_id = ?", filter.RunID)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CycleDate != "" {
		query = query.Where("cycle_date = ?", string(filter.CycleDate))
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
	if err := query.Order("id asc").Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
