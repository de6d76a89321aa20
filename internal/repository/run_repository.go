package repository

import (
	"errors"
	"time"

	"github.com/yieldtree/engine/internal/models"

	"gorm.io/gorm"
)

// RunRepository 批次记录数据访问接口
type RunRepository interface {
	Create(run *models.RunRecord) error
	SaveProgress(run *models.RunRecord) error
	GetByID(id uint, withErrors bool) (*models.RunRecord, error)
	GetByRunNo(runNo string) (*models.RunRecord, error)
	GetLatestByCycle(cycle models.CycleDate) (*models.RunRecord, error)
	GetRunningByCycle(cycle models.CycleDate) (*models.RunRecord, error)
	ListStaleRunning(startedBefore time.Time) ([]models.RunRecord, error)
	MarkFailedIfRunning(id uint, message string, finishedAt time.Time) (int64, error)
	AddError(runErr *models.RunError) error
	ListErrors(runID uint) ([]models.RunError, error)
	List(filter RunListFilter) ([]models.RunRecord, int64, error)
	WithTx(tx *gorm.DB) RunRepository
}

// GormRunRepository GORM 批次记录仓储实现
type GormRunRepository struct {
	db *gorm.DB
}

// NewRunRepository 创建批次记录仓储
func NewRunRepository(db *gorm.DB) *GormRunRepository {
	return &GormRunRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRunRepository) WithTx(tx *gorm.DB) RunRepository {
	if tx == nil {
		return r
	}
	return &GormRunRepository{db: tx}
}

// Create 创建批次记录，同周期已有运行中批次时返回唯一约束错误
func (r *GormRunRepository) Create(run *models.RunRecord) error {
	return r.db.Omit("Errors").Create(run).Error
}

// SaveProgress 持久化计数器与状态
func (r *GormRunRepository) SaveProgress(run *models.RunRecord) error {
	if run == nil || run.ID == 0 {
		return nil
	}
	return r.db.Model(&models.RunRecord{}).
		Where("id = ?", run.ID).
		Updates(map[string]interface{}{
			"status":               run.Status,
			"finished_at":          run.FinishedAt,
			"candidate_count":      run.CandidateCount,
			"processed_count":      run.ProcessedCount,
			"skipped_count":        run.SkippedCount,
			"error_count":          run.ErrorCount,
			"total_amount":         run.TotalAmount,
			"cumulative_processed": run.CumulativeProcessed,
			"cumulative_amount":    run.CumulativeAmount,
			"failure_message":      run.FailureMessage,
			"updated_at":           time.Now(),
		}).Error
}

// GetByID 按ID获取批次记录
func (r *GormRunRepository) GetByID(id uint, withErrors bool) (*models.RunRecord, error) {
	if id == 0 {
		return nil, nil
	}
	query := r.db
	if withErrors {
		query = query.Preload("Errors", func(db *gorm.DB) *gorm.DB {
			return db.Order("id asc")
		})
	}
	var run models.RunRecord
	if err := query.First(&run, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// GetByRunNo 按批次号获取批次记录
func (r *GormRunRepository) GetByRunNo(runNo string) (*models.RunRecord, error) {
	if runNo == "" {
		return nil, nil
	}
	var run models.RunRecord
	if err := r.db.Where("run_no = ?", runNo).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// GetLatestByCycle 获取周期内最近一次批次
func (r *GormRunRepository) GetLatestByCycle(cycle models.CycleDate) (*models.RunRecord, error) {
	var run models.RunRecord
	if err := r.db.Where("cycle_date = ?", string(cycle)).Order("id desc").First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// GetRunningByCycle 获取周期内运行中的批次
func (r *GormRunRepository) GetRunningByCycle(cycle models.CycleDate) (*models.RunRecord, error) {
	var run models.RunRecord
	if err := r.db.Where("cycle_date = ? AND status = ?", string(cycle), string(models.RunRunning)).
		Order("id desc").
		First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// ListStaleRunning 查询启动时间早于阈值仍在运行的批次
func (r *GormRunRepository) ListStaleRunning(startedBefore time.Time) ([]models.RunRecord, error) {
	var runs []models.RunRecord
	if err := r.db.Where("status = ? AND started_at < ?", string(models.RunRunning), startedBefore).
		Order("id asc").
		Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// MarkFailedIfRunning 条件将运行中批次标记为失败
func (r *GormRunRepository) MarkFailedIfRunning(id uint, message string, finishedAt time.Time) (int64, error) {
	res := r.db.Model(&models.RunRecord{}).
		Where("id = ? AND status = ?", id, string(models.RunRunning)).
		Updates(map[string]interface{}{
			"status":          models.RunFailed,
			"failure_message": message,
			"finished_at":     finishedAt,
			"updated_at":      finishedAt,
		})
	return res.RowsAffected, res.Error
}

// AddError 追加单项错误
func (r *GormRunRepository) AddError(runErr *models.RunError) error {
	return r.db.Create(runErr).Error
}

// ListErrors 查询批次单项错误
func (r *GormRunRepository) ListErrors(runID uint) ([]models.RunError, error) {
	var errs []models.RunError
	if err := r.db.Where("run_id = ?", runID).Order("id asc").Find(&errs).Error; err != nil {
		return nil, err
	}
	return errs, nil
}

// List 分页查询批次记录
func (r *GormRunRepository) List(filter RunListFilter) ([]models.RunRecord, int64, error) {
	query := r.db.Model(&models.RunRecord{})
	if filter.CycleDate != "" {
		query = query.Where("cycle_date = ?", string(filter.CycleDate))
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var runs []models.RunRecord
	if err := query.Order("id desc").Find(&runs).Error; err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}
