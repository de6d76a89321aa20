package service

import (
	"context"
	"fmt"
	"time"

	"github.com/yieldtree/engine/internal/config"
	"github.com/yieldtree/engine/internal/constants"
	"github.com/yieldtree/engine/internal/logger"
	"github.com/yieldtree/engine/internal/models"
	"github.com/yieldtree/engine/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RunTracker 批次生命周期：running -> completed | partial_success | failed
type RunTracker struct {
	runRepo repository.RunRepository
	uow     repository.UnitOfWork
	cfg     config.EngineConfig
	now     func() time.Time
}

// NewRunTracker 创建批次跟踪器
func NewRunTracker(runRepo repository.RunRepository, uow repository.UnitOfWork, cfg config.EngineConfig) *RunTracker {
	return &RunTracker{
		runRepo: runRepo,
		uow:     uow,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Open 打开周期批次
// 已完成时返回已有记录与 done=true；存在未过期的运行中批次时返回 ErrRunConflict
func (t *RunTracker) Open(ctx context.Context, cycle models.CycleDate, trigger string) (run *models.RunRecord, done bool, err error) {
	err = t.uow.Run(ctx, false, func(db *gorm.DB) error {
		repo := t.runRepo.WithTx(db)
		latest, err := repo.GetLatestByCycle(cycle)
		if err != nil {
			return wrapStoreError(err)
		}
		if latest != nil && latest.Status == models.RunCompleted {
			run, done = latest, true
			return nil
		}

		running, err := repo.GetRunningByCycle(cycle)
		if err != nil {
			return wrapStoreError(err)
		}
		if running != nil {
			staleBefore := t.now().Add(-t.cfg.RunStaleAfter())
			if running.StartedAt.After(staleBefore) {
				run = running
				return ErrRunConflict
			}
			if _, err := repo.MarkFailedIfRunning(running.ID, "stale run superseded", t.now()); err != nil {
				return wrapStoreError(err)
			}
			logger.Warnw("cycle_run_stale_superseded", "run_no", running.RunNo, "cycle_date", cycle, "started_at", running.StartedAt)
			latest = running
			latest.Status = models.RunFailed
		}

		next := &models.RunRecord{
			RunNo:     uuid.NewString(),
			CycleDate: cycle,
			Trigger:   trigger,
			Attempt:   1,
			Status:    models.RunRunning,
			StartedAt: t.now(),
		}
		if latest != nil {
			next.Attempt = latest.Attempt + 1
			resumedFrom := latest.ID
			next.ResumedFromID = &resumedFrom
			next.CumulativeProcessed = latest.CumulativeProcessed
			next.CumulativeAmount = latest.CumulativeAmount
		}
		if err := repo.Create(next); err != nil {
			if repository.IsUniqueViolation(err) {
				return ErrRunConflict
			}
			return wrapStoreError(err)
		}
		run = next
		return nil
	})
	return run, done, err
}

// ItemProcessed 记录单项成功
func (t *RunTracker) ItemProcessed(ctx context.Context, run *models.RunRecord, amount models.Money) error {
	run.ProcessedCount++
	run.CumulativeProcessed++
	run.TotalAmount = run.TotalAmount.Add(amount)
	run.CumulativeAmount = run.CumulativeAmount.Add(amount)
	return t.save(ctx, run)
}

// ItemSkipped 记录单项跳过
func (t *RunTracker) ItemSkipped(ctx context.Context, run *models.RunRecord) error {
	run.SkippedCount++
	return t.save(ctx, run)
}

// ItemFailed 记录单项失败，错误明细足以重放
func (t *RunTracker) ItemFailed(ctx context.Context, run *models.RunRecord, accountID, investmentID uint, stage string, cause error) error {
	run.ErrorCount++
	return t.appendError(ctx, run, accountID, investmentID, stage, cause)
}

// appendError 写入错误明细并保存进度，不计入单项失败数
func (t *RunTracker) appendError(ctx context.Context, run *models.RunRecord, accountID, investmentID uint, stage string, cause error) error {
	return t.uow.Run(ctx, true, func(tx *gorm.DB) error {
		repo := t.runRepo.WithTx(tx)
		if err := repo.AddError(&models.RunError{
			RunID:        run.ID,
			AccountID:    accountID,
			InvestmentID: investmentID,
			Stage:        stage,
			Kind:         ClassifyError(cause),
			Message:      cause.Error(),
		}); err != nil {
			return wrapStoreError(err)
		}
		return wrapStoreError(repo.SaveProgress(run))
	})
}

// SetCandidates 记录候选数量
func (t *RunTracker) SetCandidates(ctx context.Context, run *models.RunRecord, count int) error {
	run.CandidateCount = count
	return t.save(ctx, run)
}

// Finish 结束批次；中止且无任何成功项时为 failed，存在失败项或中止时为 partial_success
func (t *RunTracker) Finish(ctx context.Context, run *models.RunRecord, aborted error) error {
	now := t.now()
	run.FinishedAt = &now
	switch {
	case aborted != nil && run.ProcessedCount == 0 && run.SkippedCount == 0:
		run.Status = models.RunFailed
		run.FailureMessage = aborted.Error()
	case aborted != nil:
		run.Status = models.RunPartialSuccess
		run.FailureMessage = aborted.Error()
	case run.ErrorCount > 0:
		run.Status = models.RunPartialSuccess
	default:
		run.Status = models.RunCompleted
	}
	if aborted != nil {
		return t.appendError(ctx, run, 0, 0, constants.RunStageRun, aborted)
	}
	return t.save(ctx, run)
}

// Fail 批次级失败
func (t *RunTracker) Fail(ctx context.Context, run *models.RunRecord, cause error) error {
	now := t.now()
	run.FinishedAt = &now
	run.Status = models.RunFailed
	run.FailureMessage = cause.Error()
	return t.appendError(ctx, run, 0, 0, constants.RunStageRun, cause)
}

// SweepStale 将超时仍在运行的批次标记为失败，返回处理数量
func (t *RunTracker) SweepStale(ctx context.Context) (int, error) {
	swept := 0
	err := t.uow.Run(ctx, false, func(db *gorm.DB) error {
		repo := t.runRepo.WithTx(db)
		stale, err := repo.ListStaleRunning(t.now().Add(-t.cfg.RunStaleAfter()))
		if err != nil {
			return wrapStoreError(err)
		}
		for _, run := range stale {
			affected, err := repo.MarkFailedIfRunning(run.ID, "stale run swept", t.now())
			if err != nil {
				return wrapStoreError(err)
			}
			if affected > 0 {
				swept++
				logger.Warnw("cycle_run_stale_swept", "run_no", run.RunNo, "cycle_date", run.CycleDate)
			}
		}
		return nil
	})
	return swept, err
}

func (t *RunTracker) save(ctx context.Context, run *models.RunRecord) error {
	err := t.uow.Run(ctx, false, func(db *gorm.DB) error {
		return t.runRepo.WithTx(db).SaveProgress(run)
	})
	if err != nil {
		return fmt.Errorf("保存批次进度失败: %w", wrapStoreError(err))
	}
	return nil
}
