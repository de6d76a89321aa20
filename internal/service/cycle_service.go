package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yieldtree/engine/internal/config"
	"github.com/yieldtree/engine/internal/constants"
	"github.com/yieldtree/engine/internal/logger"
	"github.com/yieldtree/engine/internal/metrics"
	"github.com/yieldtree/engine/internal/models"
	"github.com/yieldtree/engine/internal/repository"
	"github.com/yieldtree/engine/internal/retrier"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CycleLocker 周期级分布式互斥
type CycleLocker interface {
	TryLock(ctx context.Context, cycle string, ttl time.Duration) (unlock func(), acquired bool, err error)
}

// CycleService 每日收益批次编排：资格判定 -> 日收益 -> 上线分佣，由批次跟踪器包裹
type CycleService struct {
	eligibility    *EligibilityService
	profit         *ProfitService
	commission     *CommissionService
	ledger         *LedgerService
	tracker        *RunTracker
	policy         *PlanPolicy
	activationRepo repository.ActivationRepository
	runRepo        repository.RunRepository
	uow            repository.UnitOfWork
	locker         CycleLocker
	cfg            config.EngineConfig
	loc            *time.Location
}

// CycleServiceDeps 编排服务依赖
type CycleServiceDeps struct {
	Eligibility    *EligibilityService
	Profit         *ProfitService
	Commission     *CommissionService
	Ledger         *LedgerService
	Tracker        *RunTracker
	Policy         *PlanPolicy
	ActivationRepo repository.ActivationRepository
	RunRepo        repository.RunRepository
	UnitOfWork     repository.UnitOfWork
	Locker         CycleLocker
	Config         config.EngineConfig
	Location       *time.Location
}

// NewCycleService 创建编排服务
func NewCycleService(deps CycleServiceDeps) *CycleService {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &CycleService{
		eligibility:    deps.Eligibility,
		profit:         deps.Profit,
		commission:     deps.Commission,
		ledger:         deps.Ledger,
		tracker:        deps.Tracker,
		policy:         deps.Policy,
		activationRepo: deps.ActivationRepo,
		runRepo:        deps.RunRepo,
		uow:            deps.UnitOfWork,
		locker:         deps.Locker,
		cfg:            deps.Config,
		loc:            loc,
	}
}

// Location 参考时区
func (s *CycleService) Location() *time.Location {
	return s.loc
}

// CurrentCycle 当前时刻所属周期
func (s *CycleService) CurrentCycle(now time.Time) models.CycleDate {
	return models.CycleDateOf(now, s.loc)
}

// stageError 标记单元内出错阶段
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }

func (e *stageError) Unwrap() error { return e.err }

// itemResult 单个处理单元结果
type itemResult struct {
	amount      models.Money
	alreadyDone bool
}

// RunDailyCycle 按周期幂等执行；已完成返回已有记录，部分成功或失败时续跑
func (s *CycleService) RunDailyCycle(ctx context.Context, cycle models.CycleDate, trigger string) (*models.RunRecord, error) {
	if _, err := models.ParseCycleDate(string(cycle)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCycleDate, err)
	}
	if trigger == "" {
		trigger = constants.RunTriggerManual
	}

	if s.locker != nil {
		unlock, acquired, err := s.locker.TryLock(ctx, string(cycle), s.cfg.LockTTL())
		if err != nil {
			// 锁服务不可用时仍由运行中唯一索引兜底
			logger.Warnw("cycle_lock_unavailable", "cycle_date", cycle, "error", err)
		} else if !acquired {
			metrics.CycleRunConflicts.Inc()
			return nil, fmt.Errorf("%w: cycle=%s 锁已被占用", ErrRunConflict, cycle)
		} else {
			defer unlock()
		}
	}

	run, done, err := s.tracker.Open(ctx, cycle, trigger)
	if err != nil {
		if errors.Is(err, ErrRunConflict) {
			metrics.CycleRunConflicts.Inc()
			logger.Warnw("cycle_run_conflict", "cycle_date", cycle, "trigger", trigger)
		}
		return run, err
	}
	if done {
		logger.Infow("cycle_run_already_completed", "cycle_date", cycle, "run_no", run.RunNo)
		return run, nil
	}

	log := logger.ForRun(run.RunNo, string(cycle))
	log.Infow("cycle_run_started", "trigger", trigger, "attempt", run.Attempt)
	startedAt := time.Now()

	if reconciled, err := s.ledger.ReconcilePending(ctx, cycle); err != nil {
		return s.failRun(ctx, log, run, fmt.Errorf("补记待入账流水失败: %w", err), startedAt)
	} else if reconciled > 0 {
		log.Warnw("cycle_run_pending_reconciled", "count", reconciled)
	}

	eligible, err := s.eligibility.Evaluate(ctx, cycle)
	if err != nil {
		return s.failRun(ctx, log, run, err, startedAt)
	}
	if err := s.tracker.SetCandidates(ctx, run, len(eligible.Candidates)+len(eligible.Skipped)); err != nil {
		return s.failRun(ctx, log, run, err, startedAt)
	}

	var aborted error
	for _, skipped := range eligible.Skipped {
		if ctx.Err() != nil {
			aborted = fmt.Errorf("%w: %v", ErrRunAborted, ctx.Err())
			break
		}
		if err := s.markSkipped(ctx, run, skipped); err != nil {
			log.Warnw("cycle_item_skip_record_failed", "investment_id", skipped.Investment.ID, "error", err)
		}
	}

	for _, candidate := range eligible.Candidates {
		if aborted != nil {
			break
		}
		if ctx.Err() != nil {
			aborted = fmt.Errorf("%w: %v", ErrRunAborted, ctx.Err())
			break
		}
		s.processCandidate(ctx, log, run, candidate)
	}

	if err := s.tracker.Finish(context.WithoutCancel(ctx), run, aborted); err != nil {
		log.Errorw("cycle_run_finish_failed", "error", err)
		return run, err
	}
	metrics.ObserveRun(string(run.Status), trigger, time.Since(startedAt))
	log.Infow("cycle_run_finished",
		"status", run.Status,
		"processed", run.ProcessedCount,
		"skipped", run.SkippedCount,
		"errors", run.ErrorCount,
		"total_amount", run.TotalAmount.String(),
		"cumulative_processed", run.CumulativeProcessed,
		"elapsed_ms", time.Since(startedAt).Milliseconds(),
	)
	return run, nil
}

// ReplayRun 续跑指定批次所在周期，仅重放失败与未处理项
func (s *CycleService) ReplayRun(ctx context.Context, runID uint) (*models.RunRecord, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return s.RunDailyCycle(ctx, run.CycleDate, constants.RunTriggerReplay)
}

// SweepStaleRuns 清理僵死批次
func (s *CycleService) SweepStaleRuns(ctx context.Context) (int, error) {
	return s.tracker.SweepStale(ctx)
}

func (s *CycleService) processCandidate(ctx context.Context, log *zap.SugaredLogger, run *models.RunRecord, candidate Candidate) {
	investment := candidate.Investment
	rates := s.policy.Resolve(candidate.Plan, investment.PlanID)
	for _, warning := range rates.Warnings {
		log.Warnw("cycle_item_plan_fallback",
			"investment_id", investment.ID,
			"plan_id", investment.PlanID,
			"rate_source", rates.Source,
			"daily_rate", rates.DailyRate.String(),
			"error", warning,
		)
	}

	if !rates.DailyRate.IsPositive() {
		// 无可用日收益率时不推进周期，留待修正配置后重放
		s.recordItemFailure(ctx, log, run, candidate,
			fmt.Errorf("%w: 投资 %d 无可用日收益率 (来源 %s)", ErrConfiguration, investment.ID, rates.Source))
		return
	}

	// 单元内不响应批次取消，只受单项超时约束
	itemCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ItemTimeout())
	defer cancel()

	r := retrier.New(
		retrier.WithMaxRetries(s.cfg.ItemMaxRetries),
		retrier.WithInitialInterval(s.cfg.RetryInterval()),
		retrier.WithRetryIf(isRetryable),
		retrier.WithOnRetry(func(attempt int, err error) {
			metrics.CycleItemRetries.Inc()
			log.Warnw("cycle_item_retry", "investment_id", investment.ID, "attempt", attempt, "error", err)
		}),
	)
	result, err := retrier.DoWithData(r, itemCtx, func(c context.Context) (*itemResult, error) {
		return s.processUnit(c, run, candidate, rates)
	})
	if err == nil && itemCtx.Err() != nil {
		err = itemCtx.Err()
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", ErrItemTimeout, err)
		}
		s.recordItemFailure(ctx, log, run, candidate, err)
		return
	}

	if err := s.tracker.ItemProcessed(context.WithoutCancel(ctx), run, result.amount); err != nil {
		log.Errorw("cycle_run_progress_save_failed", "investment_id", investment.ID, "error", err)
	}
	metrics.ObserveItem(constants.ActivationStateProcessed)
	log.Debugw("cycle_item_processed",
		"account_id", investment.AccountID,
		"investment_id", investment.ID,
		"amount", result.amount.String(),
		"already_done", result.alreadyDone,
	)
}

// processUnit 一个投资的日收益与分佣作为一个处理单元
func (s *CycleService) processUnit(ctx context.Context, run *models.RunRecord, candidate Candidate, rates ResolvedRates) (*itemResult, error) {
	result := &itemResult{amount: models.ZeroMoney()}
	investment := candidate.Investment
	err := s.uow.Run(ctx, s.cfg.AtomicUnit, func(tx *gorm.DB) error {
		activationRepo := s.activationRepo.WithTx(tx)
		record, err := activationRepo.Ensure(&models.ActivationRecord{
			AccountID:    investment.AccountID,
			InvestmentID: investment.ID,
			CycleDate:    run.CycleDate,
			State:        models.ActivationPending,
			RunID:        run.ID,
		})
		if err != nil {
			return wrapStoreError(err)
		}
		if record.State == models.ActivationProcessed {
			result.alreadyDone = true
			return nil
		}

		profit, err := s.profit.ProcessInTx(tx, candidate, rates, run.CycleDate, run.ID)
		if err != nil {
			return err
		}
		if profit.Credit != nil && profit.Credit.Applied {
			result.amount = result.amount.Add(profit.Profit)
		}
		if profit.AlreadyPaid {
			result.alreadyDone = true
		} else if profit.Profit.IsPositive() {
			cascade, err := s.commission.CascadeInTx(tx, CascadeInput{
				Origin:       candidate.Account,
				InvestmentID: investment.ID,
				Profit:       profit.Profit,
				Cycle:        run.CycleDate,
				Rates:        rates.LevelRates,
				RunID:        run.ID,
			})
			if err != nil {
				return &stageError{stage: constants.RunStageCommission, err: err}
			}
			result.amount = result.amount.Add(cascade.Total)
		}
		if err := s.profit.AdvanceInTx(tx, profit, run.CycleDate); err != nil {
			return err
		}

		now := time.Now()
		record.State = models.ActivationProcessed
		record.Amount = profit.Profit
		record.RunID = run.ID
		record.Attempts++
		record.ProcessedAt = &now
		record.Reason = ""
		if len(rates.Warnings) > 0 {
			record.Reason = truncateReason(rates.Source)
		}
		if profit.Credit != nil && profit.Credit.Entry != nil {
			entryID := profit.Credit.Entry.ID
			record.LedgerEntryID = &entryID
		}
		return wrapStoreError(activationRepo.Update(record))
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *CycleService) markSkipped(ctx context.Context, run *models.RunRecord, skipped SkippedInvestment) error {
	err := s.uow.Run(ctx, true, func(tx *gorm.DB) error {
		repo := s.activationRepo.WithTx(tx)
		record, err := repo.Ensure(&models.ActivationRecord{
			AccountID:    skipped.Investment.AccountID,
			InvestmentID: skipped.Investment.ID,
			CycleDate:    run.CycleDate,
			State:        models.ActivationSkipped,
			RunID:        run.ID,
		})
		if err != nil {
			return err
		}
		if record.State == models.ActivationProcessed {
			return nil
		}
		record.State = models.ActivationSkipped
		record.Reason = skipped.Reason
		record.RunID = run.ID
		return repo.Update(record)
	})
	if err != nil {
		return wrapStoreError(err)
	}
	metrics.ObserveItem(constants.ActivationStateSkipped)
	return s.tracker.ItemSkipped(ctx, run)
}

func (s *CycleService) recordItemFailure(ctx context.Context, log *zap.SugaredLogger, run *models.RunRecord, candidate Candidate, cause error) {
	investment := candidate.Investment
	stage := constants.RunStageProfit
	var staged *stageError
	if errors.As(cause, &staged) {
		stage = staged.stage
	}
	log.Warnw("cycle_item_failed",
		"account_id", investment.AccountID,
		"investment_id", investment.ID,
		"stage", stage,
		"kind", ClassifyError(cause),
		"error", cause,
	)
	metrics.ObserveItem(constants.ActivationStateFailed)

	bg := context.WithoutCancel(ctx)
	if err := s.uow.Run(bg, true, func(tx *gorm.DB) error {
		repo := s.activationRepo.WithTx(tx)
		record, err := repo.Ensure(&models.ActivationRecord{
			AccountID:    investment.AccountID,
			InvestmentID: investment.ID,
			CycleDate:    run.CycleDate,
			State:        models.ActivationFailed,
			RunID:        run.ID,
		})
		if err != nil {
			return err
		}
		if record.State == models.ActivationProcessed {
			return nil
		}
		record.State = models.ActivationFailed
		record.Reason = truncateReason(cause.Error())
		record.RunID = run.ID
		record.Attempts++
		return repo.Update(record)
	}); err != nil {
		log.Errorw("cycle_item_failure_record_failed", "investment_id", investment.ID, "error", err)
	}
	if err := s.tracker.ItemFailed(bg, run, investment.AccountID, investment.ID, stage, cause); err != nil {
		log.Errorw("cycle_run_error_save_failed", "investment_id", investment.ID, "error", err)
	}
}

func (s *CycleService) failRun(ctx context.Context, log *zap.SugaredLogger, run *models.RunRecord, cause error, startedAt time.Time) (*models.RunRecord, error) {
	log.Errorw("cycle_run_failed", "error", cause)
	if err := s.tracker.Fail(context.WithoutCancel(ctx), run, cause); err != nil {
		log.Errorw("cycle_run_fail_save_failed", "error", err)
	}
	metrics.ObserveRun(string(run.Status), run.Trigger, time.Since(startedAt))
	return run, cause
}

// GetRun 查询批次（含错误明细）
func (s *CycleService) GetRun(ctx context.Context, runID uint) (*models.RunRecord, error) {
	var run *models.RunRecord
	err := s.uow.Run(ctx, false, func(db *gorm.DB) error {
		var err error
		run, err = s.runRepo.WithTx(db).GetByID(runID, true)
		return err
	})
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if run == nil {
		return nil, fmt.Errorf("%w: id=%d", ErrRunNotFound, runID)
	}
	return run, nil
}

// ListRuns 查询批次列表
func (s *CycleService) ListRuns(ctx context.Context, filter repository.RunListFilter) ([]models.RunRecord, int64, error) {
	var (
		runs  []models.RunRecord
		total int64
	)
	err := s.uow.Run(ctx, false, func(db *gorm.DB) error {
		var err error
		runs, total, err = s.runRepo.WithTx(db).List(filter)
		return err
	})
	return runs, total, err
}

// ListLedgerEntries 查询账本流水
func (s *CycleService) ListLedgerEntries(ctx context.Context, filter repository.LedgerListFilter) ([]models.LedgerEntry, int64, error) {
	return s.ledger.List(ctx, filter)
}

// ListActivationRecords 查询激活记录
func (s *CycleService) ListActivationRecords(ctx context.Context, filter repository.ActivationListFilter) ([]models.ActivationRecord, int64, error) {
	var (
		records []models.ActivationRecord
		total   int64
	)
	err := s.uow.Run(ctx, false, func(db *gorm.DB) error {
		var err error
		records, total, err = s.activationRepo.WithTx(db).List(filter)
		return err
	})
	return records, total, err
}
