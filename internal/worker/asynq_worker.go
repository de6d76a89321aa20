package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yieldtree/engine/internal/constants"
	"github.com/yieldtree/engine/internal/logger"
	"github.com/yieldtree/engine/internal/models"
	"github.com/yieldtree/engine/internal/provider"
	"github.com/yieldtree/engine/internal/queue"
	"github.com/yieldtree/engine/internal/service"

	"github.com/hibiken/asynq"
)

// CycleRunner 批次执行入口
type CycleRunner interface {
	RunDailyCycle(ctx context.Context, cycle models.CycleDate, trigger string) (*models.RunRecord, error)
	ReplayRun(ctx context.Context, runID uint) (*models.RunRecord, error)
	CurrentCycle(now time.Time) models.CycleDate
}

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
	runner CycleRunner
	now    func() time.Time
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	consumer := &Consumer{
		Container: c,
		now:       time.Now,
	}
	if c != nil && c.CycleService != nil {
		consumer.runner = c.CycleService
	}
	return consumer
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskProfitDailyCycle, c.handleDailyCycle)
	mux.HandleFunc(queue.TaskProfitCycleReplay, c.handleCycleReplay)
}

func (c *Consumer) handleDailyCycle(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.runner == nil {
		logger.Debugw("worker_daily_cycle_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.DailyCyclePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_daily_cycle_unmarshal_failed", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	cycle := models.CycleDate(strings.TrimSpace(payload.CycleDate))
	if cycle.IsZero() {
		cycle = c.runner.CurrentCycle(c.now())
	}
	trigger := strings.TrimSpace(payload.Trigger)
	if trigger == "" {
		trigger = constants.RunTriggerSchedule
	}

	run, err := c.runner.RunDailyCycle(ctx, cycle, trigger)
	return handleRunResult("worker_daily_cycle", cycle, run, err)
}

func (c *Consumer) handleCycleReplay(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.runner == nil {
		logger.Debugw("worker_cycle_replay_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.CycleReplayPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_cycle_replay_unmarshal_failed", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if payload.RunID == 0 {
		logger.Debugw("worker_cycle_replay_skip_invalid_payload", "run_id", payload.RunID)
		return nil
	}
	run, err := c.runner.ReplayRun(ctx, payload.RunID)
	var cycle models.CycleDate
	if run != nil {
		cycle = run.CycleDate
	}
	return handleRunResult("worker_cycle_replay", cycle, run, err)
}

// handleRunResult 将批次结果映射为任务结果：冲突与不可重试错误不再重试
func handleRunResult(event string, cycle models.CycleDate, run *models.RunRecord, err error) error {
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRunConflict):
			logger.Infow(event+"_skip_conflict", "cycle_date", cycle)
			return nil
		case errors.Is(err, service.ErrInvalidCycleDate), errors.Is(err, service.ErrNotFound):
			logger.Warnw(event+"_invalid", "cycle_date", cycle, "error", err)
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		default:
			logger.Warnw(event+"_failed", "cycle_date", cycle, "error", err)
			return err
		}
	}
	if run != nil && run.Status == models.RunFailed {
		// 批次级失败交由 asynq 重试续跑
		return fmt.Errorf("run %s failed: %s", run.RunNo, run.FailureMessage)
	}
	return nil
}
