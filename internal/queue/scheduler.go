package queue

import (
	"errors"
	"strings"
	"time"

	"github.com/yieldtree/engine/internal/config"
	"github.com/yieldtree/engine/internal/constants"
	"github.com/yieldtree/engine/internal/logger"

	"github.com/hibiken/asynq"
)

// NewScheduler 按 engine.schedule 注册每日批次的 cron 任务
// 载荷不带周期日期，由消费者按执行时刻在参考时区内计算
func NewScheduler(queueCfg *config.QueueConfig, engineCfg config.EngineConfig) (*asynq.Scheduler, string, error) {
	if queueCfg == nil || !queueCfg.Enabled {
		return nil, "", ErrQueueDisabled
	}
	cronExpr := strings.TrimSpace(engineCfg.Schedule)
	if cronExpr == "" {
		return nil, "", errors.New("engine.schedule is empty")
	}
	loc, err := engineCfg.Location()
	if err != nil {
		return nil, "", err
	}
	scheduler := asynq.NewScheduler(buildRedisOpt(queueCfg), &asynq.SchedulerOpts{
		Location: loc,
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				logger.Warnw("scheduler_enqueue_failed", "error", err)
				return
			}
			logger.Infow("scheduler_enqueued", "task_id", info.ID, "queue", info.Queue)
		},
	})
	task, err := NewDailyCycleTask(DailyCyclePayload{Trigger: constants.RunTriggerSchedule})
	if err != nil {
		return nil, "", err
	}
	entryID, err := scheduler.Register(cronExpr, task,
		asynq.Queue(CriticalQueue),
		asynq.MaxRetry(3),
		asynq.Timeout(6*time.Hour),
		asynq.Unique(time.Hour),
	)
	if err != nil {
		return nil, "", err
	}
	return scheduler, entryID, nil
}
