package queue

import (
	"encoding/json"
	"fmt"

	"github.com/yieldtree/engine/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskProfitDailyCycle 每日收益批次任务
	TaskProfitDailyCycle = constants.TaskProfitDailyCycle
	// TaskProfitCycleReplay 批次续跑任务
	TaskProfitCycleReplay = constants.TaskProfitCycleReplay
)

// DailyCyclePayload 每日收益批次任务载荷；CycleDate 为空时按执行时刻计算
type DailyCyclePayload struct {
	CycleDate string `json:"cycle_date,omitempty"`
	Trigger   string `json:"trigger"`
}

// CycleReplayPayload 批次续跑任务载荷
type CycleReplayPayload struct {
	RunID uint `json:"run_id"`
}

// NewDailyCycleTask 创建每日收益批次任务
func NewDailyCycleTask(payload DailyCyclePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskProfitDailyCycle, body), nil
}

// NewCycleReplayTask 创建批次续跑任务
func NewCycleReplayTask(payload CycleReplayPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskProfitCycleReplay, body), nil
}

// DailyCycleTaskID 同一周期的任务ID，重复入队被去重
func DailyCycleTaskID(cycleDate string) string {
	return fmt.Sprintf("%s:%s", "daily_cycle", cycleDate)
}
