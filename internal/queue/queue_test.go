package queue

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/yieldtree/engine/internal/config"
)

func TestNewDailyCycleTaskPayload(t *testing.T) {
	task, err := NewDailyCycleTask(DailyCyclePayload{CycleDate: "2024-03-01", Trigger: "manual"})
	if err != nil {
		t.Fatalf("new task failed: %v", err)
	}
	if task.Type() != TaskProfitDailyCycle {
		t.Fatalf("unexpected task type: %s", task.Type())
	}
	var payload DailyCyclePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		t.Fatalf("unmarshal payload failed: %v", err)
	}
	if payload.CycleDate != "2024-03-01" || payload.Trigger != "manual" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestDailyCycleTaskID(t *testing.T) {
	if got := DailyCycleTaskID("2024-03-01"); got != "daily_cycle:2024-03-01" {
		t.Fatalf("unexpected task id: %s", got)
	}
}

func TestDisabledClient(t *testing.T) {
	client, err := NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if client.Enabled() {
		t.Fatalf("client should be disabled")
	}
	if _, err := client.EnqueueDailyCycle(DailyCyclePayload{CycleDate: "2024-03-01"}); !errors.Is(err, ErrQueueDisabled) {
		t.Fatalf("expected ErrQueueDisabled, got %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close disabled client failed: %v", err)
	}
	if _, _, err := NewScheduler(&config.QueueConfig{Enabled: false}, config.DefaultEngineConfig()); !errors.Is(err, ErrQueueDisabled) {
		t.Fatalf("expected ErrQueueDisabled from scheduler, got %v", err)
	}
}

func TestBuildServerConfigDefaults(t *testing.T) {
	opt, cfg := BuildServerConfig(&config.QueueConfig{Host: " redis ", Port: 6380, DB: 2})
	if opt.Addr != "redis:6380" || opt.DB != 2 {
		t.Fatalf("unexpected redis opt: %+v", opt)
	}
	if cfg.Concurrency != 1 || cfg.Queues[CriticalQueue] != 5 {
		t.Fatalf("unexpected server config: %+v", cfg)
	}
}
