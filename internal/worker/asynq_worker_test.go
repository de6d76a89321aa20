package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yieldtree/engine/internal/constants"
	"github.com/yieldtree/engine/internal/models"
	"github.com/yieldtree/engine/internal/queue"
	"github.com/yieldtree/engine/internal/service"

	"github.com/hibiken/asynq"
)

type stubRunner struct {
	cycle    models.CycleDate
	trigger  string
	replayID uint
	run      *models.RunRecord
	err      error
}

func (s *stubRunner) RunDailyCycle(_ context.Context, cycle models.CycleDate, trigger string) (*models.RunRecord, error) {
	s.cycle = cycle
	s.trigger = trigger
	return s.run, s.err
}

func (s *stubRunner) ReplayRun(_ context.Context, runID uint) (*models.RunRecord, error) {
	s.replayID = runID
	return s.run, s.err
}

func (s *stubRunner) CurrentCycle(now time.Time) models.CycleDate {
	return models.CycleDateOf(now, time.UTC)
}

func newTestConsumer(runner CycleRunner) *Consumer {
	return &Consumer{
		runner: runner,
		now:    func() time.Time { return time.Date(2024, 3, 1, 0, 5, 0, 0, time.UTC) },
	}
}

func TestHandleDailyCycleUsesCurrentCycleWhenEmpty(t *testing.T) {
	runner := &stubRunner{run: &models.RunRecord{Status: models.RunCompleted}}
	consumer := newTestConsumer(runner)
	task, err := queue.NewDailyCycleTask(queue.DailyCyclePayload{})
	if err != nil {
		t.Fatalf("new task failed: %v", err)
	}
	if err := consumer.handleDailyCycle(context.Background(), task); err != nil {
		t.Fatalf("handle daily cycle failed: %v", err)
	}
	if runner.cycle != "2024-03-01" || runner.trigger != constants.RunTriggerSchedule {
		t.Fatalf("unexpected invocation: cycle=%s trigger=%s", runner.cycle, runner.trigger)
	}
}

func TestHandleDailyCycleConflictIsNotRetried(t *testing.T) {
	runner := &stubRunner{err: service.ErrRunConflict}
	consumer := newTestConsumer(runner)
	task, _ := queue.NewDailyCycleTask(queue.DailyCyclePayload{CycleDate: "2024-03-02", Trigger: constants.RunTriggerManual})
	if err := consumer.handleDailyCycle(context.Background(), task); err != nil {
		t.Fatalf("conflict should be swallowed, got %v", err)
	}
	if runner.cycle != "2024-03-02" || runner.trigger != constants.RunTriggerManual {
		t.Fatalf("unexpected invocation: cycle=%s trigger=%s", runner.cycle, runner.trigger)
	}
}

func TestHandleDailyCycleInvalidDateSkipsRetry(t *testing.T) {
	runner := &stubRunner{err: service.ErrInvalidCycleDate}
	consumer := newTestConsumer(runner)
	task, _ := queue.NewDailyCycleTask(queue.DailyCyclePayload{CycleDate: "bad"})
	err := consumer.handleDailyCycle(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestHandleDailyCycleFailedRunIsRetried(t *testing.T) {
	runner := &stubRunner{run: &models.RunRecord{RunNo: "r1", Status: models.RunFailed, FailureMessage: "store down"}}
	consumer := newTestConsumer(runner)
	task, _ := queue.NewDailyCycleTask(queue.DailyCyclePayload{CycleDate: "2024-03-02"})
	err := consumer.handleDailyCycle(context.Background(), task)
	if err == nil || errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected retryable error, got %v", err)
	}
}

func TestHandleCycleReplay(t *testing.T) {
	runner := &stubRunner{run: &models.RunRecord{CycleDate: "2024-03-01", Status: models.RunCompleted}}
	consumer := newTestConsumer(runner)
	task, _ := queue.NewCycleReplayTask(queue.CycleReplayPayload{RunID: 9})
	if err := consumer.handleCycleReplay(context.Background(), task); err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if runner.replayID != 9 {
		t.Fatalf("unexpected replay id: %d", runner.replayID)
	}

	runner.err = service.ErrRunNotFound
	if err := consumer.handleCycleReplay(context.Background(), task); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("missing run should skip retry, got %v", err)
	}
}

type countingSweeper struct {
	calls atomic.Int32
}

func (s *countingSweeper) SweepStaleRuns(context.Context) (int, error) {
	s.calls.Add(1)
	return 0, nil
}

func TestStaleSweepLoopRunsImmediatelyAndStops(t *testing.T) {
	sweeper := &countingSweeper{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runStaleSweepLoop(ctx, sweeper, time.Hour)
		close(done)
	}()
	deadline := time.Now().Add(2 * time.Second)
	for sweeper.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("sweep loop did not stop")
	}
	if sweeper.calls.Load() != 1 {
		t.Fatalf("expected one sweep, got %d", sweeper.calls.Load())
	}
}
