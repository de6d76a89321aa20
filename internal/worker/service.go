package worker

import (
	"context"
	"errors"
	"time"

	"github.com/yieldtree/engine/internal/config"
	"github.com/yieldtree/engine/internal/logger"
	"github.com/yieldtree/engine/internal/queue"

	"github.com/hibiken/asynq"
)

// StaleSweeper 僵死批次清理
type StaleSweeper interface {
	SweepStaleRuns(ctx context.Context) (int, error)
}

// Service 异步队列服务
type Service struct {
	name          string
	server        *asynq.Server
	mux           *asynq.ServeMux
	consumer      *Consumer
	sweepInterval time.Duration
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, engineCfg config.EngineConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	// 批次只在单项之间响应取消，停止时为在途单项留足时间
	serverCfg.ShutdownTimeout = engineCfg.ItemTimeout() + 5*time.Second
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:          "worker",
		server:        server,
		mux:           mux,
		consumer:      consumer,
		sweepInterval: time.Duration(engineCfg.StaleSweepSeconds) * time.Second,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.Container != nil && s.consumer.CycleService != nil && s.sweepInterval > 0 {
		go runStaleSweepLoop(ctx, s.consumer.CycleService, s.sweepInterval)
	}
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		s.server.Shutdown()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func runStaleSweepLoop(ctx context.Context, sweeper StaleSweeper, interval time.Duration) {
	if sweeper == nil || interval <= 0 {
		return
	}
	runOnce := func() {
		swept, err := sweeper.SweepStaleRuns(ctx)
		if err != nil {
			logger.Warnw("worker_stale_run_sweep_failed", "error", err)
			return
		}
		if swept > 0 {
			logger.Infow("worker_stale_run_swept", "count", swept)
		}
	}
	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

// SchedulerService cron 调度服务
type SchedulerService struct {
	name      string
	scheduler *asynq.Scheduler
	entryID   string
	cronExpr  string
}

// NewSchedulerService 创建调度服务
func NewSchedulerService(cfg *config.QueueConfig, engineCfg config.EngineConfig) (*SchedulerService, error) {
	scheduler, entryID, err := queue.NewScheduler(cfg, engineCfg)
	if err != nil {
		return nil, err
	}
	return &SchedulerService{
		name:      "scheduler",
		scheduler: scheduler,
		entryID:   entryID,
		cronExpr:  engineCfg.Schedule,
	}, nil
}

// Name 服务名称
func (s *SchedulerService) Name() string {
	if s == nil || s.name == "" {
		return "scheduler"
	}
	return s.name
}

// Start 启动调度并阻塞至退出
func (s *SchedulerService) Start(ctx context.Context) error {
	if s == nil || s.scheduler == nil {
		return errors.New("scheduler not initialized")
	}
	if err := s.scheduler.Start(); err != nil {
		return err
	}
	logger.Infow("scheduler_started", "entry_id", s.entryID, "schedule", s.cronExpr)
	<-ctx.Done()
	return nil
}

// Stop 停止调度
func (s *SchedulerService) Stop(ctx context.Context) error {
	if s == nil || s.scheduler == nil {
		return nil
	}
	_ = ctx
	s.scheduler.Shutdown()
	return nil
}
