package app

import (
	"errors"
	"fmt"

	"github.com/yieldtree/engine/internal/config"
	"github.com/yieldtree/engine/internal/logger"
	"github.com/yieldtree/engine/internal/models"
	"github.com/yieldtree/engine/internal/provider"
	"github.com/yieldtree/engine/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, *provider.Container, error) {
	if cfg == nil {
		return nil, nil, errors.New("config is nil")
	}
	if mode != ModeAll && mode != ModeWorker && mode != ModeScheduler {
		return nil, nil, fmt.Errorf("unknown mode %q", mode)
	}

	container := provider.NewContainer(cfg)

	// 逆序停止：worker 最先停止并收尾在途批次，其次调度，最后指标端点
	var services []Service
	if cfg.Metrics.Enabled {
		services = append(services, NewHTTPService(cfg.Metrics.Addr(), NewMetricsHandler(cfg.Metrics, models.DB)))
	}

	if mode == ModeAll || mode == ModeScheduler {
		schedulerService, err := worker.NewSchedulerService(&cfg.Queue, cfg.Engine)
		if err != nil {
			return nil, container, err
		}
		services = append(services, schedulerService)
	}

	if mode == ModeAll || mode == ModeWorker {
		consumer := worker.NewConsumer(container)
		workerService, err := worker.NewService(&cfg.Queue, cfg.Engine, consumer)
		if err != nil {
			return nil, container, err
		}
		services = append(services, workerService)
	}

	if len(services) == 0 {
		return nil, container, errors.New("no services initialized (check mode and config)")
	}

	return NewRunner(services...), container, nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, container, err := BuildRunner(opts.Config, opts.Mode)
	if container != nil {
		defer container.Close()
	}
	if err != nil {
		return err
	}

	logger.Infow("app_start",
		"mode", opts.Mode,
		"metrics_addr", opts.Config.Metrics.Addr(),
		"schedule", opts.Config.Engine.Schedule,
		"shutdown_timeout", opts.ShutdownTimeout.String(),
	)
	return RunWithOptions(runner, opts)
}
