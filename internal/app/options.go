package app

import (
	"os"
	"time"

	"github.com/yieldtree/engine/internal/config"
)

// 运行模式：all 同时运行 worker 与调度，worker 只消费批次任务，scheduler 只按 cron 投递
const (
	ModeAll       = "all"
	ModeWorker    = "worker"
	ModeScheduler = "scheduler"
)

const (
	defaultShutdownTimeout = 10 * time.Second
	// 单项超时之外的停止余量
	shutdownGrace = 5 * time.Second
)

// Options 应用启动选项
type Options struct {
	Config          *config.Config
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            string
}

// normalizeOptions 补齐默认参数；停止超时不短于单项超时，保证在途投资处理完成
func normalizeOptions(opts Options) Options {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
		if opts.Config != nil {
			if drain := opts.Config.Engine.ItemTimeout() + shutdownGrace; drain > opts.ShutdownTimeout {
				opts.ShutdownTimeout = drain
			}
		}
	}
	if opts.Mode == "" {
		opts.Mode = ModeAll
	}
	return opts
}
