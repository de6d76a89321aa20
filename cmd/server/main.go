package main

import (
	"flag"
	"fmt"
	"os"
	"syscall"

	"github.com/yieldtree/engine/internal/app"
	"github.com/yieldtree/engine/internal/config"
	"github.com/yieldtree/engine/internal/logger"
	"github.com/yieldtree/engine/internal/models"
)

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiDim   = "\033[2m"
	ansiGreen = "\033[32m"
	ansiCyan  = "\033[36m"
)

func main() {
	// 解析命令行参数
	var mode string
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), worker, scheduler")
	flag.Parse()

	printStartupBanner(mode)

	// 加载配置
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	// 初始化数据库
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("数据库初始化失败: %v", err)
	}

	// 自动迁移数据库表
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("数据库迁移失败: %v", err)
	}

	// 旧版数字状态迁移为文本状态
	if migrated, err := models.MigrateLegacyStatuses(models.DB); err != nil {
		stdLog.Fatalf("状态迁移失败: %v", err)
	} else if migrated > 0 {
		logger.Warnw("legacy_status_migrated", "rows", migrated)
	}

	// 初始化平台根账户
	if err := models.InitRootAccount(cfg.Engine.RootAccountID); err != nil {
		stdLog.Fatalf("根账户初始化失败: %v", err)
	}

	if err := app.Run(app.Options{
		Config:  cfg,
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

func printStartupBanner(mode string) {
	fmt.Println(ansiCyan + ansiBold + "yieldtree profit engine" + ansiReset)
	fmt.Println(ansiGreen + "daily profit and upline commission batch" + ansiReset)
	fmt.Println(ansiDim + "mode: " + mode + ansiReset)
	fmt.Println(ansiDim + "--------------------------------------------------------------" + ansiReset)
}
