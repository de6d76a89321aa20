package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/yieldtree/engine/internal/config"
	"github.com/yieldtree/engine/internal/logger"
	"github.com/yieldtree/engine/internal/models"
	"github.com/yieldtree/engine/internal/provider"

	"github.com/spf13/cobra"
)

var (
	container *provider.Container
	outputFmt string
)

var rootCmd = &cobra.Command{
	Use:           "cyclectl",
	Short:         "Operate the daily profit and commission batch",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if outputFmt != "table" && outputFmt != "json" {
			return fmt.Errorf("unsupported output %q (table|json)", outputFmt)
		}
		return bootstrap()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if container != nil {
			container.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format: table or json")
}

// bootstrap 加载配置、连接数据库并组装依赖
func bootstrap() error {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := models.AutoMigrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	if err := models.InitRootAccount(cfg.Engine.RootAccountID); err != nil {
		return fmt.Errorf("init root account: %w", err)
	}
	container = provider.NewContainer(cfg)
	return nil
}

// resolveCycle 解析周期参数，为空时取参考时区的当前周期
func resolveCycle(raw string, loc *time.Location, now time.Time) (models.CycleDate, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "today" {
		return models.CycleDateOf(now, loc), nil
	}
	if raw == "yesterday" {
		return models.CycleDateOf(now.AddDate(0, 0, -1), loc), nil
	}
	return models.ParseCycleDate(raw)
}
