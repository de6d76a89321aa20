package main

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/yieldtree/engine/internal/config"
	"github.com/yieldtree/engine/internal/logger"
	"github.com/yieldtree/engine/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func main() {
	var depth int
	var principal string
	flag.IntVar(&depth, "depth", 12, "推荐链长度")
	flag.StringVar(&principal, "principal", "1000", "每个账户的投资本金")
	flag.Parse()

	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 根账户
	if err := models.InitRootAccount(cfg.Engine.RootAccountID); err != nil {
		stdLog.Fatalf("Failed to init root account: %v", err)
	}

	amount, err := models.NewMoneyFromString(principal)
	if err != nil || !amount.IsPositive() {
		stdLog.Fatalf("Invalid principal %q", principal)
	}

	// 添加套餐
	plans := []models.Plan{
		{Name: "standard", DailyRate: models.MustMoney("0.266"), FallbackDailyRate: models.MustMoney("0.2"), DurationDays: 365},
		{Name: "premium", DailyRate: models.MustMoney("0.35"), FallbackDailyRate: models.MustMoney("0.25"), DurationDays: 180},
	}
	levelTables := map[string][]string{
		"standard": {"25", "10", "5", "4", "3", "2", "2", "1", "1", "1"},
		"premium":  {"30", "12", "6", "5", "4", "3", "2", "2", "1", "1"},
	}
	for _, plan := range plans {
		var existing models.Plan
		err := models.DB.Where("name = ?", plan.Name).First(&existing).Error
		if err == nil {
			stdLog.Printf("Plan already exists: %s", plan.Name)
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			stdLog.Fatalf("Failed to load plan %s: %v", plan.Name, err)
		}
		var rates [10]decimal.Decimal
		for i, raw := range levelTables[plan.Name] {
			rates[i] = decimal.RequireFromString(raw)
		}
		plan.SetLevelRates(rates)
		if err := plan.Validate(); err != nil {
			stdLog.Fatalf("Invalid plan %s: %v", plan.Name, err)
		}
		if err := models.DB.Create(&plan).Error; err != nil {
			stdLog.Printf("Failed to create plan %s: %v", plan.Name, err)
		} else {
			stdLog.Printf("Created plan: %s", plan.Name)
		}
	}

	var standard models.Plan
	if err := models.DB.Where("name = ?", "standard").First(&standard).Error; err != nil {
		stdLog.Fatalf("Failed to load standard plan: %v", err)
	}

	// 推荐链：根账户 <- member_1 <- member_2 <- ...
	activatedAt := time.Now().Add(-24 * time.Hour)
	upline := cfg.Engine.RootAccountID
	for i := 1; i <= depth; i++ {
		name := fmt.Sprintf("member_%d", i)
		var account models.Account
		err := models.DB.Where("display_name = ?", name).First(&account).Error
		switch {
		case err == nil:
			stdLog.Printf("Account already exists: %s", name)
		case errors.Is(err, gorm.ErrRecordNotFound):
			account = models.Account{
				DisplayName:   name,
				UplineID:      upline,
				Status:        models.AccountActive,
				IsActivated:   true,
				ActivatedAt:   &activatedAt,
				TotalInvested: amount,
			}
			if err := models.DB.Create(&account).Error; err != nil {
				stdLog.Fatalf("Failed to create account %s: %v", name, err)
			}
			investment := models.Investment{
				AccountID: account.ID,
				PlanID:    standard.ID,
				Principal: amount,
				Status:    models.InvestmentActive,
				StartedAt: activatedAt,
			}
			if err := models.DB.Create(&investment).Error; err != nil {
				stdLog.Fatalf("Failed to create investment for %s: %v", name, err)
			}
			stdLog.Printf("Created account %s (id=%d, upline=%d) with investment %s", name, account.ID, upline, amount.String())
		default:
			stdLog.Fatalf("Failed to load account %s: %v", name, err)
		}
		upline = account.ID
	}

	stdLog.Printf("Seed completed")
}
