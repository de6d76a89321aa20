package service

import (
	"fmt"

	"github.com/yieldtree/engine/internal/config"
	"github.com/yieldtree/engine/internal/constants"
	"github.com/yieldtree/engine/internal/logger"
	"github.com/yieldtree/engine/internal/models"

	"github.com/shopspring/decimal"
)

// 日收益率来源
const (
	rateSourcePlan         = "plan"
	rateSourcePlanFallback = "plan_fallback"
	rateSourceEngine       = "engine_fallback"
)

// PlanPolicy 套餐比例解析，配置无效时退回安全默认值
type PlanPolicy struct {
	fallbackDailyRate decimal.Decimal
}

// ResolvedRates 单个投资本周期使用的比例
type ResolvedRates struct {
	DailyRate  decimal.Decimal
	Source     string
	LevelRates [constants.MaxCommissionLevels]decimal.Decimal
	Warnings   []error
}

// NewPlanPolicy 创建套餐比例解析器
func NewPlanPolicy(cfg config.EngineConfig) *PlanPolicy {
	fallback, err := decimal.NewFromString(cfg.FallbackDailyRate)
	if err != nil || fallback.IsNegative() {
		logger.Warnw("engine_fallback_daily_rate_invalid", "value", cfg.FallbackDailyRate)
		fallback = decimal.Zero
	}
	return &PlanPolicy{fallbackDailyRate: fallback}
}

// Resolve 解析日收益率与十级佣金比例
func (p *PlanPolicy) Resolve(plan *models.Plan, planID uint) ResolvedRates {
	resolved := ResolvedRates{}
	if plan == nil {
		resolved.DailyRate = p.fallbackDailyRate
		resolved.Source = rateSourceEngine
		resolved.Warnings = append(resolved.Warnings, fmt.Errorf("%w: 套餐 %d 不存在", ErrConfiguration, planID))
		return resolved
	}

	if err := plan.ValidateDailyRate(); err == nil {
		resolved.DailyRate = plan.DailyRate.Decimal
		resolved.Source = rateSourcePlan
	} else {
		resolved.Warnings = append(resolved.Warnings, fmt.Errorf("%w: %v", ErrConfiguration, err))
		fallback := plan.FallbackDailyRate.Decimal
		if fallback.IsPositive() && fallback.LessThanOrEqual(decimal.NewFromInt(100)) {
			resolved.DailyRate = fallback
			resolved.Source = rateSourcePlanFallback
		} else {
			resolved.DailyRate = p.fallbackDailyRate
			resolved.Source = rateSourceEngine
		}
	}

	if err := plan.ValidateLevelRates(); err != nil {
		// 佣金比例表无效时按全零处理
		resolved.Warnings = append(resolved.Warnings, fmt.Errorf("%w: %v", ErrConfiguration, err))
		for i := range resolved.LevelRates {
			resolved.LevelRates[i] = decimal.Zero
		}
	} else {
		resolved.LevelRates = plan.LevelRates()
		if plan.TotalRate().GreaterThan(decimal.NewFromInt(100)) {
			logger.Warnw("plan_total_rate_exceeds_principal", "plan_id", plan.ID, "total_rate", plan.TotalRate().String())
		}
	}
	return resolved
}
