package service

import (
	"errors"
	"testing"

	"github.com/yieldtree/engine/internal/config"
	"github.com/yieldtree/engine/internal/models"

	"github.com/shopspring/decimal"
)

func TestPlanPolicyResolve(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	cfg.FallbackDailyRate = "0.05"
	policy := NewPlanPolicy(cfg)

	plan := &models.Plan{ID: 1, DailyRate: models.MustMoney("0.266")}
	var rates [10]decimal.Decimal
	for i := range rates {
		rates[i] = decimal.NewFromInt(1)
	}
	plan.SetLevelRates(rates)

	resolved := policy.Resolve(plan, plan.ID)
	if resolved.Source != rateSourcePlan || !resolved.DailyRate.Equal(decimal.RequireFromString("0.266")) || len(resolved.Warnings) != 0 {
		t.Fatalf("unexpected resolved rates: %+v", resolved)
	}

	plan.DailyRate = models.ZeroMoney()
	plan.FallbackDailyRate = models.MustMoney("0.1")
	resolved = policy.Resolve(plan, plan.ID)
	if resolved.Source != rateSourcePlanFallback || !resolved.DailyRate.Equal(decimal.RequireFromString("0.1")) {
		t.Fatalf("expected plan fallback, got %+v", resolved)
	}
	if len(resolved.Warnings) != 1 || !errors.Is(resolved.Warnings[0], ErrConfiguration) {
		t.Fatalf("expected configuration warning, got %v", resolved.Warnings)
	}

	plan.Level3Rate = models.MustMoney("-1")
	resolved = policy.Resolve(plan, plan.ID)
	for level, rate := range resolved.LevelRates {
		if !rate.IsZero() {
			t.Fatalf("invalid level table should resolve to zero, level %d = %s", level+1, rate)
		}
	}

	resolved = policy.Resolve(nil, 42)
	if resolved.Source != rateSourceEngine || !resolved.DailyRate.Equal(decimal.RequireFromString("0.05")) {
		t.Fatalf("expected engine fallback, got %+v", resolved)
	}
}

func TestPlanPolicyInvalidEngineFallback(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	cfg.FallbackDailyRate = "-3"
	resolved := NewPlanPolicy(cfg).Resolve(nil, 1)
	if !resolved.DailyRate.IsZero() {
		t.Fatalf("negative engine fallback should resolve to zero, got %s", resolved.DailyRate)
	}
}
