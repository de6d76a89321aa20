package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/yieldtree/engine/internal/config"
	"github.com/yieldtree/engine/internal/models"
	"github.com/yieldtree/engine/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type engineFixture struct {
	db         *gorm.DB
	cfg        config.EngineConfig
	uow        *repository.GormUnitOfWork
	ledger     *LedgerService
	profit     *ProfitService
	commission *CommissionService
	tracker    *RunTracker
	deps       CycleServiceDeps
	cycle      *CycleService
}

func setupEngineServiceTest(t *testing.T, mutate func(cfg *config.EngineConfig)) *engineFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:engine_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Account{},
		&models.Plan{},
		&models.Investment{},
		&models.ActivationRecord{},
		&models.LedgerEntry{},
		&models.RunRecord{},
		&models.RunError{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	cfg := config.DefaultEngineConfig()
	cfg.RetryIntervalMillis = 1
	if mutate != nil {
		mutate(&cfg)
	}

	accountRepo := repository.NewAccountRepository(db)
	planRepo := repository.NewPlanRepository(db)
	investmentRepo := repository.NewInvestmentRepository(db)
	activationRepo := repository.NewActivationRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	runRepo := repository.NewRunRepository(db)
	uow := repository.NewUnitOfWork(db)

	ledger := NewLedgerService(ledgerRepo, accountRepo, uow)
	profit := NewProfitService(investmentRepo, ledger)
	commission := NewCommissionService(accountRepo, investmentRepo, ledger, cfg)
	tracker := NewRunTracker(runRepo, uow, cfg)
	eligibility := NewEligibilityService(investmentRepo, accountRepo, planRepo, activationRepo, uow, cfg, time.UTC)

	deps := CycleServiceDeps{
		Eligibility:    eligibility,
		Profit:         profit,
		Commission:     commission,
		Ledger:         ledger,
		Tracker:        tracker,
		Policy:         NewPlanPolicy(cfg),
		ActivationRepo: activationRepo,
		RunRepo:        runRepo,
		UnitOfWork:     uow,
		Config:         cfg,
		Location:       time.UTC,
	}
	return &engineFixture{
		db:         db,
		cfg:        cfg,
		uow:        uow,
		ledger:     ledger,
		profit:     profit,
		commission: commission,
		tracker:    tracker,
		deps:       deps,
		cycle:      NewCycleService(deps),
	}
}

// useItemHooks 替换批次服务的处理单元执行器，仅单项处理（带超时的 ctx）经过钩子
func (f *engineFixture) useItemHooks(uow *hookedUnitOfWork) {
	uow.inner = f.uow
	deps := f.deps
	deps.UnitOfWork = uow
	f.cycle = NewCycleService(deps)
}

type hookedUnitOfWork struct {
	inner  repository.UnitOfWork
	calls  int
	before func(ctx context.Context, call int) error
	after  func(call int)
}

func (u *hookedUnitOfWork) Run(ctx context.Context, atomic bool, fn func(tx *gorm.DB) error) error {
	if _, ok := ctx.Deadline(); !ok {
		return u.inner.Run(ctx, atomic, fn)
	}
	u.calls++
	call := u.calls
	if u.before != nil {
		if err := u.before(ctx, call); err != nil {
			return err
		}
	}
	if err := u.inner.Run(ctx, atomic, fn); err != nil {
		return err
	}
	if u.after != nil {
		u.after(call)
	}
	return nil
}

func testCycle() models.CycleDate {
	return models.CycleDateOf(time.Now(), time.UTC)
}

func createTestAccount(t *testing.T, db *gorm.DB, id, upline uint) *models.Account {
	t.Helper()
	activatedAt := time.Now().Add(-48 * time.Hour)
	account := &models.Account{
		ID:          id,
		DisplayName: fmt.Sprintf("member_%d", id),
		UplineID:    upline,
		Status:      models.AccountActive,
		IsActivated: true,
		ActivatedAt: &activatedAt,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("create account failed: %v", err)
	}
	return account
}

func createTestPlan(t *testing.T, db *gorm.DB, dailyRate string, levelRates ...string) *models.Plan {
	t.Helper()
	plan := &models.Plan{
		Name:      "plan_" + dailyRate,
		DailyRate: models.MustMoney(dailyRate),
		Status:    models.PlanActive,
	}
	var rates [10]decimal.Decimal
	for i := range rates {
		rates[i] = decimal.Zero
		if i < len(levelRates) {
			rates[i] = decimal.RequireFromString(levelRates[i])
		}
	}
	plan.SetLevelRates(rates)
	if err := db.Create(plan).Error; err != nil {
		t.Fatalf("create plan failed: %v", err)
	}
	return plan
}

func createTestInvestment(t *testing.T, db *gorm.DB, accountID, planID uint, principal string) *models.Investment {
	t.Helper()
	investment := &models.Investment{
		AccountID: accountID,
		PlanID:    planID,
		Principal: models.MustMoney(principal),
		Status:    models.InvestmentActive,
		StartedAt: time.Now().Add(-72 * time.Hour),
	}
	if err := db.Create(investment).Error; err != nil {
		t.Fatalf("create investment failed: %v", err)
	}
	return investment
}

func walletOf(t *testing.T, db *gorm.DB, accountID uint) string {
	t.Helper()
	var account models.Account
	if err := db.First(&account, accountID).Error; err != nil {
		t.Fatalf("load account %d failed: %v", accountID, err)
	}
	return account.WalletBalance.String()
}

func countLedger(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&models.LedgerEntry{}).Count(&count).Error; err != nil {
		t.Fatalf("count ledger failed: %v", err)
	}
	return count
}

// 在事务内执行分佣
func cascadeInTx(t *testing.T, f *engineFixture, input CascadeInput) *CascadeResult {
	t.Helper()
	var result *CascadeResult
	err := f.uow.Run(context.Background(), true, func(tx *gorm.DB) error {
		var err error
		result, err = f.commission.CascadeInTx(tx, input)
		return err
	})
	if err != nil {
		t.Fatalf("cascade failed: %v", err)
	}
	return result
}
