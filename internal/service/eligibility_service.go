package service

import (
	"context"
	"fmt"
	"time"

	"github.com/yieldtree/engine/internal/config"
	"github.com/yieldtree/engine/internal/constants"
	"github.com/yieldtree/engine/internal/models"
	"github.com/yieldtree/engine/internal/repository"

	"gorm.io/gorm"
)

// EligibilityService 判定周期内可发放收益的投资
type EligibilityService struct {
	investmentRepo repository.InvestmentRepository
	accountRepo    repository.AccountRepository
	planRepo       repository.PlanRepository
	activationRepo repository.ActivationRepository
	uow            repository.UnitOfWork
	cfg            config.EngineConfig
	loc            *time.Location
}

// Candidate 候选投资及其账户、套餐；账户不存在时 Account 为 nil
type Candidate struct {
	Investment models.Investment
	Account    *models.Account
	Plan       *models.Plan
}

// SkippedInvestment 有效但本周期不发放的投资
type SkippedInvestment struct {
	Investment models.Investment
	Reason     string
}

// EligibilityResult 资格判定结果，顺序按 (账户ID, 投资ID)
type EligibilityResult struct {
	Candidates []Candidate
	Skipped    []SkippedInvestment
}

// NewEligibilityService 创建资格判定服务
func NewEligibilityService(
	investmentRepo repository.InvestmentRepository,
	accountRepo repository.AccountRepository,
	planRepo repository.PlanRepository,
	activationRepo repository.ActivationRepository,
	uow repository.UnitOfWork,
	cfg config.EngineConfig,
	loc *time.Location,
) *EligibilityService {
	if loc == nil {
		loc = time.UTC
	}
	return &EligibilityService{
		investmentRepo: investmentRepo,
		accountRepo:    accountRepo,
		planRepo:       planRepo,
		activationRepo: activationRepo,
		uow:            uow,
		cfg:            cfg,
		loc:            loc,
	}
}

// Evaluate 只读判定；存储不可用时返回空结果与 ErrTransientStore
func (s *EligibilityService) Evaluate(ctx context.Context, cycle models.CycleDate) (*EligibilityResult, error) {
	start := cycle.Start(s.loc)
	end := cycle.End(s.loc)
	if start.IsZero() {
		return &EligibilityResult{}, fmt.Errorf("%w: %q", ErrInvalidCycleDate, cycle)
	}

	var (
		investments []models.Investment
		accounts    []models.Account
		plans       []models.Plan
	)
	err := s.uow.Run(ctx, false, func(db *gorm.DB) error {
		// 仅已发放的投资视为结清，跳过与失败的记录续跑时重新判定
		settled, err := s.activationRepo.WithTx(db).ListInvestmentIDsByStates(cycle, []models.ActivationState{
			models.ActivationProcessed,
		})
		if err != nil {
			return err
		}
		investments, err = s.investmentRepo.WithTx(db).ListEligible(repository.EligibleInvestmentQuery{
			CycleDate:     cycle,
			StartedBefore: end,
			ExcludeIDs:    settled,
		})
		if err != nil {
			return err
		}
		accounts, err = s.accountRepo.WithTx(db).GetByIDs(collectAccountIDs(investments))
		if err != nil {
			return err
		}
		plans, err = s.planRepo.WithTx(db).GetByIDs(collectPlanIDs(investments))
		return err
	})
	if err != nil {
		return &EligibilityResult{}, fmt.Errorf("%w: %v", ErrTransientStore, err)
	}

	accountByID := make(map[uint]*models.Account, len(accounts))
	for idx := range accounts {
		accountByID[accounts[idx].ID] = &accounts[idx]
	}
	planByID := make(map[uint]*models.Plan, len(plans))
	for idx := range plans {
		planByID[plans[idx].ID] = &plans[idx]
	}

	result := &EligibilityResult{
		Candidates: make([]Candidate, 0, len(investments)),
	}
	for _, investment := range investments {
		account := accountByID[investment.AccountID]
		if account == nil {
			// 账户缺失交由收益计算标记失败
			result.Candidates = append(result.Candidates, Candidate{Investment: investment, Plan: planByID[investment.PlanID]})
			continue
		}
		if reason := s.skipReason(account, start, end); reason != "" {
			result.Skipped = append(result.Skipped, SkippedInvestment{Investment: investment, Reason: reason})
			continue
		}
		result.Candidates = append(result.Candidates, Candidate{
			Investment: investment,
			Account:    account,
			Plan:       planByID[investment.PlanID],
		})
	}
	return result, nil
}

func (s *EligibilityService) skipReason(account *models.Account, start, end time.Time) string {
	if account.Status != models.AccountActive {
		return constants.SkipReasonAccountInactive
	}
	if !account.IsActivated || account.ActivatedAt == nil || !account.ActivatedAt.Before(end) {
		return constants.SkipReasonNotActivated
	}
	if account.ActivationExpiresAt != nil && !account.ActivationExpiresAt.After(start) {
		return constants.SkipReasonActivationExpired
	}
	if s.cfg.RequireActivationInCycle && account.ActivatedAt.Before(start) {
		return constants.SkipReasonActivationOutdated
	}
	return ""
}

func collectAccountIDs(investments []models.Investment) []uint {
	seen := make(map[uint]struct{}, len(investments))
	ids := make([]uint, 0, len(investments))
	for _, investment := range investments {
		if _, ok := seen[investment.AccountID]; ok {
			continue
		}
		seen[investment.AccountID] = struct{}{}
		ids = append(ids, investment.AccountID)
	}
	return ids
}

func collectPlanIDs(investments []models.Investment) []uint {
	seen := make(map[uint]struct{}, len(investments))
	ids := make([]uint, 0, len(investments))
	for _, investment := range investments {
		if _, ok := seen[investment.PlanID]; ok {
			continue
		}
		seen[investment.PlanID] = struct{}{}
		ids = append(ids, investment.PlanID)
	}
	return ids
}
