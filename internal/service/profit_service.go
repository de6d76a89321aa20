package service

import (
	"fmt"
	"time"

	"github.com/yieldtree/engine/internal/models"
	"github.com/yieldtree/engine/internal/repository"

	"gorm.io/gorm"
)

// ProfitService 单笔投资日收益计算与入账
type ProfitService struct {
	investmentRepo repository.InvestmentRepository
	ledgerSvc      *LedgerService
}

// ProfitOutcome 日收益处理结果
type ProfitOutcome struct {
	Profit      models.Money
	Rates       ResolvedRates
	Credit      *CreditResult // 零收益时为 nil
	AlreadyPaid bool          // 周期已推进，未重复处理
	Completed   bool          // 本次处理后投资到期

	investment *models.Investment
}

// NewProfitService 创建日收益服务
func NewProfitService(investmentRepo repository.InvestmentRepository, ledgerSvc *LedgerService) *ProfitService {
	return &ProfitService{
		investmentRepo: investmentRepo,
		ledgerSvc:      ledgerSvc,
	}
}

// Calculate profit = principal × dailyRate / 100
func (s *ProfitService) Calculate(principal models.Money, rates ResolvedRates) models.Money {
	return principal.Percent(rates.DailyRate)
}

// ProcessInTx 在处理单元内写入收益流水并记入钱包，周期推进由 AdvanceInTx 完成
func (s *ProfitService) ProcessInTx(tx *gorm.DB, candidate Candidate, rates ResolvedRates, cycle models.CycleDate, runID uint) (*ProfitOutcome, error) {
	if candidate.Account == nil {
		return nil, fmt.Errorf("%w: account=%d investment=%d", ErrAccountNotFound, candidate.Investment.AccountID, candidate.Investment.ID)
	}
	repo := s.investmentRepo.WithTx(tx)

	investment, err := repo.GetByID(candidate.Investment.ID)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if investment == nil {
		return nil, fmt.Errorf("%w: investment=%d", ErrInvestmentNotFound, candidate.Investment.ID)
	}
	outcome := &ProfitOutcome{Rates: rates, Profit: models.ZeroMoney()}
	if !investment.LastProfitDate.Before(cycle) || investment.Status != models.InvestmentActive {
		outcome.AlreadyPaid = true
		return outcome, nil
	}

	profit := s.Calculate(investment.Principal, rates)
	outcome.Profit = profit
	if profit.IsPositive() {
		credit, err := s.ledgerSvc.Credit(tx, &models.LedgerEntry{
			BeneficiaryID: investment.AccountID,
			SourceID:      investment.AccountID,
			InvestmentID:  investment.ID,
			Kind:          models.LedgerDailyProfit,
			Level:         0,
			CycleDate:     cycle,
			Amount:        profit,
			Rate:          models.NewMoneyFromDecimal(rates.DailyRate),
			BaseAmount:    investment.Principal,
			RunID:         runID,
			Remark:        rates.Source,
		})
		if err != nil {
			return nil, err
		}
		outcome.Credit = credit
	}

	investment.PaidDays++
	investment.TotalReturned = investment.TotalReturned.Add(profit)
	if candidate.Plan != nil && candidate.Plan.DurationDays > 0 && investment.PaidDays >= candidate.Plan.DurationDays {
		investment.Status = models.InvestmentCompleted
		outcome.Completed = true
	}
	outcome.investment = investment
	return outcome, nil
}

// AdvanceInTx 推进投资的收益周期；须在分佣完成后调用，中断时整单元可重放
func (s *ProfitService) AdvanceInTx(tx *gorm.DB, outcome *ProfitOutcome, cycle models.CycleDate) error {
	if outcome == nil || outcome.investment == nil {
		return nil
	}
	now := time.Now()
	if outcome.Completed {
		outcome.investment.CompletedAt = &now
	}
	if _, err := s.investmentRepo.WithTx(tx).AdvanceProfit(outcome.investment, cycle, now); err != nil {
		return wrapStoreError(err)
	}
	return nil
}
