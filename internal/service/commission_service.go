package service

import (
	"fmt"

	"github.com/yieldtree/engine/internal/config"
	"github.com/yieldtree/engine/internal/constants"
	"github.com/yieldtree/engine/internal/metrics"
	"github.com/yieldtree/engine/internal/models"
	"github.com/yieldtree/engine/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CommissionService 上线十级分佣
type CommissionService struct {
	accountRepo    repository.AccountRepository
	investmentRepo repository.InvestmentRepository
	ledgerSvc      *LedgerService
	cfg            config.EngineConfig
}

// CascadeInput 一次分佣的输入
type CascadeInput struct {
	Origin       *models.Account
	InvestmentID uint
	Profit       models.Money
	Cycle        models.CycleDate
	Rates        [constants.MaxCommissionLevels]decimal.Decimal
	RunID        uint
}

// LevelOutcome 单层处理结果
type LevelOutcome struct {
	Level     int
	AccountID uint
	Rate      decimal.Decimal
	Amount    models.Money
	Credited  bool
	Skipped   bool
	Duplicate bool
}

// CascadeResult 分佣结果
type CascadeResult struct {
	LevelsReached  int
	LevelsCredited int
	LevelsSkipped  int
	Total          models.Money // 本次新记入钱包的佣金
	StopReason     string
	Levels         []LevelOutcome
}

// NewCommissionService 创建分佣服务
func NewCommissionService(
	accountRepo repository.AccountRepository,
	investmentRepo repository.InvestmentRepository,
	ledgerSvc *LedgerService,
	cfg config.EngineConfig,
) *CommissionService {
	return &CommissionService{
		accountRepo:    accountRepo,
		investmentRepo: investmentRepo,
		ledgerSvc:      ledgerSvc,
		cfg:            cfg,
	}
}

// CascadeInTx 自来源账户的上线开始逐级分佣
// 终止于第 10 级、根账户、推荐环或缺失账户；不合格账户跳过但继续上行
func (s *CommissionService) CascadeInTx(tx *gorm.DB, input CascadeInput) (*CascadeResult, error) {
	result := &CascadeResult{Total: models.ZeroMoney()}
	if input.Origin == nil {
		return nil, fmt.Errorf("%w: 分佣来源账户为空", ErrAccountNotFound)
	}
	if !input.Profit.IsPositive() {
		result.StopReason = constants.CascadeStopNoProfit
		return result, nil
	}
	rootID := s.cfg.RootAccountID
	if input.Origin.ID == rootID {
		result.StopReason = constants.CascadeStopRoot
		metrics.ObserveCascade(0, result.StopReason)
		return result, nil
	}
	accountRepo := s.accountRepo.WithTx(tx)
	investmentRepo := s.investmentRepo.WithTx(tx)
	directOnly := s.cfg.CommissionPolicy == constants.CommissionPolicyDirectReferral

	visited := map[uint]struct{}{input.Origin.ID: {}}
	ref := input.Origin.UplineID
	for level := 1; level <= constants.MaxCommissionLevels; level++ {
		if ref == constants.RootUplineSentinel || ref == rootID {
			result.LevelsReached = level
			if s.cfg.CreditRoot {
				root, err := accountRepo.GetByID(rootID)
				if err != nil {
					return nil, wrapStoreError(err)
				}
				if root == nil {
					result.StopReason = constants.CascadeStopMissingUpline
					break
				}
				if err := s.creditLevel(tx, input, level, root.ID, result); err != nil {
					return nil, err
				}
			}
			result.StopReason = constants.CascadeStopRoot
			break
		}
		if _, seen := visited[ref]; seen {
			result.StopReason = constants.CascadeStopLoop
			break
		}
		upline, err := accountRepo.GetByID(ref)
		if err != nil {
			return nil, wrapStoreError(err)
		}
		if upline == nil {
			result.StopReason = constants.CascadeStopMissingUpline
			break
		}
		visited[ref] = struct{}{}
		result.LevelsReached = level

		eligible, err := s.uplineEligible(investmentRepo, upline)
		if err != nil {
			return nil, err
		}
		if eligible {
			if err := s.creditLevel(tx, input, level, upline.ID, result); err != nil {
				return nil, err
			}
		} else {
			result.LevelsSkipped++
			result.Levels = append(result.Levels, LevelOutcome{Level: level, AccountID: upline.ID, Skipped: true})
		}

		if directOnly {
			result.StopReason = constants.CascadeStopDirectOnly
			break
		}
		ref = upline.UplineID
	}
	if result.StopReason == "" {
		result.StopReason = constants.CascadeStopMaxDepth
	}
	metrics.ObserveCascade(result.LevelsCredited, result.StopReason)
	return result, nil
}

func (s *CommissionService) uplineEligible(investmentRepo repository.InvestmentRepository, upline *models.Account) (bool, error) {
	if upline.Status != models.AccountActive {
		return false, nil
	}
	if s.cfg.CommissionPolicy == constants.CommissionPolicyDirectReferral {
		return true, nil
	}
	hasActive, err := investmentRepo.HasActiveInvestment(upline.ID)
	if err != nil {
		return false, wrapStoreError(err)
	}
	return hasActive, nil
}

func (s *CommissionService) creditLevel(tx *gorm.DB, input CascadeInput, level int, beneficiaryID uint, result *CascadeResult) error {
	rate := input.Rates[level-1]
	commission := input.Profit.Percent(rate)
	outcome := LevelOutcome{Level: level, AccountID: beneficiaryID, Rate: rate, Amount: commission}
	if !commission.IsPositive() {
		result.Levels = append(result.Levels, outcome)
		return nil
	}
	credit, err := s.ledgerSvc.Credit(tx, &models.LedgerEntry{
		BeneficiaryID: beneficiaryID,
		SourceID:      input.Origin.ID,
		InvestmentID:  input.InvestmentID,
		Kind:          models.LedgerLevelCommission,
		Level:         level,
		CycleDate:     input.Cycle,
		Amount:        commission,
		Rate:          models.NewMoneyFromDecimal(rate),
		BaseAmount:    input.Profit,
		RunID:         input.RunID,
	})
	if err != nil {
		return err
	}
	outcome.Credited = true
	outcome.Duplicate = credit.Duplicate
	result.LevelsCredited++
	if credit.Applied {
		result.Total = result.Total.Add(commission)
	}
	result.Levels = append(result.Levels, outcome)
	return nil
}
