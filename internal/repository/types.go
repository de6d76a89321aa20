package repository

import (
	"time"

	"github.com/yieldtree/engine/internal/models"
)

// LedgerListFilter 查询账本流水的过滤条件
type LedgerListFilter struct {
	Page          int
	PageSize      int
	BeneficiaryID uint
	SourceID      uint
	InvestmentID  uint
	RunID         uint
	Kind          string
	Status        string
	CycleDate     models.CycleDate
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
}

// RunListFilter 查询批次记录的过滤条件
type RunListFilter struct {
	Page      int
	PageSize  int
	CycleDate models.CycleDate
	Status    string
}

// ActivationListFilter 查询激活记录的过滤条件
type ActivationListFilter struct {
	Page         int
	PageSize     int
	AccountID    uint
	InvestmentID uint
	CycleDate    models.CycleDate
	State        string
}

// EligibleInvestmentQuery 候选投资查询条件
type EligibleInvestmentQuery struct {
	CycleDate     models.CycleDate
	StartedBefore time.Time
	ExcludeIDs    []uint
}
