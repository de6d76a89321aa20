package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yieldtree/engine/internal/logger"
	"github.com/yieldtree/engine/internal/metrics"
	"github.com/yieldtree/engine/internal/models"
	"github.com/yieldtree/engine/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LedgerService 入账与幂等保护
type LedgerService struct {
	ledgerRepo  repository.LedgerRepository
	accountRepo repository.AccountRepository
	uow         repository.UnitOfWork
}

// CreditResult 入账结果
type CreditResult struct {
	Entry     *models.LedgerEntry
	Applied   bool // 本次调用完成入账
	Duplicate bool // 幂等键已存在
}

// NewLedgerService 创建入账服务
func NewLedgerService(ledgerRepo repository.LedgerRepository, accountRepo repository.AccountRepository, uow repository.UnitOfWork) *LedgerService {
	return &LedgerService{
		ledgerRepo:  ledgerRepo,
		accountRepo: accountRepo,
		uow:         uow,
	}
}

// Record 写入待入账流水；幂等键已存在时返回已有流水与 ErrDuplicateEntry
func (s *LedgerService) Record(tx *gorm.DB, entry *models.LedgerEntry) (*models.LedgerEntry, error) {
	if entry == nil {
		return nil, fmt.Errorf("%w: 流水为空", ErrConfiguration)
	}
	if !entry.Kind.Valid() {
		return nil, fmt.Errorf("%w: 流水类型 %q", ErrConfiguration, entry.Kind)
	}
	repo := s.ledgerRepo.WithTx(tx)

	existing, err := repo.GetByKey(entry.Key())
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if existing != nil {
		metrics.LedgerDuplicates.WithLabelValues(string(entry.Kind)).Inc()
		return existing, ErrDuplicateEntry
	}

	if strings.TrimSpace(entry.EntryNo) == "" {
		entry.EntryNo = uuid.NewString()
	}
	entry.Status = models.LedgerPending
	if err := repo.Create(entry); err != nil {
		if !repository.IsUniqueViolation(err) {
			return nil, wrapStoreError(err)
		}
		existing, getErr := repo.GetByKey(entry.Key())
		if getErr != nil {
			return nil, wrapStoreError(getErr)
		}
		if existing == nil {
			return nil, err
		}
		metrics.LedgerDuplicates.WithLabelValues(string(entry.Kind)).Inc()
		return existing, ErrDuplicateEntry
	}
	return entry, nil
}

// Apply 将待入账流水记入钱包；流水状态与余额在同一保存点内更新
// 已入账流水不会重复记入，返回 false
func (s *LedgerService) Apply(tx *gorm.DB, entry *models.LedgerEntry) (bool, error) {
	if entry == nil || entry.ID == 0 {
		return false, nil
	}
	if entry.Status != models.LedgerPending {
		return false, nil
	}
	applied := false
	err := tx.Transaction(func(inner *gorm.DB) error {
		accountRepo := s.accountRepo.WithTx(inner)
		ledgerRepo := s.ledgerRepo.WithTx(inner)

		account, err := accountRepo.GetByIDForUpdate(entry.BeneficiaryID)
		if err != nil {
			return wrapStoreError(err)
		}
		if account == nil {
			return fmt.Errorf("%w: beneficiary=%d", ErrAccountNotFound, entry.BeneficiaryID)
		}

		now := time.Now()
		before := account.WalletBalance
		after := before.Add(entry.Amount)
		affected, err := ledgerRepo.MarkApplied(entry.ID, before, after, now)
		if err != nil {
			return wrapStoreError(err)
		}
		if affected == 0 {
			return nil
		}

		account.WalletBalance = after
		if entry.Kind.IsCommission() {
			account.TotalCommission = account.TotalCommission.Add(entry.Amount)
		} else {
			account.TotalProfit = account.TotalProfit.Add(entry.Amount)
		}
		if err := accountRepo.UpdateWallet(account, now); err != nil {
			return wrapStoreError(err)
		}

		entry.Status = models.LedgerApplied
		entry.BalanceBefore = before
		entry.BalanceAfter = after
		entry.AppliedAt = &now
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if applied {
		metrics.ObserveCredit(string(entry.Kind), entry.Amount.Decimal)
	}
	return applied, nil
}

// Credit 写入并入账；重复时对待入账的已有流水补记（崩溃恢复），已入账的原样返回
func (s *LedgerService) Credit(tx *gorm.DB, entry *models.LedgerEntry) (*CreditResult, error) {
	recorded, err := s.Record(tx, entry)
	duplicate := false
	if err != nil {
		if !errors.Is(err, ErrDuplicateEntry) {
			return nil, err
		}
		duplicate = true
	}
	result := &CreditResult{Entry: recorded, Duplicate: duplicate}
	if recorded.Status != models.LedgerPending {
		return result, nil
	}
	applied, err := s.Apply(tx, recorded)
	if err != nil {
		return nil, err
	}
	result.Applied = applied
	if duplicate && applied {
		logger.Warnw("ledger_pending_entry_recovered",
			"entry_no", recorded.EntryNo,
			"beneficiary_id", recorded.BeneficiaryID,
			"kind", recorded.Kind,
			"cycle_date", recorded.CycleDate,
		)
	}
	return result, nil
}

// ReconcilePending 补记周期内遗留的待入账流水，返回补记条数
func (s *LedgerService) ReconcilePending(ctx context.Context, cycle models.CycleDate) (int, error) {
	var pending []models.LedgerEntry
	if err := s.uow.Run(ctx, false, func(db *gorm.DB) error {
		var err error
		pending, err = s.ledgerRepo.WithTx(db).ListPendingByCycle(cycle)
		return err
	}); err != nil {
		return 0, wrapStoreError(err)
	}

	reconciled := 0
	for idx := range pending {
		entry := &pending[idx]
		err := s.uow.Run(ctx, true, func(tx *gorm.DB) error {
			applied, err := s.Apply(tx, entry)
			if applied {
				reconciled++
			}
			return err
		})
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				logger.Warnw("ledger_reconcile_beneficiary_missing", "entry_no", entry.EntryNo, "beneficiary_id", entry.BeneficiaryID)
				continue
			}
			return reconciled, err
		}
	}
	if reconciled > 0 {
		logger.Warnw("ledger_pending_reconciled", "cycle_date", cycle, "count", reconciled)
	}
	return reconciled, nil
}

// Cancel 作废待入账流水
func (s *LedgerService) Cancel(ctx context.Context, entryID uint, remark string) error {
	return s.uow.Run(ctx, true, func(tx *gorm.DB) error {
		repo := s.ledgerRepo.WithTx(tx)
		entry, err := repo.GetByID(entryID)
		if err != nil {
			return wrapStoreError(err)
		}
		if entry == nil {
			return fmt.Errorf("流水%w", ErrNotFound)
		}
		affected, err := repo.Cancel(entryID, truncateReason(remark), time.Now())
		if err != nil {
			return wrapStoreError(err)
		}
		if affected == 0 {
			return ErrLedgerNotPending
		}
		logger.Warnw("ledger_entry_cancelled", "entry_no", entry.EntryNo, "remark", remark)
		return nil
	})
}

// List 查询流水
func (s *LedgerService) List(ctx context.Context, filter repository.LedgerListFilter) ([]models.LedgerEntry, int64, error) {
	var (
		entries []models.LedgerEntry
		total   int64
	)
	err := s.uow.Run(ctx, false, func(db *gorm.DB) error {
		var err error
		entries, total, err = s.ledgerRepo.WithTx(db).List(filter)
		return err
	})
	return entries, total, err
}
