package service

import (
	"context"
	"errors"
	"testing"

	"github.com/yieldtree/engine/internal/models"

	"gorm.io/gorm"
)

func newProfitEntry(beneficiary, investment uint, amount string) *models.LedgerEntry {
	return &models.LedgerEntry{
		BeneficiaryID: beneficiary,
		SourceID:      beneficiary,
		InvestmentID:  investment,
		Kind:          models.LedgerDailyProfit,
		CycleDate:     "2024-03-01",
		Amount:        models.MustMoney(amount),
	}
}

func TestLedgerServiceCreditAppliesOnce(t *testing.T) {
	f := setupEngineServiceTest(t, nil)
	createTestAccount(t, f.db, 2, 0)

	var first, second *CreditResult
	err := f.uow.Run(context.Background(), true, func(tx *gorm.DB) error {
		var err error
		if first, err = f.ledger.Credit(tx, newProfitEntry(2, 5, "3.5")); err != nil {
			return err
		}
		second, err = f.ledger.Credit(tx, newProfitEntry(2, 5, "3.5"))
		return err
	})
	if err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if !first.Applied || first.Duplicate {
		t.Fatalf("unexpected first credit: %+v", first)
	}
	if second.Applied || !second.Duplicate || second.Entry.ID != first.Entry.ID {
		t.Fatalf("unexpected second credit: %+v", second)
	}
	if first.Entry.EntryNo == "" || first.Entry.BalanceAfter.String() != "3.50000000" {
		t.Fatalf("unexpected entry: %+v", first.Entry)
	}

	var account models.Account
	if err := f.db.First(&account, 2).Error; err != nil {
		t.Fatalf("load account failed: %v", err)
	}
	if account.WalletBalance.String() != "3.50000000" || account.TotalProfit.String() != "3.50000000" {
		t.Fatalf("unexpected account totals: wallet=%s profit=%s", account.WalletBalance.String(), account.TotalProfit.String())
	}
}

func TestLedgerServiceCreditMissingBeneficiary(t *testing.T) {
	f := setupEngineServiceTest(t, nil)
	err := f.uow.Run(context.Background(), true, func(tx *gorm.DB) error {
		_, err := f.ledger.Credit(tx, newProfitEntry(404, 5, "1"))
		return err
	})
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if count := countLedger(t, f.db); count != 0 {
		t.Fatalf("entry should roll back with the unit, got %d", count)
	}
}

func TestLedgerServiceCancelFreesKey(t *testing.T) {
	f := setupEngineServiceTest(t, nil)
	createTestAccount(t, f.db, 2, 0)

	var pending *models.LedgerEntry
	err := f.uow.Run(context.Background(), true, func(tx *gorm.DB) error {
		var err error
		pending, err = f.ledger.Record(tx, newProfitEntry(2, 5, "1"))
		return err
	})
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if pending.Status != models.LedgerPending {
		t.Fatalf("expected pending entry, got %s", pending.Status)
	}

	if err := f.ledger.Cancel(context.Background(), pending.ID, "manual correction"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if err := f.ledger.Cancel(context.Background(), pending.ID, "again"); !errors.Is(err, ErrLedgerNotPending) {
		t.Fatalf("expected ErrLedgerNotPending, got %v", err)
	}
	if err := f.ledger.Cancel(context.Background(), 9999, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	var credit *CreditResult
	err = f.uow.Run(context.Background(), true, func(tx *gorm.DB) error {
		var err error
		credit, err = f.ledger.Credit(tx, newProfitEntry(2, 5, "1"))
		return err
	})
	if err != nil {
		t.Fatalf("credit after cancel failed: %v", err)
	}
	if !credit.Applied || credit.Entry.ID == pending.ID {
		t.Fatalf("expected a fresh applied entry, got %+v", credit)
	}
}

func TestLedgerServiceReconcilePending(t *testing.T) {
	f := setupEngineServiceTest(t, nil)
	createTestAccount(t, f.db, 2, 0)
	err := f.uow.Run(context.Background(), true, func(tx *gorm.DB) error {
		if _, err := f.ledger.Record(tx, newProfitEntry(2, 5, "1.25")); err != nil {
			return err
		}
		_, err := f.ledger.Record(tx, newProfitEntry(2, 6, "0.75"))
		return err
	})
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}

	reconciled, err := f.ledger.ReconcilePending(context.Background(), "2024-03-01")
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if reconciled != 2 {
		t.Fatalf("expected 2 reconciled entries, got %d", reconciled)
	}
	if got := walletOf(t, f.db, 2); got != "2.00000000" {
		t.Fatalf("unexpected wallet: %s", got)
	}
	again, err := f.ledger.ReconcilePending(context.Background(), "2024-03-01")
	if err != nil || again != 0 {
		t.Fatalf("second reconcile should be a no-op, got %d %v", again, err)
	}
}
