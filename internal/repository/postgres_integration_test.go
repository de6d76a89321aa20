//go:build integration
// +build integration

package repository

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/yieldtree/engine/internal/models"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := []interface{}{
		&models.RunError{},
		&models.RunRecord{},
		&models.LedgerEntry{},
		&models.ActivationRecord{},
		&models.Investment{},
		&models.Plan{},
		&models.Account{},
	}
	_ = db.Migrator().DropTable(cleanupModels...)

	if err := db.AutoMigrate(
		&models.Account{},
		&models.Plan{},
		&models.Investment{},
		&models.ActivationRecord{},
		&models.LedgerEntry{},
		&models.RunRecord{},
		&models.RunError{},
	); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func TestPostgresLedgerPartialUniqueIndex(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewLedgerRepository(db)

	first := newTestLedgerEntry(2, 1, 1, "2024-03-01")
	if err := repo.Create(first); err != nil {
		t.Fatalf("create first entry failed: %v", err)
	}

	// 事务内冲突只回滚到保存点
	err := db.Transaction(func(tx *gorm.DB) error {
		txRepo := repo.WithTx(tx)
		if err := txRepo.Create(newTestLedgerEntry(2, 1, 1, "2024-03-01")); !IsUniqueViolation(err) {
			t.Fatalf("expected unique violation, got %v", err)
		}
		if _, err := txRepo.Cancel(first.ID, "voided", time.Now()); err != nil {
			return err
		}
		return txRepo.Create(newTestLedgerEntry(2, 1, 1, "2024-03-01"))
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}

	_, total, err := repo.List(LedgerListFilter{BeneficiaryID: 2})
	if err != nil || total != 2 {
		t.Fatalf("expected 2 entries (1 cancelled), got %d err=%v", total, err)
	}
}

func TestPostgresRunSingleRunningIndex(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewRunRepository(db)

	first := &models.RunRecord{RunNo: uuid.NewString(), CycleDate: "2024-03-01", Trigger: "schedule"}
	if err := repo.Create(first); err != nil {
		t.Fatalf("create first run failed: %v", err)
	}
	err := repo.Create(&models.RunRecord{RunNo: uuid.NewString(), CycleDate: "2024-03-01", Trigger: "manual"})
	if !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}

	accountRepo := NewAccountRepository(db)
	var locked *models.Account
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := accountRepo.WithTx(tx).Create(&models.Account{DisplayName: "pg"}); err != nil {
			return err
		}
		var lockErr error
		locked, lockErr = accountRepo.WithTx(tx).GetByIDForUpdate(1)
		return lockErr
	})
	if err != nil || locked == nil {
		t.Fatalf("select for update failed: %v", err)
	}
}
