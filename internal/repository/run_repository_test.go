package repository

import (
	"testing"
	"time"

	"github.com/yieldtree/engine/internal/models"

	"github.com/google/uuid"
)

func TestRunRepositorySingleRunningPerCycle(t *testing.T) {
	db := setupEngineRepositoryTest(t)
	repo := NewRunRepository(db)

	first := &models.RunRecord{RunNo: uuid.NewString(), CycleDate: "2024-03-01", Trigger: "manual", Status: models.RunRunning}
	if err := repo.Create(first); err != nil {
		t.Fatalf("create first run failed: %v", err)
	}
	second := &models.RunRecord{RunNo: uuid.NewString(), CycleDate: "2024-03-01", Trigger: "manual", Status: models.RunRunning}
	err := repo.Create(second)
	if err == nil || !IsUniqueViolation(err) {
		t.Fatalf("second running run should conflict, got %v", err)
	}

	now := time.Now()
	affected, err := repo.MarkFailedIfRunning(first.ID, "stale", now)
	if err != nil || affected != 1 {
		t.Fatalf("mark failed: affected=%d err=%v", affected, err)
	}
	third := &models.RunRecord{RunNo: uuid.NewString(), CycleDate: "2024-03-01", Trigger: "replay", Status: models.RunRunning, Attempt: 2}
	if err := repo.Create(third); err != nil {
		t.Fatalf("run after failure should open: %v", err)
	}

	latest, err := repo.GetLatestByCycle("2024-03-01")
	if err != nil || latest == nil || latest.ID != third.ID {
		t.Fatalf("latest run mismatch: %+v err=%v", latest, err)
	}
	running, err := repo.GetRunningByCycle("2024-03-01")
	if err != nil || running == nil || running.ID != third.ID {
		t.Fatalf("running run mismatch: %+v err=%v", running, err)
	}
}

func TestRunRepositoryErrorsAndProgress(t *testing.T) {
	db := setupEngineRepositoryTest(t)
	repo := NewRunRepository(db)

	run := &models.RunRecord{RunNo: uuid.NewString(), CycleDate: "2024-03-02", Trigger: "schedule"}
	if err := repo.Create(run); err != nil {
		t.Fatalf("create run failed: %v", err)
	}
	if err := repo.AddError(&models.RunError{RunID: run.ID, AccountID: 9, InvestmentID: 90, Stage: "profit", Kind: "not_found", Message: "account missing"}); err != nil {
		t.Fatalf("add error failed: %v", err)
	}
	run.ProcessedCount = 3
	run.ErrorCount = 1
	run.TotalAmount = models.MustMoney("7.98")
	run.Status = models.RunPartialSuccess
	finished := time.Now()
	run.FinishedAt = &finished
	if err := repo.SaveProgress(run); err != nil {
		t.Fatalf("save progress failed: %v", err)
	}

	loaded, err := repo.GetByID(run.ID, true)
	if err != nil || loaded == nil {
		t.Fatalf("get run failed: %v", err)
	}
	if loaded.Status != models.RunPartialSuccess || loaded.ProcessedCount != 3 || loaded.TotalAmount.String() != "7.98000000" {
		t.Fatalf("progress not persisted: %+v", loaded)
	}
	if len(loaded.Errors) != 1 || loaded.Errors[0].InvestmentID != 90 {
		t.Fatalf("errors not preloaded: %+v", loaded.Errors)
	}

	stale, err := repo.ListStaleRunning(time.Now().Add(time.Hour))
	if err != nil || len(stale) != 0 {
		t.Fatalf("finished run must not be stale: %d err=%v", len(stale), err)
	}
}
