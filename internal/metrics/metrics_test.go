package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
)

func TestObserveCreditSkipsNonPositive(t *testing.T) {
	before := testutil.ToFloat64(LedgerCreditedAmount.WithLabelValues("daily_profit"))
	ObserveCredit("daily_profit", decimal.RequireFromString("2.66"))
	ObserveCredit("daily_profit", decimal.Zero)
	ObserveCredit("daily_profit", decimal.NewFromInt(-1))
	after := testutil.ToFloat64(LedgerCreditedAmount.WithLabelValues("daily_profit"))
	if diff := after - before; diff < 2.659 || diff > 2.661 {
		t.Fatalf("credited amount delta want 2.66 got %f", diff)
	}
}

func TestObserveRunAndCascade(t *testing.T) {
	ObserveRun("completed", "manual", 1500*time.Millisecond)
	if got := testutil.ToFloat64(CycleRunsTotal.WithLabelValues("completed", "manual")); got < 1 {
		t.Fatalf("run counter not incremented: %f", got)
	}
	before := testutil.ToFloat64(CascadeStops.WithLabelValues("root"))
	ObserveCascade(3, "root")
	ObserveCascade(0, "")
	if got := testutil.ToFloat64(CascadeStops.WithLabelValues("root")) - before; got != 1 {
		t.Fatalf("root stop delta want 1 got %f", got)
	}
}
