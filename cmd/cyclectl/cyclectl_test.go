package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/yieldtree/engine/internal/models"
)

func TestResolveCycle(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		t.Fatalf("load location failed: %v", err)
	}
	now := time.Date(2024, 2, 29, 17, 30, 0, 0, time.UTC)

	cases := map[string]models.CycleDate{
		"":           "2024-03-01",
		"today":      "2024-03-01",
		"yesterday":  "2024-02-29",
		"2024-01-15": "2024-01-15",
	}
	for raw, want := range cases {
		got, err := resolveCycle(raw, loc, now)
		if err != nil {
			t.Fatalf("resolve %q failed: %v", raw, err)
		}
		if got != want {
			t.Fatalf("resolve %q = %s, want %s", raw, got, want)
		}
	}
	if _, err := resolveCycle("03/01/2024", loc, now); err == nil {
		t.Fatalf("expected invalid date error")
	}
}

func TestParseID(t *testing.T) {
	if id, err := parseID(" 42 "); err != nil || id != 42 {
		t.Fatalf("unexpected parse result: %d %v", id, err)
	}
	for _, raw := range []string{"0", "-1", "abc"} {
		if _, err := parseID(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestPrintRunTable(t *testing.T) {
	run := &models.RunRecord{
		ID:               3,
		RunNo:            "run-3",
		CycleDate:        "2024-03-01",
		Status:           models.RunPartialSuccess,
		Trigger:          "manual",
		Attempt:          2,
		TotalAmount:      models.MustMoney("1.5"),
		CumulativeAmount: models.MustMoney("3"),
		Errors: []models.RunError{
			{Stage: "profit", Kind: "not_found", AccountID: 50, InvestmentID: 9, Message: "账户记录不存在"},
		},
	}
	var buf bytes.Buffer
	if err := printRun(&buf, "table", run); err != nil {
		t.Fatalf("print run failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"partial_success", "1.50000000", "cycle total 3.00000000", "not_found"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := printRun(&buf, "json", run); err != nil {
		t.Fatalf("print json failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"run_no": "run-3"`) {
		t.Fatalf("unexpected json output: %s", buf.String())
	}
}
