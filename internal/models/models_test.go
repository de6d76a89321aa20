package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openModelsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:models_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	DB = db
	require.NoError(t, AutoMigrate())
	return db
}

func TestMoneyPercentKeepsEightDigits(t *testing.T) {
	profit := MustMoney("1000").Percent(decimal.RequireFromString("0.266"))
	assert.Equal(t, "2.66000000", profit.String())

	commission := profit.Percent(decimal.NewFromInt(25))
	assert.Equal(t, "0.66500000", commission.String())
}

func TestMoneyJSON(t *testing.T) {
	var m Money
	require.NoError(t, m.UnmarshalJSON([]byte(`"0.665"`)))
	out, err := m.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"0.66500000"`, string(out))

	require.NoError(t, m.UnmarshalJSON([]byte(`12.5`)))
	assert.Equal(t, "12.50000000", m.String())
}

func TestCycleDateWindow(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)

	d, err := ParseCycleDate(" 2024-03-01 ")
	require.NoError(t, err)
	assert.Equal(t, CycleDate("2024-03-01"), d)
	assert.Equal(t, 24*time.Hour, d.End(loc).Sub(d.Start(loc)))

	late := time.Date(2024, 2, 29, 17, 30, 0, 0, time.UTC)
	assert.Equal(t, d, CycleDateOf(late, loc))
	assert.True(t, CycleDate("2024-02-29").Before(d))

	_, err = ParseCycleDate("2024/03/01")
	assert.Error(t, err)
}

func TestStatusScanLegacyNumeric(t *testing.T) {
	var account AccountStatus
	require.NoError(t, account.Scan(int64(1)))
	assert.Equal(t, AccountActive, account)
	require.NoError(t, account.Scan([]byte("2")))
	assert.Equal(t, AccountBlocked, account)

	var investment InvestmentStatus
	require.NoError(t, investment.Scan("0"))
	assert.Equal(t, InvestmentCancelled, investment)
	require.NoError(t, investment.Scan("completed"))
	assert.Equal(t, InvestmentCompleted, investment)

	assert.Error(t, investment.Scan("paused"))
	_, err := InvestmentStatus("paused").Value()
	assert.Error(t, err)

	var ledger LedgerStatus
	assert.Error(t, ledger.Scan(int64(1)))
}

func TestMigrateLegacyStatuses(t *testing.T) {
	db := openModelsTestDB(t)
	require.NoError(t, db.Create(&Account{DisplayName: "legacy", Status: AccountActive}).Error)
	require.NoError(t, db.Create(&Investment{AccountID: 1, PlanID: 1, Principal: MustMoney("100"), Status: InvestmentActive}).Error)
	require.NoError(t, db.Exec("UPDATE accounts SET status = '0'").Error)
	require.NoError(t, db.Exec("UPDATE investments SET status = '2'").Error)

	migrated, err := MigrateLegacyStatuses(db)
	require.NoError(t, err)
	assert.Equal(t, int64(2), migrated)

	var raw string
	require.NoError(t, db.Raw("SELECT status FROM accounts LIMIT 1").Scan(&raw).Error)
	assert.Equal(t, "inactive", raw)
	require.NoError(t, db.Raw("SELECT status FROM investments LIMIT 1").Scan(&raw).Error)
	assert.Equal(t, "completed", raw)
}

func TestPlanValidate(t *testing.T) {
	plan := &Plan{ID: 7, Name: "gold", DailyRate: MustMoney("0.266")}
	var rates [10]decimal.Decimal
	for i := range rates {
		rates[i] = decimal.NewFromInt(int64(10 - i))
	}
	plan.SetLevelRates(rates)
	require.NoError(t, plan.Validate())
	assert.Equal(t, "10", plan.LevelRates()[0].String())
	assert.Equal(t, "1", plan.LevelRates()[9].String())
	assert.True(t, plan.TotalRate().Equal(decimal.RequireFromString("55.266")))

	plan.Level4Rate = MustMoney("-1")
	assert.Error(t, plan.ValidateLevelRates())
	plan.Level4Rate = MustMoney("120")
	assert.Error(t, plan.ValidateLevelRates())

	plan.Level4Rate = MustMoney("5")
	plan.DailyRate = ZeroMoney()
	assert.Error(t, plan.ValidateDailyRate())
	assert.NoError(t, plan.ValidateLevelRates())
}

func TestInitRootAccountIdempotent(t *testing.T) {
	openModelsTestDB(t)
	require.NoError(t, InitRootAccount(1))
	require.NoError(t, InitRootAccount(1))

	var count int64
	require.NoError(t, DB.Model(&Account{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Error(t, InitRootAccount(0))
}

func TestWithSQLitePragmas(t *testing.T) {
	assert.Equal(t, "engine.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", withSQLitePragmas("engine.db"))
	assert.Equal(t, "file:engine.db?cache=shared&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", withSQLitePragmas("file:engine.db?cache=shared"))

	memory := "file:models_test?mode=memory&cache=shared"
	assert.Equal(t, memory, withSQLitePragmas(memory))
	custom := "engine.db?_pragma=foreign_keys(1)"
	assert.Equal(t, custom, withSQLitePragmas(custom))
}
