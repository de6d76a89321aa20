package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"

	"github.com/yieldtree/engine/internal/constants"

	"gorm.io/gorm"
)

// AccountStatus 账户状态
type AccountStatus string

// InvestmentStatus 投资状态
type InvestmentStatus string

// PlanStatus 套餐状态
type PlanStatus string

// ActivationState 每日收益激活记录状态
type ActivationState string

// LedgerKind 账本流水类型
type LedgerKind string

// LedgerStatus 账本流水状态
type LedgerStatus string

// RunStatus 批次运行状态
type RunStatus string

const (
	AccountActive   AccountStatus = constants.AccountStatusActive
	AccountInactive AccountStatus = constants.AccountStatusInactive
	AccountBlocked  AccountStatus = constants.AccountStatusBlocked

	InvestmentActive    InvestmentStatus = constants.InvestmentStatusActive
	InvestmentCompleted InvestmentStatus = constants.InvestmentStatusCompleted
	InvestmentCancelled InvestmentStatus = constants.InvestmentStatusCancelled
	InvestmentFailed    InvestmentStatus = constants.InvestmentStatusFailed

	PlanActive   PlanStatus = constants.PlanStatusActive
	PlanDisabled PlanStatus = constants.PlanStatusDisabled

	ActivationPending   ActivationState = constants.ActivationStatePending
	ActivationProcessed ActivationState = constants.ActivationStateProcessed
	ActivationSkipped   ActivationState = constants.ActivationStateSkipped
	ActivationFailed    ActivationState = constants.ActivationStateFailed

	LedgerDailyProfit     LedgerKind = constants.LedgerKindDailyProfit
	LedgerLevelCommission LedgerKind = constants.LedgerKindLevelCommission
	LedgerReferralBonus   LedgerKind = constants.LedgerKindReferralBonus
	LedgerTeamReward      LedgerKind = constants.LedgerKindTeamReward

	LedgerPending   LedgerStatus = constants.LedgerStatusPending
	LedgerApplied   LedgerStatus = constants.LedgerStatusApplied
	LedgerCancelled LedgerStatus = constants.LedgerStatusCancelled

	RunRunning        RunStatus = constants.RunStatusRunning
	RunCompleted      RunStatus = constants.RunStatusCompleted
	RunPartialSuccess RunStatus = constants.RunStatusPartialSuccess
	RunFailed         RunStatus = constants.RunStatusFailed
)

// 历史数据中的数字状态编码
var (
	legacyAccountStatus = map[string]AccountStatus{
		"0": AccountInactive,
		"1": AccountActive,
		"2": AccountBlocked,
	}
	legacyInvestmentStatus = map[string]InvestmentStatus{
		"0": InvestmentCancelled,
		"1": InvestmentActive,
		"2": InvestmentCompleted,
		"3": InvestmentFailed,
	}
)

// Valid 是否为合法账户状态
func (s AccountStatus) Valid() bool {
	switch s {
	case AccountActive, AccountInactive, AccountBlocked:
		return true
	}
	return false
}

// Value 写库前校验
func (s AccountStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("无效的账户状态: %q", string(s))
	}
	return string(s), nil
}

// Scan 读取并兼容历史数字编码
func (s *AccountStatus) Scan(value interface{}) error {
	raw, err := scanEnumText(value)
	if err != nil {
		return err
	}
	if legacy, ok := legacyAccountStatus[raw]; ok {
		*s = legacy
		return nil
	}
	parsed := AccountStatus(raw)
	if !parsed.Valid() {
		return fmt.Errorf("无效的账户状态: %q", raw)
	}
	*s = parsed
	return nil
}

// Valid 是否为合法投资状态
func (s InvestmentStatus) Valid() bool {
	switch s {
	case InvestmentActive, InvestmentCompleted, InvestmentCancelled, InvestmentFailed:
		return true
	}
	return false
}

// Value 写库前校验
func (s InvestmentStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("无效的投资状态: %q", string(s))
	}
	return string(s), nil
}

// Scan 读取并兼容历史数字编码
func (s *InvestmentStatus) Scan(value interface{}) error {
	raw, err := scanEnumText(value)
	if err != nil {
		return err
	}
	if legacy, ok := legacyInvestmentStatus[raw]; ok {
		*s = legacy
		return nil
	}
	parsed := InvestmentStatus(raw)
	if !parsed.Valid() {
		return fmt.Errorf("无效的投资状态: %q", raw)
	}
	*s = parsed
	return nil
}

// Valid 是否为合法套餐状态
func (s PlanStatus) Valid() bool {
	return s == PlanActive || s == PlanDisabled
}

// Value 写库前校验
func (s PlanStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("无效的套餐状态: %q", string(s))
	}
	return string(s), nil
}

// Scan 读取套餐状态
func (s *PlanStatus) Scan(value interface{}) error {
	raw, err := scanEnumText(value)
	if err != nil {
		return err
	}
	parsed := PlanStatus(raw)
	if !parsed.Valid() {
		return fmt.Errorf("无效的套餐状态: %q", raw)
	}
	*s = parsed
	return nil
}

// Valid 是否为合法激活状态
func (s ActivationState) Valid() bool {
	switch s {
	case ActivationPending, ActivationProcessed, ActivationSkipped, ActivationFailed:
		return true
	}
	return false
}

// Terminal 是否为终态（failed 仍可被后续批次重试）
func (s ActivationState) Terminal() bool {
	return s == ActivationProcessed || s == ActivationSkipped || s == ActivationFailed
}

// Value 写库前校验
func (s ActivationState) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("无效的激活状态: %q", string(s))
	}
	return string(s), nil
}

// Scan 读取激活状态
func (s *ActivationState) Scan(value interface{}) error {
	raw, err := scanEnumText(value)
	if err != nil {
		return err
	}
	parsed := ActivationState(raw)
	if !parsed.Valid() {
		return fmt.Errorf("无效的激活状态: %q", raw)
	}
	*s = parsed
	return nil
}

// Valid 是否为合法流水类型
func (k LedgerKind) Valid() bool {
	switch k {
	case LedgerDailyProfit, LedgerLevelCommission, LedgerReferralBonus, LedgerTeamReward:
		return true
	}
	return false
}

// IsCommission 是否计入累计佣金
func (k LedgerKind) IsCommission() bool {
	return k != LedgerDailyProfit
}

// Value 写库前校验
func (k LedgerKind) Value() (driver.Value, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("无效的流水类型: %q", string(k))
	}
	return string(k), nil
}

// Scan 读取流水类型
func (k *LedgerKind) Scan(value interface{}) error {
	raw, err := scanEnumText(value)
	if err != nil {
		return err
	}
	parsed := LedgerKind(raw)
	if !parsed.Valid() {
		return fmt.Errorf("无效的流水类型: %q", raw)
	}
	*k = parsed
	return nil
}

// Valid 是否为合法流水状态
func (s LedgerStatus) Valid() bool {
	switch s {
	case LedgerPending, LedgerApplied, LedgerCancelled:
		return true
	}
	return false
}

// Value 写库前校验
func (s LedgerStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("无效的流水状态: %q", string(s))
	}
	return string(s), nil
}

// Scan 读取流水状态
func (s *LedgerStatus) Scan(value interface{}) error {
	raw, err := scanEnumText(value)
	if err != nil {
		return err
	}
	parsed := LedgerStatus(raw)
	if !parsed.Valid() {
		return fmt.Errorf("无效的流水状态: %q", raw)
	}
	*s = parsed
	return nil
}

// Valid 是否为合法批次状态
func (s RunStatus) Valid() bool {
	switch s {
	case RunRunning, RunCompleted, RunPartialSuccess, RunFailed:
		return true
	}
	return false
}

// Terminal 是否为终态
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunPartialSuccess || s == RunFailed
}

// Value 写库前校验
func (s RunStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("无效的批次状态: %q", string(s))
	}
	return string(s), nil
}

// Scan 读取批次状态
func (s *RunStatus) Scan(value interface{}) error {
	raw, err := scanEnumText(value)
	if err != nil {
		return err
	}
	parsed := RunStatus(raw)
	if !parsed.Valid() {
		return fmt.Errorf("无效的批次状态: %q", raw)
	}
	*s = parsed
	return nil
}

func scanEnumText(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", fmt.Errorf("状态字段为空")
	case string:
		return strings.TrimSpace(v), nil
	case []byte:
		return strings.TrimSpace(string(v)), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case int:
		return strconv.Itoa(v), nil
	case float64:
		return strconv.FormatInt(int64(v), 10), nil
	default:
		return "", fmt.Errorf("不支持的状态类型: %T", value)
	}
}

// MigrateLegacyStatuses 将历史数字状态迁移为文本枚举，返回迁移行数
func MigrateLegacyStatuses(db *gorm.DB) (int64, error) {
	if db == nil {
		db = DB
	}
	var migrated int64
	for legacy, status := range legacyAccountStatus {
		res := db.Table("accounts").Where("status = ?", legacy).Update("status", string(status))
		if res.Error != nil {
			return migrated, res.Error
		}
		migrated += res.RowsAffected
	}
	for legacy, status := range legacyInvestmentStatus {
		res := db.Table("investments").Where("status = ?", legacy).Update("status", string(status))
		if res.Error != nil {
			return migrated, res.Error
		}
		migrated += res.RowsAffected
	}
	return migrated, nil
}
