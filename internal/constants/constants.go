package constants

// 佣金层级常量
const (
	// MaxCommissionLevels 上线佣金最大层级
	MaxCommissionLevels = 10
	// RootUplineSentinel 上线引用为 0 表示链路终止于平台根账户
	RootUplineSentinel uint = 0
)

// 账户状态常量
const (
	AccountStatusActive   = "active"
	AccountStatusInactive = "inactive"
	AccountStatusBlocked  = "blocked"
)

// 投资状态常量
const (
	InvestmentStatusActive    = "active"
	InvestmentStatusCompleted = "completed"
	InvestmentStatusCancelled = "cancelled"
	InvestmentStatusFailed    = "failed"
)

// 套餐状态常量
const (
	PlanStatusActive   = "active"
	PlanStatusDisabled = "disabled"
)

// 每日收益激活记录状态常量
const (
	ActivationStatePending   = "pending"
	ActivationStateProcessed = "processed"
	ActivationStateSkipped   = "skipped"
	ActivationStateFailed    = "failed"
)

// 激活记录跳过原因常量
const (
	SkipReasonAccountInactive    = "account_inactive"
	SkipReasonNotActivated       = "not_activated"
	SkipReasonActivationExpired  = "activation_expired"
	SkipReasonActivationOutdated = "activation_outside_cycle"
)

// 账本流水类型常量
const (
	LedgerKindDailyProfit     = "daily_profit"
	LedgerKindLevelCommission = "level_commission"
	LedgerKindReferralBonus   = "referral_bonus"
	LedgerKindTeamReward      = "team_reward"
)

// 账本流水状态常量
const (
	LedgerStatusPending   = "pending"
	LedgerStatusApplied   = "applied"
	LedgerStatusCancelled = "cancelled"
)

// 批次运行状态常量
const (
	RunStatusRunning        = "running"
	RunStatusCompleted      = "completed"
	RunStatusPartialSuccess = "partial_success"
	RunStatusFailed         = "failed"
)

// 批次触发来源常量
const (
	RunTriggerSchedule = "schedule"
	RunTriggerManual   = "manual"
	RunTriggerReplay   = "replay"
)

// 批次错误阶段常量
const (
	RunStageProfit     = "profit"
	RunStageCommission = "commission"
	RunStageRun        = "run"
)

// 错误分类常量
const (
	ErrorKindNotFound      = "not_found"
	ErrorKindDuplicate     = "duplicate_entry"
	ErrorKindTransient     = "transient_store"
	ErrorKindConfiguration = "configuration"
	ErrorKindRunConflict   = "run_conflict"
	ErrorKindTimeout       = "timeout"
	ErrorKindAborted       = "aborted"
	ErrorKindInternal      = "internal"
)

// 上线佣金终止原因常量
const (
	CascadeStopMaxDepth      = "max_depth"
	CascadeStopRoot          = "root"
	CascadeStopMissingUpline = "missing_upline"
	CascadeStopLoop          = "loop"
	CascadeStopDirectOnly    = "direct_only"
	CascadeStopNoProfit      = "no_profit"
)

// 佣金资格策略常量
const (
	CommissionPolicyInvestment     = "investment"
	CommissionPolicyDirectReferral = "direct_referral"
)

// 队列常量
const (
	QueueDefault          = "default"
	QueueCritical         = "critical"
	TaskProfitDailyCycle  = "profit:daily_cycle"
	TaskProfitCycleReplay = "profit:cycle_replay"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "yt"
)

// 周期日期格式
const (
	CycleDateLayout = "2006-01-02"
)
