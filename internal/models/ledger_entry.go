package models

import (
	"time"

	"gorm.io/gorm"
)

// LedgerEntry 收益与佣金入账流水（只追加）
// 同一 (beneficiary, source, investment, kind, level, cycle) 至多一条未作废流水
type LedgerEntry struct {
	ID            uint         `gorm:"primarykey" json:"id"`                                                                                // 主键
	EntryNo       string       `gorm:"type:varchar(64);not null;uniqueIndex" json:"entry_no"`                                               // 流水号
	BeneficiaryID uint         `gorm:"not null;index;uniqueIndex:idx_ledger_idempotency,where:status <> 'cancelled'" json:"beneficiary_id"` // 收款账户
	SourceID      uint         `gorm:"not null;index;uniqueIndex:idx_ledger_idempotency" json:"source_id"`                                  // 收益来源账户
	InvestmentID  uint         `gorm:"not null;index;uniqueIndex:idx_ledger_idempotency" json:"investment_id"`                              // 来源投资
	Kind          LedgerKind   `gorm:"type:varchar(32);not null;uniqueIndex:idx_ledger_idempotency" json:"kind"`                            // 流水类型
	Level         int          `gorm:"not null;default:0;uniqueIndex:idx_ledger_idempotency" json:"level"`                                  // 层级（0 为本人收益）
	CycleDate     CycleDate    `gorm:"type:varchar(10);not null;index;uniqueIndex:idx_ledger_idempotency" json:"cycle_date"`                // 收益周期
	Amount        Money        `gorm:"type:decimal(24,8);not null;default:0" json:"amount"`                                                 // 入账金额
	Rate          Money        `gorm:"type:decimal(12,8);not null;default:0" json:"rate"`                                                   // 计算比例（百分比）
	BaseAmount    Money        `gorm:"type:decimal(24,8);not null;default:0" json:"base_amount"`                                            // 计算基数
	Status        LedgerStatus `gorm:"type:varchar(16);not null;index" json:"status"`                                                       // 流水状态
	BalanceBefore Money        `gorm:"type:decimal(24,8);not null;default:0" json:"balance_before"`                                         // 入账前余额
	BalanceAfter  Money        `gorm:"type:decimal(24,8);not null;default:0" json:"balance_after"`                                          // 入账后余额
	RunID         uint         `gorm:"not null;default:0;index" json:"run_id"`                                                              // 批次ID
	Remark        string       `gorm:"type:varchar(255);not null;default:''" json:"remark"`                                                 // 备注
	AppliedAt     *time.Time   `json:"applied_at,omitempty"`                                                                                // 入账时间
	CreatedAt     time.Time    `gorm:"index" json:"created_at"`                                                                             // 创建时间
	UpdatedAt     time.Time    `gorm:"index" json:"updated_at"`                                                                             // 更新时间
}

// TableName 指定表名
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// BeforeCreate 填充默认状态
func (e *LedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if e.Status == "" {
		e.Status = LedgerPending
	}
	return nil
}

// IdempotencyKey 入账幂等键
type IdempotencyKey struct {
	BeneficiaryID uint
	SourceID      uint
	InvestmentID  uint
	Kind          LedgerKind
	Level         int
	CycleDate     CycleDate
}

// Key 返回流水的幂等键
func (e *LedgerEntry) Key() IdempotencyKey {
	return IdempotencyKey{
		BeneficiaryID: e.BeneficiaryID,
		SourceID:      e.SourceID,
		InvestmentID:  e.InvestmentID,
		Kind:          e.Kind,
		Level:         e.Level,
		CycleDate:     e.CycleDate,
	}
}
