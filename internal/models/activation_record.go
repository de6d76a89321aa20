package models

import (
	"time"

	"gorm.io/gorm"
)

// ActivationRecord 每个投资每个周期的收益评估记录
type ActivationRecord struct {
	ID            uint            `gorm:"primarykey" json:"id"`                                                               // 主键
	AccountID     uint            `gorm:"not null;index;uniqueIndex:idx_activation_cycle" json:"account_id"`                  // 账户ID
	InvestmentID  uint            `gorm:"not null;index;uniqueIndex:idx_activation_cycle" json:"investment_id"`               // 投资ID
	CycleDate     CycleDate       `gorm:"type:varchar(10);not null;index;uniqueIndex:idx_activation_cycle" json:"cycle_date"` // 收益周期
	State         ActivationState `gorm:"type:varchar(16);not null;index" json:"state"`                                       // 评估状态
	Amount        Money           `gorm:"type:decimal(24,8);not null;default:0" json:"amount"`                                // 收益金额
	LedgerEntryID *uint           `gorm:"index" json:"ledger_entry_id,omitempty"`                                             // 关联流水
	Reason        string          `gorm:"type:varchar(255);not null;default:''" json:"reason"`                                // 跳过或失败原因
	Attempts      int             `gorm:"not null;default:0" json:"attempts"`                                                 // 尝试次数
	RunID         uint            `gorm:"not null;default:0;index" json:"run_id"`                                             // 最近处理批次
	ProcessedAt   *time.Time      `json:"processed_at,omitempty"`                                                             // 处理完成时间
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`                                                            // 创建时间
	UpdatedAt     time.Time       `gorm:"index" json:"updated_at"`                                                            // 更新时间
}

// TableName 指定表名
func (ActivationRecord) TableName() string {
	return "activation_records"
}

// BeforeCreate 填充默认状态
func (r *ActivationRecord) BeforeCreate(tx *gorm.DB) error {
	if r.State == "" {
		r.State = ActivationPending
	}
	return nil
}
