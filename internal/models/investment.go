package models

import (
	"time"

	"gorm.io/gorm"
)

// Investment 投资记录
type Investment struct {
	ID             uint             `gorm:"primarykey" json:"id"`                                               // 主键
	AccountID      uint             `gorm:"not null;index" json:"account_id"`                                   // 所属账户
	PlanID         uint             `gorm:"not null;index" json:"plan_id"`                                      // 套餐ID
	Principal      Money            `gorm:"type:decimal(24,8);not null;default:0" json:"principal"`             // 本金
	Status         InvestmentStatus `gorm:"type:varchar(16);not null;index" json:"status"`                      // 投资状态
	LastProfitDate CycleDate        `gorm:"type:varchar(10);not null;default:'';index" json:"last_profit_date"` // 最近收益周期
	PaidDays       int              `gorm:"not null;default:0" json:"paid_days"`                                // 已发放天数
	TotalReturned  Money            `gorm:"type:decimal(24,8);not null;default:0" json:"total_returned"`        // 累计收益
	StartedAt      time.Time        `gorm:"index" json:"started_at"`                                            // 起息时间
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`                                             // 到期时间
	CreatedAt      time.Time        `gorm:"index" json:"created_at"`                                            // 创建时间
	UpdatedAt      time.Time        `gorm:"index" json:"updated_at"`                                            // 更新时间
	DeletedAt      gorm.DeletedAt   `gorm:"index" json:"-"`                                                     // 软删除时间
}

// TableName 指定表名
func (Investment) TableName() string {
	return "investments"
}

// BeforeCreate 填充默认状态与起息时间
func (i *Investment) BeforeCreate(tx *gorm.DB) error {
	if i.Status == "" {
		i.Status = InvestmentActive
	}
	if i.StartedAt.IsZero() {
		i.StartedAt = time.Now()
	}
	return nil
}
