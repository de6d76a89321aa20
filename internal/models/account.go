package models

import (
	"time"

	"gorm.io/gorm"
)

// Account 参与者账户（钱包与推荐关系）
type Account struct {
	ID                  uint           `gorm:"primarykey" json:"id"`                                          // 主键
	DisplayName         string         `gorm:"type:varchar(100);not null;default:''" json:"display_name"`     // 昵称
	UplineID            uint           `gorm:"not null;default:0;index" json:"upline_id"`                     // 上线账户ID（0 表示根）
	Status              AccountStatus  `gorm:"type:varchar(16);not null;index" json:"status"`                 // 账户状态
	WalletBalance       Money          `gorm:"type:decimal(24,8);not null;default:0" json:"wallet_balance"`   // 钱包余额
	TotalInvested       Money          `gorm:"type:decimal(24,8);not null;default:0" json:"total_invested"`   // 累计投资金额
	TotalProfit         Money          `gorm:"type:decimal(24,8);not null;default:0" json:"total_profit"`     // 累计收益
	TotalCommission     Money          `gorm:"type:decimal(24,8);not null;default:0" json:"total_commission"` // 累计佣金
	IsActivated         bool           `gorm:"not null;default:false;index" json:"is_activated"`              // 是否已激活
	ActivatedAt         *time.Time     `gorm:"index" json:"activated_at,omitempty"`                           // 最近激活时间
	ActivationExpiresAt *time.Time     `gorm:"index" json:"activation_expires_at,omitempty"`                  // 激活到期时间（空表示不过期）
	CreatedAt           time.Time      `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt           time.Time      `gorm:"index" json:"updated_at"`                                       // 更新时间
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`                                                // 软删除时间
}

// TableName 指定表名
func (Account) TableName() string {
	return "accounts"
}

// BeforeCreate 填充默认状态
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.Status == "" {
		a.Status = AccountActive
	}
	return nil
}
