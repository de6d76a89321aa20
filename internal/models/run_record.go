package models

import (
	"time"

	"gorm.io/gorm"
)

// RunRecord 每日收益批次运行记录
type RunRecord struct {
	ID                  uint       `gorm:"primarykey" json:"id"`                                                                                          // 主键
	RunNo               string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"run_no"`                                                           // 批次号
	CycleDate           CycleDate  `gorm:"type:varchar(10);not null;index;uniqueIndex:idx_run_single_running,where:status = 'running'" json:"cycle_date"` // 收益周期
	Trigger             string     `gorm:"column:trigger_source;type:varchar(16);not null;default:'schedule'" json:"trigger"`                             // 触发来源
	Attempt             int        `gorm:"not null;default:1" json:"attempt"`                                                                             // 第几次尝试
	ResumedFromID       *uint      `gorm:"index" json:"resumed_from_id,omitempty"`                                                                        // 续跑来源批次
	Status              RunStatus  `gorm:"type:varchar(20);not null;index" json:"status"`                                                                 // 批次状态
	StartedAt           time.Time  `gorm:"not null;index" json:"started_at"`                                                                              // 开始时间
	FinishedAt          *time.Time `json:"finished_at,omitempty"`                                                                                         // 结束时间
	CandidateCount      int        `gorm:"not null;default:0" json:"candidate_count"`                                                                     // 候选数量
	ProcessedCount      int        `gorm:"not null;default:0" json:"processed_count"`                                                                     // 处理成功数量
	SkippedCount        int        `gorm:"not null;default:0" json:"skipped_count"`                                                                       // 跳过数量
	ErrorCount          int        `gorm:"not null;default:0" json:"error_count"`                                                                         // 失败数量
	TotalAmount         Money      `gorm:"type:decimal(24,8);not null;default:0" json:"total_amount"`                                                     // 本次发放总额
	CumulativeProcessed int        `gorm:"not null;default:0" json:"cumulative_processed"`                                                                // 周期累计处理数量
	CumulativeAmount    Money      `gorm:"type:decimal(24,8);not null;default:0" json:"cumulative_amount"`                                                // 周期累计发放总额
	FailureMessage      string     `gorm:"type:text" json:"failure_message"`                                                                              // 失败原因
	CreatedAt           time.Time  `gorm:"index" json:"created_at"`                                                                                       // 创建时间
	UpdatedAt           time.Time  `gorm:"index" json:"updated_at"`                                                                                       // 更新时间

	Errors []RunError `gorm:"foreignKey:RunID" json:"errors,omitempty"` // 单项错误
}

// TableName 指定表名
func (RunRecord) TableName() string {
	return "run_records"
}

// BeforeCreate 填充默认状态
func (r *RunRecord) BeforeCreate(tx *gorm.DB) error {
	if r.Status == "" {
		r.Status = RunRunning
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	return nil
}

// RunError 批次单项错误，足以定位并重放
type RunError struct {
	ID           uint      `gorm:"primarykey" json:"id"`                          // 主键
	RunID        uint      `gorm:"not null;index" json:"run_id"`                  // 批次ID
	AccountID    uint      `gorm:"not null;default:0;index" json:"account_id"`    // 账户ID
	InvestmentID uint      `gorm:"not null;default:0;index" json:"investment_id"` // 投资ID
	Stage        string    `gorm:"type:varchar(20);not null" json:"stage"`        // 出错阶段
	Kind         string    `gorm:"type:varchar(32);not null" json:"kind"`         // 错误分类
	Message      string    `gorm:"type:text" json:"message"`                      // 错误信息
	CreatedAt    time.Time `gorm:"index" json:"created_at"`                       // 创建时间
}

// TableName 指定表名
func (RunError) TableName() string {
	return "run_errors"
}
