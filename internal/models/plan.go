package models

import (
	"fmt"
	"time"

	"github.com/yieldtree/engine/internal/constants"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Plan 投资套餐（日收益率与十级佣金比例，均为百分比）
type Plan struct {
	ID                uint           `gorm:"primarykey" json:"id"`                                                          // 主键
	Name              string         `gorm:"type:varchar(100);not null" json:"name"`                                        // 套餐名称
	DailyRate         Money          `gorm:"type:decimal(12,8);not null;default:0" json:"daily_rate"`                       // 日收益率
	FallbackDailyRate Money          `gorm:"type:decimal(12,8);not null;default:0" json:"fallback_daily_rate"`              // 日收益率无效时的兜底值
	Level1Rate        Money          `gorm:"column:level1_rate;type:decimal(12,8);not null;default:0" json:"level1_rate"`   // 第 1 级佣金比例
	Level2Rate        Money          `gorm:"column:level2_rate;type:decimal(12,8);not null;default:0" json:"level2_rate"`   // 第 2 级佣金比例
	Level3Rate        Money          `gorm:"column:level3_rate;type:decimal(12,8);not null;default:0" json:"level3_rate"`   // 第 3 级佣金比例
	Level4Rate        Money          `gorm:"column:level4_rate;type:decimal(12,8);not null;default:0" json:"level4_rate"`   // 第 4 级佣金比例
	Level5Rate        Money          `gorm:"column:level5_rate;type:decimal(12,8);not null;default:0" json:"level5_rate"`   // 第 5 级佣金比例
	Level6Rate        Money          `gorm:"column:level6_rate;type:decimal(12,8);not null;default:0" json:"level6_rate"`   // 第 6 级佣金比例
	Level7Rate        Money          `gorm:"column:level7_rate;type:decimal(12,8);not null;default:0" json:"level7_rate"`   // 第 7 级佣金比例
	Level8Rate        Money          `gorm:"column:level8_rate;type:decimal(12,8);not null;default:0" json:"level8_rate"`   // 第 8 级佣金比例
	Level9Rate        Money          `gorm:"column:level9_rate;type:decimal(12,8);not null;default:0" json:"level9_rate"`   // 第 9 级佣金比例
	Level10Rate       Money          `gorm:"column:level10_rate;type:decimal(12,8);not null;default:0" json:"level10_rate"` // 第 10 级佣金比例
	DurationDays      int            `gorm:"not null;default:0" json:"duration_days"`                                       // 周期天数（0 表示不限）
	Status            PlanStatus     `gorm:"type:varchar(16);not null;index" json:"status"`                                 // 套餐状态
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`                                                       // 创建时间
	UpdatedAt         time.Time      `gorm:"index" json:"updated_at"`                                                       // 更新时间
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`                                                                // 软删除时间
}

// TableName 指定表名
func (Plan) TableName() string {
	return "plans"
}

// BeforeCreate 填充默认状态
func (p *Plan) BeforeCreate(tx *gorm.DB) error {
	if p.Status == "" {
		p.Status = PlanActive
	}
	return nil
}

// LevelRates 按层级顺序返回十级佣金比例
func (p *Plan) LevelRates() [constants.MaxCommissionLevels]decimal.Decimal {
	var rates [constants.MaxCommissionLevels]decimal.Decimal
	if p == nil {
		for i := range rates {
			rates[i] = decimal.Zero
		}
		return rates
	}
	rates = [constants.MaxCommissionLevels]decimal.Decimal{
		p.Level1Rate.Decimal, p.Level2Rate.Decimal, p.Level3Rate.Decimal, p.Level4Rate.Decimal, p.Level5Rate.Decimal,
		p.Level6Rate.Decimal, p.Level7Rate.Decimal, p.Level8Rate.Decimal, p.Level9Rate.Decimal, p.Level10Rate.Decimal,
	}
	return rates
}

// SetLevelRates 按层级顺序写入十级佣金比例
func (p *Plan) SetLevelRates(rates [constants.MaxCommissionLevels]decimal.Decimal) {
	fields := []*Money{
		&p.Level1Rate, &p.Level2Rate, &p.Level3Rate, &p.Level4Rate, &p.Level5Rate,
		&p.Level6Rate, &p.Level7Rate, &p.Level8Rate, &p.Level9Rate, &p.Level10Rate,
	}
	for i, field := range fields {
		*field = NewMoneyFromDecimal(rates[i])
	}
}

// TotalRate 日收益率与十级佣金比例之和
func (p *Plan) TotalRate() decimal.Decimal {
	total := p.DailyRate.Decimal
	for _, rate := range p.LevelRates() {
		total = total.Add(rate)
	}
	return total
}

type planRateTable struct {
	Rates []string `validate:"len=10,dive,rate_percent"`
}

type planDailyRate struct {
	DailyRate string `validate:"rate_percent,positive_rate"`
}

var planValidator = newPlanValidator()

func newPlanValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("rate_percent", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		return !d.IsNegative() && d.LessThanOrEqual(decimal.NewFromInt(100))
	})
	_ = v.RegisterValidation("positive_rate", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.IsPositive()
	})
	return v
}

// ValidateLevelRates 校验十级佣金比例均位于 [0,100]
func (p *Plan) ValidateLevelRates() error {
	table := planRateTable{Rates: make([]string, 0, constants.MaxCommissionLevels)}
	for _, rate := range p.LevelRates() {
		table.Rates = append(table.Rates, rate.String())
	}
	if err := planValidator.Struct(table); err != nil {
		return fmt.Errorf("套餐 %d 佣金比例无效: %w", p.ID, err)
	}
	return nil
}

// ValidateDailyRate 校验日收益率位于 (0,100]
func (p *Plan) ValidateDailyRate() error {
	if err := planValidator.Struct(planDailyRate{DailyRate: p.DailyRate.String()}); err != nil {
		return fmt.Errorf("套餐 %d 日收益率无效: %w", p.ID, err)
	}
	return nil
}

// Validate 加载时校验套餐
func (p *Plan) Validate() error {
	if p == nil {
		return fmt.Errorf("套餐不存在")
	}
	if err := p.ValidateDailyRate(); err != nil {
		return err
	}
	return p.ValidateLevelRates()
}
