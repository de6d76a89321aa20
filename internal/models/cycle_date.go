package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/yieldtree/engine/internal/constants"
)

// CycleDate 收益周期日期（参考时区下的 YYYY-MM-DD，字典序即时间序）
// 空字符串表示从未处理
type CycleDate string

// CycleDateOf 计算某一时刻在参考时区下所属的周期
func CycleDateOf(t time.Time, loc *time.Location) CycleDate {
	if loc == nil {
		loc = time.UTC
	}
	return CycleDate(t.In(loc).Format(constants.CycleDateLayout))
}

// ParseCycleDate 解析并规范化周期日期
func ParseCycleDate(raw string) (CycleDate, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("周期日期不能为空")
	}
	t, err := time.Parse(constants.CycleDateLayout, raw)
	if err != nil {
		return "", fmt.Errorf("周期日期格式无效: %w", err)
	}
	return CycleDate(t.Format(constants.CycleDateLayout)), nil
}

// String 返回周期字符串
func (d CycleDate) String() string {
	return string(d)
}

// IsZero 是否未设置
func (d CycleDate) IsZero() bool {
	return d == ""
}

// Start 周期在参考时区下的起始时刻
func (d CycleDate) Start(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(constants.CycleDateLayout, string(d), loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// End 周期在参考时区下的结束时刻（下一周期起点，不含）
func (d CycleDate) End(loc *time.Location) time.Time {
	start := d.Start(loc)
	if start.IsZero() {
		return start
	}
	return start.AddDate(0, 0, 1)
}

// Before 是否早于另一周期
func (d CycleDate) Before(other CycleDate) bool {
	return d < other
}
