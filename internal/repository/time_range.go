package repository

import (
	"fmt"
	"time"
)

// DateLayout 日期键格式（仅日期，不含时分）
const DateLayout = "2006-01-02"

// DayKey 把时间转为所在日历日的 YYYY-MM-DD 键（使用 t 自身的时区）
func DayKey(t time.Time) string {
	return t.Format(DateLayout)
}

// DateRange 校验并返回闭区间 [start, end] 的日期键
func DateRange(start, end string) (string, string, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return "", "", fmt.Errorf("解析开始日期失败: %w", err)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return "", "", fmt.Errorf("解析结束日期失败: %w", err)
	}
	if e.Before(s) {
		return "", "", fmt.Errorf("结束日期早于开始日期: %s < %s", end, start)
	}
	return DayKey(s), DayKey(e), nil
}
