package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/yuqie6/HoursTracker/internal/repository"
)

// Calendar 统一的日历：日志日期、"今天"锚点与重复检测都以它为准
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

// NewCalendar 按时区名创建日历；空串与 "UTC" 为 UTC，"Local" 为本机时区
func NewCalendar(tz string) (*Calendar, error) {
	name := strings.TrimSpace(tz)
	var loc *time.Location
	switch {
	case name == "" || strings.EqualFold(name, "UTC"):
		loc = time.UTC
	case strings.EqualFold(name, "Local"):
		loc = time.Local
	default:
		l, err := time.LoadLocation(name)
		if err != nil {
			return nil, fmt.Errorf("加载时区失败: %w", err)
		}
		loc = l
	}
	return &Calendar{loc: loc, now: time.Now}, nil
}

// FixedCalendar 固定“当前时间”的日历（测试与回放用）
func FixedCalendar(loc *time.Location, now time.Time) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{loc: loc, now: func() time.Time { return now }}
}

func (c *Calendar) Location() *time.Location {
	if c == nil || c.loc == nil {
		return time.UTC
	}
	return c.loc
}

func (c *Calendar) Now() time.Time {
	if c == nil || c.now == nil {
		return time.Now().In(c.Location())
	}
	return c.now().In(c.Location())
}

// Today 当前日历日的零点
func (c *Calendar) Today() time.Time {
	y, m, d := c.Now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.Location())
}

// ParseDate 解析 YYYY-MM-DD 为该日历下的零点
func (c *Calendar) ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(repository.DateLayout, strings.TrimSpace(s), c.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("日期格式错误，请使用 YYYY-MM-DD: %w", err)
	}
	return t, nil
}

// FormatDate 格式化为日期键
func (c *Calendar) FormatDate(t time.Time) string {
	return repository.DayKey(t.In(c.Location()))
}
