package service

import (
	"strings"
	"time"
)

// Period 图表时间窗选择器
type Period string

const (
	Period7Days    Period = "7days"
	Period30Days   Period = "30days"
	Period90Days   Period = "90days"
	Period6Months  Period = "6months"
	Period12Months Period = "12months"
	PeriodYear     Period = "year"

	DefaultPeriod = Period30Days
)

const (
	dailyLabelLayout   = "02/01"
	monthlyLabelLayout = "01/2006"
)

// ParsePeriod 解析选择器；空值或无法识别时回退到 30days，从不报错
func ParsePeriod(s string) Period {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case Period7Days, Period30Days, Period90Days, Period6Months, Period12Months, PeriodYear:
		return p
	default:
		return DefaultPeriod
	}
}

// Monthly 是否按月分桶
func (p Period) Monthly() bool {
	return p == Period6Months || p == Period12Months || p == PeriodYear
}

// LogPoint 参与聚合的一条记录（只看日期与分钟数）
type LogPoint struct {
	Date    time.Time
	Minutes int
}

// Window 闭区间 [Start, End]，均为日历日零点
type Window struct {
	Start   time.Time
	End     time.Time
	Monthly bool
}

// ChartSeries 无缺口、按时间顺序的桶序列；Labels 与 Values 等长
type ChartSeries struct {
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
	Period Period   `json:"period"`
}

func (s ChartSeries) clone() ChartSeries {
	return ChartSeries{
		Labels: append([]string(nil), s.Labels...),
		Values: append([]int(nil), s.Values...),
		Period: s.Period,
	}
}

// ResolveWindow 以 today 为锚点计算时间窗
func ResolveWindow(period Period, today time.Time) Window {
	end := dayStart(today)
	switch ParsePeriod(string(period)) {
	case Period7Days:
		return Window{Start: end.AddDate(0, 0, -6), End: end}
	case Period90Days:
		return Window{Start: end.AddDate(0, 0, -89), End: end}
	case Period6Months:
		return Window{Start: monthStart(end).AddDate(0, -5, 0), End: end, Monthly: true}
	case Period12Months, PeriodYear:
		return Window{Start: time.Date(end.Year(), time.January, 1, 0, 0, 0, 0, end.Location()), End: end, Monthly: true}
	default:
		return Window{Start: end.AddDate(0, 0, -29), End: end}
	}
}

// Aggregate 把日志按时间窗分桶求和，空桶补 0
// 纯函数：相同输入总是得到相同输出。
func Aggregate(points []LogPoint, period Period, today time.Time) ChartSeries {
	period = ParsePeriod(string(period))
	w := ResolveWindow(period, today)
	startKey, endKey := dateKey(w.Start), dateKey(w.End)

	if w.Monthly {
		byMonth := make(map[int]int)
		for _, p := range points {
			k := dateKey(p.Date)
			if k < startKey || k > endKey {
				continue
			}
			byMonth[k/100] += p.Minutes
		}

		out := ChartSeries{Labels: []string{}, Values: []int{}, Period: period}
		last := monthStart(w.End)
		for cur := monthStart(w.Start); !cur.After(last); cur = cur.AddDate(0, 1, 0) {
			out.Labels = append(out.Labels, cur.Format(monthlyLabelLayout))
			out.Values = append(out.Values, byMonth[dateKey(cur)/100])
		}
		return out
	}

	byDay := make(map[int]int)
	for _, p := range points {
		k := dateKey(p.Date)
		if k < startKey || k > endKey {
			continue
		}
		byDay[k] += p.Minutes
	}

	out := ChartSeries{Labels: []string{}, Values: []int{}, Period: period}
	for cur := w.Start; !cur.After(w.End); cur = cur.AddDate(0, 0, 1) {
		out.Labels = append(out.Labels, cur.Format(dailyLabelLayout))
		out.Values = append(out.Values, byDay[dateKey(cur)])
	}
	return out
}

// dateKey 把日历日编码为 YYYYMMDD，便于比较与按月截取（/100）
func dateKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
