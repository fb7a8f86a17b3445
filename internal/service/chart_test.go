package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuqie6/HoursTracker/internal/repository"
	"github.com/yuqie6/HoursTracker/internal/schema"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAggregateEmptyThirtyDays(t *testing.T) {
	today := day(2024, time.March, 15)
	got := Aggregate(nil, Period30Days, today)

	require.Len(t, got.Labels, 30)
	require.Len(t, got.Values, 30)
	assert.Equal(t, "15/02", got.Labels[0])
	assert.Equal(t, "15/03", got.Labels[29])
	for i, v := range got.Values {
		assert.Zerof(t, v, "bucket %d", i)
	}
	assert.Equal(t, Period30Days, got.Period)
}

func TestAggregateFillsGapsChronologically(t *testing.T) {
	today := day(2024, time.March, 15)
	points := []LogPoint{
		{Date: day(2024, time.March, 12), Minutes: 45},
		{Date: day(2024, time.March, 10), Minutes: 30},
		{Date: day(2024, time.March, 1), Minutes: 99}, // 窗口外
	}
	got := Aggregate(points, Period7Days, today)

	assert.Equal(t, []string{"09/03", "10/03", "11/03", "12/03", "13/03", "14/03", "15/03"}, got.Labels)
	assert.Equal(t, []int{0, 30, 0, 45, 0, 0, 0}, got.Values)
}

func TestAggregateIsIdempotent(t *testing.T) {
	today := day(2024, time.March, 15)
	points := []LogPoint{
		{Date: day(2024, time.January, 2), Minutes: 20},
		{Date: day(2024, time.March, 14), Minutes: 40},
	}
	for _, p := range []Period{Period7Days, Period30Days, Period90Days, Period6Months, Period12Months, PeriodYear} {
		first := Aggregate(points, p, today)
		second := Aggregate(points, p, today)
		assert.Equal(t, first, second, "period %s", p)
		assert.Len(t, first.Values, len(first.Labels), "period %s", p)
	}
}

func TestAggregateMonthlyMergesDays(t *testing.T) {
	today := day(2024, time.March, 15)
	points := []LogPoint{
		{Date: day(2024, time.January, 3), Minutes: 60},
		{Date: day(2024, time.January, 20), Minutes: 30},
		{Date: day(2024, time.March, 15), Minutes: 10},
	}
	got := Aggregate(points, Period6Months, today)

	assert.Equal(t, []string{"10/2023", "11/2023", "12/2023", "01/2024", "02/2024", "03/2024"}, got.Labels)
	assert.Equal(t, []int{0, 0, 0, 90, 0, 10}, got.Values)
}

func TestAggregateMonthlyAcrossYearBoundary(t *testing.T) {
	today := day(2024, time.February, 10)
	points := []LogPoint{
		{Date: day(2023, time.February, 5), Minutes: 500}, // 同月份号但在窗口外
		{Date: day(2023, time.December, 5), Minutes: 60},
		{Date: day(2024, time.January, 5), Minutes: 30},
		{Date: day(2024, time.February, 11), Minutes: 70}, // 晚于今天
	}
	got := Aggregate(points, Period6Months, today)

	assert.Equal(t, []string{"09/2023", "10/2023", "11/2023", "12/2023", "01/2024", "02/2024"}, got.Labels)
	assert.Equal(t, []int{0, 0, 0, 60, 30, 0}, got.Values)
}

func TestAggregateYearToDate(t *testing.T) {
	today := day(2024, time.March, 15)
	points := []LogPoint{
		{Date: day(2023, time.December, 31), Minutes: 100},
		{Date: day(2024, time.February, 29), Minutes: 15},
	}
	for _, p := range []Period{Period12Months, PeriodYear} {
		got := Aggregate(points, p, today)
		assert.Equal(t, []string{"01/2024", "02/2024", "03/2024"}, got.Labels)
		assert.Equal(t, []int{0, 15, 0}, got.Values)
	}
}

func TestAggregateUnknownPeriodFallsBack(t *testing.T) {
	today := day(2024, time.March, 15)
	got := Aggregate(nil, Period("fortnight"), today)
	assert.Equal(t, Period30Days, got.Period)
	assert.Len(t, got.Labels, 30)

	assert.Equal(t, Period30Days, ParsePeriod(""))
	assert.Equal(t, Period90Days, ParsePeriod(" 90DAYS "))
}

func TestResolveWindow(t *testing.T) {
	today := day(2024, time.March, 15)

	w := ResolveWindow(Period90Days, today)
	assert.Equal(t, day(2023, time.December, 17), w.Start)
	assert.Equal(t, today, w.End)
	assert.False(t, w.Monthly)

	w = ResolveWindow(Period6Months, today)
	assert.Equal(t, day(2023, time.October, 1), w.Start)
	assert.True(t, w.Monthly)
}

func TestChartServiceInvalidate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	skill := env.seedSkill(t, "alice", "Piano")
	env.seedMinutes(t, skill.ID, "2024-03-14", 20)

	first, err := env.charts.GetChart(ctx, skill.ID, "7days")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 0, 0, 20, 0}, first.Values)

	// 绕过服务写入：缓存仍返回旧值
	env.seedMinutes(t, skill.ID, "2024-03-15", 40)
	cached, err := env.charts.GetChart(ctx, skill.ID, "7days")
	require.NoError(t, err)
	assert.Equal(t, first.Values, cached.Values)

	env.charts.Invalidate(skill.ID)
	fresh, err := env.charts.GetChart(ctx, skill.ID, "7days")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 0, 0, 20, 40}, fresh.Values)
}

// writeAfterRead 读完窗口后模拟并发写入并失效缓存（只触发一次）
type writeAfterRead struct {
	*repository.PracticeLogRepository
	afterRead func()
}

func (w *writeAfterRead) ListBetween(ctx context.Context, skillID int64, start, end string) ([]schema.PracticeLog, error) {
	logs, err := w.PracticeLogRepository.ListBetween(ctx, skillID, start, end)
	if hook := w.afterRead; hook != nil {
		w.afterRead = nil
		hook()
	}
	return logs, err
}

func TestChartServiceSkipsFillInvalidatedDuringRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	skill := env.seedSkill(t, "alice", "Piano")

	logs := &writeAfterRead{PracticeLogRepository: env.logRepo}
	charts := NewChartService(logs, env.calendar, time.Minute, nil)
	logs.afterRead = func() {
		env.seedMinutes(t, skill.ID, "2024-03-15", 40)
		charts.Invalidate(skill.ID)
	}

	first, err := charts.GetChart(ctx, skill.ID, "7days")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 0, 0, 0, 0}, first.Values)

	second, err := charts.GetChart(ctx, skill.ID, "7days")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 0, 0, 0, 40}, second.Values)

	// 未被打断的读取照常回填缓存
	env.seedMinutes(t, skill.ID, "2024-03-14", 20)
	third, err := charts.GetChart(ctx, skill.ID, "7days")
	require.NoError(t, err)
	assert.Equal(t, second.Values, third.Values)
}
