package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/yuqie6/HoursTracker/internal/observability/metrics"
	"github.com/yuqie6/HoursTracker/internal/schema"
)

// ChartService 技能图表数据（带缓存）
// 缓存键包含“今天”，跨日自然失效；日志增删改必须调用 Invalidate。
// 每个技能有一个代数，Invalidate 递增；读取期间代数变化的结果不回填缓存。
type ChartService struct {
	logs     PracticeLogRepository
	calendar *Calendar
	cache    *cache.Cache
	metrics  *metrics.HoursMetrics

	mu  sync.Mutex
	gen map[int64]uint64
}

// NewChartService 创建图表服务；ttl <= 0 关闭缓存
func NewChartService(logs PracticeLogRepository, calendar *Calendar, ttl time.Duration, m *metrics.HoursMetrics) *ChartService {
	s := &ChartService{logs: logs, calendar: calendar, metrics: m, gen: make(map[int64]uint64)}
	if ttl > 0 {
		s.cache = cache.New(ttl, ttl*2)
	}
	return s
}

// GetChart 加载时间窗内的日志并按周期聚合
func (s *ChartService) GetChart(ctx context.Context, skillID int64, period string) (*ChartSeries, error) {
	p := ParsePeriod(period)
	today := s.calendar.Today()
	key := chartCacheKey(skillID, p, today)

	if s.cache != nil {
		if cached, found := s.cache.Get(key); found {
			if series, ok := cached.(ChartSeries); ok {
				s.metrics.RecordChart(string(p), "hit")
				out := series.clone()
				return &out, nil
			}
		}
	}

	gen := s.generation(skillID)
	w := ResolveWindow(p, today)
	logs, err := s.logs.ListBetween(ctx, skillID, s.calendar.FormatDate(w.Start), s.calendar.FormatDate(w.End))
	if err != nil {
		return nil, err
	}
	series := Aggregate(PointsFromLogs(logs, s.calendar), p, today)

	if s.cache != nil {
		if !s.storeIfCurrent(skillID, gen, key, series) {
			slog.Debug("图表读取期间已失效，不回填缓存", "skill_id", skillID, "period", p)
		}
		s.metrics.RecordChart(string(p), "miss")
	} else {
		s.metrics.RecordChart(string(p), "off")
	}
	return &series, nil
}

// Invalidate 丢弃某技能的全部缓存图表
func (s *ChartService) Invalidate(skillID int64) {
	if s == nil || s.cache == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen[skillID]++
	prefix := strconv.FormatInt(skillID, 10) + "|"
	for k := range s.cache.Items() {
		if strings.HasPrefix(k, prefix) {
			s.cache.Delete(k)
		}
	}
}

func (s *ChartService) generation(skillID int64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen[skillID]
}

// storeIfCurrent 代数未变时写入缓存；与 Invalidate 互斥
func (s *ChartService) storeIfCurrent(skillID int64, gen uint64, key string, series ChartSeries) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen[skillID] != gen {
		return false
	}
	s.cache.Set(key, series.clone(), cache.DefaultExpiration)
	return true
}

func chartCacheKey(skillID int64, p Period, today time.Time) string {
	return fmt.Sprintf("%d|%s|%s", skillID, p, today.Format("2006-01-02"))
}

// PointsFromLogs 把持久化日志转为聚合输入；无法解析的日期跳过
func PointsFromLogs(logs []schema.PracticeLog, calendar *Calendar) []LogPoint {
	points := make([]LogPoint, 0, len(logs))
	for _, l := range logs {
		d, err := calendar.ParseDate(l.PracticeDate)
		if err != nil {
			slog.Warn("跳过日期异常的练习日志", "log_id", l.ID, "practice_date", l.PracticeDate, "error", err)
			continue
		}
		points = append(points, LogPoint{Date: d, Minutes: l.Minutes})
	}
	return points
}
