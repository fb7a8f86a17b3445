// Package metrics provides Prometheus metrics for practice logging and milestone awards.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HoursMetrics 练习与里程碑相关指标；nil 接收者上的记录方法均为空操作
type HoursMetrics struct {
	LogWritesTotal         *prometheus.CounterVec // 日志写入，按 op/status
	MilestonesAwardedTotal *prometheus.CounterVec // 颁发的里程碑，按阈值
	MilestoneConflicts     prometheus.Counter     // 里程碑批次冲突重试次数
	ChartRequestsTotal     *prometheus.CounterVec // 图表请求，按 period/cache

	registry *prometheus.Registry
}

// NewHoursMetrics 创建指标并注册到 registry；registry 为 nil 时新建一个
func NewHoursMetrics(registry *prometheus.Registry) (*HoursMetrics, error) {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &HoursMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register hours metrics: %w", err)
	}
	return m, nil
}

func (m *HoursMetrics) initMetrics() {
	m.LogWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hours_practice_log_writes_total",
			Help: "Total number of practice log writes by operation and status",
		},
		[]string{"op", "status"}, // op: create, update, delete; status: ok, invalid, not_found, conflict, error
	)
	m.MilestonesAwardedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hours_milestones_awarded_total",
			Help: "Total number of milestones awarded by hour threshold",
		},
		[]string{"hours"},
	)
	m.MilestoneConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hours_milestone_award_conflicts_total",
			Help: "Total number of milestone batches aborted by a concurrent award",
		},
	)
	m.ChartRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hours_chart_requests_total",
			Help: "Total number of chart aggregations by period and cache result",
		},
		[]string{"period", "cache"}, // cache: hit, miss, off
	)
}

// Describe implements prometheus.Collector.
func (m *HoursMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.LogWritesTotal.Describe(ch)
	m.MilestonesAwardedTotal.Describe(ch)
	m.MilestoneConflicts.Describe(ch)
	m.ChartRequestsTotal.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *HoursMetrics) Collect(ch chan<- prometheus.Metric) {
	m.LogWritesTotal.Collect(ch)
	m.MilestonesAwardedTotal.Collect(ch)
	m.MilestoneConflicts.Collect(ch)
	m.ChartRequestsTotal.Collect(ch)
}

func (m *HoursMetrics) RecordLogWrite(op, status string) {
	if m == nil {
		return
	}
	m.LogWritesTotal.WithLabelValues(op, status).Inc()
}

func (m *HoursMetrics) RecordMilestone(hours int) {
	if m == nil {
		return
	}
	m.MilestonesAwardedTotal.WithLabelValues(strconv.Itoa(hours)).Inc()
}

func (m *HoursMetrics) RecordMilestoneConflict() {
	if m == nil {
		return
	}
	m.MilestoneConflicts.Inc()
}

func (m *HoursMetrics) RecordChart(period, cache string) {
	if m == nil {
		return
	}
	m.ChartRequestsTotal.WithLabelValues(period, cache).Inc()
}

// Handler 暴露 /metrics
func (m *HoursMetrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
