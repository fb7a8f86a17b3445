package service

import (
	"math"

	"github.com/yuqie6/HoursTracker/internal/schema"
)

// Progress 技能的派生进度，每次按日志重算，不落库
type Progress struct {
	TotalMinutes       int64   `json:"total_minutes"`
	TotalHours         float64 `json:"total_hours"`
	TargetHours        int     `json:"target_hours"`
	ProgressPercentage float64 `json:"progress_percentage"`
}

// NewProgress 由累计分钟数与目标小时数计算进度
func NewProgress(totalMinutes int64, targetHours int) Progress {
	hours := TotalHours(totalMinutes)
	return Progress{
		TotalMinutes:       totalMinutes,
		TotalHours:         hours,
		TargetHours:        targetHours,
		ProgressPercentage: ProgressPercentage(hours, targetHours),
	}
}

// TotalMinutes 日志分钟数之和
func TotalMinutes(logs []schema.PracticeLog) int64 {
	var total int64
	for _, l := range logs {
		total += int64(l.Minutes)
	}
	return total
}

// TotalHours 分钟换算为小时，保留两位小数
func TotalHours(totalMinutes int64) float64 {
	return round2(float64(totalMinutes) / 60)
}

// ProgressPercentage 完成百分比，保留两位小数，落在 [0, 100]
func ProgressPercentage(totalHours float64, targetHours int) float64 {
	if targetHours <= 0 {
		return 0
	}
	pct := round2(totalHours / float64(targetHours) * 100)
	return math.Max(0, math.Min(pct, 100))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
