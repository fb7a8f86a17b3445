package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/yuqie6/HoursTracker/internal/eventbus"
	"github.com/yuqie6/HoursTracker/internal/observability/metrics"
	"github.com/yuqie6/HoursTracker/internal/repository"
	"github.com/yuqie6/HoursTracker/internal/schema"
)

// milestoneThresholds 固定的里程碑阈值（小时，升序）
var milestoneThresholds = []int{100, 250, 500, 750, 1000, 1500, 2000, 2500, 3000}

// 冲突时整批重试的最大次数
const maxAwardAttempts = 2

// MilestoneThresholds 返回阈值列表副本
func MilestoneThresholds() []int {
	return append([]int(nil), milestoneThresholds...)
}

// MilestoneAward 新颁发的里程碑（交给展示层）
type MilestoneAward struct {
	Hours   int    `json:"hours"`
	Message string `json:"message"`
}

// MilestoneMessage 庆祝文案
func MilestoneMessage(hours int) string {
	return fmt.Sprintf("Congratulations! You've reached %d hours of practice!", hours)
}

// NewlyCrossed 集合差：(阈值 − 已颁发) 中不超过 totalHours 的部分，升序
func NewlyCrossed(thresholds []int, awarded map[int]struct{}, totalHours float64) []int {
	sorted := append([]int(nil), thresholds...)
	sort.Ints(sorted)

	out := []int{}
	for _, h := range sorted {
		if _, ok := awarded[h]; ok {
			continue
		}
		if totalHours >= float64(h) {
			out = append(out, h)
		}
	}
	return out
}

// Evaluate 为新跨过的阈值构造待写入记录（未通知）
func Evaluate(skillID int64, totalHours float64, awarded map[int]struct{}, now time.Time) []schema.Milestone {
	hours := NewlyCrossed(milestoneThresholds, awarded, totalHours)
	out := make([]schema.Milestone, 0, len(hours))
	for _, h := range hours {
		out = append(out, schema.Milestone{
			SkillID:    skillID,
			Hours:      h,
			AchievedAt: now,
			Notified:   false,
		})
	}
	return out
}

// AwardsFrom 转为展示用结构，保持升序
func AwardsFrom(milestones []schema.Milestone) []MilestoneAward {
	out := make([]MilestoneAward, 0, len(milestones))
	for _, m := range milestones {
		out = append(out, MilestoneAward{Hours: m.Hours, Message: MilestoneMessage(m.Hours)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hours < out[j].Hours })
	return out
}

// MilestoneService 里程碑评估与颁发
type MilestoneService struct {
	skills     SkillRepository
	logs       PracticeLogRepository
	milestones MilestoneRepository
	calendar   *Calendar
	events     EventPublisher
	metrics    *metrics.HoursMetrics
}

// NewMilestoneService 创建里程碑服务；events 与 m 可为 nil
func NewMilestoneService(
	skills SkillRepository,
	logs PracticeLogRepository,
	milestones MilestoneRepository,
	calendar *Calendar,
	events EventPublisher,
	m *metrics.HoursMetrics,
) *MilestoneService {
	return &MilestoneService{
		skills:     skills,
		logs:       logs,
		milestones: milestones,
		calendar:   calendar,
		events:     events,
		metrics:    m,
	}
}

// EvaluateAndRecord 评估技能当前累计时长，原子写入新跨过的里程碑并只返回这些新颁发项
// 技能不存在时返回空结果且无副作用。
func (s *MilestoneService) EvaluateAndRecord(ctx context.Context, skillID int64) ([]MilestoneAward, error) {
	skill, err := s.skills.GetByID(ctx, skillID)
	if err != nil {
		return nil, err
	}
	if skill == nil {
		return []MilestoneAward{}, nil
	}

	for attempt := 1; attempt <= maxAwardAttempts; attempt++ {
		minutes, err := s.logs.SumMinutes(ctx, skillID)
		if err != nil {
			return nil, err
		}
		totalHours := TotalHours(minutes)
		now := s.calendar.Now()

		created, err := s.milestones.Award(ctx, skillID, func(awarded map[int]struct{}) []schema.Milestone {
			return Evaluate(skillID, totalHours, awarded, now)
		})
		if errors.Is(err, repository.ErrDuplicate) {
			// 并发评估先一步颁发了部分阈值：整批已回滚，重新读取后再来
			s.metrics.RecordMilestoneConflict()
			slog.Warn("里程碑颁发冲突，整批重试", "skill_id", skillID, "attempt", attempt)
			continue
		}
		if errors.Is(err, repository.ErrStaleWrite) {
			// 技能在评估期间被删除：与未知技能一致，空结果且无写入
			slog.Info("技能已删除，跳过里程碑评估", "skill_id", skillID)
			return []MilestoneAward{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("颁发里程碑失败: %w", err)
		}

		awards := AwardsFrom(created)
		for _, a := range awards {
			s.metrics.RecordMilestone(a.Hours)
			s.publish(skill, a)
		}
		if len(awards) > 0 {
			slog.Info("达成新里程碑", "skill_id", skillID, "total_hours", totalHours, "count", len(awards))
		}
		return awards, nil
	}
	return nil, ErrConflict
}

func (s *MilestoneService) publish(skill *schema.Skill, a MilestoneAward) {
	if s.events == nil {
		return
	}
	s.events.Publish(eventbus.Event{
		Type:   eventbus.TypeMilestoneAchieved,
		UserID: skill.UserID,
		Data: map[string]any{
			"skill_id":   skill.ID,
			"skill_name": skill.Name,
			"hours":      a.Hours,
			"message":    a.Message,
		},
	})
}

// ListBySkill 已达成里程碑（阈值从高到低）
func (s *MilestoneService) ListBySkill(ctx context.Context, skillID int64) ([]schema.Milestone, error) {
	return s.milestones.ListBySkill(ctx, skillID)
}

// MarkNotified 展示层确认已弹出庆祝后回写
func (s *MilestoneService) MarkNotified(ctx context.Context, skillID int64, hours []int) error {
	return s.milestones.MarkNotified(ctx, skillID, hours)
}

// ReconcileAll 对全部技能重新评估；评估幂等，可周期性执行
// 返回本轮新颁发的里程碑总数。
func (s *MilestoneService) ReconcileAll(ctx context.Context) (int, error) {
	ids, err := s.skills.ListIDs(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		awards, err := s.EvaluateAndRecord(ctx, id)
		if err != nil {
			return total, fmt.Errorf("对账技能 %d 失败: %w", id, err)
		}
		total += len(awards)
	}
	return total, nil
}
