package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/yuqie6/HoursTracker/internal/repository"
	"github.com/yuqie6/HoursTracker/internal/schema"
)

// LogsPageSize 技能详情页每页日志条数
const LogsPageSize = 10

// SkillSummary 技能列表项
type SkillSummary struct {
	Skill    schema.Skill
	Progress Progress
}

// SkillDetail 技能详情：进度、里程碑、默认图表与分页日志
type SkillDetail struct {
	Skill      schema.Skill
	Progress   Progress
	Milestones []schema.Milestone
	Chart      ChartSeries
	Logs       []schema.PracticeLog
	Page       int
	TotalPages int
	TotalLogs  int64
	PageSize   int
}

// SkillService 技能服务
type SkillService struct {
	skills     SkillRepository
	logs       PracticeLogRepository
	milestones MilestoneRepository
	charts     *ChartService
}

// NewSkillService 创建技能服务
func NewSkillService(skills SkillRepository, logs PracticeLogRepository, milestones MilestoneRepository, charts *ChartService) *SkillService {
	return &SkillService{
		skills:     skills,
		logs:       logs,
		milestones: milestones,
		charts:     charts,
	}
}

// Create 创建技能
func (s *SkillService) Create(ctx context.Context, userID string, in SkillInput) (*schema.Skill, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	in = in.normalize()
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	skill := schema.NewSkill(userID, in.Name)
	skill.Description = in.Description
	skill.Color = in.Color
	skill.TargetHours = in.TargetHours
	if err := s.skills.Create(ctx, skill); err != nil {
		return nil, err
	}
	slog.Info("创建技能", "skill_id", skill.ID, "user_id", userID, "name", skill.Name)
	return skill, nil
}

// Update 编辑技能；所属用户与创建时间不变
func (s *SkillService) Update(ctx context.Context, userID string, id int64, in SkillInput) (*SkillSummary, error) {
	skill, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	in = in.normalize()
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	skill.Name = in.Name
	skill.Description = in.Description
	skill.Color = in.Color
	skill.TargetHours = in.TargetHours
	if err := s.skills.Update(ctx, skill); err != nil {
		if errors.Is(err, repository.ErrStaleWrite) {
			return nil, s.staleSkill(ctx, userID, id)
		}
		return nil, err
	}
	total, err := s.logs.SumMinutes(ctx, id)
	if err != nil {
		return nil, err
	}
	return &SkillSummary{Skill: *skill, Progress: NewProgress(total, skill.TargetHours)}, nil
}

// Delete 删除技能，级联删除日志与里程碑
func (s *SkillService) Delete(ctx context.Context, userID string, id int64) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.skills.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrStaleWrite) {
			return ErrNotFound
		}
		return err
	}
	s.charts.Invalidate(id)
	slog.Info("删除技能", "skill_id", id, "user_id", userID)
	return nil
}

// List 当前用户全部技能及进度（最新创建在前）
func (s *SkillService) List(ctx context.Context, userID string) ([]SkillSummary, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	skills, err := s.skills.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(skills))
	for _, sk := range skills {
		ids = append(ids, sk.ID)
	}
	minutes, err := s.logs.SumMinutesBySkills(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]SkillSummary, 0, len(skills))
	for _, sk := range skills {
		out = append(out, SkillSummary{
			Skill:    sk,
			Progress: NewProgress(minutes[sk.ID], sk.TargetHours),
		})
	}
	return out, nil
}

// Detail 技能详情；page 越界时收敛到 [1, totalPages]
func (s *SkillService) Detail(ctx context.Context, userID string, id int64, page int) (*SkillDetail, error) {
	skill, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	total, err := s.logs.SumMinutes(ctx, id)
	if err != nil {
		return nil, err
	}
	milestones, err := s.milestones.ListBySkill(ctx, id)
	if err != nil {
		return nil, err
	}
	chart, err := s.charts.GetChart(ctx, id, string(DefaultPeriod))
	if err != nil {
		return nil, err
	}
	count, err := s.logs.CountBySkill(ctx, id)
	if err != nil {
		return nil, err
	}

	totalPages := int((count + LogsPageSize - 1) / LogsPageSize)
	page = clampPage(page, totalPages)
	logs, err := s.logs.ListPage(ctx, id, (page-1)*LogsPageSize, LogsPageSize)
	if err != nil {
		return nil, err
	}

	return &SkillDetail{
		Skill:      *skill,
		Progress:   NewProgress(total, skill.TargetHours),
		Milestones: milestones,
		Chart:      *chart,
		Logs:       logs,
		Page:       page,
		TotalPages: totalPages,
		TotalLogs:  count,
		PageSize:   LogsPageSize,
	}, nil
}

// Chart 技能在指定周期的图表；无法识别的周期按 30days 处理
func (s *SkillService) Chart(ctx context.Context, userID string, id int64, period string) (*ChartSeries, error) {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.charts.GetChart(ctx, id, period)
}

// Milestones 技能已达成里程碑（阈值从高到低）
func (s *SkillService) Milestones(ctx context.Context, userID string, id int64) ([]schema.Milestone, error) {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.milestones.ListBySkill(ctx, id)
}

// AckMilestones 展示层弹出庆祝后回写通知状态
func (s *SkillService) AckMilestones(ctx context.Context, userID string, id int64, hours []int) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.milestones.MarkNotified(ctx, id, hours)
}

func (s *SkillService) owned(ctx context.Context, userID string, id int64) (*schema.Skill, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	skill, err := s.skills.GetOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if skill == nil {
		return nil, ErrNotFound
	}
	return skill, nil
}

// staleSkill 写入未命中时复查：已删除报 not-found，否则报可重试冲突
func (s *SkillService) staleSkill(ctx context.Context, userID string, id int64) error {
	skill, err := s.skills.GetOwned(ctx, userID, id)
	if err != nil {
		return err
	}
	if skill == nil {
		return ErrNotFound
	}
	return ErrConflict
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrUnauthenticated
	}
	return nil
}

func clampPage(page, totalPages int) int {
	if page > totalPages && totalPages > 0 {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	return page
}
