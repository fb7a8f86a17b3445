package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yuqie6/HoursTracker/internal/eventbus"
	"github.com/yuqie6/HoursTracker/internal/observability/metrics"
	"github.com/yuqie6/HoursTracker/internal/repository"
	"github.com/yuqie6/HoursTracker/internal/schema"
)

// CreateLogResult 新建日志及本次新颁发的里程碑
type CreateLogResult struct {
	Log        *schema.PracticeLog
	Milestones []MilestoneAward
}

// PracticeLogService 练习日志服务
type PracticeLogService struct {
	skills     SkillRepository
	logs       PracticeLogRepository
	milestones *MilestoneService
	charts     *ChartService
	calendar   *Calendar
	events     EventPublisher
	metrics    *metrics.HoursMetrics
}

// NewPracticeLogService 创建日志服务；events 与 m 可为 nil
func NewPracticeLogService(
	skills SkillRepository,
	logs PracticeLogRepository,
	milestones *MilestoneService,
	charts *ChartService,
	calendar *Calendar,
	events EventPublisher,
	m *metrics.HoursMetrics,
) *PracticeLogService {
	return &PracticeLogService{
		skills:     skills,
		logs:       logs,
		milestones: milestones,
		charts:     charts,
		calendar:   calendar,
		events:     events,
		metrics:    m,
	}
}

// Create 新建日志并评估里程碑
// 日志写入成功而里程碑评估失败时，同时返回结果与错误；对账任务会补发。
func (s *PracticeLogService) Create(ctx context.Context, userID string, in PracticeLogInput) (*CreateLogResult, error) {
	in, err := s.prepare(in)
	if err != nil {
		s.metrics.RecordLogWrite("create", "invalid")
		return nil, err
	}
	skill, err := s.ownedSkill(ctx, userID, in.SkillID)
	if err != nil {
		return nil, err
	}
	if err := s.checkDate(ctx, in.SkillID, in.PracticeDate, 0); err != nil {
		s.metrics.RecordLogWrite("create", "invalid")
		return nil, err
	}

	log := &schema.PracticeLog{
		SkillID:      in.SkillID,
		PracticeDate: in.PracticeDate,
		Minutes:      in.Minutes,
		Notes:        in.Notes,
	}
	if err := s.logs.Create(ctx, log); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			s.metrics.RecordLogWrite("create", "invalid")
			return nil, duplicateDateError(in.PracticeDate)
		case errors.Is(err, repository.ErrStaleWrite):
			// 预检之后技能被并发删除，外键拒绝写入
			s.metrics.RecordLogWrite("create", "conflict")
			return nil, s.staleSkill(ctx, userID, in.SkillID)
		default:
			s.metrics.RecordLogWrite("create", "error")
			return nil, err
		}
	}
	s.metrics.RecordLogWrite("create", "ok")
	s.charts.Invalidate(log.SkillID)
	s.publish(eventbus.TypeLogCreated, skill.UserID, log)

	result := &CreateLogResult{Log: log, Milestones: []MilestoneAward{}}
	awards, err := s.milestones.EvaluateAndRecord(ctx, log.SkillID)
	if err != nil {
		slog.Warn("里程碑评估失败", "skill_id", log.SkillID, "log_id", log.ID, "error", err)
		return result, fmt.Errorf("日志已保存，里程碑评估失败: %w", err)
	}
	result.Milestones = awards
	return result, nil
}

// Update 编辑日志；可改日期、时长、备注，也可改挂到当前用户的另一技能
func (s *PracticeLogService) Update(ctx context.Context, userID string, id int64, in PracticeLogInput) (*schema.PracticeLog, error) {
	existing, err := s.ownedLog(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	in, err = s.prepare(in)
	if err != nil {
		s.metrics.RecordLogWrite("update", "invalid")
		return nil, err
	}
	if _, err := s.ownedSkill(ctx, userID, in.SkillID); err != nil {
		return nil, err
	}
	if err := s.checkDate(ctx, in.SkillID, in.PracticeDate, id); err != nil {
		s.metrics.RecordLogWrite("update", "invalid")
		return nil, err
	}

	oldSkillID := existing.SkillID
	existing.SkillID = in.SkillID
	existing.PracticeDate = in.PracticeDate
	existing.Minutes = in.Minutes
	existing.Notes = in.Notes
	if err := s.logs.Update(ctx, existing); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			s.metrics.RecordLogWrite("update", "invalid")
			return nil, duplicateDateError(in.PracticeDate)
		case errors.Is(err, repository.ErrStaleWrite):
			s.metrics.RecordLogWrite("update", "conflict")
			return nil, s.staleLog(ctx, userID, id, in.SkillID)
		default:
			s.metrics.RecordLogWrite("update", "error")
			return nil, err
		}
	}
	s.metrics.RecordLogWrite("update", "ok")
	s.charts.Invalidate(oldSkillID)
	s.charts.Invalidate(existing.SkillID)
	s.publish(eventbus.TypeLogUpdated, userID, existing)
	return existing, nil
}

// Delete 删除日志；已颁发的里程碑保留
func (s *PracticeLogService) Delete(ctx context.Context, userID string, id int64) error {
	existing, err := s.ownedLog(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.logs.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrStaleWrite) {
			return ErrNotFound
		}
		s.metrics.RecordLogWrite("delete", "error")
		return err
	}
	s.metrics.RecordLogWrite("delete", "ok")
	s.charts.Invalidate(existing.SkillID)
	s.publish(eventbus.TypeLogDeleted, userID, existing)
	return nil
}

// Get 获取当前用户的一条日志
func (s *PracticeLogService) Get(ctx context.Context, userID string, id int64) (*schema.PracticeLog, error) {
	return s.ownedLog(ctx, userID, id)
}

// prepare 规范化并校验输入；日期统一为日历下的 YYYY-MM-DD
func (s *PracticeLogService) prepare(in PracticeLogInput) (PracticeLogInput, error) {
	in = in.normalize()
	if err := validateStruct(in); err != nil {
		return in, err
	}
	d, err := s.calendar.ParseDate(in.PracticeDate)
	if err != nil {
		verr := &ValidationError{}
		verr.Add("practice_date", "日期格式应为 YYYY-MM-DD")
		return in, verr
	}
	in.PracticeDate = s.calendar.FormatDate(d)
	return in, nil
}

// checkDate 同一技能同一天只能有一条日志；唯一索引仍是最终保证
func (s *PracticeLogService) checkDate(ctx context.Context, skillID int64, date string, excludeID int64) error {
	exists, err := s.logs.ExistsOnDate(ctx, skillID, date, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return duplicateDateError(date)
	}
	return nil
}

func (s *PracticeLogService) ownedSkill(ctx context.Context, userID string, skillID int64) (*schema.Skill, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	skill, err := s.skills.GetOwned(ctx, userID, skillID)
	if err != nil {
		return nil, err
	}
	if skill == nil {
		return nil, ErrNotFound
	}
	return skill, nil
}

func (s *PracticeLogService) ownedLog(ctx context.Context, userID string, id int64) (*schema.PracticeLog, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	log, err := s.logs.GetOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if log == nil {
		return nil, ErrNotFound
	}
	return log, nil
}

// staleSkill 写入被外键拒绝后复查：技能已删除报 not-found，否则报可重试冲突
func (s *PracticeLogService) staleSkill(ctx context.Context, userID string, skillID int64) error {
	skill, err := s.skills.GetOwned(ctx, userID, skillID)
	if err != nil {
		return err
	}
	if skill == nil {
		return ErrNotFound
	}
	return ErrConflict
}

// staleLog 更新未命中时复查日志与目标技能
func (s *PracticeLogService) staleLog(ctx context.Context, userID string, id, skillID int64) error {
	log, err := s.logs.GetOwned(ctx, userID, id)
	if err != nil {
		return err
	}
	if log == nil {
		return ErrNotFound
	}
	return s.staleSkill(ctx, userID, skillID)
}

func (s *PracticeLogService) publish(typ, userID string, log *schema.PracticeLog) {
	if s.events == nil || log == nil {
		return
	}
	s.events.Publish(eventbus.Event{
		Type:   typ,
		UserID: userID,
		Data: map[string]any{
			"log_id":        log.ID,
			"skill_id":      log.SkillID,
			"practice_date": log.PracticeDate,
			"minutes":       log.Minutes,
		},
	})
}

func duplicateDateError(date string) error {
	verr := &ValidationError{}
	verr.Add("practice_date", fmt.Sprintf("%s 已有练习记录，请编辑已有记录或选择其他日期", date))
	return verr
}
