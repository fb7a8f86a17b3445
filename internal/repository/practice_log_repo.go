package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yuqie6/HoursTracker/internal/schema"
	"gorm.io/gorm"
)

// SkillMinutes 技能累计分钟数
type SkillMinutes struct {
	SkillID int64
	Minutes int64
}

// PracticeLogRepository 练习日志仓储
type PracticeLogRepository struct {
	db *gorm.DB
}

// NewPracticeLogRepository 创建仓储
func NewPracticeLogRepository(db *gorm.DB) *PracticeLogRepository {
	return &PracticeLogRepository{db: db}
}

// Create 创建日志；同一技能同一天已存在时返回 ErrDuplicate，技能已被删除时返回 ErrStaleWrite
func (r *PracticeLogRepository) Create(ctx context.Context, log *schema.PracticeLog) error {
	if log == nil {
		return fmt.Errorf("practice log is nil")
	}
	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		if isForeignKeyViolation(err) {
			return ErrStaleWrite
		}
		return fmt.Errorf("创建练习日志失败: %w", err)
	}
	return nil
}

// Update 更新日志（保留 CreatedAt）；日志或目标技能已不存在时返回 ErrStaleWrite
func (r *PracticeLogRepository) Update(ctx context.Context, log *schema.PracticeLog) error {
	if log == nil {
		return fmt.Errorf("practice log is nil")
	}
	res := r.db.WithContext(ctx).Model(&schema.PracticeLog{}).
		Where("id = ?", log.ID).
		Updates(map[string]interface{}{
			"skill_id":      log.SkillID,
			"practice_date": log.PracticeDate,
			"minutes":       log.Minutes,
			"notes":         log.Notes,
		})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return ErrDuplicate
		}
		if isForeignKeyViolation(res.Error) {
			return ErrStaleWrite
		}
		return fmt.Errorf("更新练习日志失败: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStaleWrite
	}
	return nil
}

// Delete 删除日志
func (r *PracticeLogRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&schema.PracticeLog{})
	if res.Error != nil {
		return fmt.Errorf("删除练习日志失败: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStaleWrite
	}
	return nil
}

// GetByID 根据 ID 获取日志，不存在返回 nil
func (r *PracticeLogRepository) GetByID(ctx context.Context, id int64) (*schema.PracticeLog, error) {
	var log schema.PracticeLog
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&log).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询练习日志失败: %w", err)
	}
	return &log, nil
}

// GetOwned 获取属于指定用户（经由技能归属）的日志
func (r *PracticeLogRepository) GetOwned(ctx context.Context, userID string, id int64) (*schema.PracticeLog, error) {
	var log schema.PracticeLog
	err := r.db.WithContext(ctx).
		Joins("JOIN skills ON skills.id = practice_logs.skill_id").
		Where("practice_logs.id = ? AND skills.user_id = ?", id, userID).
		First(&log).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询练习日志失败: %w", err)
	}
	return &log, nil
}

// ExistsOnDate 检查技能在某天是否已有日志；excludeID > 0 时排除该日志自身
func (r *PracticeLogRepository) ExistsOnDate(ctx context.Context, skillID int64, date string, excludeID int64) (bool, error) {
	q := r.db.WithContext(ctx).Model(&schema.PracticeLog{}).
		Where("skill_id = ? AND practice_date = ?", skillID, date)
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("查询同日日志失败: %w", err)
	}
	return count > 0, nil
}

// ListBetween 获取技能在闭区间 [start, end] 内的日志（按日期升序）
// 日期键为 YYYY-MM-DD，字典序即日期序。
func (r *PracticeLogRepository) ListBetween(ctx context.Context, skillID int64, start, end string) ([]schema.PracticeLog, error) {
	from, to, err := DateRange(start, end)
	if err != nil {
		return nil, err
	}
	var logs []schema.PracticeLog
	err = r.db.WithContext(ctx).
		Where("skill_id = ? AND practice_date >= ? AND practice_date <= ?", skillID, from, to).
		Order("practice_date ASC").
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("按日期范围查询练习日志失败: %w", err)
	}
	return logs, nil
}

// ListPage 分页获取技能日志（按日期倒序）
func (r *PracticeLogRepository) ListPage(ctx context.Context, skillID int64, offset, limit int) ([]schema.PracticeLog, error) {
	var logs []schema.PracticeLog
	err := r.db.WithContext(ctx).
		Where("skill_id = ?", skillID).
		Order("practice_date DESC").
		Offset(offset).
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("分页查询练习日志失败: %w", err)
	}
	return logs, nil
}

// CountBySkill 统计技能日志条数
func (r *PracticeLogRepository) CountBySkill(ctx context.Context, skillID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&schema.PracticeLog{}).Where("skill_id = ?", skillID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("统计练习日志失败: %w", err)
	}
	return count, nil
}

// SumMinutes 技能累计分钟数
func (r *PracticeLogRepository) SumMinutes(ctx context.Context, skillID int64) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&schema.PracticeLog{}).
		Where("skill_id = ?", skillID).
		Select("COALESCE(SUM(minutes), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("统计练习时长失败: %w", err)
	}
	return total, nil
}

// SumMinutesBySkills 批量统计多个技能的累计分钟数；没有日志的技能不出现在结果中
func (r *PracticeLogRepository) SumMinutesBySkills(ctx context.Context, skillIDs []int64) (map[int64]int64, error) {
	out := make(map[int64]int64, len(skillIDs))
	if len(skillIDs) == 0 {
		return out, nil
	}
	var rows []SkillMinutes
	err := r.db.WithContext(ctx).Model(&schema.PracticeLog{}).
		Select("skill_id, COALESCE(SUM(minutes), 0) AS minutes").
		Where("skill_id IN ?", skillIDs).
		Group("skill_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("统计练习时长失败: %w", err)
	}
	for _, row := range rows {
		out[row.SkillID] = row.Minutes
	}
	return out, nil
}
