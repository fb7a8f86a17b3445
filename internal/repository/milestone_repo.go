package repository

import (
	"context"
	"fmt"

	"github.com/yuqie6/HoursTracker/internal/schema"
	"gorm.io/gorm"
)

// AwardFunc 根据已颁发阈值集合决定本次新增的里程碑
type AwardFunc func(awarded map[int]struct{}) []schema.Milestone

// MilestoneRepository 里程碑仓储
type MilestoneRepository struct {
	db *gorm.DB
}

// NewMilestoneRepository 创建仓储
func NewMilestoneRepository(db *gorm.DB) *MilestoneRepository {
	return &MilestoneRepository{db: db}
}

// ListBySkill 获取技能已达成的里程碑（阈值从高到低）
func (r *MilestoneRepository) ListBySkill(ctx context.Context, skillID int64) ([]schema.Milestone, error) {
	var out []schema.Milestone
	err := r.db.WithContext(ctx).
		Where("skill_id = ?", skillID).
		Order("hours DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("查询里程碑失败: %w", err)
	}
	return out, nil
}

// AwardedHours 获取技能已颁发的阈值集合
func (r *MilestoneRepository) AwardedHours(ctx context.Context, skillID int64) (map[int]struct{}, error) {
	return awardedHours(r.db.WithContext(ctx), skillID)
}

func awardedHours(db *gorm.DB, skillID int64) (map[int]struct{}, error) {
	var hours []int
	if err := db.Model(&schema.Milestone{}).Where("skill_id = ?", skillID).Pluck("hours", &hours).Error; err != nil {
		return nil, fmt.Errorf("查询已颁发里程碑失败: %w", err)
	}
	out := make(map[int]struct{}, len(hours))
	for _, h := range hours {
		out[h] = struct{}{}
	}
	return out, nil
}

// BatchInsert 在单个事务中写入一批里程碑，任一失败则整体回滚
func (r *MilestoneRepository) BatchInsert(ctx context.Context, milestones []schema.Milestone) error {
	if len(milestones) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return insertMilestones(tx, milestones)
	})
}

// Award 在同一事务内完成“读取已颁发 → 评估 → 写入”
// 并发评估同一技能时，唯一索引让后提交的一方整体失败并返回 ErrDuplicate；
// 技能在评估期间被删除时外键让整批失败并返回 ErrStaleWrite。
func (r *MilestoneRepository) Award(ctx context.Context, skillID int64, decide AwardFunc) ([]schema.Milestone, error) {
	if decide == nil {
		return nil, fmt.Errorf("decide 不能为空")
	}
	var created []schema.Milestone
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		awarded, err := awardedHours(tx, skillID)
		if err != nil {
			return err
		}
		batch := decide(awarded)
		if len(batch) == 0 {
			return nil
		}
		if err := insertMilestones(tx, batch); err != nil {
			return err
		}
		created = batch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func insertMilestones(tx *gorm.DB, milestones []schema.Milestone) error {
	if err := tx.Create(&milestones).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		if isForeignKeyViolation(err) {
			return ErrStaleWrite
		}
		return fmt.Errorf("写入里程碑失败: %w", err)
	}
	return nil
}

// MarkNotified 标记里程碑已通知
func (r *MilestoneRepository) MarkNotified(ctx context.Context, skillID int64, hours []int) error {
	if len(hours) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&schema.Milestone{}).
		Where("skill_id = ? AND hours IN ?", skillID, hours).
		Update("notified", true).Error
	if err != nil {
		return fmt.Errorf("更新里程碑通知状态失败: %w", err)
	}
	return nil
}
