package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yuqie6/HoursTracker/internal/schema"
	"gorm.io/gorm"
)

// SkillRepository 技能仓储
type SkillRepository struct {
	db *gorm.DB
}

// NewSkillRepository 创建仓储
func NewSkillRepository(db *gorm.DB) *SkillRepository {
	return &SkillRepository{db: db}
}

// Create 创建技能
func (r *SkillRepository) Create(ctx context.Context, skill *schema.Skill) error {
	if skill == nil {
		return fmt.Errorf("skill is nil")
	}
	if err := r.db.WithContext(ctx).Create(skill).Error; err != nil {
		return fmt.Errorf("创建技能失败: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取技能，不存在返回 nil
func (r *SkillRepository) GetByID(ctx context.Context, id int64) (*schema.Skill, error) {
	var skill schema.Skill
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&skill).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询技能失败: %w", err)
	}
	return &skill, nil
}

// GetOwned 获取属于指定用户的技能，不存在或不属于该用户返回 nil
func (r *SkillRepository) GetOwned(ctx context.Context, userID string, id int64) (*schema.Skill, error) {
	var skill schema.Skill
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&skill).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询技能失败: %w", err)
	}
	return &skill, nil
}

// ListByUser 获取用户全部技能（最新创建在前）
func (r *SkillRepository) ListByUser(ctx context.Context, userID string) ([]schema.Skill, error) {
	var skills []schema.Skill
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&skills).Error
	if err != nil {
		return nil, fmt.Errorf("查询技能失败: %w", err)
	}
	return skills, nil
}

// ListIDs 获取全部技能 ID（用于里程碑对账）
func (r *SkillRepository) ListIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&schema.Skill{}).Order("id").Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("查询技能失败: %w", err)
	}
	return ids, nil
}

// Update 更新可编辑字段；UserID 与 CreatedAt 保持不变
func (r *SkillRepository) Update(ctx context.Context, skill *schema.Skill) error {
	if skill == nil {
		return fmt.Errorf("skill is nil")
	}
	res := r.db.WithContext(ctx).Model(&schema.Skill{}).
		Where("id = ? AND user_id = ?", skill.ID, skill.UserID).
		Updates(map[string]interface{}{
			"name":         skill.Name,
			"description":  skill.Description,
			"color":        skill.Color,
			"target_hours": skill.TargetHours,
		})
	if res.Error != nil {
		return fmt.Errorf("更新技能失败: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStaleWrite
	}
	return nil
}

// Delete 删除技能并级联删除其日志与里程碑
func (r *SkillRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("skill_id = ?", id).Delete(&schema.PracticeLog{}).Error; err != nil {
			return fmt.Errorf("删除练习日志失败: %w", err)
		}
		if err := tx.Where("skill_id = ?", id).Delete(&schema.Milestone{}).Error; err != nil {
			return fmt.Errorf("删除里程碑失败: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&schema.Skill{})
		if res.Error != nil {
			return fmt.Errorf("删除技能失败: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrStaleWrite
		}
		return nil
	})
}

// Count 统计技能数量
func (r *SkillRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&schema.Skill{}).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("统计技能失败: %w", err)
	}
	return count, nil
}
