package service

import (
	"context"

	"github.com/yuqie6/HoursTracker/internal/eventbus"
	"github.com/yuqie6/HoursTracker/internal/repository"
	"github.com/yuqie6/HoursTracker/internal/schema"
)

// 仓储/外部依赖的最小接口集合（ISP）

type SkillRepository interface {
	Create(ctx context.Context, skill *schema.Skill) error
	GetByID(ctx context.Context, id int64) (*schema.Skill, error)
	GetOwned(ctx context.Context, userID string, id int64) (*schema.Skill, error)
	ListByUser(ctx context.Context, userID string) ([]schema.Skill, error)
	ListIDs(ctx context.Context) ([]int64, error)
	Update(ctx context.Context, skill *schema.Skill) error
	Delete(ctx context.Context, id int64) error
}

type PracticeLogRepository interface {
	Create(ctx context.Context, log *schema.PracticeLog) error
	Update(ctx context.Context, log *schema.PracticeLog) error
	Delete(ctx context.Context, id int64) error
	GetOwned(ctx context.Context, userID string, id int64) (*schema.PracticeLog, error)
	ExistsOnDate(ctx context.Context, skillID int64, date string, excludeID int64) (bool, error)
	ListBetween(ctx context.Context, skillID int64, start, end string) ([]schema.PracticeLog, error)
	ListPage(ctx context.Context, skillID int64, offset, limit int) ([]schema.PracticeLog, error)
	CountBySkill(ctx context.Context, skillID int64) (int64, error)
	SumMinutes(ctx context.Context, skillID int64) (int64, error)
	SumMinutesBySkills(ctx context.Context, skillIDs []int64) (map[int64]int64, error)
}

type MilestoneRepository interface {
	ListBySkill(ctx context.Context, skillID int64) ([]schema.Milestone, error)
	Award(ctx context.Context, skillID int64, decide repository.AwardFunc) ([]schema.Milestone, error)
	MarkNotified(ctx context.Context, skillID int64, hours []int) error
}

type EventPublisher interface {
	Publish(evt eventbus.Event)
}
