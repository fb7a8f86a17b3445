package schema

import (
	"time"
)

const (
	DefaultSkillColor  = "#007bff"
	DefaultTargetHours = 1000
	MaxTargetHours     = 10000
)

// Skill 可追踪的练习领域（钢琴、编程……）
// 数据量级：每用户十级
type Skill struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      string    `gorm:"size:64;index;not null" json:"user_id"` // 所属用户（身份由外部认证提供）
	Name        string    `gorm:"size:100;not null" json:"name"`
	Description string    `gorm:"size:500" json:"description"`
	Color       string    `gorm:"size:20;not null;default:'#007bff'" json:"color"`
	TargetHours int       `gorm:"not null;default:1000" json:"target_hours"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// 仅用于建立外键：删除技能时数据库级联删除日志与里程碑
	Logs       []PracticeLog `gorm:"foreignKey:SkillID;constraint:OnDelete:CASCADE" json:"-"`
	Milestones []Milestone   `gorm:"foreignKey:SkillID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName 指定表名
func (Skill) TableName() string {
	return "skills"
}

// NewSkill 创建带默认值的技能
func NewSkill(userID, name string) *Skill {
	return &Skill{
		UserID:      userID,
		Name:        name,
		Color:       DefaultSkillColor,
		TargetHours: DefaultTargetHours,
	}
}
