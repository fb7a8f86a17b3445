package schema

import "time"

// Milestone 技能累计时长跨过固定阈值的记录（已颁发）
// 只由里程碑评估写入，不更新；(skill_id, hours) 唯一
type Milestone struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SkillID    int64     `gorm:"not null;index;uniqueIndex:uniq_skill_hours,priority:1" json:"skill_id"`
	Hours      int       `gorm:"not null;uniqueIndex:uniq_skill_hours,priority:2" json:"hours"`
	AchievedAt time.Time `gorm:"not null" json:"achieved_at"`
	Notified   bool      `gorm:"not null;default:false" json:"notified"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Milestone) TableName() string {
	return "milestones"
}
