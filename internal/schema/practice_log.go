package schema

import "time"

const (
	MinLogMinutes = 1
	MaxLogMinutes = 1440 // 24 小时
	MaxNotesLen   = 1000
)

// PracticeLog 一次练习记录，精度到日
// 同一技能同一天最多一条，由 uniq_skill_date 保证
type PracticeLog struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SkillID      int64     `gorm:"not null;index;uniqueIndex:uniq_skill_date,priority:1" json:"skill_id"`
	PracticeDate string    `gorm:"size:10;not null;uniqueIndex:uniq_skill_date,priority:2" json:"practice_date"` // YYYY-MM-DD
	Minutes      int       `gorm:"not null" json:"minutes"`
	Notes        string    `gorm:"size:1000" json:"notes"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PracticeLog) TableName() string {
	return "practice_logs"
}
