package schema

import "time"

// SchemaMeta 单行（ID=1）记录技能/日志/里程碑三张表的结构版本
// 版本 2 起日志与里程碑带指向 skills 的外键；低版本库启动时补迁移。
type SchemaMeta struct {
	ID            int       `gorm:"primaryKey"`
	SchemaVersion int       `gorm:"not null"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (SchemaMeta) TableName() string {
	return "schema_meta"
}
