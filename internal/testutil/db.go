package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/yuqie6/HoursTracker/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenTestDB 打开内存 SQLite（启用外键）并自动迁移所有表
// 每个 :memory: 连接都是独立的库，因此固定为单连接。
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:?_pragma=foreign_keys(1)"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(
		&schema.Skill{},
		&schema.PracticeLog{},
		&schema.Milestone{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	return db
}
