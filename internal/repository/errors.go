package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrDuplicate 违反唯一约束（同日日志 / 同阈值里程碑）
	ErrDuplicate = errors.New("记录已存在")
	// ErrStaleWrite 写入时目标行或所属技能已不存在（并发删除）
	ErrStaleWrite = errors.New("目标记录已被修改或删除")
)

// isUniqueViolation 优先依赖 gorm 的错误翻译，驱动未实现时回退到消息匹配
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}

// isForeignKeyViolation 引用的技能已不存在（并发删除）
func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "foreign key constraint")
}
