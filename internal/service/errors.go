package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound 技能或日志不存在，或不属于当前用户
	ErrNotFound = errors.New("记录不存在或不属于当前用户")
	// ErrConflict 写入与并发删除/并发颁发冲突，可重试
	ErrConflict = errors.New("数据已被并发修改，请重试")
	// ErrUnauthenticated 缺少用户身份
	ErrUnauthenticated = errors.New("缺少用户身份")
)

// ValidationError 字段级校验错误，未做任何持久化
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "参数校验失败"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "参数校验失败: " + strings.Join(parts, "; ")
}

// Add 记录字段错误，同一字段保留第一条
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; ok {
		return
	}
	e.Fields[field] = msg
}

// OrNil 没有字段错误时返回 nil
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// IsValidation 判断是否为校验错误
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
