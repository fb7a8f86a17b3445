package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/yuqie6/HoursTracker/internal/schema"
)

// SkillInput 创建/编辑技能的输入
type SkillInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	Color       string `json:"color" validate:"omitempty,max=20"`
	TargetHours int    `json:"target_hours" validate:"omitempty,min=1,max=10000"`
}

// PracticeLogInput 创建/编辑练习日志的输入
type PracticeLogInput struct {
	SkillID      int64  `json:"skill_id" validate:"required,gt=0"`
	PracticeDate string `json:"practice_date" validate:"required,datetime=2006-01-02"`
	Minutes      int    `json:"minutes" validate:"min=1,max=1440"`
	Notes        string `json:"notes" validate:"max=1000"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func inputValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		// 字段错误使用 json 名，和接口契约一致
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		validate = v
	})
	return validate
}

// normalize 去除首尾空白并补默认值
func (in SkillInput) normalize() SkillInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Color = strings.TrimSpace(in.Color)
	if in.Color == "" {
		in.Color = schema.DefaultSkillColor
	}
	if in.TargetHours == 0 {
		in.TargetHours = schema.DefaultTargetHours
	}
	return in
}

func (in PracticeLogInput) normalize() PracticeLogInput {
	in.PracticeDate = strings.TrimSpace(in.PracticeDate)
	in.Notes = strings.TrimSpace(in.Notes)
	return in
}

// validateStruct 执行标签校验，失败时返回 *ValidationError
func validateStruct(in any) error {
	err := inputValidator().Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("参数校验失败: %w", err)
	}
	verr := &ValidationError{}
	for _, fe := range fieldErrs {
		verr.Add(fe.Field(), fieldMessage(fe))
	}
	return verr.OrNil()
}

func fieldMessage(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "不能为空"
	case "max":
		if isString {
			return fmt.Sprintf("长度不能超过 %s 个字符", fe.Param())
		}
		return fmt.Sprintf("不能大于 %s", fe.Param())
	case "min":
		if isString {
			return fmt.Sprintf("长度不能少于 %s 个字符", fe.Param())
		}
		return fmt.Sprintf("不能小于 %s", fe.Param())
	case "gt":
		return fmt.Sprintf("必须大于 %s", fe.Param())
	case "datetime":
		return "日期格式应为 YYYY-MM-DD"
	default:
		return "取值无效"
	}
}
