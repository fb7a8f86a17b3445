package dto

// 注意：本包用于承载“对外契约”的 DTO（与前端/HTTP API 保持稳定）。
// 不要在这里放 GORM/持久化细节；内部持久化 schema 请见 internal/schema；业务逻辑收敛在 internal/service。

type SkillDTO struct {
	ID                 int64   `json:"id"`
	Name               string  `json:"name"`
	Description        string  `json:"description"`
	Color              string  `json:"color"`
	TargetHours        int     `json:"target_hours"`
	TotalMinutes       int64   `json:"total_minutes"`
	TotalHours         float64 `json:"total_hours"`
	ProgressPercentage float64 `json:"progress_percentage"`
	CreatedAt          int64   `json:"created_at"`
}

type SkillDetailDTO struct {
	Skill      SkillDTO       `json:"skill"`
	Milestones []MilestoneDTO `json:"milestones"`
	Chart      ChartDTO       `json:"chart"`
	Logs       []LogDTO       `json:"logs"`
	Page       int            `json:"page"`
	TotalPages int            `json:"total_pages"`
	TotalLogs  int64          `json:"total_logs"`
	PageSize   int            `json:"page_size"`
}

// ChartDTO labels 与 values 等长
type ChartDTO struct {
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
	Period string   `json:"period"`
}

type MilestoneDTO struct {
	Hours      int   `json:"hours"`
	AchievedAt int64 `json:"achieved_at"`
	Notified   bool  `json:"notified"`
}

type LogDTO struct {
	ID           int64  `json:"id"`
	SkillID      int64  `json:"skill_id"`
	PracticeDate string `json:"practice_date"` // YYYY-MM-DD
	Minutes      int    `json:"minutes"`
	Notes        string `json:"notes"`
	CreatedAt    int64  `json:"created_at"`
}

type MilestoneAwardDTO struct {
	Hours   int    `json:"hours"`
	Message string `json:"message"`
}

type CreateLogResponseDTO struct {
	Log        LogDTO              `json:"log"`
	Milestones []MilestoneAwardDTO `json:"milestones"`
	Warning    string              `json:"warning,omitempty"`
}

type ErrorDTO struct {
	Error     string            `json:"error"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}
