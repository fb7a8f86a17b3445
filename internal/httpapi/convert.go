package httpapi

import (
	"github.com/yuqie6/HoursTracker/internal/dto"
	"github.com/yuqie6/HoursTracker/internal/schema"
	"github.com/yuqie6/HoursTracker/internal/service"
)

func skillToDTO(s schema.Skill, p service.Progress) dto.SkillDTO {
	return dto.SkillDTO{
		ID:                 s.ID,
		Name:               s.Name,
		Description:        s.Description,
		Color:              s.Color,
		TargetHours:        s.TargetHours,
		TotalMinutes:       p.TotalMinutes,
		TotalHours:         p.TotalHours,
		ProgressPercentage: p.ProgressPercentage,
		CreatedAt:          s.CreatedAt.UnixMilli(),
	}
}

func skillDetailToDTO(d *service.SkillDetail) *dto.SkillDetailDTO {
	logs := make([]dto.LogDTO, 0, len(d.Logs))
	for _, l := range d.Logs {
		logs = append(logs, logToDTO(l))
	}
	return &dto.SkillDetailDTO{
		Skill:      skillToDTO(d.Skill, d.Progress),
		Milestones: milestonesToDTO(d.Milestones),
		Chart:      chartToDTO(d.Chart),
		Logs:       logs,
		Page:       d.Page,
		TotalPages: d.TotalPages,
		TotalLogs:  d.TotalLogs,
		PageSize:   d.PageSize,
	}
}

func chartToDTO(c service.ChartSeries) dto.ChartDTO {
	out := dto.ChartDTO{Labels: c.Labels, Values: c.Values, Period: string(c.Period)}
	if out.Labels == nil {
		out.Labels = []string{}
	}
	if out.Values == nil {
		out.Values = []int{}
	}
	return out
}

func milestonesToDTO(list []schema.Milestone) []dto.MilestoneDTO {
	out := make([]dto.MilestoneDTO, 0, len(list))
	for _, m := range list {
		out = append(out, dto.MilestoneDTO{
			Hours:      m.Hours,
			AchievedAt: m.AchievedAt.UnixMilli(),
			Notified:   m.Notified,
		})
	}
	return out
}

func logToDTO(l schema.PracticeLog) dto.LogDTO {
	return dto.LogDTO{
		ID:           l.ID,
		SkillID:      l.SkillID,
		PracticeDate: l.PracticeDate,
		Minutes:      l.Minutes,
		Notes:        l.Notes,
		CreatedAt:    l.CreatedAt.UnixMilli(),
	}
}

func awardsToDTO(awards []service.MilestoneAward) []dto.MilestoneAwardDTO {
	out := make([]dto.MilestoneAwardDTO, 0, len(awards))
	for _, a := range awards {
		out = append(out, dto.MilestoneAwardDTO{Hours: a.Hours, Message: a.Message})
	}
	return out
}
