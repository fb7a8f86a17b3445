package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuqie6/HoursTracker/internal/schema"
)

func TestCreateSkillDefaults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	skill, err := env.skills.Create(ctx, "alice", SkillInput{Name: "  Piano  "})
	require.NoError(t, err)
	assert.Equal(t, "Piano", skill.Name)
	assert.Equal(t, schema.DefaultSkillColor, skill.Color)
	assert.Equal(t, schema.DefaultTargetHours, skill.TargetHours)
	assert.Equal(t, "alice", skill.UserID)
}

func TestCreateSkillValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		in    SkillInput
		field string
	}{
		{"blank name", SkillInput{Name: "   "}, "name"},
		{"long name", SkillInput{Name: strings.Repeat("名", 101)}, "name"},
		{"long description", SkillInput{Name: "Go", Description: strings.Repeat("d", 501)}, "description"},
		{"target too high", SkillInput{Name: "Go", TargetHours: 10001}, "target_hours"},
		{"negative target", SkillInput{Name: "Go", TargetHours: -1}, "target_hours"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.skills.Create(ctx, "alice", tc.in)
			requireFieldError(t, err, tc.field)
		})
	}

	list, err := env.skills.List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpdateSkill(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	skill := env.seedSkill(t, "alice", "Piano")

	updated, err := env.skills.Update(ctx, "alice", skill.ID, SkillInput{Name: "Jazz Piano", Color: "#ff0000", TargetHours: 500})
	require.NoError(t, err)
	assert.Equal(t, "Jazz Piano", updated.Skill.Name)
	assert.Equal(t, 500, updated.Skill.TargetHours)
	assert.Equal(t, "alice", updated.Skill.UserID)
	assert.Zero(t, updated.Progress.TotalMinutes)

	_, err = env.skills.Update(ctx, "bob", skill.ID, SkillInput{Name: "Mine now"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListSkillsWithProgress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	piano := env.seedSkill(t, "alice", "Piano")
	env.seedSkill(t, "alice", "Go")
	env.seedSkill(t, "bob", "Chess")
	env.seedMinutes(t, piano.ID, "2024-03-01", 90)

	list, err := env.skills.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Go", list[0].Skill.Name)
	assert.Equal(t, "Piano", list[1].Skill.Name)
	assert.InDelta(t, 1.5, list[1].Progress.TotalHours, 1e-9)
	assert.InDelta(t, 0.15, list[1].Progress.ProgressPercentage, 1e-9)
	assert.Zero(t, list[0].Progress.TotalMinutes)
}

func TestSkillDetailPagination(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	skill := env.seedSkill(t, "alice", "Piano")
	for d := 1; d <= 25; d++ {
		env.seedMinutes(t, skill.ID, fmt.Sprintf("2024-02-%02d", d), 10)
	}

	detail, err := env.skills.Detail(ctx, "alice", skill.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, detail.TotalPages)
	assert.Equal(t, int64(25), detail.TotalLogs)
	require.Len(t, detail.Logs, LogsPageSize)
	assert.Equal(t, "2024-02-25", detail.Logs[0].PracticeDate)
	assert.Equal(t, Period30Days, detail.Chart.Period)
	assert.Len(t, detail.Chart.Labels, 30)
	assert.Equal(t, int64(250), detail.Progress.TotalMinutes)

	last, err := env.skills.Detail(ctx, "alice", skill.ID, 99)
	require.NoError(t, err)
	assert.Equal(t, 3, last.Page)
	require.Len(t, last.Logs, 5)
	assert.Equal(t, "2024-02-01", last.Logs[4].PracticeDate)

	first, err := env.skills.Detail(ctx, "alice", skill.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Page)
}

func TestSkillDetailEmpty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	skill := env.seedSkill(t, "alice", "Piano")

	detail, err := env.skills.Detail(ctx, "alice", skill.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, detail.Page)
	assert.Zero(t, detail.TotalPages)
	assert.Empty(t, detail.Logs)
	assert.Empty(t, detail.Milestones)
}

func TestDeleteSkillCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	skill := env.seedSkill(t, "alice", "Piano")
	env.seedMinutes(t, skill.ID, "2024-01-01", 200*60)
	_, err := env.milestones.EvaluateAndRecord(ctx, skill.ID)
	require.NoError(t, err)

	require.ErrorIs(t, env.skills.Delete(ctx, "bob", skill.ID), ErrNotFound)
	require.NoError(t, env.skills.Delete(ctx, "alice", skill.ID))

	_, err = env.skills.Detail(ctx, "alice", skill.ID, 1)
	require.ErrorIs(t, err, ErrNotFound)

	count, err := env.logRepo.CountBySkill(ctx, skill.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
	stored, err := env.milestoneRepo.ListBySkill(ctx, skill.ID)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestSkillChartUnknownPeriod(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	skill := env.seedSkill(t, "alice", "Piano")

	chart, err := env.skills.Chart(ctx, "alice", skill.ID, "decade")
	require.NoError(t, err)
	assert.Equal(t, Period30Days, chart.Period)

	_, err = env.skills.Chart(ctx, "bob", skill.ID, "7days")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAckMilestones(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	skill := env.seedSkill(t, "alice", "Piano")
	env.seedMinutes(t, skill.ID, "2024-01-01", 260*60)
	_, err := env.milestones.EvaluateAndRecord(ctx, skill.ID)
	require.NoError(t, err)

	require.ErrorIs(t, env.skills.AckMilestones(ctx, "bob", skill.ID, []int{100}), ErrNotFound)
	require.NoError(t, env.skills.AckMilestones(ctx, "alice", skill.ID, []int{100}))

	stored, err := env.skills.Milestones(ctx, "alice", skill.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.False(t, stored[0].Notified) // 250
	assert.True(t, stored[1].Notified)  // 100
}
