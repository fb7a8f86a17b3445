package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yuqie6/HoursTracker/internal/eventbus"
	"github.com/yuqie6/HoursTracker/internal/repository"
	"github.com/yuqie6/HoursTracker/internal/schema"
	"github.com/yuqie6/HoursTracker/internal/testutil"
)

var testNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *recordingPublisher) Publish(evt eventbus.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) ofType(typ string) []eventbus.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []eventbus.Event
	for _, e := range p.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	skillRepo     *repository.SkillRepository
	logRepo       *repository.PracticeLogRepository
	milestoneRepo *repository.MilestoneRepository
	calendar      *Calendar
	events        *recordingPublisher
	charts        *ChartService
	milestones    *MilestoneService
	skills        *SkillService
	logs          *PracticeLogService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.OpenTestDB(t)

	env := &testEnv{
		skillRepo:     repository.NewSkillRepository(db),
		logRepo:       repository.NewPracticeLogRepository(db),
		milestoneRepo: repository.NewMilestoneRepository(db),
		calendar:      FixedCalendar(time.UTC, testNow),
		events:        &recordingPublisher{},
	}
	env.charts = NewChartService(env.logRepo, env.calendar, time.Minute, nil)
	env.milestones = NewMilestoneService(env.skillRepo, env.logRepo, env.milestoneRepo, env.calendar, env.events, nil)
	env.skills = NewSkillService(env.skillRepo, env.logRepo, env.milestoneRepo, env.charts)
	env.logs = NewPracticeLogService(env.skillRepo, env.logRepo, env.milestones, env.charts, env.calendar, env.events, nil)
	return env
}

func (e *testEnv) seedSkill(t *testing.T, userID, name string) *schema.Skill {
	t.Helper()
	skill := schema.NewSkill(userID, name)
	require.NoError(t, e.skillRepo.Create(context.Background(), skill))
	return skill
}

// seedMinutes 直接写入存储，绕过输入校验（用于构造大额累计时长）
func (e *testEnv) seedMinutes(t *testing.T, skillID int64, date string, minutes int) {
	t.Helper()
	require.NoError(t, e.logRepo.Create(context.Background(), &schema.PracticeLog{
		SkillID:      skillID,
		PracticeDate: date,
		Minutes:      minutes,
	}))
}
