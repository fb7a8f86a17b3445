package repository

import (
	"context"
	"testing"

	"github.com/yuqie6/HoursTracker/internal/schema"
	"github.com/yuqie6/HoursTracker/internal/testutil"
	"gorm.io/gorm"
)

func seedSkill(t *testing.T, db *gorm.DB, userID, name string) *schema.Skill {
	t.Helper()
	skill := schema.NewSkill(userID, name)
	if err := NewSkillRepository(db).Create(context.Background(), skill); err != nil {
		t.Fatalf("seed skill: %v", err)
	}
	return skill
}

func TestPracticeLogRepositoryUniquePerDay(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewPracticeLogRepository(db)
	ctx := context.Background()
	skill := seedSkill(t, db, "alice", "Piano")

	if err := repo.Create(ctx, &schema.PracticeLog{SkillID: skill.ID, PracticeDate: "2024-01-05", Minutes: 30}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	err := repo.Create(ctx, &schema.PracticeLog{SkillID: skill.ID, PracticeDate: "2024-01-05", Minutes: 45})
	if err != ErrDuplicate {
		t.Fatalf("err=%v, want ErrDuplicate", err)
	}

	// 不同技能同一天不冲突
	other := seedSkill(t, db, "alice", "Go")
	if err := repo.Create(ctx, &schema.PracticeLog{SkillID: other.ID, PracticeDate: "2024-01-05", Minutes: 10}); err != nil {
		t.Fatalf("Create other skill error: %v", err)
	}
}

func TestPracticeLogRepositoryExistsOnDateExcludesSelf(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewPracticeLogRepository(db)
	ctx := context.Background()
	skill := seedSkill(t, db, "alice", "Piano")

	log := &schema.PracticeLog{SkillID: skill.ID, PracticeDate: "2024-01-05", Minutes: 30}
	if err := repo.Create(ctx, log); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	exists, err := repo.ExistsOnDate(ctx, skill.ID, "2024-01-05", 0)
	if err != nil || !exists {
		t.Fatalf("exists=%v err=%v, want true", exists, err)
	}
	exists, err = repo.ExistsOnDate(ctx, skill.ID, "2024-01-05", log.ID)
	if err != nil || exists {
		t.Fatalf("exists=%v err=%v, want false when excluding self", exists, err)
	}
}

func TestPracticeLogRepositoryUpdateAndStale(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewPracticeLogRepository(db)
	ctx := context.Background()
	skill := seedSkill(t, db, "alice", "Piano")

	a := &schema.PracticeLog{SkillID: skill.ID, PracticeDate: "2024-01-05", Minutes: 30}
	b := &schema.PracticeLog{SkillID: skill.ID, PracticeDate: "2024-01-06", Minutes: 30}
	_ = repo.Create(ctx, a)
	_ = repo.Create(ctx, b)

	b.PracticeDate = "2024-01-05"
	if err := repo.Update(ctx, b); err != ErrDuplicate {
		t.Fatalf("update onto taken date err=%v, want ErrDuplicate", err)
	}

	a.Minutes = 90
	a.Notes = "scales"
	if err := repo.Update(ctx, a); err != nil {
		t.Fatalf("Update error: %v", err)
	}
	got, _ := repo.GetByID(ctx, a.ID)
	if got == nil || got.Minutes != 90 || got.Notes != "scales" {
		t.Fatalf("got=%+v, want minutes 90", got)
	}

	if err := repo.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if err := repo.Update(ctx, a); err != ErrStaleWrite {
		t.Fatalf("update deleted err=%v, want ErrStaleWrite", err)
	}
}

func TestPracticeLogRepositoryOwnershipAndSums(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewPracticeLogRepository(db)
	ctx := context.Background()
	piano := seedSkill(t, db, "alice", "Piano")
	chess := seedSkill(t, db, "bob", "Chess")

	log := &schema.PracticeLog{SkillID: piano.ID, PracticeDate: "2024-01-05", Minutes: 30}
	_ = repo.Create(ctx, log)
	_ = repo.Create(ctx, &schema.PracticeLog{SkillID: piano.ID, PracticeDate: "2024-01-07", Minutes: 45})
	_ = repo.Create(ctx, &schema.PracticeLog{SkillID: chess.ID, PracticeDate: "2024-01-07", Minutes: 5})

	if got, _ := repo.GetOwned(ctx, "bob", log.ID); got != nil {
		t.Fatalf("log visible to non-owner")
	}
	if got, _ := repo.GetOwned(ctx, "alice", log.ID); got == nil {
		t.Fatalf("log not visible to owner")
	}

	total, err := repo.SumMinutes(ctx, piano.ID)
	if err != nil || total != 75 {
		t.Fatalf("SumMinutes=%d err=%v, want 75", total, err)
	}
	empty := seedSkill(t, db, "alice", "Empty")
	if total, _ := repo.SumMinutes(ctx, empty.ID); total != 0 {
		t.Fatalf("SumMinutes empty=%d, want 0", total)
	}

	sums, err := repo.SumMinutesBySkills(ctx, []int64{piano.ID, chess.ID, empty.ID})
	if err != nil {
		t.Fatalf("SumMinutesBySkills error: %v", err)
	}
	if sums[piano.ID] != 75 || sums[chess.ID] != 5 || sums[empty.ID] != 0 {
		t.Fatalf("sums=%v", sums)
	}

	page, err := repo.ListPage(ctx, piano.ID, 0, 1)
	if err != nil || len(page) != 1 || page[0].PracticeDate != "2024-01-07" {
		t.Fatalf("ListPage=%+v err=%v, want newest first", page, err)
	}
}

func TestPracticeLogRepositoryListBetween(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewPracticeLogRepository(db)
	ctx := context.Background()
	skill := seedSkill(t, db, "alice", "Piano")

	for _, d := range []string{"2023-12-31", "2024-01-01", "2024-01-15", "2024-01-31", "2024-02-01"} {
		if err := repo.Create(ctx, &schema.PracticeLog{SkillID: skill.ID, PracticeDate: d, Minutes: 10}); err != nil {
			t.Fatalf("Create %s error: %v", d, err)
		}
	}

	logs, err := repo.ListBetween(ctx, skill.ID, "2024-01-01", "2024-01-31")
	if err != nil {
		t.Fatalf("ListBetween error: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("len=%d, want 3 (inclusive bounds)", len(logs))
	}
	if logs[0].PracticeDate != "2024-01-01" || logs[2].PracticeDate != "2024-01-31" {
		t.Fatalf("order=%s..%s, want ascending", logs[0].PracticeDate, logs[2].PracticeDate)
	}

	if _, err := repo.ListBetween(ctx, skill.ID, "2024-02-01", "2024-01-01"); err == nil {
		t.Fatalf("reversed range should fail")
	}
}

func TestPracticeLogRepositoryRejectsDeletedSkill(t *testing.T) {
	db := testutil.OpenTestDB(t)
	skills := NewSkillRepository(db)
	logs := NewPracticeLogRepository(db)
	ctx := context.Background()
	skill := seedSkill(t, db, "alice", "Piano")
	other := seedSkill(t, db, "alice", "Chess")

	log := &schema.PracticeLog{SkillID: other.ID, PracticeDate: "2024-01-04", Minutes: 15}
	if err := logs.Create(ctx, log); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if err := skills.Delete(ctx, skill.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	err := logs.Create(ctx, &schema.PracticeLog{SkillID: skill.ID, PracticeDate: "2024-01-05", Minutes: 30})
	if err != ErrStaleWrite {
		t.Fatalf("create for deleted skill err=%v, want ErrStaleWrite", err)
	}
	log.SkillID = skill.ID
	if err := logs.Update(ctx, log); err != ErrStaleWrite {
		t.Fatalf("move to deleted skill err=%v, want ErrStaleWrite", err)
	}

	var orphans int64
	if err := db.Model(&schema.PracticeLog{}).Where("skill_id = ?", skill.ID).Count(&orphans).Error; err != nil {
		t.Fatalf("count error: %v", err)
	}
	if orphans != 0 {
		t.Fatalf("orphan logs=%d, want 0", orphans)
	}
}

func TestPracticeLogCascadesOnSkillRowDelete(t *testing.T) {
	db := testutil.OpenTestDB(t)
	logs := NewPracticeLogRepository(db)
	ctx := context.Background()
	skill := seedSkill(t, db, "alice", "Piano")
	if err := logs.Create(ctx, &schema.PracticeLog{SkillID: skill.ID, PracticeDate: "2024-01-05", Minutes: 30}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	// 绕过仓储的显式级联，只删技能行：由外键 ON DELETE CASCADE 清理
	if err := db.Exec("DELETE FROM skills WHERE id = ?", skill.ID).Error; err != nil {
		t.Fatalf("raw delete error: %v", err)
	}
	if n, _ := logs.CountBySkill(ctx, skill.ID); n != 0 {
		t.Fatalf("logs left=%d, want 0", n)
	}
}
