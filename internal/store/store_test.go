package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/amcq/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "amcq.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestSettingsDefaultsAndRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	got, err := st.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if got.YearMin != 2000 || got.YearMax != 2020 || len(got.Levels) != 4 {
		t.Fatalf("unexpected defaults: %+v", got)
	}

	in := model.Settings{
		Levels:         []model.Level{model.AIME},
		YearMin:        1995,
		YearMax:        1990,
		ProblemMin:     1,
		ProblemMax:     25,
		AIMEProblemMin: 9,
		AIMEProblemMax: 5,
		TimerMinutes:   3,
	}
	saved, err := st.SaveSettings(ctx, in)
	if err != nil {
		t.Fatalf("save settings: %v", err)
	}
	if saved.YearMin != 1990 || saved.AIMEProblemMin != 5 {
		t.Fatalf("expected clamped ranges, got %+v", saved)
	}
	loaded, err := st.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("reload settings: %v", err)
	}
	if loaded.YearMin != 1990 || loaded.YearMax != 1990 || loaded.TimerMinutes != 3 {
		t.Fatalf("unexpected reloaded settings: %+v", loaded)
	}
	if len(loaded.Levels) != 1 || loaded.Levels[0] != model.AIME {
		t.Fatalf("unexpected levels: %+v", loaded.Levels)
	}
}

func TestLoadSettingsAcceptsLegacyLevelNames(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	legacy := `{"levels":["8","12","AIME"],"yearMin":2001,"yearMax":2003,"problemMin":1,"problemMax":25,"aimeProblemMin":1,"aimeProblemMax":15,"timerMinutes":0}`
	if err := st.SetString(ctx, KeySettings, legacy); err != nil {
		t.Fatalf("set settings: %v", err)
	}
	got, err := st.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	want := []model.Level{model.AMC8, model.AMC12, model.AIME}
	if len(got.Levels) != len(want) {
		t.Fatalf("expected %d levels, got %+v", len(want), got.Levels)
	}
	for i := range want {
		if got.Levels[i] != want[i] {
			t.Fatalf("level %d: expected %s, got %s", i, want[i], got.Levels[i])
		}
	}
}

func TestLoadSettingsCorruptFallsBack(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	if err := st.SetString(ctx, KeySettings, "{not json"); err != nil {
		t.Fatalf("set settings: %v", err)
	}
	got, err := st.LoadSettings(ctx)
	if err == nil {
		t.Fatalf("expected decode error")
	}
	if got.YearMin != model.DefaultSettings().YearMin {
		t.Fatalf("expected defaults on decode error, got %+v", got)
	}
}

func TestStreakRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	n, err := st.Streak(ctx)
	if err != nil || n != 0 {
		t.Fatalf("expected empty streak 0, got %d (%v)", n, err)
	}
	if err := st.SetStreak(ctx, 7); err != nil {
		t.Fatalf("set streak: %v", err)
	}
	raw, ok, err := st.GetString(ctx, KeyStreak)
	if err != nil || !ok || raw != "7" {
		t.Fatalf("expected stringified streak, got %q ok=%v err=%v", raw, ok, err)
	}
	n, err = st.Streak(ctx)
	if err != nil || n != 7 {
		t.Fatalf("expected 7, got %d (%v)", n, err)
	}
}

func TestProgressOverwrite(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	id := "2010_AMC_10A_5"
	if err := st.SetProgress(ctx, id, true); err != nil {
		t.Fatalf("set progress: %v", err)
	}
	if err := st.SetProgress(ctx, id, false); err != nil {
		t.Fatalf("set progress: %v", err)
	}
	progress, err := st.Progress(ctx)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if len(progress) != 1 {
		t.Fatalf("expected one entry, got %d", len(progress))
	}
	if progress[id] {
		t.Fatalf("expected latest value false")
	}
}

func TestListProgressFilters(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	ids := []string{"2010_AMC_10A_5", "2010_AMC_12B_3", "2010_AIME_I_4", "2011_AMC_10B_1", "1990_AIME_2"}
	for _, id := range ids {
		if err := st.SetProgress(ctx, id, true); err != nil {
			t.Fatalf("set progress: %v", err)
		}
	}

	byYear, err := st.ListProgress(ctx, model.ProgressFilter{Year: 2010})
	if err != nil {
		t.Fatalf("list progress: %v", err)
	}
	if len(byYear) != 3 {
		t.Fatalf("expected 3 entries for 2010, got %d", len(byYear))
	}

	amc10, err := st.ListProgress(ctx, model.ProgressFilter{Level: model.AMC10})
	if err != nil {
		t.Fatalf("list progress: %v", err)
	}
	if len(amc10) != 2 {
		t.Fatalf("expected 2 AMC10 entries, got %+v", amc10)
	}

	aime, err := st.ListProgress(ctx, model.ProgressFilter{Level: model.AIME})
	if err != nil {
		t.Fatalf("list progress: %v", err)
	}
	if len(aime) != 2 {
		t.Fatalf("expected 2 AIME entries, got %+v", aime)
	}

	if err := st.ResetProgress(ctx); err != nil {
		t.Fatalf("reset progress: %v", err)
	}
	all, err := st.Progress(ctx)
	if err != nil || len(all) != 0 {
		t.Fatalf("expected empty progress after reset, got %d (%v)", len(all), err)
	}
}

func TestInsertAndListTests(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, level := range []model.Level{model.AMC10, model.AIME, model.AMC10} {
		rec := model.TestRecord{
			ID:        []string{"a", "b", "c"}[i],
			Level:     level,
			Score:     float64(i + 1),
			MaxScore:  37.5,
			StartedAt: base.Add(time.Duration(i) * time.Hour),
			EndedAt:   base.Add(time.Duration(i)*time.Hour + 30*time.Minute),
			Results: []model.TestResult{
				{Number: 1, ProblemID: "2010_AMC_10A_1", Answer: "A", CorrectAnswer: "A", Correct: true},
				{Number: 2, ProblemID: "2010_AMC_10A_2", Answer: "", CorrectAnswer: "C", Correct: false},
			},
		}
		if err := st.InsertTest(ctx, rec); err != nil {
			t.Fatalf("insert test: %v", err)
		}
	}

	all, err := st.ListTests(ctx, model.TestFilter{})
	if err != nil {
		t.Fatalf("list tests: %v", err)
	}
	if len(all) != 3 || all[0].ID != "a" || all[2].ID != "c" {
		t.Fatalf("expected oldest-first order, got %+v", all)
	}
	if len(all[1].Results) != 2 || !all[1].Results[0].Correct || all[1].Results[1].Correct {
		t.Fatalf("unexpected results: %+v", all[1].Results)
	}

	last, err := st.ListTests(ctx, model.TestFilter{Level: model.AMC10, Last: 1})
	if err != nil {
		t.Fatalf("list tests: %v", err)
	}
	if len(last) != 1 || last[0].ID != "c" {
		t.Fatalf("expected most recent AMC10 test, got %+v", last)
	}
}
