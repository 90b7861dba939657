package schedule

import (
	"fmt"
	"testing"
	"time"

	"contentboard/internal/model"
)

var weekOf6Jan = Interval{Start: at(2025, 1, 6, 8, 0, 0), End: at(2025, 1, 13, 8, 0, 0)}

func dated(id string, d model.Date, owner string, status model.Status) model.Task {
	return model.Task{
		ID:               id,
		PublishDate:      d,
		ResponsibleIDs:   []string{owner},
		IsActive:         true,
		IndividualStatus: map[string]model.Status{owner: status},
	}
}

func tasksFor(owner string, done, total int) []model.Task {
	var tasks []model.Task
	for i := 0; i < total; i++ {
		st := model.StatusPlanned
		if i < done {
			st = model.StatusPublished
		}
		tasks = append(tasks, dated(fmt.Sprintf("%s-%d", owner, i), model.NewDate(2025, 1, 7), owner, st))
	}
	return tasks
}

func TestRankInfoScenario(t *testing.T) {
	calc := fixedCalc(time.Time{})
	tasks := append(tasksFor("A", 3, 4), tasksFor("B", 2, 4)...)

	if got := calc.ScoreForUser(tasks, "A", weekOf6Jan); got != 3.75 {
		t.Fatalf("score A = %v, want 3.75", got)
	}
	if got := calc.ScoreForUser(tasks, "B", weekOf6Jan); got != 2.5 {
		t.Fatalf("score B = %v, want 2.5", got)
	}

	r := calc.RankInfo(tasks, weekOf6Jan, []string{"A", "B"})
	if rank, ok := r.Rank("A"); !ok || rank != 1 {
		t.Fatalf("A rank = %d, %v; want 1", rank, ok)
	}
	if _, ok := r.Rank("B"); ok {
		t.Fatalf("B is below threshold and must be unranked")
	}
	if r.Standings[0].UserID != "A" || r.Standings[0].Medal != MedalGold {
		t.Fatalf("unexpected standings %+v", r.Standings)
	}
}

func TestScoreForUserNoTasks(t *testing.T) {
	calc := fixedCalc(time.Time{})
	if got := calc.ScoreForUser(nil, "nobody", weekOf6Jan); got != 0 {
		t.Fatalf("score without tasks = %v, want 0", got)
	}
}

func TestScoreForUserIsMonotonic(t *testing.T) {
	calc := fixedCalc(time.Time{})
	tasks := tasksFor("A", 1, 5)
	prev := calc.ScoreForUser(tasks, "A", weekOf6Jan)
	for i := 0; i < 10; i++ {
		tasks = append(tasks, dated(fmt.Sprintf("extra-%d", i), model.NewDate(2025, 1, 8), "A", model.StatusPublished))
		got := calc.ScoreForUser(tasks, "A", weekOf6Jan)
		if got < prev {
			t.Fatalf("score decreased from %v to %v after adding a published task", prev, got)
		}
		if got < 0 || got > MaxScore {
			t.Fatalf("score %v out of range", got)
		}
		prev = got
	}
}

func TestScoreForUserScope(t *testing.T) {
	calc := fixedCalc(time.Time{})
	inactive := dated("inactive", model.NewDate(2025, 1, 7), "A", model.StatusPublished)
	inactive.IsActive = false
	outside := dated("outside", model.NewDate(2025, 1, 13), "A", model.StatusPublished)
	other := dated("other", model.NewDate(2025, 1, 7), "B", model.StatusPublished)
	pending := dated("pending", model.NewDate(2025, 1, 12), "A", model.StatusPlanned)

	tasks := []model.Task{inactive, outside, other, pending}
	if got := calc.ScoreForUser(tasks, "A", weekOf6Jan); got != 0 {
		t.Fatalf("only the pending task is in scope, score = %v", got)
	}
}

// Recurring tasks count toward every interval whether or not they occur in it.
func TestScoreForUserRecurringAlwaysInScope(t *testing.T) {
	calc := fixedCalc(time.Time{})
	rec := model.Task{
		ID:               "rec",
		RecurrenceDays:   model.NewWeekdaySet(time.Saturday),
		CreatedAt:        at(2026, 6, 1, 0, 0, 0), // created long after the interval
		ResponsibleIDs:   []string{"A"},
		IsActive:         true,
		IndividualStatus: map[string]model.Status{"A": model.StatusPublished},
	}
	if got := calc.ScoreForUser([]model.Task{rec}, "A", weekOf6Jan); got != MaxScore {
		t.Fatalf("recurring task should count, score = %v", got)
	}
}

func TestScoreForUserGroupTask(t *testing.T) {
	calc := fixedCalc(time.Time{})
	group := model.Task{
		PublishDate:    model.NewDate(2025, 1, 9),
		ResponsibleIDs: []string{"A", "B"},
		IsGroupTask:    true,
		Status:         model.StatusPublished,
		IsActive:       true,
	}
	tasks := []model.Task{group}
	if calc.ScoreForUser(tasks, "A", weekOf6Jan) != MaxScore || calc.ScoreForUser(tasks, "B", weekOf6Jan) != MaxScore {
		t.Fatalf("group status must count for every responsible user")
	}
}

func TestRankInfoTiesShareRank(t *testing.T) {
	calc := fixedCalc(time.Time{})
	var tasks []model.Task
	tasks = append(tasks, tasksFor("A", 4, 4)...) // 5.0
	tasks = append(tasks, tasksFor("B", 4, 4)...) // 5.0
	tasks = append(tasks, tasksFor("C", 3, 4)...) // 3.75
	tasks = append(tasks, tasksFor("D", 3, 5)...) // 3.0
	tasks = append(tasks, tasksFor("E", 4, 5)...) // 4.0

	r := calc.RankInfo(tasks, weekOf6Jan, []string{"D", "C", "B", "A", "E"})
	want := map[string]int{"A": 1, "B": 1, "E": 2, "C": 3}
	for user, rank := range want {
		if got, ok := r.Rank(user); !ok || got != rank {
			t.Fatalf("rank of %s = %d, %v; want %d", user, got, ok, rank)
		}
	}
	if _, ok := r.Rank("D"); ok {
		t.Fatalf("fourth distinct score must be unranked")
	}
	if r.Score("D") != 3.0 {
		t.Fatalf("score D = %v", r.Score("D"))
	}
}

func TestRankInfoInvariants(t *testing.T) {
	calc := fixedCalc(time.Time{})
	var tasks []model.Task
	var users []string
	for i := 0; i < 12; i++ {
		user := fmt.Sprintf("u%02d", i)
		users = append(users, user)
		tasks = append(tasks, tasksFor(user, i%7, 6)...)
	}

	r := calc.RankInfo(tasks, weekOf6Jan, users)
	ranked := make(map[float64]bool)
	for _, st := range r.Standings {
		if st.Score < RankThreshold && st.Rank != 0 {
			t.Fatalf("score %v below threshold got rank %d", st.Score, st.Rank)
		}
		if st.Rank != 0 {
			ranked[st.Score] = true
			if st.Medal != Medal(st.Rank) {
				t.Fatalf("medal %q does not match rank %d", st.Medal, st.Rank)
			}
		}
	}
	if len(ranked) > 3 {
		t.Fatalf("%d distinct scores ranked, want at most 3", len(ranked))
	}
	for i := 1; i < len(r.Standings); i++ {
		if r.Standings[i].Score > r.Standings[i-1].Score {
			t.Fatalf("standings not sorted by score")
		}
	}
}

func TestRankInfoDeduplicatesCandidates(t *testing.T) {
	calc := fixedCalc(time.Time{})
	r := calc.RankInfo(tasksFor("A", 1, 1), weekOf6Jan, []string{"A", "A", ""})
	if len(r.Standings) != 1 {
		t.Fatalf("expected one standing, got %+v", r.Standings)
	}
}
