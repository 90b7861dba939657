package schedule

import (
	"context"
	"testing"
	"time"

	"contentboard/internal/model"
)

func TestBoardRunAppliesSnapshots(t *testing.T) {
	repo := newMemRepo(dated("t1", model.NewDate(2025, 1, 7), "A", model.StatusPlanned))
	board := NewBoard(nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- board.Run(ctx, repo) }()

	select {
	case <-board.Ready():
	case <-time.After(2 * time.Second):
		t.Fatalf("board never became ready")
	}

	tasks, v1 := board.Snapshot()
	if len(tasks) != 1 || v1 == 0 {
		t.Fatalf("unexpected first snapshot: %d tasks, version %d", len(tasks), v1)
	}

	if err := repo.UpdateField(ctx, "t1", "isActive", false); err != nil {
		t.Fatalf("update: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		tasks, v2 := board.Snapshot()
		if v2 > v1 {
			if len(tasks) != 0 {
				t.Fatalf("deactivated task still on board")
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("board never saw the update")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBoardRunRetriesFailedSubscribe(t *testing.T) {
	repo := newMemRepo(dated("t1", model.NewDate(2025, 1, 7), "A", model.StatusPlanned))
	repo.failSubscribe = 2
	board := NewBoard(nil)
	board.minBackoff = time.Millisecond
	board.maxBackoff = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- board.Run(ctx, repo) }()

	select {
	case <-board.Ready():
	case err := <-done:
		t.Fatalf("Run returned before subscribing: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatalf("board never became ready")
	}

	repo.mu.Lock()
	calls := repo.subscribeCalls
	repo.mu.Unlock()
	if calls != 3 {
		t.Fatalf("expected 3 subscribe calls, got %d", calls)
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBoardRunStopsWhileWaitingToRetry(t *testing.T) {
	repo := newMemRepo()
	repo.failSubscribe = 1
	board := NewBoard(nil)
	board.minBackoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- board.Run(ctx, repo) }()
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop on cancel")
	}
	if board.IsReady() {
		t.Fatalf("board must not be ready without a snapshot")
	}
}

func TestBoardRankInfoMemoized(t *testing.T) {
	calc := fixedCalc(time.Time{})
	board := NewBoard(nil)
	board.Apply(tasksFor("A", 3, 4))

	first := board.RankInfo(calc, weekOf6Jan, []string{"A"})
	_, v := board.Snapshot()
	if _, ok := board.ranks[rankKey{version: v, start: weekOf6Jan.Start.UnixNano(), end: weekOf6Jan.End.UnixNano(), candidates: "A"}]; !ok {
		t.Fatalf("ranking was not memoized")
	}
	if second := board.RankInfo(calc, weekOf6Jan, []string{"A"}); second.Score("A") != first.Score("A") {
		t.Fatalf("memoized ranking differs")
	}

	board.Apply(tasksFor("A", 4, 4))
	if len(board.ranks) != 0 {
		t.Fatalf("new snapshot must clear memoized rankings")
	}
	if got := board.RankInfo(calc, weekOf6Jan, []string{"A"}).Score("A"); got != MaxScore {
		t.Fatalf("ranking not recomputed after update, score %v", got)
	}
}
