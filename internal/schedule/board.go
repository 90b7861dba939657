package schedule

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"contentboard/internal/model"
	"contentboard/pkg/metrics"
)

type rankKey struct {
	version    uint64
	start, end int64
	candidates string
}

// Board is a read-through cache of the active task list, refreshed from a
// repository subscription. Readers may see a slightly stale list.
type Board struct {
	mu      sync.RWMutex
	tasks   []model.Task
	version uint64
	ranks   map[rankKey]Ranking
	ready   chan struct{}
	once    sync.Once
	logger  *zap.Logger

	minBackoff time.Duration
	maxBackoff time.Duration
}

func NewBoard(logger *zap.Logger) *Board {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Board{
		ranks:  make(map[rankKey]Ranking),
		ready:  make(chan struct{}),
		logger: logger,

		minBackoff: time.Second,
		maxBackoff: 30 * time.Second,
	}
}

// Run subscribes to repo and applies every snapshot until ctx is done. A
// failed subscription or a closed feed is retried with exponential backoff.
func (b *Board) Run(ctx context.Context, repo TaskRepository) error {
	backoff := b.minBackoff
	for {
		feed, err := repo.Subscribe(ctx, TaskFilter{ActiveOnly: true})
		if err != nil {
			b.logger.Warn("Failed to subscribe to task feed, retrying",
				zap.Error(err),
				zap.Duration("backoff", backoff),
			)
			if err := b.wait(ctx, backoff); err != nil {
				return err
			}
			backoff = min(backoff*2, b.maxBackoff)
			continue
		}

		b.logger.Info("Board subscribed to task feed")
		backoff = b.minBackoff
		if err := b.consume(ctx, feed); err != nil {
			return err
		}

		b.logger.Warn("Task feed closed, resubscribing")
		if err := b.wait(ctx, backoff); err != nil {
			return err
		}
	}
}

// consume applies snapshots until the feed closes (nil) or ctx is done.
func (b *Board) consume(ctx context.Context, feed <-chan []model.Task) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tasks, ok := <-feed:
			if !ok {
				return ctx.Err()
			}
			b.Apply(tasks)
		}
	}
}

func (b *Board) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Apply replaces the cached list and invalidates memoized rankings.
func (b *Board) Apply(tasks []model.Task) {
	b.mu.Lock()
	b.tasks = tasks
	b.version++
	b.ranks = make(map[rankKey]Ranking)
	v := b.version
	b.mu.Unlock()

	b.once.Do(func() { close(b.ready) })
	metrics.SetBoardVersion(v)
	b.logger.Debug("Board updated", zap.Uint64("version", v), zap.Int("tasks", len(tasks)))
}

// Ready is closed after the first snapshot arrives.
func (b *Board) Ready() <-chan struct{} { return b.ready }

func (b *Board) IsReady() bool {
	select {
	case <-b.ready:
		return true
	default:
		return false
	}
}

// Snapshot returns the cached tasks and their version. The slice must not be
// modified.
func (b *Board) Snapshot() ([]model.Task, uint64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tasks, b.version
}

// RankInfo computes the ranking over the cached tasks, reusing the result
// until the next snapshot.
func (b *Board) RankInfo(calc *Calculator, iv Interval, candidates []string) Ranking {
	tasks, version := b.Snapshot()
	key := rankKey{
		version:    version,
		start:      iv.Start.UnixNano(),
		end:        iv.End.UnixNano(),
		candidates: strings.Join(candidates, "\x00"),
	}

	b.mu.RLock()
	r, ok := b.ranks[key]
	b.mu.RUnlock()
	if ok {
		return r
	}

	r = calc.RankInfo(tasks, iv, candidates)

	b.mu.Lock()
	if b.version == version {
		b.ranks[key] = r
	}
	b.mu.Unlock()
	return r
}
