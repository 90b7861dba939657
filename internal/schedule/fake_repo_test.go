package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"contentboard/internal/model"
)

type fieldWrite struct {
	id    string
	path  string
	value interface{}
}

// memRepo is an in-memory TaskRepository.
type memRepo struct {
	mu      sync.Mutex
	tasks   map[string]model.Task
	order   []string
	writes  []fieldWrite
	feed    chan []model.Task
	nextID  int
	failGet error

	// failSubscribe makes the next n Subscribe calls fail
	failSubscribe  int
	subscribeCalls int
}

func newMemRepo(tasks ...model.Task) *memRepo {
	r := &memRepo{tasks: make(map[string]model.Task)}
	for _, t := range tasks {
		r.tasks[t.ID] = t.Clone()
		r.order = append(r.order, t.ID)
	}
	return r
}

func (r *memRepo) Subscribe(ctx context.Context, filter TaskFilter) (<-chan []model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribeCalls++
	if r.failSubscribe > 0 {
		r.failSubscribe--
		return nil, errors.New("server selection timeout")
	}
	r.feed = make(chan []model.Task, 8)
	r.feed <- r.snapshotLocked(filter)
	return r.feed, nil
}

func (r *memRepo) publish() {
	if r.feed != nil {
		r.feed <- r.snapshotLocked(TaskFilter{ActiveOnly: true})
	}
}

func (r *memRepo) snapshotLocked(filter TaskFilter) []model.Task {
	out := make([]model.Task, 0, len(r.order))
	for _, id := range r.order {
		t := r.tasks[id]
		if filter.ActiveOnly && !t.IsActive {
			continue
		}
		out = append(out, t.Clone())
	}
	return out
}

func (r *memRepo) List(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked(filter), nil
}

func (r *memRepo) Get(ctx context.Context, id string) (*model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failGet != nil {
		return nil, r.failGet
	}
	t, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", id, ErrTaskNotFound)
	}
	c := t.Clone()
	return &c, nil
}

func (r *memRepo) Insert(ctx context.Context, task *model.Task) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := fmt.Sprintf("t%d", r.nextID)
	c := task.Clone()
	c.ID = id
	r.tasks[id] = c
	r.order = append(r.order, id)
	r.publish()
	return id, nil
}

func (r *memRepo) Replace(ctx context.Context, task *model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.tasks[task.ID]
	if !ok {
		return ErrTaskNotFound
	}
	c := task.Clone()
	c.IndividualStatus = old.IndividualStatus
	r.tasks[task.ID] = c
	r.publish()
	return nil
}

func (r *memRepo) UpdateField(ctx context.Context, id, path string, value interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return fmt.Errorf("update %s: %w", id, ErrTaskNotFound)
	}
	r.writes = append(r.writes, fieldWrite{id: id, path: path, value: value})

	switch {
	case path == FieldStatus:
		t.Status = model.Status(value.(string))
	case strings.HasPrefix(path, FieldIndividualStatus+"."):
		if t.IndividualStatus == nil {
			t.IndividualStatus = make(map[string]model.Status)
		}
		t.IndividualStatus[strings.TrimPrefix(path, FieldIndividualStatus+".")] = model.Status(value.(string))
	case path == "isActive":
		t.IsActive = value.(bool)
	default:
		return fmt.Errorf("unexpected path %q", path)
	}
	r.tasks[id] = t
	r.publish()
	return nil
}

type staticUsers []model.User

func (u staticUsers) List(ctx context.Context) ([]model.User, error) { return u, nil }

type recordedEvent struct {
	routingKey string
	payload    any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (p *fakePublisher) PublishWithContext(ctx context.Context, routingKey string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, recordedEvent{routingKey: routingKey, payload: payload})
	return nil
}
