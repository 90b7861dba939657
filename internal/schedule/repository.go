package schedule

import (
	"context"

	"contentboard/internal/model"
)

// TaskFilter narrows the tasks a repository returns.
type TaskFilter struct {
	ActiveOnly bool
}

// TaskRepository is the document store holding content tasks. Get returns an
// error wrapping ErrTaskNotFound for unknown ids.
type TaskRepository interface {
	// Subscribe emits the full filtered task list on every change until ctx is done.
	Subscribe(ctx context.Context, filter TaskFilter) (<-chan []model.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]model.Task, error)
	Get(ctx context.Context, id string) (*model.Task, error)
	Insert(ctx context.Context, task *model.Task) (string, error)
	// Replace writes the editable fields of task, leaving per-user status alone.
	Replace(ctx context.Context, task *model.Task) error
	UpdateField(ctx context.Context, id string, path string, value interface{}) error
}

// UserDirectory reads profiles from the external user store.
type UserDirectory interface {
	List(ctx context.Context) ([]model.User, error)
}
