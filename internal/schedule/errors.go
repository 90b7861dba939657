package schedule

import "errors"

var (
	ErrTaskNotFound   = errors.New("task not found")
	ErrTaskLocked     = errors.New("task is locked for this cycle")
	ErrNotResponsible = errors.New("user is not responsible for this task")
	ErrInvalidStatus  = errors.New("invalid status")
	ErrInvalidTask    = errors.New("invalid task")
	ErrInvalidPeriod  = errors.New("invalid ranking period")
)
