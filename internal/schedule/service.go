package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	contracts "contentboard/contracts/mq"
	"contentboard/internal/model"
	"contentboard/pkg/logger"
	"contentboard/pkg/metrics"
	"contentboard/pkg/mq"
	"contentboard/pkg/trace"
)

const (
	PeriodWeek  = "week"
	PeriodMonth = "month"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID string
	Admin  bool
}

// TaskInput is the editable part of a task, as submitted by the admin form.
type TaskInput struct {
	Type              string   `json:"type"`
	Platforms         []string `json:"platform"`
	Format            string   `json:"format"`
	Objective         string   `json:"objective"`
	Audience          string   `json:"audience"`
	ContentIdea       string   `json:"contentIdea"`
	PublishDate       string   `json:"publishDate"`
	RecurrenceDays    []string `json:"recurrenceDays"`
	ResponsibleIDs    []string `json:"responsibleIds"`
	ResponsibleEmails []string `json:"responsibleEmails"`
	IsGroupTask       bool     `json:"isGroupTask"`
	Status            string   `json:"status"`
}

// TaskView is a task as seen by one viewer.
type TaskView struct {
	model.Task
	EffectiveStatus model.Status `json:"effectiveStatus"`
	Locked          bool         `json:"locked"`
	LockDeadline    *time.Time   `json:"lockDeadline,omitempty"`
}

// ListQuery filters List. A zero Date lists every day.
type ListQuery struct {
	Date model.Date
	Mine bool
}

// CalendarMonth maps each day of a month to the ids of tasks occurring on it.
type CalendarMonth struct {
	Year  int                 `json:"year"`
	Month time.Month          `json:"month"`
	Days  map[string][]string `json:"days"`
}

type Service struct {
	repo      TaskRepository
	users     UserDirectory
	board     *Board
	calc      *Calculator
	publisher mq.EventPublisher
	logger    *zap.Logger
}

// NewService wires the schedule operations. users and publisher may be nil.
func NewService(
	repo TaskRepository,
	users UserDirectory,
	board *Board,
	calc *Calculator,
	publisher mq.EventPublisher,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if board == nil {
		board = NewBoard(logger)
	}
	return &Service{
		repo:      repo,
		users:     users,
		board:     board,
		calc:      calc,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *Service) Calculator() *Calculator { return s.calc }

// tasks reads the board, falling back to the store until the first snapshot.
func (s *Service) tasks(ctx context.Context) ([]model.Task, error) {
	if s.board.IsReady() {
		tasks, _ := s.board.Snapshot()
		return tasks, nil
	}
	return s.repo.List(ctx, TaskFilter{ActiveOnly: true})
}

func (s *Service) view(t *model.Task, viewerID string, now time.Time) TaskView {
	v := TaskView{
		Task:            *t,
		EffectiveStatus: EffectiveStatus(t, viewerID),
	}
	if deadline, ok := s.calc.TaskLockDeadline(t); ok {
		v.LockDeadline = &deadline
		v.Locked = now.After(deadline)
	}
	return v
}

// List returns active tasks, optionally only those on q.Date or assigned to viewer.
func (s *Service) List(ctx context.Context, viewer Actor, q ListQuery) ([]TaskView, error) {
	tasks, err := s.tasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	now := s.calc.Now()
	views := make([]TaskView, 0, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		if !t.IsActive {
			continue
		}
		if q.Mine && !t.IsResponsible(viewer.UserID) {
			continue
		}
		if !q.Date.IsZero() && !s.calc.OccursOn(t, q.Date) {
			continue
		}
		views = append(views, s.view(t, viewer.UserID, now))
	}
	return views, nil
}

func (s *Service) Get(ctx context.Context, viewer Actor, id string) (*TaskView, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	v := s.view(t, viewer.UserID, s.calc.Now())
	return &v, nil
}

// Create validates input, stores a new active task and announces it on the
// bus. A failed announcement is logged; the stored task is kept.
func (s *Service) Create(ctx context.Context, actor Actor, in TaskInput) (*model.Task, error) {
	log := logger.WithTrace(ctx, s.logger)

	task, err := in.toTask()
	if err != nil {
		return nil, err
	}
	task.IsActive = true
	task.CreatedAt = s.calc.Now()
	task.UpdatedAt = task.CreatedAt
	task.IndividualStatus = make(map[string]model.Status)

	id, err := s.repo.Insert(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}
	task.ID = id

	log.Info("Task created",
		zap.String("task_id", id),
		zap.String("created_by", actor.UserID),
		zap.Strings("responsible_ids", task.ResponsibleIDs),
	)

	s.publishCreated(ctx, task)
	return task, nil
}

func (s *Service) publishCreated(ctx context.Context, task *model.Task) {
	if s.publisher == nil {
		return
	}
	payload := contracts.ScheduleCreatedPayload{
		TaskID:            task.ID,
		Type:              task.Type,
		Platforms:         task.Platforms,
		Format:            task.Format,
		PublishDate:       task.PublishDate.String(),
		ContentIdea:       task.ContentIdea,
		ResponsibleIDs:    task.ResponsibleIDs,
		ResponsibleEmails: task.ResponsibleEmails,
		CreatedAt:         task.CreatedAt,
		TraceID:           trace.FromContext(ctx),
	}
	if !task.RecurrenceDays.Empty() {
		payload.RecurrenceDays = task.RecurrenceDays.Names()
	}

	if err := s.publisher.PublishWithContext(ctx, mq.RoutingScheduleCreated, payload); err != nil {
		logger.WithTrace(ctx, s.logger).Error("Failed to publish schedule.created",
			zap.String("task_id", task.ID),
			zap.Error(err),
		)
	}
}

// Update rewrites the editable fields of an existing task.
func (s *Service) Update(ctx context.Context, actor Actor, id string, in TaskInput) (*model.Task, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := in.toTask()
	if err != nil {
		return nil, err
	}
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	updated.IsActive = existing.IsActive
	updated.IndividualStatus = existing.IndividualStatus
	if strings.TrimSpace(in.Status) == "" {
		updated.Status = existing.Status
	}
	updated.UpdatedAt = s.calc.Now()

	if err := s.repo.Replace(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	logger.WithTrace(ctx, s.logger).Info("Task updated",
		zap.String("task_id", id),
		zap.String("updated_by", actor.UserID),
	)
	return updated, nil
}

// Deactivate hides a task; tasks are never hard-deleted.
func (s *Service) Deactivate(ctx context.Context, actor Actor, id string) error {
	if err := s.repo.UpdateField(ctx, id, "isActive", false); err != nil {
		return err
	}
	logger.WithTrace(ctx, s.logger).Info("Task deactivated",
		zap.String("task_id", id),
		zap.String("deactivated_by", actor.UserID),
	)
	return nil
}

// ChangeStatus sets the status of task id for a user. Members may only change
// their own entry on tasks they are responsible for, before the lock deadline.
// Admins may target any responsible user and are not bound by the lock.
func (s *Service) ChangeStatus(ctx context.Context, actor Actor, id, status, targetUserID string) (*TaskView, error) {
	log := logger.WithTrace(ctx, s.logger)

	st, err := model.ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStatus, err)
	}

	task, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !task.IsActive {
		return nil, fmt.Errorf("task %s is inactive: %w", id, ErrTaskNotFound)
	}

	userID := actor.UserID
	if targetUserID != "" && targetUserID != actor.UserID {
		if !actor.Admin {
			return nil, fmt.Errorf("%w: cannot change another user's status", ErrNotResponsible)
		}
		userID = targetUserID
	}

	now := s.calc.Now()
	if !actor.Admin {
		if !task.IsResponsible(userID) {
			return nil, ErrNotResponsible
		}
		if s.calc.IsLocked(task, now) {
			return nil, ErrTaskLocked
		}
	} else if !task.IsGroupTask && !task.IsResponsible(userID) {
		return nil, fmt.Errorf("%w: %s", ErrNotResponsible, userID)
	}

	update, err := SetStatus(task, st, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateField(ctx, id, update.Path, update.Value); err != nil {
		log.Error("Failed to write status", zap.String("task_id", id), zap.String("path", update.Path), zap.Error(err))
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	scope := "individual"
	if task.IsGroupTask {
		scope = "group"
	}
	metrics.IncrementStatusChange(string(st), scope)
	log.Info("Task status changed",
		zap.String("task_id", id),
		zap.String("user_id", userID),
		zap.String("status", string(st)),
		zap.String("scope", scope),
	)

	v := s.view(task, userID, now)
	return &v, nil
}

// Calendar lists, for each day of the month, the active tasks occurring on it.
func (s *Service) Calendar(ctx context.Context, viewer Actor, year int, month time.Month, mine bool) (*CalendarMonth, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("%w: month %d", ErrInvalidPeriod, month)
	}
	tasks, err := s.tasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	from := model.NewDate(year, month, 1)
	to := model.DateOf(time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC))

	cal := &CalendarMonth{Year: year, Month: month, Days: make(map[string][]string)}
	for i := range tasks {
		t := &tasks[i]
		if !t.IsActive || (mine && !t.IsResponsible(viewer.UserID)) {
			continue
		}
		for _, d := range OccurrencesBetween(t.Schedule(s.calc.Location()), from, to) {
			key := d.String()
			cal.Days[key] = append(cal.Days[key], t.ID)
		}
	}
	return cal, nil
}

// Interval resolves a ranking period name against the current time.
func (s *Service) Interval(period string) (Interval, error) {
	now := s.calc.Now()
	switch period {
	case "", PeriodWeek:
		return s.calc.CurrentCycleInterval(now), nil
	case PeriodMonth:
		return s.calc.MonthInterval(now), nil
	}
	return Interval{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
}

// Rankings scores every known user over the named period.
func (s *Service) Rankings(ctx context.Context, period string) (*Ranking, error) {
	iv, err := s.Interval(period)
	if err != nil {
		return nil, err
	}
	return s.RankingFor(ctx, iv)
}

// RankingFor scores every known user over iv. Candidates are the users in the
// directory plus anyone responsible for an active task.
func (s *Service) RankingFor(ctx context.Context, iv Interval) (*Ranking, error) {
	tasks, err := s.tasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	candidates := s.candidates(ctx, tasks)

	var r Ranking
	if s.board.IsReady() {
		r = s.board.RankInfo(s.calc, iv, candidates)
	} else {
		r = s.calc.RankInfo(tasks, iv, candidates)
	}
	return &r, nil
}

func (s *Service) candidates(ctx context.Context, tasks []model.Task) []string {
	set := make(map[string]struct{})
	if s.users != nil {
		users, err := s.users.List(ctx)
		if err != nil {
			logger.WithTrace(ctx, s.logger).Warn("Failed to list users, ranking task assignees only", zap.Error(err))
		}
		for _, u := range users {
			set[u.ID] = struct{}{}
		}
	}
	for i := range tasks {
		if !tasks[i].IsActive {
			continue
		}
		for _, id := range tasks[i].ResponsibleIDs {
			set[id] = struct{}{}
		}
	}

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Cycle returns the current weekly review cycle.
func (s *Service) Cycle() Interval {
	return s.calc.CurrentCycleInterval(s.calc.Now())
}

func (in TaskInput) toTask() (*model.Task, error) {
	t := &model.Task{
		Type:              strings.TrimSpace(in.Type),
		Platforms:         trimAll(in.Platforms),
		Format:            strings.TrimSpace(in.Format),
		Objective:         strings.TrimSpace(in.Objective),
		Audience:          strings.TrimSpace(in.Audience),
		ContentIdea:       strings.TrimSpace(in.ContentIdea),
		ResponsibleIDs:    trimAll(in.ResponsibleIDs),
		ResponsibleEmails: trimAll(in.ResponsibleEmails),
		IsGroupTask:       in.IsGroupTask,
		Status:            model.StatusPlanned,
	}

	var problems []string
	if t.Type == "" {
		problems = append(problems, "type is required")
	}
	if len(t.ResponsibleIDs) == 0 {
		problems = append(problems, "at least one responsible user is required")
	}

	if raw := strings.TrimSpace(in.PublishDate); raw != "" {
		d, err := model.ParseDate(raw)
		if err != nil {
			problems = append(problems, err.Error())
		}
		t.PublishDate = d
	}

	days, unknown := model.ParseWeekdaySet(in.RecurrenceDays)
	if len(unknown) > 0 {
		problems = append(problems, "unknown recurrence days: "+strings.Join(unknown, ", "))
	}
	t.RecurrenceDays = days

	if t.PublishDate.IsZero() && t.RecurrenceDays.Empty() && len(unknown) == 0 && strings.TrimSpace(in.PublishDate) == "" {
		problems = append(problems, "publishDate or recurrenceDays is required")
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTask, strings.Join(problems, "; "))
	}

	if raw := strings.TrimSpace(in.Status); raw != "" {
		st, err := model.ParseStatus(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidStatus, err)
		}
		t.Status = st
	}
	return t, nil
}

func trimAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// IsClientError reports whether err is caused by the request rather than the store.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidTask) || errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidPeriod) || errors.Is(err, ErrNotResponsible) ||
		errors.Is(err, ErrTaskLocked) || errors.Is(err, ErrTaskNotFound)
}
