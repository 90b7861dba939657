package repository

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"contentboard/internal/model"
	"contentboard/internal/schedule"
	"contentboard/pkg/config"
	"contentboard/pkg/metrics"
)

// TaskRepository stores content tasks in a MongoDB collection.
type TaskRepository struct {
	coll         *mongo.Collection
	loc          *time.Location
	pollInterval time.Duration
	watch        bool
	logger       *zap.Logger
}

func NewTaskRepository(db *mongo.Database, cfg config.MongoConfig, loc *time.Location, logger *zap.Logger) *TaskRepository {
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 5 * time.Second
	}
	return &TaskRepository{
		coll:         db.Collection(cfg.TasksCollection),
		loc:          loc,
		pollInterval: poll,
		watch:        !cfg.DisableChangeWatch,
		logger:       logger,
	}
}

// activeFilter matches documents unless isActive is explicitly false.
func activeFilter(filter schedule.TaskFilter) bson.M {
	if filter.ActiveOnly {
		return bson.M{"isActive": bson.M{"$ne": false}}
	}
	return bson.M{}
}

// taskObjectID resolves an id to the stored _id. Ids that are not ObjectID
// hex are matched as plain strings.
func taskObjectID(id string) interface{} {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

func (r *TaskRepository) List(ctx context.Context, filter schedule.TaskFilter) ([]model.Task, error) {
	r.logger.Debug("Listing tasks", zap.Bool("active_only", filter.ActiveOnly))
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("find", "mongo", time.Since(start)) }()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.coll.Find(ctx, activeFilter(filter), opts)
	if err != nil {
		r.logger.Error("Failed to query tasks", zap.Error(err))
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer cursor.Close(ctx)

	tasks := []model.Task{}
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			r.logger.Warn("Skipping undecodable task document", zap.Error(err))
			continue
		}
		tasks = append(tasks, model.NormalizeTaskDocument(doc, r.loc))
	}
	if err := cursor.Err(); err != nil {
		r.logger.Error("Task cursor failed", zap.Error(err))
		return nil, fmt.Errorf("failed to read tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) Get(ctx context.Context, id string) (*model.Task, error) {
	r.logger.Debug("Getting task", zap.String("task_id", id))
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("find_one", "mongo", time.Since(start)) }()

	var doc bson.M
	err := r.coll.FindOne(ctx, bson.M{"_id": taskObjectID(id)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("task %s: %w", id, schedule.ErrTaskNotFound)
		}
		r.logger.Error("Failed to get task", zap.String("task_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	task := model.NormalizeTaskDocument(doc, r.loc)
	return &task, nil
}

func (r *TaskRepository) Insert(ctx context.Context, task *model.Task) (string, error) {
	r.logger.Debug("Inserting task",
		zap.String("type", task.Type),
		zap.Strings("responsible_ids", task.ResponsibleIDs),
	)
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("insert", "mongo", time.Since(start)) }()

	oid := primitive.NewObjectID()
	doc := taskDocument(task)
	doc["_id"] = oid
	doc["individualStatus"] = individualStatusDocument(task.IndividualStatus)
	doc["isActive"] = task.IsActive
	doc["createdAt"] = task.CreatedAt

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		r.logger.Error("Failed to insert task", zap.Error(err))
		return "", fmt.Errorf("failed to insert task: %w", err)
	}

	r.logger.Info("Task inserted successfully", zap.String("task_id", oid.Hex()))
	return oid.Hex(), nil
}

// Replace writes the form-editable fields with $set, so per-user statuses
// written concurrently are never overwritten.
func (r *TaskRepository) Replace(ctx context.Context, task *model.Task) error {
	r.logger.Debug("Replacing task", zap.String("task_id", task.ID))
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("update", "mongo", time.Since(start)) }()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": taskObjectID(task.ID)},
		bson.M{"$set": taskDocument(task)},
	)
	if err != nil {
		r.logger.Error("Failed to replace task", zap.String("task_id", task.ID), zap.Error(err))
		return fmt.Errorf("failed to replace task: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("task %s: %w", task.ID, schedule.ErrTaskNotFound)
	}
	return nil
}

// UpdateField sets a single field path, plus updatedAt.
func (r *TaskRepository) UpdateField(ctx context.Context, id, path string, value interface{}) error {
	r.logger.Debug("Updating task field", zap.String("task_id", id), zap.String("path", path))
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("update", "mongo", time.Since(start)) }()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": taskObjectID(id)},
		fieldUpdate(path, value, time.Now()),
	)
	if err != nil {
		r.logger.Error("Failed to update task field",
			zap.String("task_id", id),
			zap.String("path", path),
			zap.Error(err),
		)
		return fmt.Errorf("failed to update %s: %w", path, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("task %s: %w", id, schedule.ErrTaskNotFound)
	}

	r.logger.Info("Task field updated", zap.String("task_id", id), zap.String("path", path))
	return nil
}

func fieldUpdate(path string, value interface{}, now time.Time) bson.M {
	return bson.M{"$set": bson.M{path: value, "updatedAt": now}}
}

// Subscribe emits the task list once, then after every change. It follows a
// change stream when the server supports one and polls otherwise.
func (r *TaskRepository) Subscribe(ctx context.Context, filter schedule.TaskFilter) (<-chan []model.Task, error) {
	initial, err := r.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := make(chan []model.Task, 1)
	out <- initial

	go func() {
		defer close(out)
		last := initial

		if r.watch {
			if err := r.followChanges(ctx, filter, out, &last); err != nil && ctx.Err() == nil {
				r.logger.Warn("Change stream unavailable, polling for task changes",
					zap.Duration("interval", r.pollInterval),
					zap.Error(err),
				)
			}
		}
		if ctx.Err() == nil {
			r.poll(ctx, filter, out, &last)
		}
	}()

	return out, nil
}

func (r *TaskRepository) followChanges(ctx context.Context, filter schedule.TaskFilter, out chan<- []model.Task, last *[]model.Task) error {
	stream, err := r.coll.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return err
	}
	defer stream.Close(context.Background())

	r.logger.Info("Watching task collection for changes")
	for stream.Next(ctx) {
		if !r.reload(ctx, filter, out, last) {
			return ctx.Err()
		}
	}
	return stream.Err()
}

func (r *TaskRepository) poll(ctx context.Context, filter schedule.TaskFilter, out chan<- []model.Task, last *[]model.Task) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !r.reload(ctx, filter, out, last) {
				return
			}
		}
	}
}

// reload lists the tasks and emits them if they changed. It returns false
// once ctx is done.
func (r *TaskRepository) reload(ctx context.Context, filter schedule.TaskFilter, out chan<- []model.Task, last *[]model.Task) bool {
	tasks, err := r.List(ctx, filter)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		r.logger.Warn("Failed to reload tasks", zap.Error(err))
		return true
	}
	if reflect.DeepEqual(tasks, *last) {
		return true
	}
	*last = tasks

	select {
	case out <- tasks:
		return true
	case <-ctx.Done():
		return false
	}
}

// taskDocument holds the fields an edit form may change.
func taskDocument(t *model.Task) bson.M {
	doc := bson.M{
		"type":              t.Type,
		"platform":          stringList(t.Platforms),
		"format":            t.Format,
		"objective":         t.Objective,
		"audience":          t.Audience,
		"contentIdea":       t.ContentIdea,
		"recurrenceDays":    t.RecurrenceDays.Names(),
		"responsibleIds":    stringList(t.ResponsibleIDs),
		"responsibleEmails": stringList(t.ResponsibleEmails),
		"isGroupTask":       t.IsGroupTask,
		"status":            string(t.Status),
		"updatedAt":         t.UpdatedAt,
	}
	if t.PublishDate.IsZero() {
		doc["publishDate"] = nil
	} else {
		doc["publishDate"] = t.PublishDate.String()
	}
	return doc
}

func individualStatusDocument(m map[string]model.Status) bson.M {
	doc := bson.M{}
	for userID, st := range m {
		doc[userID] = string(st)
	}
	return doc
}

func stringList(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
