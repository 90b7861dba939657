package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"contentboard/internal/model"
	"contentboard/pkg/config"
	"contentboard/pkg/metrics"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository reads profiles from the users collection. Profiles are
// owned by the identity provider; this repository never writes them.
type UserRepository struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

func NewUserRepository(db *mongo.Database, cfg config.MongoConfig, logger *zap.Logger) *UserRepository {
	return &UserRepository{coll: db.Collection(cfg.UsersCollection), logger: logger}
}

func (r *UserRepository) Get(ctx context.Context, id string) (*model.User, error) {
	r.logger.Debug("Getting user", zap.String("user_id", id))
	var doc bson.M
	err := r.coll.FindOne(ctx, bson.M{"_id": bson.M{"$in": idCandidates([]string{id})}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user %s: %w", id, ErrUserNotFound)
		}
		r.logger.Error("Failed to get user", zap.String("user_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u := userFromDocument(doc)
	return &u, nil
}

// ListByIDs returns the users found among ids; unknown ids are skipped.
func (r *UserRepository) ListByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	if len(ids) == 0 {
		return []model.User{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": idCandidates(ids)}})
}

func (r *UserRepository) List(ctx context.Context) ([]model.User, error) {
	return r.find(ctx, bson.M{})
}

func (r *UserRepository) find(ctx context.Context, filter bson.M) ([]model.User, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("find", "mongo", time.Since(start)) }()

	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to query users", zap.Error(err))
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer cursor.Close(ctx)

	users := []model.User{}
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			r.logger.Warn("Skipping undecodable user document", zap.Error(err))
			continue
		}
		users = append(users, userFromDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to read users: %w", err)
	}
	return users, nil
}

// idCandidates matches both ObjectID and plain string _id values.
func idCandidates(ids []string) bson.A {
	out := bson.A{}
	for _, id := range ids {
		out = append(out, id)
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			out = append(out, oid)
		}
	}
	return out
}

func userFromDocument(doc bson.M) model.User {
	u := model.User{
		Email: docString(doc, "email"),
		Name:  docString(doc, "name"),
		Role:  model.RoleMember,
	}
	switch id := doc["_id"].(type) {
	case primitive.ObjectID:
		u.ID = id.Hex()
	case string:
		u.ID = id
	}
	if u.ID == "" {
		u.ID = docString(doc, "uid")
	}
	if u.Name == "" {
		u.Name = docString(doc, "displayName")
	}
	if docString(doc, "role") == model.RoleAdmin {
		u.Role = model.RoleAdmin
	}
	return u
}

func docString(doc bson.M, key string) string {
	s, _ := doc[key].(string)
	return s
}
