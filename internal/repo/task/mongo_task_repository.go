package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mkrupp/taskapp/internal/domain"
	"github.com/mkrupp/taskapp/internal/infra/logging"
	mongo_ "github.com/mkrupp/taskapp/internal/repo/mongo"
)

type mongoTask struct {
	ID          string    `bson:"_id"`
	Description string    `bson:"description"`
	Completed   bool      `bson:"completed"`
	Owner       string    `bson:"owner"`
	CreatedAt   time.Time `bson:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

func (m mongoTask) toDomain() *domain.Task {
	return &domain.Task{
		ID:          m.ID,
		Description: m.Description,
		Completed:   m.Completed,
		Owner:       m.Owner,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// MongoTaskRepository implements Repository on a MongoDB "tasks" collection.
type MongoTaskRepository struct {
	db   *mongo_.DB
	coll *mongo.Collection
	log  logging.Logger
}

var _ Repository = (*MongoTaskRepository)(nil)

// MongoTaskRepositoryFactory creates a factory function that returns a new MongoTaskRepository.
func MongoTaskRepositoryFactory(db *mongo_.DB) RepositoryFactory {
	return func() (Repository, error) {
		return NewMongoTaskRepository(db), nil
	}
}

// NewMongoTaskRepository creates a new MongoTaskRepository on a connected database.
func NewMongoTaskRepository(db *mongo_.DB) *MongoTaskRepository {
	return &MongoTaskRepository{
		db:   db,
		coll: db.Collection(mongo_.TasksCollection),
		log:  logging.GetLogger("repo.task.mongo_task_repository"),
	}
}

// CreateTask implements Repository.CreateTask using MongoDB.
func (r *MongoTaskRepository) CreateTask(ctx context.Context, task *domain.Task) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	now := mongo_.Now()

	if _, err := r.coll.InsertOne(ctx, mongoTask{
		ID:          task.ID,
		Description: task.Description,
		Completed:   task.Completed,
		Owner:       task.Owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}

	task.CreatedAt = now
	task.UpdatedAt = now

	r.log.DebugContext(ctx, "create task", logging.Group("task", "id", task.ID, "owner", task.Owner))

	return nil
}

// ListTasks implements Repository.ListTasks using MongoDB.
func (r *MongoTaskRepository) ListTasks(
	ctx context.Context,
	owner string,
	query domain.TaskQuery,
) (_ []*domain.Task, err error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	filter := bson.M{"owner": owner}
	if query.Completed != nil {
		filter["completed"] = *query.Completed
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	if query.Skip > 0 {
		opts.SetSkip(query.Skip)
	}

	if query.Limit > 0 {
		opts.SetLimit(query.Limit)
	}

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}

	defer func() {
		err = errors.Join(err, cursor.Close(ctx))
	}()

	var docs []mongoTask
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}

	tasks := make([]*domain.Task, 0, len(docs))
	for _, doc := range docs {
		tasks = append(tasks, doc.toDomain())
	}

	return tasks, nil
}

// GetTask implements Repository.GetTask using MongoDB.
func (r *MongoTaskRepository) GetTask(ctx context.Context, owner, id string) (*domain.Task, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	var doc mongoTask
	if err := r.coll.FindOne(ctx, bson.M{"_id": id, "owner": owner}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			err = errors.Join(domain.ErrTaskNotFound, err)
		}

		return nil, fmt.Errorf("find task: %w", err)
	}

	return doc.toDomain(), nil
}

// UpdateTask implements Repository.UpdateTask using MongoDB.
func (r *MongoTaskRepository) UpdateTask(ctx context.Context, task *domain.Task) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	now := mongo_.Now()

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": task.ID, "owner": task.Owner}, bson.M{"$set": bson.M{
		"description": task.Description,
		"completed":   task.Completed,
		"updatedAt":   now,
	}})
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}

	if res.MatchedCount == 0 {
		return domain.ErrTaskNotFound
	}

	task.UpdatedAt = now

	r.log.DebugContext(ctx, "update task", logging.Group("task", "id", task.ID, "owner", task.Owner))

	return nil
}

// DeleteTask implements Repository.DeleteTask using MongoDB.
func (r *MongoTaskRepository) DeleteTask(ctx context.Context, owner, id string) (*domain.Task, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	var doc mongoTask
	if err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": id, "owner": owner}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			err = errors.Join(domain.ErrTaskNotFound, err)
		}

		return nil, fmt.Errorf("delete task: %w", err)
	}

	r.log.DebugContext(ctx, "delete task", logging.Group("task", "id", id, "owner", owner))

	return doc.toDomain(), nil
}

// DeleteTasksByOwner implements Repository.DeleteTasksByOwner using MongoDB.
func (r *MongoTaskRepository) DeleteTasksByOwner(ctx context.Context, owner string) (int64, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	res, err := r.coll.DeleteMany(ctx, bson.M{"owner": owner})
	if err != nil {
		return 0, fmt.Errorf("delete tasks: %w", err)
	}

	r.log.DebugContext(ctx, "delete tasks by owner", logging.Group("task", "owner", owner, "count", res.DeletedCount))

	return res.DeletedCount, nil
}

// Close implements Repository.Close by disconnecting the shared client.
func (r *MongoTaskRepository) Close() error {
	return r.db.Close()
}
