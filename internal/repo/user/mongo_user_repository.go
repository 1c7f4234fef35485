package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mkrupp/taskapp/internal/domain"
	"github.com/mkrupp/taskapp/internal/infra/logging"
	mongo_ "github.com/mkrupp/taskapp/internal/repo/mongo"
)

type mongoToken struct {
	Token string `bson:"token"`
}

type mongoUser struct {
	ID        string       `bson:"_id"`
	Name      string       `bson:"name"`
	Email     string       `bson:"email"`
	Age       int          `bson:"age"`
	Password  string       `bson:"password"`
	Tokens    []mongoToken `bson:"tokens"`
	Avatar    []byte       `bson:"avatar,omitempty"`
	CreatedAt time.Time    `bson:"createdAt"`
	UpdatedAt time.Time    `bson:"updatedAt"`
}

func toMongoUser(u *domain.User) mongoUser {
	tokens := make([]mongoToken, 0, len(u.Tokens))
	for _, t := range u.Tokens {
		tokens = append(tokens, mongoToken{Token: t})
	}

	return mongoUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Age:       u.Age,
		Password:  u.PasswordHash,
		Tokens:    tokens,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (m mongoUser) toDomain() *domain.User {
	tokens := make([]string, 0, len(m.Tokens))
	for _, t := range m.Tokens {
		tokens = append(tokens, t.Token)
	}

	return &domain.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		Age:          m.Age,
		PasswordHash: m.Password,
		Tokens:       tokens,
		Avatar:       m.Avatar,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// MongoUserRepository implements Repository on a MongoDB "users" collection.
type MongoUserRepository struct {
	db   *mongo_.DB
	coll *mongo.Collection
	log  logging.Logger
}

var _ Repository = (*MongoUserRepository)(nil)

// MongoUserRepositoryFactory creates a factory function that returns a new MongoUserRepository.
func MongoUserRepositoryFactory(db *mongo_.DB) RepositoryFactory {
	return func() (Repository, error) {
		return NewMongoUserRepository(db), nil
	}
}

// NewMongoUserRepository creates a new MongoUserRepository on a connected database.
func NewMongoUserRepository(db *mongo_.DB) *MongoUserRepository {
	return &MongoUserRepository{
		db:   db,
		coll: db.Collection(mongo_.UsersCollection),
		log:  logging.GetLogger("repo.user.mongo_user_repository"),
	}
}

// CreateUser implements Repository.CreateUser using MongoDB.
func (r *MongoUserRepository) CreateUser(ctx context.Context, user *domain.User) (err error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	now := mongo_.Now()

	doc := toMongoUser(user)
	doc.CreatedAt = now
	doc.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			err = errors.Join(domain.ErrDuplicateEmail, err)
		}

		return fmt.Errorf("insert user: %w", err)
	}

	user.CreatedAt = now
	user.UpdatedAt = now

	r.log.DebugContext(ctx, "create user", logging.Group("user", "id", user.ID))

	return nil
}

// GetUserByID implements Repository.GetUserByID using MongoDB.
func (r *MongoUserRepository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetUserByEmail implements Repository.GetUserByEmail using MongoDB.
func (r *MongoUserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	var doc mongoUser
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			err = errors.Join(domain.ErrUserNotFound, err)
		}

		return nil, fmt.Errorf("find user: %w", err)
	}

	return doc.toDomain(), nil
}

// UpdateUser implements Repository.UpdateUser using MongoDB.
// The document, token list included, is replaced atomically.
func (r *MongoUserRepository) UpdateUser(ctx context.Context, user *domain.User) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	now := mongo_.Now()

	doc := toMongoUser(user)
	doc.UpdatedAt = now

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": bson.M{
		"name":      doc.Name,
		"email":     doc.Email,
		"age":       doc.Age,
		"password":  doc.Password,
		"tokens":    doc.Tokens,
		"avatar":    doc.Avatar,
		"updatedAt": doc.UpdatedAt,
	}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			err = errors.Join(domain.ErrDuplicateEmail, err)
		}

		return fmt.Errorf("update user: %w", err)
	}

	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}

	user.UpdatedAt = now

	r.log.DebugContext(ctx, "update user", logging.Group("user", "id", user.ID))

	return nil
}

// DeleteUser implements Repository.DeleteUser using MongoDB.
func (r *MongoUserRepository) DeleteUser(ctx context.Context, id string) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if res.DeletedCount == 0 {
		return domain.ErrUserNotFound
	}

	r.log.DebugContext(ctx, "delete user", logging.Group("user", "id", id))

	return nil
}

// Close implements Repository.Close by disconnecting the shared client.
func (r *MongoUserRepository) Close() error {
	return r.db.Close()
}
