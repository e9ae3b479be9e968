package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/heygw44/snapstock/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound          = errors.New("user not found")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateNickname = errors.New("nickname already taken")
)

// Repository defines persistence operations for users.
// FindByEmail and FindByID return soft-deleted users too; callers decide.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByNickname(ctx context.Context, nickname string) (bool, error)
	// Create assigns u.ID.
	Create(ctx context.Context, u *models.User) error
	// UpdateProfile stores u's nickname, password digest and updatedAt.
	UpdateProfile(ctx context.Context, u *models.User) error
	SoftDelete(ctx context.Context, id int64, at time.Time) error
}

// MongoRepository implements Repository using MongoDB. Numeric ids come from
// a counters collection.
type MongoRepository struct {
	col      *mongo.Collection
	counters *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{col: db.Collection("users"), counters: db.Collection("counters")}
}

// EnsureIndexes creates the unique email and nickname indexes.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_email")},
		{Keys: bson.D{{Key: "nickname", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_nickname")},
	})
	if err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}
	return nil
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (r *MongoRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoRepository) exists(ctx context.Context, filter bson.M) (bool, error) {
	n, err := r.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return n > 0, nil
}

func (r *MongoRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, bson.M{"email": email})
}

func (r *MongoRepository) ExistsByNickname(ctx context.Context, nickname string) (bool, error) {
	return r.exists(ctx, bson.M{"nickname": nickname})
}

func (r *MongoRepository) nextID(ctx context.Context) (int64, error) {
	var seq struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := r.counters.FindOneAndUpdate(ctx, bson.M{"_id": "users"}, bson.M{"$inc": bson.M{"seq": 1}}, opts).Decode(&seq)
	if err != nil {
		return 0, fmt.Errorf("next user id: %w", err)
	}
	return seq.Seq, nil
}

func (r *MongoRepository) Create(ctx context.Context, u *models.User) error {
	id, err := r.nextID(ctx)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	u.ID = id
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if _, err := r.col.InsertOne(ctx, u); err != nil {
		if dup := duplicateKey(err); dup != nil {
			return dup
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *MongoRepository) UpdateProfile(ctx context.Context, u *models.User) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": u.ID, "deletedAt": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"nickname": u.Nickname, "password": u.PasswordHash, "updatedAt": u.UpdatedAt.UTC()}},
	)
	if err != nil {
		if dup := duplicateKey(err); dup != nil {
			return dup
		}
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "deletedAt": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"deletedAt": at.UTC(), "updatedAt": at.UTC()}},
	)
	if err != nil {
		return fmt.Errorf("soft delete user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// duplicateKey maps a unique index violation to the sentinel of the field it
// guards, using the index name reported by the server. It returns nil for
// any other error.
func duplicateKey(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return nil
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if strings.Contains(e.Message, "uniq_nickname") {
				return ErrDuplicateNickname
			}
		}
		return ErrDuplicateEmail
	}
	if strings.Contains(err.Error(), "uniq_nickname") {
		return ErrDuplicateNickname
	}
	return ErrDuplicateEmail
}
