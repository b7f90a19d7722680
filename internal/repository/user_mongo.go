package repository

import (
	"context"
	"time"

	"bolify/internal/database"
	"bolify/internal/models"
	"bolify/internal/observability"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var withoutPassword = bson.M{"passwordHash": 0}

type mongoUserRepository struct {
	coll *mongo.Collection
}

// NewMongoUserRepository returns a MongoDB-backed UserRepository.
func NewMongoUserRepository(store *database.MongoStore) UserRepository {
	return &mongoUserRepository{coll: store.Users()}
}

func (r *mongoUserRepository) span(ctx context.Context, method string) (context.Context, func(error)) {
	return observability.StartRepositorySpan(ctx, "mongodb", method, database.UsersCollection)
}

func (r *mongoUserRepository) Create(ctx context.Context, user *models.User) (err error) {
	ctx, finish := r.span(ctx, "Create")
	defer func() { finish(err) }()

	if user.ID == "" {
		user.ID = models.NewID()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	user.Email = models.NormalizeEmail(user.Email)

	_, err = r.coll.InsertOne(ctx, user)
	return translateMongoError(err)
}

func (r *mongoUserRepository) findOne(ctx context.Context, filter bson.M, withHash bool) (*models.User, error) {
	opts := options.FindOne()
	if !withHash {
		opts.SetProjection(withoutPassword)
	}
	var user models.User
	if err := r.coll.FindOne(ctx, filter, opts).Decode(&user); err != nil {
		return nil, translateMongoError(err)
	}
	return &user, nil
}

func (r *mongoUserRepository) GetByID(ctx context.Context, id string) (_ *models.User, err error) {
	ctx, finish := r.span(ctx, "GetByID")
	defer func() { finish(err) }()

	return r.findOne(ctx, bson.M{"_id": id}, false)
}

func (r *mongoUserRepository) GetByIDs(ctx context.Context, ids []string) (_ map[string]*models.User, err error) {
	out := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	ctx, finish := r.span(ctx, "GetByIDs")
	defer func() { finish(err) }()

	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetProjection(withoutPassword))
	if err != nil {
		return nil, err
	}
	var users []*models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (r *mongoUserRepository) GetByEmail(ctx context.Context, email string) (_ *models.User, err error) {
	ctx, finish := r.span(ctx, "GetByEmail")
	defer func() { finish(err) }()

	return r.findOne(ctx, bson.M{"email": models.NormalizeEmail(email)}, false)
}

func (r *mongoUserRepository) GetByEmailWithPassword(ctx context.Context, email string) (_ *models.User, err error) {
	ctx, finish := r.span(ctx, "GetByEmailWithPassword")
	defer func() { finish(err) }()

	return r.findOne(ctx, bson.M{"email": models.NormalizeEmail(email)}, true)
}

func (r *mongoUserRepository) ListByRole(ctx context.Context, role models.Role) (_ []*models.User, err error) {
	ctx, finish := r.span(ctx, "ListByRole")
	defer func() { finish(err) }()

	cur, err := r.coll.Find(ctx, bson.M{"role": role}, options.Find().
		SetProjection(withoutPassword).
		SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var users []*models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *mongoUserRepository) SetRole(ctx context.Context, id string, role models.Role) (err error) {
	ctx, finish := r.span(ctx, "SetRole")
	defer func() { finish(err) }()

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"role": role, "updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoUserRepository) Count(ctx context.Context) (n int64, err error) {
	ctx, finish := r.span(ctx, "Count")
	defer func() { finish(err) }()

	return r.coll.CountDocuments(ctx, bson.M{})
}
