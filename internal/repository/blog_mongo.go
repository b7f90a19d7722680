package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"bolify/internal/database"
	"bolify/internal/models"
	"bolify/internal/observability"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	blogDetailProjection = bson.M{"viewedBy": 0}
	blogListProjection   = bson.M{"viewedBy": 0, "comments": 0}
)

type mongoBlogRepository struct {
	coll *mongo.Collection
}

// NewMongoBlogRepository returns a MongoDB-backed BlogRepository. Interaction
// state lives inside the blog document, so every mutation is a single-document
// update.
func NewMongoBlogRepository(store *database.MongoStore) BlogRepository {
	return &mongoBlogRepository{coll: store.Blogs()}
}

func (r *mongoBlogRepository) span(ctx context.Context, method string) (context.Context, func(error)) {
	return observability.StartRepositorySpan(ctx, "mongodb", method, database.BlogsCollection)
}

func (r *mongoBlogRepository) Create(ctx context.Context, blog *models.Blog) (err error) {
	ctx, finish := r.span(ctx, "Create")
	defer func() { finish(err) }()

	if blog.ID == "" {
		blog.ID = models.NewID()
	}
	now := time.Now().UTC()
	if blog.CreatedAt.IsZero() {
		blog.CreatedAt = now
	}
	blog.UpdatedAt = now
	if blog.Tags == nil {
		blog.Tags = []string{}
	}
	if blog.LikedBy == nil {
		blog.LikedBy = []string{}
	}
	if blog.ViewedBy == nil {
		blog.ViewedBy = []string{}
	}
	if blog.Comments == nil {
		blog.Comments = []models.Comment{}
	}

	_, err = r.coll.InsertOne(ctx, blog)
	return translateMongoError(err)
}

func (r *mongoBlogRepository) GetByID(ctx context.Context, id string) (_ *models.Blog, err error) {
	ctx, finish := r.span(ctx, "GetByID")
	defer func() { finish(err) }()

	return r.findByID(ctx, id)
}

func (r *mongoBlogRepository) findByID(ctx context.Context, id string) (*models.Blog, error) {
	var blog models.Blog
	err := r.coll.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(blogDetailProjection)).Decode(&blog)
	if err != nil {
		return nil, translateMongoError(err)
	}
	return &blog, nil
}

func mongoBlogFilter(f BlogFilter) bson.M {
	filter := bson.M{}
	if f.AuthorID != "" {
		filter["createdBy"] = f.AuthorID
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		filter["$text"] = bson.M{"$search": q}
	}
	return filter
}

func (r *mongoBlogRepository) List(ctx context.Context, f BlogFilter, limit, offset int) (_ []*models.Blog, _ int64, err error) {
	ctx, finish := r.span(ctx, "List")
	defer func() { finish(err) }()

	filter := mongoBlogFilter(f)
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	blogs := []*models.Blog{}
	if int64(offset) >= total {
		return blogs, total, nil
	}

	cur, err := r.coll.Find(ctx, filter, options.Find().
		SetProjection(blogListProjection).
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit)))
	if err != nil {
		return nil, 0, err
	}
	if err := cur.All(ctx, &blogs); err != nil {
		return nil, 0, err
	}
	return blogs, total, nil
}

func (r *mongoBlogRepository) Delete(ctx context.Context, id string) (err error) {
	ctx, finish := r.span(ctx, "Delete")
	defer func() { finish(err) }()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoBlogRepository) RecordView(ctx context.Context, id, viewerKey string) (_ *models.Blog, _ bool, err error) {
	ctx, finish := r.span(ctx, "RecordView")
	defer func() { finish(err) }()

	// Matches only while the viewer is absent, so the set insert and the
	// counter increment happen together or not at all.
	filter := bson.M{"_id": id, "viewedBy": bson.M{"$ne": viewerKey}}
	update := bson.M{
		"$addToSet": bson.M{"viewedBy": viewerKey},
		"$inc":      bson.M{"views": 1},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(blogDetailProjection)

	var blog models.Blog
	err = r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&blog)
	switch {
	case err == nil:
		return &blog, true, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		existing, err := r.findByID(ctx, id)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	default:
		return nil, false, err
	}
}

func (r *mongoBlogRepository) ToggleLike(ctx context.Context, id, userID string) (_ *models.Blog, _ bool, err error) {
	ctx, finish := r.span(ctx, "ToggleLike")
	defer func() { finish(err) }()

	likers := bson.M{"$ifNull": bson.A{"$likedBy", bson.A{}}}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{"likedBy": bson.M{"$cond": bson.M{
			"if": bson.M{"$in": bson.A{userID, likers}},
			"then": bson.M{"$filter": bson.M{
				"input": likers,
				"as":    "u",
				"cond":  bson.M{"$ne": bson.A{"$$u", userID}},
			}},
			"else": bson.M{"$concatArrays": bson.A{likers, bson.A{userID}}},
		}}}}},
		// The count is derived from the set in the same update.
		{{Key: "$set", Value: bson.M{"likes": bson.M{"$size": "$likedBy"}}}},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(blogDetailProjection)

	var blog models.Blog
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, pipeline, opts).Decode(&blog); err != nil {
		return nil, false, translateMongoError(err)
	}
	return &blog, blog.LikedByUser(userID), nil
}

func (r *mongoBlogRepository) AddComment(ctx context.Context, id string, comment *models.Comment) (err error) {
	ctx, finish := r.span(ctx, "AddComment")
	defer func() { finish(err) }()

	if comment == nil {
		return errors.New("nil comment")
	}
	if comment.ID == "" {
		comment.ID = models.NewID()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	comment.BlogID = id

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$push": bson.M{"comments": comment}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
