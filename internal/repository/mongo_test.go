package repository

import (
	"context"
	"testing"
	"time"

	"bolify/internal/database"
	"bolify/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func toDoc(t *testing.T, v interface{}) bson.D {
	t.Helper()
	raw, err := bson.Marshal(v)
	require.NoError(t, err)
	var doc bson.D
	require.NoError(t, bson.Unmarshal(raw, &doc))
	return doc
}

func storedBlog(likedBy ...string) *models.Blog {
	return &models.Blog{
		ID:        models.NewID(),
		Title:     "Mongo blog",
		Body:      "A body that is long enough to pass validation rules.",
		CreatedBy: models.NewID(),
		Status:    models.BlogStatusPublished,
		Tags:      []string{},
		LikedBy:   likedBy,
		Likes:     int64(len(likedBy)),
		Comments:  []models.Comment{},
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestMongoUserRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("create assigns id and normalizes email", func(mt *mtest.T) {
		repo := NewMongoUserRepository(database.NewMongoStore(mt.DB))
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		u := newLocalUser(mt.T, "Ada Lovelace", " ADA@example.com ")
		u.ID = ""
		require.NoError(mt, repo.Create(ctx, u))
		assert.True(mt, models.IsValidID(u.ID))
		assert.Equal(mt, "ada@example.com", u.Email)
		assert.False(mt, u.CreatedAt.IsZero())
	})

	mt.Run("duplicate email", func(mt *mtest.T) {
		repo := NewMongoUserRepository(database.NewMongoStore(mt.DB))
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "E11000 duplicate key error collection: bolify.users index: uniq_email",
		}))

		err := repo.Create(ctx, newLocalUser(mt.T, "Ada Lovelace", "ada@example.com"))
		assert.ErrorIs(mt, err, ErrDuplicate)
	})

	mt.Run("get by email", func(mt *mtest.T) {
		repo := NewMongoUserRepository(database.NewMongoStore(mt.DB))
		u := newLocalUser(mt.T, "Ada Lovelace", "ada@example.com")
		u.ID = models.NewID()
		u.PasswordHash = ""
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "bolify.users", mtest.FirstBatch, toDoc(mt.T, u)))

		got, err := repo.GetByEmail(ctx, "ADA@example.com")
		require.NoError(mt, err)
		assert.Equal(mt, u.ID, got.ID)
		assert.Empty(mt, got.PasswordHash)
	})

	mt.Run("not found", func(mt *mtest.T) {
		repo := NewMongoUserRepository(database.NewMongoStore(mt.DB))
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "bolify.users", mtest.FirstBatch))

		_, err := repo.GetByID(ctx, models.NewID())
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("set role on missing user", func(mt *mtest.T) {
		repo := NewMongoUserRepository(database.NewMongoStore(mt.DB))
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		assert.ErrorIs(mt, repo.SetRole(ctx, models.NewID(), models.RoleAdmin), ErrNotFound)
	})
}

func TestMongoBlogRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("create fills empty collections", func(mt *mtest.T) {
		repo := NewMongoBlogRepository(database.NewMongoStore(mt.DB))
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		b := &models.Blog{Title: "Title", Body: "Body", CreatedBy: models.NewID()}
		require.NoError(mt, repo.Create(ctx, b))
		assert.True(mt, models.IsValidID(b.ID))
		assert.NotNil(mt, b.LikedBy)
		assert.NotNil(mt, b.ViewedBy)
		assert.NotNil(mt, b.Comments)
	})

	mt.Run("first view is recorded", func(mt *mtest.T) {
		repo := NewMongoBlogRepository(database.NewMongoStore(mt.DB))
		b := storedBlog()
		b.Views = 1
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: toDoc(mt.T, b)}))

		got, recorded, err := repo.RecordView(ctx, b.ID, "anon:1.2.3.4")
		require.NoError(mt, err)
		assert.True(mt, recorded)
		assert.Equal(mt, int64(1), got.Views)
	})

	mt.Run("repeat view returns current state", func(mt *mtest.T) {
		repo := NewMongoBlogRepository(database.NewMongoStore(mt.DB))
		b := storedBlog()
		b.Views = 1
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, "bolify.blogs", mtest.FirstBatch, toDoc(mt.T, b)),
		)

		got, recorded, err := repo.RecordView(ctx, b.ID, "anon:1.2.3.4")
		require.NoError(mt, err)
		assert.False(mt, recorded)
		assert.Equal(mt, int64(1), got.Views)
	})

	mt.Run("view on missing blog", func(mt *mtest.T) {
		repo := NewMongoBlogRepository(database.NewMongoStore(mt.DB))
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, "bolify.blogs", mtest.FirstBatch),
		)

		_, _, err := repo.RecordView(ctx, models.NewID(), "anon:1.2.3.4")
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("toggle like reports membership", func(mt *mtest.T) {
		repo := NewMongoBlogRepository(database.NewMongoStore(mt.DB))
		user := models.NewID()
		liked := storedBlog(user)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: toDoc(mt.T, liked)}))

		got, isLiked, err := repo.ToggleLike(ctx, liked.ID, user)
		require.NoError(mt, err)
		assert.True(mt, isLiked)
		assert.Equal(mt, int64(len(got.LikedBy)), got.Likes)

		unliked := storedBlog()
		unliked.ID = liked.ID
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: toDoc(mt.T, unliked)}))

		got, isLiked, err = repo.ToggleLike(ctx, liked.ID, user)
		require.NoError(mt, err)
		assert.False(mt, isLiked)
		assert.Zero(mt, got.Likes)
	})

	mt.Run("toggle like on missing blog", func(mt *mtest.T) {
		repo := NewMongoBlogRepository(database.NewMongoStore(mt.DB))
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		_, _, err := repo.ToggleLike(ctx, models.NewID(), models.NewID())
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("add comment", func(mt *mtest.T) {
		repo := NewMongoBlogRepository(database.NewMongoStore(mt.DB))
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		c := &models.Comment{UserID: models.NewID(), Text: "great read"}
		require.NoError(mt, repo.AddComment(ctx, models.NewID(), c))
		assert.True(mt, models.IsValidID(c.ID))
		assert.False(mt, c.CreatedAt.IsZero())
	})

	mt.Run("add comment to missing blog", func(mt *mtest.T) {
		repo := NewMongoBlogRepository(database.NewMongoStore(mt.DB))
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		err := repo.AddComment(ctx, models.NewID(), &models.Comment{UserID: models.NewID(), Text: "hello"})
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("list pages with total", func(mt *mtest.T) {
		repo := NewMongoBlogRepository(database.NewMongoStore(mt.DB))
		a, b := storedBlog(), storedBlog()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "bolify.blogs", mtest.FirstBatch, bson.D{{Key: "_id", Value: 1}, {Key: "n", Value: 12}}),
			mtest.CreateCursorResponse(0, "bolify.blogs", mtest.FirstBatch, toDoc(mt.T, a), toDoc(mt.T, b)),
		)

		blogs, total, err := repo.List(ctx, BlogFilter{Query: "mongo"}, 2, 0)
		require.NoError(mt, err)
		assert.Equal(mt, int64(12), total)
		require.Len(mt, blogs, 2)
		assert.Equal(mt, a.ID, blogs[0].ID)
	})

	mt.Run("list beyond range skips the find", func(mt *mtest.T) {
		repo := NewMongoBlogRepository(database.NewMongoStore(mt.DB))
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "bolify.blogs", mtest.FirstBatch, bson.D{{Key: "_id", Value: 1}, {Key: "n", Value: 3}}),
		)

		blogs, total, err := repo.List(ctx, BlogFilter{}, 10, 10)
		require.NoError(mt, err)
		assert.Equal(mt, int64(3), total)
		assert.Empty(mt, blogs)
	})

	mt.Run("delete missing blog", func(mt *mtest.T) {
		repo := NewMongoBlogRepository(database.NewMongoStore(mt.DB))
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		assert.ErrorIs(mt, repo.Delete(ctx, models.NewID()), ErrNotFound)
	})
}

func TestMongoFilter(t *testing.T) {
	author := models.NewID()
	assert.Equal(t, bson.M{}, mongoBlogFilter(BlogFilter{}))
	assert.Equal(t, bson.M{"createdBy": author, "$text": bson.M{"$search": "go"}},
		mongoBlogFilter(BlogFilter{AuthorID: author, Query: " go "}))
}
