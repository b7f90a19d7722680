package models

import (
	"time"

	"gorm.io/gorm"
)

// BlogStatus is the publication state of a blog.
type BlogStatus string

const (
	BlogStatusDraft     BlogStatus = "draft"
	BlogStatusPublished BlogStatus = "published"
)

// Blog is a post together with its interaction state.
// The document store embeds likedBy, viewedBy and comments; the relational
// store keeps them in blog_likes, blog_views and blog_comments.
type Blog struct {
	ID               string     `gorm:"primaryKey;size:24" bson:"_id" json:"id"`
	Title            string     `gorm:"size:120;not null" bson:"title" json:"title"`
	CreatedBy        string     `gorm:"size:24;not null;index:idx_blogs_author_created,priority:1" bson:"createdBy" json:"createdBy"`
	CoverImage       string     `gorm:"size:1024" bson:"coverImage" json:"coverImage"`
	CoverImageFileID string     `gorm:"size:255" bson:"coverImageFileId,omitempty" json:"-"`
	Body             string     `gorm:"type:text;not null" bson:"body" json:"body"`
	Status           BlogStatus `gorm:"size:16;not null;default:published" bson:"status" json:"status"`
	Tags             []string   `gorm:"serializer:json" bson:"tags" json:"tags"`
	Views            int64      `gorm:"column:view_count;not null;default:0" bson:"views" json:"views"`
	Likes            int64      `gorm:"column:like_count;not null;default:0" bson:"likes" json:"likes"`
	LikedBy          []string   `gorm:"-" bson:"likedBy" json:"likedBy"`
	ViewedBy         []string   `gorm:"-" bson:"viewedBy" json:"-"`
	Comments         []Comment  `gorm:"foreignKey:BlogID;constraint:OnDelete:CASCADE" bson:"comments" json:"comments"`
	Author           *Author    `gorm:"-" bson:"-" json:"author,omitempty"`
	CreatedAt        time.Time  `gorm:"index:idx_blogs_author_created,priority:2,sort:desc" bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// BeforeCreate assigns an object id when none is set.
func (b *Blog) BeforeCreate(_ *gorm.DB) error {
	if b.ID == "" {
		b.ID = NewID()
	}
	return nil
}

// LikedByUser reports whether userID is in the liker set.
func (b *Blog) LikedByUser(userID string) bool {
	for _, id := range b.LikedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// Comment is an append-only remark on a blog.
type Comment struct {
	ID        string    `gorm:"primaryKey;size:24" bson:"_id" json:"id"`
	BlogID    string    `gorm:"size:24;not null;index" bson:"-" json:"-"`
	UserID    string    `gorm:"size:24;not null" bson:"user" json:"user"`
	Text      string    `gorm:"type:text;not null" bson:"text" json:"text"`
	Author    *Author   `gorm:"-" bson:"-" json:"author,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// TableName places comments next to their blog tables.
func (Comment) TableName() string { return "blog_comments" }

// BeforeCreate assigns an object id when none is set.
func (c *Comment) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = NewID()
	}
	return nil
}

// BlogLike is the relational form of one liker set member.
type BlogLike struct {
	BlogID    string `gorm:"primaryKey;size:24"`
	UserID    string `gorm:"primaryKey;size:24"`
	CreatedAt time.Time
}

// BlogView is the relational form of one viewer set member. ViewerKey is a
// user id or an anonymous client key.
type BlogView struct {
	BlogID    string `gorm:"primaryKey;size:24"`
	ViewerKey string `gorm:"primaryKey;size:128"`
	CreatedAt time.Time
}

// BlogPage is one page of a blog listing.
type BlogPage struct {
	Blogs      []*Blog
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}
