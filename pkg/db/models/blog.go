package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/petfinder-app/petfinder-backend/pkg/enums"
)

type BlogCategory struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Slug      string    `gorm:"column:slug;not null;uniqueIndex"`
	Name      string    `gorm:"column:name;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (c *BlogCategory) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}

type BlogTag struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Slug      string    `gorm:"column:slug;not null;uniqueIndex"`
	Name      string    `gorm:"column:name;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (t *BlogTag) BeforeCreate(*gorm.DB) error {
	assignID(&t.ID)
	return nil
}

// BlogPost is an article written by a user. Only published posts are public.
type BlogPost struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	AuthorID    uuid.UUID        `gorm:"column:author_id;type:uuid;not null"`
	CategoryID  *uuid.UUID       `gorm:"column:category_id;type:uuid"`
	Slug        string           `gorm:"column:slug;not null;uniqueIndex"`
	Title       string           `gorm:"column:title;not null"`
	Body        string           `gorm:"column:body;not null"`
	Status      enums.PostStatus `gorm:"column:status;type:text;not null"`
	PublishedAt *time.Time       `gorm:"column:published_at"`
	Tags        []BlogTag        `gorm:"many2many:blog_post_tags;joinForeignKey:PostID;joinReferences:TagID"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *BlogPost) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// BlogComment belongs to a post and optionally replies to another comment.
type BlogComment struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	PostID    uuid.UUID           `gorm:"column:post_id;type:uuid;not null"`
	AuthorID  uuid.UUID           `gorm:"column:author_id;type:uuid;not null"`
	ParentID  *uuid.UUID          `gorm:"column:parent_id;type:uuid"`
	Body      string              `gorm:"column:body;not null"`
	Status    enums.CommentStatus `gorm:"column:status;type:text;not null"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (c *BlogComment) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// BlogReaction is unique per (post, user).
type BlogReaction struct {
	PostID    uuid.UUID          `gorm:"column:post_id;type:uuid;primaryKey"`
	UserID    uuid.UUID          `gorm:"column:user_id;type:uuid;primaryKey"`
	Kind      enums.ReactionKind `gorm:"column:kind;type:text;not null"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
}
