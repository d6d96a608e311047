package blog

import (
	"time"

	"github.com/google/uuid"

	"github.com/petfinder-app/petfinder-backend/pkg/db/models"
	"github.com/petfinder-app/petfinder-backend/pkg/enums"
	"github.com/petfinder-app/petfinder-backend/pkg/pagination"
)

// Actor is the caller of a write operation on posts.
type Actor struct {
	UserID  uuid.UUID
	IsAdmin bool
}

type TagDTO struct {
	ID   uuid.UUID `json:"id"`
	Slug string    `json:"slug"`
	Name string    `json:"name"`
}

type CategoryDTO struct {
	ID   uuid.UUID `json:"id"`
	Slug string    `json:"slug"`
	Name string    `json:"name"`
}

type PostDTO struct {
	ID          uuid.UUID                  `json:"id"`
	AuthorID    uuid.UUID                  `json:"author_id"`
	CategoryID  *uuid.UUID                 `json:"category_id,omitempty"`
	Slug        string                     `json:"slug"`
	Title       string                     `json:"title"`
	Body        string                     `json:"body"`
	Status      enums.PostStatus           `json:"status"`
	PublishedAt *time.Time                 `json:"published_at,omitempty"`
	Tags        []TagDTO                   `json:"tags"`
	Reactions   map[enums.ReactionKind]int `json:"reactions,omitempty"`
	CreatedAt   time.Time                  `json:"created_at"`
	UpdatedAt   time.Time                  `json:"updated_at"`
}

type CommentDTO struct {
	ID        uuid.UUID           `json:"id"`
	PostID    uuid.UUID           `json:"post_id"`
	AuthorID  uuid.UUID           `json:"author_id"`
	ParentID  *uuid.UUID          `json:"parent_id,omitempty"`
	Body      string              `json:"body"`
	Status    enums.CommentStatus `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
}

// CommentNode is a comment with its replies, oldest first.
type CommentNode struct {
	CommentDTO
	Replies []*CommentNode `json:"replies"`
}

type CreatePostInput struct {
	Title      string     `json:"title" validate:"required,max=200"`
	Slug       string     `json:"slug" validate:"omitempty,max=160"`
	Body       string     `json:"body" validate:"required"`
	CategoryID *uuid.UUID `json:"category_id"`
	Tags       []string   `json:"tags" validate:"max=10,dive,min=1,max=40"`
	Publish    bool       `json:"publish"`
}

type UpdatePostInput struct {
	Title      *string           `json:"title" validate:"omitempty,min=1,max=200"`
	Body       *string           `json:"body" validate:"omitempty,min=1"`
	CategoryID *uuid.UUID        `json:"category_id"`
	Status     *enums.PostStatus `json:"status" validate:"omitempty,oneof=draft published archived"`
	Tags       *[]string         `json:"tags" validate:"omitempty,max=10,dive,min=1,max=40"`
}

type ListPostsInput struct {
	CategorySlug string
	TagSlug      string
	pagination.Params
}

type CreateCommentInput struct {
	Body     string     `json:"body" validate:"required,max=4000"`
	ParentID *uuid.UUID `json:"parent_id"`
}

type CreateCategoryInput struct {
	Slug string `json:"slug" validate:"omitempty,max=80"`
	Name string `json:"name" validate:"required,max=120"`
}

func postFromModel(p *models.BlogPost) PostDTO {
	dto := PostDTO{
		ID:          p.ID,
		AuthorID:    p.AuthorID,
		CategoryID:  p.CategoryID,
		Slug:        p.Slug,
		Title:       p.Title,
		Body:        p.Body,
		Status:      p.Status,
		PublishedAt: p.PublishedAt,
		Tags:        make([]TagDTO, len(p.Tags)),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	for i, t := range p.Tags {
		dto.Tags[i] = TagDTO{ID: t.ID, Slug: t.Slug, Name: t.Name}
	}
	return dto
}

func commentFromModel(c *models.BlogComment) CommentDTO {
	return CommentDTO{
		ID:        c.ID,
		PostID:    c.PostID,
		AuthorID:  c.AuthorID,
		ParentID:  c.ParentID,
		Body:      c.Body,
		Status:    c.Status,
		CreatedAt: c.CreatedAt,
	}
}

// buildTree nests comments under their parents. Replies whose parent is not
// in the set (e.g. a rejected parent) are dropped with it.
func buildTree(rows []models.BlogComment) []*CommentNode {
	nodes := make(map[uuid.UUID]*CommentNode, len(rows))
	for i := range rows {
		nodes[rows[i].ID] = &CommentNode{CommentDTO: commentFromModel(&rows[i]), Replies: []*CommentNode{}}
	}
	roots := []*CommentNode{}
	for i := range rows {
		node := nodes[rows[i].ID]
		if rows[i].ParentID == nil {
			roots = append(roots, node)
			continue
		}
		if parent, ok := nodes[*rows[i].ParentID]; ok {
			parent.Replies = append(parent.Replies, node)
		}
	}
	return roots
}
