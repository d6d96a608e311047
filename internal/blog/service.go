package blog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/petfinder-app/petfinder-backend/pkg/db"
	"github.com/petfinder-app/petfinder-backend/pkg/db/models"
	"github.com/petfinder-app/petfinder-backend/pkg/enums"
	pkgerrors "github.com/petfinder-app/petfinder-backend/pkg/errors"
	"github.com/petfinder-app/petfinder-backend/pkg/logger"
	"github.com/petfinder-app/petfinder-backend/pkg/pagination"
)

// Service covers posts, the comment tree, moderation and reactions.
type Service interface {
	CreatePost(ctx context.Context, actor Actor, input CreatePostInput) (*PostDTO, error)
	UpdatePost(ctx context.Context, actor Actor, postID uuid.UUID, input UpdatePostInput) (*PostDTO, error)
	PublishPost(ctx context.Context, actor Actor, postID uuid.UUID) (*PostDTO, error)
	DeletePost(ctx context.Context, actor Actor, postID uuid.UUID) error
	GetPublished(ctx context.Context, slug string) (*PostDTO, error)
	ListPublished(ctx context.Context, input ListPostsInput) (*pagination.Page[PostDTO], error)
	ListMine(ctx context.Context, authorID uuid.UUID, params pagination.Params) (*pagination.Page[PostDTO], error)

	ListCategories(ctx context.Context) ([]CategoryDTO, error)
	CreateCategory(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error)
	ListTags(ctx context.Context) ([]TagDTO, error)

	AddComment(ctx context.Context, authorID uuid.UUID, postSlug string, input CreateCommentInput) (*CommentDTO, error)
	CommentTree(ctx context.Context, postSlug string) ([]*CommentNode, error)
	ListPendingComments(ctx context.Context, params pagination.Params) (*pagination.Page[CommentDTO], error)
	ModerateComment(ctx context.Context, commentID uuid.UUID, status enums.CommentStatus) (*CommentDTO, error)

	React(ctx context.Context, userID uuid.UUID, postSlug string, kind enums.ReactionKind) (map[enums.ReactionKind]int, error)
	ClearReaction(ctx context.Context, userID uuid.UUID, postSlug string) (map[enums.ReactionKind]int, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Repo   *Repository
	Tx     txRunner
	Logger *logger.Logger
	Now    func() time.Time
}

type service struct {
	repo *Repository
	tx   txRunner
	logg *logger.Logger
	now  func() time.Time
}

func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("blog repository required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: p.Repo, tx: p.Tx, logg: p.Logger, now: now}, nil
}

func (s *service) CreatePost(ctx context.Context, actor Actor, input CreatePostInput) (*PostDTO, error) {
	slug := Slugify(input.Slug)
	if slug == "" {
		slug = Slugify(input.Title)
	}
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title must contain letters or digits")
	}
	if err := s.checkCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}
	post := &models.BlogPost{
		AuthorID:   actor.UserID,
		CategoryID: input.CategoryID,
		Slug:       slug,
		Title:      strings.TrimSpace(input.Title),
		Body:       input.Body,
		Status:     enums.PostStatusDraft,
	}
	if input.Publish {
		now := s.now().UTC()
		post.Status = enums.PostStatusPublished
		post.PublishedAt = &now
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		tags, err := repo.EnsureTags(ctx, tagModels(input.Tags))
		if err != nil {
			return err
		}
		post.Tags = tags
		return repo.CreatePost(ctx, post)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "blog_posts_slug_key", "blog_posts.slug") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "slug already in use").WithDetails(map[string]any{"slug": slug})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create post")
	}
	return s.getByID(ctx, post.ID)
}

func (s *service) UpdatePost(ctx context.Context, actor Actor, postID uuid.UUID, input UpdatePostInput) (*PostDTO, error) {
	post, err := s.loadEditable(ctx, actor, postID)
	if err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}
	cols := map[string]any{}
	if input.Title != nil {
		cols["title"] = strings.TrimSpace(*input.Title)
	}
	if input.Body != nil {
		cols["body"] = *input.Body
	}
	if input.CategoryID != nil {
		cols["category_id"] = *input.CategoryID
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid post status")
		}
		cols["status"] = *input.Status
		if *input.Status == enums.PostStatusPublished && post.PublishedAt == nil {
			cols["published_at"] = s.now().UTC()
		}
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdatePost(ctx, postID, cols); err != nil {
			return err
		}
		if input.Tags == nil {
			return nil
		}
		tags, err := repo.EnsureTags(ctx, tagModels(*input.Tags))
		if err != nil {
			return err
		}
		return repo.ReplaceTags(ctx, post, tags)
	})
	if err != nil {
		return nil, mapErr(err, "post not found", "update post")
	}
	return s.getByID(ctx, postID)
}

func (s *service) PublishPost(ctx context.Context, actor Actor, postID uuid.UUID) (*PostDTO, error) {
	published := enums.PostStatusPublished
	return s.UpdatePost(ctx, actor, postID, UpdatePostInput{Status: &published})
}

func (s *service) DeletePost(ctx context.Context, actor Actor, postID uuid.UUID) error {
	if _, err := s.loadEditable(ctx, actor, postID); err != nil {
		return err
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).DeletePost(ctx, postID)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete post")
	}
	return nil
}

func (s *service) GetPublished(ctx context.Context, slug string) (*PostDTO, error) {
	post, err := s.loadPublished(ctx, slug)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.CountReactions(ctx, post.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count reactions")
	}
	dto := postFromModel(post)
	dto.Reactions = counts
	return &dto, nil
}

func (s *service) ListPublished(ctx context.Context, input ListPostsInput) (*pagination.Page[PostDTO], error) {
	published := enums.PostStatusPublished
	return s.listPosts(ctx, PostQuery{
		Status:       &published,
		CategorySlug: strings.TrimSpace(input.CategorySlug),
		TagSlug:      strings.TrimSpace(input.TagSlug),
	}, input.Params)
}

func (s *service) ListMine(ctx context.Context, authorID uuid.UUID, params pagination.Params) (*pagination.Page[PostDTO], error) {
	return s.listPosts(ctx, PostQuery{AuthorID: &authorID}, params)
}

func (s *service) listPosts(ctx context.Context, q PostQuery, params pagination.Params) (*pagination.Page[PostDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	q.Cursor = cursor
	q.Limit = pagination.LimitWithBuffer(params.Limit)
	rows, err := s.repo.ListPosts(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list posts")
	}
	dtos := make([]PostDTO, len(rows))
	for i := range rows {
		dtos[i] = postFromModel(&rows[i])
	}
	page := pagination.BuildPage(dtos, params.Limit, func(p PostDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return &page, nil
}

func (s *service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list categories")
	}
	out := make([]CategoryDTO, len(rows))
	for i, c := range rows {
		out[i] = CategoryDTO{ID: c.ID, Slug: c.Slug, Name: c.Name}
	}
	return out, nil
}

func (s *service) CreateCategory(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error) {
	slug := Slugify(input.Slug)
	if slug == "" {
		slug = Slugify(input.Name)
	}
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must contain letters or digits")
	}
	c := &models.BlogCategory{Slug: slug, Name: strings.TrimSpace(input.Name)}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "category slug already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create category")
	}
	return &CategoryDTO{ID: c.ID, Slug: c.Slug, Name: c.Name}, nil
}

func (s *service) ListTags(ctx context.Context) ([]TagDTO, error) {
	rows, err := s.repo.ListTags(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list tags")
	}
	out := make([]TagDTO, len(rows))
	for i, t := range rows {
		out[i] = TagDTO{ID: t.ID, Slug: t.Slug, Name: t.Name}
	}
	return out, nil
}

// AddComment stores a comment awaiting moderation. Replies must point at a
// comment on the same post.
func (s *service) AddComment(ctx context.Context, authorID uuid.UUID, postSlug string, input CreateCommentInput) (*CommentDTO, error) {
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "comment body is required")
	}
	post, err := s.loadPublished(ctx, postSlug)
	if err != nil {
		return nil, err
	}
	if input.ParentID != nil {
		parent, err := s.repo.FindComment(ctx, *input.ParentID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load parent comment")
		}
		if parent == nil || parent.PostID != post.ID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "parent comment does not belong to this post")
		}
	}
	c := &models.BlogComment{
		PostID:   post.ID,
		AuthorID: authorID,
		ParentID: input.ParentID,
		Body:     body,
		Status:   enums.CommentStatusPending,
	}
	if err := s.repo.CreateComment(ctx, c); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create comment")
	}
	dto := commentFromModel(c)
	return &dto, nil
}

func (s *service) CommentTree(ctx context.Context, postSlug string) ([]*CommentNode, error) {
	post, err := s.loadPublished(ctx, postSlug)
	if err != nil {
		return nil, err
	}
	approved := enums.CommentStatusApproved
	rows, err := s.repo.ListComments(ctx, post.ID, &approved)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list comments")
	}
	return buildTree(rows), nil
}

func (s *service) ListPendingComments(ctx context.Context, params pagination.Params) (*pagination.Page[CommentDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListCommentsByStatus(ctx, enums.CommentStatusPending, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list pending comments")
	}
	dtos := make([]CommentDTO, len(rows))
	for i := range rows {
		dtos[i] = commentFromModel(&rows[i])
	}
	page := pagination.BuildPage(dtos, params.Limit, func(c CommentDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})
	return &page, nil
}

// ModerateComment approves or rejects a comment. Moving back to pending is
// not allowed.
func (s *service) ModerateComment(ctx context.Context, commentID uuid.UUID, status enums.CommentStatus) (*CommentDTO, error) {
	if status != enums.CommentStatusApproved && status != enums.CommentStatusRejected {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be approved or rejected")
	}
	if err := s.repo.SetCommentStatus(ctx, commentID, status); err != nil {
		return nil, mapErr(err, "comment not found", "moderate comment")
	}
	c, err := s.repo.FindComment(ctx, commentID)
	if err != nil {
		return nil, mapErr(err, "comment not found", "load comment")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"comment_id": commentID,
			"status":     status,
		}), "comment moderated")
	}
	dto := commentFromModel(c)
	return &dto, nil
}

func (s *service) React(ctx context.Context, userID uuid.UUID, postSlug string, kind enums.ReactionKind) (map[enums.ReactionKind]int, error) {
	if !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid reaction kind")
	}
	post, err := s.loadPublished(ctx, postSlug)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpsertReaction(ctx, &models.BlogReaction{PostID: post.ID, UserID: userID, Kind: kind}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save reaction")
	}
	return s.counts(ctx, post.ID)
}

func (s *service) ClearReaction(ctx context.Context, userID uuid.UUID, postSlug string) (map[enums.ReactionKind]int, error) {
	post, err := s.loadPublished(ctx, postSlug)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteReaction(ctx, post.ID, userID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear reaction")
	}
	return s.counts(ctx, post.ID)
}

func (s *service) counts(ctx context.Context, postID uuid.UUID) (map[enums.ReactionKind]int, error) {
	counts, err := s.repo.CountReactions(ctx, postID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count reactions")
	}
	return counts, nil
}

func (s *service) getByID(ctx context.Context, id uuid.UUID) (*PostDTO, error) {
	post, err := s.repo.FindPostByID(ctx, id)
	if err != nil {
		return nil, mapErr(err, "post not found", "load post")
	}
	dto := postFromModel(post)
	return &dto, nil
}

func (s *service) loadPublished(ctx context.Context, slug string) (*models.BlogPost, error) {
	post, err := s.repo.FindPostBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return nil, mapErr(err, "post not found", "load post")
	}
	if post.Status != enums.PostStatusPublished {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
	}
	return post, nil
}

// loadEditable returns the post when actor is its author or an admin.
func (s *service) loadEditable(ctx context.Context, actor Actor, postID uuid.UUID) (*models.BlogPost, error) {
	post, err := s.repo.FindPostByID(ctx, postID)
	if err != nil {
		return nil, mapErr(err, "post not found", "load post")
	}
	if post.AuthorID != actor.UserID && !actor.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the author can change this post")
	}
	return post, nil
}

func (s *service) checkCategory(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	if _, err := s.repo.FindCategory(ctx, *id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "unknown category")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load category")
	}
	return nil
}

func tagModels(names []string) []models.BlogTag {
	seen := map[string]bool{}
	var tags []models.BlogTag
	for _, name := range names {
		slug := Slugify(name)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		tags = append(tags, models.BlogTag{Slug: slug, Name: strings.TrimSpace(name)})
	}
	return tags
}

// Slugify lower-cases s, strips accents and joins words with hyphens.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range norm.NFD.String(strings.ToLower(strings.TrimSpace(s))) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func mapErr(err error, notFound, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}
