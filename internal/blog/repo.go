package blog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/petfinder-app/petfinder-backend/pkg/db/models"
	"github.com/petfinder-app/petfinder-backend/pkg/enums"
	"github.com/petfinder-app/petfinder-backend/pkg/pagination"
)

// Repository persists posts, comments, reactions and taxonomy.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// PostQuery filters post listings. Empty fields do not filter.
type PostQuery struct {
	Status       *enums.PostStatus
	AuthorID     *uuid.UUID
	CategorySlug string
	TagSlug      string
	Cursor       *pagination.Cursor
	Limit        int
}

func (r *Repository) CreatePost(ctx context.Context, post *models.BlogPost) error {
	return r.db.WithContext(ctx).Omit("Tags.*").Create(post).Error
}

func (r *Repository) FindPostByID(ctx context.Context, id uuid.UUID) (*models.BlogPost, error) {
	var post models.BlogPost
	if err := r.db.WithContext(ctx).Preload("Tags").First(&post, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *Repository) FindPostBySlug(ctx context.Context, slug string) (*models.BlogPost, error) {
	var post models.BlogPost
	err := r.db.WithContext(ctx).
		Preload("Tags").
		Where("slug = ?", slug).
		First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *Repository) UpdatePost(ctx context.Context, id uuid.UUID, cols map[string]any) error {
	if len(cols) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.BlogPost{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ReplaceTags swaps the post's tag set.
func (r *Repository) ReplaceTags(ctx context.Context, post *models.BlogPost, tags []models.BlogTag) error {
	return r.db.WithContext(ctx).Model(post).Association("Tags").Replace(tags)
}

func (r *Repository) DeletePost(ctx context.Context, id uuid.UUID) error {
	conn := r.db.WithContext(ctx)
	if err := conn.Where("post_id = ?", id).Delete(&models.BlogReaction{}).Error; err != nil {
		return err
	}
	if err := conn.Where("post_id = ?", id).Delete(&models.BlogComment{}).Error; err != nil {
		return err
	}
	if err := conn.Exec("DELETE FROM blog_post_tags WHERE post_id = ?", id).Error; err != nil {
		return err
	}
	return conn.Delete(&models.BlogPost{}, "id = ?", id).Error
}

func (r *Repository) ListPosts(ctx context.Context, q PostQuery) ([]models.BlogPost, error) {
	query := r.db.WithContext(ctx).Model(&models.BlogPost{}).Preload("Tags")
	if q.Status != nil {
		query = query.Where("blog_posts.status = ?", *q.Status)
	}
	if q.AuthorID != nil {
		query = query.Where("blog_posts.author_id = ?", *q.AuthorID)
	}
	if q.CategorySlug != "" {
		query = query.Where("blog_posts.category_id IN (?)",
			r.db.Model(&models.BlogCategory{}).Select("id").Where("slug = ?", q.CategorySlug))
	}
	if q.TagSlug != "" {
		query = query.Where("blog_posts.id IN (?)",
			r.db.Table("blog_post_tags").
				Select("blog_post_tags.post_id").
				Joins("JOIN blog_tags ON blog_tags.id = blog_post_tags.tag_id").
				Where("blog_tags.slug = ?", q.TagSlug))
	}
	if q.Cursor != nil {
		query = query.Where("(blog_posts.created_at < ?) OR (blog_posts.created_at = ? AND blog_posts.id < ?)",
			q.Cursor.CreatedAt, q.Cursor.CreatedAt, q.Cursor.ID)
	}
	var posts []models.BlogPost
	err := query.
		Order("blog_posts.created_at DESC").
		Order("blog_posts.id DESC").
		Limit(q.Limit).
		Find(&posts).Error
	return posts, err
}

func (r *Repository) ListCategories(ctx context.Context) ([]models.BlogCategory, error) {
	var rows []models.BlogCategory
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) CreateCategory(ctx context.Context, c *models.BlogCategory) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *Repository) FindCategory(ctx context.Context, id uuid.UUID) (*models.BlogCategory, error) {
	var c models.BlogCategory
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) ListTags(ctx context.Context) ([]models.BlogTag, error) {
	var rows []models.BlogTag
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

// EnsureTags returns the tags for slugs, creating the missing ones.
func (r *Repository) EnsureTags(ctx context.Context, tags []models.BlogTag) ([]models.BlogTag, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	conn := r.db.WithContext(ctx)
	if err := conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoNothing: true,
	}).Create(&tags).Error; err != nil {
		return nil, err
	}
	slugs := make([]string, len(tags))
	for i, t := range tags {
		slugs[i] = t.Slug
	}
	var rows []models.BlogTag
	err := conn.Where("slug IN ?", slugs).Order("slug ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) CreateComment(ctx context.Context, c *models.BlogComment) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *Repository) FindComment(ctx context.Context, id uuid.UUID) (*models.BlogComment, error) {
	var c models.BlogComment
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListComments returns the post's comments oldest first, optionally by status.
func (r *Repository) ListComments(ctx context.Context, postID uuid.UUID, status *enums.CommentStatus) ([]models.BlogComment, error) {
	q := r.db.WithContext(ctx).Where("post_id = ?", postID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var rows []models.BlogComment
	err := q.Order("created_at ASC").Order("id ASC").Find(&rows).Error
	return rows, err
}

// ListCommentsByStatus feeds the moderation queue, newest first.
func (r *Repository) ListCommentsByStatus(ctx context.Context, status enums.CommentStatus, cursor *pagination.Cursor, limit int) ([]models.BlogComment, error) {
	q := r.db.WithContext(ctx).Where("status = ?", status)
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.BlogComment
	err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

func (r *Repository) SetCommentStatus(ctx context.Context, id uuid.UUID, status enums.CommentStatus) error {
	res := r.db.WithContext(ctx).Model(&models.BlogComment{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpsertReaction records or replaces the user's reaction to a post.
func (r *Repository) UpsertReaction(ctx context.Context, reaction *models.BlogReaction) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "post_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"kind"}),
	}).Create(reaction).Error
}

func (r *Repository) DeleteReaction(ctx context.Context, postID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&models.BlogReaction{}).Error
}

type reactionCount struct {
	Kind  enums.ReactionKind
	Total int
}

func (r *Repository) CountReactions(ctx context.Context, postID uuid.UUID) (map[enums.ReactionKind]int, error) {
	var rows []reactionCount
	err := r.db.WithContext(ctx).Model(&models.BlogReaction{}).
		Select("kind, COUNT(*) AS total").
		Where("post_id = ?", postID).
		Group("kind").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[enums.ReactionKind]int, len(rows))
	for _, row := range rows {
		counts[row.Kind] = row.Total
	}
	return counts, nil
}
