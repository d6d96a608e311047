package blog_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/petfinder-app/petfinder-backend/internal/blog"
	"github.com/petfinder-app/petfinder-backend/internal/dbtest"
	"github.com/petfinder-app/petfinder-backend/pkg/db"
	"github.com/petfinder-app/petfinder-backend/pkg/enums"
	pkgerrors "github.com/petfinder-app/petfinder-backend/pkg/errors"
	"github.com/petfinder-app/petfinder-backend/pkg/pagination"
)

var fixedNow = time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)

func newService(t *testing.T) (blog.Service, *db.Client) {
	t.Helper()
	client := dbtest.Open(t)
	svc, err := blog.NewService(blog.ServiceParams{
		Repo: blog.NewRepository(client.DB()),
		Tx:   client,
		Now:  func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return svc, client
}

func codeOf(err error) pkgerrors.Code {
	return pkgerrors.As(err).Code()
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Cómo cuidar a tu perro":  "como-cuidar-a-tu-perro",
		"  Gatos & Niños!! ":      "gatos-ninos",
		"QR collars, explained.": "qr-collars-explained",
		"¿?":                      "",
	}
	for in, want := range cases {
		require.Equal(t, want, blog.Slugify(in), in)
	}
}

func TestCreatePublishAndList(t *testing.T) {
	svc, client := newService(t)
	ctx := context.Background()
	author := dbtest.User(t, client.DB())
	actor := blog.Actor{UserID: author.ID}

	cat, err := svc.CreateCategory(ctx, blog.CreateCategoryInput{Name: "Salud"})
	require.NoError(t, err)
	require.Equal(t, "salud", cat.Slug)

	draft, err := svc.CreatePost(ctx, actor, blog.CreatePostInput{
		Title:      "Vacunas básicas",
		Body:       "...",
		CategoryID: &cat.ID,
		Tags:       []string{"Perros", "perros", "Gatos"},
	})
	require.NoError(t, err)
	require.Equal(t, enums.PostStatusDraft, draft.Status)
	require.Equal(t, "vacunas-basicas", draft.Slug)
	require.Len(t, draft.Tags, 2)

	_, err = svc.GetPublished(ctx, draft.Slug)
	require.Equal(t, pkgerrors.CodeNotFound, codeOf(err), "drafts are not public")

	published, err := svc.PublishPost(ctx, actor, draft.ID)
	require.NoError(t, err)
	require.Equal(t, enums.PostStatusPublished, published.Status)
	require.NotNil(t, published.PublishedAt)

	_, err = svc.CreatePost(ctx, actor, blog.CreatePostInput{Title: "Paseos", Body: "...", Publish: true, Tags: []string{"perros"}})
	require.NoError(t, err)

	byCategory, err := svc.ListPublished(ctx, blog.ListPostsInput{CategorySlug: "salud"})
	require.NoError(t, err)
	require.Len(t, byCategory.Items, 1)
	require.Equal(t, draft.ID, byCategory.Items[0].ID)

	byTag, err := svc.ListPublished(ctx, blog.ListPostsInput{TagSlug: "perros"})
	require.NoError(t, err)
	require.Len(t, byTag.Items, 2)

	firstPage, err := svc.ListPublished(ctx, blog.ListPostsInput{Params: pagination.Params{Limit: 1}})
	require.NoError(t, err)
	require.Len(t, firstPage.Items, 1)
	require.NotEmpty(t, firstPage.NextCursor)

	tags, err := svc.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 2)
}

func TestDuplicateSlugConflicts(t *testing.T) {
	svc, client := newService(t)
	ctx := context.Background()
	actor := blog.Actor{UserID: dbtest.User(t, client.DB()).ID}

	_, err := svc.CreatePost(ctx, actor, blog.CreatePostInput{Title: "Hola", Body: "a"})
	require.NoError(t, err)
	_, err = svc.CreatePost(ctx, actor, blog.CreatePostInput{Title: "hola!", Body: "b"})
	require.Equal(t, pkgerrors.CodeConflict, codeOf(err))
}

func TestOnlyAuthorOrAdminEdits(t *testing.T) {
	svc, client := newService(t)
	ctx := context.Background()
	author := blog.Actor{UserID: dbtest.User(t, client.DB()).ID}
	stranger := blog.Actor{UserID: dbtest.User(t, client.DB()).ID}
	admin := blog.Actor{UserID: uuid.New(), IsAdmin: true}

	post, err := svc.CreatePost(ctx, author, blog.CreatePostInput{Title: "Mine", Body: "x"})
	require.NoError(t, err)

	title := "Hijacked"
	_, err = svc.UpdatePost(ctx, stranger, post.ID, blog.UpdatePostInput{Title: &title})
	require.Equal(t, pkgerrors.CodeForbidden, codeOf(err))

	title = "Edited by admin"
	tags := []string{"news"}
	updated, err := svc.UpdatePost(ctx, admin, post.ID, blog.UpdatePostInput{Title: &title, Tags: &tags})
	require.NoError(t, err)
	require.Equal(t, "Edited by admin", updated.Title)
	require.Len(t, updated.Tags, 1)

	require.Equal(t, pkgerrors.CodeForbidden, codeOf(svc.DeletePost(ctx, stranger, post.ID)))
	require.NoError(t, svc.DeletePost(ctx, author, post.ID))
	_, err = svc.UpdatePost(ctx, author, post.ID, blog.UpdatePostInput{Title: &title})
	require.Equal(t, pkgerrors.CodeNotFound, codeOf(err))
}

func TestCommentModerationAndTree(t *testing.T) {
	svc, client := newService(t)
	ctx := context.Background()
	author := blog.Actor{UserID: dbtest.User(t, client.DB()).ID}
	reader := dbtest.User(t, client.DB()).ID

	post, err := svc.CreatePost(ctx, author, blog.CreatePostInput{Title: "Tree", Body: "x", Publish: true})
	require.NoError(t, err)
	other, err := svc.CreatePost(ctx, author, blog.CreatePostInput{Title: "Other", Body: "x", Publish: true})
	require.NoError(t, err)

	root, err := svc.AddComment(ctx, reader, post.Slug, blog.CreateCommentInput{Body: "first"})
	require.NoError(t, err)
	require.Equal(t, enums.CommentStatusPending, root.Status)
	reply, err := svc.AddComment(ctx, author.UserID, post.Slug, blog.CreateCommentInput{Body: "thanks", ParentID: &root.ID})
	require.NoError(t, err)
	spam, err := svc.AddComment(ctx, reader, post.Slug, blog.CreateCommentInput{Body: "buy now"})
	require.NoError(t, err)

	_, err = svc.AddComment(ctx, reader, other.Slug, blog.CreateCommentInput{Body: "x", ParentID: &root.ID})
	require.Equal(t, pkgerrors.CodeValidation, codeOf(err))

	tree, err := svc.CommentTree(ctx, post.Slug)
	require.NoError(t, err)
	require.Empty(t, tree, "pending comments stay hidden")

	queue, err := svc.ListPendingComments(ctx, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, queue.Items, 3)

	_, err = svc.ModerateComment(ctx, root.ID, enums.CommentStatusApproved)
	require.NoError(t, err)
	_, err = svc.ModerateComment(ctx, reply.ID, enums.CommentStatusApproved)
	require.NoError(t, err)
	_, err = svc.ModerateComment(ctx, spam.ID, enums.CommentStatusRejected)
	require.NoError(t, err)
	_, err = svc.ModerateComment(ctx, spam.ID, enums.CommentStatusPending)
	require.Equal(t, pkgerrors.CodeValidation, codeOf(err))
	_, err = svc.ModerateComment(ctx, uuid.New(), enums.CommentStatusApproved)
	require.Equal(t, pkgerrors.CodeNotFound, codeOf(err))

	tree, err = svc.CommentTree(ctx, post.Slug)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	require.Equal(t, root.ID, tree[0].ID)
	require.Len(t, tree[0].Replies, 1)
	require.Equal(t, reply.ID, tree[0].Replies[0].ID)
}

func TestReactionsOnePerUser(t *testing.T) {
	svc, client := newService(t)
	ctx := context.Background()
	author := blog.Actor{UserID: dbtest.User(t, client.DB()).ID}
	a := dbtest.User(t, client.DB()).ID
	b := dbtest.User(t, client.DB()).ID

	post, err := svc.CreatePost(ctx, author, blog.CreatePostInput{Title: "React", Body: "x", Publish: true})
	require.NoError(t, err)

	_, err = svc.React(ctx, a, post.Slug, enums.ReactionLike)
	require.NoError(t, err)
	_, err = svc.React(ctx, b, post.Slug, enums.ReactionLike)
	require.NoError(t, err)
	counts, err := svc.React(ctx, a, post.Slug, enums.ReactionLove)
	require.NoError(t, err)
	require.Equal(t, map[enums.ReactionKind]int{enums.ReactionLike: 1, enums.ReactionLove: 1}, counts)

	counts, err = svc.ClearReaction(ctx, b, post.Slug)
	require.NoError(t, err)
	require.Equal(t, map[enums.ReactionKind]int{enums.ReactionLove: 1}, counts)

	_, err = svc.React(ctx, a, post.Slug, enums.ReactionKind("angry"))
	require.Equal(t, pkgerrors.CodeValidation, codeOf(err))

	full, err := svc.GetPublished(ctx, post.Slug)
	require.NoError(t, err)
	require.Equal(t, 1, full.Reactions[enums.ReactionLove])
}
