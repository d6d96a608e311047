package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/petfinder-app/petfinder-backend/api/middleware"
	"github.com/petfinder-app/petfinder-backend/api/responses"
	"github.com/petfinder-app/petfinder-backend/api/validators"
	"github.com/petfinder-app/petfinder-backend/internal/blog"
	"github.com/petfinder-app/petfinder-backend/pkg/enums"
	"github.com/petfinder-app/petfinder-backend/pkg/logger"
)

type reactionRequest struct {
	Kind enums.ReactionKind `json:"kind" validate:"required,oneof=like love laugh sad"`
}

func blogActor(r *http.Request) (blog.Actor, error) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		return blog.Actor{}, err
	}
	return blog.Actor{UserID: userID, IsAdmin: middleware.IsAdminFromContext(r.Context())}, nil
}

func ListPosts(svc blog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "blog service")
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		q := r.URL.Query()
		page, err := svc.ListPublished(r.Context(), blog.ListPostsInput{
			CategorySlug: validators.QueryText(q, "category", 80),
			TagSlug:      validators.QueryText(q, "tag", 80),
			Params:       params,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func GetPost(svc blog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "blog service")
			return
		}
		post, err := svc.GetPublished(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, post)
	}
}

// ListMyPosts includes drafts.
func ListMyPosts(svc blog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "blog service")
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListMine(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func CreatePost(svc blog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "blog service")
			return
		}
		actor, err := blogActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body blog.CreatePostInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		post, err := svc.CreatePost(r.Context(), actor, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, post)
	}
}

func UpdatePost(svc blog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "blog service")
			return
		}
		actor, err := blogActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		postID, err := validators.ParseUUIDParam(r, "postId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body blog.UpdatePostInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		post, err := svc.UpdatePost(r.Context(), actor, postID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, post)
	}
}

func PublishPost(svc blog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "blog service")
			return
		}
		actor, err := blogActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		postID, err := validators.ParseUUIDParam(r, "postId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		post, err := svc.PublishPost(r.Context(), actor, postID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, post)
	}
}

func DeletePost(svc blog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "blog service")
			return
		}
		actor, err := blogActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		postID, err := validators.ParseUUIDParam(r, "postId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeletePost(r.Context(), actor, postID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func ListBlogCategories(svc blog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "blog service")
			return
		}
		categories, err := svc.ListCategories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, categories)
	}
}

func ListBlogTags(svc blog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "blog service")
			return
		}
		tags, err := svc.ListTags(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tags)
	}
}

// ListComments returns the approved comment tree of a post.
func ListComments(svc blog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "blog service")
			return
		}
		tree, err := svc.CommentTree(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tree)
	}
}

// AddComment queues a comment for moderation.
func AddComment(svc blog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "blog service")
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body blog.CreateCommentInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		comment, err := svc.AddComment(r.Context(), userID, chi.URLParam(r, "slug"), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, comment)
	}
}

// SetReaction replaces the caller's reaction and returns the new counts.
func SetReaction(svc blog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "blog service")
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body reactionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		counts, err := svc.React(r.Context(), userID, chi.URLParam(r, "slug"), body.Kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, counts)
	}
}

func ClearReaction(svc blog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "blog service")
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		counts, err := svc.ClearReaction(r.Context(), userID, chi.URLParam(r, "slug"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, counts)
	}
}
