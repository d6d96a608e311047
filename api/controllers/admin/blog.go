package admin

import (
	"net/http"

	"github.com/petfinder-app/petfinder-backend/api/responses"
	"github.com/petfinder-app/petfinder-backend/api/validators"
	"github.com/petfinder-app/petfinder-backend/internal/blog"
	"github.com/petfinder-app/petfinder-backend/pkg/enums"
	"github.com/petfinder-app/petfinder-backend/pkg/logger"
)

type moderationRequest struct {
	Status enums.CommentStatus `json:"status" validate:"required,oneof=approved rejected"`
}

// PendingComments is the moderation queue.
func PendingComments(svc blog.Service, logg *logger.Logger) http.HandlerFunc {
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
		page, err := svc.ListPendingComments(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func ModerateComment(svc blog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "blog service")
			return
		}
		commentID, err := validators.ParseUUIDParam(r, "commentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body moderationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		comment, err := svc.ModerateComment(r.Context(), commentID, body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, comment)
	}
}

func CreateBlogCategory(svc blog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "blog service")
			return
		}
		var body blog.CreateCategoryInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := svc.CreateCategory(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, category)
	}
}
