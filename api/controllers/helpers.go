package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/petfinder-app/petfinder-backend/api/middleware"
	"github.com/petfinder-app/petfinder-backend/api/responses"
	pkgerrors "github.com/petfinder-app/petfinder-backend/pkg/errors"
	"github.com/petfinder-app/petfinder-backend/pkg/logger"
)

func userIDFromRequest(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.UserUUIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return id, nil
}

func cartIDFromRequest(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.CartIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeInternal, "cart session missing")
	}
	return id, nil
}

func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" unavailable"))
}

func unavailableHandler(logg *logger.Logger, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		unavailable(w, r, logg, name)
	}
}
