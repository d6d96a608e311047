// Package admin holds the back-office handlers mounted under /api/admin.
// Every route here sits behind middleware.RequireAdmin.
package admin

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/petfinder-app/petfinder-backend/api/middleware"
	"github.com/petfinder-app/petfinder-backend/api/responses"
	pkgerrors "github.com/petfinder-app/petfinder-backend/pkg/errors"
	"github.com/petfinder-app/petfinder-backend/pkg/logger"
)

func actorID(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.UserUUIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return id, nil
}

func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" unavailable"))
}

func validationErr(msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg)
}
