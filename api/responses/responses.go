package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/petfinder-app/petfinder-backend/pkg/errors"
	"github.com/petfinder-app/petfinder-backend/pkg/logger"
)

// Every JSON response is either {"data": ...} or {"error": {...}}.
type dataBody struct {
	Data any `json:"data"`
}

type errorBody struct {
	Error Problem `json:"error"`
}

// Problem is the client facing shape of a failed request.
type Problem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, dataBody{Data: data})
}

// WriteNoContent answers 204 for deletes.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError turns err into a Problem. Errors without a code become
// INTERNAL_ERROR and never leak their text. Server side failures are logged
// as errors, client mistakes as warnings.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("error response without a cause")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	problem := ProblemFor(typed)
	status := typed.Code().HTTPStatus()

	if logg != nil {
		logCtx := logg.WithFields(ctx, pkgerrors.LogFields(err))
		if status >= http.StatusInternalServerError {
			logg.Error(logCtx, "request failed", err)
		} else {
			logg.Warn(logg.WithField(logCtx, "http_status", status), "request rejected")
		}
	}
	writeJSON(w, status, errorBody{Error: problem})
}

// ProblemFor builds the public view of e.
func ProblemFor(e *pkgerrors.Error) Problem {
	code := e.Code()
	p := Problem{Code: string(code), Message: code.PublicMessage()}
	if msg := e.Message(); msg != "" && !code.HidesMessage() {
		p.Message = msg
	}
	if code.ExposesDetails() {
		p.Details = e.Details()
	}
	return p
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// the status line is gone; a failed encode can only mean the client left
	_ = json.NewEncoder(w).Encode(payload)
}
