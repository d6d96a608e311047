package controllers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/petfinder-app/petfinder-backend/api/responses"
	"github.com/petfinder-app/petfinder-backend/api/validators"
	"github.com/petfinder-app/petfinder-backend/internal/pets"
	"github.com/petfinder-app/petfinder-backend/pkg/enums"
	pkgerrors "github.com/petfinder-app/petfinder-backend/pkg/errors"
	"github.com/petfinder-app/petfinder-backend/pkg/logger"
)

type petStatusRequest struct {
	Status enums.PetStatus `json:"status" validate:"required,oneof=home lost"`
}

type petNFCRequest struct {
	NFCID *string `json:"nfc_id" validate:"omitempty,min=4,max=64"`
}

// PublicPet renders the profile reached by scanning a tag.
func PublicPet(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "pet service")
			return
		}
		view, err := svc.LookupByPublicID(r.Context(), chi.URLParam(r, "qrId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// PublicPetQR streams a PNG encoding the pet's public URL. ?size= sets the
// edge length in pixels.
func PublicPetQR(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "pet service")
			return
		}
		size, err := validators.ParseQueryInt(r, "size", 0, 64, 2048)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		png, err := svc.QRCode(r.Context(), chi.URLParam(r, "qrId"), size)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(png)))
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(png)
	}
}

// NFCRedirect sends a tapped tag to the public profile page.
func NFCRedirect(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "pet service")
			return
		}
		qrID, err := svc.ResolveNFC(r.Context(), chi.URLParam(r, "nfcId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		http.Redirect(w, r, "/p/"+url.PathEscape(qrID), http.StatusFound)
	}
}

func ListMyPets(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "pet service")
			return
		}
		ownerID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListMine(r.Context(), ownerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func CreatePet(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "pet service")
			return
		}
		ownerID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body pets.CreatePetInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pet, err := svc.Create(r.Context(), ownerID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, pet)
	}
}

// ownerAndPet resolves the caller and the {petId} path parameter.
func ownerAndPet(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	ownerID, err := userIDFromRequest(r)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	petID, err := validators.ParseUUIDParam(r, "petId")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return ownerID, petID, nil
}

func GetPet(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "pet service")
			return
		}
		ownerID, petID, err := ownerAndPet(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pet, err := svc.Get(r.Context(), ownerID, petID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pet)
	}
}

func UpdatePet(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "pet service")
			return
		}
		ownerID, petID, err := ownerAndPet(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body pets.UpdatePetInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pet, err := svc.Update(r.Context(), ownerID, petID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pet)
	}
}

func DeletePet(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "pet service")
			return
		}
		ownerID, petID, err := ownerAndPet(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), ownerID, petID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// SetPetStatus flips a pet between home and lost.
func SetPetStatus(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "pet service")
			return
		}
		ownerID, petID, err := ownerAndPet(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body petStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pet, err := svc.SetStatus(r.Context(), ownerID, petID, body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pet)
	}
}

// AssignPetNFC binds a tag id to the pet; a null nfc_id unbinds it.
func AssignPetNFC(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "pet service")
			return
		}
		ownerID, petID, err := ownerAndPet(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body petNFCRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if body.NFCID != nil {
			trimmed := strings.TrimSpace(*body.NFCID)
			if trimmed == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "nfc_id cannot be blank"))
				return
			}
			body.NFCID = &trimmed
		}
		pet, err := svc.AssignNFC(r.Context(), ownerID, petID, body.NFCID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pet)
	}
}
