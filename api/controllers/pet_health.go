package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/petfinder-app/petfinder-backend/api/responses"
	"github.com/petfinder-app/petfinder-backend/api/validators"
	"github.com/petfinder-app/petfinder-backend/internal/pets"
	"github.com/petfinder-app/petfinder-backend/pkg/logger"
)

// healthRecordOps binds the vaccination or deworming half of the pet service
// so both record kinds share one set of handlers.
type healthRecordOps struct {
	add    func(ctx context.Context, ownerID, petID uuid.UUID, in pets.HealthRecordInput) (*pets.HealthRecordDTO, error)
	list   func(ctx context.Context, ownerID, petID uuid.UUID) ([]pets.HealthRecordDTO, error)
	remove func(ctx context.Context, ownerID, petID, recordID uuid.UUID) error
}

func vaccinationOps(svc pets.Service) healthRecordOps {
	return healthRecordOps{add: svc.AddVaccination, list: svc.ListVaccinations, remove: svc.DeleteVaccination}
}

func dewormingOps(svc pets.Service) healthRecordOps {
	return healthRecordOps{add: svc.AddDeworming, list: svc.ListDewormings, remove: svc.DeleteDeworming}
}

func ListVaccinations(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg, "pet service")
	}
	return listHealthRecords(vaccinationOps(svc), logg)
}

func AddVaccination(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg, "pet service")
	}
	return addHealthRecord(vaccinationOps(svc), logg)
}

func DeleteVaccination(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg, "pet service")
	}
	return deleteHealthRecord(vaccinationOps(svc), logg)
}

func ListDewormings(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg, "pet service")
	}
	return listHealthRecords(dewormingOps(svc), logg)
}

func AddDeworming(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg, "pet service")
	}
	return addHealthRecord(dewormingOps(svc), logg)
}

func DeleteDeworming(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg, "pet service")
	}
	return deleteHealthRecord(dewormingOps(svc), logg)
}

func listHealthRecords(ops healthRecordOps, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, petID, err := ownerAndPet(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		records, err := ops.list(r.Context(), ownerID, petID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, records)
	}
}

func addHealthRecord(ops healthRecordOps, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, petID, err := ownerAndPet(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body pets.HealthRecordInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := ops.add(r.Context(), ownerID, petID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, record)
	}
}

func deleteHealthRecord(ops healthRecordOps, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, petID, err := ownerAndPet(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		recordID, err := validators.ParseUUIDParam(r, "recordId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := ops.remove(r.Context(), ownerID, petID, recordID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
