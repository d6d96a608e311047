package pets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"gorm.io/gorm"

	"github.com/petfinder-app/petfinder-backend/pkg/db"
	"github.com/petfinder-app/petfinder-backend/pkg/db/models"
	"github.com/petfinder-app/petfinder-backend/pkg/enums"
	pkgerrors "github.com/petfinder-app/petfinder-backend/pkg/errors"
	"github.com/petfinder-app/petfinder-backend/pkg/outbox"
	"github.com/petfinder-app/petfinder-backend/pkg/outbox/payloads"
	"github.com/petfinder-app/petfinder-backend/pkg/pagination"
	"github.com/petfinder-app/petfinder-backend/pkg/security"
)

const (
	// QRIDLength is the length of generated public identifiers.
	QRIDLength = 12
	// MaxNFCIDLength matches the nfc_id column width.
	MaxNFCIDLength = 32

	qrIDAttempts   = 5
	defaultQRSize  = 512
	maxQRImageSize = 2048
)

// Service covers the pet registry: public lookup and owner CRUD.
type Service interface {
	LookupByPublicID(ctx context.Context, qrID string) (*PublicPetView, error)
	ResolveNFC(ctx context.Context, nfcID string) (string, error)
	QRCode(ctx context.Context, qrID string, size int) ([]byte, error)

	Create(ctx context.Context, ownerID uuid.UUID, input CreatePetInput) (*PetDTO, error)
	Get(ctx context.Context, ownerID, petID uuid.UUID) (*PetDTO, error)
	ListMine(ctx context.Context, ownerID uuid.UUID, params pagination.Params) (*pagination.Page[PetDTO], error)
	Update(ctx context.Context, ownerID, petID uuid.UUID, input UpdatePetInput) (*PetDTO, error)
	Delete(ctx context.Context, ownerID, petID uuid.UUID) error
	SetStatus(ctx context.Context, ownerID, petID uuid.UUID, status enums.PetStatus) (*PetDTO, error)
	AssignNFC(ctx context.Context, ownerID, petID uuid.UUID, nfcID *string) (*PetDTO, error)

	AddVaccination(ctx context.Context, ownerID, petID uuid.UUID, input HealthRecordInput) (*HealthRecordDTO, error)
	ListVaccinations(ctx context.Context, ownerID, petID uuid.UUID) ([]HealthRecordDTO, error)
	DeleteVaccination(ctx context.Context, ownerID, petID, recordID uuid.UUID) error
	AddDeworming(ctx context.Context, ownerID, petID uuid.UUID, input HealthRecordInput) (*HealthRecordDTO, error)
	ListDewormings(ctx context.Context, ownerID, petID uuid.UUID) ([]HealthRecordDTO, error)
	DeleteDeworming(ctx context.Context, ownerID, petID, recordID uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the pet service.
type ServiceParams struct {
	Repo      *Repository
	Tx        txRunner
	Outbox    outbox.Emitter
	PublicURL func(qrID string) string
	// NewQRID overrides identifier generation in tests.
	NewQRID func() (string, error)
}

type service struct {
	repo      *Repository
	tx        txRunner
	outbox    outbox.Emitter
	publicURL func(string) string
	newQRID   func() (string, error)
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("pets repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.PublicURL == nil {
		return nil, fmt.Errorf("public url builder required")
	}
	gen := params.NewQRID
	if gen == nil {
		gen = func() (string, error) {
			return security.RandomString(QRIDLength, security.Alphanumeric)
		}
	}
	return &service{
		repo:      params.Repo,
		tx:        params.Tx,
		outbox:    params.Outbox,
		publicURL: params.PublicURL,
		newQRID:   gen,
	}, nil
}

func (s *service) LookupByPublicID(ctx context.Context, qrID string) (*PublicPetView, error) {
	qrID = strings.TrimSpace(qrID)
	if qrID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pet not found")
	}
	pet, err := s.repo.FindByQRID(ctx, qrID)
	if err != nil {
		return nil, mapNotFound(err, "pet not found", "lookup pet")
	}
	return &PublicPetView{Pet: FromModel(pet), Owner: ownerContact(pet.Owner)}, nil
}

func (s *service) ResolveNFC(ctx context.Context, nfcID string) (string, error) {
	nfcID = strings.TrimSpace(nfcID)
	if nfcID == "" || len(nfcID) > MaxNFCIDLength {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "nfc tag not found")
	}
	pet, err := s.repo.FindByNFCID(ctx, nfcID)
	if err != nil {
		return "", mapNotFound(err, "nfc tag not found", "resolve nfc tag")
	}
	return pet.QRID, nil
}

// QRCode renders a PNG encoding the pet's public profile URL.
func (s *service) QRCode(ctx context.Context, qrID string, size int) ([]byte, error) {
	if _, err := s.LookupByPublicID(ctx, qrID); err != nil {
		return nil, err
	}
	if size <= 0 {
		size = defaultQRSize
	}
	if size > maxQRImageSize {
		size = maxQRImageSize
	}
	png, err := qrcode.Encode(s.publicURL(qrID), qrcode.Medium, size)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render qr code")
	}
	return png, nil
}

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, input CreatePetInput) (*PetDTO, error) {
	for attempt := 0; attempt < qrIDAttempts; attempt++ {
		qrID, err := s.newQRID()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate qr id")
		}
		pet, err := input.toModel(ownerID, qrID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date")
		}
		err = s.repo.Create(ctx, pet)
		if err == nil {
			dto := FromModel(pet)
			return &dto, nil
		}
		if !db.IsUniqueViolation(err, "ux_pets_qr_id", "pets.qr_id") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create pet")
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "could not allocate a unique qr id")
}

func (s *service) Get(ctx context.Context, ownerID, petID uuid.UUID) (*PetDTO, error) {
	pet, err := s.loadOwned(ctx, ownerID, petID)
	if err != nil {
		return nil, err
	}
	dto := FromModel(pet)
	return &dto, nil
}

func (s *service) ListMine(ctx context.Context, ownerID uuid.UUID, params pagination.Params) (*pagination.Page[PetDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListByOwner(ctx, ownerID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list pets")
	}
	dtos := make([]PetDTO, len(rows))
	for i := range rows {
		dtos[i] = FromModel(&rows[i])
	}
	page := pagination.BuildPage(dtos, params.Limit, func(p PetDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return &page, nil
}

func (s *service) Update(ctx context.Context, ownerID, petID uuid.UUID, input UpdatePetInput) (*PetDTO, error) {
	cols, err := input.Columns()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date")
	}
	if err := s.repo.Update(ctx, petID, ownerID, cols); err != nil {
		return nil, mapNotFound(err, "pet not found", "update pet")
	}
	return s.Get(ctx, ownerID, petID)
}

func (s *service) Delete(ctx context.Context, ownerID, petID uuid.UUID) error {
	if err := s.repo.Delete(ctx, petID, ownerID); err != nil {
		return mapNotFound(err, "pet not found", "delete pet")
	}
	return nil
}

// SetStatus flips home/lost. Moving to lost queues a pet_reported_lost event
// in the same transaction.
func (s *service) SetStatus(ctx context.Context, ownerID, petID uuid.UUID, status enums.PetStatus) (*PetDTO, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be home or lost")
	}
	var updated *models.Pet
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		pet, err := repo.FindByID(ctx, petID)
		if err != nil {
			return err
		}
		if pet.OwnerID != ownerID {
			return gorm.ErrRecordNotFound
		}
		previous := pet.Status
		if previous == status {
			updated = pet
			return nil
		}
		if err := repo.Update(ctx, petID, ownerID, map[string]any{"status": status}); err != nil {
			return err
		}
		pet.Status = status
		updated = pet

		if status != enums.PetStatusLost {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPetReportedLost,
			AggregateType: enums.AggregatePet,
			AggregateID:   pet.ID,
			Actor:         outbox.UserActor(&ownerID, false),
			Data: payloads.PetReportedLostEvent{
				PetID:   pet.ID,
				QRID:    pet.QRID,
				Name:    pet.Name,
				OwnerID: ownerID,
			},
		})
	})
	if err != nil {
		return nil, mapNotFound(err, "pet not found", "set pet status")
	}
	dto := FromModel(updated)
	return &dto, nil
}

// AssignNFC links (or with nil, unlinks) an NFC tag id.
func (s *service) AssignNFC(ctx context.Context, ownerID, petID uuid.UUID, nfcID *string) (*PetDTO, error) {
	var value any
	if nfcID != nil {
		trimmed := strings.TrimSpace(*nfcID)
		if trimmed == "" || len(trimmed) > MaxNFCIDLength {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "nfc id must be 1-32 characters")
		}
		value = trimmed
	}
	err := s.repo.Update(ctx, petID, ownerID, map[string]any{"nfc_id": value})
	if err != nil {
		if db.IsUniqueViolation(err, "ux_pets_nfc_id", "pets.nfc_id") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "nfc id already assigned")
		}
		return nil, mapNotFound(err, "pet not found", "assign nfc id")
	}
	return s.Get(ctx, ownerID, petID)
}

func (s *service) AddVaccination(ctx context.Context, ownerID, petID uuid.UUID, input HealthRecordInput) (*HealthRecordDTO, error) {
	if _, err := s.loadOwned(ctx, ownerID, petID); err != nil {
		return nil, err
	}
	applied, next, err := input.dates()
	if err != nil {
		return nil, err
	}
	rec := &models.PetVaccination{PetID: petID, Name: input.Name, AppliedOn: applied, NextDueOn: next, Notes: input.Notes}
	if err := s.repo.CreateVaccination(ctx, rec); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create vaccination")
	}
	dto := vaccinationDTO(*rec)
	return &dto, nil
}

func (s *service) ListVaccinations(ctx context.Context, ownerID, petID uuid.UUID) ([]HealthRecordDTO, error) {
	if _, err := s.loadOwned(ctx, ownerID, petID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListVaccinations(ctx, petID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list vaccinations")
	}
	out := make([]HealthRecordDTO, len(rows))
	for i, row := range rows {
		out[i] = vaccinationDTO(row)
	}
	return out, nil
}

func (s *service) DeleteVaccination(ctx context.Context, ownerID, petID, recordID uuid.UUID) error {
	if _, err := s.loadOwned(ctx, ownerID, petID); err != nil {
		return err
	}
	if err := s.repo.DeleteVaccination(ctx, petID, recordID); err != nil {
		return mapNotFound(err, "vaccination not found", "delete vaccination")
	}
	return nil
}

func (s *service) AddDeworming(ctx context.Context, ownerID, petID uuid.UUID, input HealthRecordInput) (*HealthRecordDTO, error) {
	if _, err := s.loadOwned(ctx, ownerID, petID); err != nil {
		return nil, err
	}
	applied, next, err := input.dates()
	if err != nil {
		return nil, err
	}
	rec := &models.PetDeworming{PetID: petID, Product: input.Name, AppliedOn: applied, NextDueOn: next, Notes: input.Notes}
	if err := s.repo.CreateDeworming(ctx, rec); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create deworming")
	}
	dto := dewormingDTO(*rec)
	return &dto, nil
}

func (s *service) ListDewormings(ctx context.Context, ownerID, petID uuid.UUID) ([]HealthRecordDTO, error) {
	if _, err := s.loadOwned(ctx, ownerID, petID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListDewormings(ctx, petID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list dewormings")
	}
	out := make([]HealthRecordDTO, len(rows))
	for i, row := range rows {
		out[i] = dewormingDTO(row)
	}
	return out, nil
}

func (s *service) DeleteDeworming(ctx context.Context, ownerID, petID, recordID uuid.UUID) error {
	if _, err := s.loadOwned(ctx, ownerID, petID); err != nil {
		return err
	}
	if err := s.repo.DeleteDeworming(ctx, petID, recordID); err != nil {
		return mapNotFound(err, "deworming not found", "delete deworming")
	}
	return nil
}

// loadOwned hides other users' pets behind NotFound.
func (s *service) loadOwned(ctx context.Context, ownerID, petID uuid.UUID) (*models.Pet, error) {
	pet, err := s.repo.FindByID(ctx, petID)
	if err != nil {
		return nil, mapNotFound(err, "pet not found", "load pet")
	}
	if pet.OwnerID != ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pet not found")
	}
	return pet, nil
}

func (in HealthRecordInput) dates() (applied time.Time, next *time.Time, err error) {
	appliedPtr, err := parseDate(&in.AppliedOn)
	if err != nil || appliedPtr == nil {
		return time.Time{}, nil, pkgerrors.New(pkgerrors.CodeValidation, "applied_on must be YYYY-MM-DD")
	}
	next, err = parseDate(in.NextDueOn)
	if err != nil {
		return time.Time{}, nil, pkgerrors.New(pkgerrors.CodeValidation, "next_due_on must be YYYY-MM-DD")
	}
	if next != nil && next.Before(*appliedPtr) {
		return time.Time{}, nil, pkgerrors.New(pkgerrors.CodeValidation, "next_due_on must not precede applied_on")
	}
	return *appliedPtr, next, nil
}

func mapNotFound(err error, notFound, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}
