package pets

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/petfinder-app/petfinder-backend/pkg/db/models"
	"github.com/petfinder-app/petfinder-backend/pkg/pagination"
)

// Repository persists pets and their health records.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes the repository to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, pet *models.Pet) error {
	return r.db.WithContext(ctx).Create(pet).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Pet, error) {
	var pet models.Pet
	if err := r.db.WithContext(ctx).First(&pet, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &pet, nil
}

// FindByQRID loads the pet and its owner for the public profile.
func (r *Repository) FindByQRID(ctx context.Context, qrID string) (*models.Pet, error) {
	var pet models.Pet
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Where("qr_id = ?", qrID).
		First(&pet).Error
	if err != nil {
		return nil, err
	}
	return &pet, nil
}

func (r *Repository) FindByNFCID(ctx context.Context, nfcID string) (*models.Pet, error) {
	var pet models.Pet
	if err := r.db.WithContext(ctx).Where("nfc_id = ?", nfcID).First(&pet).Error; err != nil {
		return nil, err
	}
	return &pet, nil
}

// ListByOwner returns up to limit+1 pets, newest first, after cursor.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Pet, error) {
	q := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Pet
	err := q.Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// Update applies updates to the pet when it belongs to ownerID.
func (r *Repository) Update(ctx context.Context, id, ownerID uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.Pet{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the pet and its health records.
func (r *Repository) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND owner_id = ?", id, ownerID).Delete(&models.Pet{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("pet_id = ?", id).Delete(&models.PetVaccination{}).Error; err != nil {
			return err
		}
		return tx.Where("pet_id = ?", id).Delete(&models.PetDeworming{}).Error
	})
}

func (r *Repository) CreateVaccination(ctx context.Context, v *models.PetVaccination) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *Repository) ListVaccinations(ctx context.Context, petID uuid.UUID) ([]models.PetVaccination, error) {
	var rows []models.PetVaccination
	err := r.db.WithContext(ctx).
		Where("pet_id = ?", petID).
		Order("applied_on DESC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) DeleteVaccination(ctx context.Context, petID, id uuid.UUID) error {
	return deleteHealthRecord(r.db.WithContext(ctx), &models.PetVaccination{}, petID, id)
}

func (r *Repository) CreateDeworming(ctx context.Context, d *models.PetDeworming) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *Repository) ListDewormings(ctx context.Context, petID uuid.UUID) ([]models.PetDeworming, error) {
	var rows []models.PetDeworming
	err := r.db.WithContext(ctx).
		Where("pet_id = ?", petID).
		Order("applied_on DESC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) DeleteDeworming(ctx context.Context, petID, id uuid.UUID) error {
	return deleteHealthRecord(r.db.WithContext(ctx), &models.PetDeworming{}, petID, id)
}

func deleteHealthRecord(db *gorm.DB, model any, petID, id uuid.UUID) error {
	res := db.Where("id = ? AND pet_id = ?", id, petID).Delete(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
