package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/petfinder-app/petfinder-backend/pkg/enums"
)

// Pet is a registered animal reachable publicly through its QR id or NFC tag.
type Pet struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID           uuid.UUID       `gorm:"column:owner_id;type:uuid;not null"`
	QRID              string          `gorm:"column:qr_id;not null;uniqueIndex"`
	NFCID             *string         `gorm:"column:nfc_id;uniqueIndex"`
	Name              string          `gorm:"column:name;not null"`
	Species           string          `gorm:"column:species;not null"`
	Breed             *string         `gorm:"column:breed"`
	Color             *string         `gorm:"column:color"`
	City              *string         `gorm:"column:city"`
	Notes             *string         `gorm:"column:notes"`
	PhotoURL          *string         `gorm:"column:photo_url"`
	Status            enums.PetStatus `gorm:"column:status;type:text;not null;default:'home'"`
	Birthdate         *time.Time      `gorm:"column:birthdate;type:date"`
	Sex               enums.PetSex    `gorm:"column:sex;type:text;not null;default:'unknown'"`
	WeightKg          *float64        `gorm:"column:weight_kg;type:numeric(5,2)"`
	Sterilized        bool            `gorm:"column:sterilized;not null;default:false"`
	MicrochipID       *string         `gorm:"column:microchip_id"`
	Allergies         *string         `gorm:"column:allergies"`
	MedicalConditions *string         `gorm:"column:medical_conditions"`
	Medications       *string         `gorm:"column:medications"`
	LastVetVisit      *time.Time      `gorm:"column:last_vet_visit;type:date"`
	VetClinic         *string         `gorm:"column:vet_clinic"`
	Owner             *User           `gorm:"foreignKey:OwnerID"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Pet) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// PetVaccination records one applied vaccine.
type PetVaccination struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	PetID     uuid.UUID  `gorm:"column:pet_id;type:uuid;not null"`
	Name      string     `gorm:"column:name;not null"`
	AppliedOn time.Time  `gorm:"column:applied_on;type:date;not null"`
	NextDueOn *time.Time `gorm:"column:next_due_on;type:date"`
	Notes     *string    `gorm:"column:notes"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (v *PetVaccination) BeforeCreate(*gorm.DB) error {
	assignID(&v.ID)
	return nil
}

// PetDeworming records one deworming treatment.
type PetDeworming struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	PetID     uuid.UUID  `gorm:"column:pet_id;type:uuid;not null"`
	Product   string     `gorm:"column:product;not null"`
	AppliedOn time.Time  `gorm:"column:applied_on;type:date;not null"`
	NextDueOn *time.Time `gorm:"column:next_due_on;type:date"`
	Notes     *string    `gorm:"column:notes"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (d *PetDeworming) BeforeCreate(*gorm.DB) error {
	assignID(&d.ID)
	return nil
}
