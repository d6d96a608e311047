package pets

import (
	"time"

	"github.com/google/uuid"

	"github.com/petfinder-app/petfinder-backend/pkg/db/models"
	"github.com/petfinder-app/petfinder-backend/pkg/enums"
)

const dateLayout = "2006-01-02"

// PetDTO is the owner-facing representation of a pet.
type PetDTO struct {
	ID                uuid.UUID       `json:"id"`
	OwnerID           uuid.UUID       `json:"owner_id"`
	QRID              string          `json:"qr_id"`
	NFCID             *string         `json:"nfc_id,omitempty"`
	Name              string          `json:"name"`
	Species           string          `json:"species"`
	Breed             *string         `json:"breed,omitempty"`
	Color             *string         `json:"color,omitempty"`
	City              *string         `json:"city,omitempty"`
	Notes             *string         `json:"notes,omitempty"`
	PhotoURL          *string         `json:"photo_url,omitempty"`
	Status            enums.PetStatus `json:"status"`
	Birthdate         *string         `json:"birthdate,omitempty"`
	Sex               enums.PetSex    `json:"sex"`
	WeightKg          *float64        `json:"weight_kg,omitempty"`
	Sterilized        bool            `json:"sterilized"`
	MicrochipID       *string         `json:"microchip_id,omitempty"`
	Allergies         *string         `json:"allergies,omitempty"`
	MedicalConditions *string         `json:"medical_conditions,omitempty"`
	Medications       *string         `json:"medications,omitempty"`
	LastVetVisit      *string         `json:"last_vet_visit,omitempty"`
	VetClinic         *string         `json:"vet_clinic,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// OwnerContact is the subset of the owner shown to whoever scans the tag.
type OwnerContact struct {
	Name         string  `json:"name"`
	Phone        *string `json:"phone,omitempty"`
	Email        string  `json:"email"`
	City         *string `json:"city,omitempty"`
	InstagramURL *string `json:"instagram_url,omitempty"`
	FacebookURL  *string `json:"facebook_url,omitempty"`
	WhatsappURL  *string `json:"whatsapp_url,omitempty"`
	PhotoURL     *string `json:"photo_url,omitempty"`
}

// PublicPetView is returned by the unauthenticated QR lookup.
type PublicPetView struct {
	Pet   PetDTO       `json:"pet"`
	Owner OwnerContact `json:"owner"`
}

// CreatePetInput is the payload for registering a pet.
type CreatePetInput struct {
	Name              string        `json:"name" validate:"required,max=120"`
	Species           string        `json:"species" validate:"required,max=60"`
	Breed             *string       `json:"breed" validate:"omitempty,max=120"`
	Color             *string       `json:"color" validate:"omitempty,max=60"`
	City              *string       `json:"city" validate:"omitempty,max=120"`
	Notes             *string       `json:"notes" validate:"omitempty,max=2000"`
	PhotoURL          *string       `json:"photo_url" validate:"omitempty,url"`
	Birthdate         *string       `json:"birthdate" validate:"omitempty,datetime=2006-01-02"`
	Sex               *enums.PetSex `json:"sex" validate:"omitempty,oneof=male female unknown"`
	WeightKg          *float64      `json:"weight_kg" validate:"omitempty,gt=0,lt=1000"`
	Sterilized        bool          `json:"sterilized"`
	MicrochipID       *string       `json:"microchip_id" validate:"omitempty,max=64"`
	Allergies         *string       `json:"allergies"`
	MedicalConditions *string       `json:"medical_conditions"`
	Medications       *string       `json:"medications"`
	LastVetVisit      *string       `json:"last_vet_visit" validate:"omitempty,datetime=2006-01-02"`
	VetClinic         *string       `json:"vet_clinic" validate:"omitempty,max=120"`
}

// UpdatePetInput patches only the fields that are present.
type UpdatePetInput struct {
	Name              *string       `json:"name" validate:"omitempty,min=1,max=120"`
	Species           *string       `json:"species" validate:"omitempty,min=1,max=60"`
	Breed             *string       `json:"breed" validate:"omitempty,max=120"`
	Color             *string       `json:"color" validate:"omitempty,max=60"`
	City              *string       `json:"city" validate:"omitempty,max=120"`
	Notes             *string       `json:"notes" validate:"omitempty,max=2000"`
	PhotoURL          *string       `json:"photo_url" validate:"omitempty,url"`
	Birthdate         *string       `json:"birthdate" validate:"omitempty,datetime=2006-01-02"`
	Sex               *enums.PetSex `json:"sex" validate:"omitempty,oneof=male female unknown"`
	WeightKg          *float64      `json:"weight_kg" validate:"omitempty,gt=0,lt=1000"`
	Sterilized        *bool         `json:"sterilized"`
	MicrochipID       *string       `json:"microchip_id" validate:"omitempty,max=64"`
	Allergies         *string       `json:"allergies"`
	MedicalConditions *string       `json:"medical_conditions"`
	Medications       *string       `json:"medications"`
	LastVetVisit      *string       `json:"last_vet_visit" validate:"omitempty,datetime=2006-01-02"`
	VetClinic         *string       `json:"vet_clinic" validate:"omitempty,max=120"`
}

// HealthRecordInput is shared by vaccinations (Name) and dewormings (Product).
type HealthRecordInput struct {
	Name      string  `json:"name" validate:"required,max=120"`
	AppliedOn string  `json:"applied_on" validate:"required,datetime=2006-01-02"`
	NextDueOn *string `json:"next_due_on" validate:"omitempty,datetime=2006-01-02"`
	Notes     *string `json:"notes" validate:"omitempty,max=1000"`
}

// HealthRecordDTO is a vaccination or deworming entry.
type HealthRecordDTO struct {
	ID        uuid.UUID `json:"id"`
	PetID     uuid.UUID `json:"pet_id"`
	Name      string    `json:"name"`
	AppliedOn string    `json:"applied_on"`
	NextDueOn *string   `json:"next_due_on,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
}

func FromModel(p *models.Pet) PetDTO {
	return PetDTO{
		ID:                p.ID,
		OwnerID:           p.OwnerID,
		QRID:              p.QRID,
		NFCID:             p.NFCID,
		Name:              p.Name,
		Species:           p.Species,
		Breed:             p.Breed,
		Color:             p.Color,
		City:              p.City,
		Notes:             p.Notes,
		PhotoURL:          p.PhotoURL,
		Status:            p.Status,
		Birthdate:         formatDate(p.Birthdate),
		Sex:               p.Sex,
		WeightKg:          p.WeightKg,
		Sterilized:        p.Sterilized,
		MicrochipID:       p.MicrochipID,
		Allergies:         p.Allergies,
		MedicalConditions: p.MedicalConditions,
		Medications:       p.Medications,
		LastVetVisit:      formatDate(p.LastVetVisit),
		VetClinic:         p.VetClinic,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func ownerContact(u *models.User) OwnerContact {
	if u == nil {
		return OwnerContact{}
	}
	return OwnerContact{
		Name:         u.Name,
		Phone:        u.Phone,
		Email:        u.Email,
		City:         u.City,
		InstagramURL: u.InstagramURL,
		FacebookURL:  u.FacebookURL,
		WhatsappURL:  u.WhatsappURL,
		PhotoURL:     u.PhotoURL,
	}
}

func vaccinationDTO(v models.PetVaccination) HealthRecordDTO {
	return HealthRecordDTO{
		ID:        v.ID,
		PetID:     v.PetID,
		Name:      v.Name,
		AppliedOn: v.AppliedOn.Format(dateLayout),
		NextDueOn: formatDate(v.NextDueOn),
		Notes:     v.Notes,
	}
}

func dewormingDTO(d models.PetDeworming) HealthRecordDTO {
	return HealthRecordDTO{
		ID:        d.ID,
		PetID:     d.PetID,
		Name:      d.Product,
		AppliedOn: d.AppliedOn.Format(dateLayout),
		NextDueOn: formatDate(d.NextDueOn),
		Notes:     d.Notes,
	}
}

func (in CreatePetInput) toModel(ownerID uuid.UUID, qrID string) (*models.Pet, error) {
	birthdate, err := parseDate(in.Birthdate)
	if err != nil {
		return nil, err
	}
	lastVisit, err := parseDate(in.LastVetVisit)
	if err != nil {
		return nil, err
	}
	sex := enums.PetSexUnknown
	if in.Sex != nil {
		sex = *in.Sex
	}
	return &models.Pet{
		OwnerID:           ownerID,
		QRID:              qrID,
		Name:              in.Name,
		Species:           in.Species,
		Breed:             in.Breed,
		Color:             in.Color,
		City:              in.City,
		Notes:             in.Notes,
		PhotoURL:          in.PhotoURL,
		Status:            enums.PetStatusHome,
		Birthdate:         birthdate,
		Sex:               sex,
		WeightKg:          in.WeightKg,
		Sterilized:        in.Sterilized,
		MicrochipID:       in.MicrochipID,
		Allergies:         in.Allergies,
		MedicalConditions: in.MedicalConditions,
		Medications:       in.Medications,
		LastVetVisit:      lastVisit,
		VetClinic:         in.VetClinic,
	}, nil
}

// Columns maps the present fields to column updates.
func (in UpdatePetInput) Columns() (map[string]any, error) {
	cols := map[string]any{}
	setString := func(col string, v *string) {
		if v != nil {
			cols[col] = *v
		}
	}
	setString("name", in.Name)
	setString("species", in.Species)
	setString("breed", in.Breed)
	setString("color", in.Color)
	setString("city", in.City)
	setString("notes", in.Notes)
	setString("photo_url", in.PhotoURL)
	setString("microchip_id", in.MicrochipID)
	setString("allergies", in.Allergies)
	setString("medical_conditions", in.MedicalConditions)
	setString("medications", in.Medications)
	setString("vet_clinic", in.VetClinic)
	if in.Sex != nil {
		cols["sex"] = *in.Sex
	}
	if in.WeightKg != nil {
		cols["weight_kg"] = *in.WeightKg
	}
	if in.Sterilized != nil {
		cols["sterilized"] = *in.Sterilized
	}
	for col, raw := range map[string]*string{"birthdate": in.Birthdate, "last_vet_visit": in.LastVetVisit} {
		d, err := parseDate(raw)
		if err != nil {
			return nil, err
		}
		if d != nil {
			cols[col] = *d
		}
	}
	return cols, nil
}

func parseDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}
