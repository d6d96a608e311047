package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/petfinder-app/petfinder-backend/pkg/db/models"
)

// UserDTO is the transport shape that omits credentials.
type UserDTO struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        *string    `json:"phone,omitempty"`
	City         *string    `json:"city,omitempty"`
	InstagramURL *string    `json:"instagram_url,omitempty"`
	FacebookURL  *string    `json:"facebook_url,omitempty"`
	WhatsappURL  *string    `json:"whatsapp_url,omitempty"`
	PhotoURL     *string    `json:"photo_url,omitempty"`
	IsAdmin      bool       `json:"is_admin"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Name         string
	Email        string
	PasswordHash string
	Phone        *string
	City         *string
	IsAdmin      bool
}

// UpdateProfileDTO is an explicit patch: nil fields are left unchanged.
type UpdateProfileDTO struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Phone        *string `json:"phone,omitempty" validate:"omitempty,max=40"`
	City         *string `json:"city,omitempty" validate:"omitempty,max=120"`
	InstagramURL *string `json:"instagram_url,omitempty" validate:"omitempty,url"`
	FacebookURL  *string `json:"facebook_url,omitempty" validate:"omitempty,url"`
	WhatsappURL  *string `json:"whatsapp_url,omitempty" validate:"omitempty,url"`
	PhotoURL     *string `json:"photo_url,omitempty" validate:"omitempty,url"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Phone:        u.Phone,
		City:         u.City,
		InstagramURL: u.InstagramURL,
		FacebookURL:  u.FacebookURL,
		WhatsappURL:  u.WhatsappURL,
		PhotoURL:     u.PhotoURL,
		IsAdmin:      u.IsAdmin,
		LastLoginAt:  u.LastLoginAt,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		Name:         strings.TrimSpace(c.Name),
		Email:        strings.ToLower(strings.TrimSpace(c.Email)),
		PasswordHash: c.PasswordHash,
		Phone:        c.Phone,
		City:         c.City,
		IsAdmin:      c.IsAdmin,
	}
}

// Columns maps the patch onto column updates. Empty strings clear optional
// columns; an empty name is ignored.
func (u UpdateProfileDTO) Columns() map[string]any {
	out := map[string]any{}
	if u.Name != nil {
		if name := strings.TrimSpace(*u.Name); name != "" {
			out["name"] = name
		}
	}
	optional := map[string]*string{
		"phone":         u.Phone,
		"city":          u.City,
		"instagram_url": u.InstagramURL,
		"facebook_url":  u.FacebookURL,
		"whatsapp_url":  u.WhatsappURL,
		"photo_url":     u.PhotoURL,
	}
	for col, v := range optional {
		if v == nil {
			continue
		}
		if trimmed := strings.TrimSpace(*v); trimmed != "" {
			out[col] = trimmed
		} else {
			out[col] = nil
		}
	}
	return out
}
