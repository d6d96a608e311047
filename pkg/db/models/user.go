package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents an account holder: pet owner, shopper, blogger, sitter or admin.
type User struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Name         string     `gorm:"column:name;not null"`
	Email        string     `gorm:"column:email;type:text;not null;uniqueIndex"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	Phone        *string    `gorm:"column:phone"`
	City         *string    `gorm:"column:city"`
	InstagramURL *string    `gorm:"column:instagram_url"`
	FacebookURL  *string    `gorm:"column:facebook_url"`
	WhatsappURL  *string    `gorm:"column:whatsapp_url"`
	PhotoURL     *string    `gorm:"column:photo_url"`
	IsAdmin      bool       `gorm:"column:is_admin;not null;default:false"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	assignID(&u.ID)
	return nil
}
