package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LoginEvent mirrors a row appended to the login tracking sheet.
type LoginEvent struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Username  string    `gorm:"index" json:"username"`
	LoginTime time.Time `json:"login_time"`
	Synced    bool      `json:"synced"`
	CreatedAt time.Time `json:"created_at"`
}

func (e *LoginEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
