package models

import (
	"time"
)

// PendingUpload is a normalized cover photo staged before its book exists.
// The uuid primary key doubles as the opaque handle given to the client.
// Rows are short-lived and always hard-deleted (consumed or swept), so
// there is deliberately no gorm.Model / soft delete here.
type PendingUpload struct {
	ID        string    `json:"handle" gorm:"primaryKey;size:36"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	Name      string    `json:"name" gorm:"not null"`
	Data      []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}
