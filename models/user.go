package models

import (
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Username  string `json:"username" gorm:"size:150;uniqueIndex;not null"`
	Email     string `json:"email" gorm:"size:254;uniqueIndex;not null"`
	Password  string `json:"-" gorm:"not null"`
	FirstName string `json:"first_name" gorm:"size:150"`

	// Relationships
	Profile   *UserProfile   `json:"profile,omitempty" gorm:"foreignKey:UserID"`
	Locations []UserLocation `json:"locations,omitempty" gorm:"foreignKey:UserID"`
}

type UserProfile struct {
	gorm.Model
	UserID uint `json:"user_id" gorm:"uniqueIndex;not null"`

	// The email the user wants to share with others on exchange requests,
	// not necessarily the registration email.
	ContactEmail string `json:"contact_email" gorm:"size:254;not null"`

	// Some alternative means of contact, e.g. a WhatsApp phone number.
	AlternateContact string `json:"alternate_contact" gorm:"size:200"`

	// Free-form notes shown on the public profile and on exchange requests.
	About string `json:"about"`
}

// Exchange areas users can select. Affects which offered books they see.
const (
	AreaCABA     = "CABA"
	AreaGBANorte = "GBA_NORTE"
	AreaGBAOeste = "GBA_OESTE"
	AreaGBASur   = "GBA_SUR"
)

var LocationAreas = []string{AreaCABA, AreaGBANorte, AreaGBAOeste, AreaGBASur}

func IsValidArea(area string) bool {
	for _, a := range LocationAreas {
		if a == area {
			return true
		}
	}
	return false
}

// UserLocation represents a region where a user offers to make exchanges.
// No soft delete: profile edits replace the whole set, and a lingering
// soft-deleted row would trip the (user, area) unique index.
type UserLocation struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	UserID uint   `json:"user_id" gorm:"not null;uniqueIndex:idx_user_area"`
	Area   string `json:"area" gorm:"size:20;not null;uniqueIndex:idx_user_area"`
}
