package models

import (
	"gorm.io/gorm"
)

// OfferedBook is a book a user offers for exchanging.
type OfferedBook struct {
	gorm.Model
	UserID uint   `json:"user_id" gorm:"not null;index"`
	Title  string `json:"title" gorm:"size:200;not null"`
	Author string `json:"author" gorm:"size:200;not null"`
	Notes  string `json:"notes"`

	// Marks that this book is reserved for a not yet fulfilled exchange.
	Reserved bool `json:"reserved" gorm:"not null;default:false"`

	// Normalized cover photo. Bytes live in the row so that attaching,
	// replacing and deleting follow the book record transactionally.
	PhotoName string `json:"photo_name,omitempty"`
	Photo     []byte `json:"-"`

	User User `json:"-" gorm:"foreignKey:UserID"`
}

func (b *OfferedBook) HasPhoto() bool {
	return len(b.Photo) > 0
}

// WantedBook is a book a user is interested in.
type WantedBook struct {
	gorm.Model
	UserID uint   `json:"user_id" gorm:"not null;index"`
	Title  string `json:"title" gorm:"size:200;not null"`
	Author string `json:"author" gorm:"size:200;not null"`
}

// ExchangeRequest records that a user asked another for a book. Book fields
// are denormalized to survive changes or deletions of the target book, and
// the receiving user is nullable for the same reason.
type ExchangeRequest struct {
	gorm.Model
	FromUserID uint   `json:"from_user_id" gorm:"not null;index"`
	ToUserID   *uint  `json:"to_user_id" gorm:"index"`
	BookTitle  string `json:"book_title" gorm:"size:200;not null"`
	BookAuthor string `json:"book_author" gorm:"size:200;not null"`

	FromUser User  `json:"-" gorm:"foreignKey:FromUserID"`
	ToUser   *User `json:"-" gorm:"foreignKey:ToUserID"`
}
