// Package broker bridges the gap between "photo normalized" and "book row
// exists". Staged photos live as PendingUpload rows owned by the uploading
// user until they are consumed into a book or swept by age.
package broker

import (
	"errors"
	"fmt"
	"time"

	"github.com/giralibros/giralibros/models"
	"github.com/giralibros/giralibros/pipeline"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrNotFound means the handle references no live pending upload:
	// never staged, already consumed, or swept.
	ErrNotFound = errors.New("pending upload not found")

	// ErrForbidden means the handle exists but belongs to another user.
	// Callers must answer with a generic denial, not reveal the record.
	ErrForbidden = errors.New("pending upload owned by another user")
)

type Broker struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Broker {
	return &Broker{db: db}
}

// Stage stores a normalized photo under a fresh handle owned by ownerID.
// Each call creates an independent record.
func (b *Broker) Stage(ownerID uint, thumb *pipeline.Thumbnail) (string, error) {
	pending := models.PendingUpload{
		ID:        uuid.NewString(),
		UserID:    ownerID,
		Name:      thumb.Name,
		Data:      thumb.Data,
		CreatedAt: time.Now().UTC(),
	}

	if err := b.db.Create(&pending).Error; err != nil {
		return "", fmt.Errorf("stage pending upload: %w", err)
	}

	return pending.ID, nil
}

// Get returns a staged photo without consuming it, enforcing the same
// ownership rule as Consume. Used to serve previews back to the client.
func (b *Broker) Get(handle string, ownerID uint) (*models.PendingUpload, error) {
	pending, err := b.find(handle)
	if err != nil {
		return nil, err
	}
	if pending.UserID != ownerID {
		return nil, ErrForbidden
	}
	return pending, nil
}

// Consume returns the staged bytes and deletes the record in the same
// operation. The delete is conditional on the row still existing, so of any
// number of racing consumers (or a concurrent sweep) exactly one wins; the
// rest observe ErrNotFound. A handle can never be consumed twice.
func (b *Broker) Consume(handle string, ownerID uint) (*models.PendingUpload, error) {
	pending, err := b.find(handle)
	if err != nil {
		return nil, err
	}
	if pending.UserID != ownerID {
		// Leave the record intact: the rightful owner can still consume it.
		return nil, ErrForbidden
	}

	res := b.db.Where("id = ?", handle).Delete(&models.PendingUpload{})
	if res.Error != nil {
		return nil, fmt.Errorf("consume pending upload: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Deleted out from under us between lookup and delete.
		return nil, ErrNotFound
	}

	return pending, nil
}

// Sweep hard-deletes every pending upload older than maxAge, regardless of
// owner, and returns the number removed. Idempotent; new stages are never
// old enough to match, and a racing consume simply wins the row first.
func (b *Broker) Sweep(maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)

	res := b.db.Where("created_at < ?", cutoff).Delete(&models.PendingUpload{})
	if res.Error != nil {
		return 0, fmt.Errorf("sweep pending uploads: %w", res.Error)
	}

	return res.RowsAffected, nil
}

func (b *Broker) find(handle string) (*models.PendingUpload, error) {
	var pending models.PendingUpload
	err := b.db.First(&pending, "id = ?", handle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("look up pending upload: %w", err)
	}
	return &pending, nil
}
