package broker

import (
	"fmt"
	"testing"
	"time"

	"github.com/giralibros/giralibros/models"
	"github.com/giralibros/giralibros/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1) // one shared in-memory database

	require.NoError(t, db.AutoMigrate(&models.PendingUpload{}))
	return db
}

func testThumb(seed byte) *pipeline.Thumbnail {
	return &pipeline.Thumbnail{
		Data:   []byte{0xFF, 0xD8, seed, seed, seed},
		Name:   fmt.Sprintf("%02x.jpg", seed),
		Width:  400,
		Height: 600,
	}
}

func TestConsumeExactlyOnce(t *testing.T) {
	b := New(newTestDB(t))

	thumb := testThumb(1)
	handle, err := b.Stage(1, thumb)
	require.NoError(t, err)
	require.NotEmpty(t, handle)

	pending, err := b.Consume(handle, 1)
	require.NoError(t, err)
	assert.Equal(t, thumb.Data, pending.Data)
	assert.Equal(t, thumb.Name, pending.Name)

	_, err = b.Consume(handle, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConsumeEnforcesOwnership(t *testing.T) {
	b := New(newTestDB(t))

	// Stage as user A, attempt to consume as user B, then as A twice.
	handle, err := b.Stage(1, testThumb(2))
	require.NoError(t, err)

	_, err = b.Consume(handle, 2)
	assert.ErrorIs(t, err, ErrForbidden)

	// The failed attempt must leave the record intact.
	pending, err := b.Consume(handle, 1)
	require.NoError(t, err)
	assert.Equal(t, uint(1), pending.UserID)

	_, err = b.Consume(handle, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConsumeUnknownHandle(t *testing.T) {
	b := New(newTestDB(t))

	_, err := b.Consume("no-such-handle", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetDoesNotConsume(t *testing.T) {
	b := New(newTestDB(t))

	handle, err := b.Stage(1, testThumb(3))
	require.NoError(t, err)

	_, err = b.Get(handle, 2)
	assert.ErrorIs(t, err, ErrForbidden)

	for i := 0; i < 2; i++ {
		pending, err := b.Get(handle, 1)
		require.NoError(t, err)
		assert.Equal(t, handle, pending.ID)
	}

	_, err = b.Consume(handle, 1)
	assert.NoError(t, err)
}

func TestStagesAreIndependent(t *testing.T) {
	b := New(newTestDB(t))

	first, err := b.Stage(1, testThumb(4))
	require.NoError(t, err)
	second, err := b.Stage(1, testThumb(5))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	_, err = b.Consume(first, 1)
	require.NoError(t, err)

	// Consuming one handle leaves the other alone.
	pending, err := b.Get(second, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8, 5, 5, 5}, pending.Data)
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	db := newTestDB(t)
	b := New(db)

	fresh, err := b.Stage(1, testThumb(6))
	require.NoError(t, err)
	expired, err := b.Stage(2, testThumb(7))
	require.NoError(t, err)

	// Nothing is old enough yet.
	count, err := b.Sweep(24 * time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	// Backdate one record past the threshold.
	err = db.Model(&models.PendingUpload{}).Where("id = ?", expired).
		Update("created_at", time.Now().UTC().Add(-25*time.Hour)).Error
	require.NoError(t, err)

	count, err = b.Sweep(24 * time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	_, err = b.Consume(expired, 2)
	assert.ErrorIs(t, err, ErrNotFound)

	// The fresh one is untouched and still consumable.
	_, err = b.Consume(fresh, 1)
	assert.NoError(t, err)

	// Idempotent.
	count, err = b.Sweep(24 * time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}
