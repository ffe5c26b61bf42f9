package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	handler "github.com/giralibros/giralibros/handlers"
	"github.com/giralibros/giralibros/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupPendingUploads(t *testing.T) {
	app, db := setupTest(t)
	app.Post("/api/admin/cleanup", handler.CleanupPendingUploads)
	t.Setenv("ADMIN_TOKEN", "sekrit")

	handle := uploadPhoto(t, app, 1)
	require.NoError(t, db.Model(&models.PendingUpload{}).Where("id = ?", handle).
		Update("created_at", time.Now().UTC().Add(-25*time.Hour)).Error)

	// Wrong token first.
	req := httptest.NewRequest(http.MethodPost, "/api/admin/cleanup", nil)
	req.Header.Set("X-Admin-Token", "wrong")
	res, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/api/admin/cleanup?max_age_hours=24", nil)
	req.Header.Set("X-Admin-Token", "sekrit")
	res, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var data struct {
		Removed int64 `json:"removed"`
	}
	body := decodeResponse(t, res)
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.EqualValues(t, 1, data.Removed)

	var count int64
	require.NoError(t, db.Model(&models.PendingUpload{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestCleanupRejectsNonPositiveAge(t *testing.T) {
	app, _ := setupTest(t)
	app.Post("/api/admin/cleanup", handler.CleanupPendingUploads)
	t.Setenv("ADMIN_TOKEN", "sekrit")

	req := httptest.NewRequest(http.MethodPost, "/api/admin/cleanup?max_age_hours=0", nil)
	req.Header.Set("X-Admin-Token", "sekrit")
	res, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}
