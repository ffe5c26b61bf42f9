package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"testing"

	"github.com/giralibros/giralibros/broker"
	"github.com/giralibros/giralibros/database"
	handler "github.com/giralibros/giralibros/handlers"
	"github.com/giralibros/giralibros/models"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeAuth stands in for the JWT middleware: the test user id travels in a
// header and lands in the same locals slot the real middleware fills.
func fakeAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if v := c.Get("X-Test-User"); v != "" {
			id, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return err
			}
			c.Locals("userID", uint(id))
		}
		return c.Next()
	}
}

func setupTest(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.UserProfile{}, &models.UserLocation{},
		&models.OfferedBook{}, &models.WantedBook{}, &models.ExchangeRequest{},
		&models.PendingUpload{},
	))
	database.SetDB(db)

	for _, name := range []string{"ana", "bruno"} {
		require.NoError(t, db.Create(&models.User{
			Username: name, Email: name + "@example.com", Password: "x",
		}).Error)
	}

	app := fiber.New()
	app.Post("/api/photos", fakeAuth(), handler.UploadPhoto)
	app.Get("/api/photos/pending/:handle", fakeAuth(), handler.GetPendingPhoto)
	app.Put("/api/books/mine", fakeAuth(), handler.SaveMyBooks)
	app.Get("/api/books/:id/photo", handler.GetBookPhoto)

	return app, db
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func photoRequest(t *testing.T, userID uint, data []byte, contentType string, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="photo"; filename="cover.png"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)

	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/photos", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-Test-User", fmt.Sprint(userID))
	return req
}

func jsonRequest(t *testing.T, method, target string, userID uint, payload any) *http.Request {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	req.Header.Set("X-Test-User", fmt.Sprint(userID))
	return req
}

type apiResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeResponse(t *testing.T, res *http.Response) apiResponse {
	t.Helper()
	defer res.Body.Close()

	var out apiResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return out
}

func uploadPhoto(t *testing.T, app *fiber.App, userID uint) string {
	t.Helper()

	res, err := app.Test(photoRequest(t, userID, pngBytes(t, 200, 300), "image/png", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var data struct {
		Handle string `json:"handle"`
		URL    string `json:"url"`
	}
	body := decodeResponse(t, res)
	require.NoError(t, json.Unmarshal(body.Data, &data))
	require.NotEmpty(t, data.Handle)
	require.Equal(t, "/api/photos/pending/"+data.Handle, data.URL)
	return data.Handle
}

func TestUploadStageAndAttach(t *testing.T) {
	app, db := setupTest(t)

	handle := uploadPhoto(t, app, 1)

	// The owner can preview the staged photo.
	req := httptest.NewRequest(http.MethodGet, "/api/photos/pending/"+handle, nil)
	req.Header.Set("X-Test-User", "1")
	res, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "image/jpeg", res.Header.Get("Content-Type"))
	payload, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.NotEmpty(t, payload)

	// Someone else gets the same 404 as for a bogus handle.
	req = httptest.NewRequest(http.MethodGet, "/api/photos/pending/"+handle, nil)
	req.Header.Set("X-Test-User", "2")
	res, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	// Submitting the book form consumes the handle onto the new book.
	res, err = app.Test(jsonRequest(t, http.MethodPut, "/api/books/mine", 1, fiber.Map{
		"books": []fiber.Map{{"title": "Rayuela", "author": "Cortázar", "photo_handle": handle}},
	}), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var book models.OfferedBook
	require.NoError(t, db.Where("title = ?", "Rayuela").First(&book).Error)
	assert.NotEmpty(t, book.Photo)
	assert.NotEmpty(t, book.PhotoName)

	// The cover is publicly served.
	res, err = app.Test(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/books/%d/photo", book.ID), nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	// The handle is gone: reusing it saves the next book photoless.
	res, err = app.Test(jsonRequest(t, http.MethodPut, "/api/books/mine", 1, fiber.Map{
		"books": []fiber.Map{{"title": "Bestiario", "author": "Cortázar", "photo_handle": handle}},
	}), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var second models.OfferedBook
	require.NoError(t, db.Where("title = ?", "Bestiario").First(&second).Error)
	assert.Empty(t, second.Photo)
}

func TestAttachDirectlyToExistingBook(t *testing.T) {
	app, db := setupTest(t)

	book := models.OfferedBook{UserID: 1, Title: "Rayuela", Author: "Cortázar"}
	require.NoError(t, db.Create(&book).Error)

	res, err := app.Test(photoRequest(t, 1, pngBytes(t, 200, 300), "image/png",
		map[string]string{"book_id": fmt.Sprint(book.ID)}), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	require.NoError(t, db.First(&book, book.ID).Error)
	assert.NotEmpty(t, book.Photo)

	// No pending record was created for the direct attach.
	var count int64
	require.NoError(t, db.Model(&models.PendingUpload{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestAttachToSomeoneElsesBook(t *testing.T) {
	app, db := setupTest(t)

	book := models.OfferedBook{UserID: 2, Title: "Rayuela", Author: "Cortázar"}
	require.NoError(t, db.Create(&book).Error)

	res, err := app.Test(photoRequest(t, 1, pngBytes(t, 200, 300), "image/png",
		map[string]string{"book_id": fmt.Sprint(book.ID)}), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	require.NoError(t, db.First(&book, book.ID).Error)
	assert.Empty(t, book.Photo)
}

func TestInvalidUploadWritesNothing(t *testing.T) {
	app, db := setupTest(t)

	res, err := app.Test(photoRequest(t, 1, []byte("not an image"), "image/png", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	var count int64
	require.NoError(t, db.Model(&models.PendingUpload{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestEditWithoutHandleKeepsPhoto(t *testing.T) {
	app, db := setupTest(t)

	book := models.OfferedBook{
		UserID: 1, Title: "Rayuela", Author: "Cortázar",
		Photo: []byte{1, 2, 3}, PhotoName: "abc.jpg",
	}
	require.NoError(t, db.Create(&book).Error)

	res, err := app.Test(jsonRequest(t, http.MethodPut, "/api/books/mine", 1, fiber.Map{
		"books": []fiber.Map{{"id": book.ID, "title": "Rayuela (2nd copy)", "author": "Cortázar"}},
	}), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	require.NoError(t, db.First(&book, book.ID).Error)
	assert.Equal(t, "Rayuela (2nd copy)", book.Title)
	assert.Equal(t, []byte{1, 2, 3}, book.Photo, "re-editing must not erase a prior photo")
}

func TestInvalidSubmissionDoesNotConsumeHandle(t *testing.T) {
	app, db := setupTest(t)

	handle := uploadPhoto(t, app, 1)

	// Broken row: title missing. The broker must not be touched.
	res, err := app.Test(jsonRequest(t, http.MethodPut, "/api/books/mine", 1, fiber.Map{
		"books": []fiber.Map{{"title": "", "author": "Cortázar", "photo_handle": handle}},
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	_, err = broker.New(db).Get(handle, 1)
	assert.NoError(t, err, "staged photo must survive a failed submission")
}

func TestDeleteRowRemovesBookAndPhoto(t *testing.T) {
	app, db := setupTest(t)

	book := models.OfferedBook{
		UserID: 1, Title: "Rayuela", Author: "Cortázar", Photo: []byte{1}, PhotoName: "a.jpg",
	}
	require.NoError(t, db.Create(&book).Error)

	res, err := app.Test(jsonRequest(t, http.MethodPut, "/api/books/mine", 1, fiber.Map{
		"books": []fiber.Map{{"id": book.ID, "delete": true}},
	}), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	err = db.Unscoped().First(&models.OfferedBook{}, book.ID).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
