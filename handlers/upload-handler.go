package handler

import (
	"errors"
	"fmt"
	"io"

	"github.com/giralibros/giralibros/broker"
	"github.com/giralibros/giralibros/database"
	"github.com/giralibros/giralibros/middleware"
	"github.com/giralibros/giralibros/models"
	"github.com/giralibros/giralibros/observability"
	"github.com/giralibros/giralibros/pipeline"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func getBroker() *broker.Broker {
	return broker.New(database.GetDB())
}

// UploadPhoto normalizes a cover photo sent as multipart field "photo".
// With a book_id form field it attaches directly to the caller's book;
// otherwise the result is staged and an opaque handle is returned for the
// client to carry through the book form.
func UploadPhoto(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUserID(c)

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "No file provided",
			"data":    nil,
		})
	}

	if fileHeader.Size > pipeline.MaxUploadBytes {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": fmt.Sprintf("File exceeds the %d MiB limit", pipeline.MaxUploadBytes>>20),
			"data":    nil,
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Error opening the file",
			"data":    nil,
		})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Error reading the file",
			"data":    nil,
		})
	}

	thumb, err := pipeline.Normalize(data, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidImage) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"status":  "error",
				"message": err.Error(),
				"data":    nil,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Error processing the image",
			"data":    nil,
		})
	}

	// Attach directly when the book already exists and belongs to the caller.
	if bookID := c.FormValue("book_id"); bookID != "" {
		return attachToBook(c, userID, bookID, thumb)
	}

	handle, err := getBroker().Stage(userID, thumb)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Error saving the photo",
			"data":    nil,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"message": "Photo uploaded",
		"data": fiber.Map{
			"handle": handle,
			"name":   thumb.Name,
			"url":    "/api/photos/pending/" + handle,
			"width":  thumb.Width,
			"height": thumb.Height,
		},
	})
}

func attachToBook(c *fiber.Ctx, userID uint, bookID string, thumb *pipeline.Thumbnail) error {
	db := database.GetDB()

	var book models.OfferedBook
	err := db.Where("id = ? AND user_id = ?", bookID, userID).First(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Same answer whether the book is missing or someone else's.
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":  "error",
			"message": "Book not found",
			"data":    nil,
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Database error",
			"data":    nil,
		})
	}

	// Replacing the photo discards the previous bytes with the update.
	book.Photo = thumb.Data
	book.PhotoName = thumb.Name
	if err := db.Save(&book).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Error saving the photo",
			"data":    nil,
		})
	}

	observability.Log().Infow("photo attached", "book_id", book.ID, "user_id", userID, "name", thumb.Name)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"message": "Photo attached",
		"data": fiber.Map{
			"book_id": book.ID,
			"name":    thumb.Name,
			"url":     fmt.Sprintf("/api/books/%d/photo", book.ID),
			"width":   thumb.Width,
			"height":  thumb.Height,
		},
	})
}

// GetPendingPhoto serves a staged photo back to its owner for preview.
// Missing and foreign handles get the same 404 so the handle namespace
// leaks nothing.
func GetPendingPhoto(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUserID(c)
	handle := c.Params("handle")

	pending, err := getBroker().Get(handle, userID)
	if err != nil {
		if errors.Is(err, broker.ErrNotFound) || errors.Is(err, broker.ErrForbidden) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"status":  "error",
				"message": "Photo not found",
				"data":    nil,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Database error",
			"data":    nil,
		})
	}

	c.Set(fiber.HeaderContentType, "image/jpeg")
	return c.Send(pending.Data)
}
