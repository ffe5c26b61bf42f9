package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/giralibros/giralibros/broker"
	"github.com/giralibros/giralibros/database"
	"github.com/giralibros/giralibros/middleware"
	"github.com/giralibros/giralibros/models"
	"github.com/giralibros/giralibros/observability"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// BookRow is one row of the my-books bulk form. Each row carries its own
// optional photo handle; removing a row discards its handle with no
// cross-row dependency.
type BookRow struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Notes       string `json:"notes"`
	Reserved    bool   `json:"reserved"`
	Delete      bool   `json:"delete"`
	PhotoHandle string `json:"photo_handle"`
}

// ListMyBooks returns the caller's offered books, oldest first, matching the
// ordering of the my-books form.
func ListMyBooks(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUserID(c)

	db := database.GetDB()
	var books []models.OfferedBook
	if err := db.Where("user_id = ?", userID).Order("created_at ASC").Find(&books).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Database error",
			"data":    nil,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"message": "Books found",
		"data":    books,
	})
}

// SaveMyBooks applies a whole my-books submission: create, update and delete
// rows in one request. The submission is validated in full before any photo
// handle is consumed, so a broken form never destroys a staged photo. After
// validation, a missing or expired handle is a soft failure: the book is
// saved without a photo and the omission is logged.
func SaveMyBooks(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUserID(c)

	type SaveBooksInput struct {
		Books []BookRow `json:"books"`
	}

	input := new(SaveBooksInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Invalid request body",
			"data":    nil,
		})
	}

	db := database.GetDB()

	var existing []models.OfferedBook
	if err := db.Where("user_id = ?", userID).Find(&existing).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Database error",
			"data":    nil,
		})
	}
	owned := make(map[uint]models.OfferedBook, len(existing))
	for _, b := range existing {
		owned[b.ID] = b
	}

	// Fail fast: the broker is not touched until the whole submission is
	// known to be valid.
	for i := range input.Books {
		row := &input.Books[i]
		row.Title = strings.TrimSpace(row.Title)
		row.Author = strings.TrimSpace(row.Author)

		if row.ID != 0 {
			if _, ok := owned[row.ID]; !ok {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"status":  "error",
					"message": fmt.Sprintf("Row %d: book not found", i+1),
					"data":    nil,
				})
			}
		}
		if row.Delete {
			continue
		}
		if row.Title == "" || row.Author == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"status":  "error",
				"message": fmt.Sprintf("Row %d: title and author are required", i+1),
				"data":    nil,
			})
		}
		if len(row.Title) > 200 || len(row.Author) > 200 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"status":  "error",
				"message": fmt.Sprintf("Row %d: title and author are limited to 200 characters", i+1),
				"data":    nil,
			})
		}
	}

	b := getBroker()
	saved := make([]models.OfferedBook, 0, len(input.Books))

	for _, row := range input.Books {
		if row.Delete {
			if row.ID != 0 {
				// Hard delete: the photo bytes go with the row.
				if err := db.Unscoped().Delete(&models.OfferedBook{}, row.ID).Error; err != nil {
					return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
						"status":  "error",
						"message": "Failed to delete book",
						"data":    nil,
					})
				}
			}
			continue
		}

		var book models.OfferedBook
		if row.ID != 0 {
			book = owned[row.ID]
		} else {
			book = models.OfferedBook{UserID: userID}
		}
		book.Title = row.Title
		book.Author = row.Author
		book.Notes = row.Notes
		book.Reserved = row.Reserved

		// A row without a handle leaves any previously attached photo alone.
		if row.PhotoHandle != "" {
			pending, err := b.Consume(row.PhotoHandle, userID)
			switch {
			case err == nil:
				book.Photo = pending.Data
				book.PhotoName = pending.Name
			case errors.Is(err, broker.ErrNotFound):
				// Handles legitimately expire between staging and submission.
				observability.Log().Infow("pending photo gone, saving book without it",
					"handle", row.PhotoHandle, "user_id", userID)
			case errors.Is(err, broker.ErrForbidden):
				observability.Log().Warnw("pending photo owned by another user, ignoring handle",
					"handle", row.PhotoHandle, "user_id", userID)
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"status":  "error",
					"message": "Failed to attach photo",
					"data":    nil,
				})
			}
		}

		if err := db.Save(&book).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"status":  "error",
				"message": "Failed to save book",
				"data":    nil,
			})
		}
		saved = append(saved, book)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"message": "Books saved",
		"data":    saved,
	})
}

// GetBookPhoto serves an offered book's cover. Covers are public: they show
// up in anonymous browsing too.
func GetBookPhoto(c *fiber.Ctx) error {
	id := c.Params("id")

	db := database.GetDB()
	var book models.OfferedBook
	err := db.Select("id", "photo", "photo_name").Where("id = ?", id).First(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !book.HasPhoto()) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":  "error",
			"message": "Photo not found",
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

	c.Set(fiber.HeaderContentType, "image/jpeg")
	return c.Send(book.Photo)
}
