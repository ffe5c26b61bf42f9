package handler

import (
	"github.com/giralibros/giralibros/database"
	"github.com/giralibros/giralibros/middleware"
	"github.com/giralibros/giralibros/models"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// BrowseBooks lists offered books. Authenticated viewers get the catalog
// narrowed to their exchange areas, minus their own books, with the
// already_requested annotation; anonymous viewers get the unfiltered
// catalog with the annotation constantly false.
func BrowseBooks(c *fiber.Ctx) error {
	db := database.GetDB()

	var viewer *models.User
	if userID, ok := middleware.CurrentUserID(c); ok {
		viewer = &models.User{Model: gorm.Model{ID: userID}}
	}

	result, err := models.OfferedForUser(db, viewer)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Database error",
			"data":    nil,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"message": "Books found",
		"data":    result,
	})
}
