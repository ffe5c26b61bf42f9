package handler

import (
	"strings"

	"github.com/giralibros/giralibros/database"
	"github.com/giralibros/giralibros/middleware"
	"github.com/giralibros/giralibros/models"
	"github.com/gofiber/fiber/v2"
)

// ListWanted returns the caller's wanted books.
func ListWanted(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUserID(c)

	db := database.GetDB()
	var wanted []models.WantedBook
	if err := db.Where("user_id = ?", userID).Order("created_at ASC").Find(&wanted).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Database error",
			"data":    nil,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"message": "Wanted books found",
		"data":    wanted,
	})
}

// CreateWanted adds a book to the caller's wanted list.
func CreateWanted(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUserID(c)

	type WantedInput struct {
		Title  string `json:"title"`
		Author string `json:"author"`
	}

	input := new(WantedInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Invalid request body",
			"data":    nil,
		})
	}

	input.Title = strings.TrimSpace(input.Title)
	input.Author = strings.TrimSpace(input.Author)
	if input.Title == "" || input.Author == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Title and author are required",
			"data":    nil,
		})
	}

	wanted := models.WantedBook{
		UserID: userID,
		Title:  input.Title,
		Author: input.Author,
	}

	db := database.GetDB()
	if err := db.Create(&wanted).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Failed to save wanted book",
			"data":    nil,
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status":  "success",
		"message": "Wanted book saved",
		"data":    wanted,
	})
}

// DeleteWanted removes a book from the caller's wanted list.
func DeleteWanted(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUserID(c)
	id := c.Params("id")

	db := database.GetDB()
	res := db.Unscoped().Where("id = ? AND user_id = ?", id, userID).Delete(&models.WantedBook{})
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Failed to delete wanted book",
			"data":    nil,
		})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":  "error",
			"message": "Wanted book not found",
			"data":    nil,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"message": "Wanted book deleted",
		"data":    nil,
	})
}
