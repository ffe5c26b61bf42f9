package handler

import (
	"errors"

	"github.com/giralibros/giralibros/database"
	"github.com/giralibros/giralibros/middleware"
	"github.com/giralibros/giralibros/models"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// CreateExchangeRequest records that the caller asked for an offered book.
// The request copies the book's title and author so it survives later edits
// or deletion of the book itself.
func CreateExchangeRequest(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUserID(c)

	type RequestInput struct {
		BookID uint `json:"book_id"`
	}

	input := new(RequestInput)
	if err := c.BodyParser(input); err != nil || input.BookID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Invalid request body",
			"data":    nil,
		})
	}

	db := database.GetDB()

	var book models.OfferedBook
	err := db.Where("id = ?", input.BookID).First(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
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

	if book.UserID == userID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "You cannot request your own book",
			"data":    nil,
		})
	}

	toUserID := book.UserID
	request := models.ExchangeRequest{
		FromUserID: userID,
		ToUserID:   &toUserID,
		BookTitle:  book.Title,
		BookAuthor: book.Author,
	}

	if err := db.Create(&request).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Failed to create exchange request",
			"data":    nil,
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status":  "success",
		"message": "Exchange request sent",
		"data":    request,
	})
}

// ListExchangeRequests returns the caller's sent or received requests,
// newest first, selected with ?box=sent|received.
func ListExchangeRequests(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUserID(c)

	db := database.GetDB()

	var (
		requests []models.ExchangeRequest
		err      error
	)
	switch c.Query("box", "sent") {
	case "sent":
		requests, err = models.RecentSentBy(db, userID, 50)
	case "received":
		requests, err = models.RecentReceivedBy(db, userID, 50)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "box must be sent or received",
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

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"message": "Requests found",
		"data":    requests,
	})
}
