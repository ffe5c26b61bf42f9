package handler

import (
	"errors"
	"strings"

	"github.com/giralibros/giralibros/auth"
	"github.com/giralibros/giralibros/database"
	"github.com/giralibros/giralibros/middleware"
	"github.com/giralibros/giralibros/models"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// CreateUser registers a new account.
func CreateUser(c *fiber.Ctx) error {
	type NewUser struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	input := new(NewUser)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Invalid request body",
			"data":    nil,
		})
	}

	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)

	if input.Username == "" || input.Email == "" || len(input.Password) < 8 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Username, email and a password of at least 8 characters are required",
			"data":    nil,
		})
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Failed to hash password",
			"data":    nil,
		})
	}

	user := models.User{
		Username: input.Username,
		Email:    input.Email,
		Password: hash,
	}

	db := database.GetDB()
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"status":  "error",
				"message": "Username or email already taken",
				"data":    nil,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Failed to create user",
			"data":    nil,
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status":  "success",
		"message": "User created",
		"data": fiber.Map{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
		},
	})
}

// GetProfile returns a user's public profile: contact info, offered books
// (annotated for the viewer), wanted books, and — only for the owner — the
// recent sent and received exchange requests.
func GetProfile(c *fiber.Ctx) error {
	username := c.Params("username")

	db := database.GetDB()

	var profileUser models.User
	err := db.Preload("Profile").Preload("Locations").
		Where("username = ?", username).First(&profileUser).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":  "error",
			"message": "No user found",
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

	var viewer *models.User
	viewerID, authed := middleware.CurrentUserID(c)
	if authed {
		viewer = &models.User{Model: gorm.Model{ID: viewerID}}
	}
	isOwnProfile := authed && viewerID == profileUser.ID

	offered, err := models.OfferedForProfile(db, profileUser.ID, viewer)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Database error",
			"data":    nil,
		})
	}

	var wanted []models.WantedBook
	if err := db.Where("user_id = ?", profileUser.ID).Order("created_at ASC").Find(&wanted).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Database error",
			"data":    nil,
		})
	}

	data := fiber.Map{
		"username":   profileUser.Username,
		"first_name": profileUser.FirstName,
		"profile":    profileUser.Profile,
		"locations":  profileUser.Locations,
		"offered":    offered,
		"wanted":     wanted,
		"is_own":     isOwnProfile,
	}

	if isOwnProfile {
		sent, err := models.RecentSentBy(db, profileUser.ID, 20)
		if err == nil {
			data["sent_requests"] = sent
		}
		received, err := models.RecentReceivedBy(db, profileUser.ID, 20)
		if err == nil {
			data["received_requests"] = received
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"message": "Profile found",
		"data":    data,
	})
}

// UpdateProfile creates or edits the caller's profile and replaces their
// location set.
func UpdateProfile(c *fiber.Ctx) error {
	userID, _ := middleware.CurrentUserID(c)

	type ProfileData struct {
		FirstName        string   `json:"first_name"`
		ContactEmail     string   `json:"contact_email"`
		AlternateContact string   `json:"alternate_contact"`
		About            string   `json:"about"`
		Locations        []string `json:"locations"`
	}

	input := new(ProfileData)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Invalid request body",
			"data":    nil,
		})
	}

	input.ContactEmail = strings.TrimSpace(input.ContactEmail)
	if input.ContactEmail == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Contact email is required",
			"data":    nil,
		})
	}

	for _, area := range input.Locations {
		if !models.IsValidArea(area) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"status":  "error",
				"message": "Unknown location area: " + area,
				"data":    nil,
			})
		}
	}

	db := database.GetDB()

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", userID).
			Update("first_name", strings.TrimSpace(input.FirstName)).Error; err != nil {
			return err
		}

		var profile models.UserProfile
		err := tx.Where("user_id = ?", userID).First(&profile).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			profile = models.UserProfile{
				UserID:           userID,
				ContactEmail:     input.ContactEmail,
				AlternateContact: input.AlternateContact,
				About:            input.About,
			}
			if err := tx.Create(&profile).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			profile.ContactEmail = input.ContactEmail
			profile.AlternateContact = input.AlternateContact
			profile.About = input.About
			if err := tx.Save(&profile).Error; err != nil {
				return err
			}
		}

		// Replace the location set wholesale, like the profile form does.
		if err := tx.Where("user_id = ?", userID).Delete(&models.UserLocation{}).Error; err != nil {
			return err
		}
		for _, area := range input.Locations {
			if err := tx.Create(&models.UserLocation{UserID: userID, Area: area}).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Failed to save profile",
			"data":    nil,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"message": "Profile saved",
		"data":    nil,
	})
}
