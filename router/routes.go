package router

import (
	handler "github.com/giralibros/giralibros/handlers"
	"github.com/giralibros/giralibros/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func SetupRoutes(app *fiber.App) {
	api := app.Group("/api", logger.New())

	// Auth
	auth := api.Group("/auth")
	auth.Post("/login", handler.Login)
	auth.Post("/logout", handler.Logout)

	// Users and profiles
	user := api.Group("/users")
	user.Post("/", handler.CreateUser)
	user.Get("/:username", middleware.Optional(), handler.GetProfile)
	api.Put("/profile", middleware.Protected(), handler.UpdateProfile)

	// Browsing is open to anonymous visitors; book covers are public too.
	books := api.Group("/books")
	books.Get("/", middleware.Optional(), handler.BrowseBooks)
	books.Get("/:id/photo", handler.GetBookPhoto)
	books.Get("/mine", middleware.Protected(), handler.ListMyBooks)
	books.Put("/mine", middleware.Protected(), handler.SaveMyBooks)

	// Wanted list
	wanted := api.Group("/wanted", middleware.Protected())
	wanted.Get("/", handler.ListWanted)
	wanted.Post("/", handler.CreateWanted)
	wanted.Delete("/:id", handler.DeleteWanted)

	// Cover photo upload and staged preview
	photos := api.Group("/photos", middleware.Protected())
	photos.Post("/", handler.UploadPhoto)
	photos.Get("/pending/:handle", handler.GetPendingPhoto)

	// Exchange requests
	requests := api.Group("/requests", middleware.Protected())
	requests.Post("/", handler.CreateExchangeRequest)
	requests.Get("/", handler.ListExchangeRequests)

	// Operator maintenance
	admin := api.Group("/admin")
	admin.Post("/cleanup", handler.CleanupPendingUploads)
}
