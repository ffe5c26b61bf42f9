package middleware

import (
	"errors"
	"strconv"

	"github.com/giralibros/giralibros/auth"
	"github.com/gofiber/fiber/v2"
)

const userIDKey = "userID"

// Protected rejects requests without a valid token.
func Protected() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := parseToken(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status":  "error",
				"message": "You are not authorized!",
				"data":    nil,
			})
		}

		c.Locals(userIDKey, userID)
		return c.Next()
	}
}

// Optional lets the request through either way but records the user when a
// valid token is present. Powers anonymous browsing.
func Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if userID, err := parseToken(c); err == nil {
			c.Locals(userIDKey, userID)
		}
		return c.Next()
	}
}

// CurrentUserID returns the authenticated user's id set by Protected or
// Optional. ok is false for anonymous requests.
func CurrentUserID(c *fiber.Ctx) (uint, bool) {
	userID, ok := c.Locals(userIDKey).(uint)
	return userID, ok
}

func parseToken(c *fiber.Ctx) (uint, error) {
	authHeader := c.Get("Authorization")
	var tokenStr string

	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		tokenStr = authHeader[7:]
	} else {
		tokenStr = c.Cookies("JWT")
	}

	if tokenStr == "" {
		return 0, errors.New("no token")
	}

	claims, err := auth.GetAuthService().TokenService().Parse(tokenStr)
	if err != nil {
		return 0, err
	}
	if claims.User == nil {
		return 0, errors.New("token has no user")
	}

	userID, err := strconv.ParseUint(claims.User.ID, 10, 32)
	if err != nil {
		return 0, err
	}

	return uint(userID), nil
}
