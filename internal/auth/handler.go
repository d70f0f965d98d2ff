package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"o2d-backend/internal/models"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func LoginHandler(dir *Directory, secret string, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		body.Username = strings.TrimSpace(body.Username)
		if body.Username == "" || body.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "username and password are required")
		}

		user, err := dir.Authenticate(c.UserContext(), body.Username, body.Password)
		if errors.Is(err, ErrInvalidCredentials) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid username or password")
		}
		if err != nil {
			log.Error("login lookup failed", zap.String("username", body.Username), zap.Error(err))
			return fiber.NewError(fiber.StatusBadGateway, "could not reach the user sheet")
		}

		token, err := GenerateToken(secret, user, time.Now())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not issue token")
		}

		log.Info("user logged in", zap.String("username", user.Username), zap.String("role", string(user.Role)))
		return c.JSON(fiber.Map{
			"token": token,
			"user": fiber.Map{
				"username": user.Username,
				"name":     user.Name,
				"role":     user.Role,
			},
		})
	}
}

func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, name := CurrentUser(c)
		role, _ := c.Locals(CtxUserRoleKey).(models.UserRole)
		return c.JSON(fiber.Map{
			"username": id,
			"name":     name,
			"role":     role,
		})
	}
}
