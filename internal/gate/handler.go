package gate

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// GET /api/gate/pending
func PendingHandler(repo *Repository, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		passes, err := repo.Pending(c.UserContext())
		if errors.Is(err, ErrDisabled) {
			return fiber.NewError(fiber.StatusServiceUnavailable, "gate database is not configured")
		}
		if err != nil {
			log.Error("pending gate passes", zap.Error(err))
			return fiber.NewError(fiber.StatusBadGateway, "gate database unavailable")
		}
		return c.JSON(fiber.Map{
			"data":  passes,
			"total": len(passes),
		})
	}
}
