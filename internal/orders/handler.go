package orders

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// GET /api/orders?status=pending|partial|complete|cancelled|other
func ListHandler(src *Source) fiber.Handler {
	return func(c *fiber.Ctx) error {
		all, err := src.List(c.UserContext())
		if errors.Is(err, ErrNoHeader) {
			return c.JSON(fiber.Map{"orders": []Order{}, "counts": fiber.Map{}})
		}
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "spreadsheet unavailable")
		}

		groups := Group(all)
		counts := make(map[Status]int, len(groups))
		for s, list := range groups {
			counts[s] = len(list)
		}

		if s := c.Query("status"); s != "" {
			list, ok := groups[Status(s)]
			if !ok {
				return fiber.NewError(fiber.StatusBadRequest, "unknown status")
			}
			return c.JSON(fiber.Map{"orders": list, "counts": counts})
		}
		return c.JSON(fiber.Map{"orders": all, "counts": counts})
	}
}
