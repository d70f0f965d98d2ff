package feedback

import "github.com/gofiber/fiber/v2"

// GET /api/feedback?customer=
func ListHandler(src *Source) fiber.Handler {
	return func(c *fiber.Ctx) error {
		all, err := src.List(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "spreadsheet unavailable")
		}
		responses := ForCustomer(all, c.Query("customer"))
		return c.JSON(fiber.Map{
			"responses": responses,
			"total":     len(responses),
			"averages":  Averages(responses),
		})
	}
}
