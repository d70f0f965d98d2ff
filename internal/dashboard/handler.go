package dashboard

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"o2d-backend/internal/dispatch"
	"o2d-backend/internal/sheets"
	"o2d-backend/internal/snapshot"
)

type DashboardResponse struct {
	dispatch.Summary
	Options   dispatch.Options  `json:"options"`
	Records   []dispatch.Record `json:"records"`
	FetchedAt time.Time         `json:"fetched_at"`
}

// CriteriaFromQuery reads party, state, salesperson, item, from and to.
// Dates are dd/mm/yyyy or yyyy-mm-dd.
func CriteriaFromQuery(c *fiber.Ctx) (dispatch.Criteria, error) {
	from, err := dispatch.ParseDateBound(c.Query("from"))
	if err != nil {
		return dispatch.Criteria{}, fiber.NewError(fiber.StatusBadRequest, "invalid from date")
	}
	to, err := dispatch.ParseDateBound(c.Query("to"))
	if err != nil {
		return dispatch.Criteria{}, fiber.NewError(fiber.StatusBadRequest, "invalid to date")
	}
	if from != nil && to != nil && to.Before(*from) {
		return dispatch.Criteria{}, fiber.NewError(fiber.StatusBadRequest, "to date is before from date")
	}
	return dispatch.Criteria{
		Party:       c.Query("party"),
		State:       c.Query("state"),
		Salesperson: c.Query("salesperson"),
		Item:        c.Query("item"),
		From:        from,
		To:          to,
	}, nil
}

// GET /api/dashboard?party=&state=&salesperson=&item=&from=&to=
func SummaryHandler(svc *snapshot.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		criteria, err := CriteriaFromQuery(c)
		if err != nil {
			return err
		}
		snap, err := svc.Current(c.UserContext())
		if err != nil {
			return upstreamError(err)
		}

		summary, filtered := dispatch.Summarize(snap.Records, criteria)
		return c.JSON(DashboardResponse{
			Summary:   summary,
			Options:   snap.Options,
			Records:   filtered,
			FetchedAt: snap.FetchedAt,
		})
	}
}

// POST /api/dashboard/refresh
func RefreshHandler(svc *snapshot.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap, err := svc.Refresh(c.UserContext())
		if err != nil {
			return upstreamError(err)
		}
		return c.JSON(fiber.Map{
			"records":    len(snap.Records),
			"fetched_at": snap.FetchedAt,
		})
	}
}

func upstreamError(err error) error {
	switch {
	case errors.Is(err, sheets.ErrMalformed):
		return fiber.NewError(fiber.StatusBadGateway, "spreadsheet returned an unexpected response")
	case errors.Is(err, dispatch.ErrHeaderMismatch):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return fiber.NewError(fiber.StatusBadGateway, "spreadsheet unavailable")
}
