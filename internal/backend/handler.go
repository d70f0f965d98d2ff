package backend

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

func queryFrom(c *fiber.Ctx) (Query, error) {
	q := Query{Customer: c.Query("customer"), Search: c.Query("search"), Page: 1}
	if s := c.Query("page"); s != "" {
		p, err := strconv.Atoi(s)
		if err != nil || p < 1 {
			return Query{}, fiber.NewError(fiber.StatusBadRequest, "invalid page")
		}
		q.Page = p
	}
	return q, nil
}

// GET /api/invoices/:tab?page=&customer=&search=
func InvoicesHandler(client *Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tab, err := ParseTab(c.Params("tab"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		q, err := queryFrom(c)
		if err != nil {
			return err
		}
		page, err := client.Invoices(c.UserContext(), tab, q)
		if err != nil {
			return upstreamError(err)
		}
		return c.JSON(page)
	}
}

// GET /api/payments/:tab?page=&customer=&search=&item=
func PaymentsHandler(client *Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tab, err := ParseTab(c.Params("tab"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		q, err := queryFrom(c)
		if err != nil {
			return err
		}
		page, err := client.Payments(c.UserContext(), tab, q)
		if err != nil {
			return upstreamError(err)
		}

		// the ledger has no item filter, narrow the page here
		if item := c.Query("item"); item != "" {
			kept := page.Items[:0]
			for _, p := range page.Items {
				if p.ItemName == item {
					kept = append(kept, p)
				}
			}
			page.Items = kept
		}
		return c.JSON(page)
	}
}

// GET /api/payments/customers
func PaymentCustomersHandler(client *Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		names, err := client.PaymentCustomers(c.UserContext())
		if err != nil {
			return upstreamError(err)
		}
		return c.JSON(names)
	}
}

func upstreamError(err error) error {
	switch {
	case errors.Is(err, ErrMalformed):
		return fiber.NewError(fiber.StatusBadGateway, "backend returned an unexpected response")
	case errors.Is(err, ErrRemote):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return fiber.NewError(fiber.StatusBadGateway, "backend unavailable")
}
