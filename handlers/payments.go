package handlers

import (
	"github.com/gofiber/fiber/v2"

	"poker-tournament-system/middleware"
	"poker-tournament-system/services"
)

type paymentPartyRequest struct {
	PlayerID string `json:"player_id"`
}

func SetupPaymentRoutes(router fiber.Router, payments *services.PaymentService) {
	router.Post("/tournaments/:id/settlement", func(c *fiber.Ctx) error {
		list, err := payments.CalculateSettlement(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(list)
	})

	router.Get("/tournaments/:id/payments", func(c *fiber.Ctx) error {
		list, err := payments.ListPayments(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(list)
	})

	router.Get("/tournaments/:id/balances", func(c *fiber.Ctx) error {
		balances, err := payments.Balances(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(balances)
	})

	router.Post("/payments/:id/paid", func(c *fiber.Ctx) error {
		playerID, err := paymentParty(c)
		if err != nil {
			return err
		}
		p, err := payments.MarkAsPaid(c.UserContext(), c.Params("id"), playerID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(p)
	})

	router.Post("/payments/:id/confirm", func(c *fiber.Ctx) error {
		playerID, err := paymentParty(c)
		if err != nil {
			return err
		}
		p, err := payments.ConfirmPayment(c.UserContext(), c.Params("id"), playerID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(p)
	})
}

// paymentParty reads player_id from the body, falling back to the operator
// header.
func paymentParty(c *fiber.Ctx) (string, error) {
	var req paymentPartyRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return "", fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}
	if req.PlayerID == "" {
		req.PlayerID = middleware.OperatorID(c)
	}
	if req.PlayerID == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, "player_id is required")
	}
	return req.PlayerID, nil
}
