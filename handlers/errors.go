package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"poker-tournament-system/middleware"
	"poker-tournament-system/services"
)

var validationErrors = []error{
	services.ErrInvalidPositions,
	services.ErrInvalidInput,
	services.ErrRebuyNotAllowed,
	services.ErrAddonNotOffered,
	services.ErrCheckInClosed,
	services.ErrNotCheckedIn,
	services.ErrInvalidExpense,
	services.ErrPaymentState,
	services.ErrNotPaymentParty,
	services.ErrUnknownTemplate,
}

// statusFor maps a service error onto an HTTP status. Invalid positions
// also match the invalid-transition sentinel, so validation is checked first.
func statusFor(err error) int {
	switch {
	case services.IsNotFound(err):
		return fiber.StatusNotFound
	case isAny(err, validationErrors...):
		return fiber.StatusBadRequest
	case isAny(err, services.ErrNoBlindLevels, services.ErrNoPrizeStructure):
		return fiber.StatusUnprocessableEntity
	case isAny(err,
		services.ErrInvalidTransition,
		services.ErrTournamentNotFinished,
		services.ErrNoNextLevel,
		services.ErrNoPreviousLevel,
		services.ErrStaleLevel):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func isAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// respondError writes {"error": ...}. Internal errors are logged and hidden.
func respondError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		logger := middleware.Logger(c)
		logger.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		return c.Status(status).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
