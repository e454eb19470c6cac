package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// OperatorHeader carries the identity set by the gateway in front of the
// service. It is not verified here.
const OperatorHeader = "X-User-ID"

const localOperatorID = "operator_id"

// OperatorContext attaches the operator id to the request locals and to the
// request logger.
func OperatorContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		operatorID := strings.TrimSpace(c.Get(OperatorHeader))
		c.Locals(localOperatorID, operatorID)
		if operatorID != "" {
			logger := Logger(c).With().Str("operator_id", operatorID).Logger()
			c.Locals(localLogger, logger)
		}
		return c.Next()
	}
}

func OperatorID(c *fiber.Ctx) string {
	id, _ := c.Locals(localOperatorID).(string)
	return id
}
