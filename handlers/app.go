package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"poker-tournament-system/middleware"
	"poker-tournament-system/services"
)

type Deps struct {
	Tournaments *services.TournamentService
	Expenses    *services.ExpenseService
	Payments    *services.PaymentService
	Hub         *services.EventHub
	Gatherer    prometheus.Gatherer
}

// NewApp builds the fiber app with CORS, request logging and every route.
func NewApp(logger zerolog.Logger, allowedOrigins []string, deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "poker-tournament-system",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(allowedOrigins, ","),
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, Cache-Control",
		ExposeHeaders: "Content-Length, Content-Type, X-Request-ID",
		MaxAge:        86400,
	}))
	app.Use(middleware.RequestLogger(logger))
	app.Use(middleware.OperatorContext())

	SetupSystemRoutes(app, deps.Gatherer)
	SetupTournamentRoutes(app, deps.Tournaments, deps.Expenses)
	SetupPaymentRoutes(app, deps.Payments)
	SetupStreamRoutes(app, deps.Tournaments, deps.Hub)
	return app
}
