package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"poker-tournament-system/middleware"
	"poker-tournament-system/models"
	"poker-tournament-system/services"
)

type registerRequest struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
}

type eliminateRequest struct {
	EliminatedBy *string `json:"eliminated_by"`
	Position     *int    `json:"position"`
}

type addonRequest struct {
	HasAddon *bool `json:"has_addon"`
}

type finishRequest struct {
	Positions []services.FinishPosition `json:"positions"`
}

type tournamentCommand func(ctx context.Context, id string) (*models.Tournament, error)

type playerCommand func(ctx context.Context, id, playerID string) (*models.Participation, error)

func SetupTournamentRoutes(router fiber.Router, tournaments *services.TournamentService, expenses *services.ExpenseService) {
	router.Post("/tournaments", func(c *fiber.Ctx) error {
		var in services.CreateTournamentInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid request body")
		}
		t, err := tournaments.CreateTournament(c.UserContext(), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(t)
	})

	router.Get("/tournaments/:id", func(c *fiber.Ctx) error {
		t, err := tournaments.GetTournament(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(t)
	})

	router.Get("/tournaments/:id/timer", func(c *fiber.Ctx) error {
		state, err := tournaments.TimerState(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(state)
	})

	router.Get("/tournaments/:id/prize-pool", func(c *fiber.Ctx) error {
		pool, err := tournaments.PrizePool(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(pool)
	})

	// Lifecycle commands
	commands := map[string]tournamentCommand{
		"start":         tournaments.Start,
		"pause":         tournaments.Pause,
		"resume":        tournaments.Resume,
		"advance-level": tournaments.AdvanceLevel,
		"revert-level":  tournaments.RevertLevel,
		"cancel":        tournaments.Cancel,
	}
	for name, cmd := range commands {
		router.Post("/tournaments/:id/"+name, runCommand(name, cmd))
	}

	router.Post("/tournaments/:id/finish", func(c *fiber.Ctx) error {
		var req finishRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		res, err := tournaments.Finish(c.UserContext(), c.Params("id"), req.Positions)
		if err != nil {
			return respondError(c, err)
		}
		logger := middleware.Logger(c)
		logger.Info().Str("tournament_id", c.Params("id")).Msg("finish requested")
		return c.JSON(res)
	})

	// Players
	router.Post("/tournaments/:id/players", func(c *fiber.Ctx) error {
		var req registerRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		p, err := tournaments.RegisterPlayer(c.UserContext(), c.Params("id"), req.PlayerID, req.PlayerName)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	})

	playerCommands := map[string]playerCommand{
		"check-in":  tournaments.CheckIn,
		"check-out": tournaments.CheckOut,
		"rebuy":     tournaments.RecordRebuy,
	}
	for name, cmd := range playerCommands {
		router.Post("/tournaments/:id/players/:player_id/"+name, runPlayerCommand(cmd))
	}
	router.Delete("/tournaments/:id/players/:player_id/rebuy", runPlayerCommand(tournaments.RemoveRebuy))

	router.Put("/tournaments/:id/players/:player_id/addon", func(c *fiber.Ctx) error {
		var req addonRequest
		if err := c.BodyParser(&req); err != nil || req.HasAddon == nil {
			return badRequest(c, "has_addon is required")
		}
		p, err := tournaments.SetAddon(c.UserContext(), c.Params("id"), c.Params("player_id"), *req.HasAddon)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(p)
	})

	router.Post("/tournaments/:id/players/:player_id/eliminate", func(c *fiber.Ctx) error {
		var req eliminateRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return badRequest(c, "invalid request body")
			}
		}
		p, err := tournaments.Eliminate(c.UserContext(), c.Params("id"), c.Params("player_id"), req.EliminatedBy, req.Position)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(p)
	})

	// Expenses
	router.Post("/tournaments/:id/expenses", func(c *fiber.Ctx) error {
		var in services.CreateExpenseInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid request body")
		}
		e, err := expenses.CreateExpense(c.UserContext(), c.Params("id"), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(e)
	})

	router.Get("/tournaments/:id/expenses", func(c *fiber.Ctx) error {
		list, err := expenses.ListExpenses(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(list)
	})

	// Blind templates
	router.Get("/blind-templates", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"templates": services.BlindTemplateNames()})
	})

	router.Get("/blind-templates/:name", func(c *fiber.Ctx) error {
		levels, err := services.BlindTemplate(c.Params("name"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(levels)
	})
}

func runCommand(name string, cmd tournamentCommand) fiber.Handler {
	return func(c *fiber.Ctx) error {
		t, err := cmd(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		logger := middleware.Logger(c)
		logger.Info().Str("tournament_id", t.ID).Str("command", name).Msg("tournament command applied")
		return c.JSON(t)
	}
}

func runPlayerCommand(cmd playerCommand) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := cmd(c.UserContext(), c.Params("id"), c.Params("player_id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(p)
	}
}
