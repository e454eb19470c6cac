package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"poker-tournament-system/middleware"
	"poker-tournament-system/services"
)

const streamKeepAlive = 15 * time.Second

// SetupStreamRoutes serves the live tournament feed as server-sent events.
// A subscriber first receives the full timer state, then every event the
// hub publishes for that tournament.
func SetupStreamRoutes(router fiber.Router, tournaments *services.TournamentService, hub *services.EventHub) {
	router.Get("/tournaments/:id/stream", func(c *fiber.Ctx) error {
		id := c.Params("id")
		state, err := tournaments.TimerState(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		initial, err := json.Marshal(state)
		if err != nil {
			return respondError(c, err)
		}

		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("X-Accel-Buffering", "no")

		logger := middleware.Logger(c).With().Str("tournament_id", id).Logger()
		events, leave := hub.Subscribe(id)
		done := c.Context().Done()

		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			defer leave()
			logger.Debug().Msg("stream opened")
			defer logger.Debug().Msg("stream closed")

			if err := writeEvent(w, services.EventTimerState, initial); err != nil {
				return
			}

			keepAlive := time.NewTicker(streamKeepAlive)
			defer keepAlive.Stop()
			for {
				select {
				case ev, ok := <-events:
					if !ok {
						return
					}
					if err := writeEvent(w, ev.Name, ev.Data); err != nil {
						return
					}
				case <-keepAlive.C:
					if _, err := w.WriteString(":\n\n"); err != nil {
						return
					}
					if err := w.Flush(); err != nil {
						return
					}
				case <-done:
					return
				}
			}
		})
		return nil
	})
}

func writeEvent(w *bufio.Writer, name string, data []byte) error {
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	// A failed flush means the client went away.
	return w.Flush()
}
