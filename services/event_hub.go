package services

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

const subscriberBuffer = 32

// Event is one encoded broadcast frame.
type Event struct {
	Name string
	Data []byte
}

type subscriber struct {
	ch   chan Event
	once sync.Once
}

// EventHub fans events out to subscribers grouped in rooms keyed by
// tournament. A slow subscriber loses events instead of blocking Publish.
type EventHub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*subscriber]struct{}
	logger zerolog.Logger
}

func NewEventHub(logger zerolog.Logger) *EventHub {
	return &EventHub{
		rooms:  make(map[string]map[*subscriber]struct{}),
		logger: logger.With().Str("component", "event_hub").Logger(),
	}
}

// Subscribe joins the tournament room. The returned func leaves it and
// closes the channel; it is safe to call more than once.
func (h *EventHub) Subscribe(tournamentID string) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, subscriberBuffer)}

	h.mu.Lock()
	room, ok := h.rooms[tournamentID]
	if !ok {
		room = make(map[*subscriber]struct{})
		h.rooms[tournamentID] = room
	}
	room[sub] = struct{}{}
	h.mu.Unlock()

	return sub.ch, func() {
		h.mu.Lock()
		if room, ok := h.rooms[tournamentID]; ok {
			delete(room, sub)
			if len(room) == 0 {
				delete(h.rooms, tournamentID)
			}
		}
		h.mu.Unlock()
		sub.once.Do(func() { close(sub.ch) })
	}
}

func (h *EventHub) Publish(tournamentID string, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Str("tournament_id", tournamentID).Msg("failed to encode event")
		return
	}
	ev := Event{Name: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.rooms[tournamentID] {
		select {
		case sub.ch <- ev:
		default:
			h.logger.Debug().Str("event", event).Str("tournament_id", tournamentID).Msg("subscriber buffer full, event dropped")
		}
	}
}

func (h *EventHub) Subscribers(tournamentID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[tournamentID])
}
