package services

import (
	"github.com/shopspring/decimal"

	"poker-tournament-system/models"
)

// Event names published to the broadcaster.
const (
	EventTick             = "tick"
	EventLevelChanged     = "levelChanged"
	EventPaused           = "paused"
	EventResumed          = "resumed"
	EventFinished         = "finished"
	EventPlayerEliminated = "playerEliminated"
	EventPrizePoolUpdated = "prizePoolUpdated"
	EventTimerState       = "timerState"
)

type BlindInfo struct {
	Level            int    `json:"level"`
	SmallBlind       int    `json:"small_blind"`
	BigBlind         int    `json:"big_blind"`
	Ante             int    `json:"ante"`
	DurationMinutes  int    `json:"duration_minutes"`
	IsBreak          bool   `json:"is_break"`
	BreakDescription string `json:"break_description,omitempty"`
}

func NewBlindInfo(l *models.BlindLevel) *BlindInfo {
	if l == nil {
		return nil
	}
	return &BlindInfo{
		Level:            l.Order,
		SmallBlind:       l.SmallBlind,
		BigBlind:         l.BigBlind,
		Ante:             l.Ante,
		DurationMinutes:  l.DurationMinutes,
		IsBreak:          l.IsBreak,
		BreakDescription: l.BreakDescription,
	}
}

type TickEvent struct {
	SecondsRemaining int        `json:"seconds_remaining"`
	Level            int        `json:"level"`
	Blind            *BlindInfo `json:"blind,omitempty"`
}

type LevelChangedEvent struct {
	NewLevel         *BlindInfo `json:"new_level"`
	NextLevel        *BlindInfo `json:"next_level,omitempty"`
	SecondsRemaining int        `json:"seconds_remaining"`
}

type PausedEvent struct {
	SecondsRemaining int `json:"seconds_remaining"`
}

type ResumedEvent struct {
	SecondsRemaining int `json:"seconds_remaining"`
}

type FinishedEvent struct {
	PrizePool decimal.Decimal `json:"prize_pool"`
	Jackpot   decimal.Decimal `json:"jackpot"`
}

type PlayerEliminatedEvent struct {
	PlayerID     string  `json:"player_id"`
	PlayerName   string  `json:"player_name,omitempty"`
	EliminatedBy *string `json:"eliminated_by,omitempty"`
	Position     *int    `json:"position,omitempty"`
}

type PrizePoolUpdatedEvent = models.PoolSummary

// TimerState is the full countdown view, sent to new subscribers and
// returned by the timer query.
type TimerState struct {
	TournamentID     string                  `json:"tournament_id"`
	Status           models.TournamentStatus `json:"status"`
	Level            int                     `json:"level"`
	SecondsRemaining int                     `json:"seconds_remaining"`
	AwaitingOperator bool                    `json:"awaiting_operator"`
	CurrentBlind     *BlindInfo              `json:"current_blind,omitempty"`
	NextBlind        *BlindInfo              `json:"next_blind,omitempty"`
	Pool             models.PoolSummary      `json:"pool"`
}
