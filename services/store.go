package services

import (
	"context"
	"time"

	"poker-tournament-system/models"
)

// Store is the persistence collaborator. Implementations return
// ErrTournamentNotFound (and friends) for missing rows, wrapped or not.
type Store interface {
	// WithTx runs fn against a store bound to one transaction. Rows read with
	// GetTournament inside fn are locked for the rest of it where the
	// database supports it.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	CreateTournament(ctx context.Context, t *models.Tournament) error
	// GetTournament loads blind levels ordered by Order and participations.
	GetTournament(ctx context.Context, id string) (*models.Tournament, error)
	ListRunningTournaments(ctx context.Context) ([]models.Tournament, error)
	// SaveTournament writes the tournament columns only.
	SaveTournament(ctx context.Context, t *models.Tournament) error
	// SaveTimerSnapshot writes the anchor pair if the tournament is still
	// in progress.
	SaveTimerSnapshot(ctx context.Context, id string, remaining int, anchor time.Time) error

	CreateParticipation(ctx context.Context, p *models.Participation) error
	SaveParticipation(ctx context.Context, p *models.Participation) error

	GetLeague(ctx context.Context, id string) (*models.League, error)
	GetPrizeTable(ctx context.Context, id string) (*models.PrizeTable, error)
	ListPrizeTables(ctx context.Context, leagueID string) ([]models.PrizeTable, error)
	// RecordJackpotContribution inserts c and adds its amount to the league pool.
	RecordJackpotContribution(ctx context.Context, c *models.JackpotContribution) error
	GetJackpotContribution(ctx context.Context, tournamentID string) (*models.JackpotContribution, error)

	CreateExpense(ctx context.Context, e *models.Expense) error
	ListExpenses(ctx context.Context, tournamentID string) ([]models.Expense, error)

	GetPayment(ctx context.Context, id string) (*models.Payment, error)
	ListPayments(ctx context.Context, tournamentID string) ([]models.Payment, error)
	SavePayment(ctx context.Context, p *models.Payment) error
	// ReplaceSettlementPayments deletes poker and jackpot payments plus
	// pending expense payments of the tournament, then inserts payments.
	ReplaceSettlementPayments(ctx context.Context, tournamentID string, payments []models.Payment) error
}

// Broadcaster is the broadcast collaborator. Publish must not block.
type Broadcaster interface {
	Publish(tournamentID string, event string, payload any)
}

// TimerControl is the manual control surface of the live timer engine.
type TimerControl interface {
	// Pause marks the tracked timer paused, then calls persist with the
	// remaining seconds it computed (nil when the tournament is not tracked).
	// The timer stays paused only if persist succeeds.
	Pause(ctx context.Context, id string, persist func(remaining *int) error) error
	// Seed starts tracking t from its persisted anchor, or re-seeds an
	// already tracked timer, clearing the pause flag.
	Seed(ctx context.Context, t *models.Tournament)
	// ChangeLevel runs change under the per-tournament level lock, re-reads
	// persisted state, updates the cache and publishes levelChanged.
	ChangeLevel(ctx context.Context, id string, change func(ctx context.Context) error) (*models.Tournament, error)
	// Remove drops the tournament from the tracked set.
	Remove(id string)
	// Snapshot returns the live countdown for a tracked tournament.
	Snapshot(id string) (TimerSnapshot, bool)
}

// TimerSnapshot is the engine's cached view of one running tournament.
type TimerSnapshot struct {
	Level            int
	SecondsRemaining int
	Paused           bool
	AwaitingOperator bool
}
