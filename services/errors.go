package services

import (
	"errors"
	"fmt"

	"poker-tournament-system/models"
)

// Errors surfaced to callers of the tournament services. Handlers map them
// to HTTP statuses; everything else is an infrastructure failure.
var (
	// Not found
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrParticipantNotFound = errors.New("player is not registered in this tournament")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrLeagueNotFound      = errors.New("league not found")
	ErrPrizeTableNotFound  = errors.New("prize table not found")

	// Invalid transition. Lifecycle commands return *models.TransitionError,
	// which matches this sentinel.
	ErrInvalidTransition     = models.ErrInvalidTransition
	ErrTournamentNotFinished = errors.New("tournament is not finished")
	ErrInvalidPositions      = fmt.Errorf("%w: finish positions are invalid", models.ErrInvalidTransition)

	// Missing configuration
	ErrNoBlindLevels    = models.ErrNoBlindLevels
	ErrNoPrizeStructure = errors.New("tournament has no usable prize structure")

	// Level changes
	ErrNoNextLevel     = models.ErrNoNextLevel
	ErrNoPreviousLevel = models.ErrNoPreviousLevel
	// ErrStaleLevel means the persisted level moved since the caller read it.
	ErrStaleLevel = errors.New("tournament level changed concurrently")

	// Validation
	ErrRebuyNotAllowed = errors.New("rebuy is not allowed")
	ErrAddonNotOffered = errors.New("tournament does not offer an add-on")
	ErrCheckInClosed   = errors.New("check-in is closed for this tournament")
	ErrNotCheckedIn    = errors.New("player is not checked in")
	ErrInvalidExpense  = errors.New("expense is invalid")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnknownTemplate = errors.New("unknown blind template")
	ErrPaymentState    = models.ErrPaymentState
	ErrNotPaymentParty = errors.New("player is not a party of this payment")

	// ErrSettlementUnbalanced means a balance was left over after matching.
	// The reconciliation step makes this unreachable for consistent input.
	ErrSettlementUnbalanced = errors.New("settlement left an unmatched balance")
)
