package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"poker-tournament-system/models"
)

var splitTolerance = decimal.RequireFromString("0.01")

type ExpenseService struct {
	store  Store
	logger zerolog.Logger
}

func NewExpenseService(store Store, logger zerolog.Logger) *ExpenseService {
	return &ExpenseService{
		store:  store,
		logger: logger.With().Str("component", "expense_service").Logger(),
	}
}

type ExpenseShareRequest struct {
	PlayerID string          `json:"player_id"`
	Amount   decimal.Decimal `json:"amount"`
}

type CreateExpenseInput struct {
	PaidBy      string                  `json:"paid_by"`
	Description string                  `json:"description"`
	TotalAmount decimal.Decimal         `json:"total_amount"`
	SplitType   models.ExpenseSplitType `json:"split_type"`
	Shares      []ExpenseShareRequest   `json:"shares"`
}

// CreateExpense records a shared cost. Equal splits round each share to
// cents and put the remainder on the first share; custom splits must add up
// to the total within one cent.
func (s *ExpenseService) CreateExpense(ctx context.Context, tournamentID string, in CreateExpenseInput) (*models.Expense, error) {
	if !in.TotalAmount.IsPositive() {
		return nil, fmt.Errorf("%w: total must be positive", ErrInvalidExpense)
	}
	if len(in.Shares) == 0 {
		return nil, fmt.Errorf("%w: no shares", ErrInvalidExpense)
	}
	if in.SplitType == "" {
		in.SplitType = models.ExpenseSplitEqual
	}

	shares, err := splitExpense(in)
	if err != nil {
		return nil, err
	}

	e := &models.Expense{
		TournamentID:   tournamentID,
		PaidByPlayerID: in.PaidBy,
		Description:    strings.TrimSpace(in.Description),
		TotalAmount:    in.TotalAmount,
		SplitType:      in.SplitType,
		Shares:         shares,
	}
	err = s.store.WithTx(ctx, func(tx Store) error {
		t, err := tx.GetTournament(ctx, tournamentID)
		if err != nil {
			return err
		}
		if t.Status == models.StatusCancelled {
			return &models.TransitionError{From: t.Status, Command: "add_expense"}
		}
		if t.Participant(in.PaidBy) == nil {
			return fmt.Errorf("%w: payer %s", ErrParticipantNotFound, in.PaidBy)
		}
		for _, sh := range shares {
			if t.Participant(sh.PlayerID) == nil {
				return fmt.Errorf("%w: share holder %s", ErrParticipantNotFound, sh.PlayerID)
			}
		}
		return tx.CreateExpense(ctx, e)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("tournament_id", tournamentID).
		Str("expense_id", e.ID).
		Str("total", e.TotalAmount.String()).
		Msg("expense created")
	return e, nil
}

func splitExpense(in CreateExpenseInput) ([]models.ExpenseShare, error) {
	seen := make(map[string]bool, len(in.Shares))
	for _, sh := range in.Shares {
		if sh.PlayerID == "" || seen[sh.PlayerID] {
			return nil, fmt.Errorf("%w: duplicate or empty share holder", ErrInvalidExpense)
		}
		seen[sh.PlayerID] = true
	}

	shares := make([]models.ExpenseShare, len(in.Shares))
	switch in.SplitType {
	case models.ExpenseSplitEqual:
		n := decimal.NewFromInt(int64(len(in.Shares)))
		each := in.TotalAmount.Div(n).Round(2)
		remainder := in.TotalAmount.Sub(each.Mul(n))
		for i, sh := range in.Shares {
			shares[i] = models.ExpenseShare{PlayerID: sh.PlayerID, Amount: each}
		}
		shares[0].Amount = shares[0].Amount.Add(remainder)
	case models.ExpenseSplitCustom:
		total := decimal.Zero
		for i, sh := range in.Shares {
			if sh.Amount.IsNegative() {
				return nil, fmt.Errorf("%w: negative share", ErrInvalidExpense)
			}
			shares[i] = models.ExpenseShare{PlayerID: sh.PlayerID, Amount: sh.Amount}
			total = total.Add(sh.Amount)
		}
		if total.Sub(in.TotalAmount).Abs().GreaterThan(splitTolerance) {
			return nil, fmt.Errorf("%w: shares add up to %s, total is %s", ErrInvalidExpense, total.StringFixed(2), in.TotalAmount.StringFixed(2))
		}
	default:
		return nil, fmt.Errorf("%w: unknown split type %q", ErrInvalidExpense, in.SplitType)
	}
	return shares, nil
}

func (s *ExpenseService) ListExpenses(ctx context.Context, tournamentID string) ([]models.Expense, error) {
	if _, err := s.store.GetTournament(ctx, tournamentID); err != nil {
		return nil, err
	}
	return s.store.ListExpenses(ctx, tournamentID)
}
