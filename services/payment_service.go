package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"poker-tournament-system/models"
)

// StatementArchiver stores a rendered settlement statement under key.
type StatementArchiver interface {
	ArchiveStatement(ctx context.Context, key string, body []byte) error
}

type PaymentService struct {
	store    Store
	archiver StatementArchiver
	clock    clockwork.Clock
	logger   zerolog.Logger
}

func NewPaymentService(store Store, clock clockwork.Clock, logger zerolog.Logger) *PaymentService {
	return &PaymentService{
		store:  store,
		clock:  clock,
		logger: logger.With().Str("component", "payment_service").Logger(),
	}
}

// UseArchiver enables uploading a statement after each settlement.
func (s *PaymentService) UseArchiver(a StatementArchiver) {
	s.archiver = a
}

// Balances returns the rounded net result of every checked-in player.
func (s *PaymentService) Balances(ctx context.Context, tournamentID string) ([]PlayerBalance, error) {
	t, err := s.store.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	return balancesOf(t), nil
}

func balancesOf(t *models.Tournament) []PlayerBalance {
	balances := make([]PlayerBalance, 0, len(t.Participations))
	for _, p := range t.Participations {
		if !p.CheckedIn {
			continue
		}
		balances = append(balances, PlayerBalance{
			PlayerID: p.PlayerID,
			Name:     p.PlayerName,
			Balance:  RoundMoney(p.ProfitLoss(t)),
		})
	}
	return balances
}

type expenseKey struct {
	expenseID string
	from      string
}

// CalculateSettlement replaces the generated payments of a finished
// tournament. Running it again yields the same set. Expense payments that
// were already paid or confirmed are kept and not issued twice.
func (s *PaymentService) CalculateSettlement(ctx context.Context, tournamentID string) ([]models.Payment, error) {
	var (
		t        *models.Tournament
		balances []PlayerBalance
		jackpot  int64
		result   []models.Payment
	)
	err := s.store.WithTx(ctx, func(tx Store) error {
		var err error
		t, err = tx.GetTournament(ctx, tournamentID)
		if err != nil {
			return err
		}
		if t.Status != models.StatusFinished {
			return fmt.Errorf("%w: status is %s", ErrTournamentNotFinished, t.Status)
		}

		contribution, err := tx.GetJackpotContribution(ctx, tournamentID)
		if err != nil {
			return err
		}
		if contribution != nil {
			jackpot = RoundMoney(contribution.Amount)
		}
		expenses, err := tx.ListExpenses(ctx, tournamentID)
		if err != nil {
			return err
		}
		existing, err := tx.ListPayments(ctx, tournamentID)
		if err != nil {
			return err
		}

		balances = balancesOf(t)
		transfers, err := ComputeSettlement(SettlementInput{
			Balances: balances,
			Jackpot:  jackpot,
			Expenses: expenseInputs(expenses),
		})
		if err != nil {
			return err
		}

		settled := make(map[expenseKey]bool)
		for _, p := range existing {
			if p.Type == models.PaymentTypeExpense && p.ExpenseID != nil && p.Status != models.PaymentPending {
				settled[expenseKey{*p.ExpenseID, p.FromPlayerID}] = true
			}
		}

		payments := make([]models.Payment, 0, len(transfers))
		for _, tr := range transfers {
			if tr.ExpenseID != nil && settled[expenseKey{*tr.ExpenseID, tr.From}] {
				continue
			}
			payments = append(payments, models.Payment{
				TournamentID: tournamentID,
				FromPlayerID: tr.From,
				ToPlayerID:   tr.To,
				Amount:       tr.Amount,
				Type:         tr.Type,
				Status:       models.PaymentPending,
				Description:  tr.Description,
				ExpenseID:    tr.ExpenseID,
			})
		}
		if err := tx.ReplaceSettlementPayments(ctx, tournamentID, payments); err != nil {
			return err
		}

		result, err = tx.ListPayments(ctx, tournamentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("tournament_id", tournamentID).
		Int("payments", len(result)).
		Int64("jackpot", jackpot).
		Msg("settlement calculated")

	s.archive(ctx, t, balances, jackpot, result)
	return result, nil
}

func expenseInputs(expenses []models.Expense) []ExpenseInput {
	out := make([]ExpenseInput, 0, len(expenses))
	for _, e := range expenses {
		in := ExpenseInput{ExpenseID: e.ID, PaidBy: e.PaidByPlayerID, Description: e.Description}
		for _, sh := range e.Shares {
			in.Shares = append(in.Shares, ExpenseShareInput{PlayerID: sh.PlayerID, Amount: sh.Amount})
		}
		out = append(out, in)
	}
	return out
}

func (s *PaymentService) archive(ctx context.Context, t *models.Tournament, balances []PlayerBalance, jackpot int64, payments []models.Payment) {
	if s.archiver == nil {
		return
	}
	statement := BuildStatement(t, balances, jackpot, payments)
	body, err := json.Marshal(statement)
	if err != nil {
		s.logger.Error().Err(err).Str("tournament_id", t.ID).Msg("failed to encode settlement statement")
		return
	}
	key := StatementKey(t)
	if err := s.archiver.ArchiveStatement(ctx, key, body); err != nil {
		s.logger.Warn().Err(err).Str("tournament_id", t.ID).Str("key", key).Msg("failed to archive settlement statement")
		return
	}
	s.logger.Debug().Str("tournament_id", t.ID).Str("key", key).Msg("settlement statement archived")
}

func (s *PaymentService) ListPayments(ctx context.Context, tournamentID string) ([]models.Payment, error) {
	if _, err := s.store.GetTournament(ctx, tournamentID); err != nil {
		return nil, err
	}
	return s.store.ListPayments(ctx, tournamentID)
}

// MarkAsPaid is done by the paying player.
func (s *PaymentService) MarkAsPaid(ctx context.Context, paymentID, fromPlayerID string) (*models.Payment, error) {
	now := s.clock.Now()
	return s.updatePayment(ctx, paymentID, func(p *models.Payment) error {
		if p.FromPlayerID != fromPlayerID {
			return ErrNotPaymentParty
		}
		return p.MarkAsPaid(now)
	})
}

// ConfirmPayment is done by the receiving player. Jackpot payments have no
// receiving player and accept any confirmer.
func (s *PaymentService) ConfirmPayment(ctx context.Context, paymentID, toPlayerID string) (*models.Payment, error) {
	now := s.clock.Now()
	return s.updatePayment(ctx, paymentID, func(p *models.Payment) error {
		if p.ToPlayerID != nil && *p.ToPlayerID != toPlayerID {
			return ErrNotPaymentParty
		}
		return p.Confirm(now)
	})
}

func (s *PaymentService) updatePayment(ctx context.Context, paymentID string, fn func(p *models.Payment) error) (*models.Payment, error) {
	var out *models.Payment
	err := s.store.WithTx(ctx, func(tx Store) error {
		p, err := tx.GetPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		if err := tx.SavePayment(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("payment_id", out.ID).Str("status", string(out.Status)).Msg("payment updated")
	return out, nil
}
