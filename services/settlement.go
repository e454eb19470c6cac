package services

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"poker-tournament-system/models"
)

const (
	JackpotPayeeName   = "Jackpot pool"
	PokerResultSummary = "Tournament result"
)

// PlayerBalance is a net result in whole currency units; negative means the
// player owes money.
type PlayerBalance struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Balance  int64  `json:"balance"`
}

type ExpenseShareInput struct {
	PlayerID string
	Amount   decimal.Decimal
}

type ExpenseInput struct {
	ExpenseID   string
	PaidBy      string
	Description string
	Shares      []ExpenseShareInput
}

type SettlementInput struct {
	Balances []PlayerBalance
	Jackpot  int64
	Expenses []ExpenseInput
}

// Transfer is one payment instruction. To is nil for the jackpot pool.
type Transfer struct {
	From        string             `json:"from"`
	To          *string            `json:"to,omitempty"`
	Amount      int64              `json:"amount"`
	Type        models.PaymentType `json:"type"`
	Description string             `json:"description"`
	ExpenseID   *string            `json:"expense_id,omitempty"`
}

// RoundMoney rounds half away from zero to whole currency units.
func RoundMoney(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

type debtor struct {
	playerID  string
	remaining int64
}

type creditor struct {
	playerID  *string
	remaining int64
}

func (c *creditor) isJackpot() bool { return c.playerID == nil }

type settler struct {
	debtors   []*debtor
	creditors []*creditor
	transfers []Transfer
}

// ComputeSettlement turns net balances into payment instructions:
//  1. exact matches, smallest debts first
//  2. one creditor absorbing a whole debt, largest debts first
//  3. greedy split across creditors, largest first
//  4. direct expense payments from each ower to the payer
//
// The jackpot contribution takes part as a creditor with no player.
func ComputeSettlement(in SettlementInput) ([]Transfer, error) {
	s := &settler{}
	for _, b := range in.Balances {
		switch {
		case b.Balance < 0:
			s.debtors = append(s.debtors, &debtor{playerID: b.PlayerID, remaining: -b.Balance})
		case b.Balance > 0:
			id := b.PlayerID
			s.creditors = append(s.creditors, &creditor{playerID: &id, remaining: b.Balance})
		}
	}
	if in.Jackpot > 0 {
		s.creditors = append(s.creditors, &creditor{remaining: in.Jackpot})
	}

	s.reconcile()
	s.exactMatches()
	s.singleAbsorption()
	s.greedy()

	for _, d := range s.debtors {
		if d.remaining != 0 {
			return nil, fmt.Errorf("%w: player %s still owes %d", ErrSettlementUnbalanced, d.playerID, d.remaining)
		}
	}
	for _, c := range s.creditors {
		if c.remaining != 0 {
			return nil, fmt.Errorf("%w: %d left uncollected", ErrSettlementUnbalanced, c.remaining)
		}
	}

	s.expenses(in.Expenses)
	return s.transfers, nil
}

// reconcile folds the rounding difference into the largest debtor or the
// largest player creditor so both sides sum to the same total.
func (s *settler) reconcile() {
	var debt, credit int64
	for _, d := range s.debtors {
		debt += d.remaining
	}
	for _, c := range s.creditors {
		credit += c.remaining
	}

	switch diff := credit - debt; {
	case diff > 0 && len(s.debtors) > 0:
		largest := s.debtors[0]
		for _, d := range s.debtors[1:] {
			if d.remaining > largest.remaining {
				largest = d
			}
		}
		largest.remaining += diff
	case diff < 0 && len(s.creditors) > 0:
		var largest *creditor
		for _, c := range s.creditors {
			if c.isJackpot() {
				continue
			}
			if largest == nil || c.remaining > largest.remaining {
				largest = c
			}
		}
		if largest == nil {
			largest = s.creditors[0]
		}
		largest.remaining += -diff
	}
}

func (s *settler) exactMatches() {
	for _, d := range s.debtorsBy(ascending) {
		if d.remaining <= 0 {
			continue
		}
		for _, c := range s.creditors {
			if c.remaining > 0 && c.remaining == d.remaining {
				s.pay(d, c, d.remaining)
				break
			}
		}
	}
}

func (s *settler) singleAbsorption() {
	for _, d := range s.debtorsBy(descending) {
		if d.remaining <= 0 {
			continue
		}
		var best *creditor
		for _, c := range s.creditors {
			if c.remaining >= d.remaining && (best == nil || c.remaining < best.remaining) {
				best = c
			}
		}
		if best != nil {
			s.pay(d, best, d.remaining)
		}
	}
}

func (s *settler) greedy() {
	for _, d := range s.debtorsBy(descending) {
		if d.remaining <= 0 {
			continue
		}
		creditors := slices.Clone(s.creditors)
		slices.SortStableFunc(creditors, func(a, b *creditor) int {
			return cmp.Compare(b.remaining, a.remaining)
		})
		for _, c := range creditors {
			if d.remaining == 0 {
				break
			}
			if c.remaining <= 0 {
				continue
			}
			s.pay(d, c, min(d.remaining, c.remaining))
		}
	}
}

func (s *settler) expenses(expenses []ExpenseInput) {
	for _, e := range expenses {
		for _, share := range e.Shares {
			if share.PlayerID == e.PaidBy {
				continue
			}
			amount := RoundMoney(share.Amount)
			if amount <= 0 {
				continue
			}
			payee := e.PaidBy
			expenseID := e.ExpenseID
			s.transfers = append(s.transfers, Transfer{
				From:        share.PlayerID,
				To:          &payee,
				Amount:      amount,
				Type:        models.PaymentTypeExpense,
				Description: e.Description,
				ExpenseID:   &expenseID,
			})
		}
	}
}

func (s *settler) pay(d *debtor, c *creditor, amount int64) {
	t := Transfer{
		From:        d.playerID,
		Amount:      amount,
		Type:        models.PaymentTypePoker,
		Description: PokerResultSummary,
	}
	if c.isJackpot() {
		t.Type = models.PaymentTypeJackpot
		t.Description = JackpotPayeeName
	} else {
		to := *c.playerID
		t.To = &to
	}
	s.transfers = append(s.transfers, t)
	d.remaining -= amount
	c.remaining -= amount
}

type order int

const (
	ascending order = iota
	descending
)

// debtorsBy returns a stably sorted copy keyed on the current remaining
// amounts; ties keep input order.
func (s *settler) debtorsBy(o order) []*debtor {
	out := slices.Clone(s.debtors)
	slices.SortStableFunc(out, func(a, b *debtor) int {
		if o == ascending {
			return cmp.Compare(a.remaining, b.remaining)
		}
		return cmp.Compare(b.remaining, a.remaining)
	})
	return out
}
