package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrPaymentState = errors.New("payment is not in the required state")

type PaymentType string

const (
	PaymentTypePoker   PaymentType = "poker"
	PaymentTypeExpense PaymentType = "expense"
	PaymentTypeJackpot PaymentType = "jackpot"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentConfirmed PaymentStatus = "confirmed"
)

// Payment is a directed settlement instruction. ToPlayerID is nil only when
// the money goes to the jackpot pool. Amount is in whole currency units.
type Payment struct {
	ID           string        `json:"id" gorm:"primaryKey"`
	TournamentID string        `json:"tournament_id" gorm:"not null;index"`
	FromPlayerID string        `json:"from_player_id" gorm:"not null;index"`
	ToPlayerID   *string       `json:"to_player_id,omitempty" gorm:"index"`
	Amount       int64         `json:"amount" gorm:"not null"`
	Type         PaymentType   `json:"type" gorm:"type:varchar(16);not null"`
	Status       PaymentStatus `json:"status" gorm:"type:varchar(16);default:'pending'"`
	Description  string        `json:"description,omitempty"`
	ExpenseID    *string       `json:"expense_id,omitempty" gorm:"index"`
	PaidAt       *time.Time    `json:"paid_at,omitempty"`
	ConfirmedAt  *time.Time    `json:"confirmed_at,omitempty"`

	Timestamps
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// MarkAsPaid: Pending → Paid
func (p *Payment) MarkAsPaid(now time.Time) error {
	if p.Status != PaymentPending {
		return ErrPaymentState
	}
	p.Status = PaymentPaid
	p.PaidAt = &now
	return nil
}

// Confirm: Paid → Confirmed
func (p *Payment) Confirm(now time.Time) error {
	if p.Status != PaymentPaid {
		return ErrPaymentState
	}
	p.Status = PaymentConfirmed
	p.ConfirmedAt = &now
	return nil
}
