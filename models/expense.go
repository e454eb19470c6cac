package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ExpenseSplitType string

const (
	ExpenseSplitEqual  ExpenseSplitType = "equal"
	ExpenseSplitCustom ExpenseSplitType = "custom"
)

// Expense is a shared cost (food, venue) paid by one player and split among
// several.
type Expense struct {
	ID             string           `json:"id" gorm:"primaryKey"`
	TournamentID   string           `json:"tournament_id" gorm:"not null;index"`
	PaidByPlayerID string           `json:"paid_by_player_id" gorm:"not null"`
	Description    string           `json:"description"`
	TotalAmount    decimal.Decimal  `json:"total_amount" gorm:"type:numeric(12,2);not null"`
	SplitType      ExpenseSplitType `json:"split_type" gorm:"type:varchar(16);default:'equal'"`

	Timestamps

	Shares []ExpenseShare `json:"shares" gorm:"foreignKey:ExpenseID;constraint:OnDelete:CASCADE"`
}

func (e *Expense) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

type ExpenseShare struct {
	ID        string          `json:"id" gorm:"primaryKey"`
	ExpenseID string          `json:"expense_id" gorm:"not null;index"`
	PlayerID  string          `json:"player_id" gorm:"not null"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
}

func (s *ExpenseShare) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
