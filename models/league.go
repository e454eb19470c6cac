package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// League only carries what the tournament runtime reads: the jackpot
// percentage and the accumulated jackpot pool.
type League struct {
	ID                   string          `json:"id" gorm:"primaryKey"`
	Name                 string          `json:"name" gorm:"not null"`
	JackpotPercentage    decimal.Decimal `json:"jackpot_percentage" gorm:"type:numeric(5,2);not null;default:0"`
	AccumulatedPrizePool decimal.Decimal `json:"accumulated_prize_pool" gorm:"type:numeric(12,2);not null;default:0"`

	Timestamps
}

func (l *League) BeforeCreate(tx *gorm.DB) error {
	ensureID(&l.ID)
	return nil
}

// PrizeTable is a reusable payout table for one exact prize pool total.
type PrizeTable struct {
	ID             string          `json:"id" gorm:"primaryKey"`
	LeagueID       string          `json:"league_id" gorm:"not null;index"`
	Name           string          `json:"name"`
	PrizePoolTotal decimal.Decimal `json:"prize_pool_total" gorm:"type:numeric(12,2);not null"`
	JackpotAmount  decimal.Decimal `json:"jackpot_amount" gorm:"type:numeric(12,2);not null;default:0"`

	Timestamps

	Entries []PrizeTableEntry `json:"entries" gorm:"foreignKey:PrizeTableID;constraint:OnDelete:CASCADE"`
}

func (p *PrizeTable) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

type PrizeTableEntry struct {
	ID           string          `json:"id" gorm:"primaryKey"`
	PrizeTableID string          `json:"prize_table_id" gorm:"not null;index"`
	Position     int             `json:"position" gorm:"not null"`
	PrizeAmount  decimal.Decimal `json:"prize_amount" gorm:"type:numeric(12,2);not null"`
}

func (e *PrizeTableEntry) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

// JackpotContribution records the share of one tournament's pool that went
// into the league jackpot.
type JackpotContribution struct {
	ID           string          `json:"id" gorm:"primaryKey"`
	LeagueID     string          `json:"league_id" gorm:"not null;index"`
	TournamentID string          `json:"tournament_id" gorm:"not null;uniqueIndex"`
	Amount       decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	PrizePool    decimal.Decimal `json:"prize_pool" gorm:"type:numeric(12,2);not null"`
	Percentage   decimal.Decimal `json:"percentage" gorm:"type:numeric(5,2);not null"`
	CreatedAt    time.Time       `json:"created_at" gorm:"autoCreateTime"`
}

func (j *JackpotContribution) BeforeCreate(tx *gorm.DB) error {
	ensureID(&j.ID)
	return nil
}
