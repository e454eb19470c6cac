package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Participation = one registered player in one tournament
type Participation struct {
	ID           string `json:"id" gorm:"primaryKey"`
	TournamentID string `json:"tournament_id" gorm:"not null;uniqueIndex:idx_participation_player"`
	PlayerID     string `json:"player_id" gorm:"not null;uniqueIndex:idx_participation_player"`
	PlayerName   string `json:"player_name"`

	CheckedIn   bool       `json:"checked_in" gorm:"default:false"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
	RebuyCount  int        `json:"rebuy_count" gorm:"default:0"`
	HasAddon    bool       `json:"has_addon" gorm:"default:false"`

	// Results
	Position     *int            `json:"position,omitempty"`
	Prize        decimal.Decimal `json:"prize" gorm:"type:numeric(12,2);not null;default:0"`
	EliminatedBy *string         `json:"eliminated_by,omitempty"`
	EliminatedAt *time.Time      `json:"eliminated_at,omitempty"`

	Timestamps
}

func (p *Participation) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// TotalInvestment = buy-in + rebuys + add-on under t's prices.
func (p Participation) TotalInvestment(t *Tournament) decimal.Decimal {
	total := t.BuyIn.Add(t.RebuyValue.Mul(decimal.NewFromInt(int64(p.RebuyCount))))
	if p.HasAddon {
		total = total.Add(t.AddonValue)
	}
	return total
}

func (p Participation) ProfitLoss(t *Tournament) decimal.Decimal {
	return p.Prize.Sub(p.TotalInvestment(t))
}

// Participant returns the participation of playerID, or nil.
func (t *Tournament) Participant(playerID string) *Participation {
	for i := range t.Participations {
		if t.Participations[i].PlayerID == playerID {
			return &t.Participations[i]
		}
	}
	return nil
}

// PoolSummary is the live prize pool and the counters it is derived from.
type PoolSummary struct {
	PrizePool   decimal.Decimal `json:"prize_pool"`
	CheckedIn   int             `json:"checked_in"`
	TotalRebuys int             `json:"total_rebuys"`
	TotalAddons int             `json:"total_addons"`
}

// PrizePool sums buy-ins of checked-in players plus every rebuy and add-on.
// It is always derived from the participation rows.
func (t *Tournament) PrizePool() PoolSummary {
	var s PoolSummary
	for _, p := range t.Participations {
		if p.CheckedIn {
			s.CheckedIn++
		}
		s.TotalRebuys += p.RebuyCount
		if p.HasAddon {
			s.TotalAddons++
		}
	}
	s.PrizePool = t.BuyIn.Mul(decimal.NewFromInt(int64(s.CheckedIn))).
		Add(t.RebuyValue.Mul(decimal.NewFromInt(int64(s.TotalRebuys)))).
		Add(t.AddonValue.Mul(decimal.NewFromInt(int64(s.TotalAddons))))
	return s
}
