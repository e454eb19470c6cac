package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TournamentStatus string

const (
	StatusScheduled  TournamentStatus = "scheduled"
	StatusInProgress TournamentStatus = "in_progress"
	StatusPaused     TournamentStatus = "paused"
	StatusFinished   TournamentStatus = "finished"
	StatusCancelled  TournamentStatus = "cancelled"
)

// IsTerminal reports whether no further transition is possible.
func (s TournamentStatus) IsTerminal() bool {
	return s == StatusFinished || s == StatusCancelled
}

// IsRunning reports whether the blind clock exists for this status.
func (s TournamentStatus) IsRunning() bool {
	return s == StatusInProgress || s == StatusPaused
}

type RebuyLimitType string

const (
	RebuyLimitNone  RebuyLimitType = "none"
	RebuyLimitLevel RebuyLimitType = "level"
	RebuyLimitTime  RebuyLimitType = "time"
	RebuyLimitBoth  RebuyLimitType = "both"
)

type PrizeDistributionType string

const (
	PrizeDistributionPercentage PrizeDistributionType = "percentage"
	PrizeDistributionFixed      PrizeDistributionType = "fixed"
)

// Tournament is the aggregate root of a single live event.
//
// TimeRemainingSeconds and CurrentLevelStartedAt form an anchor pair: the
// remaining time at instant t is TimeRemainingSeconds minus the whole seconds
// elapsed since CurrentLevelStartedAt. Both are nil outside InProgress/Paused.
type Tournament struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	LeagueID    *string   `json:"league_id,omitempty" gorm:"index"`
	Name        string    `json:"name" gorm:"not null"`
	Location    string    `json:"location,omitempty"`
	ScheduledAt time.Time `json:"scheduled_at"`

	BuyIn         decimal.Decimal `json:"buy_in" gorm:"type:numeric(12,2);not null;default:0"`
	StartingStack int             `json:"starting_stack" gorm:"default:0"`

	RebuyValue        decimal.Decimal `json:"rebuy_value" gorm:"type:numeric(12,2);not null;default:0"`
	RebuyStack        int             `json:"rebuy_stack" gorm:"default:0"`
	RebuyLimitType    RebuyLimitType  `json:"rebuy_limit_type" gorm:"type:varchar(16);default:'none'"`
	RebuyLimitLevel   *int            `json:"rebuy_limit_level,omitempty"`
	RebuyLimitMinutes *int            `json:"rebuy_limit_minutes,omitempty"`

	AddonValue decimal.Decimal `json:"addon_value" gorm:"type:numeric(12,2);not null;default:0"`
	AddonStack int             `json:"addon_stack" gorm:"default:0"`

	// PrizeStructure is a comma separated list, percentages or fixed amounts
	// depending on PrizeDistributionType (e.g. "50,30,20").
	PrizeStructure        string                `json:"prize_structure,omitempty"`
	PrizeDistributionType PrizeDistributionType `json:"prize_distribution_type" gorm:"type:varchar(16);default:'percentage'"`
	PrizeTableID          *string               `json:"prize_table_id,omitempty"`

	AllowCheckInUntilLevel *int `json:"allow_check_in_until_level,omitempty"`

	Status                TournamentStatus `json:"status" gorm:"type:varchar(16);default:'scheduled';index"`
	CurrentLevel          int              `json:"current_level" gorm:"default:0"`
	TimeRemainingSeconds  *int             `json:"time_remaining_seconds,omitempty"`
	CurrentLevelStartedAt *time.Time       `json:"current_level_started_at,omitempty"`
	StartedAt             *time.Time       `json:"started_at,omitempty"`
	FinishedAt            *time.Time       `json:"finished_at,omitempty"`

	Timestamps

	// Relationships
	BlindLevels    []BlindLevel    `json:"blind_levels,omitempty" gorm:"foreignKey:TournamentID;constraint:OnDelete:CASCADE"`
	Participations []Participation `json:"participations,omitempty" gorm:"foreignKey:TournamentID;constraint:OnDelete:CASCADE"`
}

func (t *Tournament) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// BlindLevel is one timed step of the blind schedule. Order is 1-based.
type BlindLevel struct {
	ID               string `json:"id" gorm:"primaryKey"`
	TournamentID     string `json:"tournament_id" gorm:"not null;uniqueIndex:idx_blind_level_order"`
	Order            int    `json:"order" gorm:"column:level_order;not null;uniqueIndex:idx_blind_level_order"`
	SmallBlind       int    `json:"small_blind"`
	BigBlind         int    `json:"big_blind"`
	Ante             int    `json:"ante"`
	DurationMinutes  int    `json:"duration_minutes" gorm:"not null"`
	IsBreak          bool   `json:"is_break" gorm:"default:false"`
	BreakDescription string `json:"break_description,omitempty"`
}

func (b *BlindLevel) BeforeCreate(tx *gorm.DB) error {
	ensureID(&b.ID)
	return nil
}

func (b BlindLevel) DurationSeconds() int {
	return b.DurationMinutes * 60
}

// LevelByOrder returns the blind level with the given order, or nil.
func (t *Tournament) LevelByOrder(order int) *BlindLevel {
	for i := range t.BlindLevels {
		if t.BlindLevels[i].Order == order {
			return &t.BlindLevels[i]
		}
	}
	return nil
}

func (t *Tournament) CurrentBlind() *BlindLevel {
	return t.LevelByOrder(t.CurrentLevel)
}

func (t *Tournament) NextBlind() *BlindLevel {
	return t.LevelByOrder(t.CurrentLevel + 1)
}

// RemainingAt evaluates the anchor pair at now, clamped to zero. A missing
// anchor falls back to the full duration of the current level.
func (t *Tournament) RemainingAt(now time.Time) int {
	if t.TimeRemainingSeconds == nil {
		if lvl := t.CurrentBlind(); lvl != nil {
			return lvl.DurationSeconds()
		}
		return 0
	}
	if t.Status == StatusPaused || t.CurrentLevelStartedAt == nil {
		return max(*t.TimeRemainingSeconds, 0)
	}
	return RemainingSeconds(*t.TimeRemainingSeconds, *t.CurrentLevelStartedAt, now)
}

// RemainingSeconds is the anti-drift countdown: baseline minus whole seconds
// elapsed since anchor, never negative.
func RemainingSeconds(baseline int, anchor, now time.Time) int {
	elapsed := max(int(now.Sub(anchor)/time.Second), 0)
	return max(baseline-elapsed, 0)
}

// Anchor stores a fresh anchor pair.
func (t *Tournament) Anchor(remaining int, at time.Time) {
	r := remaining
	a := at
	t.TimeRemainingSeconds = &r
	t.CurrentLevelStartedAt = &a
}

func (t *Tournament) clearClock() {
	t.TimeRemainingSeconds = nil
	t.CurrentLevelStartedAt = nil
}

// IsCheckInAllowed is open before start and, once running, only up to
// AllowCheckInUntilLevel.
func (t *Tournament) IsCheckInAllowed() bool {
	switch {
	case t.Status == StatusScheduled:
		return true
	case t.Status.IsTerminal():
		return false
	case t.AllowCheckInUntilLevel != nil:
		return t.CurrentLevel <= *t.AllowCheckInUntilLevel
	default:
		return false
	}
}

// IsRebuyAllowed applies the configured limit rule. Minutes are counted from
// StartedAt.
func (t *Tournament) IsRebuyAllowed(now time.Time) bool {
	if !t.RebuyValue.IsPositive() {
		return false
	}
	elapsedMinutes := 0
	if t.StartedAt != nil {
		elapsedMinutes = int(now.Sub(*t.StartedAt) / time.Minute)
	}
	levelOK := t.RebuyLimitLevel != nil && t.CurrentLevel <= *t.RebuyLimitLevel
	timeOK := t.RebuyLimitMinutes != nil && elapsedMinutes <= *t.RebuyLimitMinutes

	switch t.RebuyLimitType {
	case RebuyLimitLevel:
		return levelOK
	case RebuyLimitTime:
		return timeOK
	case RebuyLimitBoth:
		return levelOK && timeOK
	default:
		return true
	}
}
