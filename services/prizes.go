package services

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"poker-tournament-system/models"
)

var hundred = decimal.NewFromInt(100)

type PrizeSource string

const (
	PrizeSourceAttachedTable PrizeSource = "prize_table"
	PrizeSourceLeagueTable   PrizeSource = "league_table"
	PrizeSourceStructure     PrizeSource = "structure"
)

// PrizeInput is everything prize resolution reads.
type PrizeInput struct {
	Tournament        *models.Tournament
	Pool              decimal.Decimal
	JackpotPercentage decimal.Decimal
	AttachedTable     *models.PrizeTable
	LeagueTables      []models.PrizeTable
	// Held lists the finishing positions someone holds. When set, prizes
	// for other positions fall back to first place.
	Held []int
}

// PrizeResolution maps finishing position to prize. Positions absent from
// Prizes win nothing. Sum of Prizes plus Jackpot equals Pool.
type PrizeResolution struct {
	Source  PrizeSource
	TableID string
	Prizes  map[int]decimal.Decimal
	Jackpot decimal.Decimal
	Pool    decimal.Decimal
}

func (r PrizeResolution) PrizeFor(position int) decimal.Decimal {
	return r.Prizes[position]
}

// ResolvePrizes picks the payout source in priority order: the attached
// prize table, a league table whose total equals the pool, then the
// tournament's own structure. The rounding remainder and any prize for an
// unheld position go to first place.
func ResolvePrizes(in PrizeInput) (PrizeResolution, error) {
	var (
		res PrizeResolution
		err error
	)
	switch {
	case in.AttachedTable != nil:
		res = fromTable(in.AttachedTable, PrizeSourceAttachedTable)
	case matchingTable(in.LeagueTables, in.Pool) != nil:
		res = fromTable(matchingTable(in.LeagueTables, in.Pool), PrizeSourceLeagueTable)
	default:
		res, err = fromStructure(in.Tournament, in.Pool, in.JackpotPercentage)
		if err != nil {
			return PrizeResolution{}, err
		}
	}
	res.Pool = in.Pool
	if in.Held != nil {
		for pos := range res.Prizes {
			if !slices.Contains(in.Held, pos) {
				delete(res.Prizes, pos)
			}
		}
	}

	awarded := decimal.Zero
	for _, p := range res.Prizes {
		awarded = awarded.Add(p)
	}
	remainder := in.Pool.Sub(awarded).Sub(res.Jackpot)
	first := res.Prizes[1].Add(remainder)
	if first.IsNegative() {
		return PrizeResolution{}, fmt.Errorf("%w: payouts exceed the prize pool of %s", ErrNoPrizeStructure, in.Pool)
	}
	res.Prizes[1] = first
	return res, nil
}

func matchingTable(tables []models.PrizeTable, pool decimal.Decimal) *models.PrizeTable {
	for i := range tables {
		if tables[i].PrizePoolTotal.Equal(pool) {
			return &tables[i]
		}
	}
	return nil
}

func fromTable(table *models.PrizeTable, source PrizeSource) PrizeResolution {
	prizes := make(map[int]decimal.Decimal, len(table.Entries))
	for _, e := range table.Entries {
		prizes[e.Position] = prizes[e.Position].Add(e.PrizeAmount)
	}
	return PrizeResolution{
		Source:  source,
		TableID: table.ID,
		Prizes:  prizes,
		Jackpot: table.JackpotAmount,
	}
}

func fromStructure(t *models.Tournament, pool, jackpotPct decimal.Decimal) (PrizeResolution, error) {
	values, err := ParsePrizeStructure(t.PrizeStructure)
	if err != nil {
		return PrizeResolution{}, err
	}

	jackpot := decimal.Zero
	if jackpotPct.IsPositive() {
		jackpot = pool.Mul(jackpotPct).Div(hundred).Round(0)
	}
	distributable := pool.Sub(jackpot)

	prizes := make(map[int]decimal.Decimal, len(values))
	switch t.PrizeDistributionType {
	case models.PrizeDistributionFixed:
		for i, amount := range values {
			prizes[i+1] = amount
		}
	default:
		total := decimal.Zero
		for _, pct := range values {
			total = total.Add(pct)
		}
		if total.GreaterThan(hundred) {
			return PrizeResolution{}, fmt.Errorf("%w: percentages add up to %s", ErrNoPrizeStructure, total)
		}
		for i, pct := range values {
			prizes[i+1] = distributable.Mul(pct).Div(hundred).Round(0)
		}
	}

	return PrizeResolution{
		Source:  PrizeSourceStructure,
		Prizes:  prizes,
		Jackpot: jackpot,
	}, nil
}

// ParsePrizeStructure reads "50,30,20" into ordered non-negative values.
func ParsePrizeStructure(s string) ([]decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return nil, ErrNoPrizeStructure
	}
	parts := strings.Split(s, ",")
	values := make([]decimal.Decimal, 0, len(parts))
	for _, part := range parts {
		v, err := decimal.NewFromString(strings.TrimSpace(part))
		if err != nil || v.IsNegative() {
			return nil, fmt.Errorf("%w: bad entry %q", ErrNoPrizeStructure, part)
		}
		values = append(values, v)
	}
	return values, nil
}
