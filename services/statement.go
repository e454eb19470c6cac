package services

import (
	"time"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"poker-tournament-system/models"
)

// SettlementStatement is the archived record of a settlement run.
type SettlementStatement struct {
	TournamentID string           `json:"tournament_id"`
	Name         string           `json:"name"`
	FinishedAt   *time.Time       `json:"finished_at,omitempty"`
	PrizePool    decimal.Decimal  `json:"prize_pool"`
	Jackpot      int64            `json:"jackpot"`
	Balances     []PlayerBalance  `json:"balances"`
	Payments     []models.Payment `json:"payments"`
	Lines        []string         `json:"lines"`
}

var statementPrinter = message.NewPrinter(language.English)

func BuildStatement(t *models.Tournament, balances []PlayerBalance, jackpot int64, payments []models.Payment) SettlementStatement {
	names := make(map[string]string, len(t.Participations))
	for _, p := range t.Participations {
		names[p.PlayerID] = p.PlayerName
	}
	nameOf := func(id string) string {
		if n := names[id]; n != "" {
			return n
		}
		return id
	}

	lines := make([]string, 0, len(payments))
	for _, p := range payments {
		to := JackpotPayeeName
		if p.ToPlayerID != nil {
			to = nameOf(*p.ToPlayerID)
		}
		lines = append(lines, statementPrinter.Sprintf("%s pays %s %d (%s)", nameOf(p.FromPlayerID), to, p.Amount, p.Description))
	}

	return SettlementStatement{
		TournamentID: t.ID,
		Name:         t.Name,
		FinishedAt:   t.FinishedAt,
		PrizePool:    t.PrizePool().PrizePool,
		Jackpot:      jackpot,
		Balances:     balances,
		Payments:     payments,
		Lines:        lines,
	}
}

// StatementKey is the object key of a tournament's statement.
func StatementKey(t *models.Tournament) string {
	name := slug.Make(t.Name)
	if name == "" {
		name = "tournament"
	}
	return "settlements/" + name + "/" + t.ID + ".json"
}
