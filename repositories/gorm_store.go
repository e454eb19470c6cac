package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"poker-tournament-system/models"
	"poker-tournament-system/services"
)

// GormStore implements services.Store on top of gorm.
type GormStore struct {
	db   *gorm.DB
	inTx bool
}

var _ services.Store = (*GormStore)(nil)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) WithTx(ctx context.Context, fn func(tx services.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx, inTx: true})
	})
}

// lockRows is only honoured by postgres; sqlite serialises writers anyway.
func (s *GormStore) lockRows() bool {
	return s.inTx && s.db.Dialector.Name() == "postgres"
}

func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

func withTournamentChildren(db *gorm.DB) *gorm.DB {
	return db.
		Preload("BlindLevels", func(db *gorm.DB) *gorm.DB {
			return db.Order("level_order ASC")
		}).
		Preload("Participations", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, player_id ASC")
		})
}

func (s *GormStore) CreateTournament(ctx context.Context, t *models.Tournament) error {
	return s.db.WithContext(ctx).Create(t).Error
}

func (s *GormStore) GetTournament(ctx context.Context, id string) (*models.Tournament, error) {
	q := withTournamentChildren(s.db.WithContext(ctx))
	if s.lockRows() {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var t models.Tournament
	if err := q.First(&t, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("get tournament %s: %w", id, notFound(err, services.ErrTournamentNotFound))
	}
	return &t, nil
}

func (s *GormStore) ListRunningTournaments(ctx context.Context) ([]models.Tournament, error) {
	var ts []models.Tournament
	err := s.db.WithContext(ctx).
		Preload("BlindLevels", func(db *gorm.DB) *gorm.DB {
			return db.Order("level_order ASC")
		}).
		Where("status = ?", models.StatusInProgress).
		Find(&ts).Error
	if err != nil {
		return nil, fmt.Errorf("list running tournaments: %w", err)
	}
	return ts, nil
}

func (s *GormStore) SaveTournament(ctx context.Context, t *models.Tournament) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Save(t).Error
}

func (s *GormStore) SaveTimerSnapshot(ctx context.Context, id string, remaining int, anchor time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.Tournament{}).
		Where("id = ? AND status = ?", id, models.StatusInProgress).
		Updates(map[string]any{
			"time_remaining_seconds":   remaining,
			"current_level_started_at": anchor,
		}).Error
}

func (s *GormStore) CreateParticipation(ctx context.Context, p *models.Participation) error {
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *GormStore) SaveParticipation(ctx context.Context, p *models.Participation) error {
	return s.db.WithContext(ctx).Save(p).Error
}

func (s *GormStore) GetLeague(ctx context.Context, id string) (*models.League, error) {
	var l models.League
	if err := s.db.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("get league %s: %w", id, notFound(err, services.ErrLeagueNotFound))
	}
	return &l, nil
}

func withEntries(db *gorm.DB) *gorm.DB {
	return db.Preload("Entries", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

func (s *GormStore) GetPrizeTable(ctx context.Context, id string) (*models.PrizeTable, error) {
	var pt models.PrizeTable
	if err := withEntries(s.db.WithContext(ctx)).First(&pt, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("get prize table %s: %w", id, notFound(err, services.ErrPrizeTableNotFound))
	}
	return &pt, nil
}

func (s *GormStore) ListPrizeTables(ctx context.Context, leagueID string) ([]models.PrizeTable, error) {
	var tables []models.PrizeTable
	err := withEntries(s.db.WithContext(ctx)).
		Where("league_id = ?", leagueID).
		Order("created_at ASC, id ASC").
		Find(&tables).Error
	if err != nil {
		return nil, fmt.Errorf("list prize tables: %w", err)
	}
	return tables, nil
}

func (s *GormStore) RecordJackpotContribution(ctx context.Context, c *models.JackpotContribution) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return fmt.Errorf("insert jackpot contribution: %w", err)
		}
		res := tx.Model(&models.League{}).
			Where("id = ?", c.LeagueID).
			Update("accumulated_prize_pool", gorm.Expr("accumulated_prize_pool + ?", c.Amount))
		if res.Error != nil {
			return fmt.Errorf("update league jackpot: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return services.ErrLeagueNotFound
		}
		return nil
	})
}

func (s *GormStore) GetJackpotContribution(ctx context.Context, tournamentID string) (*models.JackpotContribution, error) {
	var c models.JackpotContribution
	err := s.db.WithContext(ctx).Where("tournament_id = ?", tournamentID).Limit(1).Find(&c).Error
	if err != nil {
		return nil, fmt.Errorf("get jackpot contribution: %w", err)
	}
	if c.ID == "" {
		return nil, nil
	}
	return &c, nil
}

func (s *GormStore) CreateExpense(ctx context.Context, e *models.Expense) error {
	return s.db.WithContext(ctx).Create(e).Error
}

func (s *GormStore) ListExpenses(ctx context.Context, tournamentID string) ([]models.Expense, error) {
	var es []models.Expense
	err := s.db.WithContext(ctx).
		Preload("Shares").
		Where("tournament_id = ?", tournamentID).
		Order("created_at ASC, id ASC").
		Find(&es).Error
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return es, nil
}

func (s *GormStore) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	var p models.Payment
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("get payment %s: %w", id, notFound(err, services.ErrPaymentNotFound))
	}
	return &p, nil
}

func (s *GormStore) ListPayments(ctx context.Context, tournamentID string) ([]models.Payment, error) {
	var ps []models.Payment
	err := s.db.WithContext(ctx).
		Where("tournament_id = ?", tournamentID).
		Order("created_at ASC, id ASC").
		Find(&ps).Error
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return ps, nil
}

func (s *GormStore) SavePayment(ctx context.Context, p *models.Payment) error {
	return s.db.WithContext(ctx).Save(p).Error
}

func (s *GormStore) ReplaceSettlementPayments(ctx context.Context, tournamentID string, payments []models.Payment) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.
			Where("tournament_id = ?", tournamentID).
			Where("type IN ? OR (type = ? AND status = ?)",
				[]models.PaymentType{models.PaymentTypePoker, models.PaymentTypeJackpot},
				models.PaymentTypeExpense, models.PaymentPending).
			Delete(&models.Payment{}).Error
		if err != nil {
			return fmt.Errorf("delete previous payments: %w", err)
		}
		if len(payments) == 0 {
			return nil
		}
		if err := tx.Create(&payments).Error; err != nil {
			return fmt.Errorf("insert payments: %w", err)
		}
		return nil
	})
}
