package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"poker-tournament-system/models"
)

// Settler computes settlement payments for a finished tournament.
type Settler interface {
	CalculateSettlement(ctx context.Context, tournamentID string) ([]models.Payment, error)
}

type TournamentService struct {
	store   Store
	bus     Broadcaster
	timer   TimerControl
	settler Settler
	clock   clockwork.Clock
	logger  zerolog.Logger
}

func NewTournamentService(store Store, bus Broadcaster, timer TimerControl, clock clockwork.Clock, logger zerolog.Logger) *TournamentService {
	return &TournamentService{
		store:  store,
		bus:    bus,
		timer:  timer,
		clock:  clock,
		logger: logger.With().Str("component", "tournament_service").Logger(),
	}
}

// UseSettler makes Finish compute settlement right after the tournament
// is closed.
func (s *TournamentService) UseSettler(settler Settler) {
	s.settler = settler
}

type CreateTournamentInput struct {
	Name                   string                       `json:"name"`
	Location               string                       `json:"location"`
	ScheduledAt            time.Time                    `json:"scheduled_at"`
	LeagueID               *string                      `json:"league_id"`
	BuyIn                  decimal.Decimal              `json:"buy_in"`
	StartingStack          int                          `json:"starting_stack"`
	RebuyValue             decimal.Decimal              `json:"rebuy_value"`
	RebuyStack             int                          `json:"rebuy_stack"`
	RebuyLimitType         models.RebuyLimitType        `json:"rebuy_limit_type"`
	RebuyLimitLevel        *int                         `json:"rebuy_limit_level"`
	RebuyLimitMinutes      *int                         `json:"rebuy_limit_minutes"`
	AddonValue             decimal.Decimal              `json:"addon_value"`
	AddonStack             int                          `json:"addon_stack"`
	PrizeStructure         string                       `json:"prize_structure"`
	PrizeDistributionType  models.PrizeDistributionType `json:"prize_distribution_type"`
	PrizeTableID           *string                      `json:"prize_table_id"`
	AllowCheckInUntilLevel *int                         `json:"allow_check_in_until_level"`
	BlindTemplate          string                       `json:"blind_template"`
	BlindLevels            []models.BlindLevel          `json:"blind_levels"`
}

func (s *TournamentService) CreateTournament(ctx context.Context, in CreateTournamentInput) (*models.Tournament, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.BuyIn.IsNegative() || in.RebuyValue.IsNegative() || in.AddonValue.IsNegative() {
		return nil, fmt.Errorf("%w: amounts cannot be negative", ErrInvalidInput)
	}

	levels := in.BlindLevels
	if in.BlindTemplate != "" {
		tpl, err := BlindTemplate(in.BlindTemplate)
		if err != nil {
			return nil, err
		}
		levels = tpl
	}
	levels, err := normalizeLevels(levels)
	if err != nil {
		return nil, err
	}

	limitType := in.RebuyLimitType
	if limitType == "" {
		limitType = models.RebuyLimitNone
	}
	distribution := in.PrizeDistributionType
	if distribution == "" {
		distribution = models.PrizeDistributionPercentage
	}

	t := &models.Tournament{
		Name:                   strings.TrimSpace(in.Name),
		Location:               in.Location,
		ScheduledAt:            in.ScheduledAt,
		LeagueID:               in.LeagueID,
		BuyIn:                  in.BuyIn,
		StartingStack:          in.StartingStack,
		RebuyValue:             in.RebuyValue,
		RebuyStack:             in.RebuyStack,
		RebuyLimitType:         limitType,
		RebuyLimitLevel:        in.RebuyLimitLevel,
		RebuyLimitMinutes:      in.RebuyLimitMinutes,
		AddonValue:             in.AddonValue,
		AddonStack:             in.AddonStack,
		PrizeStructure:         in.PrizeStructure,
		PrizeDistributionType:  distribution,
		PrizeTableID:           in.PrizeTableID,
		AllowCheckInUntilLevel: in.AllowCheckInUntilLevel,
		Status:                 models.StatusScheduled,
		BlindLevels:            levels,
	}
	if err := s.store.CreateTournament(ctx, t); err != nil {
		return nil, fmt.Errorf("create tournament: %w", err)
	}

	s.logger.Info().Str("tournament_id", t.ID).Int("levels", len(levels)).Msg("tournament created")
	return t, nil
}

func (s *TournamentService) GetTournament(ctx context.Context, id string) (*models.Tournament, error) {
	return s.store.GetTournament(ctx, id)
}

// RegisterPlayer adds playerID to the tournament. Registering twice returns
// the existing participation.
func (s *TournamentService) RegisterPlayer(ctx context.Context, id, playerID, name string) (*models.Participation, error) {
	if strings.TrimSpace(playerID) == "" {
		return nil, fmt.Errorf("%w: player id is required", ErrInvalidInput)
	}
	var out *models.Participation
	err := s.store.WithTx(ctx, func(tx Store) error {
		t, err := tx.GetTournament(ctx, id)
		if err != nil {
			return err
		}
		if t.Status.IsTerminal() {
			return &models.TransitionError{From: t.Status, Command: "register"}
		}
		if p := t.Participant(playerID); p != nil {
			out = p
			return nil
		}
		p := &models.Participation{TournamentID: id, PlayerID: playerID, PlayerName: name}
		if err := tx.CreateParticipation(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *TournamentService) Start(ctx context.Context, id string) (*models.Tournament, error) {
	now := s.clock.Now()
	t, err := s.mutate(ctx, id, func(t *models.Tournament) error {
		return t.Start(now)
	})
	if err != nil {
		return nil, err
	}

	s.timer.Seed(ctx, t)
	s.publishLevel(t, now)
	s.logger.Info().Str("tournament_id", id).Msg("tournament started")
	return t, nil
}

// Pause snapshots the live countdown through the timer engine before the
// status changes, so a late tick cannot overwrite the paused value.
func (s *TournamentService) Pause(ctx context.Context, id string) (*models.Tournament, error) {
	now := s.clock.Now()
	var paused *models.Tournament
	err := s.timer.Pause(ctx, id, func(live *int) error {
		t, err := s.mutate(ctx, id, func(t *models.Tournament) error {
			remaining := t.RemainingAt(now)
			if live != nil {
				remaining = *live
			}
			if err := t.Pause(); err != nil {
				return err
			}
			t.Anchor(remaining, now)
			return nil
		})
		paused = t
		return err
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(id, EventPaused, PausedEvent{SecondsRemaining: *paused.TimeRemainingSeconds})
	s.logger.Info().Str("tournament_id", id).Int("seconds_remaining", *paused.TimeRemainingSeconds).Msg("tournament paused")
	return paused, nil
}

func (s *TournamentService) Resume(ctx context.Context, id string) (*models.Tournament, error) {
	now := s.clock.Now()
	t, err := s.mutate(ctx, id, func(t *models.Tournament) error {
		return t.Resume(now)
	})
	if err != nil {
		return nil, err
	}

	s.timer.Seed(ctx, t)
	s.bus.Publish(id, EventResumed, ResumedEvent{SecondsRemaining: *t.TimeRemainingSeconds})
	s.logger.Info().Str("tournament_id", id).Msg("tournament resumed")
	return t, nil
}

// AdvanceLevel is the operator path; it waits for the level lock held by the
// timer engine.
func (s *TournamentService) AdvanceLevel(ctx context.Context, id string) (*models.Tournament, error) {
	return s.changeLevel(ctx, id, (*models.Tournament).AdvanceLevel)
}

func (s *TournamentService) RevertLevel(ctx context.Context, id string) (*models.Tournament, error) {
	return s.changeLevel(ctx, id, (*models.Tournament).RevertLevel)
}

func (s *TournamentService) changeLevel(ctx context.Context, id string, apply func(*models.Tournament, time.Time) error) (*models.Tournament, error) {
	t, err := s.timer.ChangeLevel(ctx, id, func(ctx context.Context) error {
		now := s.clock.Now()
		_, err := s.mutate(ctx, id, func(t *models.Tournament) error {
			return apply(t, now)
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("tournament_id", id).Int("level", t.CurrentLevel).Msg("blind level changed by operator")
	return t, nil
}

// AdvanceLevelAuto is the timer engine's advance. It only applies while the
// tournament is in progress and still on expectedLevel; otherwise it returns
// the persisted tournament with ErrStaleLevel or a transition error.
func AdvanceLevelAuto(ctx context.Context, store Store, id string, expectedLevel int, now time.Time) (*models.Tournament, error) {
	var out *models.Tournament
	err := store.WithTx(ctx, func(tx Store) error {
		t, err := tx.GetTournament(ctx, id)
		if err != nil {
			return err
		}
		out = t
		if t.Status != models.StatusInProgress {
			return &models.TransitionError{From: t.Status, Command: models.CommandAdvanceLevel}
		}
		if t.CurrentLevel != expectedLevel {
			return ErrStaleLevel
		}
		if err := t.AdvanceLevel(now); err != nil {
			return err
		}
		return tx.SaveTournament(ctx, t)
	})
	return out, err
}

type FinishPosition struct {
	PlayerID string `json:"player_id"`
	Position int    `json:"position"`
}

type FinishResult struct {
	Tournament *models.Tournament `json:"tournament"`
	Source     PrizeSource        `json:"prize_source"`
	PrizePool  decimal.Decimal    `json:"prize_pool"`
	Jackpot    decimal.Decimal    `json:"jackpot"`
}

// Finish resolves prizes for the given positions, closes the tournament and
// records the jackpot contribution in one transaction.
func (s *TournamentService) Finish(ctx context.Context, id string, positions []FinishPosition) (*FinishResult, error) {
	if len(positions) == 0 {
		return nil, fmt.Errorf("%w: no positions given", ErrInvalidPositions)
	}

	current, err := s.store.GetTournament(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := current.Status.Transition(models.CommandFinish); err != nil {
		return nil, err
	}
	var (
		league   *models.League
		attached *models.PrizeTable
		tables   []models.PrizeTable
	)
	if current.LeagueID != nil {
		if league, err = s.store.GetLeague(ctx, *current.LeagueID); err != nil {
			return nil, err
		}
		if tables, err = s.store.ListPrizeTables(ctx, league.ID); err != nil {
			return nil, err
		}
	}
	if current.PrizeTableID != nil {
		if attached, err = s.store.GetPrizeTable(ctx, *current.PrizeTableID); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	result := &FinishResult{}
	err = s.store.WithTx(ctx, func(tx Store) error {
		t, err := tx.GetTournament(ctx, id)
		if err != nil {
			return err
		}
		if _, err := t.Status.Transition(models.CommandFinish); err != nil {
			return err
		}
		byPlayer, err := validatePositions(t, positions)
		if err != nil {
			return err
		}

		held := make([]int, 0, len(byPlayer))
		for _, pos := range byPlayer {
			held = append(held, pos)
		}
		in := PrizeInput{
			Tournament:    t,
			Pool:          t.PrizePool().PrizePool,
			AttachedTable: attached,
			LeagueTables:  tables,
			Held:          held,
		}
		if league != nil {
			in.JackpotPercentage = league.JackpotPercentage
		}
		res, err := ResolvePrizes(in)
		if err != nil {
			return err
		}

		for i := range t.Participations {
			p := &t.Participations[i]
			p.Prize = decimal.Zero
			if pos, ok := byPlayer[p.PlayerID]; ok {
				p.Position = &pos
				p.Prize = res.PrizeFor(pos)
			}
			if err := tx.SaveParticipation(ctx, p); err != nil {
				return err
			}
		}
		if err := t.MarkFinished(now); err != nil {
			return err
		}
		if err := tx.SaveTournament(ctx, t); err != nil {
			return err
		}

		if res.Jackpot.IsPositive() {
			if league == nil {
				s.logger.Warn().Str("tournament_id", id).Str("jackpot", res.Jackpot.String()).
					Msg("jackpot computed without a league, not recorded")
			} else if err := tx.RecordJackpotContribution(ctx, &models.JackpotContribution{
				LeagueID:     league.ID,
				TournamentID: id,
				Amount:       res.Jackpot,
				PrizePool:    res.Pool,
				Percentage:   jackpotPercentage(res, league),
			}); err != nil {
				return fmt.Errorf("record jackpot contribution: %w", err)
			}
		}

		result.Tournament = t
		result.Source = res.Source
		result.PrizePool = res.Pool
		result.Jackpot = res.Jackpot
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.timer.Remove(id)
	s.bus.Publish(id, EventFinished, FinishedEvent{PrizePool: result.PrizePool, Jackpot: result.Jackpot})
	s.logger.Info().
		Str("tournament_id", id).
		Str("prize_pool", result.PrizePool.String()).
		Str("jackpot", result.Jackpot.String()).
		Str("prize_source", string(result.Source)).
		Msg("tournament finished")

	if s.settler != nil {
		if _, err := s.settler.CalculateSettlement(ctx, id); err != nil {
			s.logger.Error().Err(err).Str("tournament_id", id).Msg("settlement after finish failed")
		}
	}
	return result, nil
}

// jackpotPercentage is the league rate for structure payouts. A table's fixed
// jackpot is recorded at its effective share of the pool.
func jackpotPercentage(res PrizeResolution, league *models.League) decimal.Decimal {
	if res.Source == PrizeSourceStructure {
		return league.JackpotPercentage
	}
	if !res.Pool.IsPositive() {
		return decimal.Zero
	}
	return res.Jackpot.Mul(hundred).Div(res.Pool).Round(2)
}

func validatePositions(t *models.Tournament, positions []FinishPosition) (map[string]int, error) {
	byPlayer := make(map[string]int, len(positions))
	taken := make(map[int]bool, len(positions))
	for _, fp := range positions {
		p := t.Participant(fp.PlayerID)
		switch {
		case p == nil:
			return nil, fmt.Errorf("%w: player %s is not registered", ErrInvalidPositions, fp.PlayerID)
		case !p.CheckedIn:
			return nil, fmt.Errorf("%w: player %s is not checked in", ErrInvalidPositions, fp.PlayerID)
		case fp.Position < 1:
			return nil, fmt.Errorf("%w: position %d", ErrInvalidPositions, fp.Position)
		case taken[fp.Position]:
			return nil, fmt.Errorf("%w: position %d given twice", ErrInvalidPositions, fp.Position)
		}
		if _, dup := byPlayer[fp.PlayerID]; dup {
			return nil, fmt.Errorf("%w: player %s given twice", ErrInvalidPositions, fp.PlayerID)
		}
		byPlayer[fp.PlayerID] = fp.Position
		taken[fp.Position] = true
	}
	if !taken[1] {
		return nil, fmt.Errorf("%w: nobody finished first", ErrInvalidPositions)
	}
	return byPlayer, nil
}

func (s *TournamentService) Cancel(ctx context.Context, id string) (*models.Tournament, error) {
	t, err := s.mutate(ctx, id, func(t *models.Tournament) error {
		return t.Cancel()
	})
	if err != nil {
		return nil, err
	}
	s.timer.Remove(id)
	s.logger.Info().Str("tournament_id", id).Msg("tournament cancelled")
	return t, nil
}

func (s *TournamentService) CheckIn(ctx context.Context, id, playerID string) (*models.Participation, error) {
	now := s.clock.Now()
	return s.updateParticipant(ctx, id, playerID, func(t *models.Tournament, p *models.Participation) error {
		if !t.IsCheckInAllowed() {
			return ErrCheckInClosed
		}
		if !p.CheckedIn {
			p.CheckedIn = true
			p.CheckedInAt = &now
		}
		return nil
	})
}

func (s *TournamentService) CheckOut(ctx context.Context, id, playerID string) (*models.Participation, error) {
	return s.updateParticipant(ctx, id, playerID, func(t *models.Tournament, p *models.Participation) error {
		if t.Status != models.StatusScheduled {
			return ErrCheckInClosed
		}
		p.CheckedIn = false
		p.CheckedInAt = nil
		return nil
	})
}

func (s *TournamentService) RecordRebuy(ctx context.Context, id, playerID string) (*models.Participation, error) {
	now := s.clock.Now()
	return s.updateParticipant(ctx, id, playerID, func(t *models.Tournament, p *models.Participation) error {
		if !t.Status.IsRunning() {
			return fmt.Errorf("%w: tournament is %s", ErrRebuyNotAllowed, t.Status)
		}
		if !p.CheckedIn {
			return ErrNotCheckedIn
		}
		if !t.IsRebuyAllowed(now) {
			return fmt.Errorf("%w: limit reached at level %d", ErrRebuyNotAllowed, t.CurrentLevel)
		}
		p.RebuyCount++
		return nil
	})
}

func (s *TournamentService) RemoveRebuy(ctx context.Context, id, playerID string) (*models.Participation, error) {
	return s.updateParticipant(ctx, id, playerID, func(t *models.Tournament, p *models.Participation) error {
		if t.Status.IsTerminal() {
			return &models.TransitionError{From: t.Status, Command: "remove_rebuy"}
		}
		if p.RebuyCount == 0 {
			return fmt.Errorf("%w: player has no rebuys", ErrInvalidInput)
		}
		p.RebuyCount--
		return nil
	})
}

func (s *TournamentService) SetAddon(ctx context.Context, id, playerID string, hasAddon bool) (*models.Participation, error) {
	return s.updateParticipant(ctx, id, playerID, func(t *models.Tournament, p *models.Participation) error {
		if t.Status.IsTerminal() {
			return &models.TransitionError{From: t.Status, Command: "addon"}
		}
		if hasAddon {
			if !t.AddonValue.IsPositive() {
				return ErrAddonNotOffered
			}
			if !p.CheckedIn {
				return ErrNotCheckedIn
			}
		}
		p.HasAddon = hasAddon
		return nil
	})
}

func (s *TournamentService) Eliminate(ctx context.Context, id, playerID string, eliminatedBy *string, position *int) (*models.Participation, error) {
	now := s.clock.Now()
	p, err := s.updateParticipant(ctx, id, playerID, func(t *models.Tournament, p *models.Participation) error {
		if !t.Status.IsRunning() {
			return &models.TransitionError{From: t.Status, Command: "eliminate"}
		}
		if eliminatedBy != nil {
			if *eliminatedBy == playerID || t.Participant(*eliminatedBy) == nil {
				return fmt.Errorf("%w: unknown eliminating player", ErrInvalidInput)
			}
		}
		if position != nil && *position < 1 {
			return fmt.Errorf("%w: position must be positive", ErrInvalidInput)
		}
		p.EliminatedBy = eliminatedBy
		p.EliminatedAt = &now
		p.Position = position
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.bus.Publish(id, EventPlayerEliminated, PlayerEliminatedEvent{
		PlayerID:     p.PlayerID,
		PlayerName:   p.PlayerName,
		EliminatedBy: p.EliminatedBy,
		Position:     p.Position,
	})
	return p, nil
}

func (s *TournamentService) PrizePool(ctx context.Context, id string) (models.PoolSummary, error) {
	t, err := s.store.GetTournament(ctx, id)
	if err != nil {
		return models.PoolSummary{}, err
	}
	return t.PrizePool(), nil
}

// TimerState prefers the engine's live countdown and falls back to the
// persisted anchor.
func (s *TournamentService) TimerState(ctx context.Context, id string) (TimerState, error) {
	t, err := s.store.GetTournament(ctx, id)
	if err != nil {
		return TimerState{}, err
	}

	state := TimerState{
		TournamentID: t.ID,
		Status:       t.Status,
		Level:        t.CurrentLevel,
		Pool:         t.PrizePool(),
	}
	if t.Status.IsRunning() {
		state.SecondsRemaining = t.RemainingAt(s.clock.Now())
	}
	if snap, ok := s.timer.Snapshot(id); ok && t.Status == models.StatusInProgress {
		state.Level = snap.Level
		state.SecondsRemaining = snap.SecondsRemaining
		state.AwaitingOperator = snap.AwaitingOperator
	}
	state.CurrentBlind = NewBlindInfo(t.LevelByOrder(state.Level))
	state.NextBlind = NewBlindInfo(t.LevelByOrder(state.Level + 1))
	return state, nil
}

// mutate loads, changes and saves the tournament row in one transaction.
func (s *TournamentService) mutate(ctx context.Context, id string, fn func(t *models.Tournament) error) (*models.Tournament, error) {
	var out *models.Tournament
	err := s.store.WithTx(ctx, func(tx Store) error {
		t, err := tx.GetTournament(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
		if err := tx.SaveTournament(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// updateParticipant changes one participation and publishes the new pool.
func (s *TournamentService) updateParticipant(ctx context.Context, id, playerID string, fn func(t *models.Tournament, p *models.Participation) error) (*models.Participation, error) {
	var (
		out  models.Participation
		pool models.PoolSummary
	)
	err := s.store.WithTx(ctx, func(tx Store) error {
		t, err := tx.GetTournament(ctx, id)
		if err != nil {
			return err
		}
		p := t.Participant(playerID)
		if p == nil {
			return ErrParticipantNotFound
		}
		if err := fn(t, p); err != nil {
			return err
		}
		if err := tx.SaveParticipation(ctx, p); err != nil {
			return err
		}
		out = *p
		pool = t.PrizePool()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.bus.Publish(id, EventPrizePoolUpdated, pool)
	return &out, nil
}

func (s *TournamentService) publishLevel(t *models.Tournament, now time.Time) {
	s.bus.Publish(t.ID, EventLevelChanged, LevelChangedEvent{
		NewLevel:         NewBlindInfo(t.CurrentBlind()),
		NextLevel:        NewBlindInfo(t.NextBlind()),
		SecondsRemaining: t.RemainingAt(now),
	})
}

// IsNotFound reports whether err is one of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTournamentNotFound) ||
		errors.Is(err, ErrParticipantNotFound) ||
		errors.Is(err, ErrPaymentNotFound) ||
		errors.Is(err, ErrLeagueNotFound) ||
		errors.Is(err, ErrPrizeTableNotFound)
}
