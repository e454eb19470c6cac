package services

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"poker-tournament-system/models"
)

// fakeStore is an in-memory Store. WithTx does not roll back, so tests only
// rely on writes made after every validation has passed.
type fakeStore struct {
	mu            sync.Mutex
	seq           int
	tournaments   map[string]*models.Tournament
	leagues       map[string]*models.League
	tables        map[string]*models.PrizeTable
	contributions map[string]*models.JackpotContribution
	expenses      []models.Expense
	payments      []models.Payment

	replaceErr error
}

var _ Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		tournaments:   make(map[string]*models.Tournament),
		leagues:       make(map[string]*models.League),
		tables:        make(map[string]*models.PrizeTable),
		contributions: make(map[string]*models.JackpotContribution),
	}
}

func (s *fakeStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func copyTournament(t *models.Tournament) *models.Tournament {
	c := *t
	c.BlindLevels = slices.Clone(t.BlindLevels)
	c.Participations = slices.Clone(t.Participations)
	if t.TimeRemainingSeconds != nil {
		v := *t.TimeRemainingSeconds
		c.TimeRemainingSeconds = &v
	}
	if t.CurrentLevelStartedAt != nil {
		v := *t.CurrentLevelStartedAt
		c.CurrentLevelStartedAt = &v
	}
	return &c
}

func (s *fakeStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return fn(s)
}

func (s *fakeStore) CreateTournament(_ context.Context, t *models.Tournament) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = s.nextID("tournament")
	}
	for i := range t.BlindLevels {
		t.BlindLevels[i].TournamentID = t.ID
		if t.BlindLevels[i].ID == "" {
			t.BlindLevels[i].ID = s.nextID("level")
		}
	}
	for i := range t.Participations {
		t.Participations[i].TournamentID = t.ID
		if t.Participations[i].ID == "" {
			t.Participations[i].ID = s.nextID("participation")
		}
	}
	s.tournaments[t.ID] = copyTournament(t)
	return nil
}

func (s *fakeStore) GetTournament(_ context.Context, id string) (*models.Tournament, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tournaments[id]
	if !ok {
		return nil, fmt.Errorf("get tournament %s: %w", id, ErrTournamentNotFound)
	}
	return copyTournament(t), nil
}

func (s *fakeStore) ListRunningTournaments(context.Context) ([]models.Tournament, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Tournament
	for _, t := range s.tournaments {
		if t.Status == models.StatusInProgress {
			out = append(out, *copyTournament(t))
		}
	}
	return out, nil
}

func (s *fakeStore) SaveTournament(_ context.Context, t *models.Tournament) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.tournaments[t.ID]
	if !ok {
		return ErrTournamentNotFound
	}
	c := copyTournament(t)
	c.BlindLevels = stored.BlindLevels
	c.Participations = stored.Participations
	s.tournaments[t.ID] = c
	return nil
}

func (s *fakeStore) SaveTimerSnapshot(_ context.Context, id string, remaining int, anchor time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tournaments[id]
	if ok && t.Status == models.StatusInProgress {
		t.TimeRemainingSeconds = &remaining
		t.CurrentLevelStartedAt = &anchor
	}
	return nil
}

func (s *fakeStore) CreateParticipation(_ context.Context, p *models.Participation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tournaments[p.TournamentID]
	if !ok {
		return ErrTournamentNotFound
	}
	if p.ID == "" {
		p.ID = s.nextID("participation")
	}
	t.Participations = append(t.Participations, *p)
	return nil
}

func (s *fakeStore) SaveParticipation(_ context.Context, p *models.Participation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tournaments[p.TournamentID]
	if !ok {
		return ErrTournamentNotFound
	}
	for i := range t.Participations {
		if t.Participations[i].ID == p.ID {
			t.Participations[i] = *p
			return nil
		}
	}
	return ErrParticipantNotFound
}

func (s *fakeStore) GetLeague(_ context.Context, id string) (*models.League, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leagues[id]
	if !ok {
		return nil, ErrLeagueNotFound
	}
	c := *l
	return &c, nil
}

func (s *fakeStore) GetPrizeTable(_ context.Context, id string) (*models.PrizeTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pt, ok := s.tables[id]
	if !ok {
		return nil, ErrPrizeTableNotFound
	}
	c := *pt
	return &c, nil
}

func (s *fakeStore) ListPrizeTables(_ context.Context, leagueID string) ([]models.PrizeTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PrizeTable
	for _, pt := range s.tables {
		if pt.LeagueID == leagueID {
			out = append(out, *pt)
		}
	}
	slices.SortFunc(out, func(a, b models.PrizeTable) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out, nil
}

func (s *fakeStore) RecordJackpotContribution(_ context.Context, c *models.JackpotContribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leagues[c.LeagueID]
	if !ok {
		return ErrLeagueNotFound
	}
	if _, dup := s.contributions[c.TournamentID]; dup {
		return fmt.Errorf("duplicate jackpot contribution for %s", c.TournamentID)
	}
	if c.ID == "" {
		c.ID = s.nextID("contribution")
	}
	cc := *c
	s.contributions[c.TournamentID] = &cc
	l.AccumulatedPrizePool = l.AccumulatedPrizePool.Add(c.Amount)
	return nil
}

func (s *fakeStore) GetJackpotContribution(_ context.Context, tournamentID string) (*models.JackpotContribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contributions[tournamentID]
	if !ok {
		return nil, nil
	}
	cc := *c
	return &cc, nil
}

func (s *fakeStore) CreateExpense(_ context.Context, e *models.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = s.nextID("expense")
	}
	for i := range e.Shares {
		e.Shares[i].ExpenseID = e.ID
		if e.Shares[i].ID == "" {
			e.Shares[i].ID = s.nextID("share")
		}
	}
	c := *e
	c.Shares = slices.Clone(e.Shares)
	s.expenses = append(s.expenses, c)
	return nil
}

func (s *fakeStore) ListExpenses(_ context.Context, tournamentID string) ([]models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Expense
	for _, e := range s.expenses {
		if e.TournamentID == tournamentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeStore) GetPayment(_ context.Context, id string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.ID == id {
			c := p
			return &c, nil
		}
	}
	return nil, ErrPaymentNotFound
}

func (s *fakeStore) ListPayments(_ context.Context, tournamentID string) ([]models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Payment
	for _, p := range s.payments {
		if p.TournamentID == tournamentID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeStore) SavePayment(_ context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.payments {
		if s.payments[i].ID == p.ID {
			s.payments[i] = *p
			return nil
		}
	}
	return ErrPaymentNotFound
}

func (s *fakeStore) ReplaceSettlementPayments(_ context.Context, tournamentID string, payments []models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replaceErr != nil {
		return s.replaceErr
	}
	kept := s.payments[:0]
	for _, p := range s.payments {
		generated := p.Type != models.PaymentTypeExpense || p.Status == models.PaymentPending
		if p.TournamentID == tournamentID && generated {
			continue
		}
		kept = append(kept, p)
	}
	s.payments = kept
	for _, p := range payments {
		if p.ID == "" {
			p.ID = s.nextID("payment")
		}
		s.payments = append(s.payments, p)
	}
	return nil
}

// tournament returns the stored row for direct assertions.
func (s *fakeStore) tournament(id string) *models.Tournament {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyTournament(s.tournaments[id])
}

type event struct {
	tournamentID string
	name         string
	payload      any
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []event
}

func (b *recordingBroadcaster) Publish(tournamentID string, name string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event{tournamentID, name, payload})
}

func (b *recordingBroadcaster) named(name string) []event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []event
	for _, e := range b.events {
		if e.name == name {
			out = append(out, e)
		}
	}
	return out
}

// fakeTimer stands in for the timer engine. Live is returned to Pause as
// the engine's countdown.
type fakeTimer struct {
	store     Store
	live      *int
	seeded    []string
	removed   []string
	snapshots map[string]TimerSnapshot
}

func (f *fakeTimer) Pause(_ context.Context, _ string, persist func(remaining *int) error) error {
	return persist(f.live)
}

func (f *fakeTimer) Seed(_ context.Context, t *models.Tournament) {
	f.seeded = append(f.seeded, t.ID)
}

func (f *fakeTimer) ChangeLevel(ctx context.Context, id string, change func(ctx context.Context) error) (*models.Tournament, error) {
	if err := change(ctx); err != nil {
		return nil, err
	}
	return f.store.GetTournament(ctx, id)
}

func (f *fakeTimer) Remove(id string) {
	f.removed = append(f.removed, id)
}

func (f *fakeTimer) Snapshot(id string) (TimerSnapshot, bool) {
	s, ok := f.snapshots[id]
	return s, ok
}

type recordingSettler struct {
	calls []string
	err   error
}

func (r *recordingSettler) CalculateSettlement(_ context.Context, id string) ([]models.Payment, error) {
	r.calls = append(r.calls, id)
	return nil, r.err
}

func money(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}
