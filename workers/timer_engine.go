package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"poker-tournament-system/config"
	"poker-tournament-system/models"
	"poker-tournament-system/services"
	"poker-tournament-system/utils"
)

const (
	triggerAuto     = "auto"
	triggerOperator = "operator"
)

// PersistOutcome is the result of one countdown snapshot write.
type PersistOutcome struct {
	Persisted           bool
	ConsecutiveFailures int
	Transient           bool
	Err                 error
}

// TimerEngine drives the countdown of every running tournament from a single
// periodic task. It implements services.TimerControl.
type TimerEngine struct {
	store   services.Store
	bus     services.Broadcaster
	clock   clockwork.Clock
	cfg     config.TimerConfig
	logger  zerolog.Logger
	metrics *Metrics
	timers  *timerRegistry

	// Only touched from Tick, which gocron never runs concurrently.
	lastRefresh   time.Time
	cooldownUntil time.Time
}

var _ services.TimerControl = (*TimerEngine)(nil)

func NewTimerEngine(store services.Store, bus services.Broadcaster, clock clockwork.Clock, cfg config.TimerConfig, logger zerolog.Logger, metrics *Metrics) *TimerEngine {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &TimerEngine{
		store:   store,
		bus:     bus,
		clock:   clock,
		cfg:     cfg,
		logger:  logger.With().Str("component", "timer_engine").Logger(),
		metrics: metrics,
		timers:  newTimerRegistry(),
	}
}

// Run schedules Tick on the configured interval and blocks until ctx is done.
func (e *TimerEngine) Run(ctx context.Context) error {
	sched, err := NewScheduler(e.clock, e.logger)
	if err != nil {
		return err
	}
	if err := sched.Every("tournament-timer", e.cfg.TickInterval, func() { e.Tick(ctx) }); err != nil {
		return err
	}
	sched.Start()
	e.logger.Info().Msg("timer engine started")

	<-ctx.Done()
	if err := sched.Shutdown(); err != nil {
		return fmt.Errorf("stop timer scheduler: %w", err)
	}
	e.logger.Info().Msg("timer engine stopped")
	return nil
}

// Tick runs one cycle. A cycle that panics pauses the engine for the retry
// cooldown.
func (e *TimerEngine) Tick(ctx context.Context) {
	now := e.clock.Now()
	if now.Before(e.cooldownUntil) {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Interface("panic", r).Dur("cooldown", e.cfg.RetryCooldown).Msg("timer cycle panicked")
			e.cooldownUntil = now.Add(e.cfg.RetryCooldown)
		}
	}()

	e.cycle(ctx, now)
}

func (e *TimerEngine) cycle(ctx context.Context, now time.Time) {
	if ctx.Err() != nil {
		return
	}
	if e.lastRefresh.IsZero() || now.Sub(e.lastRefresh) >= e.cfg.RefreshInterval {
		e.lastRefresh = now
		// The previous set stays tracked when the refresh fails.
		_ = e.refresh(ctx, now)
	}

	for _, id := range e.timers.ids() {
		if err := e.processTimer(ctx, id, now); err != nil {
			e.logger.Error().Err(err).Str("tournament_id", id).Msg("timer tick failed")
		}
	}
}

// refresh reconciles the tracked set with the tournaments persisted as in
// progress.
func (e *TimerEngine) refresh(ctx context.Context, now time.Time) error {
	epoch := e.timers.epoch()
	running, err := e.store.ListRunningTournaments(ctx)
	if err != nil {
		e.metrics.RefreshFailures.Inc()
		ev := e.logger.Error()
		if utils.IsTransient(err) {
			ev = e.logger.Warn()
		}
		ev.Err(err).Int("tracked", e.timers.len()).Msg("refresh of running tournaments failed, keeping tracked timers")
		return err
	}

	seen := make(map[string]struct{}, len(running))
	for i := range running {
		t := &running[i]
		seen[t.ID] = struct{}{}

		tt, created := e.timers.getOrAdd(t.ID)
		if created {
			tt.Acquire()
			tt.seed(t, now)
			tt.Release()
			e.logger.Info().Str("tournament_id", t.ID).Int("level", t.CurrentLevel).Msg("tracking tournament timer")
			continue
		}
		// Resync a cache that drifted from persisted truth, unless a level
		// change is in flight.
		if tt.TryAcquire() {
			if tt.level != t.CurrentLevel && !tt.paused {
				tt.seed(t, now)
			}
			tt.Release()
		}
	}

	for _, id := range e.timers.ids() {
		if _, ok := seen[id]; !ok && e.timers.removeStale(id, epoch) {
			e.logger.Info().Str("tournament_id", id).Msg("tournament no longer in progress, timer removed")
		}
	}
	e.metrics.ActiveTimers.Set(float64(e.timers.len()))
	return nil
}

func (e *TimerEngine) processTimer(ctx context.Context, id string, now time.Time) error {
	tt, ok := e.timers.get(id)
	if !ok {
		return nil
	}
	if !tt.TryAcquire() {
		e.metrics.LockSkips.Inc()
		return nil
	}
	defer tt.Release()

	if tt.removed.Load() || tt.view.Load() == nil || tt.paused {
		return nil
	}

	remaining := tt.remaining(now)
	if remaining <= 0 {
		return e.autoAdvance(ctx, tt, now)
	}

	e.bus.Publish(id, services.EventTick, services.TickEvent{
		SecondsRemaining: remaining,
		Level:            tt.level,
		Blind:            services.NewBlindInfo(tt.blind(tt.level)),
	})
	e.metrics.Ticks.Inc()

	if tt.lastPersisted-remaining >= e.cfg.PersistEvery {
		e.persist(ctx, tt, remaining)
		// The window moves on either way; a failed write is retried next window.
		tt.lastPersisted = remaining
	}
	tt.publish()
	return nil
}

// persist writes the anchor pair rebased by the whole seconds elapsed, so
// the persisted countdown evaluates to the same value as the cache.
func (e *TimerEngine) persist(ctx context.Context, tt *trackedTimer, remaining int) PersistOutcome {
	elapsed := time.Duration(tt.baseline-remaining) * time.Second
	anchor := tt.anchor.Add(elapsed)

	err := e.store.SaveTimerSnapshot(ctx, tt.id, remaining, anchor)
	if err == nil {
		tt.baseline = remaining
		tt.anchor = anchor
		tt.persistFailure = 0
		return PersistOutcome{Persisted: true}
	}

	tt.persistFailure++
	e.metrics.PersistFailures.Inc()
	out := PersistOutcome{
		ConsecutiveFailures: tt.persistFailure,
		Transient:           utils.IsTransient(err),
		Err:                 err,
	}

	ev := e.logger.Warn()
	if out.ConsecutiveFailures >= e.cfg.FailureThreshold {
		ev = e.logger.Error().Bool("critical", true)
	}
	ev.Err(err).
		Str("tournament_id", tt.id).
		Int("consecutive_failures", out.ConsecutiveFailures).
		Bool("transient", out.Transient).
		Msg("failed to persist countdown snapshot")
	return out
}

func (e *TimerEngine) autoAdvance(ctx context.Context, tt *trackedTimer, now time.Time) error {
	if tt.awaitingOperator() && now.Before(tt.awaitingUntil) {
		return nil
	}

	t, err := services.AdvanceLevelAuto(ctx, e.store, tt.id, tt.level, now)
	switch {
	case err == nil:
		tt.seed(t, now)
		e.metrics.LevelAdvances.WithLabelValues(triggerAuto).Inc()
		e.publishLevel(t, now)
		e.logger.Info().Str("tournament_id", tt.id).Int("level", t.CurrentLevel).Msg("blind level advanced")
		return nil

	case errors.Is(err, services.ErrNoNextLevel):
		first := !tt.awaitingOperator()
		tt.awaitingUntil = now.Add(time.Duration(e.cfg.GraceSeconds) * time.Second)
		tt.publish()
		if first {
			e.bus.Publish(tt.id, services.EventTick, services.TickEvent{
				SecondsRemaining: 0,
				Level:            tt.level,
				Blind:            services.NewBlindInfo(tt.blind(tt.level)),
			})
			e.logger.Info().Str("tournament_id", tt.id).Int("level", tt.level).Msg("last blind level ended, awaiting operator")
		}
		return nil

	case errors.Is(err, services.ErrStaleLevel):
		if t != nil {
			tt.seed(t, now)
		}
		return nil

	case errors.Is(err, models.ErrInvalidTransition), services.IsNotFound(err):
		e.timers.remove(tt.id)
		e.metrics.ActiveTimers.Set(float64(e.timers.len()))
		return nil

	default:
		return fmt.Errorf("advance level: %w", err)
	}
}

func (e *TimerEngine) publishLevel(t *models.Tournament, now time.Time) {
	e.bus.Publish(t.ID, services.EventLevelChanged, services.LevelChangedEvent{
		NewLevel:         services.NewBlindInfo(t.CurrentBlind()),
		NextLevel:        services.NewBlindInfo(t.NextBlind()),
		SecondsRemaining: t.RemainingAt(now),
	})
}

// Pause flags the timer paused before persist runs, so no tick can write
// after the pause snapshot. The flag is rolled back when persist fails.
func (e *TimerEngine) Pause(ctx context.Context, id string, persist func(remaining *int) error) error {
	tt, ok := e.timers.get(id)
	if !ok {
		return persist(nil)
	}

	tt.Acquire()
	defer tt.Release()

	now := e.clock.Now()
	wasPaused := tt.paused
	remaining := tt.remaining(now)
	tt.paused = true
	tt.publish()

	if err := persist(&remaining); err != nil {
		tt.paused = wasPaused
		tt.publish()
		return err
	}
	tt.baseline = remaining
	tt.anchor = now
	tt.lastPersisted = remaining
	tt.publish()
	return nil
}

func (e *TimerEngine) Seed(_ context.Context, t *models.Tournament) {
	if t.Status != models.StatusInProgress {
		return
	}
	tt := e.timers.track(t.ID)
	tt.Acquire()
	tt.seed(t, e.clock.Now())
	tt.Release()
	e.metrics.ActiveTimers.Set(float64(e.timers.len()))
}

// ChangeLevel waits for the level lock, so an operator command always runs,
// after any automatic advance in flight.
func (e *TimerEngine) ChangeLevel(ctx context.Context, id string, change func(ctx context.Context) error) (*models.Tournament, error) {
	tt, tracked := e.timers.get(id)
	if tracked {
		tt.Acquire()
		defer tt.Release()
	}

	if err := change(ctx); err != nil {
		return nil, err
	}
	t, err := e.store.GetTournament(ctx, id)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	if tracked && !tt.removed.Load() {
		tt.seed(t, now)
	}
	e.metrics.LevelAdvances.WithLabelValues(triggerOperator).Inc()
	e.publishLevel(t, now)
	return t, nil
}

func (e *TimerEngine) Remove(id string) {
	if e.timers.remove(id) {
		e.logger.Info().Str("tournament_id", id).Msg("timer removed")
	}
	e.metrics.ActiveTimers.Set(float64(e.timers.len()))
}

func (e *TimerEngine) Snapshot(id string) (services.TimerSnapshot, bool) {
	tt, ok := e.timers.get(id)
	if !ok {
		return services.TimerSnapshot{}, false
	}
	v := tt.view.Load()
	if v == nil {
		return services.TimerSnapshot{}, false
	}
	return v.snapshot(e.clock.Now()), true
}
