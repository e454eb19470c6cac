package workers

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Scheduler runs the background jobs on gocron. Every job is a singleton:
// a run that overlaps the previous one is rescheduled, not stacked.
type Scheduler struct {
	sched  gocron.Scheduler
	logger zerolog.Logger
}

func NewScheduler(clock clockwork.Clock, logger zerolog.Logger) (*Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Scheduler{
		sched:  sched,
		logger: logger.With().Str("component", "scheduler").Logger(),
	}, nil
}

func (s *Scheduler) Every(name string, interval time.Duration, fn func()) error {
	_, err := s.sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(fn),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.logger.Info().Str("job", name).Dur("interval", interval).Msg("job scheduled")
	return nil
}

func (s *Scheduler) Start() {
	s.sched.Start()
}

func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}
