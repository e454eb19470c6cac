package workers

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"poker-tournament-system/models"
	"poker-tournament-system/services"
)

// trackedTimer is the cached countdown of one running tournament.
//
// mu is the level lock: the tick takes it with TryLock and skips when busy,
// operator commands take it with Lock. Fields below mu are only touched while
// holding it; view is the lock-free copy for readers.
type trackedTimer struct {
	id      string
	seeded  uint64
	removed atomic.Bool
	view    atomic.Pointer[timerView]

	mu             sync.Mutex
	level          int
	baseline       int
	anchor         time.Time
	paused         bool
	awaitingUntil  time.Time
	lastPersisted  int
	persistFailure int
	levels         []models.BlindLevel
}

func (tt *trackedTimer) TryAcquire() bool { return tt.mu.TryLock() }
func (tt *trackedTimer) Acquire()         { tt.mu.Lock() }
func (tt *trackedTimer) Release()         { tt.mu.Unlock() }

// seed resets the cache from persisted fields. A missing anchor starts the
// current level now.
func (tt *trackedTimer) seed(t *models.Tournament, now time.Time) {
	tt.level = t.CurrentLevel
	tt.levels = t.BlindLevels
	tt.paused = t.Status == models.StatusPaused
	tt.awaitingUntil = time.Time{}

	if t.TimeRemainingSeconds != nil && t.CurrentLevelStartedAt != nil {
		tt.baseline = *t.TimeRemainingSeconds
		tt.anchor = *t.CurrentLevelStartedAt
	} else {
		tt.baseline = t.RemainingAt(now)
		tt.anchor = now
	}
	if tt.paused {
		tt.anchor = now
	}
	tt.lastPersisted = tt.remaining(now)
	tt.publish()
}

func (tt *trackedTimer) remaining(now time.Time) int {
	if tt.paused {
		return max(tt.baseline, 0)
	}
	return models.RemainingSeconds(tt.baseline, tt.anchor, now)
}

func (tt *trackedTimer) blind(order int) *models.BlindLevel {
	for i := range tt.levels {
		if tt.levels[i].Order == order {
			return &tt.levels[i]
		}
	}
	return nil
}

func (tt *trackedTimer) awaitingOperator() bool {
	return !tt.awaitingUntil.IsZero()
}

// timerView is an immutable copy of the countdown state.
type timerView struct {
	level    int
	baseline int
	anchor   time.Time
	paused   bool
	awaiting bool
}

func (v *timerView) snapshot(now time.Time) services.TimerSnapshot {
	remaining := max(v.baseline, 0)
	if !v.paused {
		remaining = models.RemainingSeconds(v.baseline, v.anchor, now)
	}
	return services.TimerSnapshot{
		Level:            v.level,
		SecondsRemaining: remaining,
		Paused:           v.paused,
		AwaitingOperator: v.awaiting,
	}
}

func (tt *trackedTimer) publish() {
	tt.view.Store(&timerView{
		level:    tt.level,
		baseline: tt.baseline,
		anchor:   tt.anchor,
		paused:   tt.paused,
		awaiting: tt.awaitingOperator(),
	})
}

// timerRegistry is the concurrency-safe set of tracked timers keyed by
// tournament id.
//
// seq orders operator seeds against refresh queries: a refresh only drops
// timers last seeded before its query started.
type timerRegistry struct {
	mu     sync.RWMutex
	seq    uint64
	timers map[string]*trackedTimer
}

func newTimerRegistry() *timerRegistry {
	return &timerRegistry{timers: make(map[string]*trackedTimer)}
}

func (r *timerRegistry) get(id string) (*trackedTimer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tt, ok := r.timers[id]
	return tt, ok
}

// getOrAdd returns the tracked timer for id, creating it when absent.
func (r *timerRegistry) getOrAdd(id string) (*trackedTimer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tt, ok := r.timers[id]; ok {
		return tt, false
	}
	tt := &trackedTimer{id: id}
	r.timers[id] = tt
	return tt, true
}

// track returns the timer for id, creating it when absent, and marks it as
// seeded after every epoch handed out so far.
func (r *timerRegistry) track(id string) *trackedTimer {
	r.mu.Lock()
	defer r.mu.Unlock()
	tt, ok := r.timers[id]
	if !ok {
		tt = &trackedTimer{id: id}
		r.timers[id] = tt
	}
	r.seq++
	tt.seeded = r.seq
	return tt
}

func (r *timerRegistry) epoch() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.seq
}

// removeStale drops id unless it was tracked after epoch.
func (r *timerRegistry) removeStale(id string, epoch uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	tt, ok := r.timers[id]
	if !ok || tt.seeded > epoch {
		return false
	}
	tt.removed.Store(true)
	delete(r.timers, id)
	return true
}

func (r *timerRegistry) remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	tt, ok := r.timers[id]
	if !ok {
		return false
	}
	tt.removed.Store(true)
	delete(r.timers, id)
	return true
}

// ids returns the tracked ids in a stable order.
func (r *timerRegistry) ids() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.timers))
	for id := range r.timers {
		out = append(out, id)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

func (r *timerRegistry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.timers)
}
