package models

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func threeLevels() []BlindLevel {
	return []BlindLevel{
		{Order: 1, SmallBlind: 25, BigBlind: 50, DurationMinutes: 10},
		{Order: 2, SmallBlind: 50, BigBlind: 100, DurationMinutes: 10},
		{Order: 3, SmallBlind: 100, BigBlind: 200, Ante: 25, DurationMinutes: 15},
	}
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		from    TournamentStatus
		cmd     Command
		want    TournamentStatus
		invalid bool
	}{
		{StatusScheduled, CommandStart, StatusInProgress, false},
		{StatusScheduled, CommandCancel, StatusCancelled, false},
		{StatusScheduled, CommandPause, StatusScheduled, true},
		{StatusScheduled, CommandFinish, StatusScheduled, true},
		{StatusInProgress, CommandPause, StatusPaused, false},
		{StatusInProgress, CommandResume, StatusInProgress, true},
		{StatusInProgress, CommandStart, StatusInProgress, true},
		{StatusInProgress, CommandFinish, StatusFinished, false},
		{StatusPaused, CommandResume, StatusInProgress, false},
		{StatusPaused, CommandPause, StatusPaused, true},
		{StatusPaused, CommandCancel, StatusCancelled, false},
		{StatusFinished, CommandCancel, StatusFinished, true},
		{StatusCancelled, CommandStart, StatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_"+string(tt.cmd), func(t *testing.T) {
			got, err := tt.from.Transition(tt.cmd)
			if tt.invalid {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidTransition))
				var te *TransitionError
				require.ErrorAs(t, err, &te)
				assert.Equal(t, tt.from, te.From)
				assert.Equal(t, tt.cmd, te.Command)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStart(t *testing.T) {
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

	t.Run("requires blind levels", func(t *testing.T) {
		tr := &Tournament{Status: StatusScheduled}
		err := tr.Start(now)
		assert.ErrorIs(t, err, ErrNoBlindLevels)
		assert.Equal(t, StatusScheduled, tr.Status)
	})

	t.Run("sets level one and anchors the clock", func(t *testing.T) {
		tr := &Tournament{Status: StatusScheduled, BlindLevels: threeLevels()}
		require.NoError(t, tr.Start(now))
		assert.Equal(t, StatusInProgress, tr.Status)
		assert.Equal(t, 1, tr.CurrentLevel)
		assert.Equal(t, 600, *tr.TimeRemainingSeconds)
		assert.Equal(t, now, *tr.CurrentLevelStartedAt)
		assert.Equal(t, now, *tr.StartedAt)
	})

	t.Run("rejected when not scheduled", func(t *testing.T) {
		tr := &Tournament{Status: StatusInProgress, BlindLevels: threeLevels()}
		assert.ErrorIs(t, tr.Start(now), ErrInvalidTransition)
	})
}

func TestAdvanceAndRevert(t *testing.T) {
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	tr := &Tournament{Status: StatusScheduled, BlindLevels: threeLevels()}
	require.NoError(t, tr.Start(now))

	later := now.Add(7 * time.Minute)
	require.NoError(t, tr.AdvanceLevel(later))
	assert.Equal(t, 2, tr.CurrentLevel)
	assert.Equal(t, 600, *tr.TimeRemainingSeconds)
	assert.Equal(t, later, *tr.CurrentLevelStartedAt)

	require.NoError(t, tr.AdvanceLevel(later))
	assert.Equal(t, 3, tr.CurrentLevel)
	assert.Equal(t, 900, *tr.TimeRemainingSeconds)

	assert.ErrorIs(t, tr.AdvanceLevel(later), ErrNoNextLevel)
	assert.Equal(t, 3, tr.CurrentLevel)

	require.NoError(t, tr.RevertLevel(later))
	require.NoError(t, tr.RevertLevel(later))
	assert.Equal(t, 1, tr.CurrentLevel)
	assert.ErrorIs(t, tr.RevertLevel(later), ErrNoPreviousLevel)
}

func TestPauseResumeKeepsRemaining(t *testing.T) {
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	tr := &Tournament{Status: StatusScheduled, BlindLevels: threeLevels()}
	require.NoError(t, tr.Start(now))

	pausedAt := now.Add(4*time.Minute + 30*time.Second)
	remaining := tr.RemainingAt(pausedAt)
	assert.Equal(t, 330, remaining)
	require.NoError(t, tr.Pause())
	tr.Anchor(remaining, pausedAt)

	// time spent paused does not count
	resumedAt := pausedAt.Add(20 * time.Minute)
	assert.Equal(t, 330, tr.RemainingAt(resumedAt))
	require.NoError(t, tr.Resume(resumedAt))
	assert.Equal(t, 330, *tr.TimeRemainingSeconds)
	assert.Equal(t, resumedAt, *tr.CurrentLevelStartedAt)
	assert.Equal(t, 300, tr.RemainingAt(resumedAt.Add(30*time.Second)))
}

func TestFinishAndCancelClearClock(t *testing.T) {
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

	tr := &Tournament{Status: StatusScheduled, BlindLevels: threeLevels()}
	require.NoError(t, tr.Start(now))
	require.NoError(t, tr.MarkFinished(now.Add(time.Hour)))
	assert.Equal(t, StatusFinished, tr.Status)
	assert.Nil(t, tr.TimeRemainingSeconds)
	assert.Nil(t, tr.CurrentLevelStartedAt)
	assert.NotNil(t, tr.FinishedAt)
	assert.ErrorIs(t, tr.Cancel(), ErrInvalidTransition)

	sched := &Tournament{Status: StatusScheduled}
	require.NoError(t, sched.Cancel())
	assert.Equal(t, StatusCancelled, sched.Status)
	assert.ErrorIs(t, sched.MarkFinished(now), ErrInvalidTransition)
}

func TestRemainingSecondsClampsAndIgnoresSubSecond(t *testing.T) {
	anchor := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, 600, RemainingSeconds(600, anchor, anchor))
	assert.Equal(t, 600, RemainingSeconds(600, anchor, anchor.Add(999*time.Millisecond)))
	assert.Equal(t, 599, RemainingSeconds(600, anchor, anchor.Add(time.Second)))
	assert.Equal(t, 0, RemainingSeconds(600, anchor, anchor.Add(11*time.Minute)))
	assert.Equal(t, 600, RemainingSeconds(600, anchor, anchor.Add(-time.Minute)))
}

func TestIsRebuyAllowed(t *testing.T) {
	started := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	ten := decimal.NewFromInt(10)

	tests := []struct {
		name string
		t    Tournament
		now  time.Time
		want bool
	}{
		{
			name: "no rebuy value",
			t:    Tournament{RebuyLimitType: RebuyLimitNone},
			now:  started,
			want: false,
		},
		{
			name: "unrestricted",
			t:    Tournament{RebuyValue: ten, RebuyLimitType: RebuyLimitNone, CurrentLevel: 30},
			now:  started.Add(5 * time.Hour),
			want: true,
		},
		{
			name: "level limit exceeded",
			t:    Tournament{RebuyValue: ten, RebuyLimitType: RebuyLimitLevel, RebuyLimitLevel: intPtr(5), CurrentLevel: 6},
			now:  started,
			want: false,
		},
		{
			name: "level limit reached",
			t:    Tournament{RebuyValue: ten, RebuyLimitType: RebuyLimitLevel, RebuyLimitLevel: intPtr(5), CurrentLevel: 5},
			now:  started,
			want: true,
		},
		{
			name: "time limit",
			t:    Tournament{RebuyValue: ten, RebuyLimitType: RebuyLimitTime, RebuyLimitMinutes: intPtr(60)},
			now:  started.Add(61 * time.Minute),
			want: false,
		},
		{
			name: "both needs both",
			t: Tournament{
				RebuyValue: ten, RebuyLimitType: RebuyLimitBoth,
				RebuyLimitLevel: intPtr(5), RebuyLimitMinutes: intPtr(60), CurrentLevel: 3,
			},
			now:  started.Add(90 * time.Minute),
			want: false,
		},
		{
			name: "level rule without level configured",
			t:    Tournament{RebuyValue: ten, RebuyLimitType: RebuyLimitLevel, CurrentLevel: 1},
			now:  started,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := tt.t
			tr.StartedAt = &started
			assert.Equal(t, tt.want, tr.IsRebuyAllowed(tt.now))
		})
	}
}

func TestIsCheckInAllowed(t *testing.T) {
	assert.True(t, (&Tournament{Status: StatusScheduled}).IsCheckInAllowed())
	assert.False(t, (&Tournament{Status: StatusFinished}).IsCheckInAllowed())
	assert.False(t, (&Tournament{Status: StatusInProgress, CurrentLevel: 1}).IsCheckInAllowed())
	assert.True(t, (&Tournament{Status: StatusInProgress, CurrentLevel: 3, AllowCheckInUntilLevel: intPtr(3)}).IsCheckInAllowed())
	assert.False(t, (&Tournament{Status: StatusPaused, CurrentLevel: 4, AllowCheckInUntilLevel: intPtr(3)}).IsCheckInAllowed())
}

func TestPrizePool(t *testing.T) {
	tr := &Tournament{
		BuyIn:      decimal.NewFromInt(100),
		RebuyValue: decimal.NewFromInt(50),
		AddonValue: decimal.NewFromInt(30),
		Participations: []Participation{
			{PlayerID: "a", CheckedIn: true, RebuyCount: 2, HasAddon: true},
			{PlayerID: "b", CheckedIn: true},
			{PlayerID: "c", CheckedIn: false},
		},
	}

	pool := tr.PrizePool()
	assert.True(t, decimal.NewFromInt(330).Equal(pool.PrizePool), pool.PrizePool.String())
	assert.Equal(t, 2, pool.CheckedIn)
	assert.Equal(t, 2, pool.TotalRebuys)
	assert.Equal(t, 1, pool.TotalAddons)

	a := tr.Participant("a")
	require.NotNil(t, a)
	assert.True(t, decimal.NewFromInt(230).Equal(a.TotalInvestment(tr)))
	a.Prize = decimal.NewFromInt(300)
	assert.True(t, decimal.NewFromInt(70).Equal(a.ProfitLoss(tr)))
}

func TestPaymentStatusFlow(t *testing.T) {
	now := time.Now()
	p := &Payment{Status: PaymentPending}
	assert.ErrorIs(t, p.Confirm(now), ErrPaymentState)
	require.NoError(t, p.MarkAsPaid(now))
	assert.ErrorIs(t, p.MarkAsPaid(now), ErrPaymentState)
	require.NoError(t, p.Confirm(now))
	assert.Equal(t, PaymentConfirmed, p.Status)
	assert.NotNil(t, p.PaidAt)
	assert.NotNil(t, p.ConfirmedAt)
}
