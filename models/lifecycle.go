package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidTransition is matched by every *TransitionError.
	ErrInvalidTransition = errors.New("invalid tournament transition")
	ErrNoBlindLevels     = errors.New("tournament has no blind levels")
	ErrNoNextLevel       = errors.New("no next blind level configured")
	ErrNoPreviousLevel   = errors.New("already at the first blind level")
)

// Command is an operator or engine request against the lifecycle.
type Command string

const (
	CommandStart        Command = "start"
	CommandPause        Command = "pause"
	CommandResume       Command = "resume"
	CommandAdvanceLevel Command = "advance_level"
	CommandRevertLevel  Command = "revert_level"
	CommandFinish       Command = "finish"
	CommandCancel       Command = "cancel"
)

var transitions = map[TournamentStatus]map[Command]TournamentStatus{
	StatusScheduled: {
		CommandStart:  StatusInProgress,
		CommandCancel: StatusCancelled,
	},
	StatusInProgress: {
		CommandPause:        StatusPaused,
		CommandAdvanceLevel: StatusInProgress,
		CommandRevertLevel:  StatusInProgress,
		CommandFinish:       StatusFinished,
		CommandCancel:       StatusCancelled,
	},
	StatusPaused: {
		CommandResume:       StatusInProgress,
		CommandAdvanceLevel: StatusPaused,
		CommandRevertLevel:  StatusPaused,
		CommandFinish:       StatusFinished,
		CommandCancel:       StatusCancelled,
	},
}

// TransitionError is returned for any (status, command) pair outside the table.
type TransitionError struct {
	From    TournamentStatus
	Command Command
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s a tournament that is %s", e.Command, e.From)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// Transition returns the status reached by applying cmd, or a *TransitionError.
func (s TournamentStatus) Transition(cmd Command) (TournamentStatus, error) {
	if next, ok := transitions[s][cmd]; ok {
		return next, nil
	}
	return s, &TransitionError{From: s, Command: cmd}
}

// Start moves a scheduled tournament onto level 1.
func (t *Tournament) Start(now time.Time) error {
	next, err := t.Status.Transition(CommandStart)
	if err != nil {
		return err
	}
	first := t.LevelByOrder(1)
	if first == nil {
		return ErrNoBlindLevels
	}
	t.Status = next
	t.CurrentLevel = 1
	t.Anchor(first.DurationSeconds(), now)
	started := now
	t.StartedAt = &started
	return nil
}

// Pause only flips the status; the caller records the remaining-time snapshot.
func (t *Tournament) Pause() error {
	next, err := t.Status.Transition(CommandPause)
	if err != nil {
		return err
	}
	t.Status = next
	return nil
}

// Resume restarts the elapsed-time baseline from now, keeping the remaining
// seconds captured at pause.
func (t *Tournament) Resume(now time.Time) error {
	next, err := t.Status.Transition(CommandResume)
	if err != nil {
		return err
	}
	remaining := t.RemainingAt(now)
	t.Status = next
	t.Anchor(remaining, now)
	return nil
}

func (t *Tournament) AdvanceLevel(now time.Time) error {
	next, err := t.Status.Transition(CommandAdvanceLevel)
	if err != nil {
		return err
	}
	lvl := t.NextBlind()
	if lvl == nil {
		return ErrNoNextLevel
	}
	t.Status = next
	t.CurrentLevel = lvl.Order
	t.Anchor(lvl.DurationSeconds(), now)
	return nil
}

func (t *Tournament) RevertLevel(now time.Time) error {
	next, err := t.Status.Transition(CommandRevertLevel)
	if err != nil {
		return err
	}
	lvl := t.LevelByOrder(t.CurrentLevel - 1)
	if lvl == nil {
		return ErrNoPreviousLevel
	}
	t.Status = next
	t.CurrentLevel = lvl.Order
	t.Anchor(lvl.DurationSeconds(), now)
	return nil
}

// MarkFinished applies the finish transition. Prize resolution happens before.
func (t *Tournament) MarkFinished(now time.Time) error {
	next, err := t.Status.Transition(CommandFinish)
	if err != nil {
		return err
	}
	t.Status = next
	t.clearClock()
	finished := now
	t.FinishedAt = &finished
	return nil
}

func (t *Tournament) Cancel() error {
	next, err := t.Status.Transition(CommandCancel)
	if err != nil {
		return err
	}
	t.Status = next
	t.clearClock()
	return nil
}
