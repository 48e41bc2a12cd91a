// Package timer turns clock-in / clock-out / manual-entry actions into
// validated time-entry records. State is never trusted from memory: the
// process may have restarted, and another machine may have written the
// shared folder, so every transition re-derives Idle/Running from disk.
package timer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/kmarcini/protrack/internal/domain"
	"github.com/kmarcini/protrack/internal/repo"
)

// Engine is the per-user timer state machine. The clock is injected so tests
// can drive deterministic transitions.
type Engine struct {
	entries *repo.Entries
	clock   repo.Clock
	log     *slog.Logger
}

func New(entries *repo.Entries, clock repo.Clock, logger *slog.Logger) *Engine {
	if clock == nil {
		clock = repo.SystemClock{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{entries: entries, clock: clock, log: logger}
}

// ClockIn starts a running entry for the user. Allowed only from Idle; a
// running entry on disk fails with ErrAlreadyRunning. After the write it
// re-reads the partition: two processes clocking in within the same second
// both pass the pre-check, but only one entry survives the rename race, and
// the loser withdraws and reports ErrAlreadyRunning.
func (e *Engine) ClockIn(ctx context.Context, userID, projectID, workTypeID string) (*domain.TimeEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entry, err := e.entries.Create(repo.EntryDraft{
		ProjectID:  projectID,
		UserID:     userID,
		WorkTypeID: workTypeID,
		Start:      e.clock.Now(),
	})
	if err != nil {
		return nil, err
	}

	open, err := e.entries.OpenEntries(userID)
	if err != nil {
		return nil, fmt.Errorf("re-checking open entries: %w", err)
	}
	winner := pickWinner(open)
	if winner == nil {
		// Our write was overwritten entirely by a concurrent save.
		return nil, domain.ErrAlreadyRunning
	}
	if winner.ID != entry.ID {
		if len(open) > 1 {
			// Both writes landed; withdraw ours so one open entry survives.
			if err := e.entries.Delete(userID, entry.ID); err != nil {
				e.log.Warn("failed to withdraw losing clock-in", "id", entry.ID, "error", err)
			}
		}
		return nil, domain.ErrAlreadyRunning
	}

	e.log.Info("clocked in", "user", userID, "project", projectID)
	return entry, nil
}

// ClockOut completes the running entry. Allowed only from Running; fails
// with ErrNoActiveTimer from Idle. A clock that moved backward since
// clock-in yields ErrInvalidDuration and the entry stays running so the
// caller can retry once time catches up.
func (e *Engine) ClockOut(ctx context.Context, userID, notes string) (*domain.TimeEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	open, err := e.entries.OpenEntry(userID)
	if err != nil {
		return nil, err
	}
	if open == nil {
		return nil, domain.ErrNoActiveTimer
	}
	now := e.clock.Now()
	if !now.After(open.Start) {
		return nil, domain.ErrInvalidDuration
	}
	open.End = &now
	if notes != "" {
		open.Notes = notes
	}
	if err := e.entries.Update(*open); err != nil {
		return nil, err
	}
	e.log.Info("clocked out", "user", userID, "project", open.ProjectID, "duration", now.Sub(open.Start))
	return open, nil
}

// ManualEntry records a completed entry directly, without touching the
// Idle/Running state. Validated like any completed entry: end strictly after
// start, project not archived.
func (e *Engine) ManualEntry(ctx context.Context, userID, projectID, workTypeID string, start, end time.Time, notes string) (*domain.TimeEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.entries.Create(repo.EntryDraft{
		ProjectID:  projectID,
		UserID:     userID,
		WorkTypeID: workTypeID,
		Start:      start,
		End:        &end,
		Notes:      notes,
		Manual:     true,
	})
}

// Status returns the user's running entry, or nil when idle.
func (e *Engine) Status(ctx context.Context, userID string) (*domain.TimeEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.entries.OpenEntry(userID)
}

// RecoveryChoice is what to do with an entry left running by a crash.
type RecoveryChoice int

const (
	// KeepRunning resumes the timer as if nothing happened.
	KeepRunning RecoveryChoice = iota
	// CloseAt completes the entry at a caller-chosen time.
	CloseAt
	// Discard deletes the entry.
	Discard
)

// Resolve applies the caller's choice to the open entry. The engine never
// auto-closes a recovered entry: picking an end time for the user would
// silently fabricate a duration.
func (e *Engine) Resolve(ctx context.Context, userID string, choice RecoveryChoice, endAt time.Time, notes string) (*domain.TimeEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	open, err := e.entries.OpenEntry(userID)
	if err != nil {
		return nil, err
	}
	if open == nil {
		return nil, domain.ErrNoActiveTimer
	}
	switch choice {
	case KeepRunning:
		return open, nil
	case CloseAt:
		if !endAt.After(open.Start) {
			return nil, domain.ErrInvalidDuration
		}
		open.End = &endAt
		if notes != "" {
			open.Notes = notes
		}
		if err := e.entries.Update(*open); err != nil {
			return nil, err
		}
		return open, nil
	case Discard:
		if err := e.entries.Delete(userID, open.ID); err != nil {
			return nil, err
		}
		e.log.Info("discarded recovered entry", "user", userID, "id", open.ID)
		return nil, nil
	default:
		return nil, &domain.ValidationError{Field: "choice", Reason: "unknown recovery choice"}
	}
}

// pickWinner resolves a clock-in race deterministically on every machine:
// earliest start wins, id breaks ties.
func pickWinner(open []domain.TimeEntry) *domain.TimeEntry {
	var winner *domain.TimeEntry
	for i := range open {
		if winner == nil ||
			open[i].Start.Before(winner.Start) ||
			(open[i].Start.Equal(winner.Start) && open[i].ID < winner.ID) {
			winner = &open[i]
		}
	}
	return winner
}
