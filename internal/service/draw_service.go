package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AdamBeresnev/championship-draw/internal/draw"
	"github.com/AdamBeresnev/championship-draw/internal/metrics"
	"github.com/AdamBeresnev/championship-draw/internal/store"
)

type DrawService struct {
	repo     store.Repository
	notifier Notifier
	metrics  *metrics.Recorder
}

func NewDrawService(repo store.Repository, notifier Notifier, recorder *metrics.Recorder) *DrawService {
	return &DrawService{repo: repo, notifier: notifier, metrics: recorder}
}

// Assignment is the outcome of a successful draw
type Assignment struct {
	Position draw.Position
	Club     draw.Club
	Index    int
}

// Start opens the draw with a fresh set of empty positions
func (s *DrawService) Start(ctx context.Context) (*draw.Snapshot, error) {
	return s.transition(ctx, draw.StatusActive, func(snapshot *draw.Snapshot) error {
		if err := draw.CheckStart(snapshot.Tournament); err != nil {
			return err
		}
		snapshot.Positions = draw.GeneratePositions(snapshot.Tournament)
		return nil
	})
}

func (s *DrawService) Finish(ctx context.Context) (*draw.Snapshot, error) {
	return s.transition(ctx, draw.StatusFinished, nil)
}

// Restart discards every assignment but keeps configuration and roster
func (s *DrawService) Restart(ctx context.Context) (*draw.Snapshot, error) {
	return s.transition(ctx, draw.StatusInactive, func(snapshot *draw.Snapshot) error {
		snapshot.Positions = draw.GeneratePositions(snapshot.Tournament)
		return nil
	})
}

func (s *DrawService) transition(ctx context.Context, to draw.Status, prepare func(*draw.Snapshot) error) (*draw.Snapshot, error) {
	var from draw.Status
	snapshot, err := s.repo.Update(ctx, func(snapshot *draw.Snapshot) error {
		from = snapshot.Status
		if err := draw.CheckTransition(snapshot.Status, to); err != nil {
			return err
		}
		if prepare != nil {
			if err := prepare(snapshot); err != nil {
				return err
			}
		}
		snapshot.Status = to
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "draw status changed", "from", from, "to", to)
	s.metrics.Transition(string(to))
	s.metrics.Filled(snapshot.FilledPositions())
	s.notifier.NotifyTournamentUpdated(ctx)
	return snapshot, nil
}

// Assign places a roster club into the first empty position
func (s *DrawService) Assign(ctx context.Context, clubID string) (*Assignment, error) {
	var assignment Assignment
	snapshot, err := s.repo.Update(ctx, func(snapshot *draw.Snapshot) error {
		if !snapshot.Status.CanAssign() {
			return draw.ErrLocked
		}
		club, ok := snapshot.Tournament.FindClub(clubID)
		if !ok {
			return fmt.Errorf("%w: %s", draw.ErrNotFound, clubID)
		}

		positions, index, err := draw.Assign(snapshot.Positions, clubID)
		if err != nil {
			return err
		}
		snapshot.Positions = positions
		assignment = Assignment{Position: positions[index], Club: club, Index: index}
		return nil
	})
	if err != nil {
		if errors.Is(err, draw.ErrCapacityExhausted) {
			// Unreachable while roster size matches the positions, worth a loud log
			slog.ErrorContext(ctx, "draw has no empty position left", "club_id", clubID, "error", err)
			s.metrics.Assignment(metrics.OutcomeExhausted, 0)
		} else {
			s.metrics.Assignment(metrics.OutcomeRejected, 0)
		}
		return nil, err
	}

	slog.InfoContext(ctx, "club drawn",
		"club_id", clubID,
		"group", assignment.Position.Group,
		"slot", assignment.Position.Slot,
	)
	s.metrics.Assignment(metrics.OutcomeAssigned, snapshot.FilledPositions())
	s.notifier.NotifyTournamentUpdated(ctx)
	return &assignment, nil
}
