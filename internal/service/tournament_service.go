package service

import (
	"context"
	"strings"

	"github.com/AdamBeresnev/championship-draw/internal/draw"
	"github.com/AdamBeresnev/championship-draw/internal/logo"
	"github.com/AdamBeresnev/championship-draw/internal/store"
	"github.com/google/uuid"
)

// Notifier delivers the same-context "tournament updated" signal
type Notifier interface {
	NotifyTournamentUpdated(ctx context.Context)
}

type TournamentService struct {
	repo     store.Repository
	notifier Notifier
	newID    func() string
}

func NewTournamentService(repo store.Repository, notifier Notifier) *TournamentService {
	return &TournamentService{repo: repo, notifier: notifier, newID: uuid.NewString}
}

func (s *TournamentService) Snapshot(ctx context.Context) (*draw.Snapshot, error) {
	return s.repo.Load(ctx)
}

// SetField applies one configuration edit. It is a no-op returning
// ErrLocked once the draw has started.
func (s *TournamentService) SetField(ctx context.Context, field draw.Field, value string) (*draw.Snapshot, error) {
	return s.update(ctx, func(snapshot *draw.Snapshot) error {
		if !snapshot.Status.CanEditConfig() {
			return draw.ErrLocked
		}
		updated, err := draw.ApplyField(snapshot.Tournament, field, value)
		if err != nil {
			return err
		}
		snapshot.Tournament = updated
		snapshot.Positions = draw.GeneratePositions(updated)
		return nil
	})
}

// CheckNewClub runs the AddClub checks against the current record without
// writing, for callers that do costly work before adding
func (s *TournamentService) CheckNewClub(ctx context.Context, name string) error {
	snapshot, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	if !snapshot.Status.CanEditRoster() {
		return draw.ErrLocked
	}
	return draw.CheckNewClub(snapshot.Tournament, name)
}

// AddClub registers a club, a blank logoRef gets the placeholder avatar
func (s *TournamentService) AddClub(ctx context.Context, name, logoRef string) (draw.Club, error) {
	club := draw.Club{
		ID:      s.newID(),
		Name:    strings.TrimSpace(name),
		LogoRef: strings.TrimSpace(logoRef),
	}
	if club.LogoRef == "" {
		club.LogoRef = logo.Placeholder(club.Name)
	}

	_, err := s.update(ctx, func(snapshot *draw.Snapshot) error {
		if !snapshot.Status.CanEditRoster() {
			return draw.ErrLocked
		}
		updated, err := draw.AddClub(snapshot.Tournament, club)
		if err != nil {
			return err
		}
		snapshot.Tournament = updated
		return nil
	})
	if err != nil {
		return draw.Club{}, err
	}
	return club, nil
}

func (s *TournamentService) UpdateClub(ctx context.Context, id string, patch draw.ClubPatch) (draw.Club, error) {
	var club draw.Club
	_, err := s.update(ctx, func(snapshot *draw.Snapshot) error {
		if !snapshot.Status.CanEditRoster() {
			return draw.ErrLocked
		}
		updated, err := draw.UpdateClub(snapshot.Tournament, id, patch)
		if err != nil {
			return err
		}
		snapshot.Tournament = updated
		club, _ = updated.FindClub(id)
		return nil
	})
	if err != nil {
		return draw.Club{}, err
	}
	return club, nil
}

// RemoveClub succeeds for unknown ids
func (s *TournamentService) RemoveClub(ctx context.Context, id string) error {
	_, err := s.update(ctx, func(snapshot *draw.Snapshot) error {
		if !snapshot.Status.CanEditRoster() {
			return draw.ErrLocked
		}
		snapshot.Tournament = draw.RemoveClub(snapshot.Tournament, id)
		return nil
	})
	return err
}

func (s *TournamentService) update(ctx context.Context, fn func(*draw.Snapshot) error) (*draw.Snapshot, error) {
	snapshot, err := s.repo.Update(ctx, fn)
	if err != nil {
		return nil, err
	}
	s.notifier.NotifyTournamentUpdated(ctx)
	return snapshot, nil
}
