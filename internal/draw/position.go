package draw

import (
	"fmt"
	"slices"

	"github.com/AdamBeresnev/championship-draw/internal/utils"
)

type Position struct {
	Group  int    `json:"group"`
	Slot   int    `json:"slot"`
	ClubID string `json:"clubId,omitempty"`
}

func (p Position) Empty() bool {
	return p.ClubID == ""
}

// GeneratePositions lays out the empty slots of a tournament, group-major then
// slot-minor. Knockout draws use a single nominal group.
func GeneratePositions(t Tournament) []Position {
	var positions []Position

	if t.Format == GroupsFormat {
		groups := max(utils.OrZero(t.Groups), 1)
		perGroup := max(utils.OrZero(t.ClubsPerGroup), 1)
		positions = make([]Position, 0, groups*perGroup)
		for g := 1; g <= groups; g++ {
			for s := 1; s <= perGroup; s++ {
				positions = append(positions, Position{Group: g, Slot: s})
			}
		}
		return positions
	}

	positions = make([]Position, 0, t.TotalClubs)
	for s := 1; s <= t.TotalClubs; s++ {
		positions = append(positions, Position{Group: 1, Slot: s})
	}
	return positions
}

// Assign binds clubID to the first empty position. The input slice is left
// untouched, the returned index points into the returned slice.
func Assign(positions []Position, clubID string) ([]Position, int, error) {
	if slices.ContainsFunc(positions, func(p Position) bool { return p.ClubID == clubID }) {
		return positions, -1, fmt.Errorf("%w: %s", ErrAlreadyDrawn, clubID)
	}

	i := slices.IndexFunc(positions, Position.Empty)
	if i < 0 {
		return positions, -1, ErrCapacityExhausted
	}

	updated := slices.Clone(positions)
	updated[i].ClubID = clubID
	return updated, i, nil
}

func GroupTitle(format Format, group int) string {
	if format != GroupsFormat {
		return "Bracket"
	}
	return "Group " + string(rune('A'+group-1))
}

// Snapshot is the whole persisted tournament record
type Snapshot struct {
	Tournament Tournament `json:"tournament"`
	Status     Status     `json:"status"`
	Positions  []Position `json:"positions"`
}

func NewSnapshot() Snapshot {
	t := DefaultTournament()
	return Snapshot{
		Tournament: t,
		Status:     StatusInactive,
		Positions:  GeneratePositions(t),
	}
}

func (s Snapshot) Clone() Snapshot {
	c := s
	c.Tournament = s.Tournament.Clone()
	c.Positions = slices.Clone(s.Positions)
	return c
}

// AvailableClubs lists roster clubs not placed yet, in registration order
func (s Snapshot) AvailableClubs() []Club {
	placed := make(map[string]bool, len(s.Positions))
	for _, p := range s.Positions {
		if !p.Empty() {
			placed[p.ClubID] = true
		}
	}

	available := make([]Club, 0, len(s.Tournament.Clubs))
	for _, c := range s.Tournament.Clubs {
		if !placed[c.ID] {
			available = append(available, c)
		}
	}
	return available
}

func (s Snapshot) FilledPositions() int {
	filled := 0
	for _, p := range s.Positions {
		if !p.Empty() {
			filled++
		}
	}
	return filled
}
