package draw

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groupsTournament(t *testing.T, groups, perGroup string) Tournament {
	t.Helper()
	tournament, err := ApplyField(DefaultTournament(), FieldGroups, groups)
	require.NoError(t, err)
	tournament, err = ApplyField(tournament, FieldClubsPerGroup, perGroup)
	require.NoError(t, err)
	return tournament
}

func drawAll(t *testing.T, positions []Position, clubIDs ...string) []Position {
	t.Helper()
	for _, id := range clubIDs {
		var err error
		positions, _, err = Assign(positions, id)
		require.NoError(t, err)
	}
	return positions
}

func TestGeneratePositions_Groups(t *testing.T) {
	positions := GeneratePositions(groupsTournament(t, "2", "2"))

	expected := []Position{
		{Group: 1, Slot: 1}, {Group: 1, Slot: 2},
		{Group: 2, Slot: 1}, {Group: 2, Slot: 2},
	}
	assert.Equal(t, expected, positions)
}

func TestGeneratePositions_Knockout(t *testing.T) {
	tournament, err := ApplyField(DefaultTournament(), FieldFormat, "knockout")
	require.NoError(t, err)
	tournament, err = ApplyField(tournament, FieldTotalClubs, "8")
	require.NoError(t, err)

	positions := GeneratePositions(tournament)
	require.Len(t, positions, 8)
	for i, p := range positions {
		assert.Equal(t, 1, p.Group)
		assert.Equal(t, i+1, p.Slot)
		assert.True(t, p.Empty())
	}

	positions = drawAll(t, positions, "a", "b", "c", "d", "e", "f", "g", "h")
	for i, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		assert.Equal(t, id, positions[i].ClubID)
	}
}

func TestAssign_FillsInDrawOrder(t *testing.T) {
	positions := drawAll(t, GeneratePositions(groupsTournament(t, "2", "2")), "A", "B", "C", "D")

	expected := []Position{
		{Group: 1, Slot: 1, ClubID: "A"}, {Group: 1, Slot: 2, ClubID: "B"},
		{Group: 2, Slot: 1, ClubID: "C"}, {Group: 2, Slot: 2, ClubID: "D"},
	}
	assert.Equal(t, expected, positions)
}

func TestAssign_Deterministic(t *testing.T) {
	order := []string{"k", "c", "x", "a", "m", "q", "b", "z", "e"}
	tournament := groupsTournament(t, "3", "3")

	first := drawAll(t, GeneratePositions(tournament), order...)
	second := drawAll(t, GeneratePositions(tournament), order...)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("layouts differ between runs (-first +second):\n%s", diff)
	}
}

func TestAssign_Rejections(t *testing.T) {
	positions := drawAll(t, GeneratePositions(groupsTournament(t, "1", "2")), "A")

	unchanged, idx, err := Assign(positions, "A")
	assert.ErrorIs(t, err, ErrAlreadyDrawn)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, -1, idx)
	assert.Equal(t, positions, unchanged)

	positions = drawAll(t, positions, "B")
	_, _, err = Assign(positions, "C")
	assert.ErrorIs(t, err, ErrCapacityExhausted)
}

func TestAssign_DoesNotMutateInput(t *testing.T) {
	positions := GeneratePositions(groupsTournament(t, "1", "2"))

	updated, idx, err := Assign(positions, "A")
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.True(t, positions[0].Empty())
	assert.Equal(t, "A", updated[0].ClubID)
}

func TestSnapshot_AvailableClubs(t *testing.T) {
	snapshot := NewSnapshot()
	for _, id := range []string{"A", "B", "C"} {
		var err error
		snapshot.Tournament, err = AddClub(snapshot.Tournament, Club{ID: id, Name: id})
		require.NoError(t, err)
	}
	snapshot.Positions = drawAll(t, snapshot.Positions, "B")

	available := snapshot.AvailableClubs()
	require.Len(t, available, 2)
	assert.Equal(t, "A", available[0].ID)
	assert.Equal(t, "C", available[1].ID)
	assert.Equal(t, 1, snapshot.FilledPositions())
}

func TestGroupTitle(t *testing.T) {
	assert.Equal(t, "Group A", GroupTitle(GroupsFormat, 1))
	assert.Equal(t, "Group H", GroupTitle(GroupsFormat, 8))
	assert.Equal(t, "Bracket", GroupTitle(KnockoutFormat, 1))
}
