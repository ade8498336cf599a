package draw

import (
	"strconv"
	"testing"

	"github.com/AdamBeresnev/championship-draw/internal/utils"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyField_GroupsKeepTotalInSync(t *testing.T) {
	faker := gofakeit.New(42)
	tournament := DefaultTournament()

	for i := 0; i < 200; i++ {
		field := FieldGroups
		if faker.Bool() {
			field = FieldClubsPerGroup
		}
		value := faker.IntRange(MinGroupSetting, MaxGroupSetting)

		updated, err := ApplyField(tournament, field, strconv.Itoa(value))
		require.NoError(t, err)

		assert.Equal(t, *updated.Groups * *updated.ClubsPerGroup, updated.TotalClubs, "after setting %s=%d", field, value)
		tournament = updated
	}
}

func TestApplyField(t *testing.T) {
	knockout, err := ApplyField(DefaultTournament(), FieldFormat, "knockout")
	require.NoError(t, err)

	testCases := []struct {
		name          string
		start         Tournament
		field         Field
		value         string
		expectedTotal int
		expectedErr   error
	}{
		{name: "groups recomputes total", start: DefaultTournament(), field: FieldGroups, value: "2", expectedTotal: 8},
		{name: "clubs per group recomputes total", start: DefaultTournament(), field: FieldClubsPerGroup, value: "3", expectedTotal: 12},
		{name: "name keeps total", start: DefaultTournament(), field: FieldName, value: "Copa", expectedTotal: 16},
		{name: "groups below range", start: DefaultTournament(), field: FieldGroups, value: "0", expectedErr: ErrValidation},
		{name: "groups above range", start: DefaultTournament(), field: FieldGroups, value: "9", expectedErr: ErrValidation},
		{name: "groups not a number", start: DefaultTournament(), field: FieldGroups, value: "four", expectedErr: ErrValidation},
		{name: "total is derived in groups format", start: DefaultTournament(), field: FieldTotalClubs, value: "8", expectedErr: ErrValidation},
		{name: "knockout accepts 32", start: knockout, field: FieldTotalClubs, value: "32", expectedTotal: 32},
		{name: "knockout rejects 12", start: knockout, field: FieldTotalClubs, value: "12", expectedErr: ErrValidation},
		{name: "groups rejected in knockout", start: knockout, field: FieldGroups, value: "2", expectedErr: ErrValidation},
		{name: "unknown format", start: DefaultTournament(), field: FieldFormat, value: "league", expectedErr: ErrValidation},
		{name: "unknown field", start: DefaultTournament(), field: Field("venue"), value: "x", expectedErr: ErrValidation},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			updated, err := ApplyField(tc.start, tc.field, tc.value)
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				assert.Equal(t, tc.start, updated)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedTotal, updated.TotalClubs)
		})
	}
}

func TestApplyField_FormatSwitch(t *testing.T) {
	start, err := ApplyField(DefaultTournament(), FieldGroups, "3")
	require.NoError(t, err)
	start, err = ApplyField(start, FieldClubsPerGroup, "3")
	require.NoError(t, err)
	require.Equal(t, 9, start.TotalClubs)

	knockout, err := ApplyField(start, FieldFormat, "knockout")
	require.NoError(t, err)
	assert.Equal(t, KnockoutFormat, knockout.Format)
	assert.Nil(t, knockout.Groups)
	assert.Nil(t, knockout.ClubsPerGroup)
	assert.Equal(t, 16, knockout.TotalClubs, "9 should round up to the next bracket size")

	groups, err := ApplyField(knockout, FieldFormat, "groups")
	require.NoError(t, err)
	assert.Equal(t, DefaultGroups, *groups.Groups)
	assert.Equal(t, DefaultClubsPerGroup, *groups.ClubsPerGroup)
	assert.Equal(t, 16, groups.TotalClubs)

	// The original is untouched
	assert.Equal(t, 3, *start.Groups)
}

func TestKnockoutSizeFor(t *testing.T) {
	testCases := []struct {
		count    int
		expected int
	}{
		{0, 8}, {4, 8}, {8, 8}, {9, 16}, {16, 16}, {17, 32}, {32, 32}, {64, 32},
	}

	for _, tc := range testCases {
		t.Run(strconv.Itoa(tc.count), func(t *testing.T) {
			assert.Equal(t, tc.expected, knockoutSizeFor(tc.count))
		})
	}
}

func TestAddClub_CapacityBound(t *testing.T) {
	faker := gofakeit.New(7)
	tournament, err := ApplyField(DefaultTournament(), FieldGroups, "2")
	require.NoError(t, err)
	tournament, err = ApplyField(tournament, FieldClubsPerGroup, "2")
	require.NoError(t, err)

	for i := 0; i < tournament.TotalClubs; i++ {
		tournament, err = AddClub(tournament, Club{ID: strconv.Itoa(i), Name: faker.Company()})
		require.NoError(t, err)
	}
	require.Len(t, tournament.Clubs, 4)

	rejected, err := AddClub(tournament, Club{ID: "overflow", Name: faker.Company()})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Len(t, rejected.Clubs, 4)
}

func TestAddClub_BlankName(t *testing.T) {
	tournament, err := AddClub(DefaultTournament(), Club{ID: "1", Name: "   "})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, tournament.Clubs)
}

func TestUpdateAndRemoveClub(t *testing.T) {
	tournament := DefaultTournament()
	for _, name := range []string{"Alpha", "Bravo", "Charlie"} {
		var err error
		tournament, err = AddClub(tournament, Club{ID: name, Name: name})
		require.NoError(t, err)
	}

	updated, err := UpdateClub(tournament, "Bravo", ClubPatch{Name: utils.Ptr("Bravo FC"), LogoRef: utils.Ptr("data:image/png;base64,AA==")})
	require.NoError(t, err)
	assert.Equal(t, "Bravo FC", updated.Clubs[1].Name, "position in the roster must not change")
	assert.Equal(t, "data:image/png;base64,AA==", updated.Clubs[1].LogoRef)
	assert.Equal(t, "Bravo", tournament.Clubs[1].Name)

	_, err = UpdateClub(tournament, "Delta", ClubPatch{Name: utils.Ptr("Delta")})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = UpdateClub(tournament, "Alpha", ClubPatch{Name: utils.Ptr(" ")})
	assert.ErrorIs(t, err, ErrValidation)

	removed := RemoveClub(updated, "Alpha")
	require.Len(t, removed.Clubs, 2)
	assert.Equal(t, "Bravo", removed.Clubs[0].ID)

	again := RemoveClub(removed, "Alpha")
	assert.Equal(t, removed, again)
}

func TestRosterIsNotTrimmedOnShrink(t *testing.T) {
	tournament := DefaultTournament()
	for i := 0; i < 16; i++ {
		var err error
		tournament, err = AddClub(tournament, Club{ID: strconv.Itoa(i), Name: "Club " + strconv.Itoa(i)})
		require.NoError(t, err)
	}

	shrunk, err := ApplyField(tournament, FieldGroups, "2")
	require.NoError(t, err)
	assert.Equal(t, 8, shrunk.TotalClubs)
	assert.Len(t, shrunk.Clubs, 16)
	assert.ErrorIs(t, CheckStart(Tournament{Name: "Copa", TotalClubs: shrunk.TotalClubs, Clubs: shrunk.Clubs}), ErrValidation)
}
