package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/AdamBeresnev/championship-draw/internal/db"
	"github.com/AdamBeresnev/championship-draw/internal/draw"
	"github.com/AdamBeresnev/championship-draw/internal/store"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"
)

type countingNotifier struct {
	calls atomic.Int32
}

func (n *countingNotifier) NotifyTournamentUpdated(context.Context) {
	n.calls.Add(1)
}

func newTestRepo(t *testing.T) *store.StateStore {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "draw.db"))
	require.NoError(t, err, "Failed to open test DB")
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.RunMigrations(database.DB), "Failed to apply migrations")

	return store.NewStateStore(database, "test")
}

type fixture struct {
	repo        *store.StateStore
	notifier    *countingNotifier
	tournaments *TournamentService
	draws       *DrawService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newTestRepo(t)
	notifier := &countingNotifier{}

	tournaments := NewTournamentService(repo, notifier)
	seq := 0
	tournaments.newID = func() string {
		seq++
		return fmt.Sprintf("club-%d", seq)
	}

	return &fixture{
		repo:        repo,
		notifier:    notifier,
		tournaments: tournaments,
		draws:       NewDrawService(repo, notifier, nil),
	}
}

// configure sets a groups layout and fills the roster with fake club names
func (f *fixture) configure(t *testing.T, groups, perGroup int) []draw.Club {
	t.Helper()
	ctx := context.Background()

	_, err := f.tournaments.SetField(ctx, draw.FieldName, "Championship")
	require.NoError(t, err)
	_, err = f.tournaments.SetField(ctx, draw.FieldGroups, fmt.Sprint(groups))
	require.NoError(t, err)
	_, err = f.tournaments.SetField(ctx, draw.FieldClubsPerGroup, fmt.Sprint(perGroup))
	require.NoError(t, err)

	faker := gofakeit.New(7)
	clubs := make([]draw.Club, 0, groups*perGroup)
	for i := 0; i < groups*perGroup; i++ {
		club, err := f.tournaments.AddClub(ctx, fmt.Sprintf("%s %d", faker.Company(), i), "")
		require.NoError(t, err)
		clubs = append(clubs, club)
	}
	return clubs
}
