package service

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/AdamBeresnev/championship-draw/internal/draw"
	"github.com/AdamBeresnev/championship-draw/internal/eventbus"
	"github.com/AdamBeresnev/championship-draw/internal/viewsync"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStart_Preconditions(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, f *fixture)
		wantErr error
	}{
		{
			name:    "empty roster",
			setup:   func(t *testing.T, f *fixture) {},
			wantErr: draw.ErrValidation,
		},
		{
			name: "blank name",
			setup: func(t *testing.T, f *fixture) {
				f.configure(t, 1, 2)
				_, err := f.tournaments.SetField(context.Background(), draw.FieldName, "  ")
				require.NoError(t, err)
			},
			wantErr: draw.ErrValidation,
		},
		{
			name: "one club short",
			setup: func(t *testing.T, f *fixture) {
				clubs := f.configure(t, 1, 2)
				require.NoError(t, f.tournaments.RemoveClub(context.Background(), clubs[1].ID))
			},
			wantErr: draw.ErrValidation,
		},
		{
			name:  "full roster",
			setup: func(t *testing.T, f *fixture) { f.configure(t, 2, 2) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(t, f)

			snapshot, err := f.draws.Start(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				stored, loadErr := f.repo.Load(context.Background())
				require.NoError(t, loadErr)
				assert.Equal(t, draw.StatusInactive, stored.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, draw.StatusActive, snapshot.Status)
			assert.Zero(t, snapshot.FilledPositions())
		})
	}
}

func TestTransitions_IllegalChangesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.draws.Finish(ctx)
	assert.ErrorIs(t, err, draw.ErrIllegalTransition)
	_, err = f.draws.Restart(ctx)
	assert.ErrorIs(t, err, draw.ErrIllegalTransition)

	f.configure(t, 1, 2)
	_, err = f.draws.Start(ctx)
	require.NoError(t, err)
	_, err = f.draws.Start(ctx)
	assert.ErrorIs(t, err, draw.ErrIllegalTransition)

	_, err = f.draws.Finish(ctx)
	require.NoError(t, err)
	_, err = f.draws.Finish(ctx)
	assert.ErrorIs(t, err, draw.ErrIllegalTransition)
}

func TestAssign_TwoByTwoExample(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clubs := f.configure(t, 2, 2)
	_, err := f.draws.Start(ctx)
	require.NoError(t, err)

	// Draw order C, A, D, B
	for _, i := range []int{2, 0, 3, 1} {
		_, err := f.draws.Assign(ctx, clubs[i].ID)
		require.NoError(t, err)
	}

	snapshot, err := f.repo.Load(ctx)
	require.NoError(t, err)
	want := []draw.Position{
		{Group: 1, Slot: 1, ClubID: clubs[2].ID},
		{Group: 1, Slot: 2, ClubID: clubs[0].ID},
		{Group: 2, Slot: 1, ClubID: clubs[3].ID},
		{Group: 2, Slot: 2, ClubID: clubs[1].ID},
	}
	if diff := cmp.Diff(want, snapshot.Positions); diff != "" {
		t.Errorf("positions mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, snapshot.AvailableClubs())
}

func TestAssign_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clubs := f.configure(t, 1, 2)

	_, err := f.draws.Assign(ctx, clubs[0].ID)
	assert.ErrorIs(t, err, draw.ErrLocked, "no draws before start")

	_, err = f.draws.Start(ctx)
	require.NoError(t, err)

	_, err = f.draws.Assign(ctx, "unknown")
	assert.ErrorIs(t, err, draw.ErrNotFound)

	assignment, err := f.draws.Assign(ctx, clubs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, draw.Position{Group: 1, Slot: 1, ClubID: clubs[0].ID}, assignment.Position)
	assert.Equal(t, clubs[0], assignment.Club)

	_, err = f.draws.Assign(ctx, clubs[0].ID)
	assert.ErrorIs(t, err, draw.ErrAlreadyDrawn)

	_, err = f.draws.Finish(ctx)
	require.NoError(t, err)
	_, err = f.draws.Assign(ctx, clubs[1].ID)
	assert.ErrorIs(t, err, draw.ErrLocked, "no draws after finish")
}

func TestRestart_ClearsAssignmentsKeepsRoster(t *testing.T) {
	tests := []struct {
		name   string
		finish bool
	}{
		{name: "from active"},
		{name: "from finished", finish: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			clubs := f.configure(t, 2, 2)
			_, err := f.draws.Start(ctx)
			require.NoError(t, err)
			_, err = f.draws.Assign(ctx, clubs[0].ID)
			require.NoError(t, err)
			if tt.finish {
				finished, err := f.draws.Finish(ctx)
				require.NoError(t, err)
				require.Equal(t, draw.StatusFinished, finished.Status)
			}

			before, err := f.repo.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, before.FilledPositions())

			snapshot, err := f.draws.Restart(ctx)
			require.NoError(t, err)
			assert.Equal(t, draw.StatusInactive, snapshot.Status)
			assert.Zero(t, snapshot.FilledPositions())
			assert.Equal(t, before.Tournament, snapshot.Tournament)

			stored, err := f.repo.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, draw.StatusInactive, stored.Status)
			assert.Zero(t, stored.FilledPositions())
			assert.Len(t, stored.Tournament.Clubs, 4)
		})
	}
}

func TestConcurrentAssignsNeverShareAPosition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clubs := f.configure(t, 2, 4)
	_, err := f.draws.Start(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, club := range clubs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.draws.Assign(ctx, club.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snapshot, err := f.repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(clubs), snapshot.FilledPositions())
	assert.Empty(t, snapshot.AvailableClubs())
}

func TestDrawSession_BusyDuringReveal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clubs := f.configure(t, 1, 2)
	_, err := f.draws.Start(ctx)
	require.NoError(t, err)

	revealed := make(chan Assignment, 1)
	session := NewDrawSession(f.draws, 30*time.Millisecond, 10*time.Millisecond, func(_ context.Context, a Assignment) {
		revealed <- a
	})
	t.Cleanup(session.Close)

	first, err := session.Draw(ctx, clubs[0].ID)
	require.NoError(t, err)
	assert.True(t, session.Busy())

	// The assignment is committed before the reveal ends
	stored, err := f.repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, clubs[0].ID, stored.Positions[0].ClubID)

	_, err = session.Draw(ctx, clubs[1].ID)
	assert.ErrorIs(t, err, ErrDrawInProgress)

	select {
	case a := <-revealed:
		assert.Equal(t, first.Position, a.Position)
	case <-time.After(2 * time.Second):
		t.Fatal("reveal did not run")
	}
	assert.Eventually(t, func() bool { return !session.Busy() }, time.Second, 5*time.Millisecond)

	_, err = session.Draw(ctx, clubs[1].ID)
	require.NoError(t, err)
}

func TestDrawSession_FailedDrawReleasesBusyFlag(t *testing.T) {
	f := newFixture(t)
	session := NewDrawSession(f.draws, time.Hour, time.Hour, nil)
	t.Cleanup(session.Close)

	_, err := session.Draw(context.Background(), "anything")
	assert.ErrorIs(t, err, draw.ErrLocked)
	assert.False(t, session.Busy())
}

func TestDrawSession_CancelKeepsAssignment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clubs := f.configure(t, 1, 2)
	_, err := f.draws.Start(ctx)
	require.NoError(t, err)

	called := false
	session := NewDrawSession(f.draws, time.Hour, time.Hour, func(context.Context, Assignment) { called = true })

	_, err = session.Draw(ctx, clubs[0].ID)
	require.NoError(t, err)
	session.Close()

	assert.False(t, session.Busy())
	assert.False(t, called)
	stored, err := f.repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.FilledPositions())
}

func TestObserverSeesAssignmentWhenAssignReturns(t *testing.T) {
	repo := newTestRepo(t)
	bus := eventbus.New(slog.Default())
	t.Cleanup(func() { bus.Close() })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tournaments := NewTournamentService(repo, bus)
	draws := NewDrawService(repo, bus, nil)
	display := viewsync.NewObserver("display", repo, bus, nil)
	require.NoError(t, display.Start(ctx))

	_, err := tournaments.SetField(ctx, draw.FieldName, "Copa")
	require.NoError(t, err)
	_, err = tournaments.SetField(ctx, draw.FieldGroups, "1")
	require.NoError(t, err)
	_, err = tournaments.SetField(ctx, draw.FieldClubsPerGroup, "2")
	require.NoError(t, err)
	alpha, err := tournaments.AddClub(ctx, "Alpha", "")
	require.NoError(t, err)
	_, err = tournaments.AddClub(ctx, "Beta", "")
	require.NoError(t, err)
	_, err = draws.Start(ctx)
	require.NoError(t, err)

	_, err = draws.Assign(ctx, alpha.ID)
	require.NoError(t, err)

	view := display.Current()
	assert.Equal(t, draw.StatusActive, view.Status)
	assert.Equal(t, alpha.ID, view.Positions[0].ClubID)
	assert.Len(t, view.AvailableClubs(), 1)
}
