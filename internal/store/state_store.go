package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AdamBeresnev/championship-draw/internal/draw"
	"github.com/jmoiron/sqlx"
)

// Keys of the persisted tournament record
const (
	TournamentKey = "championship-tournament"
	StatusKey     = "championship-draw-status"
	PositionsKey  = "championship-groups"
)

var Keys = []string{TournamentKey, StatusKey, PositionsKey}

type Repository interface {
	Load(ctx context.Context) (*draw.Snapshot, error)
	Save(ctx context.Context, snapshot *draw.Snapshot) error
	// Update loads, applies fn and saves in one transaction. Nothing is
	// written when fn returns an error.
	Update(ctx context.Context, fn func(*draw.Snapshot) error) (*draw.Snapshot, error)
}

type stateRow struct {
	Key      string `db:"key"`
	Value    string `db:"value"`
	Revision int64  `db:"revision"`
	Writer   string `db:"writer"`
}

const (
	selectStateQuery = "SELECT key, value, revision, writer FROM draw_state"
	upsertStateQuery = `
		INSERT INTO draw_state (key, value, revision, writer, updated_at)
		VALUES (:key, :value, 1, :writer, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			revision = draw_state.revision + 1,
			writer = excluded.writer,
			updated_at = excluded.updated_at
	`
	deleteStateQuery = "DELETE FROM draw_state WHERE key = ?"
)

type StateStore struct {
	db        *sqlx.DB
	contextID string
}

// NewStateStore returns a repository whose writes are tagged with contextID,
// so watchers in the same context can skip them.
func NewStateStore(db *sqlx.DB, contextID string) *StateStore {
	return &StateStore{db: db, contextID: contextID}
}

func (s *StateStore) ContextID() string {
	return s.contextID
}

func (s *StateStore) Load(ctx context.Context) (*draw.Snapshot, error) {
	var rows []stateRow
	if err := s.db.SelectContext(ctx, &rows, selectStateQuery); err != nil {
		return nil, fmt.Errorf("failed to read draw state: %w", err)
	}
	return decodeSnapshot(rows)
}

func (s *StateStore) Save(ctx context.Context, snapshot *draw.Snapshot) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var rows []stateRow
	if err := tx.SelectContext(ctx, &rows, selectStateQuery); err != nil {
		return fmt.Errorf("failed to read draw state: %w", err)
	}
	if err := s.write(ctx, tx, rows, snapshot); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *StateStore) Update(ctx context.Context, fn func(*draw.Snapshot) error) (*draw.Snapshot, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var rows []stateRow
	if err := tx.SelectContext(ctx, &rows, selectStateQuery); err != nil {
		return nil, fmt.Errorf("failed to read draw state: %w", err)
	}
	snapshot, err := decodeSnapshot(rows)
	if err != nil {
		return nil, err
	}

	if err := fn(snapshot); err != nil {
		return nil, err
	}

	if err := s.write(ctx, tx, rows, snapshot); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	// Positions are regenerated on read when the key is gone
	if snapshot.Status == draw.StatusInactive {
		snapshot.Positions = draw.GeneratePositions(snapshot.Tournament)
	}
	return snapshot, nil
}

// write stores only the keys whose serialized value changed, so the revision
// of a key moves exactly when its content does.
func (s *StateStore) write(ctx context.Context, tx *sqlx.Tx, current []stateRow, snapshot *draw.Snapshot) error {
	encoded, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	existing := make(map[string]string, len(current))
	for _, row := range current {
		existing[row.Key] = row.Value
	}

	for _, key := range Keys {
		value, keep := encoded[key]
		old, present := existing[key]

		switch {
		case !keep && present:
			if _, err := tx.ExecContext(ctx, deleteStateQuery, key); err != nil {
				return fmt.Errorf("failed to clear %s: %w", key, err)
			}
		case keep && (!present || old != value):
			row := stateRow{Key: key, Value: value, Writer: s.contextID}
			if _, err := tx.NamedExecContext(ctx, upsertStateQuery, row); err != nil {
				return fmt.Errorf("failed to write %s: %w", key, err)
			}
		}
	}
	return nil
}

// Positions are only persisted once a draw has been started
func encodeSnapshot(snapshot *draw.Snapshot) (map[string]string, error) {
	encoded := make(map[string]string, len(Keys))

	tournament, err := json.Marshal(snapshot.Tournament)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tournament: %w", err)
	}
	encoded[TournamentKey] = string(tournament)
	encoded[StatusKey] = string(snapshot.Status)

	if snapshot.Status != draw.StatusInactive {
		positions, err := json.Marshal(snapshot.Positions)
		if err != nil {
			return nil, fmt.Errorf("failed to encode positions: %w", err)
		}
		encoded[PositionsKey] = string(positions)
	}
	return encoded, nil
}

func decodeSnapshot(rows []stateRow) (*draw.Snapshot, error) {
	snapshot := draw.NewSnapshot()
	var positions *string

	for _, row := range rows {
		switch row.Key {
		case TournamentKey:
			var tournament draw.Tournament
			if err := json.Unmarshal([]byte(row.Value), &tournament); err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", TournamentKey, err)
			}
			if tournament.Clubs == nil {
				tournament.Clubs = []draw.Club{}
			}
			snapshot.Tournament = tournament
		case StatusKey:
			status, err := draw.ParseStatus(row.Value)
			if err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", StatusKey, err)
			}
			snapshot.Status = status
		case PositionsKey:
			positions = &row.Value
		}
	}

	snapshot.Positions = draw.GeneratePositions(snapshot.Tournament)
	if positions != nil && strings.TrimSpace(*positions) != "" {
		var stored []draw.Position
		if err := json.Unmarshal([]byte(*positions), &stored); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", PositionsKey, err)
		}
		snapshot.Positions = stored
	}

	return &snapshot, nil
}

// revisions returns the current revision and writer of every stored key
func revisions(ctx context.Context, q sqlx.QueryerContext) (map[string]stateRow, error) {
	var rows []stateRow
	if err := sqlx.SelectContext(ctx, q, &rows, "SELECT key, '' AS value, revision, writer FROM draw_state"); err != nil {
		return nil, err
	}

	byKey := make(map[string]stateRow, len(rows))
	for _, row := range rows {
		byKey[row.Key] = row
	}
	return byKey, nil
}
