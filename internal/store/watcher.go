package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

const DefaultPollInterval = 500 * time.Millisecond

// ChangeFunc receives the key of a record entry another context changed
type ChangeFunc func(ctx context.Context, key string)

// Watcher reports writes made through other database connections, the way a
// browser fires storage events only for writes from other tabs. SQLite bumps
// PRAGMA data_version on a connection only when a different connection has
// committed, so the watcher keeps one connection to itself and checks it.
type Watcher struct {
	db        *sqlx.DB
	contextID string
	interval  time.Duration
	onChange  ChangeFunc
}

func NewWatcher(db *sqlx.DB, contextID string, interval time.Duration, onChange ChangeFunc) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Watcher{db: db, contextID: contextID, interval: interval, onChange: onChange}
}

func (w *Watcher) Run(ctx context.Context) error {
	conn, err := w.db.Connx(ctx)
	if err != nil {
		return fmt.Errorf("failed to reserve watcher connection: %w", err)
	}
	defer conn.Close()

	version, err := dataVersion(ctx, conn)
	if err != nil {
		return err
	}
	seen, err := revisions(ctx, conn)
	if err != nil {
		return fmt.Errorf("failed to read initial revisions: %w", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		current, err := dataVersion(ctx, conn)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Warn("storage watcher could not read data version", "error", err)
			continue
		}
		if current == version {
			continue
		}
		version = current

		latest, err := revisions(ctx, conn)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Warn("storage watcher could not read revisions", "error", err)
			continue
		}

		for _, key := range changedKeys(seen, latest, w.contextID) {
			w.onChange(ctx, key)
		}
		seen = latest
	}
}

// changedKeys lists keys whose revision moved since the last check and whose
// latest writer is another context. Deleted keys are not reported on their
// own: the positions key is only ever removed together with a status change.
func changedKeys(before, after map[string]stateRow, contextID string) []string {
	var changed []string
	for _, key := range Keys {
		cur, ok := after[key]
		if !ok || cur.Writer == contextID {
			continue
		}
		if prev, had := before[key]; had && prev.Revision == cur.Revision && prev.Writer == cur.Writer {
			continue
		}
		changed = append(changed, key)
	}
	return changed
}

func dataVersion(ctx context.Context, conn *sqlx.Conn) (int64, error) {
	var version int64
	if err := conn.GetContext(ctx, &version, "PRAGMA data_version"); err != nil {
		return 0, fmt.Errorf("failed to read data_version: %w", err)
	}
	return version, nil
}
