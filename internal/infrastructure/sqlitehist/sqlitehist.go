// Package sqlitehist is the optional device-state-history sink: one
// row per UpdateStates application, queryable by the
// GET .../devices/:entity_id/history REST route. Not part of the
// original design (its storage model keeps no history); this
// supplement enriches it the way the teacher repo enriches KNX device
// history in its own sqlite store.
package sqlitehist

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/nerrad567/hamh-bridge/internal/model"
)

const (
	dirPermissions  = 0o750
	filePermissions = 0o600

	connectionTimeout = 5 * time.Second
)

const schema = `
CREATE TABLE IF NOT EXISTS device_state_history (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	bridge_id   TEXT NOT NULL,
	entity_id   TEXT NOT NULL,
	reachable   INTEGER NOT NULL,
	on_off      INTEGER NOT NULL,
	recorded_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_device_state_history_lookup
	ON device_state_history (bridge_id, entity_id, recorded_at DESC);
`

// Config describes where the history database lives.
type Config struct {
	// Path is the filesystem path to the SQLite database file. The
	// directory is created if missing.
	Path string
}

// DB is a sqlite-backed recorder of device state history.
type DB struct {
	sql *sql.DB
}

// Open creates (or opens) the history database at cfg.Path, applying
// WAL mode and a single-writer connection pool, matching the
// conventions of the teacher's own sqlite wrapper.
func Open(cfg Config) (*DB, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("sqlitehist: creating directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL&_synchronous=NORMAL", cfg.Path)
	sqlDB, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("sqlitehist: opening database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("sqlitehist: verifying connection: %w", err)
	}
	if _, err := sqlDB.ExecContext(ctx, schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("sqlitehist: applying schema: %w", err)
	}

	_ = os.Chmod(cfg.Path, filePermissions)

	return &DB{sql: sqlDB}, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.sql.Close()
}

// Record inserts one state sample.
func (db *DB) Record(ctx context.Context, rec model.DeviceStateRecord) error {
	_, err := db.sql.ExecContext(ctx,
		`INSERT INTO device_state_history (bridge_id, entity_id, reachable, on_off, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		rec.BridgeID, rec.EntityID, rec.Reachable, rec.OnOff, rec.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlitehist: recording state: %w", err)
	}
	return nil
}

// History returns up to limit of the most recent records for
// (bridgeID, entityID), newest first.
func (db *DB) History(ctx context.Context, bridgeID, entityID string, limit int) ([]model.DeviceStateRecord, error) {
	rows, err := db.sql.QueryContext(ctx,
		`SELECT reachable, on_off, recorded_at FROM device_state_history
		 WHERE bridge_id = ? AND entity_id = ?
		 ORDER BY recorded_at DESC LIMIT ?`,
		bridgeID, entityID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlitehist: querying history: %w", err)
	}
	defer rows.Close()

	var records []model.DeviceStateRecord
	for rows.Next() {
		var (
			reachable  bool
			onOff      bool
			recordedAt string
		)
		if err := rows.Scan(&reachable, &onOff, &recordedAt); err != nil {
			return nil, fmt.Errorf("sqlitehist: scanning row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("sqlitehist: parsing recorded_at: %w", err)
		}
		records = append(records, model.DeviceStateRecord{
			BridgeID:   bridgeID,
			EntityID:   entityID,
			Reachable:  reachable,
			OnOff:      onOff,
			RecordedAt: ts,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlitehist: iterating rows: %w", err)
	}
	return records, nil
}
