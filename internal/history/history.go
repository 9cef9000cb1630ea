package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"stale-sweep/internal/sweep"
)

// DB manages the SQLite database holding removal history
type DB struct {
	db *sql.DB
}

// Action recorded for one removal attempt
const (
	ActionRemove = "REMOVE"
	ActionDryRun = "DRY_RUN"
	ActionError  = "ERROR"
)

// Entry is one persisted removal event
type Entry struct {
	ID           int64
	Timestamp    time.Time
	Action       string
	Path         string
	FileName     string
	Kind         string
	Size         int64
	Root         string
	ErrorMessage string
	CreatedAt    time.Time
}

// Open creates the database connection and initializes the schema
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	// file: prefix with _loc=auto enables automatic DATETIME parsing
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	// A trivial query forces file creation and surfaces permission problems
	if _, err = db.Exec("SELECT 1"); err != nil {
		return nil, fmt.Errorf("failed to initialize database (check permissions on %s): %w", dbPath, err)
	}

	// WAL for concurrent readers while the daemon writes
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err = db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	h := &DB{db: db}
	if err = h.initSchema(); err != nil {
		return nil, err
	}

	err = nil
	return h, nil
}

// initSchema creates tables and indexes if they don't exist
func (h *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS removals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		action TEXT NOT NULL,
		path TEXT NOT NULL,
		file_name TEXT,
		kind TEXT NOT NULL,
		size INTEGER NOT NULL,
		root TEXT,
		error_message TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_removals_timestamp ON removals(timestamp);
	CREATE INDEX IF NOT EXISTS idx_removals_action ON removals(action);
	CREATE INDEX IF NOT EXISTS idx_removals_path ON removals(path);
	CREATE INDEX IF NOT EXISTS idx_removals_size ON removals(size);
	CREATE INDEX IF NOT EXISTS idx_removals_created_at ON removals(created_at);

	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := h.db.Exec(schema)
	return err
}

// RecordRemoval inserts one removal attempt into the history.
// dryRun turns a successful record into a DRY_RUN action so reporting can
// distinguish rehearsals from real deletions.
func (h *DB) RecordRemoval(root string, rec sweep.Record, dryRun bool) error {
	action := ActionRemove
	if rec.Failed() {
		action = ActionError
	} else if dryRun {
		action = ActionDryRun
	}

	query := `
	INSERT INTO removals (
		timestamp, action, path, file_name, kind, size, root, error_message
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := h.db.Exec(
		query,
		rec.SweptAt,
		action,
		rec.Path,
		filepath.Base(rec.Path),
		string(rec.Kind),
		rec.Size,
		root,
		rec.Err,
	)

	return err
}

// Close closes the database connection
func (h *DB) Close() error {
	return h.db.Close()
}

// Vacuum optimizes the database (run periodically)
func (h *DB) Vacuum() error {
	_, err := h.db.Exec("VACUUM")
	return err
}
