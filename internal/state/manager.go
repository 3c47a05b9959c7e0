package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DBFile is the history database name inside the state directory
const DBFile = "prscatalog.db"

// Run statuses
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Manager persists the history of catalog runs
type Manager struct {
	db *sql.DB
}

// PartitionRecord is the outcome of one partition within a run
type PartitionRecord struct {
	ID        int64
	RunID     string
	Partition string
	Status    string // "success", "failed", "skipped"
	Copied    int
	Added     int
	Removed   int
	Items     int
	Playlists int
	SourceID  int
	LastID    int
	Error     string
	StartTime time.Time
	EndTime   time.Time
}

// NewManager opens (and creates if needed) the history database in dataDir
func NewManager(dataDir string) (*Manager, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dataDir, DBFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Limit connection pool to prevent "database is locked" errors
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode and busy timeout: %w", err)
	}

	manager := &Manager{db: db}
	if err := manager.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return manager, nil
}

func (m *Manager) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS partition_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		partition TEXT NOT NULL,
		status TEXT NOT NULL,
		copied INTEGER DEFAULT 0,
		added INTEGER DEFAULT 0,
		removed INTEGER DEFAULT 0,
		items INTEGER DEFAULT 0,
		playlists INTEGER DEFAULT 0,
		source_id INTEGER DEFAULT 0,
		last_id INTEGER DEFAULT 0,
		error TEXT,
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_partition_runs_run ON partition_runs(run_id);
	CREATE INDEX IF NOT EXISTS idx_partition_runs_partition_time ON partition_runs(partition, start_time DESC);
	`

	_, err := m.db.Exec(schema)
	return err
}

// SaveRun records the outcome of one partition
func (m *Manager) SaveRun(record PartitionRecord) error {
	switch record.Status {
	case StatusSuccess, StatusFailed, StatusSkipped:
	default:
		return fmt.Errorf("invalid status: %s (must be 'success', 'failed', or 'skipped')", record.Status)
	}
	if record.RunID == "" {
		return fmt.Errorf("run id cannot be empty")
	}

	query := `
		INSERT INTO partition_runs (run_id, partition, status, copied, added, removed,
			items, playlists, source_id, last_id, error, start_time, end_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := m.db.Exec(query,
		record.RunID,
		record.Partition,
		record.Status,
		record.Copied,
		record.Added,
		record.Removed,
		record.Items,
		record.Playlists,
		record.SourceID,
		record.LastID,
		record.Error,
		record.StartTime,
		record.EndTime,
	)
	if err != nil {
		return fmt.Errorf("failed to save run record: %w", err)
	}

	return nil
}

const selectColumns = `
	SELECT id, run_id, partition, status, copied, added, removed, items,
		playlists, source_id, last_id, error, start_time, end_time
	FROM partition_runs
`

// GetHistory returns the most recent partition records, newest first.
// An empty partition selects all partitions.
func (m *Manager) GetHistory(partition string, limit int) ([]PartitionRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	var (
		rows *sql.Rows
		err  error
	)
	if partition == "" {
		rows, err = m.db.Query(selectColumns+" ORDER BY start_time DESC, id DESC LIMIT ?", limit)
	} else {
		rows, err = m.db.Query(selectColumns+" WHERE partition = ? ORDER BY start_time DESC, id DESC LIMIT ?", partition, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// GetRun returns every partition record of the run whose id starts with
// runID, in insertion order
func (m *Manager) GetRun(runID string) ([]PartitionRecord, error) {
	if runID == "" {
		return nil, fmt.Errorf("run id cannot be empty")
	}
	rows, err := m.db.Query(selectColumns+" WHERE substr(run_id, 1, ?) = ? ORDER BY id", len(runID), runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// GetLastSuccess returns the last successful record for a partition, or nil
func (m *Manager) GetLastSuccess(partition string) (*PartitionRecord, error) {
	rows, err := m.db.Query(selectColumns+" WHERE partition = ? AND status = ? ORDER BY start_time DESC, id DESC LIMIT 1",
		partition, StatusSuccess)
	if err != nil {
		return nil, fmt.Errorf("failed to query last success: %w", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

func scanRecords(rows *sql.Rows) ([]PartitionRecord, error) {
	var records []PartitionRecord
	for rows.Next() {
		var (
			record PartitionRecord
			errMsg sql.NullString
		)
		err := rows.Scan(
			&record.ID,
			&record.RunID,
			&record.Partition,
			&record.Status,
			&record.Copied,
			&record.Added,
			&record.Removed,
			&record.Items,
			&record.Playlists,
			&record.SourceID,
			&record.LastID,
			&errMsg,
			&record.StartTime,
			&record.EndTime,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		record.Error = errMsg.String
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return records, nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
