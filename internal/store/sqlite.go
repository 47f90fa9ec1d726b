// Package store holds the optional persistent collaborators: a sqlite
// database for network signup status plus a compliance mirror, and a
// hash-chained JSONL file for the tamper-evident compliance log. The
// workflow treats both as fire-and-forget — their failures are logged
// and ignored, and the core runs fully in-memory when neither is
// configured.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"signupguard/internal/types"
)

// SQLiteStore persists network signup status and mirrors compliance
// entries.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// OpenSQLite creates or opens the store at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &SQLiteStore{db: db, dbPath: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS network_status (
		network_id TEXT PRIMARY KEY,
		status     TEXT NOT NULL,
		date       TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS compliance_log (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		action         TEXT NOT NULL,
		level          TEXT NOT NULL,
		network_id     TEXT,
		human_approved INTEGER,
		ts             DATETIME NOT NULL,
		details        TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_compliance_network ON compliance_log(network_id);
	CREATE INDEX IF NOT EXISTS idx_compliance_action ON compliance_log(action);
	`
	_, err := s.db.Exec(schema)
	return err
}

// UpdateNetworkStatus upserts the signup status for a network.
func (s *SQLiteStore) UpdateNetworkStatus(networkID, status string, date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO network_status (network_id, status, date, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(network_id) DO UPDATE SET
			status = excluded.status,
			date = excluded.date,
			updated_at = excluded.updated_at`,
		networkID, status, date.UTC().Format("2006-01-02"), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert network status: %w", err)
	}
	return nil
}

// NetworkStatus reads back the stored status for a network.
func (s *SQLiteStore) NetworkStatus(networkID string) (status, date string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.db.QueryRow(`SELECT status, date FROM network_status WHERE network_id = ?`, networkID)
	if err := row.Scan(&status, &date); err != nil {
		return "", "", fmt.Errorf("read network status: %w", err)
	}
	return status, date, nil
}

// AppendComplianceLog implements audit.Sink, mirroring entries into the
// database. Rows are insert-only; nothing updates or deletes them.
func (s *SQLiteStore) AppendComplianceLog(entry types.ComplianceLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var approved interface{}
	if entry.HumanApproved != nil {
		if *entry.HumanApproved {
			approved = 1
		} else {
			approved = 0
		}
	}
	_, err := s.db.Exec(`
		INSERT INTO compliance_log (action, level, network_id, human_approved, ts, details)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Action, string(entry.Level), entry.NetworkID, approved, entry.Timestamp.UTC(), entry.Details)
	if err != nil {
		return fmt.Errorf("insert compliance entry: %w", err)
	}
	return nil
}

// ComplianceCount returns the number of mirrored compliance rows.
func (s *SQLiteStore) ComplianceCount() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM compliance_log`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count compliance entries: %w", err)
	}
	return n, nil
}
