// Package store implements the SQLite-backed repositories behind every
// domain package's Repository interface (spec.md §4.7).
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// DB wraps the shared sqlx connection and per-aggregate-id write-lock
// striping (spec.md §5: "one writer per aggregate instance; readers are
// unrestricted").
type DB struct {
	*sqlx.DB
	locks *stripedLocks
}

// Open opens or creates a SQLite database at path and runs migrations.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("store: create db directory: %w", err)
		}
	}

	conn, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: enable WAL: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: enable foreign keys: %w", err)
	}

	d := &DB{DB: conn, locks: newStripedLocks(64)}
	if err := d.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return d, nil
}

func (d *DB) migrate() error {
	if _, err := d.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var version int
	if err := d.Get(&version, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations"); err != nil {
		return fmt.Errorf("read migration version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration1Users},
		{2, migration2Verifications},
		{3, migration3Tickets},
		{4, migration4Conversations},
		{5, migration5Integrations},
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if _, err := d.Exec(m.sql); err != nil {
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
		if _, err := d.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
	}
	return nil
}

const migration1Users = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	cpf_canonical TEXT,
	cpf_hash TEXT,
	client_name TEXT,
	service_json TEXT,
	status TEXT NOT NULL,
	is_admin INTEGER DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_users_cpf_hash ON users(cpf_hash);
`

const migration2Verifications = `
CREATE TABLE IF NOT EXISTS verifications (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	username TEXT,
	type TEXT NOT NULL,
	source_action TEXT,
	status TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	expires_at DATETIME NOT NULL,
	completed_at DATETIME,
	attempts_json TEXT,
	verified_cpf_canonical TEXT,
	verified_cpf_hash TEXT,
	upstream_json TEXT
);
CREATE INDEX IF NOT EXISTS idx_verifications_user_status ON verifications(user_id, status);
CREATE INDEX IF NOT EXISTS idx_verifications_expires_at ON verifications(expires_at);
CREATE INDEX IF NOT EXISTS idx_verifications_cpf_hash ON verifications(verified_cpf_hash);

CREATE TABLE IF NOT EXISTS verification_attempt_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	verification_id TEXT NOT NULL,
	attempted_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_attempt_log_user_time ON verification_attempt_log(user_id, attempted_at);
`

const migration3Tickets = `
CREATE TABLE IF NOT EXISTS tickets (
	id TEXT PRIMARY KEY,
	owner_json TEXT NOT NULL,
	category TEXT,
	game TEXT,
	timing TEXT,
	description TEXT,
	urgency TEXT NOT NULL,
	status TEXT NOT NULL,
	assignee TEXT,
	resolution_notes TEXT,
	upstream_id TEXT,
	upstream_protocol TEXT,
	sync_status TEXT NOT NULL,
	attachments_json TEXT,
	messages_json TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tickets_owner ON tickets(owner_json);
CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status);
CREATE INDEX IF NOT EXISTS idx_tickets_sync_status ON tickets(sync_status);
`

const migration4Conversations = `
CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	username TEXT,
	state TEXT NOT NULL,
	form_json TEXT,
	is_active INTEGER NOT NULL,
	ticket_id TEXT,
	created_at DATETIME NOT NULL,
	last_activity DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversations_user_active ON conversations(user_id, is_active);
CREATE INDEX IF NOT EXISTS idx_conversations_last_activity ON conversations(last_activity);
`

const migration5Integrations = `
CREATE TABLE IF NOT EXISTS integration_requests (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	priority TEXT NOT NULL,
	status TEXT NOT NULL,
	payload_json TEXT,
	metadata_json TEXT,
	max_retries INTEGER NOT NULL,
	timeout_ms INTEGER,
	force_retry INTEGER DEFAULT 0,
	scheduled_at DATETIME,
	started_at DATETIME,
	completed_at DATETIME,
	response_json TEXT,
	error_detail TEXT,
	attempts_json TEXT,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_integration_status_priority ON integration_requests(status, priority, scheduled_at);
CREATE INDEX IF NOT EXISTS idx_integration_type ON integration_requests(type);
`
