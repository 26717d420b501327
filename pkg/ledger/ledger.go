package ledger

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Ledger is the durable store for receipts, traces, quota counters, and
// chat sessions. All access goes through a single connection: SQLite
// allows only one writer at a time, so db.SetMaxOpenConns(1) turns that
// restriction into free serialization for quota's read-modify-write
// sequences.
type Ledger struct {
	db *sql.DB

	insertReceiptStmt *sql.Stmt
	getReceiptStmt    *sql.Stmt
	byTaskStmt        *sql.Stmt

	insertTraceStmt *sql.Stmt

	insertSessionStmt *sql.Stmt
	insertMessageStmt *sql.Stmt
	messagesStmt      *sql.Stmt
}

// Open creates or attaches to the SQLite database at path (":memory:" is
// accepted for tests), applies the schema, and prepares statements. path
// "" is rejected: callers must be explicit about ephemeral vs durable
// storage.
func Open(path string) (*Ledger, error) {
	if path == "" {
		return nil, fmt.Errorf("ledger: path must not be empty")
	}

	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: apply schema: %w", err)
	}

	l := &Ledger{db: db}
	if err := l.prepare(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *Ledger) prepare() error {
	var err error
	prep := func(dst **sql.Stmt, query string) {
		if err != nil {
			return
		}
		*dst, err = l.db.Prepare(query)
	}

	prep(&l.insertReceiptStmt, `
		INSERT INTO receipts (
			id, ts, policy, route_primary, route_final, fallback_count, reasons,
			latency_ms, first_token_ms, task_id, parent_id, agent,
			prompt_tokens, completion_tokens, cost_usd, prompt_hash, policy_hash, meta, signature
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	prep(&l.getReceiptStmt, `
		SELECT id, ts, policy, route_primary, route_final, fallback_count, reasons,
			latency_ms, first_token_ms, task_id, parent_id, agent,
			prompt_tokens, completion_tokens, cost_usd, prompt_hash, policy_hash, meta, signature
		FROM receipts WHERE id = ?
	`)
	prep(&l.byTaskStmt, `
		SELECT id, ts, policy, route_primary, route_final, fallback_count, reasons,
			latency_ms, first_token_ms, task_id, parent_id, agent,
			prompt_tokens, completion_tokens, cost_usd, prompt_hash, policy_hash, meta, signature
		FROM receipts WHERE task_id = ? ORDER BY ts ASC
	`)
	prep(&l.insertTraceStmt, `
		INSERT INTO traces (ts, user_ref, policy, route_primary, route_final, latency_ms, tokens, cost_usd)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	prep(&l.insertSessionStmt, `
		INSERT INTO sessions (id, created_at, user_ref, agent_name, policy_name) VALUES (?, ?, ?, ?, ?)
	`)
	prep(&l.insertMessageStmt, `
		INSERT INTO messages (id, session_id, role, content, ts) VALUES (?, ?, ?, ?, ?)
	`)
	prep(&l.messagesStmt, `
		SELECT id, session_id, role, content, ts FROM messages WHERE session_id = ? ORDER BY ts ASC
	`)
	return err
}

// Close closes the underlying database, running a final WAL checkpoint
// first so no data is left stranded in the -wal file.
func (l *Ledger) Close() error {
	_, _ = l.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return l.db.Close()
}

// nowISO returns the current time formatted as ISO-8601 UTC, the
// timestamp format used for receipts and traces.
func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
