package ledger

// schema is applied on every Open call. CREATE TABLE/INDEX IF NOT EXISTS
// makes it idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS receipts (
	id               TEXT PRIMARY KEY,
	ts               TEXT NOT NULL,
	policy           TEXT NOT NULL,
	route_primary    TEXT NOT NULL,
	route_final      TEXT NOT NULL,
	fallback_count   INTEGER NOT NULL,
	reasons          TEXT NOT NULL,
	latency_ms       INTEGER NOT NULL,
	first_token_ms   INTEGER,
	task_id          TEXT,
	parent_id        TEXT,
	agent            TEXT,
	prompt_tokens    INTEGER NOT NULL,
	completion_tokens INTEGER NOT NULL,
	cost_usd         REAL NOT NULL,
	prompt_hash      TEXT NOT NULL,
	policy_hash      TEXT NOT NULL,
	meta             TEXT,
	signature        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_receipts_task_id ON receipts(task_id);
CREATE INDEX IF NOT EXISTS idx_receipts_parent_id ON receipts(parent_id);

CREATE TABLE IF NOT EXISTS traces (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	ts            TEXT NOT NULL,
	user_ref      TEXT,
	policy        TEXT NOT NULL,
	route_primary TEXT NOT NULL,
	route_final   TEXT NOT NULL,
	latency_ms    INTEGER NOT NULL,
	tokens        INTEGER NOT NULL,
	cost_usd      REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_traces_route_final_ts ON traces(route_final, ts DESC);

CREATE TABLE IF NOT EXISTS quotas_daily (
	user_ref TEXT NOT NULL,
	day      TEXT NOT NULL,
	tokens   INTEGER NOT NULL,
	PRIMARY KEY (user_ref, day)
);

CREATE INDEX IF NOT EXISTS idx_quotas_daily_user_day ON quotas_daily(user_ref, day);

CREATE TABLE IF NOT EXISTS rpm_events (
	user_ref TEXT NOT NULL,
	ts_ms    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rpm_events_user_ts ON rpm_events(user_ref, ts_ms);

CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	created_at  TEXT NOT NULL,
	user_ref    TEXT,
	agent_name  TEXT,
	policy_name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	ts         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_session_ts ON messages(session_id, ts);
`
