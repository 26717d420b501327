package ledger

import (
	"database/sql"
	"errors"
	"fmt"
)

// rpmWindowMs is the sliding window RPM quotas are measured over.
const rpmWindowMs = 60_000

// RecordRPMEvent prunes events older than the 60s window for userRef, counts
// what remains, and only inserts a new event at nowMs if that count is still
// below limit — so a rejected call never grows the window. limit <= 0
// disables the check: the event is always recorded and allowed is always
// true. The whole prune-count-insert sequence runs as one transaction;
// because the ledger's connection pool is capped at one, it is naturally
// exclusive with every other ledger write.
func (l *Ledger) RecordRPMEvent(userRef string, nowMs int64, limit int) (count int, allowed bool, err error) {
	tx, err := l.db.Begin()
	if err != nil {
		return 0, false, fmt.Errorf("ledger: begin rpm tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM rpm_events WHERE user_ref = ? AND ts_ms < ?`, userRef, nowMs-rpmWindowMs); err != nil {
		return 0, false, fmt.Errorf("ledger: prune rpm events: %w", err)
	}
	if err := tx.QueryRow(`SELECT COUNT(*) FROM rpm_events WHERE user_ref = ?`, userRef).Scan(&count); err != nil {
		return 0, false, fmt.Errorf("ledger: count rpm events: %w", err)
	}

	if limit > 0 && count >= limit {
		if err := tx.Commit(); err != nil {
			return 0, false, fmt.Errorf("ledger: commit rpm tx: %w", err)
		}
		return count, false, nil
	}

	if _, err := tx.Exec(`INSERT INTO rpm_events (user_ref, ts_ms) VALUES (?, ?)`, userRef, nowMs); err != nil {
		return 0, false, fmt.Errorf("ledger: insert rpm event: %w", err)
	}
	count++

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("ledger: commit rpm tx: %w", err)
	}
	return count, true, nil
}

// DailyTokens returns the tokens recorded for userRef on day, or 0 if no
// row exists yet.
func (l *Ledger) DailyTokens(userRef, day string) (int, error) {
	var tokens int
	err := l.db.QueryRow(`SELECT tokens FROM quotas_daily WHERE user_ref = ? AND day = ?`, userRef, day).Scan(&tokens)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("ledger: read daily tokens: %w", err)
	}
	return tokens, nil
}

// AddDailyTokens increments the token count for (userRef, day) by delta and
// returns the resulting total, upserting the row if it does not yet exist.
func (l *Ledger) AddDailyTokens(userRef, day string, delta int) (int, error) {
	tx, err := l.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("ledger: begin quota tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO quotas_daily (user_ref, day, tokens) VALUES (?, ?, ?)
		ON CONFLICT (user_ref, day) DO UPDATE SET tokens = tokens + excluded.tokens
	`, userRef, day, delta)
	if err != nil {
		return 0, fmt.Errorf("ledger: upsert daily tokens: %w", err)
	}

	var total int
	if err := tx.QueryRow(`SELECT tokens FROM quotas_daily WHERE user_ref = ? AND day = ?`, userRef, day).Scan(&total); err != nil {
		return 0, fmt.Errorf("ledger: read daily tokens after upsert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("ledger: commit quota tx: %w", err)
	}
	return total, nil
}
