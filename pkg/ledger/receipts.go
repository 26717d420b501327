package ledger

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// Receipt is the immutable record of one invocation. Signature is the
// HMAC-SHA-256 over the canonical JSON payload, computed by pkg/receipts
// before the row is inserted here: the ledger persists receipts, it does
// not sign them.
type Receipt struct {
	ID               string
	TS               string
	Policy           string
	RoutePrimary     string
	RouteFinal       string
	FallbackCount    int
	Reasons          []string
	LatencyMs        int
	FirstTokenMs     *int
	TaskID           *string
	ParentID         *string
	Agent            *string
	PromptTokens     int
	CompletionTokens int
	CostUSD          float64
	PromptHash       string
	PolicyHash       string
	Meta             map[string]any
	Signature        string
}

// InsertReceipt persists r. TS is stamped here if empty. Callers must set
// Signature before calling — the ledger never signs on their behalf.
func (l *Ledger) InsertReceipt(r *Receipt) error {
	if r.TS == "" {
		r.TS = nowISO()
	}
	reasonsJSON, err := json.Marshal(r.Reasons)
	if err != nil {
		return fmt.Errorf("ledger: marshal reasons: %w", err)
	}
	var metaJSON []byte
	if r.Meta != nil {
		metaJSON, err = json.Marshal(r.Meta)
		if err != nil {
			return fmt.Errorf("ledger: marshal meta: %w", err)
		}
	}

	_, err = l.insertReceiptStmt.Exec(
		r.ID, r.TS, r.Policy, r.RoutePrimary, r.RouteFinal, r.FallbackCount, string(reasonsJSON),
		r.LatencyMs, nullableInt(r.FirstTokenMs), nullableString(r.TaskID), nullableString(r.ParentID), nullableString(r.Agent),
		r.PromptTokens, r.CompletionTokens, r.CostUSD, r.PromptHash, r.PolicyHash, nullableBytes(metaJSON), r.Signature,
	)
	if err != nil {
		return fmt.Errorf("ledger: insert receipt: %w", err)
	}
	return nil
}

// GetReceipt returns the receipt with the given id, or (nil, nil) if none
// exists.
func (l *Ledger) GetReceipt(id string) (*Receipt, error) {
	return scanReceipt(l.getReceiptStmt.QueryRow(id))
}

// ReceiptsByTask returns every receipt sharing taskID, oldest first —
// the parent/child lineage a timeline is built from.
func (l *Ledger) ReceiptsByTask(taskID string) ([]*Receipt, error) {
	rows, err := l.byTaskStmt.Query(taskID)
	if err != nil {
		return nil, fmt.Errorf("ledger: query receipts by task: %w", err)
	}
	defer rows.Close()

	var out []*Receipt
	for rows.Next() {
		r, err := scanReceiptRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteReceiptsBefore removes every receipt with ts < cutoff (RFC3339Nano,
// UTC) and returns the number of rows removed. Used by pkg/ledger/retention
// to prune old receipts; never touches sessions, messages, or quota rows.
func (l *Ledger) DeleteReceiptsBefore(cutoff string) (int64, error) {
	res, err := l.db.Exec(`DELETE FROM receipts WHERE ts < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("ledger: delete receipts before %s: %w", cutoff, err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReceipt(row *sql.Row) (*Receipt, error) {
	r, err := scanReceiptRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

func scanReceiptRow(s rowScanner) (*Receipt, error) {
	var (
		r                            Receipt
		reasonsJSON                  string
		metaJSON                     sql.NullString
		firstTokenMs                 sql.NullInt64
		taskID, parentID, agent      sql.NullString
	)
	if err := s.Scan(
		&r.ID, &r.TS, &r.Policy, &r.RoutePrimary, &r.RouteFinal, &r.FallbackCount, &reasonsJSON,
		&r.LatencyMs, &firstTokenMs, &taskID, &parentID, &agent,
		&r.PromptTokens, &r.CompletionTokens, &r.CostUSD, &r.PromptHash, &r.PolicyHash, &metaJSON, &r.Signature,
	); err != nil {
		return nil, fmt.Errorf("ledger: scan receipt: %w", err)
	}

	if err := json.Unmarshal([]byte(reasonsJSON), &r.Reasons); err != nil {
		return nil, fmt.Errorf("ledger: unmarshal reasons: %w", err)
	}
	if metaJSON.Valid {
		if err := json.Unmarshal([]byte(metaJSON.String), &r.Meta); err != nil {
			return nil, fmt.Errorf("ledger: unmarshal meta: %w", err)
		}
	}
	if firstTokenMs.Valid {
		v := int(firstTokenMs.Int64)
		r.FirstTokenMs = &v
	}
	if taskID.Valid {
		r.TaskID = &taskID.String
	}
	if parentID.Valid {
		r.ParentID = &parentID.String
	}
	if agent.Valid {
		r.Agent = &agent.String
	}
	return &r, nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
