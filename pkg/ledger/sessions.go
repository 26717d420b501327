package ledger

import "fmt"

// Session is a persisted multi-turn chat.
type Session struct {
	ID         string
	CreatedAt  string
	UserRef    *string
	AgentName  *string
	PolicyName string
}

// Message is one turn in a Session's ordered history.
type Message struct {
	ID        string
	SessionID string
	Role      string // "system" | "user" | "assistant"
	Content   string
	TS        string
}

// CreateSession persists s. CreatedAt is stamped here if empty.
func (l *Ledger) CreateSession(s *Session) error {
	if s.CreatedAt == "" {
		s.CreatedAt = nowISO()
	}
	_, err := l.insertSessionStmt.Exec(s.ID, s.CreatedAt, nullableString(s.UserRef), nullableString(s.AgentName), s.PolicyName)
	if err != nil {
		return fmt.Errorf("ledger: create session: %w", err)
	}
	return nil
}

// AppendMessage persists m. TS is stamped here if empty.
func (l *Ledger) AppendMessage(m *Message) error {
	if m.TS == "" {
		m.TS = nowISO()
	}
	_, err := l.insertMessageStmt.Exec(m.ID, m.SessionID, m.Role, m.Content, m.TS)
	if err != nil {
		return fmt.Errorf("ledger: append message: %w", err)
	}
	return nil
}

// Messages returns sessionID's history in chronological order.
func (l *Ledger) Messages(sessionID string) ([]*Message, error) {
	rows, err := l.messagesStmt.Query(sessionID)
	if err != nil {
		return nil, fmt.Errorf("ledger: query messages: %w", err)
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.TS); err != nil {
			return nil, fmt.Errorf("ledger: scan message: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
