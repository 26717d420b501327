package ledger

import (
	"testing"

	"github.com/google/uuid"
)

func TestCreateSessionAndAppendMessages(t *testing.T) {
	l := openTestLedger(t)

	user := "alice"
	s := &Session{ID: uuid.NewString(), UserRef: &user, PolicyName: "default"}
	if err := l.CreateSession(s); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	msgs := []*Message{
		{ID: uuid.NewString(), SessionID: s.ID, Role: "system", Content: "you are helpful"},
		{ID: uuid.NewString(), SessionID: s.ID, Role: "user", Content: "hello"},
	}
	for _, m := range msgs {
		if err := l.AppendMessage(m); err != nil {
			t.Fatalf("AppendMessage() error = %v", err)
		}
	}

	got, err := l.Messages(s.ID)
	if err != nil {
		t.Fatalf("Messages() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	if got[0].Role != "system" || got[1].Role != "user" {
		t.Errorf("roles out of order: %+v", got)
	}
}

func TestMessagesEmptyForUnknownSession(t *testing.T) {
	l := openTestLedger(t)
	got, err := l.Messages("no-such-session")
	if err != nil {
		t.Fatalf("Messages() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len(got) = %d, want 0", len(got))
	}
}
