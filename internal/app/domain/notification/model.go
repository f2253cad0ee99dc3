package notification

import "time"

// Status tracks outbox delivery progress.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Message is an outbox row. Business writes enqueue messages inside their
// own transaction; the dispatcher delivers them afterwards, best-effort.
type Message struct {
	ID        string
	UserID    string
	ChatID    int64
	Text      string
	Status    Status
	Attempts  int
	LastError string
	CreatedAt time.Time
	SentAt    time.Time
}
