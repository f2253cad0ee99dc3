package points

import "time"

// Event is an append-only point credit. The only writer today is the
// approval transition of a challenge request, which records the event in
// the same transaction as the status change.
type Event struct {
	ID        string
	UserID    string
	Points    int
	RequestID string
	CreatedAt time.Time
}

// LeaderboardEntry is a computed ranking row. Entries are ordered by
// TotalPoints descending with ties broken by user creation order.
type LeaderboardEntry struct {
	UserID      string
	Username    string
	TotalPoints int
}
