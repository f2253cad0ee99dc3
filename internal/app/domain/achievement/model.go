package achievement

import "time"

// Record is one awarded achievement. The ledger is append-only and permits
// repeat awards of the same name to the same user.
type Record struct {
	ID        string
	UserID    string
	Name      string
	AwardedAt time.Time
}
