package user

import "time"

// Role distinguishes employees from managers.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleEmployee || r == RoleManager
}

// User maps an external Telegram identity to an internal record. TelegramID
// is immutable after creation; users are never deleted.
type User struct {
	ID         string
	TelegramID int64
	Username   string
	Role       Role
	CreatedAt  time.Time
}
