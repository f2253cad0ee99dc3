package challenge

import (
	"strings"
	"time"
)

// Category classifies a challenge request. The set is fixed and validated
// at the boundary.
type Category string

const (
	CategoryIT        Category = "IT"
	CategoryMarketing Category = "Marketing"
	CategoryDesign    Category = "Design"
	CategoryOther     Category = "Other"
)

// ParseCategory normalises a raw category value. The second return is false
// when the value is not part of the enum.
func ParseCategory(raw string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "it":
		return CategoryIT, true
	case "marketing":
		return CategoryMarketing, true
	case "design":
		return CategoryDesign, true
	case "other":
		return CategoryOther, true
	default:
		return "", false
	}
}

// Status is the lifecycle state of a challenge request. Transitions run
// strictly forward: pending is initial, approved and rejected are terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Decision is a manager's resolution of a pending request.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// Valid reports whether the decision is one of the two allowed values.
func (d Decision) Valid() bool {
	return d == DecisionApproved || d == DecisionRejected
}

// Request is an employee-submitted challenge proposal awaiting a manager
// decision. RewardPoints is fixed at creation; the credit on approval must
// equal it exactly.
type Request struct {
	ID           string
	RequesterID  string
	Title        string
	Category     Category
	Description  string
	RewardPoints int
	Status       Status
	CreatedAt    time.Time
	ResolvedAt   time.Time
	ResolverID   string
}
