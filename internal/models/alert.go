package models

import "time"

// Alert statuses. pending is initial; dispatched and cancelled are
// reachable only from pending; resolved only from dispatched.
const (
	StatusPending    = "pending"
	StatusDispatched = "dispatched"
	StatusResolved   = "resolved"
	StatusCancelled  = "cancelled"
)

// ValidStatus reports whether s is a known alert status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusDispatched, StatusResolved, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is a legal lifecycle move.
// resolved and cancelled are terminal. Self-transitions are not moves.
func CanTransition(from, to string) bool {
	switch from {
	case StatusPending:
		return to == StatusDispatched || to == StatusCancelled
	case StatusDispatched:
		return to == StatusResolved
	}
	return false
}

// TerminalStatus reports whether no further transitions are possible.
func TerminalStatus(s string) bool {
	return s == StatusResolved || s == StatusCancelled
}

// Alert is a single emergency request. ResponderID always matches the
// newest RoutingHistory row for the alert; both are written in one
// transaction on dispatch and on every escalation.
type Alert struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	UserID      uint    `gorm:"index" json:"user_id"`
	ResponderID uint    `gorm:"index;column:security_company_id" json:"security_company_id"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	AudioURL    string  `json:"audio_url,omitempty"`

	// Denormalized so a responder sees contact details without a join.
	UserName  string `json:"user_name"`
	UserPhone string `json:"user_phone"`

	Status string `gorm:"index;default:pending" json:"status"`

	// Set when the escalation chain ran out of attempts or candidates
	// with the alert still pending. Operational marker, not a status.
	EscalationExhausted bool `json:"escalation_exhausted"`

	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DispatchedAt *time.Time `json:"dispatched_at,omitempty"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}

// RoutingHistory is the append-only record of assignment attempts. One
// row per attempt, initial dispatch included; rows are never updated
// except to flip Responded when the assignee acts.
type RoutingHistory struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	AlertID     uint       `gorm:"index" json:"alert_id"`
	ResponderID uint       `gorm:"column:security_company_id" json:"security_company_id"`
	NotifiedAt  time.Time  `json:"notified_at"`
	Responded   bool       `json:"responded"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
}

func (RoutingHistory) TableName() string { return "alert_routing_history" }
