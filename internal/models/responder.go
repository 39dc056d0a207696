package models

import "time"

// Responder is a security company that can be dispatched to alerts.
// Availability and location are mutated by the company itself through
// the profile endpoints; alerts never delete or disable a responder.
type Responder struct {
	ID               uint     `gorm:"primaryKey" json:"id"`
	Email            string   `gorm:"uniqueIndex;size:255" json:"email"`
	CompanyName      string   `json:"company_name"`
	PhoneNumber      string   `json:"phone_number"`
	Address          string   `json:"address"`
	Latitude         *float64 `json:"latitude"`
	Longitude        *float64 `json:"longitude"`
	Available        bool     `gorm:"column:is_available" json:"is_available"`
	CoverageRadiusKM float64  `gorm:"column:coverage_radius_km" json:"coverage_radius_km"`
	PushToken        string   `json:"push_token,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// HasLocation reports whether the responder has registered coordinates.
// Companies without them are never dispatch candidates.
func (r *Responder) HasLocation() bool {
	return r.Latitude != nil && r.Longitude != nil
}
