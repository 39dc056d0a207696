package models

import "time"

// User is a requester who can raise alerts. Registration and
// credential handling live in the external auth service; this service
// only reads the profile.
type User struct {
	ID                    uint   `gorm:"primaryKey" json:"id"`
	Email                 string `gorm:"uniqueIndex;size:255" json:"email"`
	FullName              string `json:"full_name"`
	PhoneNumber           string `json:"phone_number"`
	Address               string `json:"address"`
	EmergencyContactName  string `json:"emergency_contact_name"`
	EmergencyContactPhone string `json:"emergency_contact_phone"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}
