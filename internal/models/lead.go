package models

import "time"

// LeadSource identifies which public form produced the lead.
type LeadSource string

const (
	LeadSourceContact    LeadSource = "CONTACT_US"
	LeadSourceEnrollment LeadSource = "ENROLLMENT"
)

// LeadStatus tracks the admin follow-up pipeline.
type LeadStatus string

const (
	LeadStatusInterested LeadStatus = "INTERESTED"
	LeadStatusContacted  LeadStatus = "CONTACTED"
	LeadStatusEnrolled   LeadStatus = "ENROLLED"
)

// Valid reports whether the status is one of the known pipeline values.
func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusInterested, LeadStatusContacted, LeadStatusEnrolled:
		return true
	}
	return false
}

// Lead is a public inbound contact or enrollment request. Creation requires
// no authentication; mutation is admin-only.
type Lead struct {
	ID           string     `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Email        string     `db:"email" json:"email"`
	Phone        string     `db:"phone" json:"phone"`
	StudentClass string     `db:"student_class" json:"student_class,omitempty"`
	Program      string     `db:"program" json:"program,omitempty"`
	Message      string     `db:"message" json:"message,omitempty"`
	Source       LeadSource `db:"source" json:"source"`
	Status       LeadStatus `db:"status" json:"status"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}
