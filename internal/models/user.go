package models

import (
	"time"

	"github.com/lib/pq"
)

// UserRole represents the closed set of platform roles. Roles travel as
// lowercase strings across every boundary; unknown values are rejected at
// validation time instead of being cast blindly.
type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// Valid reports whether the role is one of the known values.
func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// User represents an application user stored in the users table.
// AccessTags is the set of free-form tags ("11", "JEE", "Physics") that
// gates which published content a student may see.
type User struct {
	ID              string         `db:"id" json:"id"`
	Email           string         `db:"email" json:"email"`
	PasswordHash    string         `db:"password_hash" json:"-"`
	FullName        string         `db:"full_name" json:"full_name"`
	Role            UserRole       `db:"role" json:"role"`
	Phone           string         `db:"phone" json:"phone,omitempty"`
	ProfileImageURL string         `db:"profile_image_url" json:"profile_image_url,omitempty"`
	Active          bool           `db:"active" json:"active"`
	AccessTags      pq.StringArray `db:"access_tags" json:"access_tags"`

	// Student-specific fields.
	StudentClass   string     `db:"student_class" json:"student_class,omitempty"`
	Program        string     `db:"program" json:"program,omitempty"`
	EnrollmentDate *time.Time `db:"enrollment_date" json:"enrollment_date,omitempty"`

	// Teacher-specific fields.
	Qualifications pq.StringArray `db:"qualifications" json:"qualifications,omitempty"`
	Experience     *int           `db:"experience" json:"experience,omitempty"`
	Expertise      pq.StringArray `db:"expertise" json:"expertise,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TagSet materialises the user's access tags as a set for membership checks.
// Tags are compared case-sensitively.
func (u *User) TagSet() map[string]struct{} {
	set := make(map[string]struct{}, len(u.AccessTags))
	for _, tag := range u.AccessTags {
		set[tag] = struct{}{}
	}
	return set
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
