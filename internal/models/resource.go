package models

import (
	"strconv"
	"time"
)

// ResourceType enumerates the kinds of uploadable study material.
type ResourceType string

const (
	ResourceTypePQ         ResourceType = "pq"
	ResourceTypeNotes      ResourceType = "notes"
	ResourceTypeAssignment ResourceType = "assignment"
	ResourceTypeImportant  ResourceType = "imp"
)

// Valid reports whether the type is one of the known values.
func (t ResourceType) Valid() bool {
	switch t {
	case ResourceTypePQ, ResourceTypeNotes, ResourceTypeAssignment, ResourceTypeImportant:
		return true
	}
	return false
}

// Resource represents an uploaded study item (question papers, notes, etc.)
// owned by the uploading teacher or admin. Visibility for students is gated
// by IsPublished plus the tag-based access policy.
type Resource struct {
	ID           string       `db:"id" json:"id"`
	Title        string       `db:"title" json:"title"`
	Description  string       `db:"description" json:"description,omitempty"`
	Type         ResourceType `db:"type" json:"type"`
	Subject      string       `db:"subject" json:"subject"`
	TargetClass  int          `db:"target_class" json:"target_class"`
	Exam         string       `db:"exam" json:"exam,omitempty"`
	FileURL      string       `db:"file_url" json:"file_url,omitempty"`
	UploadedByID string       `db:"uploaded_by_id" json:"uploaded_by_id"`
	UploaderName string       `db:"uploader_name" json:"uploader_name,omitempty"`
	Downloads    int64        `db:"downloads" json:"downloads"`
	Views        int64        `db:"views" json:"views"`
	Rating       float64      `db:"rating" json:"rating"`
	IsPublished  bool         `db:"is_published" json:"is_published"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    *time.Time   `db:"updated_at" json:"updated_at,omitempty"`
}

// ContentTags returns the tag dimensions the access policy evaluates.
// TargetClass lives as an integer in storage but compares as a string tag.
func (r *Resource) ContentTags() []string {
	return []string{strconv.Itoa(r.TargetClass), r.Subject, r.Exam}
}

// AudienceTags returns the dimensions used for notification fan-out on
// publish. Resource fan-out matches on class and exam only.
func (r *Resource) AudienceTags() []string {
	return []string{strconv.Itoa(r.TargetClass), r.Exam}
}

// Published implements the access policy item contract.
func (r *Resource) Published() bool {
	return r.IsPublished
}

// ResourceFilter captures list filters for resources.
type ResourceFilter struct {
	Type          *ResourceType
	Subject       string
	TargetClass   *int
	UploadedByID  string
	OnlyPublished bool
}
